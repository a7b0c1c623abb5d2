package stub

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMathCaptcha(t *testing.T) {
	Convey("Generated challenges are well formed", t, func() {
		r := rand.New(rand.NewPCG(1, 2))
		for range 500 {
			expr, answer := mathCaptcha(r)
			var x, y int
			var op rune
			_, err := fmt.Sscanf(expr, "%d%c%d=?", &x, &op, &y)
			So(err, ShouldBeNil)
			So(answer, ShouldBeGreaterThanOrEqualTo, 0)
			switch op {
			case '+':
				So(answer, ShouldEqual, x+y)
			case '-':
				So(x, ShouldBeGreaterThanOrEqualTo, y)
				So(answer, ShouldEqual, x-y)
			case 'x':
				So(x, ShouldBeBetweenOrEqual, 1, 6)
				So(y, ShouldBeBetweenOrEqual, 1, 6)
				So(answer, ShouldEqual, x*y)
			default:
				t.Fatalf("unexpected operator in %q", expr)
			}
		}
	})

	Convey("The rendered image is a decodable PNG", t, func() {
		raw, err := renderCaptcha(rand.New(rand.NewPCG(3, 4)), "7x6=?")
		So(err, ShouldBeNil)
		img, err := png.Decode(bytes.NewReader(raw))
		So(err, ShouldBeNil)
		So(img.Bounds().Dx(), ShouldEqual, captchaWidth)
		So(img.Bounds().Dy(), ShouldEqual, captchaHeight)
	})
}

func TestCaptchaStore(t *testing.T) {
	Convey("Given a captcha store", t, func() {
		clock := newFakeClock()
		store := newCaptchaStore(clock.Now)

		id, img, err := store.issue()
		So(err, ShouldBeNil)
		So(id, ShouldNotBeEmpty)
		So(id, ShouldNotContainSubstring, "-")
		So(img, ShouldNotBeEmpty)
		answer, ok := store.peek(id)
		So(ok, ShouldBeTrue)

		Convey("The right answer passes once", func() {
			So(store.verify(id, answer), ShouldBeNil)
			So(store.verify(id, answer), ShouldEqual, ErrCaptchaExpired)
		})

		Convey("A wrong answer consumes the challenge", func() {
			So(store.verify(id, answer+"0"), ShouldEqual, ErrCaptchaWrong)
			So(store.verify(id, answer), ShouldEqual, ErrCaptchaExpired)
		})

		Convey("Answers expire after two minutes", func() {
			clock.Advance(captchaTTL)
			So(store.verify(id, answer), ShouldEqual, ErrCaptchaExpired)
		})

		Convey("Unknown ids are rejected", func() {
			So(store.verify("nope", "1"), ShouldEqual, ErrCaptchaExpired)
		})
	})
}

func TestUserStoreLockout(t *testing.T) {
	Convey("Given an account", t, func() {
		clock := newFakeClock()
		users := newUserStore(clock.Now)
		users.cost = bcrypt.MinCost
		_, err := users.create("alice", "secret1", "", nil)
		So(err, ShouldBeNil)

		Convey("Duplicate usernames are refused", func() {
			_, err := users.create("alice", "other12", "", nil)
			So(err, ShouldEqual, ErrUserExists)
		})

		Convey("Defaults fill nickname and roles", func() {
			a, ok := users.get("alice")
			So(ok, ShouldBeTrue)
			So(a.nickname, ShouldEqual, "alice")
			So(a.roles, ShouldResemble, []string{"common"})
		})

		Convey("Four failures then a success reset the counter", func() {
			for range 4 {
				_, err := users.authenticate("alice", "wrong")
				So(err, ShouldEqual, ErrBadCredentials)
			}
			_, err := users.authenticate("alice", "secret1")
			So(err, ShouldBeNil)
			_, err = users.authenticate("alice", "wrong")
			So(err, ShouldEqual, ErrBadCredentials)
		})

		Convey("The fifth failure locks the account for thirty minutes", func() {
			for range 4 {
				_, _ = users.authenticate("alice", "wrong")
			}
			_, err := users.authenticate("alice", "wrong")
			So(errors.Is(err, ErrAccountLocked), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "30 minutes")

			_, err = users.authenticate("alice", "secret1")
			So(errors.Is(err, ErrAccountLocked), ShouldBeTrue)

			clock.Advance(defaultLockFor)
			a, err := users.authenticate("alice", "secret1")
			So(err, ShouldBeNil)
			So(a.username, ShouldEqual, "alice")
		})

		Convey("Unknown users are bad credentials", func() {
			_, err := users.authenticate("bob", "secret1")
			So(err, ShouldEqual, ErrBadCredentials)
		})

		Convey("Password changes check the old password", func() {
			So(users.changePassword("alice", "secret1", "secret1"), ShouldEqual, ErrSamePassword)
			So(users.changePassword("alice", "wrong", "secret2"), ShouldEqual, ErrOldPassword)
			So(users.changePassword("alice", "secret1", "secret2"), ShouldBeNil)
			_, err := users.authenticate("alice", "secret2")
			So(err, ShouldBeNil)
		})
	})
}

func TestSessionStore(t *testing.T) {
	Convey("Given a session store", t, func() {
		clock := newFakeClock()
		sessions := newSessionStore([]byte("k"), time.Hour, clock.Now)
		acct := &account{id: 7, username: "alice"}

		token, sess, err := sessions.issue(acct)
		So(err, ShouldBeNil)
		So(sess.jti, ShouldNotBeEmpty)
		So(sessions.count(), ShouldEqual, 1)

		Convey("The token resolves with or without the Bearer prefix", func() {
			got, err := sessions.resolve("Bearer " + token)
			So(err, ShouldBeNil)
			So(got.username, ShouldEqual, "alice")
			So(got.userID, ShouldEqual, int64(7))

			got, err = sessions.resolve(token)
			So(err, ShouldBeNil)
			So(got.jti, ShouldEqual, sess.jti)
		})

		Convey("Revoked tokens are rejected", func() {
			sessions.revoke(sess.jti)
			_, err := sessions.resolve("Bearer " + token)
			So(errors.Is(err, ErrNoSession), ShouldBeTrue)
			So(sessions.count(), ShouldEqual, 0)
		})

		Convey("Expired tokens are rejected", func() {
			clock.Advance(time.Hour)
			_, err := sessions.resolve("Bearer " + token)
			So(errors.Is(err, ErrNoSession), ShouldBeTrue)
			So(sessions.count(), ShouldEqual, 0)
		})

		Convey("Tokens signed with another key are rejected", func() {
			forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
				Username: "alice",
				RegisteredClaims: jwt.RegisteredClaims{
					ID:        sess.jti,
					ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
				},
			}).SignedString([]byte("other"))
			So(err, ShouldBeNil)
			_, err = sessions.resolve("Bearer " + forged)
			So(errors.Is(err, ErrNoSession), ShouldBeTrue)
		})

		Convey("An empty header is rejected", func() {
			_, err := sessions.resolve("")
			So(err, ShouldEqual, ErrNoSession)
		})
	})
}
