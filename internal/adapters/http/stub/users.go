package stub

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultMaxRetry = 5
	defaultLockFor  = 30 * time.Minute
)

type account struct {
	id        int64
	username  string
	nickname  string
	hash      []byte
	roles     []string
	createdAt time.Time

	failures    int
	lockedUntil time.Time
}

// userStore keeps accounts in memory and tracks failed password attempts.
type userStore struct {
	mu       sync.Mutex
	byName   map[string]*account
	nextID   int64
	cost     int
	maxRetry int
	lockFor  time.Duration
	now      func() time.Time
}

func newUserStore(now func() time.Time) *userStore {
	return &userStore{
		byName:   make(map[string]*account),
		nextID:   1,
		cost:     bcrypt.DefaultCost,
		maxRetry: defaultMaxRetry,
		lockFor:  defaultLockFor,
		now:      now,
	}
}

func (u *userStore) create(username, password, nickname string, roles []string) (*account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byName[username]; ok {
		return nil, ErrUserExists
	}
	if nickname == "" {
		nickname = username
	}
	if len(roles) == 0 {
		roles = []string{"common"}
	}
	a := &account{
		id:        u.nextID,
		username:  username,
		nickname:  nickname,
		hash:      hash,
		roles:     roles,
		createdAt: u.now(),
	}
	u.nextID++
	u.byName[username] = a
	return a, nil
}

// lockedError reports a lock with the remaining wait.
type lockedError struct {
	remaining time.Duration
}

func (e *lockedError) Error() string {
	minutes := int(e.remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("too many failed attempts, account locked for %d minutes", minutes)
}

func (e *lockedError) Unwrap() error { return ErrAccountLocked }

// authenticate checks the password. Failures count towards the lockout and a
// success resets the counter.
func (u *userStore) authenticate(username, password string) (*account, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.now()
	a, ok := u.byName[username]
	if !ok {
		return nil, ErrBadCredentials
	}
	if now.Before(a.lockedUntil) {
		return nil, &lockedError{remaining: a.lockedUntil.Sub(now)}
	}
	if !a.lockedUntil.IsZero() {
		a.lockedUntil = time.Time{}
		a.failures = 0
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("compare password: %w", err)
		}
		a.failures++
		if a.failures >= u.maxRetry {
			a.lockedUntil = now.Add(u.lockFor)
			return nil, &lockedError{remaining: u.lockFor}
		}
		return nil, ErrBadCredentials
	}
	a.failures = 0
	return a, nil
}

func (u *userStore) get(username string) (*account, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	a, ok := u.byName[username]
	return a, ok
}

// changePassword replaces the hash after verifying the old password.
func (u *userStore) changePassword(username, oldPassword, newPassword string) error {
	if oldPassword == newPassword {
		return ErrSamePassword
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	a, ok := u.byName[username]
	if !ok {
		return ErrNoSession
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(oldPassword)); err != nil {
		return ErrOldPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), u.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	a.hash = hash
	return nil
}
