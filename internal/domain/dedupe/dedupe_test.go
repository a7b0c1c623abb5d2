package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dedupe "github.com/okian/authclient/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a guard with a one second window", t, func() {
		ctx := context.Background()
		clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		d := dedupe.NewInMemoryDeduper(dedupe.WithInterval(time.Second), dedupe.WithClock(clock.Now))

		Convey("When a submission is new", func() {
			seen := d.SeenAndRecord(ctx, "/auth/password", "a")

			Convey("Then it should be recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same submission repeats inside the window", func() {
			d.SeenAndRecord(ctx, "/auth/password", "a")
			clock.Advance(999 * time.Millisecond)

			Convey("Then it should be reported as seen", func() {
				So(d.SeenAndRecord(ctx, "/auth/password", "a"), ShouldBeTrue)
			})
		})

		Convey("When the same submission repeats after the window", func() {
			d.SeenAndRecord(ctx, "/auth/password", "a")
			clock.Advance(time.Second)

			Convey("Then it should be accepted", func() {
				So(d.SeenAndRecord(ctx, "/auth/password", "a"), ShouldBeFalse)
			})
		})

		Convey("When a rejected submission is retried", func() {
			d.SeenAndRecord(ctx, "/auth/password", "a")
			clock.Advance(600 * time.Millisecond)
			So(d.SeenAndRecord(ctx, "/auth/password", "a"), ShouldBeTrue)
			clock.Advance(600 * time.Millisecond)

			Convey("Then the window should be measured from the accepted one", func() {
				So(d.SeenAndRecord(ctx, "/auth/password", "a"), ShouldBeFalse)
			})
		})

		Convey("When the body differs", func() {
			d.SeenAndRecord(ctx, "/auth/password", "a")

			Convey("Then it should be accepted and replace the record", func() {
				So(d.SeenAndRecord(ctx, "/auth/password", "b"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "/auth/password", "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "/auth/password", "a"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the key differs", func() {
			d.SeenAndRecord(ctx, "/auth/password", "a")

			Convey("Then it should be tracked separately", func() {
				So(d.SeenAndRecord(ctx, "/auth/register", "a"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When a submission is unrecorded", func() {
			d.SeenAndRecord(ctx, "/auth/password", "a")
			d.Unrecord(ctx, "/auth/password", "a")

			Convey("Then it may be submitted again immediately", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "/auth/password", "a"), ShouldBeFalse)
			})
		})

		Convey("When unrecording with a stale fingerprint", func() {
			d.SeenAndRecord(ctx, "/auth/password", "a")
			d.SeenAndRecord(ctx, "/auth/password", "b")
			d.Unrecord(ctx, "/auth/password", "a")

			Convey("Then the newer record should survive", func() {
				So(d.Size(), ShouldEqual, 1)
				So(d.SeenAndRecord(ctx, "/auth/password", "b"), ShouldBeTrue)
			})
		})

		Convey("When unrecording an unknown key", func() {
			So(func() { d.Unrecord(ctx, "/nope", "x") }, ShouldNotPanic)
			So(d.Size(), ShouldEqual, 0)
		})
	})
}

func TestDeduperBounds(t *testing.T) {
	Convey("Given a guard bounded to three keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3), dedupe.WithInterval(time.Hour))

		Convey("When more keys are recorded than fit", func() {
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i), "x")
			}

			Convey("Then the oldest keys should be evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "k4", "x"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "k0", "x"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded guard", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		for i := 0; i < 2000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("k%d", i), "x")
		}
		So(d.Size(), ShouldEqual, 2000)
	})

	Convey("Given a guard with a zero window", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithInterval(0))

		d.SeenAndRecord(ctx, "k", "x")
		So(d.SeenAndRecord(ctx, "k", "x"), ShouldBeFalse)
	})
}

func TestDeduperConcurrency(t *testing.T) {
	Convey("Given concurrent identical submissions", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithInterval(time.Hour))

		var accepted atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "/auth/register", "same") {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one should be accepted", func() {
			So(accepted.Load(), ShouldEqual, 1)
		})
	})
}
