package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ledesport/podio/internal/domain/dedupe"
)

func key(event, recipient string) dedupe.Key {
	return dedupe.Key{EventID: event, Recipient: recipient}
}

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		ctx := context.Background()

		Convey("When recording a new delivery key", func() {
			d := dedupe.NewInMemoryDeduper()
			seen := d.SeenAndRecord(ctx, key("ev-1", "coach-1"))

			Convey("Then it is not seen and gets recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When recording the same key twice", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, key("ev-1", "coach-1"))
			seen := d.SeenAndRecord(ctx, key("ev-1", "coach-1"))

			Convey("Then the second attempt reports seen", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same event goes to different recipients", func() {
			d := dedupe.NewInMemoryDeduper()
			first := d.SeenAndRecord(ctx, key("ev-1", "coach-1"))
			second := d.SeenAndRecord(ctx, key("ev-1", "committee-1"))

			Convey("Then each pair is tracked independently", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When unrecording a key", func() {
			d := dedupe.NewInMemoryDeduper()
			d.SeenAndRecord(ctx, key("ev-1", "coach-1"))
			d.Unrecord(ctx, key("ev-1", "coach-1"))

			Convey("Then the pair becomes deliverable again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, key("ev-1", "coach-1")), ShouldBeFalse)
			})
		})

		Convey("When unrecording a key that was never recorded", func() {
			d := dedupe.NewInMemoryDeduper()
			d.Unrecord(ctx, key("ghost", "coach-1"))

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("When recording past the bound", func() {
			for i := 0; i < 5; i++ {
				d.SeenAndRecord(ctx, key(fmt.Sprintf("ev-%d", i), "coach-1"))
			}

			Convey("Then the oldest entries are evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, key("ev-4", "coach-1")), ShouldBeTrue)
				// ev-0 was evicted, so it records as new again.
				So(d.SeenAndRecord(ctx, key("ev-0", "coach-1")), ShouldBeFalse)
			})
		})
	})

	Convey("Given concurrent recorders", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When many goroutines record the same key", func() {
			const goroutines = 32
			var wg sync.WaitGroup
			var mu sync.Mutex
			recorded := 0
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, key("ev-1", "coach-1")) {
						mu.Lock()
						recorded++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one goroutine records it", func() {
				So(recorded, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}
