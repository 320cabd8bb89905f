package ranking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ledesport/podio/internal/adapters/repository"
	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/ranking"
	"github.com/ledesport/podio/internal/domain/scoring"
)

func newFixture(t *testing.T) (*repository.MemoryDirectory, *repository.MemoryTestStore, *ranking.Engine) {
	t.Helper()
	directory := repository.NewMemoryDirectory()
	tests := repository.NewMemoryTestStore()
	calc := scoring.NewReferenceCalculator(scoring.WithReferences(
		map[model.WeightCategory]scoring.CategoryReferences{
			model.Menos66K: {"sprint_30m": {Min: 0, Max: 10, Weight: 1}},
		},
	))
	engine := ranking.New(directory, tests, calc,
		ranking.WithCutPoints(map[model.WeightCategory]ranking.CutPoints{
			model.Menos66K: {Apto: 1, Reserva: 1},
		}),
	)
	return directory, tests, engine
}

func addAthlete(t *testing.T, d *repository.MemoryDirectory, id string) {
	t.Helper()
	err := d.PutAthlete(context.Background(), model.Athlete{
		ID: id, Name: id, Category: model.Menos66K, CoachID: "coach-1", Active: true,
	})
	So(err, ShouldBeNil)
}

func addTest(t *testing.T, s *repository.MemoryTestStore, athleteID string, sprint float64) {
	t.Helper()
	err := s.AppendTest(context.Background(), model.PhysicalTest{
		ID:        athleteID + "-test",
		AthleteID: athleteID,
		Category:  model.Menos66K,
		Metrics:   map[string]float64{"sprint_30m": sprint},
		TakenAt:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	So(err, ShouldBeNil)
}

func TestRank(t *testing.T) {
	Convey("Given a category with scored athletes", t, func() {
		ctx := context.Background()
		directory, tests, engine := newFixture(t)

		addAthlete(t, directory, "a-1")
		addAthlete(t, directory, "a-2")
		addAthlete(t, directory, "a-3")
		addTest(t, tests, "a-1", 5)
		addTest(t, tests, "a-2", 9)
		addTest(t, tests, "a-3", 2)

		Convey("When ranking the category", func() {
			result, err := engine.Rank(ctx, model.Menos66K)

			Convey("Then entries are ordered by score descending with ranks assigned", func() {
				So(err, ShouldBeNil)
				So(result.Entries, ShouldHaveLength, 3)
				So(result.Entries[0].AthleteID, ShouldEqual, "a-2")
				So(result.Entries[1].AthleteID, ShouldEqual, "a-1")
				So(result.Entries[2].AthleteID, ShouldEqual, "a-3")
				So(result.Entries[0].Rank, ShouldEqual, 1)
				So(result.Entries[2].Rank, ShouldEqual, 3)
			})

			Convey("Then cut points assign classifications", func() {
				So(err, ShouldBeNil)
				So(result.Entries[0].Classification, ShouldEqual, model.Apto)
				So(result.Entries[1].Classification, ShouldEqual, model.Reserva)
				So(result.Entries[2].Classification, ShouldEqual, model.NoApto)
			})
		})

		Convey("When two athletes tie on score", func() {
			addAthlete(t, directory, "a-0")
			addTest(t, tests, "a-0", 9)
			result, err := engine.Rank(ctx, model.Menos66K)

			Convey("Then athlete id ascending breaks the tie", func() {
				So(err, ShouldBeNil)
				So(result.Entries[0].AthleteID, ShouldEqual, "a-0")
				So(result.Entries[1].AthleteID, ShouldEqual, "a-2")
			})
		})

		Convey("When an athlete has no qualifying tests", func() {
			addAthlete(t, directory, "a-9")
			result, err := engine.Rank(ctx, model.Menos66K)

			Convey("Then that athlete is excluded, not scored zero", func() {
				So(err, ShouldBeNil)
				So(result.Entries, ShouldHaveLength, 3)
				for _, e := range result.Entries {
					So(e.AthleteID, ShouldNotEqual, "a-9")
				}
			})
		})

		Convey("When ranking an unknown category", func() {
			_, err := engine.Rank(ctx, model.WeightCategory("MENOS_999K"))

			Convey("Then the category is rejected", func() {
				So(errors.Is(err, ranking.ErrUnknownCategory), ShouldBeTrue)
			})
		})
	})

	Convey("Given an empty category", t, func() {
		ctx := context.Background()
		_, _, engine := newFixture(t)

		Convey("When ranking it", func() {
			result, err := engine.Rank(ctx, model.Menos66K)

			Convey("Then the result is empty with a reason", func() {
				So(err, ShouldBeNil)
				So(result.Entries, ShouldBeEmpty)
				So(result.Reason, ShouldEqual, ranking.ReasonNoAthletes)
			})
		})
	})

	Convey("Given a category where nobody has qualifying tests", t, func() {
		ctx := context.Background()
		directory, _, engine := newFixture(t)
		addAthlete(t, directory, "a-1")

		Convey("When ranking it", func() {
			result, err := engine.Rank(ctx, model.Menos66K)

			Convey("Then the result is empty with the no-tests reason", func() {
				So(err, ShouldBeNil)
				So(result.Entries, ShouldBeEmpty)
				So(result.Reason, ShouldEqual, ranking.ReasonNoQualifyingTests)
			})
		})
	})
}

func TestRankFor(t *testing.T) {
	Convey("Given a ranked category", t, func() {
		ctx := context.Background()
		directory, tests, engine := newFixture(t)
		addAthlete(t, directory, "a-1")
		addAthlete(t, directory, "a-2")
		addAthlete(t, directory, "a-3")
		addTest(t, tests, "a-1", 5)
		addTest(t, tests, "a-2", 9)
		addTest(t, tests, "a-3", 2)

		Convey("When asking for the middle athlete", func() {
			hood, err := engine.RankFor(ctx, "a-1")

			Convey("Then the entry comes with both neighbors", func() {
				So(err, ShouldBeNil)
				So(hood.Entry.AthleteID, ShouldEqual, "a-1")
				So(hood.Entry.Rank, ShouldEqual, 2)
				So(hood.Above, ShouldNotBeNil)
				So(hood.Above.AthleteID, ShouldEqual, "a-2")
				So(hood.Below, ShouldNotBeNil)
				So(hood.Below.AthleteID, ShouldEqual, "a-3")
			})
		})

		Convey("When asking for the top athlete", func() {
			hood, err := engine.RankFor(ctx, "a-2")

			Convey("Then there is no neighbor above", func() {
				So(err, ShouldBeNil)
				So(hood.Above, ShouldBeNil)
				So(hood.Below, ShouldNotBeNil)
			})
		})

		Convey("When the single-athlete score matches the full ranking", func() {
			full, err := engine.Rank(ctx, model.Menos66K)
			So(err, ShouldBeNil)
			hood, err := engine.RankFor(ctx, "a-1")
			So(err, ShouldBeNil)

			Convey("Then both paths produce the identical score", func() {
				So(hood.Entry.Score.Equal(full.Entries[1].Score), ShouldBeTrue)
			})
		})

		Convey("When the athlete has no qualifying tests", func() {
			addAthlete(t, directory, "a-9")
			_, err := engine.RankFor(ctx, "a-9")

			Convey("Then the athlete is reported unranked", func() {
				So(errors.Is(err, ranking.ErrUnranked), ShouldBeTrue)
			})
		})

		Convey("When the athlete does not exist", func() {
			_, err := engine.RankFor(ctx, "ghost")

			Convey("Then the lookup fails", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
