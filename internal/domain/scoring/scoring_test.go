package scoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/scoring"
)

func refs() map[model.WeightCategory]scoring.CategoryReferences {
	return map[model.WeightCategory]scoring.CategoryReferences{
		model.Menos73K: {
			"sprint_30m":    {Min: 0, Max: 10, Weight: 1},
			"vertical_jump": {Min: 20, Max: 70, Weight: 2},
		},
	}
}

func testAt(id string, day int, metrics map[string]float64) model.PhysicalTest {
	return model.PhysicalTest{
		ID:        id,
		AthleteID: "a-1",
		Category:  model.Menos73K,
		Metrics:   metrics,
		TakenAt:   time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestReferenceCalculator(t *testing.T) {
	Convey("Given a calculator with configured references", t, func() {
		ctx := context.Background()
		calc := scoring.NewReferenceCalculator(scoring.WithReferences(refs()))

		Convey("When scoring a single test", func() {
			history := []model.PhysicalTest{
				testAt("t-1", 1, map[string]float64{"sprint_30m": 5, "vertical_jump": 45}),
			}
			score, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then it computes the weighted composite at two decimals", func() {
				So(err, ShouldBeNil)
				// sprint: 0.5 weight 1, jump: 0.5 weight 2 -> 0.5 * 100
				So(score.String(), ShouldEqual, "50")
			})
		})

		Convey("When scoring the same tests in different input orders", func() {
			a := testAt("t-1", 1, map[string]float64{"sprint_30m": 4, "vertical_jump": 60})
			b := testAt("t-2", 2, map[string]float64{"sprint_30m": 7})

			first, err1 := calc.Score(ctx, []model.PhysicalTest{a, b}, model.Menos73K)
			second, err2 := calc.Score(ctx, []model.PhysicalTest{b, a}, model.Menos73K)

			Convey("Then both runs produce identical scores", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.Equal(second), ShouldBeTrue)
			})
		})

		Convey("When a metric appears in several tests", func() {
			history := []model.PhysicalTest{
				testAt("t-1", 1, map[string]float64{"sprint_30m": 2}),
				testAt("t-2", 5, map[string]float64{"sprint_30m": 8}),
			}
			score, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then the most recent measurement wins", func() {
				So(err, ShouldBeNil)
				// Only sprint measured: 8/10 -> 80.
				So(score.String(), ShouldEqual, "80")
			})
		})

		Convey("When two tests share the same date", func() {
			history := []model.PhysicalTest{
				testAt("t-1", 3, map[string]float64{"sprint_30m": 2}),
				testAt("t-2", 3, map[string]float64{"sprint_30m": 6}),
			}
			score, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then the higher test id breaks the tie", func() {
				So(err, ShouldBeNil)
				So(score.String(), ShouldEqual, "60")
			})
		})

		Convey("When values fall outside the reference range", func() {
			history := []model.PhysicalTest{
				testAt("t-1", 1, map[string]float64{"sprint_30m": 99, "vertical_jump": 1}),
			}
			score, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then normalization clamps to the [0, 100] scale", func() {
				So(err, ShouldBeNil)
				// sprint clamps to 1 (weight 1), jump clamps to 0 (weight 2).
				So(score.String(), ShouldEqual, "33.33")
			})
		})

		Convey("When all tests were taken in another category", func() {
			history := []model.PhysicalTest{{
				ID:        "t-1",
				AthleteID: "a-1",
				Category:  model.Menos81K,
				Metrics:   map[string]float64{"sprint_30m": 5},
				TakenAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			}}
			_, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then the athlete has no qualifying tests", func() {
				So(errors.Is(err, scoring.ErrNoQualifyingTests), ShouldBeTrue)
			})
		})

		Convey("When the history is empty", func() {
			_, err := calc.Score(ctx, nil, model.Menos73K)

			Convey("Then the athlete has no qualifying tests", func() {
				So(errors.Is(err, scoring.ErrNoQualifyingTests), ShouldBeTrue)
			})
		})
	})

	Convey("Given misconfigured references", t, func() {
		ctx := context.Background()
		history := []model.PhysicalTest{
			testAt("t-1", 1, map[string]float64{"sprint_30m": 5}),
		}

		Convey("When the category has no references at all", func() {
			calc := scoring.NewReferenceCalculator()
			_, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then a configuration error names the category", func() {
				var confErr *scoring.ConfigurationError
				So(errors.As(err, &confErr), ShouldBeTrue)
				So(confErr.Category, ShouldEqual, model.Menos73K)
			})
		})

		Convey("When a reference range is inverted", func() {
			calc := scoring.NewReferenceCalculator(scoring.WithReferences(
				map[model.WeightCategory]scoring.CategoryReferences{
					model.Menos73K: {"sprint_30m": {Min: 10, Max: 5, Weight: 1}},
				},
			))
			_, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then a configuration error names the metric", func() {
				var confErr *scoring.ConfigurationError
				So(errors.As(err, &confErr), ShouldBeTrue)
				So(confErr.Metric, ShouldEqual, "sprint_30m")
			})
		})

		Convey("When a metric weight is zero", func() {
			calc := scoring.NewReferenceCalculator(scoring.WithReferences(
				map[model.WeightCategory]scoring.CategoryReferences{
					model.Menos73K: {"sprint_30m": {Min: 0, Max: 10, Weight: 0}},
				},
			))
			_, err := calc.Score(ctx, history, model.Menos73K)

			Convey("Then a configuration error is returned", func() {
				var confErr *scoring.ConfigurationError
				So(errors.As(err, &confErr), ShouldBeTrue)
			})
		})
	})
}
