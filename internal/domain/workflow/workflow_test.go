package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ledesport/podio/internal/adapters/repository"
	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/workflow"
)

// captureSink records published events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *captureSink) Publish(ctx context.Context, ev model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureSink) kinds() []model.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.EventKind, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Kind)
	}
	return out
}

func committee(id string) workflow.Actor {
	return workflow.Actor{ID: id, Role: model.RoleComiteTecnico}
}

func generate(t *testing.T, engine *workflow.Engine) model.Recommendation {
	t.Helper()
	rec, err := engine.Generate(context.Background(), workflow.GenerateParams{
		AthleteID:   "a-1",
		AnalysisRef: "scan-1",
		Suggestion: model.Suggestion{
			Trigger: model.TriggerNegativeTrend,
			Summary: "reduce load on randori",
		},
	})
	So(err, ShouldBeNil)
	return rec
}

func modification() *model.Modification {
	return &model.Modification{
		Kind:          "load_adjustment",
		SchemaVersion: 1,
		Payload:       json.RawMessage(`{"target_load": 45}`),
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a workflow engine", t, func() {
		store := repository.NewMemoryRecommendationStore()
		sink := &captureSink{}
		engine := workflow.New(store, sink)

		Convey("When the system generates a recommendation", func() {
			rec := generate(t, engine)

			Convey("Then it starts PENDIENTE with the algorithm as creator", func() {
				So(rec.Estado, ShouldEqual, model.Pendiente)
				So(rec.Creator, ShouldEqual, model.CreatorAlgorithm)
				So(rec.Version, ShouldEqual, 1)
				So(rec.Transitions, ShouldHaveLength, 1)
			})

			Convey("Then a pending event is published for fan-out", func() {
				So(sink.kinds(), ShouldResemble, []model.EventKind{model.EventRecommendationPending})
			})
		})
	})
}

func TestTransition(t *testing.T) {
	ctx := context.Background()

	Convey("Given a PENDIENTE recommendation", t, func() {
		store := repository.NewMemoryRecommendationStore()
		sink := &captureSink{}
		engine := workflow.New(store, sink)
		rec := generate(t, engine)

		Convey("When a committee member begins review", func() {
			updated, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{Op: model.OpBeginReview})

			Convey("Then the state moves to EN_PROCESO and the reviewer is pinned", func() {
				So(err, ShouldBeNil)
				So(updated.Estado, ShouldEqual, model.EnProceso)
				So(updated.Reviewer, ShouldEqual, "rev-1")
				So(updated.Version, ShouldEqual, 2)
			})

			Convey("And the review holder approves with a comment", func() {
				approved, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{
					Op: model.OpApprove, Comment: "plan confirmed",
				})

				Convey("Then the state is terminal CUMPLIDA with an audit trail", func() {
					So(err, ShouldBeNil)
					So(approved.Estado, ShouldEqual, model.Cumplida)
					So(approved.Comment, ShouldEqual, "plan confirmed")
					So(approved.Transitions, ShouldHaveLength, 3)
					So(approved.Transitions[2].Op, ShouldEqual, model.OpApprove)
				})

				Convey("And approving again fails with the terminal state named", func() {
					_, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{Op: model.OpApprove})

					var invalid *workflow.InvalidTransitionError
					So(errors.As(err, &invalid), ShouldBeTrue)
					So(invalid.Current, ShouldEqual, model.Cumplida)
					So(invalid.Allowed, ShouldBeEmpty)
				})
			})

			Convey("And a different committee member tries to approve", func() {
				_, err := engine.Transition(ctx, rec.ID, committee("rev-2"), workflow.Request{Op: model.OpApprove})

				Convey("Then the disposition is refused", func() {
					var unauthorized *workflow.UnauthorizedError
					So(errors.As(err, &unauthorized), ShouldBeTrue)
				})
			})

			Convey("And the holder rejects with an alternative action", func() {
				rejected, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{
					Op: model.OpReject, Comment: "conflicts with medical plan", Alternative: "swimming sessions",
				})

				Convey("Then the rejection reason and alternative are recorded", func() {
					So(err, ShouldBeNil)
					So(rejected.Estado, ShouldEqual, model.Rechazada)
					So(rejected.Comment, ShouldEqual, "conflicts with medical plan")
					So(rejected.Alternative, ShouldEqual, "swimming sessions")
				})
			})

			Convey("And the holder modifies without a justification", func() {
				_, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{
					Op: model.OpModify, Modification: modification(),
				})

				Convey("Then the modify is rejected", func() {
					So(errors.Is(err, workflow.ErrJustificationRequired), ShouldBeTrue)
				})
			})

			Convey("And the holder modifies without a payload", func() {
				_, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{
					Op: model.OpModify, Justification: "load too aggressive",
				})

				Convey("Then the modify is rejected", func() {
					So(errors.Is(err, workflow.ErrModificationRequired), ShouldBeTrue)
				})
			})

			Convey("And the holder modifies with justification and payload", func() {
				modified, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{
					Op: model.OpModify, Justification: "load too aggressive", Modification: modification(),
				})

				Convey("Then the entity is MODIFICADA with the payload stored verbatim", func() {
					So(err, ShouldBeNil)
					So(modified.Estado, ShouldEqual, model.Modificada)
					So(modified.Modification, ShouldNotBeNil)
					So(string(modified.Modification.Payload), ShouldEqual, `{"target_load": 45}`)
				})

				Convey("Then no new entity is created as a side effect", func() {
					So(err, ShouldBeNil)
					So(store.Count(ctx), ShouldEqual, 1)
				})
			})
		})

		Convey("When approving straight from PENDIENTE", func() {
			_, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{Op: model.OpApprove})

			Convey("Then the attempt fails naming the allowed operations", func() {
				var invalid *workflow.InvalidTransitionError
				So(errors.As(err, &invalid), ShouldBeTrue)
				So(invalid.Current, ShouldEqual, model.Pendiente)
				So(invalid.Allowed, ShouldResemble, []model.Operation{model.OpBeginReview})
			})
		})

		Convey("When a coach tries to begin review", func() {
			_, err := engine.Transition(ctx, rec.ID, workflow.Actor{ID: "coach-1", Role: model.RoleEntrenador}, workflow.Request{Op: model.OpBeginReview})

			Convey("Then the role guard refuses", func() {
				var unauthorized *workflow.UnauthorizedError
				So(errors.As(err, &unauthorized), ShouldBeTrue)
				So(unauthorized.Role, ShouldEqual, model.RoleEntrenador)
			})
		})

		Convey("When the operation is unknown", func() {
			_, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{Op: model.Operation("archive")})

			Convey("Then the attempt fails as an invalid transition", func() {
				var invalid *workflow.InvalidTransitionError
				So(errors.As(err, &invalid), ShouldBeTrue)
			})
		})

		Convey("When the recommendation does not exist", func() {
			_, err := engine.Transition(ctx, "ghost", committee("rev-1"), workflow.Request{Op: model.OpBeginReview})

			Convey("Then the lookup error surfaces", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestConcurrentDispositions(t *testing.T) {
	Convey("Given a recommendation under review", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryRecommendationStore()
		engine := workflow.New(store, &captureSink{})
		rec := generate(t, engine)
		_, err := engine.Transition(ctx, rec.ID, committee("rev-1"), workflow.Request{Op: model.OpBeginReview})
		So(err, ShouldBeNil)

		Convey("When approve and reject race on the same version", func() {
			var wg sync.WaitGroup
			results := make([]error, 2)
			ops := []workflow.Request{
				{Op: model.OpApprove, Comment: "ok"},
				{Op: model.OpReject, Comment: "no"},
			}
			start := make(chan struct{})
			for i := range ops {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					_, results[i] = engine.Transition(ctx, rec.ID, committee("rev-1"), ops[i])
				}(i)
			}
			close(start)
			wg.Wait()

			Convey("Then exactly one disposition wins", func() {
				winners := 0
				for _, err := range results {
					if err == nil {
						winners++
					}
				}
				So(winners, ShouldEqual, 1)
			})

			Convey("Then the loser learns the state moved on", func() {
				var lost error
				for _, err := range results {
					if err != nil {
						lost = err
					}
				}
				So(lost, ShouldNotBeNil)
				var invalid *workflow.InvalidTransitionError
				isInvalid := errors.As(lost, &invalid)
				So(isInvalid || errors.Is(lost, workflow.ErrConcurrentModification), ShouldBeTrue)
			})

			Convey("Then the stored entity is terminal with one disposition entry", func() {
				final, err := store.Get(ctx, rec.ID)
				So(err, ShouldBeNil)
				So(final.Estado.Terminal(), ShouldBeTrue)
				So(final.Version, ShouldEqual, 3)
				So(final.Transitions, ShouldHaveLength, 3)
			})
		})
	})
}
