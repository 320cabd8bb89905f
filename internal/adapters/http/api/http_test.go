package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ledesport/podio/internal/adapters/http/api"
	"github.com/ledesport/podio/internal/adapters/repository"
	"github.com/ledesport/podio/internal/domain/analysis"
	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/ranking"
	"github.com/ledesport/podio/internal/domain/workflow"
)

// fakeDeps is a scriptable Dependencies implementation.
type fakeDeps struct {
	transitionErr error
	transitionRec model.Recommendation
	lastActor     workflow.Actor
	lastRequest   workflow.Request
	notifications []model.Notification
	markReadErr   error
}

func (f *fakeDeps) RegisterAthlete(ctx context.Context, a model.Athlete) error { return nil }
func (f *fakeDeps) RegisterCommitteeMember(ctx context.Context, memberID string) error {
	return nil
}
func (f *fakeDeps) IngestPhysicalTest(ctx context.Context, t model.PhysicalTest) error { return nil }
func (f *fakeDeps) IngestPostTrainingRecord(ctx context.Context, r model.PostTrainingRecord) error {
	return nil
}

func (f *fakeDeps) ComputeRanking(ctx context.Context, category model.WeightCategory) (ranking.Result, error) {
	if !category.Valid() {
		return ranking.Result{}, ranking.ErrUnknownCategory
	}
	return ranking.Result{Category: category, Reason: ranking.ReasonNoAthletes}, nil
}

func (f *fakeDeps) ComputeRankingFor(ctx context.Context, athleteID string) (ranking.Neighborhood, error) {
	if athleteID == "ghost" {
		return ranking.Neighborhood{}, repository.ErrNotFound
	}
	return ranking.Neighborhood{Entry: ranking.Entry{AthleteID: athleteID, Rank: 1}}, nil
}

func (f *fakeDeps) AnalyzePerformance(ctx context.Context, athleteID string) ([]analysis.Signal, error) {
	return []analysis.Signal{{Exercise: "randori", Outcome: analysis.OutcomeOK}}, nil
}

func (f *fakeDeps) GetRecommendation(ctx context.Context, id string) (model.Recommendation, error) {
	if id == "ghost" {
		return model.Recommendation{}, repository.ErrNotFound
	}
	return model.Recommendation{ID: id, Estado: model.Pendiente}, nil
}

func (f *fakeDeps) ListRecommendations(ctx context.Context, athleteID string) ([]model.Recommendation, error) {
	return nil, nil
}

func (f *fakeDeps) Transition(ctx context.Context, id string, actor workflow.Actor, req workflow.Request) (model.Recommendation, error) {
	f.lastActor = actor
	f.lastRequest = req
	if f.transitionErr != nil {
		return model.Recommendation{}, f.transitionErr
	}
	return f.transitionRec, nil
}

func (f *fakeDeps) SpawnFromModification(ctx context.Context, originID string) (model.Recommendation, error) {
	return model.Recommendation{ID: "spawned", OriginID: originID, Estado: model.Pendiente}, nil
}

func (f *fakeDeps) ListNotifications(ctx context.Context, recipient string, filter repository.NotificationFilter) ([]model.Notification, error) {
	return f.notifications, nil
}

func (f *fakeDeps) MarkRead(ctx context.Context, id, recipient string) error {
	return f.markReadErr
}

func newServer(deps *fakeDeps) http.Handler {
	return api.NewServer(deps, nil).Router()
}

func doJSON(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestTransitionEndpoint(t *testing.T) {
	committee := map[string]string{
		"X-Podio-Actor": "rev-1",
		"X-Podio-Role":  "COMITE_TECNICO",
	}

	Convey("Given the transition endpoint", t, func() {
		Convey("When a valid transition is requested", func() {
			deps := &fakeDeps{transitionRec: model.Recommendation{ID: "r-1", Estado: model.EnProceso}}
			rr := doJSON(newServer(deps), http.MethodPost, "/recommendations/r-1/transitions",
				`{"op":"beginReview"}`, committee)

			Convey("Then the updated entity is returned", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				var rec model.Recommendation
				So(json.Unmarshal(rr.Body.Bytes(), &rec), ShouldBeNil)
				So(rec.Estado, ShouldEqual, model.EnProceso)
			})

			Convey("Then actor identity comes from the headers", func() {
				So(deps.lastActor.ID, ShouldEqual, "rev-1")
				So(deps.lastActor.Role, ShouldEqual, model.RoleComiteTecnico)
				So(deps.lastRequest.Op, ShouldEqual, model.OpBeginReview)
			})
		})

		Convey("When the transition is invalid for the current state", func() {
			deps := &fakeDeps{transitionErr: &workflow.InvalidTransitionError{
				RecommendationID: "r-1",
				Current:          model.Pendiente,
				Attempted:        model.OpApprove,
				Allowed:          []model.Operation{model.OpBeginReview},
			}}
			rr := doJSON(newServer(deps), http.MethodPost, "/recommendations/r-1/transitions",
				`{"op":"approve"}`, committee)

			Convey("Then the response is a conflict naming state and allowed ops", func() {
				So(rr.Code, ShouldEqual, http.StatusConflict)
				var body struct {
					Code    string   `json:"code"`
					State   string   `json:"state"`
					Allowed []string `json:"allowed_operations"`
				}
				So(json.Unmarshal(rr.Body.Bytes(), &body), ShouldBeNil)
				So(body.Code, ShouldEqual, "invalid_state_transition")
				So(body.State, ShouldEqual, "PENDIENTE")
				So(body.Allowed, ShouldResemble, []string{"beginReview"})
			})
		})

		Convey("When the actor lost a concurrent race", func() {
			deps := &fakeDeps{transitionErr: workflow.ErrConcurrentModification}
			rr := doJSON(newServer(deps), http.MethodPost, "/recommendations/r-1/transitions",
				`{"op":"approve"}`, committee)

			Convey("Then the response is a retryable conflict", func() {
				So(rr.Code, ShouldEqual, http.StatusConflict)
				So(rr.Body.String(), ShouldContainSubstring, "concurrent_modification")
			})
		})

		Convey("When the actor role is refused", func() {
			deps := &fakeDeps{transitionErr: &workflow.UnauthorizedError{
				Role: model.RoleEntrenador, Attempted: model.OpApprove,
			}}
			rr := doJSON(newServer(deps), http.MethodPost, "/recommendations/r-1/transitions",
				`{"op":"approve"}`, map[string]string{"X-Podio-Actor": "coach-1", "X-Podio-Role": "ENTRENADOR"})

			Convey("Then the response is forbidden", func() {
				So(rr.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When a modify lacks its justification", func() {
			deps := &fakeDeps{transitionErr: workflow.ErrJustificationRequired}
			rr := doJSON(newServer(deps), http.MethodPost, "/recommendations/r-1/transitions",
				`{"op":"modify"}`, committee)

			Convey("Then the response is a bad request", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the body is not valid JSON", func() {
			deps := &fakeDeps{}
			rr := doJSON(newServer(deps), http.MethodPost, "/recommendations/r-1/transitions",
				`{"op":`, committee)

			Convey("Then the response is a bad request", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSpawnEndpoint(t *testing.T) {
	Convey("Given the spawn endpoint", t, func() {
		Convey("When a committee member spawns from a modification", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodPost, "/recommendations/r-1/spawn", "",
				map[string]string{"X-Podio-Actor": "rev-1", "X-Podio-Role": "COMITE_TECNICO"})

			Convey("Then a fresh entity linked to the origin comes back", func() {
				So(rr.Code, ShouldEqual, http.StatusCreated)
				var rec model.Recommendation
				So(json.Unmarshal(rr.Body.Bytes(), &rec), ShouldBeNil)
				So(rec.OriginID, ShouldEqual, "r-1")
				So(rec.Estado, ShouldEqual, model.Pendiente)
			})
		})

		Convey("When a coach tries to spawn", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodPost, "/recommendations/r-1/spawn", "",
				map[string]string{"X-Podio-Actor": "coach-1", "X-Podio-Role": "ENTRENADOR"})

			Convey("Then the response is forbidden", func() {
				So(rr.Code, ShouldEqual, http.StatusForbidden)
			})
		})
	})
}

func TestRankingEndpoints(t *testing.T) {
	Convey("Given the ranking endpoints", t, func() {
		Convey("When fetching a known category", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodGet, "/rankings/MENOS_73K", "", nil)

			Convey("Then the ranking result is returned", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				var result ranking.Result
				So(json.Unmarshal(rr.Body.Bytes(), &result), ShouldBeNil)
				So(result.Category, ShouldEqual, model.Menos73K)
			})
		})

		Convey("When fetching an unknown category", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodGet, "/rankings/MENOS_999K", "", nil)

			Convey("Then the response is a bad request", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching an unknown athlete's neighborhood", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodGet, "/rankings/athlete/ghost", "", nil)

			Convey("Then the response is not found", func() {
				So(rr.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestNotificationEndpoints(t *testing.T) {
	Convey("Given the notification endpoints", t, func() {
		Convey("When listing without a recipient", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodGet, "/notifications", "", nil)

			Convey("Then the response is a bad request", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When listing with a recipient", func() {
			deps := &fakeDeps{notifications: []model.Notification{{ID: "n-1", Recipient: "coach-1"}}}
			rr := doJSON(newServer(deps), http.MethodGet, "/notifications?recipient=coach-1&unread=true&limit=10", "", nil)

			Convey("Then the inbox page is returned", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				var list []model.Notification
				So(json.Unmarshal(rr.Body.Bytes(), &list), ShouldBeNil)
				So(list, ShouldHaveLength, 1)
			})
		})

		Convey("When the limit is not a number", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodGet, "/notifications?recipient=coach-1&limit=ten", "", nil)

			Convey("Then the response is a bad request", func() {
				So(rr.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When marking someone else's notification read", func() {
			deps := &fakeDeps{markReadErr: repository.ErrWrongRecipient}
			rr := doJSON(newServer(deps), http.MethodPost, "/notifications/n-1/read",
				`{"recipient":"intruder"}`, nil)

			Convey("Then the response is forbidden", func() {
				So(rr.Code, ShouldEqual, http.StatusForbidden)
			})
		})
	})
}

func TestHealthEndpoint(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		Convey("When probing liveness", func() {
			rr := doJSON(newServer(&fakeDeps{}), http.MethodGet, "/healthz", "", nil)

			Convey("Then the service reports ok", func() {
				So(rr.Code, ShouldEqual, http.StatusOK)
				So(rr.Body.String(), ShouldContainSubstring, "ok")
			})
		})
	})
}
