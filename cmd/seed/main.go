// Command seed populates a running engine with synthetic athletes, physical
// tests and post-training records for local exercise of the ranking and
// trigger pipelines.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ledesport/podio/internal/domain/model"
)

const (
	defaultAthletes = 30
	defaultTests    = 3
	defaultSessions = 6
	defaultTimeout  = 10 * time.Second
)

var metricNames = []string{"sprint_30m", "vertical_jump", "grip_strength", "vo2max"}

var exercises = []string{"uchi_komi", "nage_komi", "randori", "strength_circuit"}

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		athletes = flag.Int("athletes", defaultAthletes, "Number of athletes to create")
		tests    = flag.Int("tests", defaultTests, "Physical tests per athlete")
		sessions = flag.Int("sessions", defaultSessions, "Training sessions per athlete")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := &http.Client{Timeout: defaultTimeout}
	categories := model.WeightCategories()

	for i := 0; i < *athletes; i++ {
		a := model.Athlete{
			ID:           uuid.NewString(),
			Name:         fmt.Sprintf("athlete-%03d", i),
			Category:     categories[rng.Intn(len(categories))],
			BirthDate:    time.Date(1995+rng.Intn(12), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC),
			Club:         fmt.Sprintf("club-%d", rng.Intn(8)),
			Municipality: fmt.Sprintf("municipio-%d", rng.Intn(5)),
			CoachID:      fmt.Sprintf("coach-%d", rng.Intn(6)),
			Active:       true,
		}
		if err := post(ctx, client, *baseURL+"/athletes", a); err != nil {
			fail("create athlete", err)
		}

		for j := 0; j < *tests; j++ {
			t := model.PhysicalTest{
				ID:        uuid.NewString(),
				AthleteID: a.ID,
				Category:  a.Category,
				Metrics:   randomMetrics(rng),
				TakenAt:   time.Now().UTC().AddDate(0, 0, -(*tests-j)*30),
				CoachID:   a.CoachID,
			}
			if err := post(ctx, client, *baseURL+"/tests", t); err != nil {
				fail("create test", err)
			}
		}

		for j := 0; j < *sessions; j++ {
			r := model.PostTrainingRecord{
				ID:                uuid.NewString(),
				AthleteID:         a.ID,
				SessionID:         uuid.NewString(),
				Exercise:          exercises[rng.Intn(len(exercises))],
				Load:              40 + rng.Float64()*60,
				PerceivedExertion: 4 + rng.Float64()*6,
				Attended:          rng.Float64() > 0.1,
				RecordedAt:        time.Now().UTC().AddDate(0, 0, -(*sessions-j)*3),
			}
			if err := post(ctx, client, *baseURL+"/records", r); err != nil {
				fail("create record", err)
			}
		}
	}

	fmt.Printf("seeded %d athletes with %d tests and %d sessions each\n", *athletes, *tests, *sessions)
}

func randomMetrics(rng *rand.Rand) map[string]float64 {
	out := make(map[string]float64, len(metricNames))
	for _, name := range metricNames {
		out[name] = 10 + rng.Float64()*90
	}
	return out
}

func post(ctx context.Context, client *http.Client, url string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return nil
}

func fail(what string, err error) {
	os.Stderr.WriteString(what + " failed: " + err.Error() + "\n")
	os.Exit(1)
}
