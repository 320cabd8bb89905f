package scoring

import (
	"errors"
	"fmt"

	"github.com/ledesport/podio/internal/domain/model"
)

// ErrNoQualifyingTests marks an athlete with no usable test history. The
// athlete is excluded from ranking rather than given a misleading zero.
var ErrNoQualifyingTests = errors.New("no qualifying tests")

// ConfigurationError reports bad or missing reference data. It is fatal and
// surfaced to the operator, never retried.
type ConfigurationError struct {
	Category model.WeightCategory
	Metric   string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Metric == "" {
		return fmt.Sprintf("scoring config for %s: %s", e.Category, e.Reason)
	}
	return fmt.Sprintf("scoring config for %s/%s: %s", e.Category, e.Metric, e.Reason)
}
