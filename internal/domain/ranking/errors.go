package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrUnknownCategory = errors.New("unknown weight category")
	ErrUnranked        = errors.New("athlete has no qualifying tests")
)
