package model

import "time"

// EventKind names a workflow transition or alert condition that the
// dispatcher fans out to inboxes.
type EventKind string

// Event kinds produced by the workflow engine and the trigger scan.
const (
	EventRecommendationPending  EventKind = "recommendation_pending"
	EventReviewStarted          EventKind = "review_started"
	EventRecommendationApproved EventKind = "recommendation_approved"
	EventRecommendationRejected EventKind = "recommendation_rejected"
	EventRecommendationModified EventKind = "recommendation_modified"
	EventAilmentAlert           EventKind = "ailment_alert"
	EventOverloadAlert          EventKind = "overload_alert"
	EventRankingUpdated         EventKind = "ranking_updated"
)

// Event is the unit flowing from the workflow engine and trigger scan to the
// notification dispatcher. ID is stable per occurrence and forms half of the
// (event, recipient) dedupe key.
type Event struct {
	ID               string         `json:"id"`
	Kind             EventKind      `json:"kind"`
	AthleteID        string         `json:"athlete_id,omitempty"`
	RecommendationID string         `json:"recommendation_id,omitempty"`
	Category         WeightCategory `json:"category,omitempty"`
	Detail           string         `json:"detail,omitempty"`
	At               time.Time      `json:"at"`
}
