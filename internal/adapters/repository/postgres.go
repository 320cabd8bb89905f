package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// Postgres driver registered for database/sql.
	_ "github.com/lib/pq"

	"github.com/ledesport/podio/internal/domain/model"
)

// PGStore persists recommendations and notifications into Postgres. It
// implements RecommendationStore and NotificationStore; the optimistic
// version check rides on UPDATE ... WHERE version = $n so two concurrent
// dispositions resolve to one winner at the database.
type PGStore struct {
	db *sql.DB
}

// NewPGStore constructs a Postgres-backed store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// OpenPG opens a Postgres connection pool for dsn.
func OpenPG(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// Ping verifies connectivity.
func (p *PGStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

const insertRecommendationQ = `
	INSERT INTO recommendations
		(id, athlete_id, analysis_ref, suggestion, estado, creator, reviewer,
		 comment, alternative, modification, origin_id, version, created_at, transitions)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`

// Create inserts a new recommendation row.
func (p *PGStore) Create(ctx context.Context, rec model.Recommendation) error {
	suggestion, transitions, modification, err := marshalRecommendation(rec)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, insertRecommendationQ,
		rec.ID, rec.AthleteID, rec.AnalysisRef, suggestion, string(rec.Estado),
		rec.Creator, rec.Reviewer, rec.Comment, rec.Alternative, modification,
		rec.OriginID, rec.Version, rec.CreatedAt, transitions,
	)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

const selectRecommendationQ = `
	SELECT id, athlete_id, analysis_ref, suggestion, estado, creator, reviewer,
	       comment, alternative, modification, origin_id, version, created_at, transitions
	FROM recommendations WHERE id = $1
`

// Get loads one recommendation by id.
func (p *PGStore) Get(ctx context.Context, id string) (model.Recommendation, error) {
	row := p.db.QueryRowContext(ctx, selectRecommendationQ, id)
	rec, err := scanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Recommendation{}, ErrNotFound
	}
	return rec, err
}

const updateRecommendationQ = `
	UPDATE recommendations
	SET estado = $1, reviewer = $2, comment = $3, alternative = $4,
	    modification = $5, version = $6, transitions = $7
	WHERE id = $8 AND version = $9
`

// Update applies the new entity state only when the stored version matches
// expectedVersion. A zero row count means the race was lost.
func (p *PGStore) Update(ctx context.Context, rec model.Recommendation, expectedVersion int64) error {
	_, transitions, modification, err := marshalRecommendation(rec)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, updateRecommendationQ,
		string(rec.Estado), rec.Reviewer, rec.Comment, rec.Alternative,
		modification, rec.Version, transitions, rec.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update recommendation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recommendation: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

const hasOpenQ = `
	SELECT EXISTS (
		SELECT 1 FROM recommendations
		WHERE athlete_id = $1
		  AND suggestion->>'trigger' = $2
		  AND COALESCE(suggestion->>'exercise', '') = $3
		  AND estado IN ('PENDIENTE', 'EN_PROCESO')
	)
`

// HasOpen reports whether a non-terminal row exists for the trigger context.
func (p *PGStore) HasOpen(ctx context.Context, athleteID string, trigger model.TriggerKind, exercise string) (bool, error) {
	var exists bool
	if err := p.db.QueryRowContext(ctx, hasOpenQ, athleteID, string(trigger), exercise).Scan(&exists); err != nil {
		return false, fmt.Errorf("query open recommendations: %w", err)
	}
	return exists, nil
}

const listByAthleteQ = `
	SELECT id, athlete_id, analysis_ref, suggestion, estado, creator, reviewer,
	       comment, alternative, modification, origin_id, version, created_at, transitions
	FROM recommendations WHERE athlete_id = $1 ORDER BY created_at, id
`

// ListByAthlete returns the athlete's recommendations ordered by creation.
func (p *PGStore) ListByAthlete(ctx context.Context, athleteID string) ([]model.Recommendation, error) {
	rows, err := p.db.QueryContext(ctx, listByAthleteQ, athleteID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []model.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return out, nil
}

const insertNotificationQ = `
	INSERT INTO notifications (id, recipient, type, priority, read, payload_ref, message, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Append inserts one notification row.
func (p *PGStore) Append(ctx context.Context, n model.Notification) error {
	_, err := p.db.ExecContext(ctx, insertNotificationQ,
		n.ID, n.Recipient, string(n.Type), string(n.Priority), n.Read,
		n.PayloadRef, n.Message, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

const listNotificationsQ = `
	SELECT id, recipient, type, priority, read, payload_ref, message, created_at
	FROM notifications
	WHERE recipient = $1 AND ($2 = false OR read = false)
	ORDER BY created_at DESC, id
	LIMIT $3 OFFSET $4
`

// List returns a recipient's notifications, newest first.
func (p *PGStore) List(ctx context.Context, recipient string, f NotificationFilter) ([]model.Notification, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, listNotificationsQ, recipient, f.UnreadOnly, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var ntype, priority string
		if err := rows.Scan(&n.ID, &n.Recipient, &ntype, &priority, &n.Read, &n.PayloadRef, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = model.NotificationType(ntype)
		n.Priority = model.Priority(priority)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

const markReadQ = `UPDATE notifications SET read = true WHERE id = $1 AND recipient = $2`

// MarkRead flips the read flag for the addressed recipient.
func (p *PGStore) MarkRead(ctx context.Context, id, recipient string) error {
	res, err := p.db.ExecContext(ctx, markReadQ, id, recipient)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count is not tracked for the Postgres store; stats come from metrics.
func (p *PGStore) Count(ctx context.Context) int { return -1 }

type rowScanner interface {
	Scan(dest ...any) error
}

func marshalRecommendation(rec model.Recommendation) (suggestion, transitions []byte, modification any, err error) {
	suggestion, err = json.Marshal(rec.Suggestion)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal suggestion: %w", err)
	}
	transitions, err = json.Marshal(rec.Transitions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal transitions: %w", err)
	}
	if rec.Modification != nil {
		b, merr := json.Marshal(rec.Modification)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("marshal modification: %w", merr)
		}
		modification = b
	}
	return suggestion, transitions, modification, nil
}

func scanRecommendation(row rowScanner) (model.Recommendation, error) {
	var rec model.Recommendation
	var estado string
	var suggestion, transitions []byte
	var modification []byte
	var reviewer, comment, alternative, originID sql.NullString

	err := row.Scan(&rec.ID, &rec.AthleteID, &rec.AnalysisRef, &suggestion, &estado,
		&rec.Creator, &reviewer, &comment, &alternative, &modification,
		&originID, &rec.Version, &rec.CreatedAt, &transitions)
	if err != nil {
		return model.Recommendation{}, err
	}

	rec.Estado = model.Estado(estado)
	rec.Reviewer = reviewer.String
	rec.Comment = comment.String
	rec.Alternative = alternative.String
	rec.OriginID = originID.String
	if err := json.Unmarshal(suggestion, &rec.Suggestion); err != nil {
		return model.Recommendation{}, fmt.Errorf("unmarshal suggestion: %w", err)
	}
	if len(transitions) > 0 {
		if err := json.Unmarshal(transitions, &rec.Transitions); err != nil {
			return model.Recommendation{}, fmt.Errorf("unmarshal transitions: %w", err)
		}
	}
	if len(modification) > 0 {
		var m model.Modification
		if err := json.Unmarshal(modification, &m); err != nil {
			return model.Recommendation{}, fmt.Errorf("unmarshal modification: %w", err)
		}
		rec.Modification = &m
	}
	return rec, nil
}
