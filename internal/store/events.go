package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agromind/agromind-backend/internal/model"
)

// EventsRepo is the append-only audit sink. Rows are never updated;
// deletion happens only through age-based retention pruning.
type EventsRepo struct {
	pool *pgxpool.Pool
}

func NewEventsRepo(pool *pgxpool.Pool) *EventsRepo {
	return &EventsRepo{pool: pool}
}

func (r *EventsRepo) InsertEvent(ctx context.Context, e model.Event) (model.Event, error) {
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var metadata []byte
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return model.Event{}, err
		}
		metadata = b
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO events (id, user_id, zone_id, type, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.ZoneID, e.Type, e.Description, metadata, e.CreatedAt)
	if err != nil {
		return model.Event{}, err
	}
	return e, nil
}

// EventFilter narrows an event listing. Zero values mean "no filter";
// Limit defaults to 50.
type EventFilter struct {
	ZoneID *int64
	Type   string
	Limit  int
	Offset int
}

// whereClause builds the WHERE fragment and its positional args, starting
// after the user id placeholder.
func (f EventFilter) whereClause() (string, []any) {
	clause := ""
	var args []any
	n := 2
	if f.ZoneID != nil {
		clause += fmt.Sprintf(" AND zone_id = $%d", n)
		args = append(args, *f.ZoneID)
		n++
	}
	if f.Type != "" {
		clause += fmt.Sprintf(" AND type = $%d", n)
		args = append(args, f.Type)
		n++
	}
	return clause, args
}

func (f EventFilter) limit() int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}

func (r *EventsRepo) ListEvents(ctx context.Context, userID int64, f EventFilter) ([]model.Event, error) {
	clause, args := f.whereClause()
	query := `SELECT id, user_id, zone_id, type, description, metadata, created_at
		FROM events WHERE user_id = $1` + clause +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, f.limit(), f.Offset)

	rows, err := r.pool.Query(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			e        model.Event
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ZoneID, &e.Type, &e.Description, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode event metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEventsBefore prunes events older than cutoff. With userID == nil it
// spans all users (retention job); otherwise only that user's rows go.
func (r *EventsRepo) DeleteEventsBefore(ctx context.Context, userID *int64, cutoff time.Time) (int64, error) {
	if userID != nil {
		tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE user_id = $1 AND created_at < $2`, *userID, cutoff)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteEventsForUser removes every event of a user (explicit clear from
// the app, no age cutoff).
func (r *EventsRepo) DeleteEventsForUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
