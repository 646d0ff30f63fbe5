package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"voiceagent-platform/internal/calls"

	"github.com/google/uuid"
)

// PostgresRepo persists call summaries. It implements calls.ConversationRecorder.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) RecordCallStart(ctx context.Context, callID, agentID string, direction calls.Direction, from, to string) error {
	if r.db == nil {
		return errors.New("conversations: db not configured")
	}

	const q = `
		INSERT INTO conversations (id, call_id, agent_id, direction, status, from_number, to_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (call_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, q,
		uuid.NewString(), callID, nullable(agentID), string(direction), string(calls.CallStatusInitiated), from, to)
	if err != nil {
		return fmt.Errorf("conversations: record call start %s: %w", callID, err)
	}
	return nil
}

func (r *PostgresRepo) RecordStatusUpdate(ctx context.Context, callID string, status calls.CallStatus, meta calls.StatusMetadata) error {
	if r.db == nil {
		return errors.New("conversations: db not configured")
	}

	// COALESCE keeps the first observed answered/ended timestamps and
	// duration; duplicate terminal webhooks must not overwrite them.
	const q = `
		UPDATE conversations
		SET status = $2,
		    answered_at = COALESCE(answered_at, $3),
		    ended_at = COALESCE(ended_at, $4),
		    duration_seconds = COALESCE(duration_seconds, $5),
		    updated_at = NOW()
		WHERE call_id = $1`

	var duration *int
	if meta.DurationSeconds != nil {
		duration = meta.DurationSeconds
	}
	_, err := r.db.ExecContext(ctx, q, callID, string(status), meta.AnsweredAt, meta.EndedAt, duration)
	if err != nil {
		return fmt.Errorf("conversations: record status update %s: %w", callID, err)
	}
	return nil
}

// ListAgentConversations returns an agent's persisted call history, newest
// first.
func (r *PostgresRepo) ListAgentConversations(ctx context.Context, agentID string, f ListFilter) ([]Conversation, error) {
	if r.db == nil {
		return nil, errors.New("conversations: db not configured")
	}
	if agentID == "" {
		return nil, errors.New("conversations: agent_id required")
	}

	q := `
		SELECT id, call_id, COALESCE(agent_id, ''), direction, status,
		       from_number, to_number, COALESCE(duration_seconds, 0),
		       answered_at, ended_at, created_at, updated_at
		FROM conversations
		WHERE agent_id = $1`
	args := []any{agentID}
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, f.Status)
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("conversations: list for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	out := make([]Conversation, 0)
	for rows.Next() {
		var (
			c          Conversation
			direction  string
			answeredAt sql.NullTime
			endedAt    sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.CallID, &c.AgentID, &direction, &c.Status,
			&c.FromNumber, &c.ToNumber, &c.DurationSeconds,
			&answeredAt, &endedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("conversations: scan: %w", err)
		}
		c.Direction = calls.Direction(direction)
		if answeredAt.Valid {
			t := answeredAt.Time
			c.AnsweredAt = &t
		}
		if endedAt.Valid {
			t := endedAt.Time
			c.EndedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
