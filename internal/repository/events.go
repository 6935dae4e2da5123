package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	var payload sql.NullString
	if event.Payload != nil {
		payload = sql.NullString{String: string(event.Payload), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, conversation_id, turn_id, ts, type, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		event.EventID, event.ConversationID, event.TurnID, event.Ts, event.Type, payload)
	return err
}

// ListEvents retrieves events for a conversation in time order.
func (s *SQLiteStore) ListEvents(ctx context.Context, conversationID string, afterTs int64, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, conversation_id, turn_id, ts, type, payload FROM events WHERE conversation_id = ?`
	args := []interface{}{conversationID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}
	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.ConversationID, &event.TurnID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
