package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Sajida-haider/Hackthone-twoTodo-sub003/internal/domain"
)

// GetOrCreateConversation returns the owner's conversation, creating a new one
// when conversationID is empty. A conversation owned by someone else yields
// domain.ErrConversationForbidden; an unknown id yields domain.ErrConversationNotFound.
func (s *SQLiteStore) GetOrCreateConversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error) {
	if conversationID != "" {
		return s.GetConversation(ctx, ownerID, conversationID)
	}

	now := s.now()
	conv := &domain.Conversation{
		ConversationID: "conv_" + uuid.New().String(),
		OwnerID:        ownerID,
		CreatedAt:      fromMillis(toMillis(now)),
		UpdatedAt:      fromMillis(toMillis(now)),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		conv.ConversationID, conv.OwnerID, toMillis(now), toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation loads a conversation and checks that ownerID owns it.
func (s *SQLiteStore) GetConversation(ctx context.Context, ownerID, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, owner_id, created_at, updated_at FROM conversations WHERE conversation_id = ?`,
		conversationID).Scan(&conv.ConversationID, &conv.OwnerID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != ownerID {
		return nil, domain.ErrConversationForbidden
	}
	conv.CreatedAt = fromMillis(createdAt)
	conv.UpdatedAt = fromMillis(updatedAt)
	return &conv, nil
}

// ListConversations returns the owner's conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context, ownerID string, limit int) ([]domain.Conversation, error) {
	query := `SELECT conversation_id, owner_id, created_at, updated_at FROM conversations WHERE owner_id = ? ORDER BY updated_at DESC, conversation_id`
	args := []interface{}{ownerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []domain.Conversation{}
	for rows.Next() {
		var conv domain.Conversation
		var createdAt, updatedAt int64
		if err := rows.Scan(&conv.ConversationID, &conv.OwnerID, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		conv.CreatedAt = fromMillis(createdAt)
		conv.UpdatedAt = fromMillis(updatedAt)
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// LoadHistory returns at most limit most recent messages in chronological
// order, each with its tool call records. A non-positive limit loads everything.
func (s *SQLiteStore) LoadHistory(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY message_id DESC`
	args := []interface{}{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var createdAt int64
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, err
		}
		msg.CreatedAt = fromMillis(createdAt)
		msg.ToolCalls = []domain.ToolCallRecord{}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	if len(messages) == 0 {
		return messages, nil
	}
	if err := s.loadToolCalls(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *SQLiteStore) loadToolCalls(ctx context.Context, messages []domain.Message) error {
	byID := make(map[int64]int, len(messages))
	for i, m := range messages {
		byID[m.MessageID] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, call_id, tool_name, parameters, result, error_message FROM tool_calls
		 WHERE message_id BETWEEN ? AND ? ORDER BY message_id, seq`,
		messages[0].MessageID, messages[len(messages)-1].MessageID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID int64
		var rec domain.ToolCallRecord
		var callID, errMsg sql.NullString
		var params string
		if err := rows.Scan(&messageID, &callID, &rec.Tool, &params, &rec.Result, &errMsg); err != nil {
			return err
		}
		idx, ok := byID[messageID]
		if !ok {
			continue
		}
		if callID.Valid {
			rec.CallID = callID.String
		}
		if errMsg.Valid {
			rec.ErrorMessage = errMsg.String
		}
		rec.Parameters = json.RawMessage(params)
		messages[idx].ToolCalls = append(messages[idx].ToolCalls, rec)
	}
	return rows.Err()
}

// AppendMessage atomically inserts a message with its tool call records and
// advances the conversation's updated_at. The assigned created_at is strictly
// later than every earlier message in the conversation.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if !msg.Role.Valid() {
		return nil, fmt.Errorf("invalid message role %q", msg.Role)
	}
	for _, tc := range msg.ToolCalls {
		if !tc.Result.Valid() {
			return nil, fmt.Errorf("invalid tool call result %q", tc.Result)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM messages WHERE conversation_id = ?`,
		msg.ConversationID).Scan(&last); err != nil {
		return nil, err
	}
	ts := toMillis(s.now())
	if last.Valid && ts <= last.Int64 {
		ts = last.Int64 + 1
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		msg.ConversationID, msg.Role, msg.Content, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	messageID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	records := make([]domain.ToolCallRecord, 0, len(msg.ToolCalls))
	for i, tc := range msg.ToolCalls {
		params := tc.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{}`)
		}
		var callID, errMsg sql.NullString
		if tc.CallID != "" {
			callID = sql.NullString{String: tc.CallID, Valid: true}
		}
		if tc.Result == domain.ToolResultError {
			errMsg = sql.NullString{String: tc.ErrorMessage, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tool_calls (message_id, seq, call_id, tool_name, parameters, result, error_message) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			messageID, i, callID, tc.Tool, string(params), tc.Result, errMsg); err != nil {
			return nil, fmt.Errorf("failed to insert tool call: %w", err)
		}
		records = append(records, domain.ToolCallRecord{
			CallID:       tc.CallID,
			Tool:         tc.Tool,
			Parameters:   params,
			Result:       tc.Result,
			ErrorMessage: errMsg.String,
		})
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = MAX(updated_at, ?) WHERE conversation_id = ?`,
		ts, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrConversationNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &domain.Message{
		MessageID:      messageID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolCalls:      records,
		CreatedAt:      fromMillis(ts),
	}, nil
}
