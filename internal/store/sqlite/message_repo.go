package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pesan/internal/domain"
	"pesan/internal/store"
)

// MessageRepo mirrors the postgres gateway semantics on sqlite. Timestamps are
// generated in Go and the single-connection pool keeps transactions serial, so
// the conditional status updates behave the same as the postgres ones.
type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `id, conversation_id, sender_id, content, status,
	delivered_at, read_at, is_edited, disappear_for, disappear_for_all, created_at, updated_at`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if m.Status == "" {
		m.Status = domain.StatusSent
	}
	content, err := store.EncodeContent(m.Content)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages
			(conversation_id, sender_id, content, status, delivered_at, read_at, disappear_for, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ConversationID, m.SenderID, content, m.Status, m.DeliveredAt, m.ReadAt,
		store.EncodeIDs(m.DisappearFor), now, now)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.CreatedAt = now
	m.UpdatedAt = now

	res, err = tx.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_id=?, last_message_content=?, last_message_created_at=?,
		    last_message_status=?, last_message_sender_id=?, updated_at=?
		WHERE id=?
	`, m.ID, content, m.CreatedAt, m.Status, m.SenderID, now, m.ConversationID)
	if err != nil {
		return fmt.Errorf("refresh last message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

func (r *MessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

func (r *MessageRepo) ListForViewer(ctx context.Context, conversationID, viewerID int64, limit, offset int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		if m.HiddenFor(viewerID) {
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepo) CountForConversation(ctx context.Context, conversationID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) UnreadCount(ctx context.Context, conversationID, viewerID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = ? AND sender_id <> ? AND status <> 'read'
	`, conversationID, viewerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

func (r *MessageRepo) MarkDelivered(ctx context.Context, messageID int64) (bool, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE messages SET status='delivered', delivered_at=?, updated_at=?
		WHERE id=? AND status='sent'
	`, now, now, messageID)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_status='delivered'
		WHERE last_message_id=? AND last_message_status='sent'
	`, messageID)
	if err != nil {
		return false, fmt.Errorf("sync last message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, messageID int64) (bool, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE messages
		SET status='read', read_at=?, delivered_at=COALESCE(delivered_at, ?), updated_at=?
		WHERE id=? AND status <> 'read'
	`, now, now, now, messageID)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_status='read'
		WHERE last_message_id=? AND last_message_status <> 'read'
	`, messageID)
	if err != nil {
		return false, fmt.Errorf("sync last message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MessageRepo) MarkDeliveredForRecipient(ctx context.Context, recipientID int64) ([]domain.StatusUpdate, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_id
		FROM messages m
		JOIN conversation_participants cp
		  ON cp.conversation_id = m.conversation_id AND cp.user_id = ?
		WHERE m.sender_id <> ? AND m.status = 'sent'
		ORDER BY m.id
	`, recipientID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("find undelivered: %w", err)
	}
	updates, err := scanStatusUpdates(rows)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return nil, tx.Commit()
	}

	ph := make([]string, len(updates))
	args := []any{now, now}
	convs := make(map[int64]struct{})
	for i, u := range updates {
		ph[i] = "?"
		args = append(args, u.MessageID)
		convs[u.ConversationID] = struct{}{}
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE messages SET status='delivered', delivered_at=?, updated_at=?
		WHERE id IN (`+strings.Join(ph, ",")+`) AND status='sent'
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}

	for convID := range convs {
		_, err = tx.ExecContext(ctx, `
			UPDATE conversations SET last_message_status='delivered'
			WHERE id=? AND last_message_status='sent' AND last_message_sender_id <> ?
		`, convID, recipientID)
		if err != nil {
			return nil, fmt.Errorf("sync last message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updates, nil
}

func (r *MessageRepo) MarkConversationsDelivered(ctx context.Context, conversationIDs []int64, recipientID int64) (int64, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for _, convID := range conversationIDs {
		res, err := tx.ExecContext(ctx, `
			UPDATE messages SET status='delivered', delivered_at=?, updated_at=?
			WHERE conversation_id=? AND sender_id <> ? AND status='sent'
		`, now, now, convID, recipientID)
		if err != nil {
			return 0, fmt.Errorf("mark delivered: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n

		_, err = tx.ExecContext(ctx, `
			UPDATE conversations SET last_message_status='delivered'
			WHERE id=? AND last_message_status='sent' AND last_message_sender_id <> ?
		`, convID, recipientID)
		if err != nil {
			return 0, fmt.Errorf("sync last message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *MessageRepo) MarkConversationRead(ctx context.Context, conversationID, readerID int64, includeOwn bool) (int64, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	msgQuery := `
		UPDATE messages
		SET status='read', read_at=?, delivered_at=COALESCE(delivered_at, ?), updated_at=?
		WHERE conversation_id=? AND status <> 'read'`
	convQuery := `
		UPDATE conversations SET last_message_status='read'
		WHERE id=? AND last_message_status IS NOT NULL AND last_message_status <> 'read'`
	msgArgs := []any{now, now, now, conversationID}
	convArgs := []any{conversationID}
	if !includeOwn {
		msgQuery += ` AND sender_id <> ?`
		convQuery += ` AND last_message_sender_id <> ?`
		msgArgs = append(msgArgs, readerID)
		convArgs = append(convArgs, readerID)
	}

	res, err := tx.ExecContext(ctx, msgQuery, msgArgs...)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, convQuery, convArgs...); err != nil {
		return 0, fmt.Errorf("sync last message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *MessageRepo) UpdateContent(ctx context.Context, m *domain.Message) error {
	content, err := store.EncodeContent(m.Content)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE messages SET content=?, is_edited=?, disappear_for_all=?, updated_at=?
		WHERE id=?
	`, content, m.IsEdited, m.DisappearForAll, now, m.ID)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_content=? WHERE last_message_id=?
	`, content, m.ID)
	if err != nil {
		return fmt.Errorf("sync last message: %w", err)
	}

	return tx.Commit()
}

func (r *MessageRepo) AddDisappearFor(ctx context.Context, messageID, userID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT disappear_for FROM messages WHERE id=?`, messageID).Scan(&raw)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get disappear list: %w", err)
	}

	ids, err := store.DecodeIDs(raw)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == userID {
			return tx.Commit() // already hidden
		}
	}
	ids = append(ids, userID)

	_, err = tx.ExecContext(ctx, `
		UPDATE messages SET disappear_for=?, updated_at=? WHERE id=?
	`, store.EncodeIDs(ids), time.Now().UTC(), messageID)
	if err != nil {
		return fmt.Errorf("update disappear list: %w", err)
	}

	return tx.Commit()
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	var content, disappear string
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.SenderID, &content, &m.Status,
		&m.DeliveredAt, &m.ReadAt, &m.IsEdited, &disappear, &m.DisappearForAll,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	if m.Content, err = store.DecodeContent(content); err != nil {
		return nil, err
	}
	if m.DisappearFor, err = store.DecodeIDs(disappear); err != nil {
		return nil, err
	}
	return m, nil
}

func scanStatusUpdates(rows *sql.Rows) ([]domain.StatusUpdate, error) {
	defer rows.Close()
	var updates []domain.StatusUpdate
	for rows.Next() {
		var u domain.StatusUpdate
		if err := rows.Scan(&u.MessageID, &u.ConversationID, &u.SenderID); err != nil {
			return nil, fmt.Errorf("scan status update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}
