package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pesan/internal/domain"
	"pesan/internal/store"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

const conversationColumns = `id, is_group, name, image, description, created_by,
	last_message_id, last_message_content, last_message_created_at, last_message_status, last_message_sender_id,
	created_at, updated_at`

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation, members []domain.Membership) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (is_group, name, image, description, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.IsGroup, c.Name, c.Image, c.Description, c.CreatedBy, now, now)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now

	for i := range members {
		members[i].ConversationID = c.ID
		members[i].JoinedAt = now
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_participants (user_id, conversation_id, role, joined_at)
			VALUES (?, ?, ?, ?)
		`, members[i].UserID, c.ID, members[i].Role, now)
		if err != nil {
			return fmt.Errorf("create membership: %w", err)
		}
	}

	return tx.Commit()
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	return scanConversation(row)
}

// FindPrivateBetween finds the existing private conversation for the
// unordered pair. Passing the same id twice looks for a self-conversation.
func (r *ConversationRepo) FindPrivateBetween(ctx context.Context, userA, userB int64) (*domain.Conversation, error) {
	want := 2
	if userA == userB {
		want = 1
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.is_group = FALSE
		  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = c.id AND user_id = ?)
		  AND EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = c.id AND user_id = ?)
		  AND (SELECT COUNT(*) FROM conversation_participants WHERE conversation_id = c.id) = ?
		LIMIT 1
	`, userA, userB, want)
	return scanConversation(row)
}

func (r *ConversationRepo) ListIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cp.conversation_id
		FROM conversation_participants cp
		JOIN conversations c ON c.id = cp.conversation_id
		WHERE cp.user_id = ?
		ORDER BY c.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversation ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	var (
		lmID        sql.NullInt64
		lmContent   sql.NullString
		lmCreatedAt sql.NullTime
		lmStatus    sql.NullString
		lmSenderID  sql.NullInt64
	)
	err := row.Scan(
		&c.ID, &c.IsGroup, &c.Name, &c.Image, &c.Description, &c.CreatedBy,
		&lmID, &lmContent, &lmCreatedAt, &lmStatus, &lmSenderID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	if lmID.Valid {
		content, err := store.DecodeContent(lmContent.String)
		if err != nil {
			return nil, err
		}
		c.LastMessage = &domain.LastMessage{
			MessageID: lmID.Int64,
			Content:   content,
			CreatedAt: lmCreatedAt.Time,
			Status:    domain.MessageStatus(lmStatus.String),
			SenderID:  lmSenderID.Int64,
		}
	}
	return c, nil
}
