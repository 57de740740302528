package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pesan/internal/domain"
)

type ContactRepo struct {
	db *sql.DB
}

func NewContactRepo(db *sql.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

var _ domain.ContactRepository = (*ContactRepo)(nil)

func (r *ContactRepo) Create(ctx context.Context, c *domain.Contact) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (owner_id, name, email, phone_number, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.OwnerID, c.Name, c.Email, c.PhoneNumber, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return domain.ErrConflict
		}
		return fmt.Errorf("create contact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (r *ContactRepo) ListForOwner(ctx context.Context, ownerID int64) ([]*domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, name, email, phone_number, created_at
		FROM contacts
		WHERE owner_id = ?
		ORDER BY name ASC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		c := &domain.Contact{}
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.PhoneNumber, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepo) GetByOwnerAndEmail(ctx context.Context, ownerID int64, email string) (*domain.Contact, error) {
	c := &domain.Contact{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, email, phone_number, created_at
		FROM contacts
		WHERE owner_id = ? AND email = ?
	`, ownerID, email).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.PhoneNumber, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

func (r *ContactRepo) Update(ctx context.Context, c *domain.Contact) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET name=?, phone_number=? WHERE id=? AND owner_id=?
	`, c.Name, c.PhoneNumber, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ContactRepo) Delete(ctx context.Context, ownerID, contactID int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM contacts WHERE id=? AND owner_id=?
	`, contactID, ownerID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
