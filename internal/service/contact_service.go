package service

import (
	"context"
	"errors"
	"fmt"

	"pesan/internal/domain"
)

// ContactService manages a user's contact book. Contact names override the
// partner's own display name in that user's conversation list.
type ContactService struct {
	contacts domain.ContactRepository
}

func NewContactService(contacts domain.ContactRepository) *ContactService {
	return &ContactService{contacts: contacts}
}

type ContactInput struct {
	Name        string
	Email       string
	PhoneNumber *string
}

func (s *ContactService) Create(ctx context.Context, ownerID int64, in ContactInput) (*domain.Contact, error) {
	if _, err := s.contacts.GetByOwnerAndEmail(ctx, ownerID, in.Email); err == nil {
		return nil, fmt.Errorf("contact already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check contact: %w", err)
	}

	contact := &domain.Contact{
		OwnerID:     ownerID,
		Name:        in.Name,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *ContactService) List(ctx context.Context, ownerID int64) ([]*domain.Contact, error) {
	return s.contacts.ListForOwner(ctx, ownerID)
}

func (s *ContactService) Update(ctx context.Context, ownerID, contactID int64, in ContactInput) (*domain.Contact, error) {
	contact := &domain.Contact{
		ID:          contactID,
		OwnerID:     ownerID,
		Name:        in.Name,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
	}
	if err := s.contacts.Update(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *ContactService) Delete(ctx context.Context, ownerID, contactID int64) error {
	return s.contacts.Delete(ctx, ownerID, contactID)
}
