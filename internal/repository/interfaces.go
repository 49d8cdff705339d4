package repository

import (
	"context"

	"guardian-inventory/internal/inventory"
	"guardian-inventory/internal/model"
)

// AnnotationRepository stores one annotation record per account.
type AnnotationRepository interface {
	// GetAnnotations returns the account's record, or an empty record when
	// none was stored yet.
	GetAnnotations(ctx context.Context, membershipID string) (model.AnnotationRecord, error)

	// PutAnnotations replaces the account's record.
	PutAnnotations(ctx context.Context, membershipID string, record model.AnnotationRecord) error

	// Close closes the repository connection.
	Close() error
}

// AccountAnnotations binds a repository to one account so it can serve as
// the engine's annotation source.
type AccountAnnotations struct {
	repo         AnnotationRepository
	membershipID string
}

// ForAccount returns the annotation source of one account.
func ForAccount(repo AnnotationRepository, membershipID string) *AccountAnnotations {
	return &AccountAnnotations{repo: repo, membershipID: membershipID}
}

// FetchAnnotations reads the account's record.
func (a *AccountAnnotations) FetchAnnotations(ctx context.Context) (model.AnnotationRecord, error) {
	return a.repo.GetAnnotations(ctx, a.membershipID)
}

// StoreAnnotations replaces the account's record.
func (a *AccountAnnotations) StoreAnnotations(ctx context.Context, record model.AnnotationRecord) error {
	return a.repo.PutAnnotations(ctx, a.membershipID, record)
}

var _ inventory.AnnotationSource = (*AccountAnnotations)(nil)
