package services

import (
	"context"
	"time"

	"cleancity-backend/internal/apperr"
	"cleancity-backend/internal/models"

	"github.com/google/uuid"
)

// ShareStore is the grant persistence the sharing engine depends on.
type ShareStore interface {
	Upsert(ctx context.Context, share *models.SharedOccurrence) (*models.SharedOccurrence, error)
	GetByID(ctx context.Context, id string) (*models.SharedOccurrence, error)
	Exists(ctx context.Context, occurrenceID, userID string) (bool, error)
	ListSharedWith(ctx context.Context, userID string) ([]*models.ShareDetail, error)
	ListSharedBy(ctx context.Context, userID string) ([]*models.ShareDetail, error)
	ListByOccurrence(ctx context.Context, occurrenceID string) ([]*models.SharedOccurrence, error)
	Delete(ctx context.Context, id string) error
}

// ShareService is the sharing engine: it grants, updates, revokes and
// checks cross-user access on occurrences. Permission levels are stored
// and returned but not consulted by CanAccess.
type ShareService struct {
	shares      ShareStore
	occurrences OccurrenceStore
	users       UserStore
}

// NewShareService creates a new share service
func NewShareService(shares ShareStore, occurrences OccurrenceStore, users UserStore) *ShareService {
	return &ShareService{
		shares:      shares,
		occurrences: occurrences,
		users:       users,
	}
}

// Share grants recipientEmail access to an occurrence. Only the owner may
// share; sharing an already-shared pair updates the grant's permission
// instead of duplicating it.
func (s *ShareService) Share(ctx context.Context, actingUserID, occurrenceID, recipientEmail string, permission models.SharePermission) (*models.SharedOccurrence, error) {
	if !models.ValidPermission(permission) {
		return nil, apperr.InvalidInput("Invalid permission")
	}

	occurrence, err := s.occurrences.GetByID(ctx, occurrenceID)
	if err != nil || occurrence.UserID != actingUserID {
		// A missing occurrence and a foreign one look the same to the
		// caller: not yours to share.
		return nil, apperr.Forbidden("You can only share your own occurrences")
	}

	recipient, err := s.users.GetByEmail(ctx, recipientEmail)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}

	if recipient.ID == actingUserID {
		return nil, apperr.InvalidInput("Cannot share with yourself")
	}

	return s.shares.Upsert(ctx, &models.SharedOccurrence{
		ID:           uuid.New().String(),
		OccurrenceID: occurrenceID,
		SharedByID:   actingUserID,
		SharedWithID: recipient.ID,
		Permission:   permission,
		CreatedAt:    time.Now(),
	})
}

// Revoke deletes a grant. Only the original sharer may revoke; the
// recipient cannot self-revoke.
func (s *ShareService) Revoke(ctx context.Context, shareID, actingUserID string) error {
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if share.SharedByID != actingUserID {
		return apperr.Forbidden("Only the sharer can revoke this share")
	}
	return s.shares.Delete(ctx, shareID)
}

// CanAccess reports whether userID may read the occurrence: false when the
// occurrence does not exist, true for the owner, true when any grant
// exists regardless of its permission level.
func (s *ShareService) CanAccess(ctx context.Context, occurrenceID, userID string) (bool, error) {
	occurrence, err := s.occurrences.GetByID(ctx, occurrenceID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return false, nil
		}
		return false, err
	}
	if occurrence.UserID == userID {
		return true, nil
	}
	return s.shares.Exists(ctx, occurrenceID, userID)
}

// SharedWithMe lists grants where the user is the recipient, enriched with
// the occurrence and the sharer's public identity.
func (s *ShareService) SharedWithMe(ctx context.Context, userID string) ([]*models.ShareDetail, error) {
	return s.shares.ListSharedWith(ctx, userID)
}

// SharedByMe lists grants where the user is the sharer, enriched with the
// occurrence and the recipient's public identity.
func (s *ShareService) SharedByMe(ctx context.Context, userID string) ([]*models.ShareDetail, error) {
	return s.shares.ListSharedBy(ctx, userID)
}
