package adapters

import (
	"context"
	"errors"

	"casework/internal/admin/types"
	"casework/internal/readmodel"
	id "casework/pkg/domain"
)

// SealProjection is the interface the sealed-notes read model implements.
type SealProjection interface {
	Sealed(ctx context.Context) ([]id.NoteID, error)
	Seal(ctx context.Context, noteID id.NoteID) (readmodel.SealInfo, error)
}

// SealedNotesAdapter adapts the sealed-notes projection to admin's
// SealRegistry interface.
type SealedNotesAdapter struct {
	projection SealProjection
}

// NewSealedNotesAdapter creates a new adapter wrapping the projection.
func NewSealedNotesAdapter(projection SealProjection) *SealedNotesAdapter {
	return &SealedNotesAdapter{projection: projection}
}

// ListSealed returns every sealed note. A note unsealed between the two
// reads is skipped.
func (a *SealedNotesAdapter) ListSealed(ctx context.Context) ([]*types.SealedNote, error) {
	ids, err := a.projection.Sealed(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]*types.SealedNote, 0, len(ids))
	for _, noteID := range ids {
		info, err := a.projection.Seal(ctx, noteID)
		if errors.Is(err, readmodel.ErrNotSealed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, &types.SealedNote{
			NoteID:      info.NoteID,
			Reason:      info.Reason,
			SealedBy:    info.SealedBy,
			SealedAt:    info.SealedAt,
			IsTemporary: info.IsTemporary,
			ExpiresAt:   info.ExpiresAt,
		})
	}
	return result, nil
}
