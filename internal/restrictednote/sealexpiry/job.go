// Package sealexpiry lifts temporary seals once they pass their expiry.
package sealexpiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"casework/internal/readmodel"
	"casework/internal/restrictednote/models"
	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/requestcontext"
)

// SealIndex lists temporary seals due at a point in time.
type SealIndex interface {
	ExpiringBefore(ctx context.Context, t time.Time) ([]readmodel.SealInfo, error)
}

// Expirer lifts one expired seal.
type Expirer interface {
	ExpireSeal(ctx context.Context, noteID id.NoteID) (*models.RestrictedNote, error)
}

// Job runs ExpireSeal for every due seal as a system actor.
type Job struct {
	index  SealIndex
	notes  Expirer
	actor  id.ActorID
	logger *slog.Logger
}

func New(index SealIndex, notes Expirer, actor id.ActorID, logger *slog.Logger) *Job {
	return &Job{index: index, notes: notes, actor: actor, logger: logger}
}

// Start runs ExpireDueAt on every tick until ctx is cancelled.
func (j *Job) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.ExpireDueAt(ctx, time.Now()); err != nil {
				j.logger.ErrorContext(ctx, "seal expiry pass failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ExpireDueAt lifts every seal due at now and returns how many it lifted.
// Seals already lifted by someone else or not yet due by the aggregate's
// clock are skipped; other failures are collected and the pass continues.
// Exported for testability; Start passes wall-clock time.
func (j *Job) ExpireDueAt(ctx context.Context, now time.Time) (int, error) {
	due, err := j.index.ExpiringBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expiring seals: %w", err)
	}

	ctx = requestcontext.WithActor(ctx, j.actor, "seal-expiry", nil)
	ctx = requestcontext.WithTime(ctx, now)

	lifted, failed := 0, 0
	for _, seal := range due {
		_, err := j.notes.ExpireSeal(ctx, seal.NoteID)
		switch {
		case err == nil:
			lifted++
			j.logger.InfoContext(ctx, "temporary seal expired",
				"note_id", seal.NoteID.String(),
				"sealed_by", seal.SealedBy.String(),
			)
		case dErrors.HasCode(err, dErrors.CodeInvariantViolation), dErrors.HasCode(err, dErrors.CodeConcurrencyConflict):
			j.logger.DebugContext(ctx, "seal no longer due", "note_id", seal.NoteID.String(), "error", err)
		default:
			failed++
			j.logger.WarnContext(ctx, "failed to expire seal", "note_id", seal.NoteID.String(), "error", err)
		}
	}
	if failed > 0 {
		return lifted, fmt.Errorf("%d of %d seals failed to expire", failed, len(due))
	}
	return lifted, nil
}
