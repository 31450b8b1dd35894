package readmodel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"casework/internal/eventsource"
	notemodels "casework/internal/restrictednote/models"
	id "casework/pkg/domain"
)

// SealInfo is the projected metadata of a sealed note.
type SealInfo struct {
	NoteID      id.NoteID
	Reason      string
	SealedBy    id.ActorID
	SealedAt    time.Time
	IsTemporary bool
	ExpiresAt   *time.Time
}

// SealedNotes indexes currently sealed restricted notes.
//
// Keys:
//
//	{prefix}:notes:sealed         set of note ids
//	{prefix}:note:{noteID}:seal   hash of seal metadata
type SealedNotes struct {
	projection
}

// NewSealedNotes builds the sealed-note projection. Register it on the
// restricted note repository with eventsource.WithObserver.
func NewSealedNotes(rdb redis.UniversalClient, opts ...Option) *SealedNotes {
	s := &SealedNotes{}
	s.projection = newProjection("sealed_notes", rdb, s.apply, opts)
	return s
}

func (s *SealedNotes) setKey() string {
	return s.key("notes", "sealed")
}

func (s *SealedNotes) sealKey(noteID string) string {
	return s.key("note", noteID, "seal")
}

func (s *SealedNotes) apply(ctx context.Context, _ redis.Cmdable, pipe redis.Pipeliner, env eventsource.Envelope) error {
	if env.AggregateType != notemodels.AggregateType {
		return nil
	}
	e, err := notemodels.Codec.Decode(env)
	if err != nil {
		return err
	}
	noteID := env.AggregateID.String()

	switch ev := e.(type) {
	case notemodels.NoteSealed:
		fields := map[string]any{
			"reason":       ev.Reason,
			"sealed_by":    ev.SealedBy.String(),
			"sealed_at":    ev.OccurredAt().Format(time.RFC3339Nano),
			"is_temporary": strconv.FormatBool(ev.IsTemporary),
		}
		if ev.ExpiresAt != nil {
			fields["expires_at"] = ev.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}
		pipe.Del(ctx, s.sealKey(noteID))
		pipe.HSet(ctx, s.sealKey(noteID), fields)
		pipe.SAdd(ctx, s.setKey(), noteID)
	case notemodels.NoteUnsealed, notemodels.SealExpired:
		pipe.SRem(ctx, s.setKey(), noteID)
		pipe.Del(ctx, s.sealKey(noteID))
	}
	return nil
}

// Sealed lists the ids of every note currently sealed.
func (s *SealedNotes) Sealed(ctx context.Context) ([]id.NoteID, error) {
	members, err := s.rdb.SMembers(ctx, s.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read sealed notes: %w", err)
	}
	out := make([]id.NoteID, 0, len(members))
	for _, m := range members {
		noteID, err := id.ParseNoteID(m)
		if err != nil {
			return nil, fmt.Errorf("sealed note member %q: %w", m, err)
		}
		out = append(out, noteID)
	}
	return out, nil
}

// ErrNotSealed is returned by Seal for notes absent from the index.
var ErrNotSealed = errors.New("note is not sealed")

// Seal returns the projected seal of noteID.
func (s *SealedNotes) Seal(ctx context.Context, noteID id.NoteID) (SealInfo, error) {
	fields, err := s.rdb.HGetAll(ctx, s.sealKey(noteID.String())).Result()
	if err != nil {
		return SealInfo{}, fmt.Errorf("read seal of %s: %w", noteID, err)
	}
	if len(fields) == 0 {
		return SealInfo{}, ErrNotSealed
	}
	info := SealInfo{NoteID: noteID, Reason: fields["reason"]}
	if info.SealedBy, err = id.ParseActorID(fields["sealed_by"]); err != nil {
		return SealInfo{}, fmt.Errorf("seal of %s: %w", noteID, err)
	}
	if info.SealedAt, err = time.Parse(time.RFC3339Nano, fields["sealed_at"]); err != nil {
		return SealInfo{}, fmt.Errorf("seal of %s: sealed_at: %w", noteID, err)
	}
	info.IsTemporary = fields["is_temporary"] == "true"
	if raw, ok := fields["expires_at"]; ok {
		expires, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return SealInfo{}, fmt.Errorf("seal of %s: expires_at: %w", noteID, err)
		}
		info.ExpiresAt = &expires
	}
	return info, nil
}

// ExpiringBefore lists temporary seals whose expiry is at or before t; the
// seal-expiry job feeds these to ExpireSeal.
func (s *SealedNotes) ExpiringBefore(ctx context.Context, t time.Time) ([]SealInfo, error) {
	ids, err := s.Sealed(ctx)
	if err != nil {
		return nil, err
	}
	var out []SealInfo
	for _, noteID := range ids {
		info, err := s.Seal(ctx, noteID)
		if errors.Is(err, ErrNotSealed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if info.IsTemporary && info.ExpiresAt != nil && !info.ExpiresAt.After(t) {
			out = append(out, info)
		}
	}
	return out, nil
}
