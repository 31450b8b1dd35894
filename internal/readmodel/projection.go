// Package readmodel holds the Redis projections fed by committed event
// streams. Projections are eventually consistent and never consulted by the
// command side.
package readmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"casework/internal/eventsource"
)

const defaultPrefix = "casework"

// applyFunc queues the writes for one envelope on pipe. Reads needed to
// decide the writes go through rdb before the transaction is executed.
type applyFunc func(ctx context.Context, rdb redis.Cmdable, pipe redis.Pipeliner, env eventsource.Envelope) error

// projection runs an applyFunc under a per-stream checkpoint so redelivered
// envelopes are skipped.
type projection struct {
	name   string
	prefix string
	rdb    redis.UniversalClient
	logger *slog.Logger
	apply  applyFunc
}

type config struct {
	prefix string
	logger *slog.Logger
}

// Option configures a projection.
type Option func(*config)

// WithKeyPrefix namespaces every key the projection writes.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newProjection(name string, rdb redis.UniversalClient, apply applyFunc, opts []Option) projection {
	cfg := config{prefix: defaultPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return projection{
		name:   name,
		prefix: cfg.prefix,
		rdb:    rdb,
		logger: cfg.logger,
		apply:  apply,
	}
}

func (p projection) key(parts ...string) string {
	k := p.prefix
	for _, part := range parts {
		k += ":" + part
	}
	return k
}

func (p projection) checkpointKey() string {
	return p.key("checkpoint", p.name)
}

// Checkpoint returns the last sequence projected for streamID, 0 if none.
func (p projection) Checkpoint(ctx context.Context, streamID string) (int64, error) {
	raw, err := p.rdb.HGet(ctx, p.checkpointKey(), streamID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s checkpoint for %s: %w", p.name, streamID, err)
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s checkpoint for %s: %w", p.name, streamID, err)
	}
	return seq, nil
}

// Observe projects envelopes in order. Each envelope and its checkpoint
// advance are written in one MULTI/EXEC.
func (p projection) Observe(ctx context.Context, envelopes []eventsource.Envelope) error {
	checkpoints := make(map[string]int64)
	for _, env := range envelopes {
		last, seen := checkpoints[env.StreamID]
		if !seen {
			var err error
			if last, err = p.Checkpoint(ctx, env.StreamID); err != nil {
				return err
			}
		}
		if env.Sequence <= last {
			p.logger.DebugContext(ctx, "skipping projected envelope",
				"projection", p.name,
				"stream_id", env.StreamID,
				"sequence", env.Sequence,
			)
			checkpoints[env.StreamID] = last
			continue
		}
		_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := p.apply(ctx, p.rdb, pipe, env); err != nil {
				return err
			}
			pipe.HSet(ctx, p.checkpointKey(), env.StreamID, env.Sequence)
			return nil
		})
		if err != nil {
			return fmt.Errorf("project %s seq %d into %s: %w", env.StreamID, env.Sequence, p.name, err)
		}
		checkpoints[env.StreamID] = env.Sequence
	}
	return nil
}

// CatchUp projects whatever store holds for streamID beyond the checkpoint.
func (p projection) CatchUp(ctx context.Context, store eventsource.Store, streamID string) error {
	last, err := p.Checkpoint(ctx, streamID)
	if err != nil {
		return err
	}
	envelopes, err := store.LoadSince(ctx, streamID, last)
	if err != nil {
		return fmt.Errorf("load %s since %d: %w", streamID, last, err)
	}
	return p.Observe(ctx, envelopes)
}
