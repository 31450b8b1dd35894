package eventsource_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/eventsource"
	dErrors "casework/pkg/domain-errors"
	"casework/pkg/platform/sentinel"
)

func TestToDomainError(t *testing.T) {
	conflict := &eventsource.ConflictError{StreamID: "case-1", Expected: 3, Actual: 4}
	corrupt := &eventsource.CorruptStreamError{StreamID: "case-1", Sequence: 2, Kind: "case.bogus", Reason: "event not handled"}

	tests := []struct {
		name string
		err  error
		code dErrors.Code
	}{
		{"missing stream", fmt.Errorf("stream case-1: %w", sentinel.ErrNotFound), dErrors.CodeNotFound},
		{"stale version", conflict, dErrors.CodeConcurrencyConflict},
		{"unreplayable stream", corrupt, dErrors.CodeCorruptStream},
		{"invariant passes through", dErrors.New(dErrors.CodeInvariantViolation, "closed"), dErrors.CodeInvariantViolation},
		{"anything else", errors.New("connection reset"), dErrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eventsource.ToDomainError(tt.err, "case")
			require.Error(t, got)
			assert.Equal(t, tt.code, dErrors.CodeOf(got))
		})
	}

	t.Run("conflict stays matchable", func(t *testing.T) {
		got := eventsource.ToDomainError(conflict, "case")
		assert.ErrorIs(t, got, eventsource.ErrConcurrencyConflict)
		assert.ErrorIs(t, got, sentinel.ErrConflict)
	})

	assert.NoError(t, eventsource.ToDomainError(nil, "case"))
}
