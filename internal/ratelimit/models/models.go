package models

import (
	"time"

	dErrors "casework/pkg/domain-errors"
)

// EndpointClass groups endpoints that share a limit.
type EndpointClass string

const (
	// ClassRestrictedRead covers restricted-note reads, each of which is an
	// audited access.
	ClassRestrictedRead EndpointClass = "restricted_read"
	// ClassRead covers other reads.
	ClassRead EndpointClass = "read"
	// ClassWrite covers every mutation.
	ClassWrite EndpointClass = "write"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassRestrictedRead, ClassRead, ClassWrite:
		return true
	}
	return false
}

// Limit is the number of requests allowed per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Limits maps each class to its limit. A class without an entry is not
// limited.
type Limits map[EndpointClass]Limit

// Validate rejects non-positive limits.
func (l Limits) Validate() error {
	for class, limit := range l {
		if !class.IsValid() {
			return dErrors.New(dErrors.CodeInvalidInput, "unknown endpoint class: "+string(class))
		}
		if limit.Requests <= 0 || limit.Window <= 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "limit for "+string(class)+" must be positive")
		}
	}
	return nil
}

// RateLimitResult is the outcome of one check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the 429 body.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
