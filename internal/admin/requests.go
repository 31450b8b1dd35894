package admin

import (
	"strings"
	"time"

	dErrors "casework/pkg/domain-errors"
)

const maxRevocationTTL = 7 * 24 * time.Hour

// RevokeTokenRequest is the body of POST /admin/revocations. TTLSeconds
// should cover the remaining lifetime of the token.
type RevokeTokenRequest struct {
	JTI        string `json:"jti"`
	TTLSeconds int64  `json:"ttl_seconds"`

	ttl time.Duration
}

func (r *RevokeTokenRequest) Validate() error {
	r.JTI = strings.TrimSpace(r.JTI)
	if r.JTI == "" {
		return dErrors.New(dErrors.CodeValidation, "jti is required")
	}
	r.ttl = time.Duration(r.TTLSeconds) * time.Second
	if r.ttl <= 0 || r.ttl > maxRevocationTTL {
		return dErrors.New(dErrors.CodeValidation, "ttl_seconds must be between 1 and 604800")
	}
	return nil
}
