package auth

import (
	authmw "casework/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(actor *Actor) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		ActorID: actor.ID,
		Name:    actor.Name,
		Roles:   actor.Roles,
		JTI:     actor.JTI,
	}
}

// JWTServiceAdapter satisfies authmw.JWTValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	actor, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(actor), nil
}
