package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "casework/pkg/domain"
	dErrors "casework/pkg/domain-errors"
)

type JWTSuite struct {
	suite.Suite
	svc   *JWTService
	actor id.ActorID
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTSuite))
}

func (s *JWTSuite) SetupTest() {
	s.svc = NewJWTService("test-key", "casework", "casework-api")
	s.actor = id.ActorID(uuid.New())
}

func (s *JWTSuite) TestRoundTrip() {
	token, err := s.svc.IssueToken(s.actor, " Dana ", []string{"DV_COUNSELOR", " ", "CASE_WORKER"}, time.Hour)
	s.Require().NoError(err)

	actor, err := s.svc.ValidateToken(token)
	s.Require().NoError(err)
	s.Equal(s.actor, actor.ID)
	s.Equal("Dana", actor.Name)
	s.Equal([]string{"DV_COUNSELOR", "CASE_WORKER"}, actor.Roles)
	s.NotEmpty(actor.JTI)
}

func (s *JWTSuite) TestRejections() {
	s.Run("expired", func() {
		token, err := s.svc.IssueToken(s.actor, "Dana", nil, -time.Minute)
		s.Require().NoError(err)
		_, err = s.svc.ValidateToken(token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "expired")
	})

	s.Run("wrong key", func() {
		other := NewJWTService("other-key", "casework", "casework-api")
		token, err := other.IssueToken(s.actor, "Dana", nil, time.Hour)
		s.Require().NoError(err)
		_, err = s.svc.ValidateToken(token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("wrong audience", func() {
		other := NewJWTService("test-key", "casework", "billing")
		token, err := other.IssueToken(s.actor, "Dana", nil, time.Hour)
		s.Require().NoError(err)
		_, err = s.svc.ValidateToken(token)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("subject is not an actor id", func() {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "someone",
				Issuer:    "casework",
				Audience:  []string{"casework-api"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-key"))
		s.Require().NoError(err)
		_, err = s.svc.ValidateToken(signed)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("garbage", func() {
		_, err := s.svc.ValidateToken("not-a-token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
