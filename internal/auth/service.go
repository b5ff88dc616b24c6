package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidKey is returned when the presented admin API key does not match.
var ErrInvalidKey = errors.New("invalid admin api key")

// Service exchanges the configured admin API key for short-lived JWTs. Only
// the bcrypt hash of the key is ever held in memory or config.
type Service struct {
	jwt          *JWTManager
	adminKeyHash []byte
}

func NewService(jwt *JWTManager, adminKeyHash string) *Service {
	return &Service{
		jwt:          jwt,
		adminKeyHash: []byte(adminKeyHash),
	}
}

// ExchangeKey verifies the presented key against the configured hash and
// issues an admin token.
func (s *Service) ExchangeKey(key string) (*Token, error) {
	if err := bcrypt.CompareHashAndPassword(s.adminKeyHash, []byte(key)); err != nil {
		return nil, ErrInvalidKey
	}
	return s.jwt.Generate()
}

// ValidateToken verifies an admin access token.
func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	return s.jwt.Validate(tokenStr)
}
