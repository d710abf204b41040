package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type TokenType string

const (
	TokenTypeUndefined TokenType = ""
	// TokenTypeViewer may read payments and members.
	TokenTypeViewer TokenType = "viewer"
	// TokenTypeAdmin may also remove members and send emails.
	TokenTypeAdmin TokenType = "admin"
)

const issuer = "telegram-bot-payment"

func ParseTokenType(s string) (TokenType, error) {
	switch t := TokenType(s); t {
	case TokenTypeViewer, TokenTypeAdmin:
		return t, nil
	default:
		return TokenTypeUndefined, errors.Wrap(ErrUnknownTokenType, s)
	}
}

// Allows reports whether a token of type t grants the rights of required.
func (t TokenType) Allows(required TokenType) bool {
	switch required {
	case TokenTypeViewer:
		return t == TokenTypeViewer || t == TokenTypeAdmin
	case TokenTypeAdmin:
		return t == TokenTypeAdmin
	default:
		return false
	}
}

type TokenClaims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens of the admin API.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// GenerateToken signs a token for subject, valid for dur.
func (s *Signer) GenerateToken(tokenType TokenType, subject string, dur time.Duration) (string, error) {
	now := s.now()
	claims := TokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(dur)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Signer) VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			alg, _ := token.Header["alg"].(string)
			return nil, errors.Wrap(ErrInvalidSigningMethod, alg)
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *Signer) IsValidToken(tokenString string) (TokenType, bool) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return TokenTypeUndefined, false
	}
	return claims.Type, true
}
