package mail

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every way a confirmation token can be rejected:
// bad signature, expired, wrong purpose, malformed claims. Handlers show
// one generic message for all of them.
var ErrInvalidToken = errors.New("mail: invalid confirmation token")

const purposeEmailConfirm = "email_confirm"

type confirmationClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// ConfirmationTokens issues and verifies the signed tokens embedded in
// confirm-email links. Tokens are HS256 and self-contained, so clicking a
// link needs no server-side state beyond the user row.
type ConfirmationTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewConfirmationTokens(secret string, ttl time.Duration) *ConfirmationTokens {
	return &ConfirmationTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// IssueConfirmation mints a token binding the user's ID to the email being
// confirmed. Binding the email in means a token issued before an address
// change cannot confirm the new one.
func (t *ConfirmationTokens) IssueConfirmation(userID uuid.UUID, email string) (string, error) {
	now := t.now()
	claims := confirmationClaims{
		Email:   email,
		Purpose: purposeEmailConfirm,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("mail: sign confirmation token: %w", err)
	}
	return signed, nil
}

// ParseConfirmation verifies a token and returns the user ID and email it
// was issued for.
func (t *ConfirmationTokens) ParseConfirmation(raw string) (uuid.UUID, string, error) {
	var claims confirmationClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
			}
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	if claims.Purpose != purposeEmailConfirm {
		return uuid.Nil, "", ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	return userID, claims.Email, nil
}
