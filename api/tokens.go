package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garnizeh/clipmarket/internal/identity"
	"github.com/garnizeh/clipmarket/internal/models"
)

var errInvalidToken = errors.New("invalid or expired token")

// TokenIssuer signs and parses HS256 session tokens. A token issued with
// mfaPending set lives for the shorter MFA duration.
type TokenIssuer struct {
	secret      []byte
	duration    time.Duration
	mfaDuration time.Duration
	now         func() time.Time
}

func NewTokenIssuer(secret string, duration, mfaDuration time.Duration) *TokenIssuer {
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	if mfaDuration <= 0 {
		mfaDuration = 5 * time.Minute
	}
	return &TokenIssuer{secret: []byte(secret), duration: duration, mfaDuration: mfaDuration, now: time.Now}
}

func (t *TokenIssuer) Issue(u *models.User, mfaPending bool) (string, error) {
	ttl := t.duration
	if mfaPending {
		ttl = t.mfaDuration
	}

	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":      u.ID,
		"email":        u.Email,
		"account_type": string(u.AccountType),
		"mfa_pending":  mfaPending,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	})

	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Parse verifies s and returns the actor it was issued for.
func (t *TokenIssuer) Parse(s string) (identity.Actor, error) {
	token, err := jwt.Parse(s, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return identity.Actor{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Actor{}, errInvalidToken
	}

	// numbers decode as float64
	id, _ := claims["user_id"].(float64)
	if id <= 0 {
		return identity.Actor{}, errInvalidToken
	}
	email, _ := claims["email"].(string)
	accountType, _ := claims["account_type"].(string)
	pending, _ := claims["mfa_pending"].(bool)

	return identity.Actor{
		UserID:      int64(id),
		Email:       email,
		AccountType: models.AccountType(accountType),
		MFAPending:  pending,
	}, nil
}
