package handlers

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sabaq-center/sabaq-service/internal/services"
)

const defaultQRTokenTTL = 5 * time.Minute

// QRTokenIssuer signs and verifies the short-lived session tokens embedded in
// attendance QR codes. The token only proves which session the QR was issued
// for; the marking user comes from the authenticated request.
type QRTokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewQRTokenIssuer(secret string, ttl time.Duration) *QRTokenIssuer {
	if ttl <= 0 {
		ttl = defaultQRTokenTTL
	}
	return &QRTokenIssuer{secret: []byte(secret), ttl: ttl}
}

type qrClaims struct {
	SessionID uint `json:"sid"`
	jwt.RegisteredClaims
}

// IssueSessionToken mints a signed token for the session's QR code.
func (q *QRTokenIssuer) IssueSessionToken(sessionID uint) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(q.ttl)

	claims := qrClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(q.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign QR token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseSessionToken verifies the token and returns the session it was issued
// for. Expired, malformed, or foreign-signed tokens all map to
// ErrInvalidQRToken; the caller never learns which.
func (q *QRTokenIssuer) ParseSessionToken(tokenString string) (uint, error) {
	var claims qrClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return q.secret, nil
	})
	if err != nil || !token.Valid || claims.SessionID == 0 {
		return 0, services.ErrInvalidQRToken
	}
	return claims.SessionID, nil
}
