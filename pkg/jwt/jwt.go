package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	models "github.com/Mr-Leon909/tsutsuji-app/model"
)

const issuer = "tsutsuji"

// Claims is the persisted session identity.
type Claims struct {
	UserID    string  `json:"user_id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	CreatedAt int64   `json:"user_created_at,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens.
type Manager struct {
	secretKey string
	expiry    time.Duration
}

// NewManager creates a new JWT manager instance. A zero expiry issues tokens
// that never expire.
func NewManager(secretKey string, expiry time.Duration) *Manager {
	return &Manager{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// Encode signs the user's identity into a token.
func (m *Manager) Encode(user models.User) ([]byte, error) {
	now := time.Now()

	claims := Claims{
		UserID:    user.ID.String(),
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  user.ID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if !user.CreatedAt.IsZero() {
		claims.CreatedAt = user.CreatedAt.Unix()
	}
	if m.expiry != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return []byte(signedToken), nil
}

// Decode parses and validates a token and returns the user it carries.
func (m *Manager) Decode(data []byte) (*models.User, error) {
	token, err := jwt.ParseWithClaims(string(data), &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(m.secretKey), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in token: %w", err)
	}
	if claims.Username == "" {
		return nil, errors.New("token has no username")
	}

	user := &models.User{
		ID:        userID,
		Username:  claims.Username,
		AvatarURL: claims.AvatarURL,
	}
	if claims.CreatedAt != 0 {
		user.CreatedAt = time.Unix(claims.CreatedAt, 0).UTC()
	}
	return user, nil
}
