// Package auth issues and validates the bearer tokens used by feedboard.
//
// Two token kinds exist: session tokens minted by the service itself after a
// sign-in, and access tokens minted out of band (see cmd/mktoken) that a
// caller can exchange for a session. Both are HS256 JWTs over a shared secret
// and are told apart by issuer.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds signer and verification parameters.
type Config struct {
	Secret     string
	Issuer     string
	SessionTTL time.Duration
}

// accessIssuer derives the issuer used for externally supplied access tokens.
func (c Config) accessIssuer() string {
	return c.Issuer + "/access"
}

// Claims represents the payload extracted from a session JWT.
type Claims struct {
	Subject   string
	Admin     bool
	Anonymous bool
	Scopes    map[string]struct{}
	ExpiresAt time.Time
}

// ErrMissingToken is returned when the Authorization header is absent.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// SessionInput captures the identity facts embedded in a session token.
type SessionInput struct {
	UserID    string
	Admin     bool
	Anonymous bool
}

// IssueSession mints a session JWT. Every session may post to the feed;
// only admin sessions may read it.
func IssueSession(cfg Config, input SessionInput) (string, time.Time, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return "", time.Time{}, errors.New("user id is required")
	}

	scopes := []string{ScopeFeedPost}
	if input.Admin {
		scopes = append(scopes, ScopeFeedRead)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(cfg.SessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    input.UserID,
		"iss":    cfg.Issuer,
		"admin":  input.Admin,
		"anon":   input.Anonymous,
		"scopes": scopes,
		"iat":    now.Unix(),
		"exp":    expiresAt.Unix(),
	})

	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a session JWT and returns normalized claims.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}

	admin, _ := claims["admin"].(bool)
	anonymous, _ := claims["anon"].(bool)
	scopes := normalizeScopes(claims["scopes"])
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}

	return &Claims{
		Subject:   subject,
		Admin:     admin,
		Anonymous: anonymous,
		Scopes:    scopes,
		ExpiresAt: exp.Time,
	}, nil
}

// IssueAccessToken mints an access token carrying only a subject. It is the
// credential a user presents at sign-in instead of going anonymous.
func IssueAccessToken(cfg Config, userID string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iss": cfg.accessIssuer(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})

	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates a supplied access token and returns its subject.
func ParseAccessToken(token string, cfg Config) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.accessIssuer()), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}

func normalizeScopes(value interface{}) map[string]struct{} {
	out := make(map[string]struct{})
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				out[str] = struct{}{}
			}
		}
	case []string:
		for _, str := range v {
			if str != "" {
				out[str] = struct{}{}
			}
		}
	case string:
		for _, str := range strings.Split(v, " ") {
			str = strings.TrimSpace(str)
			if str != "" {
				out[str] = struct{}{}
			}
		}
	}
	return out
}

// HasScope reports whether the claim set includes the provided scope.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Scopes[scope]
	return ok
}
