package auth

import (
	"context"
	"errors"
	"fmt"
)

// ErrScopeMissing is returned by RequireScope when a session is present but
// was not granted the needed scope.
var ErrScopeMissing = errors.New("scope not granted")

type claimsKey struct{}

// WithClaims stores claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext retrieves claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// RequireScope returns the request claims when they carry scope. An absent
// session reports ErrMissingToken; a session lacking the scope reports
// ErrScopeMissing, so callers can tell 401 from 403.
func RequireScope(ctx context.Context, scope string) (*Claims, error) {
	claims, ok := FromContext(ctx)
	if !ok {
		return nil, ErrMissingToken
	}
	if !claims.HasScope(scope) {
		return nil, fmt.Errorf("%w: %s", ErrScopeMissing, scope)
	}
	return claims, nil
}
