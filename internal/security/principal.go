package security

import (
	"context"
	"slices"
	"time"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID      uint      `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Authorities []string  `json:"authorities"`
	TokenID     string    `json:"token_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// HasAuthority reports whether the principal was granted any of names.
func (p *Principal) HasAuthority(names ...string) bool {
	if p == nil {
		return false
	}
	for _, name := range names {
		if slices.Contains(p.Authorities, name) {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal attached by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
