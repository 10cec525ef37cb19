package security

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain error", err: errors.New("connection refused"), want: ""},
		{name: "invalid token", err: ErrInvalidToken, want: "invalid token"},
		{name: "wrapped revoked", err: fmt.Errorf("%w: row abc inactive", ErrRevoked), want: "token revoked"},
		{name: "wrong audience", err: fmt.Errorf("decode: %w", ErrWrongAudience), want: "wrong token audience"},
		{name: "principal", err: fmt.Errorf("%w: %w", ErrPrincipalUnavailable, errors.New("locked")), want: "principal unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
			assert.Equal(t, tt.want != "", IsAuthenticationError(tt.err))
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()

	_, ok := PrincipalFromContext(ctx)
	assert.False(t, ok)

	p := &Principal{UserID: 42, Username: "alice", Authorities: []string{"MEMBER", "READ_BASIC"}}
	got, ok := PrincipalFromContext(WithPrincipal(ctx, p))
	assert.True(t, ok)
	assert.Same(t, p, got)

	_, ok = PrincipalFromContext(WithPrincipal(ctx, nil))
	assert.False(t, ok)
}

func TestPrincipal_HasAuthority(t *testing.T) {
	p := &Principal{Authorities: []string{"MEMBER", "READ_BASIC"}}

	assert.True(t, p.HasAuthority("MEMBER"))
	assert.True(t, p.HasAuthority("ADMIN", "READ_BASIC"))
	assert.False(t, p.HasAuthority("ADMIN"))
	assert.False(t, p.HasAuthority())

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.HasAuthority("MEMBER"))
}
