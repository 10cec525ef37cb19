package service_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
	"github.com/EgehanKilicarslan/mbs-auth/internal/testutil"
	"github.com/EgehanKilicarslan/mbs-auth/internal/token"
)

func TestTokenValidator_Authorize(t *testing.T) {
	stack := testutil.NewAuthStack(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, stack.DB, "alice", "secret", []string{"ADMIN"})

	pair, err := stack.Issuer.Issue(ctx, &security.Principal{UserID: user.ID}, true)
	require.NoError(t, err)

	principal, err := stack.Validator.Authorize(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, pair.AccessTokenID, principal.TokenID)
	assert.Equal(t, pair.ExpiresAt, principal.ExpiresAt)
	assert.True(t, principal.HasAuthority("ADMIN"))
	assert.True(t, principal.HasAuthority("DELETE_PRIVILEGE"))
}

func TestTokenValidator_Rejections(t *testing.T) {
	stack := testutil.NewAuthStack(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, stack.DB, "alice", "secret", []string{"MEMBER"})
	other := testutil.CreateUser(t, stack.DB, "bob", "secret", []string{"MEMBER"})

	pair, err := stack.Issuer.Issue(ctx, &security.Principal{UserID: user.ID}, true)
	require.NoError(t, err)

	now := stack.Clock.Now()
	forged := func(claims token.Claims) string {
		raw, err := stack.Codec.Encode(claims)
		require.NoError(t, err)
		return raw
	}

	tampered := []byte(pair.AccessToken)
	tampered[len(tampered)/2] ^= 0x01

	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "garbage", raw: "not-a-token", wantErr: security.ErrInvalidToken},
		{name: "one byte tampered", raw: string(tampered), wantErr: security.ErrInvalidToken},
		{name: "refresh token", raw: pair.RefreshToken, wantErr: security.ErrWrongAudience},
		{
			name: "unknown token id",
			raw: forged(token.Claims{
				ID: "00000000-0000-0000-0000-000000000000", Audience: token.AudienceAccess, Subject: "1",
				IssuedAt: now, NotBefore: now, ExpiresAt: now.Add(time.Minute),
			}),
			wantErr: security.ErrRevoked,
		},
		{
			name: "subject does not own the row",
			raw: forged(token.Claims{
				ID: pair.AccessTokenID, Audience: token.AudienceAccess, Subject: "999",
				IssuedAt: now, NotBefore: now, ExpiresAt: now.Add(time.Minute),
			}),
			wantErr: security.ErrInvalidToken,
		},
		{
			name: "subject of another user",
			raw: forged(token.Claims{
				ID: pair.AccessTokenID, Audience: token.AudienceAccess, Subject: strconv.FormatUint(uint64(other.ID), 10),
				IssuedAt: now, NotBefore: now, ExpiresAt: now.Add(time.Minute),
			}),
			wantErr: security.ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, err := stack.Validator.Authorize(ctx, tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, principal)
			assert.True(t, security.IsAuthenticationError(err))
		})
	}
}

func TestTokenValidator_ExpiryBoundary(t *testing.T) {
	stack := testutil.NewAuthStack(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, stack.DB, "alice", "secret", nil)

	pair, err := stack.Issuer.Issue(ctx, &security.Principal{UserID: user.ID}, false)
	require.NoError(t, err)

	stack.Clock.Set(pair.ExpiresAt.Add(-time.Microsecond))
	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	require.NoError(t, err)

	stack.Clock.Set(pair.ExpiresAt)
	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	stack.Clock.Advance(time.Hour)
	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestTokenValidator_PrincipalUnavailable(t *testing.T) {
	stack := testutil.NewAuthStack(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, stack.DB, "alice", "secret", []string{"MEMBER"})

	pair, err := stack.Issuer.Issue(ctx, &security.Principal{UserID: user.ID}, false)
	require.NoError(t, err)

	require.NoError(t, stack.DB.Model(user).Update("status", models.StatusLocked).Error)

	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, security.ErrPrincipalUnavailable)
}

func TestTokenValidator_StoreFailureIsNotAuthError(t *testing.T) {
	stack := testutil.NewAuthStack(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, stack.DB, "alice", "secret", nil)

	pair, err := stack.Issuer.Issue(ctx, &security.Principal{UserID: user.ID}, false)
	require.NoError(t, err)

	sqlDB, err := stack.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	require.Error(t, err)
	assert.False(t, security.IsAuthenticationError(err))
}

func TestTokenValidator_Denylist(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stack := testutil.NewAuthStack(t, testutil.WithRedis(client))

	ctx := context.Background()
	user := testutil.CreateUser(t, stack.DB, "alice", "secret", nil)
	pair, err := stack.Issuer.Issue(ctx, &security.Principal{UserID: user.ID}, false)
	require.NoError(t, err)

	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	require.NoError(t, err)

	// a denylisted id is rejected before the store is consulted
	require.NoError(t, stack.Revoked.MarkRevoked(ctx, pair.AccessTokenID, pair.ExpiresAt))
	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, security.ErrRevoked)

	// an unreachable denylist falls through to the store
	mr.Close()
	_, err = stack.Validator.Authorize(ctx, pair.AccessToken)
	assert.NoError(t, err)
}
