package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/EgehanKilicarslan/mbs-auth/internal/database/models"
	"github.com/EgehanKilicarslan/mbs-auth/internal/database/repository"
	"github.com/EgehanKilicarslan/mbs-auth/internal/security"
)

// UserDirectory resolves the owner of a token.
type UserDirectory interface {
	FindActiveUserByID(ctx context.Context, id uint) (*models.User, error)
}

// PrincipalResolver turns a user id taken from a validated token into the
// principal attached to the request.
type PrincipalResolver struct {
	users UserDirectory
}

func NewPrincipalResolver(users UserDirectory) *PrincipalResolver {
	return &PrincipalResolver{users: users}
}

// Resolve fails with security.ErrPrincipalUnavailable when the user no longer
// exists or is not active. Other errors are persistence failures.
func (r *PrincipalResolver) Resolve(ctx context.Context, userID uint) (*security.Principal, error) {
	user, err := r.users.FindActiveUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrUserInactive) {
			return nil, fmt.Errorf("%w: %w", security.ErrPrincipalUnavailable, err)
		}
		return nil, fmt.Errorf("failed to resolve user %d: %w", userID, err)
	}
	return newPrincipal(user), nil
}

func newPrincipal(user *models.User) *security.Principal {
	return &security.Principal{
		UserID:      user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Authorities: user.AuthorityNames(),
	}
}
