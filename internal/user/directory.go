package user

import (
	"context"
	"strings"

	"wristwatch-be/internal/apperror"
)

// Directory resolves the contact email used for payment receipts.
type Directory interface {
	ContactEmail(ctx context.Context, userID uint) (string, error)
}

type directory struct {
	repo Repository
}

func NewDirectory(repo Repository) Directory {
	return &directory{repo: repo}
}

// ContactEmail returns "" without error when the user has no usable email,
// leaving the caller to report it as a missing field.
func (d *directory) ContactEmail(ctx context.Context, userID uint) (string, error) {
	if userID == 0 {
		return "", nil
	}
	u, err := d.repo.FindByID(ctx, userID)
	if err != nil {
		return "", apperror.Internal("user.contactEmail", err)
	}
	if u == nil {
		return "", nil
	}
	return strings.TrimSpace(u.Email), nil
}
