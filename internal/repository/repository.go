// Package repository declares the storage interfaces the service layer depends on.
// internal/repository/sqlite provides the production implementation.
package repository

import (
	"context"

	"github.com/sakif/marketplace-api/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository reads and writes user accounts.
//
// Lookups return an error wrapping apperror.ErrNotFound when no row matches.
// CreateUser/UpdateUser return apperror.Taken for a duplicate username or email.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

// RelationRepository exposes the per-user relations used to build a Viewer.
type RelationRepository interface {
	FavoriteItemIDs(ctx context.Context, userID string) ([]string, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	AddFavorite(ctx context.Context, userID, itemID string) error
	Follow(ctx context.Context, followerID, followeeID string) error
}

// ItemRepository lists items with their seller populated.
type ItemRepository interface {
	CreateItem(ctx context.Context, item *model.Item) error
	ListItems(ctx context.Context, opts ListOptions) ([]model.Item, error)
	CountItems(ctx context.Context) (int, error)
}
