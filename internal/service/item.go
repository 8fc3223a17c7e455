package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// Pagination bounds for item listing.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ItemService lists marketplace items for an optional viewer.
type ItemService struct {
	users     repository.UserRepository
	relations repository.RelationRepository
	items     repository.ItemRepository
	logger    *slog.Logger
}

func NewItemService(
	users repository.UserRepository,
	relations repository.RelationRepository,
	items repository.ItemRepository,
	logger *slog.Logger,
) *ItemService {
	return &ItemService{
		users:     users,
		relations: relations,
		items:     items,
		logger:    logger,
	}
}

// ItemPage is one page of rendered items plus the unfiltered total.
type ItemPage struct {
	Items      []model.ItemView `json:"items"`
	ItemsCount int              `json:"itemsCount"`
}

// List returns one page of items rendered for viewerID ("" = anonymous).
//
// The viewer, the page and the total count are fetched concurrently. The
// first failure cancels the others and is returned; no partial page is
// produced. A viewerID that no longer exists is treated as anonymous.
func (s *ItemService) List(ctx context.Context, viewerID string, limit, offset int) (*ItemPage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var (
		viewer *model.Viewer
		items  []model.Item
		count  int
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		v, err := s.loadViewer(gctx, viewerID)
		if err != nil {
			return err
		}
		viewer = v
		return nil
	})

	g.Go(func() error {
		page, err := s.items.ListItems(gctx, repository.ListOptions{Limit: limit, Offset: offset})
		if err != nil {
			return fmt.Errorf("service/item: listing page: %w", err)
		}
		items = page
		return nil
	})

	g.Go(func() error {
		n, err := s.items.CountItems(gctx)
		if err != nil {
			return fmt.Errorf("service/item: counting items: %w", err)
		}
		count = n
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to list items", slog.String("error", err.Error()))
		return nil, err
	}

	views := make([]model.ItemView, len(items))
	for i := range items {
		views[i] = items[i].ViewFor(viewer)
	}
	return &ItemPage{Items: views, ItemsCount: count}, nil
}

// loadViewer resolves viewerID with its favorites and follows. It returns a
// nil Viewer for anonymous callers and for ids with no matching user.
func (s *ItemService) loadViewer(ctx context.Context, viewerID string) (*model.Viewer, error) {
	if viewerID == "" {
		return nil, nil
	}

	user, err := s.users.GetUserByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/item: loading viewer %s: %w", viewerID, err)
	}

	favorites, err := s.relations.FavoriteItemIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/item: loading favorites of %s: %w", user.ID, err)
	}
	following, err := s.relations.FollowingIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/item: loading follows of %s: %w", user.ID, err)
	}

	return model.NewViewer(user, favorites, following), nil
}
