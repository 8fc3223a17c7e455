package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

// fakeStore is an in-memory implementation of the user, relation and item
// repositories. Setting one of the *Err fields simulates a database failure.
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	items     []model.Item
	favorites map[string][]string
	following map[string][]string
	nextID    int

	createErr    error
	getErr       error
	updateErr    error
	listErr      error
	countErr     error
	favoritesErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]*model.User),
		favorites: make(map[string][]string),
		following: make(map[string][]string),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Taken("username")
		}
		if u.Email == user.Email {
			return apperror.Taken("email")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) UpdateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.users[user.ID]; !ok {
		return apperror.NotFound("user", user.ID)
	}
	for id, u := range f.users {
		if id == user.ID {
			continue
		}
		if u.Username == user.Username {
			return apperror.Taken("username")
		}
		if u.Email == user.Email {
			return apperror.Taken("email")
		}
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeStore) FavoriteItemIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favoritesErr != nil {
		return nil, f.favoritesErr
	}
	return f.favorites[userID], nil
}

func (f *fakeStore) FollowingIDs(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.following[userID], nil
}

func (f *fakeStore) AddFavorite(_ context.Context, userID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites[userID] = append(f.favorites[userID], itemID)
	return nil
}

func (f *fakeStore) Follow(_ context.Context, followerID, followeeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.following[followerID] = append(f.following[followerID], followeeID)
	return nil
}

func (f *fakeStore) CreateItem(_ context.Context, item *model.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	item.ID = fmt.Sprintf("item-%d", f.nextID)
	item.Slug = item.ID
	if seller, ok := f.users[item.SellerID]; ok {
		s := *seller
		item.Seller = &s
	}
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeStore) ListItems(ctx context.Context, opts repository.ListOptions) ([]model.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Offset >= len(f.items) {
		return []model.Item{}, nil
	}
	page := f.items[opts.Offset:]
	if opts.Limit < len(page) {
		page = page[:opts.Limit]
	}
	return append([]model.Item(nil), page...), nil
}

func (f *fakeStore) CountItems(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.items), nil
}

// fakeEmitter records emitted events synchronously.
type fakeEmitter struct {
	mu     sync.Mutex
	names  []string
	values []any
}

func (e *fakeEmitter) Emit(_ context.Context, name string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, name)
	e.values = append(e.values, payload)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testSecret = "service-test-secret-0123456789"

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return ts
}

// newTestUserService wires a UserService with fakes and the cheapest bcrypt cost.
func newTestUserService(t *testing.T) (*UserService, *fakeStore, *fakeEmitter) {
	t.Helper()
	store := newFakeStore()
	emitter := &fakeEmitter{}
	svc := NewUserService(store, newTestTokens(t), auth.NewPasswordServiceWithCost(4), emitter, discardLogger())
	return svc, store, emitter
}
