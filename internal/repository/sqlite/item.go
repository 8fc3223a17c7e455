package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/repository"
)

var _ repository.ItemRepository = (*DB)(nil)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CreateItem inserts a listing for item.SellerID. ID and timestamps are set
// in place; Slug defaults to a fresh xid when empty.
func (db *DB) CreateItem(ctx context.Context, item *model.Item) error {
	now := time.Now().UTC()
	item.ID = xid.New().String()
	if item.Slug == "" {
		item.Slug = item.ID
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	tags := item.TagList
	if tags == nil {
		tags = []string{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tag list: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO items (id, slug, title, description, image, tag_list, seller_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Slug,
		item.Title,
		item.Description,
		item.Image,
		string(tagJSON),
		item.SellerID,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if translated := translateUnique(err); translated != err {
			return translated
		}
		return fmt.Errorf("sqlite: creating item: %w", err)
	}
	return nil
}

// ListItems returns one page of items in insertion order, each with its
// seller populated and its favorites count filled in.
//
// The seller is resolved with a JOIN rather than a second query per row;
// the pool has a single connection and rows stay open during the scan.
func (db *DB) ListItems(ctx context.Context, opts repository.ListOptions) ([]model.Item, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT i.id, i.slug, i.title, i.description, i.image, i.tag_list, i.seller_id,
		        i.created_at, i.updated_at,
		        (SELECT COUNT(*) FROM favorites f WHERE f.item_id = i.id),
		        u.id, u.username, u.email, u.bio, u.image, u.password_hash, u.is_verified,
		        u.created_at, u.updated_at
		 FROM items i
		 JOIN users u ON u.id = i.seller_id
		 ORDER BY i.rowid
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0, limit)
	for rows.Next() {
		var (
			it      model.Item
			seller  model.User
			tagJSON string
		)
		if err := rows.Scan(
			&it.ID, &it.Slug, &it.Title, &it.Description, &it.Image, &tagJSON, &it.SellerID,
			&it.CreatedAt, &it.UpdatedAt,
			&it.FavoritesCount,
			&seller.ID, &seller.Username, &seller.Email, &seller.Bio, &seller.Image,
			&seller.PasswordHash, &seller.IsVerified, &seller.CreatedAt, &seller.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		if err := json.Unmarshal([]byte(tagJSON), &it.TagList); err != nil {
			return nil, fmt.Errorf("sqlite: decoding tag list of item %s: %w", it.ID, err)
		}
		it.Seller = &seller
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}

	return items, nil
}

// CountItems returns the total number of items, independent of pagination.
func (db *DB) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting items: %w", err)
	}
	return n, nil
}
