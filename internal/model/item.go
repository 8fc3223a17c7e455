package model

import "time"

// Item is a marketplace listing. Seller is populated by the item store from
// SellerID; it is nil only if the store was asked not to populate it.
type Item struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Image          string    `json:"image"`
	TagList        []string  `json:"tagList"`
	SellerID       string    `json:"sellerId"`
	Seller         *User     `json:"-"`
	FavoritesCount int       `json:"favoritesCount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ItemView is the per-viewer serialization of an Item.
type ItemView struct {
	Slug           string       `json:"slug"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Image          string       `json:"image"`
	TagList        []string     `json:"tagList"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Favorited      bool         `json:"favorited"`
	FavoritesCount int          `json:"favoritesCount"`
	Seller         *ProfileView `json:"seller"`
}

// ViewFor renders the item for viewer (nil = anonymous).
func (it *Item) ViewFor(viewer *Viewer) ItemView {
	tags := it.TagList
	if tags == nil {
		tags = []string{}
	}

	v := ItemView{
		Slug:           it.Slug,
		Title:          it.Title,
		Description:    it.Description,
		Image:          it.Image,
		TagList:        tags,
		CreatedAt:      it.CreatedAt,
		UpdatedAt:      it.UpdatedAt,
		Favorited:      viewer.HasFavorited(it.ID),
		FavoritesCount: it.FavoritesCount,
	}
	if it.Seller != nil {
		p := it.Seller.ProfileFor(viewer)
		v.Seller = &p
	}
	return v
}

// Viewer is the identified caller of an optionally-authenticated request,
// with the relations needed to compute per-viewer flags.
//
// All methods are nil-safe: a nil *Viewer is an anonymous caller.
type Viewer struct {
	User      *User
	Favorites map[string]struct{} // item IDs
	Following map[string]struct{} // user IDs
}

// NewViewer builds a Viewer from the id lists returned by the store.
func NewViewer(u *User, favoriteItemIDs, followingUserIDs []string) *Viewer {
	v := &Viewer{
		User:      u,
		Favorites: make(map[string]struct{}, len(favoriteItemIDs)),
		Following: make(map[string]struct{}, len(followingUserIDs)),
	}
	for _, id := range favoriteItemIDs {
		v.Favorites[id] = struct{}{}
	}
	for _, id := range followingUserIDs {
		v.Following[id] = struct{}{}
	}
	return v
}

func (v *Viewer) HasFavorited(itemID string) bool {
	if v == nil {
		return false
	}
	_, ok := v.Favorites[itemID]
	return ok
}

func (v *Viewer) IsFollowing(userID string) bool {
	if v == nil {
		return false
	}
	_, ok := v.Following[userID]
	return ok
}
