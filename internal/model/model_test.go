package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_NeverSerializesPasswordHash(t *testing.T) {
	u := &User{
		ID:           "u1",
		Username:     "jake",
		Email:        "jake@example.com",
		PasswordHash: "$2a$04$secretsecretsecret",
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secretsecret")
	assert.NotContains(t, strings.ToLower(string(raw)), "password")

	raw, err = json.Marshal(u.AuthView("tok"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secretsecret")
}

func TestAuthView_TokenOmittedWhenEmpty(t *testing.T) {
	u := &User{Username: "jake", Email: "jake@example.com"}

	raw, err := json.Marshal(u.AuthView(""))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "token")

	raw, err = json.Marshal(u.AuthView("abc.def.ghi"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"token":"abc.def.ghi"`)
}

func TestItemViewFor_Anonymous(t *testing.T) {
	seller := &User{ID: "s1", Username: "seller", IsVerified: true}
	it := &Item{ID: "i1", Slug: "lamp", Seller: seller, FavoritesCount: 3}

	v := it.ViewFor(nil)

	assert.False(t, v.Favorited)
	assert.Equal(t, 3, v.FavoritesCount)
	require.NotNil(t, v.Seller)
	assert.Equal(t, "seller", v.Seller.Username)
	assert.True(t, v.Seller.IsVerified)
	assert.False(t, v.Seller.Following)
	assert.Equal(t, []string{}, v.TagList)
}

func TestItemViewFor_Viewer(t *testing.T) {
	seller := &User{ID: "s1", Username: "seller"}
	viewer := NewViewer(&User{ID: "v1"}, []string{"i1"}, []string{"s1"})

	favorite := (&Item{ID: "i1", Seller: seller}).ViewFor(viewer)
	other := (&Item{ID: "i2", Seller: &User{ID: "s2"}}).ViewFor(viewer)

	assert.True(t, favorite.Favorited)
	assert.True(t, favorite.Seller.Following)
	assert.False(t, other.Favorited)
	assert.False(t, other.Seller.Following)
}
