// Package model defines the data structures used throughout the application,
// together with the views that are safe to send to clients.
package model

import "time"

// User represents a registered marketplace account.
//
// PasswordHash is the full bcrypt output (salt and cost are embedded in it).
// It is tagged json:"-" so no encoder can ever emit it; outward-facing
// responses use AuthView or ProfileView instead of the raw struct.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Bio          string    `json:"bio"`
	Image        string    `json:"image"`
	PasswordHash string    `json:"-"`
	IsVerified   bool      `json:"isVerified"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AuthView is the authenticated view of a user: what the owner of the
// account sees about themselves. Token is only set when one was issued by
// the request that produced the view (login, registration).
type AuthView struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Bio        string `json:"bio"`
	Image      string `json:"image"`
	IsVerified bool   `json:"isVerified"`
	Token      string `json:"token,omitempty"`
}

// AuthView builds the authenticated view. Pass an empty token to omit it.
func (u *User) AuthView(token string) AuthView {
	return AuthView{
		Username:   u.Username,
		Email:      u.Email,
		Bio:        u.Bio,
		Image:      u.Image,
		IsVerified: u.IsVerified,
		Token:      token,
	}
}

// ProfileView is the public view of a user as seen by someone else, e.g.
// the seller embedded in an item listing.
type ProfileView struct {
	Username   string `json:"username"`
	Bio        string `json:"bio"`
	Image      string `json:"image"`
	IsVerified bool   `json:"isVerified"`
	Following  bool   `json:"following"`
}

// ProfileFor renders u for the given viewer. A nil viewer is anonymous and
// never follows anyone.
func (u *User) ProfileFor(viewer *Viewer) ProfileView {
	return ProfileView{
		Username:   u.Username,
		Bio:        u.Bio,
		Image:      u.Image,
		IsVerified: u.IsVerified,
		Following:  viewer.IsFollowing(u.ID),
	}
}
