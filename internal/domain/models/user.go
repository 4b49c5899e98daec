// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a household member. Admins carry IsAdmin.
//
// NOTE:
//   - PasswordHash is never serialized to clients; handlers respond with
//     PublicUser (see Public).
//   - AccountBalance only moves through task completion awards and admin edits.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Name           string             `bson:"name"`
	NameCI         string             `bson:"name_ci"` // lowercase, diacritics-stripped
	Email          string             `bson:"email"`
	Phone          string             `bson:"phone"`
	PasswordHash   string             `bson:"password_hash"`
	IsAdmin        bool               `bson:"is_admin"`
	AccountBalance int64              `bson:"account_balance"`
	LastEventView  *time.Time         `bson:"last_event_view,omitempty"`
	AvatarURL      *string            `bson:"avatar_url,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// PublicUser is the client-facing projection of User.
type PublicUser struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	IsAdmin        bool       `json:"isAdmin"`
	AccountBalance int64      `json:"accountBalance"`
	LastEventView  *time.Time `json:"lastEventView"`
	AvatarURL      *string    `json:"avatarUrl"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Public strips credentials from u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		IsAdmin:        u.IsAdmin,
		AccountBalance: u.AccountBalance,
		LastEventView:  u.LastEventView,
		AvatarURL:      u.AvatarURL,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
