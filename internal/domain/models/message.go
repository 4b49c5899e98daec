// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is an admin broadcast. The feed keeps only the newest few.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	IsActive  bool               `bson:"is_active"`
	CreatedBy primitive.ObjectID `bson:"created_by"`
	CreatedAt time.Time          `bson:"created_at"`

	// Per-user state. A user without an entry has not viewed the message.
	Statuses []MessageStatus `bson:"statuses"`
}

// MessageStatus records one user's view of a message.
type MessageStatus struct {
	UserID   primitive.ObjectID `bson:"user_id"`
	IsActive bool               `bson:"is_active"` // false once the user dismisses it
	ViewedAt *time.Time         `bson:"viewed_at,omitempty"`
}

// StatusFor returns userID's status entry, if any.
func (m Message) StatusFor(userID primitive.ObjectID) (MessageStatus, bool) {
	for _, s := range m.Statuses {
		if s.UserID == userID {
			return s, true
		}
	}
	return MessageStatus{}, false
}

// MessageView is the client-facing message for one caller.
type MessageView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	IsActive  bool       `json:"isActive"`
	IsViewed  bool       `json:"isViewed"`
	ViewedAt  *time.Time `json:"viewedAt,omitempty"`
	CreatedBy string     `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
}

// View projects m for the given caller, applying their dismissal override.
func (m Message) View(caller primitive.ObjectID) MessageView {
	v := MessageView{
		ID:        m.ID.Hex(),
		Title:     m.Title,
		Content:   m.Content,
		IsActive:  m.IsActive,
		CreatedBy: m.CreatedBy.Hex(),
		CreatedAt: m.CreatedAt,
	}
	if st, ok := m.StatusFor(caller); ok {
		v.IsActive = m.IsActive && st.IsActive
		v.IsViewed = st.ViewedAt != nil
		v.ViewedAt = st.ViewedAt
	}
	return v
}
