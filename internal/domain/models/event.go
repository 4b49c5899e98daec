// internal/domain/models/event.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a community event. Attendees is a set of user IDs toggled by RSVP.
type Event struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Date        time.Time            `bson:"date"` // calendar day, UTC midnight
	Time        string               `bson:"time"` // "HH:MM", local to the household
	Location    string               `bson:"location"`
	Attendees   []primitive.ObjectID `bson:"attendees"`

	CreatedBy primitive.ObjectID `bson:"created_by"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// HasAttendee reports whether userID has RSVP'd.
func (e Event) HasAttendee(userID primitive.ObjectID) bool {
	for _, a := range e.Attendees {
		if a == userID {
			return true
		}
	}
	return false
}

// EventView is the client-facing event.
type EventView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Attendees   []string  `json:"attendees"`
	IsAttending bool      `json:"isAttending"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EventDateLayout is the wire format for Event.Date.
const EventDateLayout = "2006-01-02"

// View projects e for the given caller.
func (e Event) View(caller primitive.ObjectID) EventView {
	attendees := make([]string, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		attendees = append(attendees, a.Hex())
	}
	return EventView{
		ID:          e.ID.Hex(),
		Name:        e.Name,
		Description: e.Description,
		Date:        e.Date.UTC().Format(EventDateLayout),
		Time:        e.Time,
		Location:    e.Location,
		Attendees:   attendees,
		IsAttending: e.HasAttendee(caller),
		CreatedBy:   e.CreatedBy.Hex(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
