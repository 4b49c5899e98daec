// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Unassigned is the display name used for tasks with no assignee.
const Unassigned = "Unassigned"

// TaskDescriptionMax is the maximum description length in characters.
const TaskDescriptionMax = 240

// Task is a chore created by an admin and optionally assigned to a user.
// Points are credited to the assignee's balance when the task is completed.
type Task struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Name        string              `bson:"name"`
	Description string              `bson:"description"`
	DueDate     time.Time           `bson:"due_date"`
	Points      int64               `bson:"points"`
	Priority    int                 `bson:"priority"`
	AssignedTo  *primitive.ObjectID `bson:"assigned_to,omitempty"`

	IsCompleted bool                `bson:"is_completed"`
	CompletedAt *time.Time          `bson:"completed_at,omitempty"`
	CompletedBy *primitive.ObjectID `bson:"completed_by,omitempty"`
	IsVerified  bool                `bson:"is_verified"`
	VerifiedAt  *time.Time          `bson:"verified_at,omitempty"`
	VerifiedBy  *primitive.ObjectID `bson:"verified_by,omitempty"`

	CreatedBy primitive.ObjectID `bson:"created_by"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// TaskView is the client-facing task with the assignee resolved to a name.
type TaskView struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	DueDate        time.Time  `json:"dueDate"`
	Points         int64      `json:"points"`
	Priority       int        `json:"priority"`
	AssignedTo     string     `json:"assignedTo"`
	AssignedToID   string     `json:"assignedToId,omitempty"`
	IsCompleted    bool       `json:"isCompleted"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	IsVerified     bool       `json:"isVerified"`
	VerifiedAt     *time.Time `json:"verifiedAt,omitempty"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// View projects t; assigneeName is used when the task is assigned.
func (t Task) View(assigneeName string) TaskView {
	v := TaskView{
		ID:          t.ID.Hex(),
		Name:        t.Name,
		Description: t.Description,
		DueDate:     t.DueDate,
		Points:      t.Points,
		Priority:    t.Priority,
		AssignedTo:  Unassigned,
		IsCompleted: t.IsCompleted,
		CompletedAt: t.CompletedAt,
		IsVerified:  t.IsVerified,
		VerifiedAt:  t.VerifiedAt,
		CreatedBy:   t.CreatedBy.Hex(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		v.AssignedToID = t.AssignedTo.Hex()
		if assigneeName != "" {
			v.AssignedTo = assigneeName
		}
	}
	return v
}
