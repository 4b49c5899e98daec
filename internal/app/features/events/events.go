// internal/app/features/events/events.go
package events

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/hearth/internal/app/store/audit"
	eventstore "github.com/dalemusser/hearth/internal/app/store/events"
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/app/system/authz"
	"github.com/dalemusser/hearth/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"github.com/dalemusser/hearth/internal/app/system/timeouts"
	"github.com/dalemusser/hearth/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func views(evs []models.Event, caller primitive.ObjectID) []models.EventView {
	out := make([]models.EventView, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.View(caller))
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| Reads                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type listResponse struct {
	Events       []models.EventView `json:"events"`
	HasNewEvents bool               `json:"hasNewEvents"`
}

// List returns every event by date, and whether any was created since the
// caller last marked the list viewed.
func (h *Handler) List(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Unauthorized(w, r, "Not authenticated.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list events: load caller", err)
		return
	}

	evs, err := h.Events.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list events", err)
		return
	}
	hasNew, err := h.Events.HasCreatedSince(ctx, u.LastEventView)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list events: check new", err)
		return
	}

	jsonutil.OK(w, listResponse{Events: views(evs, id.ID), HasNewEvents: hasNew})
}

// MyEvents returns the events the caller has RSVP'd to.
func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	evs, err := h.Events.ListAttending(ctx, id.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list my events", err)
		return
	}
	jsonutil.OK(w, views(evs, id.ID))
}

// MarkViewed records that the caller has seen the current events.
func (h *Handler) MarkViewed(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SetLastEventView(ctx, id.ID, time.Now()); err != nil {
		h.ErrLog.LogServerError(w, r, "mark events viewed", err)
		return
	}
	jsonutil.Message(w, "Events marked as viewed")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	eid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, ok := h.load(ctx, w, r, eid)
	if !ok {
		return
	}
	jsonutil.OK(w, ev.View(id.ID))
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request, eid primitive.ObjectID) (*models.Event, bool) {
	ev, err := h.Events.GetByID(ctx, eid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "Event not found.")
		return nil, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load event", err)
		return nil, false
	}
	return ev, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| Writes                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type createRequest struct {
	Name        string `json:"name" validate:"required,max=100" label:"Name"`
	Description string `json:"description" validate:"max=1000" label:"Description"`
	Date        string `json:"date" validate:"required,isodate" label:"Date"`
	Time        string `json:"time" validate:"required,clock" label:"Time"`
	Location    string `json:"location" validate:"required,max=200" label:"Location"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req createRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "create event: decode body", err, "Invalid request body.")
		return
	}
	req.Name = htmlsanitize.PlainText(req.Name)
	req.Description = htmlsanitize.PlainText(req.Description)
	req.Location = htmlsanitize.PlainText(req.Location)
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}
	date, err := inputval.ParseDate(req.Date)
	if err != nil {
		h.ErrLog.BadRequest(w, r, "Date must be a date like 2025-06-30.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, err := h.Events.Create(ctx, models.Event{
		Name:        req.Name,
		Description: req.Description,
		Date:        date,
		Time:        req.Time,
		Location:    req.Location,
		CreatedBy:   id.ID,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create event", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventEventCreated, id.ID, nil, map[string]string{"event_id": ev.ID.Hex()})
	jsonutil.Created(w, ev.View(id.ID))
}

// updateRequest is a partial patch; absent fields are unchanged.
type updateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100" label:"Name"`
	Description *string `json:"description" validate:"omitempty,max=1000" label:"Description"`
	Date        *string `json:"date" validate:"omitempty,isodate" label:"Date"`
	Time        *string `json:"time" validate:"omitempty,clock" label:"Time"`
	Location    *string `json:"location" validate:"omitempty,max=200" label:"Location"`
}

// Update edits an event. Only its creator or an admin may.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	eid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := jsonutil.Decode(w, r, &req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "update event: decode body", err, "Invalid request body.")
		return
	}
	for _, p := range []*string{req.Name, req.Description, req.Location} {
		if p != nil {
			*p = htmlsanitize.PlainText(*p)
		}
	}
	if (req.Name != nil && *req.Name == "") || (req.Location != nil && *req.Location == "") {
		h.ErrLog.BadRequest(w, r, "Name and location cannot be blank.")
		return
	}
	if res := inputval.Validate(req); res.HasErrors() {
		h.ErrLog.Invalid(w, r, res)
		return
	}

	upd := eventstore.Update{
		Name:        req.Name,
		Description: req.Description,
		Time:        req.Time,
		Location:    req.Location,
	}
	if req.Date != nil {
		d, err := inputval.ParseDate(*req.Date)
		if err != nil {
			h.ErrLog.BadRequest(w, r, "Date must be a date like 2025-06-30.")
			return
		}
		upd.Date = &d
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cur, ok := h.load(ctx, w, r, eid)
	if !ok {
		return
	}
	if !authz.CanModifyEvent(id, *cur) {
		h.ErrLog.Forbidden(w, r, "Only the event's creator or an admin can change it.")
		return
	}

	ev, err := h.Events.Update(ctx, eid, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "Event not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update event", err)
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventEventUpdated, id.ID, nil, map[string]string{"event_id": eid.Hex()})
	jsonutil.OK(w, ev.View(id.ID))
}

// Delete removes an event. Only its creator or an admin may.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	eid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cur, ok := h.load(ctx, w, r, eid)
	if !ok {
		return
	}
	if !authz.CanModifyEvent(id, *cur) {
		h.ErrLog.Forbidden(w, r, "Only the event's creator or an admin can delete it.")
		return
	}

	n, err := h.Events.Delete(ctx, eid)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete event", err)
		return
	}
	if n == 0 {
		h.ErrLog.NotFound(w, r, "Event not found.")
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventEventDeleted, id.ID, nil, map[string]string{"event_id": eid.Hex()})
	jsonutil.Message(w, "Event deleted successfully")
}

type rsvpResponse struct {
	Event       models.EventView `json:"event"`
	IsAttending bool             `json:"isAttending"`
}

// RSVP toggles the caller's attendance.
func (h *Handler) RSVP(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	eid, ok := h.eventID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ev, attending, err := h.Events.ToggleRSVP(ctx, eid, id.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.NotFound(w, r, "Event not found.")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "toggle rsvp", err)
		return
	}

	h.Metrics.RSVP(attending)
	h.Log.Debug("rsvp toggled",
		zap.String("event_id", eid.Hex()),
		zap.String("user_id", id.ID.Hex()),
		zap.Bool("attending", attending))
	jsonutil.OK(w, rsvpResponse{Event: ev.View(id.ID), IsAttending: attending})
}
