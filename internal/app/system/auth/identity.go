package auth

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the authenticated caller. Handlers receive it as an argument
// rather than digging it out of the request.
type Identity struct {
	ID      primitive.ObjectID
	Email   string
	IsAdmin bool
}

type ctxKey string

const identityKey ctxKey = "identity"

// CurrentIdentity returns the identity placed on r by Authenticate.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	id, ok := r.Context().Value(identityKey).(Identity)
	return id, ok
}

func withIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// WithTestIdentity attaches id to r as Authenticate would. For tests.
func WithTestIdentity(r *http.Request, id Identity) *http.Request {
	return withIdentity(r, id)
}
