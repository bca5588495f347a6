// Package identity carries the authenticated caller through a request.
package identity

import (
	"context"

	"github.com/garnizeh/clipmarket/internal/models"
)

// Actor is the caller of an operation. The zero value is an anonymous visitor.
type Actor struct {
	UserID      int64
	Email       string
	AccountType models.AccountType
	// MFAPending marks a session that passed the password check but still
	// owes a second factor.
	MFAPending bool
}

func (a Actor) Authenticated() bool { return a.UserID > 0 }

func (a Actor) IsBrand() bool { return a.Authenticated() && a.AccountType == models.AccountBrand }

func (a Actor) IsCreator() bool { return a.Authenticated() && a.AccountType == models.AccountCreator }

type ctxKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(ctxKey{}).(Actor)
	return a
}
