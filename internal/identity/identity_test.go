package identity

import (
	"context"
	"testing"

	"github.com/garnizeh/clipmarket/internal/models"
)

func TestFromContext(t *testing.T) {
	if a := FromContext(context.Background()); a.Authenticated() {
		t.Fatalf("empty context must yield an anonymous actor, got %#v", a)
	}

	ctx := WithActor(context.Background(), Actor{UserID: 7, AccountType: models.AccountBrand})
	a := FromContext(ctx)
	if !a.IsBrand() || a.IsCreator() {
		t.Fatalf("unexpected roles for %#v", a)
	}
}

func TestRolesRequireAuthentication(t *testing.T) {
	a := Actor{AccountType: models.AccountCreator}
	if a.IsCreator() {
		t.Fatalf("an actor without a user id is never a creator")
	}
}
