package token

import (
	"errors"
	"testing"

	"github.com/vaultledger/server/pkg/identity"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-signing-key")
	id := identity.Identity{ID: "abc123", Email: "admin@studio.io", Name: "Admin", Role: "admin"}

	raw, err := svc.Issue(id)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := svc.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if *got != id {
		t.Errorf("identity roundtrip: got %+v want %+v", got, id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewService("secret-a").Issue(identity.Identity{ID: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewService("secret-b").Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := NewService("secret").Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: %v", err)
	}
}
