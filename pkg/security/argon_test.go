package security

import (
	"strings"
	"testing"
)

func TestArgonRoundTrip(t *testing.T) {
	t.Parallel()

	a := New()

	hash, err := a.GenerateFromPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("GenerateFromPassword error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash encoding %q", hash)
	}

	ok, err := a.VerifyPasswd("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("VerifyPasswd error: %v", err)
	}
	if !ok {
		t.Fatalf("correct password rejected")
	}

	ok, err = a.VerifyPasswd("wrong password", hash)
	if err != nil {
		t.Fatalf("VerifyPasswd error: %v", err)
	}
	if ok {
		t.Fatalf("wrong password accepted")
	}
}

func TestArgonHashesAreSalted(t *testing.T) {
	t.Parallel()

	a := New()

	h1, err := a.GenerateFromPassword("same password")
	if err != nil {
		t.Fatalf("GenerateFromPassword error: %v", err)
	}
	h2, err := a.GenerateFromPassword("same password")
	if err != nil {
		t.Fatalf("GenerateFromPassword error: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("two hashes of the same password must differ")
	}
}

func TestArgonRejectsGarbageEncoding(t *testing.T) {
	t.Parallel()

	a := New()

	if _, err := a.VerifyPasswd("pw", "not-a-phc-string"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}
