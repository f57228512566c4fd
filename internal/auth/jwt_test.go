package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("admin", "staff", "attendance-checker", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := Parse(pair.AccessToken, "test-key", "attendance-checker")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Subject != "admin" || claims.Role != "staff" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsWrongKeyAndIssuer(t *testing.T) {
	pair, err := Issue("admin", "staff", "attendance-checker", "test-key", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := Parse(pair.AccessToken, "other-key", "attendance-checker"); err == nil {
		t.Fatal("expected wrong key to fail")
	}
	if _, err := Parse(pair.AccessToken, "test-key", "someone-else"); err == nil {
		t.Fatal("expected issuer mismatch to fail")
	}
}
