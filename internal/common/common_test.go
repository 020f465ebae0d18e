package common

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestParseLimitOffset(t *testing.T) {
	r := httptest.NewRequest("GET", "/products?limit=500&offset=40", nil)
	limit, offset := ParseLimitOffset(r, 20, 100)
	if limit != 100 {
		t.Fatalf("expected limit clamped to 100, got %d", limit)
	}
	if offset != 40 {
		t.Fatalf("expected offset 40, got %d", offset)
	}

	r = httptest.NewRequest("GET", "/products", nil)
	limit, offset = ParseLimitOffset(r, 20, 100)
	if limit != 20 || offset != 0 {
		t.Fatalf("expected defaults 20/0, got %d/%d", limit, offset)
	}
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), "u-1", []string{"admin"})
	id, ok := UserID(ctx)
	if !ok || id != "u-1" {
		t.Fatalf("expected user id u-1, got %q ok=%v", id, ok)
	}
	if !HasRole(ctx, "admin") {
		t.Fatal("expected admin role")
	}
	if HasRole(ctx, "customer") {
		t.Fatal("unexpected customer role")
	}
	if HasRole(context.Background(), "admin") {
		t.Fatal("empty context should have no roles")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if ip := ClientIP(r); ip != "203.0.113.9" {
		t.Fatalf("expected forwarded ip, got %q", ip)
	}
	r.Header.Del("X-Forwarded-For")
	r.RemoteAddr = "192.0.2.4:5123"
	if ip := ClientIP(r); ip != "192.0.2.4" {
		t.Fatalf("expected remote addr host, got %q", ip)
	}
}
