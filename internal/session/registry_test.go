package session

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk-core/internal/cache"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func primeCache(t *testing.T, c *cache.Cache) {
	t.Helper()
	if _, err := c.Read(context.Background(), cache.NotificationsList(), func(ctx context.Context) (any, error) {
		return "data", nil
	}); err != nil {
		t.Fatal(err)
	}
}

func TestObserveKeepsCacheForSameSubject(t *testing.T) {
	c := cache.New(16, 30*time.Second, nil, nil)
	r := NewRegistry(testSecret, c, nil)
	token := signToken(t, "u1")

	if err := r.Observe(token); err != nil {
		t.Fatal(err)
	}
	primeCache(t, c)
	if err := r.Observe(token); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Fatal("cache cleared for unchanged identity")
	}
}

func TestObserveClearsCacheOnIdentityChange(t *testing.T) {
	c := cache.New(16, 30*time.Second, nil, nil)
	r := NewRegistry(testSecret, c, nil)

	if err := r.Observe(signToken(t, "u1")); err != nil {
		t.Fatal(err)
	}
	primeCache(t, c)
	if err := r.Observe(signToken(t, "u2")); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Fatal("cache must be cleared when the subject changes")
	}
	if r.Current() != "u2" {
		t.Fatalf("current = %q", r.Current())
	}
}

func TestResetClearsEverything(t *testing.T) {
	c := cache.New(16, 30*time.Second, nil, nil)
	r := NewRegistry(testSecret, c, nil)
	if err := r.Observe(signToken(t, "u1")); err != nil {
		t.Fatal(err)
	}
	primeCache(t, c)
	r.Reset()
	if c.Len() != 0 || r.Current() != "" {
		t.Fatal("reset must clear cache and identity")
	}
}

func TestObserveRejectsBadToken(t *testing.T) {
	c := cache.New(16, 30*time.Second, nil, nil)
	r := NewRegistry(testSecret, c, nil)
	if err := r.Observe("not-a-token"); err == nil {
		t.Fatal("expected parse error")
	}
	other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"})
	signed, err := other.SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Observe(signed); err == nil {
		t.Fatal("expected signature error")
	}
}
