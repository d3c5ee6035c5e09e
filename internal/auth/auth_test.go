package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/nestfolio/nestfolio-server/internal/domain"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	if err != nil || !ok {
		t.Fatalf("verify correct password = (%v, %v)", ok, err)
	}

	ok, err = VerifyPassword(hash, "wrong password")
	if err != nil || ok {
		t.Fatalf("verify wrong password = (%v, %v)", ok, err)
	}

	if _, err := HashPassword(""); err == nil {
		t.Error("empty password should not hash")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	ok, err := VerifyPassword("not-a-hash", "anything")
	if err != nil {
		t.Fatalf("malformed hash should not error: %v", err)
	}
	if ok {
		t.Error("malformed hash should never verify")
	}
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	key, err := LoadOrGenerateKey(t.TempDir())
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	svc, err := NewTokenService(key, 15*time.Minute, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t)

	user := &domain.User{
		ID:    "usr_test123",
		Email: "agent@example.com",
		Plan:  domain.PlanPremium,
	}

	token, err := svc.GenerateAccessToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("user_id = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Email != user.Email {
		t.Errorf("email = %s, want %s", claims.Email, user.Email)
	}
	if claims.Plan != string(domain.PlanPremium) {
		t.Errorf("plan = %s, want PREMIUM", claims.Plan)
	}
	if claims.Subject != user.ID {
		t.Errorf("sub = %s, want %s", claims.Subject, user.ID)
	}
}

func TestVerifyAccessToken_WrongKey(t *testing.T) {
	first := newTestTokenService(t)
	second := newTestTokenService(t)

	token, err := first.GenerateAccessToken(&domain.User{ID: "usr_x", Email: "x@example.com"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := second.VerifyAccessToken(token); err == nil {
		t.Error("token minted with another key should not verify")
	}
}

func TestLoadOrGenerateKey_Stable(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrGenerateKey(dir)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	second, err := LoadOrGenerateKey(dir)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if string(first) != string(second) {
		t.Error("key should be stable across loads")
	}
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	svc := newTestTokenService(t)

	token, err := svc.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	if HashRefreshToken(token) != HashRefreshToken(token) {
		t.Error("hash should be deterministic")
	}
	if HashRefreshToken(token) == token {
		t.Error("hash should not equal the raw token")
	}
}
