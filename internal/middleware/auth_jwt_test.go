package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	claims := TokenClaims{
		Sub:    "user-1",
		Role:   "user",
		Plan:   "creator",
		Locale: "id",
		Exp:    time.Now().Add(time.Hour).Unix(),
	}
	token, err := SignJWT("secret", claims)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	got, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if got.Sub != "user-1" || got.Role != "user" || got.Locale != "id" {
		t.Fatalf("claims = %+v", got)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	token, _ := SignJWT("secret", TokenClaims{Sub: "user-1"})
	if _, err := VerifyJWT("other-secret", token); err == nil {
		t.Fatal("wrong secret must be rejected")
	}
	if _, err := VerifyJWT("secret", token+"x"); err == nil {
		t.Fatal("tampered signature must be rejected")
	}
	if _, err := VerifyJWT("secret", "not-a-token"); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	token, _ := SignJWT("secret", TokenClaims{Sub: "user-1", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	var gotUser, gotRole string
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing header status = %d, want 401", rec.Code)
	}

	token, _ := SignJWT("secret", TokenClaims{Sub: "user-9", Role: "admin", Exp: time.Now().Add(time.Hour).Unix()})
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "user-9" || gotRole != "admin" {
		t.Fatalf("context user=%q role=%q", gotUser, gotRole)
	}
}

func TestAdminOnly(t *testing.T) {
	handler := AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin status = %d, want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	token, _ := SignJWT("s", TokenClaims{Sub: "root", Role: "admin"})
	wrapped := AuthJWT("s")(handler)
	req.Header.Set("Authorization", "Bearer "+token)
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want 200", rec.Code)
	}
}
