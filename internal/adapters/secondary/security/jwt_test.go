package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims SessionClaims, secret []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestJWTSessionExtractsUser(t *testing.T) {
	token := signToken(t, SessionClaims{
		UserID:   "u1",
		Username: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	session, err := NewJWTSession(token, testSecret)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	user := session.CurrentUser()
	if user.ID != "u1" || user.Name != "Alice" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestJWTSessionFallsBackToSubject(t *testing.T) {
	token := signToken(t, SessionClaims{
		Username: "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	session, err := NewJWTSession(token, testSecret)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if session.CurrentUser().ID != "u1" {
		t.Fatalf("expected subject fallback, got %+v", session.CurrentUser())
	}
}

func TestJWTSessionRejectsBadSignature(t *testing.T) {
	token := signToken(t, SessionClaims{UserID: "u1"}, []byte("other-secret"))

	if _, err := NewJWTSession(token, testSecret); err == nil {
		t.Fatal("expected signature rejection")
	}
}

func TestJWTSessionRejectsExpiredToken(t *testing.T) {
	token := signToken(t, SessionClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}, testSecret)

	if _, err := NewJWTSession(token, testSecret); err == nil {
		t.Fatal("expected expired token rejection")
	}
}
