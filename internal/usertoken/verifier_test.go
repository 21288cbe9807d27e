package usertoken

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func baseClaims() Claims {
	return Claims{
		UserID:    7,
		Username:  "maria",
		Role:      "Gestor",
		Localidad: "Bosa",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			Audience:  jwt.ClaimStrings{defaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyExtractsIdentity(t *testing.T) {
	v, err := NewVerifier(Config{Secret: "s3cret"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	ident, err := v.Verify(signToken(t, "s3cret", baseClaims()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	want := domain.Identity{ID: 7, Username: "maria", Role: domain.RoleManager, Localidad: "Bosa"}
	if ident != want {
		t.Fatalf("identity = %#v, want %#v", ident, want)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "right"})
	if _, err := v.Verify(signToken(t, "wrong", baseClaims())); err == nil {
		t.Fatal("wrong secret must fail")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "s", Leeway: time.Millisecond})
	claims := baseClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	if _, err := v.Verify(signToken(t, "s", claims)); err == nil {
		t.Fatal("expired token must fail")
	}
}

func TestVerifyRejectsMissingUserID(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "s"})
	claims := baseClaims()
	claims.UserID = 0
	if _, err := v.Verify(signToken(t, "s", claims)); err == nil {
		t.Fatal("token without user id must fail")
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Fatal("missing secret must fail")
	}
}
