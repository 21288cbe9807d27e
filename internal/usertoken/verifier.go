// Package usertoken decodes access tokens minted by the external auth
// service. The core trusts the decoded identity verbatim for row-level
// filtering and history attribution; issuance and permission checks
// stay upstream.
package usertoken

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

const (
	defaultIssuer   = "plataforma-auth"
	defaultAudience = "plataforma-api"
	defaultLeeway   = 30 * time.Second
)

// Config configures access-token verification.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Claims is the token payload shared with the auth service.
type Claims struct {
	UserID    int64  `json:"uid"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Localidad string `json:"localidad,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens and extracts the identity.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewVerifier creates a token verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("token verifier requires a secret")
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = defaultAudience
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Verifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		leeway:   leeway,
	}, nil
}

// Verify validates the token and returns the embedded identity.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return domain.Identity{}, err
	}
	if !parsed.Valid {
		return domain.Identity{}, errors.New("invalid token")
	}
	if claims.UserID == 0 {
		return domain.Identity{}, errors.New("token carries no user id")
	}
	return domain.Identity{
		ID:        claims.UserID,
		Username:  claims.Username,
		Role:      domain.UserRole(strings.ToLower(strings.TrimSpace(claims.Role))),
		Localidad: claims.Localidad,
	}, nil
}
