package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"subscriber-payments/internal/infra/logging"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject string
	Email   string
	Role    string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// AuthManager signs and verifies HS256 bearer tokens. Client tokens are issued by the
// account service sharing the secret; admin tokens are minted here from the API key.
type AuthManager struct {
	secret   []byte
	apiKey   string
	adminTTL time.Duration
	now      func() time.Time
}

func NewAuthManager(secret, adminAPIKey string, adminTTL time.Duration) *AuthManager {
	if adminTTL <= 0 {
		adminTTL = 30 * time.Minute
	}
	return &AuthManager{secret: []byte(secret), apiKey: adminAPIKey, adminTTL: adminTTL, now: time.Now}
}

func (a *AuthManager) mint(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// MintAdmin exchanges the admin API key for a short-lived admin token.
func (a *AuthManager) MintAdmin(apiKey string) (string, time.Time, error) {
	if a.apiKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(a.apiKey)) != 1 {
		return "", time.Time{}, errInvalidToken
	}
	now := a.now()
	exp := now.Add(a.adminTTL)
	tok, err := a.mint(Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	return tok, exp, err
}

// MintClient issues a client token. Used by tooling and tests.
func (a *AuthManager) MintClient(userID, email string, ttl time.Duration) (string, error) {
	now := a.now()
	return a.mint(Claims{
		Role:  RoleClient,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

func (a *AuthManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return a.parse(strings.TrimSpace(hdr[7:]))
	}
	return nil, errMissingToken
}

func (a *AuthManager) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Require admits tokens carrying role and stores the caller in the request context.
func (a *AuthManager) Require(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.ParseFromRequest(r)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			if claims.Role != role {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
				return
			}
			ctx := withPrincipal(r.Context(), Principal{Subject: claims.Subject, Email: claims.Email, Role: claims.Role})
			if role == RoleAdmin {
				ctx = logging.WithActor(ctx, "admin")
			} else {
				ctx = logging.WithUserID(ctx, claims.Subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
