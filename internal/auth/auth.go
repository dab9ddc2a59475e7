// Package auth implements the stateless session scheme: a signed JWT carried
// in an HTTP-only cookie, plus middleware that identifies the caller on every
// request. Verification fails closed — a bad or absent token makes the
// request unauthenticated, never a fault.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"

	"github.com/patric-chuzhbe/staybook/internal/models"
	"github.com/patric-chuzhbe/staybook/internal/user"
)

// Auth issues and verifies session tokens and manages the session cookie.
type Auth struct {
	// cookieName is the name of the cookie used to store the JWT.
	cookieName string

	// signingSecretKey is the key used to sign JWTs. It is process-wide
	// static state established at startup.
	signingSecretKey []byte
}

// Claims is the self-contained session payload. No expiry is set: the token
// lives as long as the cookie, and stays valid until the signing key changes.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key holding the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// EmailKey is the context key holding the authenticated user's email.
const EmailKey ContextKey = "email"

// New creates a new Auth with the given cookie name and JWT signing secret.
func New(cookieName string, signingSecretKey []byte) *Auth {
	return &Auth{
		cookieName:       cookieName,
		signingSecretKey: signingSecretKey,
	}
}

// BuildToken produces a signed serialized token for the given user.
func (a *Auth) BuildToken(usr *user.User) (string, error) {
	claims := &Claims{
		UserID: usr.ID,
		Email:  usr.Email,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, *claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies a serialized token and returns its claims.
// Any signature mismatch, malformed token or unexpected signing method
// yields models.ErrUnauthenticated.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil, models.ErrUnauthenticated
	}

	return claims, nil
}

// SetSessionCookie attaches a signed session cookie for the user to the
// response.
func (a *Auth) SetSessionCookie(response http.ResponseWriter, usr *user.User) error {
	tokenString, err := a.BuildToken(usr)
	if err != nil {
		return err
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.cookieName,
			Value:    tokenString,
			Path:     "/",
			HttpOnly: true,
		},
	)

	return nil
}

// ClearSessionCookie asks the client to drop the session cookie. There is no
// server-side state to invalidate.
func (a *Auth) ClearSessionCookie(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     a.cookieName,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		},
	)
}

// ClaimsFromRequest extracts and verifies session claims from the request
// cookie.
func (a *Auth) ClaimsFromRequest(request *http.Request) (*Claims, error) {
	cookie, err := request.Cookie(a.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, models.ErrUnauthenticated
	}

	return a.ParseToken(cookie.Value)
}

// RequireUser is an HTTP middleware that rejects requests without a valid
// session with 401 and otherwise stores the caller's identity in the request
// context.
func (a *Auth) RequireUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		claims, err := a.ClaimsFromRequest(request)
		if err != nil {
			http.Error(response, models.ErrUnauthenticated.Error(), http.StatusUnauthorized)
			return
		}

		h.ServeHTTP(response, request.WithContext(contextWithClaims(request.Context(), claims)))
	}

	return http.HandlerFunc(middleware)
}

// OptionalUser is an HTTP middleware that stores the caller's identity in the
// request context when a valid session is present and passes the request
// through either way.
func (a *Auth) OptionalUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		claims, err := a.ClaimsFromRequest(request)
		if err == nil {
			request = request.WithContext(contextWithClaims(request.Context(), claims))
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext returns the authenticated user's ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// EmailFromContext returns the authenticated user's email, if any.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok && email != ""
}

func contextWithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, EmailKey, claims.Email)
}
