/*
auth.go - Bearer-token identity middleware

The engine treats identity as opaque: an auth provider issues HS256
tokens whose subject claim is the user ID. This middleware validates the
signature and injects the subject into the request context; workspace
membership and admin rights are the catalog's business, not the token's.
*/
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hotdesk/seat-engine/booking"
)

type contextKey string

const userIDKey contextKey = "userID"

// Identity returns middleware that validates a Bearer token signed with
// secret and stores its subject claim as the caller's UserID.
func Identity(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
				return
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid token")
				return
			}

			sub, err := tok.Claims.GetSubject()
			if err != nil || sub == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated", "token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, booking.UserID(sub))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// callerID returns the authenticated user from the request context.
func callerID(r *http.Request) booking.UserID {
	id, _ := r.Context().Value(userIDKey).(booking.UserID)
	return id
}
