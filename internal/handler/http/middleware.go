package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KampusMeal/kampusmeal-backend/internal/auth"
	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
	"github.com/KampusMeal/kampusmeal-backend/pkg/httputil"
	"github.com/KampusMeal/kampusmeal-backend/pkg/logger"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity holds the authenticated caller attached to the request context.
// StallID is set only for stall owners that have registered a stall.
type Identity struct {
	UserID  string
	Email   string
	Role    string
	StallID string
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// Authenticate validates the bearer token and loads the current account.
// The role is taken from the user document rather than the token claims, so
// a role change takes effect without waiting for the token to expire.
func Authenticate(
	jwtManager *auth.JWTManager,
	userRepo repository.UserRepository,
	stallRepo repository.StallRepository,
	log *slog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing authorization header"), log)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("authorization header must be a bearer token"), log)
				return
			}

			claims, err := jwtManager.ValidateAccessToken(token)
			if err != nil {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), log)
				return
			}

			user, err := userRepo.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					httputil.WriteError(w, r, apperrors.Unauthorized("account no longer exists"), log)
					return
				}
				httputil.WriteError(w, r, err, log)
				return
			}

			identity := Identity{
				UserID: user.ID,
				Email:  user.Email,
				Role:   user.Role,
			}

			if user.Role == domain.RoleStallOwner {
				stall, err := stallRepo.GetByOwnerID(r.Context(), user.ID)
				switch {
				case err == nil:
					identity.StallID = stall.ID
				case errors.Is(err, apperrors.ErrNotFound):
					// Owner has not created a stall yet.
				default:
					httputil.WriteError(w, r, err, log)
					return
				}
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			ctx = logger.WithUserID(ctx, user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only callers whose current role is in the list.
func RequireRole(log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), log)
				return
			}

			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			httputil.WriteError(w, r, apperrors.Forbidden("insufficient role for this operation"), log)
		})
	}
}

// ContentTypeJSON enforces that requests with a JSON body declare it.
// Multipart endpoints must not be mounted behind this middleware.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Success:    false,
					StatusCode: http.StatusUnsupportedMediaType,
					Message:    "Content-Type must be application/json",
					Timestamp:  time.Now().UTC(),
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
