package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KampusMeal/kampusmeal-backend/internal/auth"
	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
)

func testJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key", 15*time.Minute, 24*time.Hour)
}

// identityEcho records the identity the middleware attached.
func identityEcho(captured *Identity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := IdentityFromContext(r.Context()); ok {
			*captured = id
		}
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthenticate_Buyer(t *testing.T) {
	jwtManager := testJWTManager()
	userRepo := new(mockUserRepo)
	stallRepo := new(mockStallRepo)

	user := &domain.User{ID: "user-1", Name: "Dina", Email: "dina@example.com", Role: domain.RoleUser}
	userRepo.On("GetByID", mock.Anything, "user-1").Return(user, nil)

	token, err := jwtManager.GenerateAccessToken("user-1", "dina@example.com", domain.RoleUser)
	require.NoError(t, err)

	var captured Identity
	handler := Authenticate(jwtManager, userRepo, stallRepo, handlerTestLogger())(identityEcho(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", captured.UserID)
	assert.Equal(t, domain.RoleUser, captured.Role)
	assert.Empty(t, captured.StallID)
	stallRepo.AssertNotCalled(t, "GetByOwnerID", mock.Anything, mock.Anything)
}

func TestAuthenticate_StallOwnerResolvesStall(t *testing.T) {
	jwtManager := testJWTManager()
	userRepo := new(mockUserRepo)
	stallRepo := new(mockStallRepo)

	owner := &domain.User{ID: "owner-1", Name: "Bu Tini", Email: "butini@example.com", Role: domain.RoleStallOwner}
	userRepo.On("GetByID", mock.Anything, "owner-1").Return(owner, nil)
	stallRepo.On("GetByOwnerID", mock.Anything, "owner-1").Return(openStall(), nil)

	token, err := jwtManager.GenerateAccessToken("owner-1", "butini@example.com", domain.RoleStallOwner)
	require.NoError(t, err)

	var captured Identity
	handler := Authenticate(jwtManager, userRepo, stallRepo, handlerTestLogger())(identityEcho(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stall-1", captured.StallID)
}

func TestAuthenticate_OwnerWithoutStall(t *testing.T) {
	jwtManager := testJWTManager()
	userRepo := new(mockUserRepo)
	stallRepo := new(mockStallRepo)

	owner := &domain.User{ID: "owner-1", Role: domain.RoleStallOwner}
	userRepo.On("GetByID", mock.Anything, "owner-1").Return(owner, nil)
	stallRepo.On("GetByOwnerID", mock.Anything, "owner-1").Return(nil, apperrors.NotFound("stall", "owner-1"))

	token, err := jwtManager.GenerateAccessToken("owner-1", "butini@example.com", domain.RoleStallOwner)
	require.NoError(t, err)

	var captured Identity
	handler := Authenticate(jwtManager, userRepo, stallRepo, handlerTestLogger())(identityEcho(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, captured.StallID)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	handler := Authenticate(testJWTManager(), new(mockUserRepo), new(mockStallRepo), handlerTestLogger())(identityEcho(&Identity{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_MalformedToken(t *testing.T) {
	handler := Authenticate(testJWTManager(), new(mockUserRepo), new(mockStallRepo), handlerTestLogger())(identityEcho(&Identity{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_DeletedAccount(t *testing.T) {
	jwtManager := testJWTManager()
	userRepo := new(mockUserRepo)
	userRepo.On("GetByID", mock.Anything, "gone-1").Return(nil, apperrors.NotFound("user", "gone-1"))

	token, err := jwtManager.GenerateAccessToken("gone-1", "gone@example.com", domain.RoleUser)
	require.NoError(t, err)

	handler := Authenticate(jwtManager, userRepo, new(mockStallRepo), handlerTestLogger())(identityEcho(&Identity{}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_Allows(t *testing.T) {
	mw := RequireRole(handlerTestLogger(), domain.RoleStallOwner)
	handler := withIdentity(ownerIdentity())(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Forbids(t *testing.T) {
	mw := RequireRole(handlerTestLogger(), domain.RoleStallOwner)
	handler := withIdentity(buyerIdentity())(mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	mw := RequireRole(handlerTestLogger(), domain.RoleStallOwner)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
