package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/event"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/storage"
	"github.com/KampusMeal/kampusmeal-backend/pkg/httputil"
	pkgkafka "github.com/KampusMeal/kampusmeal-backend/pkg/kafka"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockStallRepo struct {
	mock.Mock
}

func (m *mockStallRepo) Create(ctx context.Context, stall *domain.Stall) error {
	args := m.Called(ctx, stall)
	return args.Error(0)
}

func (m *mockStallRepo) GetByID(ctx context.Context, id string) (*domain.Stall, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stall), args.Error(1)
}

func (m *mockStallRepo) GetByOwnerID(ctx context.Context, ownerID string) (*domain.Stall, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stall), args.Error(1)
}

func (m *mockStallRepo) Update(ctx context.Context, stall *domain.Stall) error {
	args := m.Called(ctx, stall)
	return args.Error(0)
}

func (m *mockStallRepo) UpdateRating(ctx context.Context, stallID string, rating float64, totalReviews int) error {
	args := m.Called(ctx, stallID, rating, totalReviews)
	return args.Error(0)
}

func (m *mockStallRepo) List(ctx context.Context, filter repository.StallFilter) ([]domain.Stall, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Stall), args.Int(1), args.Error(2)
}

type mockMenuRepo struct {
	mock.Mock
}

func (m *mockMenuRepo) Create(ctx context.Context, item *domain.MenuItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockMenuRepo) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MenuItem), args.Error(1)
}

func (m *mockMenuRepo) Update(ctx context.Context, item *domain.MenuItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockMenuRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockMenuRepo) ListByStall(ctx context.Context, stallID string, filter repository.MenuFilter) ([]domain.MenuItem, int, error) {
	args := m.Called(ctx, stallID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.MenuItem), args.Int(1), args.Error(2)
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id, fromStatus, status, rejectionReason string) error {
	args := m.Called(ctx, id, fromStatus, status, rejectionReason)
	return args.Error(0)
}

func (m *mockOrderRepo) UpdateProof(ctx context.Context, id, proofURL string) error {
	args := m.Called(ctx, id, proofURL)
	return args.Error(0)
}

func (m *mockOrderRepo) MarkReviewed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	args := m.Called(ctx, cart)
	return args.Error(0)
}

func (m *mockCartRepo) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRepo) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockCartRepo) DeleteIfVersion(ctx context.Context, userID string, expectedVersion int) (bool, error) {
	args := m.Called(ctx, userID, expectedVersion)
	return args.Bool(0), args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	if input.Data != nil {
		_, _ = io.Copy(io.Discard, input.Data)
	}
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStorage) GetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// ============================================================================
// Test Helpers
// ============================================================================

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestProducer() *event.Producer {
	logger := handlerTestLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

// withIdentity injects an authenticated identity the way the Authenticate
// middleware would, without requiring a real token.
func withIdentity(id Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func buyerIdentity() Identity {
	return Identity{
		UserID: "user-1",
		Email:  "dina@example.com",
		Role:   domain.RoleUser,
	}
}

func ownerIdentity() Identity {
	return Identity{
		UserID:  "owner-1",
		Email:   "butini@example.com",
		Role:    domain.RoleStallOwner,
		StallID: "stall-1",
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// serveJSON runs a JSON request through the given router.
func serveJSON(router *chi.Mux, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
