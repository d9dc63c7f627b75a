package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KampusMeal/kampusmeal-backend/internal/domain"
	"github.com/KampusMeal/kampusmeal-backend/internal/repository"
	"github.com/KampusMeal/kampusmeal-backend/internal/service"
	"github.com/KampusMeal/kampusmeal-backend/internal/storage"
	apperrors "github.com/KampusMeal/kampusmeal-backend/pkg/errors"
)

func setupOrderRouter(orderRepo *mockOrderRepo, cartRepo *mockCartRepo, stallRepo *mockStallRepo, store *mockStorage, identity *Identity) *chi.Mux {
	fees := service.Fees{AppFee: 1000, DeliveryFee: 2000}
	svc := service.NewOrderService(orderRepo, cartRepo, stallRepo, store, handlerTestProducer(), fees, handlerTestLogger())
	handler := NewOrderHandler(svc, handlerTestLogger())

	requireUser := RequireRole(handlerTestLogger(), domain.RoleUser)

	r := chi.NewRouter()
	r.Route("/api/v1/orders", func(r chi.Router) {
		if identity != nil {
			r.Use(withIdentity(*identity))
		}
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/checkout", handler.Checkout)
			r.Patch("/{orderID}/upload-proof", handler.ResubmitProof)
			r.Get("/", handler.ListMyOrders)
			r.Get("/{orderID}", handler.GetMyOrder)
		})
		r.Route("/my-stall/orders", func(r chi.Router) {
			r.Get("/", handler.ListStallOrders)
			r.Get("/{orderID}", handler.GetStallOrder)
			r.Patch("/{orderID}/confirm", handler.ConfirmOrder)
			r.Patch("/{orderID}/reject", handler.RejectOrder)
			r.Patch("/{orderID}/ready", handler.ReadyOrder)
			r.Patch("/{orderID}/complete", handler.CompleteOrder)
		})
	})
	return r
}

// newProofRequest builds a multipart request carrying a payment proof image
// and optional form fields.
func newProofRequest(t *testing.T, method, target string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="proof"; filename="bukti.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xFF}, 2048))
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func sellerOrder(status string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:        "order-1",
		UserID:    "user-1",
		StallID:   "stall-1",
		StallName: "Warung Bu Tini",
		Items: []domain.OrderItem{
			{MenuItemID: "item-1", Name: "Nasi Goreng Ayam", Price: 15000, Quantity: 2, Subtotal: 30000},
		},
		ItemsTotal:      30000,
		AppFee:          1000,
		DeliveryMethod:  domain.DeliveryMethodPickup,
		TotalPrice:      31000,
		PaymentProofURL: "http://localhost:8080/uploads/proofs/order-1/old",
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestOrderHandler_Checkout_Success(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	cartRepo := new(mockCartRepo)
	stallRepo := new(mockStallRepo)
	store := new(mockStorage)
	identity := buyerIdentity()
	router := setupOrderRouter(orderRepo, cartRepo, stallRepo, store, &identity)

	cartRepo.On("Get", mock.Anything, "user-1").Return(sampleCart(), nil)
	stallRepo.On("GetByID", mock.Anything, "stall-1").Return(openStall(), nil)
	store.On("Upload", mock.Anything, mock.AnythingOfType("*storage.UploadInput")).
		Return(&storage.UploadResult{Key: "proofs/order/proof", URL: "http://localhost:8080/uploads/proofs/order/proof"}, nil)
	orderRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
	cartRepo.On("DeleteIfVersion", mock.Anything, "user-1", 2).Return(true, nil)

	req := newProofRequest(t, http.MethodPost, "/api/v1/orders/checkout", map[string]string{"delivery_method": "pickup"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	orderRepo.AssertExpectations(t)
	cartRepo.AssertExpectations(t)
}

func TestOrderHandler_Checkout_MissingProof(t *testing.T) {
	identity := buyerIdentity()
	router := setupOrderRouter(new(mockOrderRepo), new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("delivery_method", "pickup"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestOrderHandler_Checkout_InvalidDeliveryMethod(t *testing.T) {
	identity := buyerIdentity()
	router := setupOrderRouter(new(mockOrderRepo), new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	req := newProofRequest(t, http.MethodPost, "/api/v1/orders/checkout", map[string]string{"delivery_method": "teleport"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHandler_Checkout_EmptyCart(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	cartRepo := new(mockCartRepo)
	identity := buyerIdentity()
	router := setupOrderRouter(orderRepo, cartRepo, new(mockStallRepo), new(mockStorage), &identity)

	cartRepo.On("Get", mock.Anything, "user-1").Return(nil, apperrors.NotFound("cart", "user-1"))

	req := newProofRequest(t, http.MethodPost, "/api/v1/orders/checkout", map[string]string{"delivery_method": "pickup"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderHandler_ResubmitProof_Success(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	store := new(mockStorage)
	identity := buyerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), store, &identity)

	orderRepo.On("GetByID", mock.Anything, "order-1").Return(sellerOrder(domain.StatusRejected), nil)
	store.On("Upload", mock.Anything, mock.AnythingOfType("*storage.UploadInput")).
		Return(&storage.UploadResult{Key: "proofs/order-1/new", URL: "http://localhost:8080/uploads/proofs/order-1/new"}, nil)
	orderRepo.On("UpdateProof", mock.Anything, "order-1", "http://localhost:8080/uploads/proofs/order-1/new").Return(nil)
	store.On("Delete", mock.Anything, "proofs/order-1/old").Return(nil)

	req := newProofRequest(t, http.MethodPatch, "/api/v1/orders/order-1/upload-proof", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestOrderHandler_ResubmitProof_NotRejected(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := buyerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	orderRepo.On("GetByID", mock.Anything, "order-1").Return(sellerOrder(domain.StatusProcessing), nil)

	req := newProofRequest(t, http.MethodPatch, "/api/v1/orders/order-1/upload-proof", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHandler_ListMyOrders_StatusFilter(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := buyerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	status := domain.StatusCompleted
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	userID := "user-1"
	orderRepo.On("List", mock.Anything, repository.OrderFilter{
		UserID:  &userID,
		Status:  &status,
		From:    &from,
		To:      &to,
		Page:    1,
		PerPage: 10,
	}).Return([]domain.Order{*sellerOrder(domain.StatusCompleted)}, 1, nil)

	rec := serveJSON(router, http.MethodGet, "/api/v1/orders?status=completed&from=2025-01-01&to=2025-01-31&page=1&per_page=10", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
	orderRepo.AssertExpectations(t)
}

func TestOrderHandler_ListMyOrders_UnknownStatus(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := buyerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	rec := serveJSON(router, http.MethodGet, "/api/v1/orders?status=shipped", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	orderRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestOrderHandler_ListMyOrders_BadDate(t *testing.T) {
	identity := buyerIdentity()
	router := setupOrderRouter(new(mockOrderRepo), new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	rec := serveJSON(router, http.MethodGet, "/api/v1/orders?from=yesterday", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrderHandler_GetMyOrder_OtherUsersOrderForbidden(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := buyerIdentity()
	identity.UserID = "someone-else"
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	orderRepo.On("GetByID", mock.Anything, "order-1").Return(sellerOrder(domain.StatusProcessing), nil)

	rec := serveJSON(router, http.MethodGet, "/api/v1/orders/order-1", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderHandler_ListMyOrders_OwnerForbidden(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := ownerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	rec := serveJSON(router, http.MethodGet, "/api/v1/orders", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	orderRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestOrderHandler_ConfirmOrder_Success(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := ownerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	orderRepo.On("GetByID", mock.Anything, "order-1").Return(sellerOrder(domain.StatusWaitingConfirmation), nil)
	orderRepo.On("UpdateStatus", mock.Anything, "order-1", domain.StatusWaitingConfirmation, domain.StatusProcessing, "").Return(nil)

	rec := serveJSON(router, http.MethodPatch, "/api/v1/orders/my-stall/orders/order-1/confirm", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestOrderHandler_ConfirmOrder_NoStall(t *testing.T) {
	identity := ownerIdentity()
	identity.StallID = ""
	router := setupOrderRouter(new(mockOrderRepo), new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	rec := serveJSON(router, http.MethodPatch, "/api/v1/orders/my-stall/orders/order-1/confirm", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOrderHandler_RejectOrder_Success(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := ownerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	reason := "Bukti pembayaran tidak terbaca, mohon unggah ulang"
	orderRepo.On("GetByID", mock.Anything, "order-1").Return(sellerOrder(domain.StatusWaitingConfirmation), nil)
	orderRepo.On("UpdateStatus", mock.Anything, "order-1", domain.StatusWaitingConfirmation, domain.StatusRejected, reason).Return(nil)

	body, _ := json.Marshal(RejectOrderRequest{Reason: reason})
	rec := serveJSON(router, http.MethodPatch, "/api/v1/orders/my-stall/orders/order-1/reject", bytes.NewReader(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	orderRepo.AssertExpectations(t)
}

func TestOrderHandler_RejectOrder_ReasonTooShort(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := ownerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	body, _ := json.Marshal(RejectOrderRequest{Reason: "salah"})
	rec := serveJSON(router, http.MethodPatch, "/api/v1/orders/my-stall/orders/order-1/reject", bytes.NewReader(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	orderRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestOrderHandler_CompleteOrder_InvalidTransition(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := ownerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	orderRepo.On("GetByID", mock.Anything, "order-1").Return(sellerOrder(domain.StatusWaitingConfirmation), nil)

	rec := serveJSON(router, http.MethodPatch, "/api/v1/orders/my-stall/orders/order-1/complete", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_ListStallOrders_Success(t *testing.T) {
	orderRepo := new(mockOrderRepo)
	identity := ownerIdentity()
	router := setupOrderRouter(orderRepo, new(mockCartRepo), new(mockStallRepo), new(mockStorage), &identity)

	orderRepo.On("List", mock.Anything, mock.Anything).Return([]domain.Order{*sellerOrder(domain.StatusProcessing)}, 1, nil)

	rec := serveJSON(router, http.MethodGet, "/api/v1/orders/my-stall/orders", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)
}
