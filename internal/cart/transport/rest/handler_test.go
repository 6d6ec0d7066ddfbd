package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	carterrors "github.com/mkarev/storefront/internal/cart/errors"
	"github.com/mkarev/storefront/internal/cart/service"
	cerrors "github.com/mkarev/storefront/internal/catalog/errors"
	"github.com/mkarev/storefront/pkg/web"
	"github.com/stretchr/testify/assert"
)

// mockCartService is a mock implementation of the CartService interface
type mockCartService struct {
	cart     *service.CartDto
	purchase *service.PurchaseDto
	error    error
}

func (m *mockCartService) CreateCart(_ context.Context) (*service.CartDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.cart, nil
}

func (m *mockCartService) GetCart(_ context.Context, _ uuid.UUID) (*service.CartDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.cart, nil
}

func (m *mockCartService) AddProductToCart(_ context.Context, _, _ uuid.UUID) (*service.CartDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.cart, nil
}

func (m *mockCartService) RemoveOneUnit(_ context.Context, _, _ uuid.UUID) (*service.CartDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.cart, nil
}

func (m *mockCartService) RemoveAllUnits(_ context.Context, _, _ uuid.UUID) (*service.CartDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.cart, nil
}

func (m *mockCartService) ClearCart(_ context.Context, _ uuid.UUID) (*service.CartDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.cart, nil
}

func (m *mockCartService) FinalizePurchase(_ context.Context, _ uuid.UUID, _ string) (*service.PurchaseDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.purchase, nil
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// toJSON is a helper function to convert a struct to JSON string
func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	bytes, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal to JSON: %v", err)
	}
	return string(bytes)
}

func newTestHandler(svc service.CartService) *Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewHandler(svc, logger)
}

func Test_CartAPI_Create(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")

	testCases := []struct {
		name         string
		mockService  mockCartService
		expectedCode int
		expectedBody string
	}{
		{
			name: "Success - cart created",
			mockService: mockCartService{
				cart: &service.CartDto{ID: mockID.String(), Items: []service.CartItemDto{}},
			},
			expectedCode: http.StatusCreated,
			expectedBody: toJSON(t, service.CartDto{ID: mockID.String(), Items: []service.CartItemDto{}}),
		},
		{
			name:         "Error - service error",
			mockService:  mockCartService{error: errors.New("db down")},
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to create cart"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
			rr := httptest.NewRecorder()

			api.Create(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_CartAPI_Get(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	mockProductID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")

	cartDto := service.CartDto{
		ID: mockID.String(),
		Items: []service.CartItemDto{{
			ProductID: mockProductID.String(),
			Title:     "Keyboard",
			UnitPrice: 8900,
			Quantity:  2,
		}},
		TotalAmount: 17800,
	}

	testCases := []struct {
		name         string
		mockService  mockCartService
		cartID       string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - cart found",
			mockService:  mockCartService{cart: &cartDto},
			cartID:       mockID.String(),
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, cartDto),
		},
		{
			name:         "Error - invalid id",
			mockService:  mockCartService{},
			cartID:       "123-invalid-id",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid id: 123-invalid-id"}),
		},
		{
			name:         "Error - cart not found",
			mockService:  mockCartService{error: carterrors.ErrCartNotFound},
			cartID:       mockID.String(),
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Cart with ID " + mockID.String() + " not found"}),
		},
		{
			name:         "Error - service error",
			mockService:  mockCartService{error: errors.New("db down")},
			cartID:       mockID.String(),
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Internal server error"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/carts/"+tc.cartID, nil)
			req.SetPathValue("id", tc.cartID)
			rr := httptest.NewRecorder()

			api.Get(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_CartAPI_AddProduct(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	mockProductID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")

	cartDto := service.CartDto{
		ID: mockID.String(),
		Items: []service.CartItemDto{{
			ProductID: mockProductID.String(),
			Title:     "Keyboard",
			UnitPrice: 8900,
			Quantity:  1,
		}},
		TotalAmount: 8900,
	}

	testCases := []struct {
		name         string
		mockService  mockCartService
		productID    string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product added",
			mockService:  mockCartService{cart: &cartDto},
			productID:    mockProductID.String(),
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, cartDto),
		},
		{
			name:         "Error - invalid product id",
			mockService:  mockCartService{},
			productID:    "not-a-uuid",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid productId: not-a-uuid"}),
		},
		{
			name:         "Error - product not found",
			mockService:  mockCartService{error: cerrors.ErrProductNotFound},
			productID:    mockProductID.String(),
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID " + mockProductID.String() + " not found"}),
		},
		{
			name:         "Conflict - no stock available",
			mockService:  mockCartService{error: carterrors.ErrNoStockAvailable},
			productID:    mockProductID.String(),
			expectedCode: http.StatusConflict,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID " + mockProductID.String() + " has no stock available"}),
		},
		{
			name:         "Error - inventory drift is opaque",
			mockService:  mockCartService{error: carterrors.ErrInventoryDrift},
			productID:    mockProductID.String(),
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Internal server error"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+mockID.String()+"/items/"+tc.productID, nil)
			req.SetPathValue("id", mockID.String())
			req.SetPathValue("productId", tc.productID)
			rr := httptest.NewRecorder()

			api.AddProduct(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_CartAPI_RemoveOneUnit(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	mockProductID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")

	emptyCart := service.CartDto{ID: mockID.String(), Items: []service.CartItemDto{}}

	testCases := []struct {
		name         string
		mockService  mockCartService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - one unit removed",
			mockService:  mockCartService{cart: &emptyCart},
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, emptyCart),
		},
		{
			name:         "Error - item not in cart",
			mockService:  mockCartService{error: carterrors.ErrItemNotFound},
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{
				Error: "Product with ID " + mockProductID.String() + " is not in cart " + mockID.String(),
			}),
		},
		{
			name:         "Error - cart not found",
			mockService:  mockCartService{error: carterrors.ErrCartNotFound},
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Cart with ID " + mockID.String() + " not found"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/carts/"+mockID.String()+"/items/"+mockProductID.String(), nil)
			req.SetPathValue("id", mockID.String())
			req.SetPathValue("productId", mockProductID.String())
			rr := httptest.NewRecorder()

			api.RemoveOneUnit(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_CartAPI_Purchase(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")
	mockProductID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174001")
	const purchaser = "alice@example.com"

	purchaseDto := service.PurchaseDto{
		CartID:    mockID.String(),
		Purchaser: purchaser,
		Items: []service.CartItemDto{{
			ProductID: mockProductID.String(),
			Title:     "Keyboard",
			UnitPrice: 8900,
			Quantity:  2,
		}},
		TotalAmount:      17800,
		FailedProductIDs: []string{},
		Status:           service.StatusFinalized,
	}

	testCases := []struct {
		name         string
		mockService  mockCartService
		withUser     bool
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - purchase finalized",
			mockService:  mockCartService{purchase: &purchaseDto},
			withUser:     true,
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, purchaseDto),
		},
		{
			name:         "Error - missing identity",
			mockService:  mockCartService{purchase: &purchaseDto},
			withUser:     false,
			expectedCode: http.StatusUnauthorized,
			expectedBody: toJSON(t, ErrorResponse{Error: "Unauthorized: Missing or invalid user identity"}),
		},
		{
			name:         "Error - cart not found",
			mockService:  mockCartService{error: carterrors.ErrCartNotFound},
			withUser:     true,
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Cart with ID " + mockID.String() + " not found"}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/"+mockID.String()+"/purchase", nil)
			if tc.withUser {
				ctx := context.WithValue(context.Background(), web.UserIDKey, purchaser)
				req = req.WithContext(ctx)
			}
			req.SetPathValue("id", mockID.String())
			rr := httptest.NewRecorder()

			api.Purchase(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}
