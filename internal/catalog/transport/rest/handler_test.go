package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	cerrors "github.com/mkarev/storefront/internal/catalog/errors"
	"github.com/mkarev/storefront/internal/catalog/service"
	"github.com/stretchr/testify/assert"
)

// mockProductService is a mock implementation of the ProductService interface
type mockProductService struct {
	product  *service.ProductDto
	products []service.ProductDto
	error    error
}

func (m *mockProductService) FindByID(_ context.Context, _ uuid.UUID) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) FindAll(_ context.Context, _, _ int32) ([]service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.products, nil
}

func (m *mockProductService) Create(_ context.Context, _ service.ProductCreateDto) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) AdjustStock(_ context.Context, _ uuid.UUID, _ int32) (*service.ProductDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.product, nil
}

func (m *mockProductService) DeleteByID(_ context.Context, _ uuid.UUID) error {
	return m.error
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

func newTestHandler(svc service.ProductService) *Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewHandler(svc, logger)
}

func Test_ProductAPI_FindByID(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")

	productDto := service.ProductDto{
		ID:      mockID.String(),
		Title:   "Keyboard",
		Price:   8900,
		Code:    "KB-01",
		Stock:   5,
		Version: 1,
	}

	testCases := []struct {
		name         string
		mockService  mockProductService
		productID    string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success - product found",
			mockService:  mockProductService{product: &productDto},
			productID:    mockID.String(),
			expectedCode: http.StatusOK,
			expectedBody: toJSON(t, productDto),
		},
		{
			name:         "Error - invalid id",
			mockService:  mockProductService{},
			productID:    "123-invalid-id",
			expectedCode: http.StatusBadRequest,
			expectedBody: toJSON(t, ErrorResponse{Error: "Invalid id: 123-invalid-id"}),
		},
		{
			name:         "Error - product not found",
			mockService:  mockProductService{error: cerrors.ErrProductNotFound},
			productID:    mockID.String(),
			expectedCode: http.StatusNotFound,
			expectedBody: toJSON(t, ErrorResponse{Error: "Product with ID " + mockID.String() + " not found"}),
		},
		{
			name:         "Error - service error",
			mockService:  mockProductService{error: errors.New("db down")},
			productID:    mockID.String(),
			expectedCode: http.StatusInternalServerError,
			expectedBody: toJSON(t, ErrorResponse{Error: "Failed to retrieve product with ID " + mockID.String()}),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+tc.productID, nil)
			req.SetPathValue("id", tc.productID)
			rr := httptest.NewRecorder()

			api.FindByID(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_ProductAPI_Create(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")

	productDto := service.ProductDto{
		ID:      mockID.String(),
		Title:   "Keyboard",
		Price:   8900,
		Code:    "KB-01",
		Stock:   5,
		Version: 1,
	}

	testCases := []struct {
		name         string
		mockService  mockProductService
		body         string
		expectedCode int
	}{
		{
			name:         "Success - product created",
			mockService:  mockProductService{product: &productDto},
			body:         `{"title":"Keyboard","price":8900,"code":"KB-01","stock":5}`,
			expectedCode: http.StatusCreated,
		},
		{
			name:         "Error - malformed body",
			mockService:  mockProductService{},
			body:         `{"title":`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - missing required fields",
			mockService:  mockProductService{},
			body:         `{"price":100}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - negative price",
			mockService:  mockProductService{},
			body:         `{"title":"Keyboard","price":-1,"code":"KB-01"}`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(tc.body))
			rr := httptest.NewRecorder()

			api.Create(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}

func Test_ProductAPI_AdjustStock(t *testing.T) {
	mockID, _ := uuid.Parse("123e4567-e89b-12d3-a456-426614174000")

	updated := service.ProductDto{
		ID:      mockID.String(),
		Title:   "Keyboard",
		Price:   8900,
		Code:    "KB-01",
		Stock:   7,
		Version: 2,
	}

	testCases := []struct {
		name         string
		mockService  mockProductService
		body         string
		expectedCode int
	}{
		{
			name:         "Success - stock adjusted",
			mockService:  mockProductService{product: &updated},
			body:         `{"delta":2}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "Error - zero delta fails validation",
			mockService:  mockProductService{},
			body:         `{"delta":0}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Error - product not found",
			mockService:  mockProductService{error: cerrors.ErrProductNotFound},
			body:         `{"delta":2}`,
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestHandler(&tc.mockService)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/products/"+mockID.String()+"/stock", strings.NewReader(tc.body))
			req.SetPathValue("id", mockID.String())
			rr := httptest.NewRecorder()

			api.AdjustStock(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
		})
	}
}
