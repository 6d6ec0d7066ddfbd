// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mkarev/storefront/internal/catalog/store"
)

// ProductService defines the methods for managing the product directory.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// FindAll returns all available products.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error)

	// Create adds a new product to the system.
	// Returns error if the product cannot be created.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// AdjustStock applies a signed delta to the product's stock counter.
	// Returns ErrProductNotFound if no product exists with the given ID.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*ProductDto, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// Service implements ProductService and provides methods to manage products.
type Service struct {
	repository store.ProductStore
}

// NewService creates a new instance of ProductService with the provided repository.
func NewService(repo store.ProductStore) *Service {
	return &Service{
		repository: repo,
	}
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Title       string `json:"title"       validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Price       int64  `json:"price"       validate:"min=0"`
	Code        string `json:"code"        validate:"required,max=64"`
	Stock       int32  `json:"stock"       validate:"min=0"`
	OwnerID     string `json:"owner_id"    validate:"omitempty,uuid"`
}

// ProductDto represents the data transfer object for a product.
// Version is read-only and used for optimistic concurrency control.
type ProductDto struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Code        string `json:"code"`
	Stock       int32  `json:"stock"`
	OwnerID     string `json:"owner_id,omitempty"`
	Version     int32  `json:"version"`
}

// StockAdjustDto represents the data transfer object for adjusting product stock.
type StockAdjustDto struct {
	Delta int32 `json:"delta" validate:"required"`
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}

	return toDto(product), nil
}

// FindAll retrieves a list of all products and returns them as ProductDTOs.
// Returns an empty slice if no products exist or error if the retrieval fails.
func (s *Service) FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error) {
	products, err := s.repository.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	productDTOs := make([]ProductDto, len(products))

	for i, item := range products {
		productDTOs[i] = *toDto(&item)
	}

	return productDTOs, nil
}

// Create creates a new product and returns it as a ProductDto.
// Returns an error if the product cannot be created.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	var ownerID uuid.UUID
	if product.OwnerID != "" {
		parsed, err := uuid.Parse(product.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("invalid owner ID %q: %w", product.OwnerID, err)
		}
		ownerID = parsed
	}
	p, err := s.repository.Create(ctx, store.NewProduct{
		Title:       product.Title,
		Description: product.Description,
		Price:       product.Price,
		Code:        product.Code,
		Stock:       product.Stock,
		OwnerID:     ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return toDto(p), nil
}

// AdjustStock applies a signed delta to the stock counter and returns the
// updated product as a ProductDto.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, delta int32) (*ProductDto, error) {
	product, err := s.repository.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock for product with ID %s: %w", id, err)
	}

	return toDto(product), nil
}

// DeleteByID deletes a product by its ID.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return s.repository.DeleteByID(ctx, id)
}

// toDto converts a store.Product to a ProductDto.
func toDto(product *store.Product) *ProductDto {
	dto := &ProductDto{
		ID:          product.ID.String(),
		Title:       product.Title,
		Description: product.Description,
		Price:       product.Price,
		Code:        product.Code,
		Stock:       product.Stock,
		Version:     product.Version,
	}
	if product.OwnerID != uuid.Nil {
		dto.OwnerID = product.OwnerID.String()
	}
	return dto
}
