// Package service implements the cart operations protocol that keeps the
// cart store and the stock ledger consistent.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	carterrors "github.com/mkarev/storefront/internal/cart/errors"
	"github.com/mkarev/storefront/internal/cart/store"
	cerrors "github.com/mkarev/storefront/internal/catalog/errors"
	catalogstore "github.com/mkarev/storefront/internal/catalog/store"
	"github.com/mkarev/storefront/pkg/messaging"
	"github.com/mkarev/storefront/pkg/messaging/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Purchase status values.
const (
	StatusFinalized          = "finalized"
	StatusPartiallyFinalized = "partially_finalized"
)

// CartService defines the cart operations consumed by the HTTP layer.
//
// Every unit of quantity held in a cart corresponds to one unit already
// deducted from the product's stock (eager reservation): AddProductToCart
// decrements stock, RemoveOneUnit/RemoveAllUnits/ClearCart credit it back,
// and FinalizePurchase commits the deduction by not reversing it.
type CartService interface {
	// CreateCart allocates an empty cart.
	CreateCart(ctx context.Context) (*CartDto, error)

	// GetCart returns the cart's resolved line items and total.
	// Returns ErrCartNotFound if the cart id does not exist.
	GetCart(ctx context.Context, cartID uuid.UUID) (*CartDto, error)

	// AddProductToCart reserves one unit of the product for the cart.
	// Returns ErrNoStockAvailable (a normal negative-path result, with cart
	// and stock unchanged) when the product has no sellable units left,
	// ErrProductNotFound when the product does not exist, and
	// ErrCartNotFound when the cart does not exist.
	AddProductToCart(ctx context.Context, cartID, productID uuid.UUID) (*CartDto, error)

	// RemoveOneUnit releases one reserved unit back to stock.
	// Returns ErrItemNotFound, before any stock mutation, if the product has
	// no line item in the cart.
	RemoveOneUnit(ctx context.Context, cartID, productID uuid.UUID) (*CartDto, error)

	// RemoveAllUnits releases the line item's entire quantity back to stock
	// in a single ledger adjustment.
	// Returns ErrItemNotFound under the same precondition as RemoveOneUnit.
	RemoveAllUnits(ctx context.Context, cartID, productID uuid.UUID) (*CartDto, error)

	// ClearCart releases every reservation held by the cart and empties it.
	ClearCart(ctx context.Context, cartID uuid.UUID) (*CartDto, error)

	// FinalizePurchase converts the cart's contents into a purchase result
	// and drains the cart. Confirmed units stay deducted from stock; items
	// rejected by the reconciliation pass are credited back and reported in
	// FailedProductIDs. An empty cart yields a zero-total result without
	// mutation.
	FinalizePurchase(ctx context.Context, cartID uuid.UUID, purchaser string) (*PurchaseDto, error)
}

// Service implements CartService on top of a cart store and a product store.
type Service struct {
	carts     store.CartStore
	products  catalogstore.ProductStore
	publisher messaging.Publisher
	logger    *slog.Logger
	purchases metric.Int64Counter
}

// NewService creates a new instance of CartService with the provided stores.
// The publisher may be nil, in which case no purchase events are emitted.
func NewService(carts store.CartStore, products catalogstore.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("storefront-cart")
	purchases, err := meter.Int64Counter("purchases_finalized", metric.WithDescription("Total number of finalized purchases"))
	if err != nil {
		panic(fmt.Sprintf("failed to create purchases_finalized counter: %v", err))
	}
	return &Service{
		carts:     carts,
		products:  products,
		publisher: publisher,
		logger:    logger.With("component", "cart_service"),
		purchases: purchases,
	}
}

// CartItemDto is a resolved line item in the cart read model.
type CartItemDto struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int32  `json:"quantity"`
}

// CartDto is the denormalized cart read model returned to callers.
type CartDto struct {
	ID          string        `json:"id"`
	Items       []CartItemDto `json:"items"`
	TotalAmount int64         `json:"total_amount"`
}

// PurchaseDto is the transient result of FinalizePurchase. It is returned
// once per finalize call and never persisted.
type PurchaseDto struct {
	CartID           string        `json:"cart_id"`
	Purchaser        string        `json:"purchaser"`
	Items            []CartItemDto `json:"items"`
	TotalAmount      int64         `json:"total_amount"`
	FailedProductIDs []string      `json:"failed_product_ids"`
	Status           string        `json:"status"`
}

// CreateCart allocates an empty cart.
func (s *Service) CreateCart(ctx context.Context) (*CartDto, error) {
	id, err := s.carts.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &CartDto{ID: id.String(), Items: []CartItemDto{}}, nil
}

// GetCart returns the cart's resolved line items and total.
func (s *Service) GetCart(ctx context.Context, cartID uuid.UUID) (*CartDto, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart %s: %w", cartID, err)
	}
	return toCartDto(cart)
}

// AddProductToCart reserves one unit: the stock decrement happens first, and
// a failed cart update is compensated with a stock credit so no unit is ever
// silently lost.
func (s *Service) AddProductToCart(ctx context.Context, cartID, productID uuid.UUID) (*CartDto, error) {
	// Advisory pre-check: the common sold-out path answers without a write.
	stock, err := s.products.GetStock(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock for product %s: %w", productID, err)
	}
	if stock <= 0 {
		return nil, carterrors.ErrNoStockAvailable
	}

	// The conditional reservation resolves races the pre-check cannot: when
	// two shoppers grab the last unit, exactly one reservation applies.
	if err := s.products.ReserveStock(ctx, productID, 1); err != nil {
		if errors.Is(err, cerrors.ErrInsufficientStock) {
			return nil, carterrors.ErrNoStockAvailable
		}
		return nil, fmt.Errorf("failed to reserve stock for product %s: %w", productID, err)
	}

	if _, err := s.carts.UpsertLineItem(ctx, cartID, productID, 1); err != nil {
		if compErr := s.creditStock(ctx, productID, 1); compErr != nil {
			return nil, compErr
		}
		return nil, fmt.Errorf("failed to add product %s to cart %s: %w", productID, cartID, err)
	}

	return s.GetCart(ctx, cartID)
}

// RemoveOneUnit releases one reserved unit: the cart decrement happens first
// (so ErrItemNotFound precedes any stock mutation), then the unit is credited
// back to stock.
func (s *Service) RemoveOneUnit(ctx context.Context, cartID, productID uuid.UUID) (*CartDto, error) {
	if _, err := s.carts.UpsertLineItem(ctx, cartID, productID, -1); err != nil {
		return nil, fmt.Errorf("failed to remove one unit of product %s from cart %s: %w", productID, cartID, err)
	}

	if _, err := s.products.AdjustStock(ctx, productID, 1); err != nil {
		if _, compErr := s.carts.UpsertLineItem(ctx, cartID, productID, 1); compErr != nil {
			s.logger.ErrorContext(ctx, "Compensating cart restore failed, ledger and cart disagree",
				"cart_id", cartID, "product_id", productID, "error", compErr)
			return nil, fmt.Errorf("%w: %v", carterrors.ErrInventoryDrift, compErr)
		}
		return nil, fmt.Errorf("failed to credit stock for product %s: %w", productID, err)
	}

	return s.GetCart(ctx, cartID)
}

// RemoveAllUnits releases the line item's entire quantity in one ledger call.
func (s *Service) RemoveAllUnits(ctx context.Context, cartID, productID uuid.UUID) (*CartDto, error) {
	quantity, err := s.carts.RemoveLineItem(ctx, cartID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove product %s from cart %s: %w", productID, cartID, err)
	}

	if _, err := s.products.AdjustStock(ctx, productID, quantity); err != nil {
		if _, compErr := s.carts.UpsertLineItem(ctx, cartID, productID, quantity); compErr != nil {
			s.logger.ErrorContext(ctx, "Compensating cart restore failed, ledger and cart disagree",
				"cart_id", cartID, "product_id", productID, "quantity", quantity, "error", compErr)
			return nil, fmt.Errorf("%w: %v", carterrors.ErrInventoryDrift, compErr)
		}
		return nil, fmt.Errorf("failed to credit stock for product %s: %w", productID, err)
	}

	return s.GetCart(ctx, cartID)
}

// ClearCart releases every reservation and empties the cart. On a failed
// credit the already-credited prefix is dropped from the cart and the
// remainder is kept, so cart contents and ledger stay in agreement.
func (s *Service) ClearCart(ctx context.Context, cartID uuid.UUID) (*CartDto, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart %s: %w", cartID, err)
	}

	for i, item := range cart.Items {
		if _, err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			remaining := toLineItems(cart.Items[i:])
			if serr := s.carts.SetLineItems(ctx, cartID, remaining); serr != nil {
				s.logger.ErrorContext(ctx, "Failed to persist uncredited cart remainder",
					"cart_id", cartID, "error", serr)
				return nil, fmt.Errorf("%w: %v", carterrors.ErrInventoryDrift, serr)
			}
			return nil, fmt.Errorf("failed to credit stock for product %s: %w", item.ProductID, err)
		}
	}

	if err := s.carts.Clear(ctx, cartID); err != nil {
		return nil, fmt.Errorf("failed to clear cart %s: %w", cartID, err)
	}
	return s.GetCart(ctx, cartID)
}

// FinalizePurchase converts the cart into a purchase result and drains the
// cart. The algorithm is two-phase: the failure set is computed over an
// immutable snapshot first, then one batch credit pass and one cart clear
// apply the outcome.
func (s *Service) FinalizePurchase(ctx context.Context, cartID uuid.UUID, purchaser string) (*PurchaseDto, error) {
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart %s: %w", cartID, err)
	}

	if len(cart.Items) == 0 {
		return &PurchaseDto{
			CartID:           cartID.String(),
			Purchaser:        purchaser,
			Items:            []CartItemDto{},
			FailedProductIDs: []string{},
			Status:           StatusFinalized,
		}, nil
	}

	// Advisory reconciliation pass over the snapshot: collect products whose
	// remaining stock no longer covers the requested quantity.
	requests := make([]catalogstore.StockRequest, len(cart.Items))
	for i, item := range cart.Items {
		requests[i] = catalogstore.StockRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	failedIDs, err := s.products.FindBelowRequested(ctx, requests)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile stock for cart %s: %w", cartID, err)
	}
	failedSet := make(map[uuid.UUID]struct{}, len(failedIDs))
	for _, id := range failedIDs {
		failedSet[id] = struct{}{}
	}

	confirmed := make([]store.ResolvedItem, 0, len(cart.Items))
	rejected := make([]store.ResolvedItem, 0)
	for _, item := range cart.Items {
		if _, failed := failedSet[item.ProductID]; failed {
			rejected = append(rejected, item)
		} else {
			confirmed = append(confirmed, item)
		}
	}

	// Confirmed units stay deducted: committing the purchase means leaving
	// the add-time reservation in place. Rejected items were not purchased,
	// so their reservations go back to the ledger.
	for _, item := range rejected {
		if err := s.creditStock(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	totalAmount, err := ComputeTotal(confirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total for cart %s: %w", cartID, err)
	}

	if err := s.carts.Clear(ctx, cartID); err != nil {
		return nil, fmt.Errorf("failed to drain cart %s after purchase: %w", cartID, err)
	}

	status := StatusFinalized
	if len(failedIDs) > 0 {
		status = StatusPartiallyFinalized
	}
	purchase := &PurchaseDto{
		CartID:           cartID.String(),
		Purchaser:        purchaser,
		Items:            toItemDtos(confirmed),
		TotalAmount:      totalAmount,
		FailedProductIDs: idStrings(failedIDs),
		Status:           status,
	}

	s.notifyPurchase(ctx, cartID, purchaser, confirmed, totalAmount, failedIDs)
	s.purchases.Add(ctx, 1)

	return purchase, nil
}

// creditStock returns units to the ledger and escalates a failed credit to
// ErrInventoryDrift: at that point the units are accounted for nowhere and an
// operator has to reconcile.
func (s *Service) creditStock(ctx context.Context, productID uuid.UUID, quantity int32) error {
	if _, err := s.products.AdjustStock(ctx, productID, quantity); err != nil {
		s.logger.ErrorContext(ctx, "Compensating stock credit failed, ledger has drifted",
			"product_id", productID, "quantity", quantity, "error", err)
		return fmt.Errorf("%w: %v", carterrors.ErrInventoryDrift, err)
	}
	return nil
}

// notifyPurchase informs the notification collaborator. Delivery is
// fire-and-forget: a failure must never roll back the purchase.
func (s *Service) notifyPurchase(ctx context.Context, cartID uuid.UUID, purchaser string, items []store.ResolvedItem, totalAmount int64, failedIDs []uuid.UUID) {
	if s.publisher == nil {
		return
	}
	purchased := make([]events.PurchasedItem, len(items))
	for i, item := range items {
		purchased[i] = events.PurchasedItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	event := events.PurchaseCompletedEvent{
		PurchaseID:       uuid.New(),
		CartID:           cartID,
		Purchaser:        purchaser,
		Items:            purchased,
		TotalAmount:      totalAmount,
		FailedProductIDs: failedIDs,
		CompletedAt:      time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish purchase event", "cart_id", cartID, "error", err)
	}
}

// toCartDto converts a store.Cart to the read model returned to callers.
func toCartDto(cart *store.Cart) (*CartDto, error) {
	total, err := ComputeTotal(cart.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total for cart %s: %w", cart.ID, err)
	}
	return &CartDto{
		ID:          cart.ID.String(),
		Items:       toItemDtos(cart.Items),
		TotalAmount: total,
	}, nil
}

func toItemDtos(items []store.ResolvedItem) []CartItemDto {
	dtos := make([]CartItemDto, len(items))
	for i, item := range items {
		dtos[i] = CartItemDto{
			ProductID: item.ProductID.String(),
			Title:     item.Title,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	return dtos
}

func toLineItems(items []store.ResolvedItem) []store.LineItem {
	lineItems := make([]store.LineItem, len(items))
	for i, item := range items {
		lineItems[i] = store.LineItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lineItems
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
