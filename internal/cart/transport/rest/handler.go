// Package rest provides HTTP handlers for cart operations.
package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	carterrors "github.com/mkarev/storefront/internal/cart/errors"
	"github.com/mkarev/storefront/internal/cart/service"
	cerrors "github.com/mkarev/storefront/internal/catalog/errors"
	"github.com/mkarev/storefront/pkg/web"
)

type Handler struct {
	service service.CartService
	logger  *slog.Logger
}

// NewHandler creates a new instance of the cart API with the provided service.
func NewHandler(service service.CartService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With("component", "cart_rest"),
	}
}

// RegisterRoutes registers the HTTP routes for cart operations. The auth
// middleware guards the purchase route only; browsing and editing a cart
// needs no identity.
func (h *Handler) RegisterRoutes(r *chi.Mux, authMw func(http.Handler) http.Handler) {
	r.Route("/api/v1/carts", func(r chi.Router) {
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/items", h.Clear)
			r.With(authMw).Post("/purchase", h.Purchase)

			r.Route("/items/{productId}", func(r chi.Router) {
				r.Post("/", h.AddProduct)
				r.Delete("/", h.RemoveOneUnit)
				r.Delete("/all", h.RemoveAllUnits)
			})
		})
	})
}

// Create allocates a new empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)

	cart, err := h.service.CreateCart(r.Context())
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error creating cart", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create cart")
		return
	}
	mLogger.InfoContext(r.Context(), "Cart created successfully", slog.String("ID", cart.ID))
	web.RespondJSON(w, mLogger, http.StatusCreated, cart)
}

// Get retrieves a cart with its resolved line items and total.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	cartID, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to fetch cart", "cart_id", cartID)
	cart, err := h.service.GetCart(r.Context(), cartID)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, cartID, uuid.Nil)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

// AddProduct reserves one unit of the product for the cart.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	cartID, productID, ok := h.parseCartAndProduct(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to add product to cart", "cart_id", cartID, "product_id", productID)
	cart, err := h.service.AddProductToCart(r.Context(), cartID, productID)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, cartID, productID)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

// RemoveOneUnit releases one reserved unit of the product back to stock.
func (h *Handler) RemoveOneUnit(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	cartID, productID, ok := h.parseCartAndProduct(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to remove one unit from cart", "cart_id", cartID, "product_id", productID)
	cart, err := h.service.RemoveOneUnit(r.Context(), cartID, productID)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, cartID, productID)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

// RemoveAllUnits releases the line item's entire quantity back to stock.
func (h *Handler) RemoveAllUnits(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	cartID, productID, ok := h.parseCartAndProduct(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to remove product from cart", "cart_id", cartID, "product_id", productID)
	cart, err := h.service.RemoveAllUnits(r.Context(), cartID, productID)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, cartID, productID)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

// Clear releases every reservation held by the cart and empties it.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	cartID, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to clear cart", "cart_id", cartID)
	cart, err := h.service.ClearCart(r.Context(), cartID)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, cartID, uuid.Nil)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

// Purchase finalizes the cart for the authenticated user.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	cartID, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}
	purchaser, ok := web.GetUser(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to finalize purchase", "cart_id", cartID, "purchaser", purchaser)
	purchase, err := h.service.FinalizePurchase(r.Context(), cartID, purchaser)
	if err != nil {
		h.respondCartError(w, r, mLogger, err, cartID, uuid.Nil)
		return
	}
	mLogger.InfoContext(r.Context(), "Purchase finalized",
		"cart_id", cartID, "purchaser", purchaser, "status", purchase.Status, "total_amount", purchase.TotalAmount)
	web.RespondJSON(w, mLogger, http.StatusOK, purchase)
}

// respondCartError maps service errors to HTTP responses. ErrNoStockAvailable
// is a conflict, not a server failure; inventory drift is deliberately
// reported as an opaque 500.
func (h *Handler) respondCartError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, cartID, productID uuid.UUID) {
	switch {
	case errors.Is(err, carterrors.ErrCartNotFound):
		mLogger.WarnContext(r.Context(), "Cart not found", "cart_id", cartID)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Cart with ID %s not found", cartID))
	case errors.Is(err, cerrors.ErrProductNotFound):
		mLogger.WarnContext(r.Context(), "Product not found", "cart_id", cartID, "product_id", productID)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s not found", productID))
	case errors.Is(err, carterrors.ErrItemNotFound):
		mLogger.WarnContext(r.Context(), "Item not in cart", "cart_id", cartID, "product_id", productID)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s is not in cart %s", productID, cartID))
	case errors.Is(err, carterrors.ErrNoStockAvailable):
		mLogger.InfoContext(r.Context(), "No stock available", "cart_id", cartID, "product_id", productID)
		web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Product with ID %s has no stock available", productID))
	case errors.Is(err, carterrors.ErrInvalidInput):
		mLogger.WarnContext(r.Context(), "Invalid cart input", "cart_id", cartID, "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request")
	default:
		mLogger.ErrorContext(r.Context(), "Cart operation failed", "cart_id", cartID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
	}
}

// parseCartAndProduct extracts the cart and product IDs from the path.
func (h *Handler) parseCartAndProduct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger) (uuid.UUID, uuid.UUID, bool) {
	cartID, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	productID, ok := web.ParseID(w, r, mLogger, "productId")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return cartID, productID, true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
