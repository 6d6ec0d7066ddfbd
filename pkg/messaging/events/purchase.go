package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mkarev/storefront/pkg/messaging"
)

// PurchaseCompletedEvent carries everything the notification collaborator
// needs to confirm a purchase to the shopper: the confirmed line items, the
// charged total, and the products that were dropped at reconciliation.
type PurchaseCompletedEvent struct {
	PurchaseID       uuid.UUID       `json:"purchase_id"`
	CartID           uuid.UUID       `json:"cart_id"`
	Purchaser        string          `json:"purchaser"`
	Items            []PurchasedItem `json:"items"`
	TotalAmount      int64           `json:"total_amount"`
	FailedProductIDs []uuid.UUID     `json:"failed_product_ids,omitempty"`
	CompletedAt      time.Time       `json:"completed_at"`
}

type PurchasedItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	UnitPrice int64     `json:"unit_price"`
	Quantity  int32     `json:"quantity"`
}

func (e PurchaseCompletedEvent) Subject() string {
	return messaging.PurchasesCompletedSubject
}

func (e PurchaseCompletedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
