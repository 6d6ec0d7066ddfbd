package messaging

import (
	"context"
)

// PurchasesCompletedSubject is the subject the notification service subscribes to.
const PurchasesCompletedSubject = "storefront.purchases.completed"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
