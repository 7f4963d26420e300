package alerter

import (
	"context"
	"time"

	"github.com/andrewyi/pricewatch/src/dbstorage"
	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
)

// Alerter fires the pending alerts of a product against a newly observed price.
type Alerter interface {
	Evaluate(ctx context.Context, product *schema.Product, observed float64) (int, error)
}

// AlertStore is the part of the catalog store alert evaluation needs.
type AlertStore interface {
	MinPriceSince(productID int64, since time.Time) (float64, bool, error)
	FindUnnotifiedAlerts(productID int64) ([]dbstorage.AlertRecipient, error)
	MarkAlertNotified(alertID int64) (bool, error)
}
