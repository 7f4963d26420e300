package controller

import (
	"context"
	"time"

	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
)

// Controller refreshes one product from its page.
type Controller interface {
	// Refresh 返回nil product和无效price表示没有拿到价格，此时不做任何持久化
	Refresh(ctx context.Context, productURL string, site enum.Site) (*schema.Product, entity.Price, error)
}

// ProductStore is the part of the catalog store a refresh writes to.
type ProductStore interface {
	UpsertProductByURL(p *schema.Product, cols ...string) (*schema.Product, bool, error)
	AppendPriceHistory(productID int64, price float64, at time.Time) (*schema.PriceSample, error)
}
