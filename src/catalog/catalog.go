// 用户侧的商品目录操作：保存搜索结果、设置提醒、删除、列出
// 输入不合法时返回 *ValidationError，调用方据此给出提示而不是直接失败
package catalog

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/andrewyi/pricewatch/src/analyzer"
	"github.com/andrewyi/pricewatch/src/dbstorage"
	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

type Store interface {
	UpsertProductByURL(p *schema.Product, cols ...string) (*schema.Product, bool, error)
	AppendPriceHistory(productID int64, price float64, at time.Time) (*schema.PriceSample, error)
	UpsertUser(email string) (*schema.User, error)
	SetAlert(userID, productID int64, target float64) (*schema.PriceAlert, bool, error)
	GetProduct(id int64) (*schema.Product, error)
	DeleteProduct(id int64) error
	ListProducts() ([]*schema.Product, error)
	LatestPriceSample(productID int64) (*schema.PriceSample, error)
	MinPriceSince(productID int64, since time.Time) (float64, bool, error)
}

// ProductSummary is a tracked product with its latest and trailing lowest price.
type ProductSummary struct {
	Product *schema.Product
	Latest  entity.Price
	Lowest  entity.Price
}

type Catalog struct {
	logger   *log.Logger
	store    Store
	registry *analyzer.Registry
	now      func() time.Time
}

func NewCatalog(store Store, registry *analyzer.Registry, logger *log.Logger) *Catalog {
	return &Catalog{
		logger:   logger,
		store:    store,
		registry: registry,
		now:      time.Now,
	}
}

// SaveResult tracks a search result: the product is created or its name
// refreshed, and the result price is recorded as a sample.
func (c *Catalog) SaveResult(r entity.SearchResult) (*schema.Product, bool, error) {
	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		return nil, false, invalid("name", "required")
	case strings.TrimSpace(r.URL) == "":
		return nil, false, invalid("url", "required")
	case r.Site == "":
		return nil, false, invalid("site", "required")
	case r.Price <= 0:
		return nil, false, invalid("price", "must be positive")
	case r.Sample:
		// 示例结果的价格是编造的
		return nil, false, invalid("sample", "placeholder results cannot be saved")
	}

	a, ok := c.registry.Get(r.Site)
	if !ok {
		return nil, false, invalid("site", fmt.Sprintf("unsupported site %q", r.Site))
	}
	canonical, err := a.Canonicalize(r.URL)
	if err != nil {
		return nil, false, invalid("url", err.Error())
	}

	product, created, err := c.store.UpsertProductByURL(&schema.Product{
		Name: name,
		URL:  canonical,
		Site: r.Site.String(),
	}, "name")
	if err != nil {
		return nil, false, fmt.Errorf("save product %s: %w", canonical, err)
	}
	if _, err := c.store.AppendPriceHistory(product.ID, r.Price, c.now()); err != nil {
		return nil, false, fmt.Errorf("record price of product %d: %w", product.ID, err)
	}

	c.logger.WithField("product", product.ID).WithField("created", created).WithField("price", r.Price).Info("search result saved")
	return product, created, nil
}

// SetAlert creates or moves the pending alert of email on the product.
func (c *Catalog) SetAlert(email string, productID int64, target float64) (*schema.PriceAlert, bool, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, false, invalid("email", err.Error())
	}
	if target <= 0 {
		return nil, false, invalid("target_price", "must be positive")
	}

	if _, err := c.store.GetProduct(productID); err != nil {
		if errors.Is(err, dbstorage.ErrDataNotExist) {
			return nil, false, invalid("product", fmt.Sprintf("product %d not found", productID))
		}
		return nil, false, err
	}

	user, err := c.store.UpsertUser(strings.ToLower(addr.Address))
	if err != nil {
		return nil, false, fmt.Errorf("resolve user %s: %w", addr.Address, err)
	}
	alert, created, err := c.store.SetAlert(user.ID, productID, target)
	if err != nil {
		return nil, false, fmt.Errorf("set alert on product %d: %w", productID, err)
	}

	c.logger.WithField("product", productID).WithField("user", user.ID).WithField("target", target).WithField("created", created).Info("alert set")
	return alert, created, nil
}

func (c *Catalog) DeleteProduct(productID int64) error {
	if err := c.store.DeleteProduct(productID); err != nil {
		if errors.Is(err, dbstorage.ErrDataNotExist) {
			return invalid("product", fmt.Sprintf("product %d not found", productID))
		}
		return err
	}
	c.logger.WithField("product", productID).Info("product deleted")
	return nil
}

// ListProducts returns every tracked product, newest first.
func (c *Catalog) ListProducts() ([]ProductSummary, error) {
	products, err := c.store.ListProducts()
	if err != nil {
		return nil, err
	}

	since := c.now().AddDate(0, 0, -enum.TrailingWindowDays)
	summaries := make([]ProductSummary, 0, len(products))
	for _, p := range products {
		s := ProductSummary{Product: p}

		latest, err := c.store.LatestPriceSample(p.ID)
		switch {
		case err == nil:
			s.Latest = entity.NewPrice(latest.Price)
		case !errors.Is(err, dbstorage.ErrDataNotExist):
			return nil, err
		}

		lowest, ok, err := c.store.MinPriceSince(p.ID, since)
		if err != nil {
			return nil, err
		}
		if ok {
			s.Lowest = entity.NewPrice(lowest)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
