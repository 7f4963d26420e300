package dbstorage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
)

// 唯一约束冲突后重试的次数
const conflictRetry = 2

// AlertRecipient is an unnotified alert together with the address to notify.
type AlertRecipient struct {
	Alert *schema.PriceAlert
	Email string
}

// withTransaction runs fn inside a transaction and commits when fn succeeds.
func (s *SimpleDBStorage) withTransaction(fn func(t *Transaction) error) error {
	t, err := s.NewTransaction()
	if err != nil {
		return err
	}
	defer t.Close()

	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// UpsertProductByURL inserts p, or when a product with the same url already
// exists refreshes the given columns on the existing row. Only non-empty
// values overwrite stored ones. created reports whether a new row was made.
func (s *SimpleDBStorage) UpsertProductByURL(p *schema.Product, cols ...string) (*schema.Product, bool, error) {
	var (
		result  *schema.Product
		created bool
		err     error
	)
	for i := 0; i < conflictRetry; i++ {
		err = s.withTransaction(func(t *Transaction) error {
			existing, err := t.GetProductByURL(p.URL)
			switch {
			case err == nil:
				update := refreshColumns(existing, p, cols)
				if len(update) != 0 {
					if err := t.UpdateProduct(existing, update...); err != nil {
						return err
					}
				}
				result, created = existing, false
				return nil
			case errors.Is(err, ErrDataNotExist):
				row := *p
				row.ID = 0
				if err := t.InsertProduct(&row); err != nil {
					return err
				}
				result, created = &row, true
				return nil
			default:
				return err
			}
		})
		if err == nil || !IsUniqueViolation(err) {
			break
		}
		// 另一个写入者先插入了同一url，下一轮按已存在处理
		s.logger.WithError(err).WithField("url", p.URL).Debug("product insert conflict, retrying as update")
	}
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func refreshColumns(existing, latest *schema.Product, cols []string) []string {
	update := make([]string, 0, len(cols))
	for _, col := range cols {
		switch col {
		case "name":
			if latest.Name != "" && latest.Name != existing.Name {
				existing.Name = latest.Name
				update = append(update, col)
			}
		case "image_url":
			if latest.ImageURL != "" && latest.ImageURL != existing.ImageURL {
				existing.ImageURL = latest.ImageURL
				update = append(update, col)
			}
		case "site":
			if latest.Site != "" && latest.Site != existing.Site {
				existing.Site = latest.Site
				update = append(update, col)
			}
		}
	}
	return update
}

func (s *SimpleDBStorage) AppendPriceHistory(productID int64, price float64, at time.Time) (*schema.PriceSample, error) {
	sample := &schema.PriceSample{
		ProductID: productID,
		Price:     price,
		CheckedAt: at.Unix(),
	}
	err := s.withTransaction(func(t *Transaction) error {
		return t.InsertPriceSample(sample)
	})
	if err != nil {
		return nil, err
	}
	return sample, nil
}

// MinPriceSince reports the lowest recorded price at or after since.
// ok is false when the product has no sample in that window.
func (s *SimpleDBStorage) MinPriceSince(productID int64, since time.Time) (min float64, ok bool, err error) {
	err = s.withTransaction(func(t *Transaction) error {
		sample, err := t.GetMinPriceSampleSince(productID, since.Unix())
		if errors.Is(err, ErrDataNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		min, ok = sample.Price, true
		return nil
	})
	return min, ok, err
}

func (s *SimpleDBStorage) LatestPriceSample(productID int64) (*schema.PriceSample, error) {
	var sample *schema.PriceSample
	err := s.withTransaction(func(t *Transaction) error {
		var err error
		sample, err = t.GetLatestPriceSample(productID)
		return err
	})
	return sample, err
}

func (s *SimpleDBStorage) PriceHistory(productID int64) ([]*schema.PriceSample, error) {
	var samples []*schema.PriceSample
	err := s.withTransaction(func(t *Transaction) error {
		var err error
		samples, err = t.GetPriceSamples(productID)
		return err
	})
	return samples, err
}

// FindUnnotifiedAlerts returns every alert on the product that has not fired,
// each joined with its owner's email.
func (s *SimpleDBStorage) FindUnnotifiedAlerts(productID int64) ([]AlertRecipient, error) {
	var recipients []AlertRecipient
	err := s.withTransaction(func(t *Transaction) error {
		alerts, err := t.GetUnnotifiedAlerts(productID)
		if err != nil || len(alerts) == 0 {
			return err
		}

		ids := make([]int64, 0, len(alerts))
		for _, a := range alerts {
			ids = append(ids, a.UserID)
		}
		users, err := t.GetUsersByIDs(ids)
		if err != nil {
			return err
		}
		emails := make(map[int64]string, len(users))
		for _, u := range users {
			emails[u.ID] = u.Email
		}

		recipients = make([]AlertRecipient, 0, len(alerts))
		for _, a := range alerts {
			email, ok := emails[a.UserID]
			if !ok {
				s.logger.WithField("alert", a.ID).WithField("user", a.UserID).Warn("alert owner missing, skip")
				continue
			}
			recipients = append(recipients, AlertRecipient{Alert: a, Email: email})
		}
		return nil
	})
	return recipients, err
}

// MarkAlertNotified is conditional on the alert still being unnotified;
// it reports whether this call performed the transition.
func (s *SimpleDBStorage) MarkAlertNotified(alertID int64) (bool, error) {
	var changed bool
	err := s.withTransaction(func(t *Transaction) error {
		var err error
		changed, err = t.SetAlertNotified(alertID)
		return err
	})
	return changed, err
}

// UpsertUser returns the user with the email, creating it when absent.
func (s *SimpleDBStorage) UpsertUser(email string) (*schema.User, error) {
	email = strings.TrimSpace(email)
	var (
		user *schema.User
		err  error
	)
	for i := 0; i < conflictRetry; i++ {
		err = s.withTransaction(func(t *Transaction) error {
			existing, err := t.GetUserByEmail(email)
			if err == nil {
				user = existing
				return nil
			}
			if !errors.Is(err, ErrDataNotExist) {
				return err
			}
			u := &schema.User{Email: email}
			if err := t.InsertUser(u); err != nil {
				return err
			}
			user = u
			return nil
		})
		if err == nil || !IsUniqueViolation(err) {
			break
		}
	}
	return user, err
}

// SetAlert creates an unnotified alert for the user on the product, or when
// one is still pending moves its target. created reports which happened.
// Calls for the same product are serialized through the product row lock,
// and within the process through a per (user, product) lock.
func (s *SimpleDBStorage) SetAlert(userID, productID int64, target float64) (*schema.PriceAlert, bool, error) {
	unlock := s.alertLocks.Lock(fmt.Sprintf("%d:%d", userID, productID))
	defer unlock()

	var (
		alert   *schema.PriceAlert
		created bool
	)
	err := s.withTransaction(func(t *Transaction) error {
		if _, err := t.LockProductByID(productID); err != nil {
			return err
		}
		existing, err := t.GetUnnotifiedAlertOfUser(userID, productID)
		if err == nil {
			existing.TargetPrice = target
			alert = existing
			return t.UpdateAlertTarget(existing)
		}
		if !errors.Is(err, ErrDataNotExist) {
			return err
		}
		alert = &schema.PriceAlert{
			UserID:      userID,
			ProductID:   productID,
			TargetPrice: target,
		}
		created = true
		return t.InsertAlert(alert)
	})
	if err != nil {
		return nil, false, err
	}
	return alert, created, nil
}

func (s *SimpleDBStorage) AlertsOfProduct(productID int64) ([]*schema.PriceAlert, error) {
	var alerts []*schema.PriceAlert
	err := s.withTransaction(func(t *Transaction) error {
		var err error
		alerts, err = t.GetAlertsOfProduct(productID)
		return err
	})
	return alerts, err
}

func (s *SimpleDBStorage) GetProduct(id int64) (*schema.Product, error) {
	var p *schema.Product
	err := s.withTransaction(func(t *Transaction) error {
		var err error
		p, err = t.GetProductByID(id)
		return err
	})
	return p, err
}

func (s *SimpleDBStorage) FindProductByURL(url string) (*schema.Product, error) {
	var p *schema.Product
	err := s.withTransaction(func(t *Transaction) error {
		var err error
		p, err = t.GetProductByURL(url)
		return err
	})
	return p, err
}

// ListProducts returns all tracked products, newest first.
func (s *SimpleDBStorage) ListProducts() ([]*schema.Product, error) {
	var products []*schema.Product
	err := s.withTransaction(func(t *Transaction) error {
		var err error
		products, err = t.ListProducts()
		return err
	})
	return products, err
}

// DeleteProduct removes the product with its price history and alerts.
func (s *SimpleDBStorage) DeleteProduct(id int64) error {
	return s.withTransaction(func(t *Transaction) error {
		return t.DeleteProduct(id)
	})
}
