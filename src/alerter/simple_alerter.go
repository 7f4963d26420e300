// 提醒只在同时满足两个条件时触发：
// 当前价格不高于近365天最低价，且不高于用户设置的目标价
// 每条提醒只触发一次，notified置为true后不再处理
package alerter

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
	"github.com/andrewyi/pricewatch/src/enum"
	"github.com/andrewyi/pricewatch/src/metrics"
	"github.com/andrewyi/pricewatch/src/notifier"
	"github.com/andrewyi/pricewatch/src/util"
)

const Subject = "Price Drop Alert!"

type SimpleAlerter struct {
	logger   *log.Logger
	store    AlertStore
	notifier notifier.Notifier
	metrics  *metrics.Metrics

	// 同一商品的评估串行执行，避免并发时重复发送
	locks *util.KeyLock
	now   func() time.Time
}

func NewSimpleAlerter(store AlertStore, n notifier.Notifier, m *metrics.Metrics, logger *log.Logger) *SimpleAlerter {
	return &SimpleAlerter{
		logger:   logger,
		store:    store,
		notifier: n,
		metrics:  m,
		locks:    util.NewKeyLock(),
		now:      time.Now,
	}
}

func Message(product *schema.Product, price float64) string {
	return fmt.Sprintf("The product %s has dropped to ₹%v. Visit: %s", product.Name, price, product.URL)
}

func (a *SimpleAlerter) Evaluate(ctx context.Context, product *schema.Product, observed float64) (int, error) {
	unlock := a.locks.Lock(fmt.Sprint(product.ID))
	defer unlock()

	logger := a.logger.WithField("product", product.ID).WithField("price", observed)

	since := a.now().AddDate(0, 0, -enum.TrailingWindowDays)
	trailingMin, ok, err := a.store.MinPriceSince(product.ID, since)
	if err != nil {
		return 0, fmt.Errorf("trailing minimum of product %d: %w", product.ID, err)
	}
	if !ok {
		trailingMin = observed
	}
	if observed > trailingMin {
		logger.WithField("trailing_min", trailingMin).Debug("price above trailing minimum, no alert")
		return 0, nil
	}

	recipients, err := a.store.FindUnnotifiedAlerts(product.ID)
	if err != nil {
		return 0, fmt.Errorf("alerts of product %d: %w", product.ID, err)
	}

	body := Message(product, observed)
	fired := 0
	for _, r := range recipients {
		if observed > r.Alert.TargetPrice {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fired, err
		}

		alertLogger := logger.WithField("alert", r.Alert.ID).WithField("to", r.Email)
		if err := a.notifier.Send(ctx, r.Email, Subject, body); err != nil {
			// 发送失败保留未通知状态，下次刷新时再试
			alertLogger.WithError(err).Error("fail to send alert")
			a.metrics.Alert(false)
			continue
		}

		changed, err := a.store.MarkAlertNotified(r.Alert.ID)
		if err != nil {
			return fired, fmt.Errorf("mark alert %d notified: %w", r.Alert.ID, err)
		}
		if !changed {
			alertLogger.Warn("alert already notified elsewhere")
			continue
		}
		alertLogger.WithField("target", r.Alert.TargetPrice).Info("alert fired")
		a.metrics.Alert(true)
		fired++
	}
	return fired, nil
}
