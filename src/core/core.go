// 批量刷新：遍历所有商品，刷新价格后评估提醒
// 单个商品失败只记录日志，不中断整个批次
package core

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/andrewyi/pricewatch/src/alerter"
	"github.com/andrewyi/pricewatch/src/controller"
	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
	"github.com/andrewyi/pricewatch/src/enum"
	"github.com/andrewyi/pricewatch/src/routingpool"
)

type ProductLister interface {
	ListProducts() ([]*schema.Product, error)
}

// Report summarises one batch run.
type Report struct {
	Total       int
	Updated     int
	Failed      int
	AlertsFired int
}

type Refresher struct {
	logger     *log.Logger
	store      ProductLister
	controller controller.Controller
	alerter    alerter.Alerter
	worker     uint32
}

func NewRefresher(store ProductLister, c controller.Controller, a alerter.Alerter, worker uint32, logger *log.Logger) *Refresher {
	return &Refresher{
		logger:     logger,
		store:      store,
		controller: c,
		alerter:    a,
		worker:     worker,
	}
}

// target 是一次刷新任务的输入
type target struct {
	url  string
	site enum.Site
}

// RefreshAll refreshes every tracked product.
func (r *Refresher) RefreshAll(ctx context.Context) (Report, error) {
	products, err := r.store.ListProducts()
	if err != nil {
		return Report{}, err
	}

	targets := make([]target, 0, len(products))
	var invalid int
	for _, p := range products {
		site, err := enum.ParseSite(p.Site)
		if err != nil {
			r.logger.WithError(err).WithField("product", p.ID).Error("product has unknown site")
			invalid++
			continue
		}
		targets = append(targets, target{url: p.URL, site: site})
	}

	report := r.run(ctx, targets)
	report.Total += invalid
	report.Failed += invalid

	r.logger.WithField("total", report.Total).
		WithField("updated", report.Updated).
		WithField("failed", report.Failed).
		WithField("alerts", report.AlertsFired).
		Info("refresh batch finished")
	return report, nil
}

func (r *Refresher) run(ctx context.Context, targets []target) Report {
	var (
		mu     sync.Mutex
		report = Report{Total: len(targets)}
	)

	pool := routingpool.NewSimpleRoutingPool(ctx, r.worker)
	if err := pool.Start(); err != nil {
		r.logger.WithError(err).Error("fail to start refresh pool")
		report.Failed = len(targets)
		return report
	}

	for _, t := range targets {
		t := t
		err := pool.Submit(func(ctx context.Context) {
			fired, ok := r.refreshOne(ctx, t)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				report.Updated++
			} else {
				report.Failed++
			}
			report.AlertsFired += fired
		})
		if err != nil {
			r.logger.WithError(err).Warn("refresh batch interrupted")
			break
		}
	}
	pool.Stop()

	mu.Lock()
	defer mu.Unlock()
	// 未提交或因取消被丢弃的任务都计为失败
	report.Failed = report.Total - report.Updated
	return report
}

func (r *Refresher) refreshOne(ctx context.Context, t target) (int, bool) {
	logger := r.logger.WithField("url", t.url).WithField("site", t.site)

	product, price, err := r.controller.Refresh(ctx, t.url, t.site)
	if err != nil {
		logger.WithError(err).Error("refresh failed")
		return 0, false
	}
	if product == nil || !price.Valid {
		logger.Warn("refresh got no price")
		return 0, false
	}

	fired, err := r.alerter.Evaluate(ctx, product, price.Value)
	if err != nil {
		// 价格已经更新，提醒下次再评估
		logger.WithError(err).Error("alert evaluation failed")
	}
	logger.WithField("price", price.Value).WithField("alerts", fired).Info("product refreshed")
	return fired, true
}
