package controller

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/andrewyi/pricewatch/src/analyzer"
	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
	"github.com/andrewyi/pricewatch/src/downloader"
	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
	"github.com/andrewyi/pricewatch/src/filestorage"
	"github.com/andrewyi/pricewatch/src/metrics"
	"github.com/andrewyi/pricewatch/src/util"
)

type SimpleController struct {
	logger *log.Logger

	registry *analyzer.Registry
	download downloader.Downloader
	store    ProductStore
	file     filestorage.FileStorage
	metrics  *metrics.Metrics

	// 同一url的upsert+append串行执行
	locks *util.KeyLock
	now   func() time.Time
}

func NewSimpleController(
	registry *analyzer.Registry,
	d downloader.Downloader,
	store ProductStore,
	file filestorage.FileStorage,
	m *metrics.Metrics,
	logger *log.Logger,
) *SimpleController {
	if file == nil {
		file = filestorage.NewSimpleFileStorage("")
	}
	return &SimpleController{
		logger:   logger,
		registry: registry,
		download: d,
		store:    store,
		file:     file,
		metrics:  m,
		locks:    util.NewKeyLock(),
		now:      time.Now,
	}
}

func (c *SimpleController) Refresh(ctx context.Context, productURL string, site enum.Site) (*schema.Product, entity.Price, error) {
	logger := c.logger.WithField("url", productURL).WithField("site", site)

	a, ok := c.registry.Get(site)
	if !ok {
		logger.Warn("unsupported site, skip")
		c.metrics.Refresh(metrics.RefreshUnsupported)
		return nil, entity.Price{}, nil
	}

	canonical, err := a.Canonicalize(productURL)
	if err != nil {
		// 非致命错误，没有可用的url就不会有价格
		logger.WithError(err).Warn("fail to canonicalize url")
		c.metrics.Refresh(metrics.RefreshNoPrice)
		return nil, entity.Price{}, nil
	}

	page := c.download.Download(ctx, productURL)
	c.metrics.Fetch(site.String(), page.OK())
	if !page.OK() {
		logger.WithField("status", page.StatusCode).WithField("remark", page.Remark).Warn("fail to fetch product page")
		c.metrics.Refresh(metrics.RefreshNoPrice)
		return nil, entity.Price{}, nil
	}

	pp := c.extract(a, page, logger)
	c.metrics.Extraction(site.String(), pp.Price.Valid)
	if !pp.Price.Valid {
		logger.WithField("name_found", pp.Name.Found).Info("no price on page")
		if fp, err := c.file.Store(page); err != nil {
			logger.WithError(err).Error("fail to store page snapshot")
		} else if fp != "" {
			logger.WithField("file", fp).Debug("page snapshot stored")
		}
		c.metrics.Refresh(metrics.RefreshNoPrice)
		return nil, entity.Price{}, nil
	}

	unlock := c.locks.Lock(canonical)
	defer unlock()

	product, created, err := c.store.UpsertProductByURL(&schema.Product{
		Name:     pp.Name.Value,
		URL:      canonical,
		Site:     site.String(),
		ImageURL: pp.Image.Value,
	}, "name", "image_url")
	if err != nil {
		c.metrics.Refresh(metrics.RefreshError)
		return nil, entity.Price{}, fmt.Errorf("upsert product %s: %w", canonical, err)
	}

	if _, err := c.store.AppendPriceHistory(product.ID, pp.Price.Value, c.now()); err != nil {
		c.metrics.Refresh(metrics.RefreshError)
		return nil, entity.Price{}, fmt.Errorf("append price of product %d: %w", product.ID, err)
	}

	logger.WithField("product", product.ID).WithField("created", created).WithField("price", pp.Price.Value).Info("price refreshed")
	c.metrics.Refresh(metrics.RefreshUpdated)
	return product, pp.Price, nil
}

// extract 解析失败视为整页提取失败，返回全空的结果
func (c *SimpleController) extract(a analyzer.Analyzer, page entity.PageInfo, logger *log.Entry) entity.ProductPage {
	doc, err := analyzer.ParseDocument(page)
	if err != nil {
		logger.WithError(err).Warn("fail to parse product page")
		return entity.ProductPage{URL: page.URL, Site: a.Site()}
	}
	pp := a.ExtractProductPage(doc)
	pp.URL = page.URL
	return pp
}
