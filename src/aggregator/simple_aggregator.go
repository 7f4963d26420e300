// 每个站点一个任务，放入协程池并发抓取
// 单个站点的失败或超时只影响该站点，所有任务结束（或超时）后统一排序返回
package aggregator

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/andrewyi/pricewatch/src/analyzer"
	"github.com/andrewyi/pricewatch/src/downloader"
	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/metrics"
	"github.com/andrewyi/pricewatch/src/routingpool"
	"github.com/andrewyi/pricewatch/src/util"
)

const (
	DefaultLimit      = 5
	DefaultNameLength = 100
)

type Options struct {
	Worker      uint32
	Limit       int
	NameLength  int
	SiteTimeout time.Duration
	// 为没有结果的站点补一条示例结果，只用于演示
	SampleResults bool
}

type SimpleAggregator struct {
	logger   *log.Logger
	registry *analyzer.Registry
	download downloader.Downloader
	metrics  *metrics.Metrics
	opts     Options
}

func NewSimpleAggregator(registry *analyzer.Registry, d downloader.Downloader, m *metrics.Metrics, opts Options, logger *log.Logger) *SimpleAggregator {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.NameLength <= 0 {
		opts.NameLength = DefaultNameLength
	}
	return &SimpleAggregator{
		logger:   logger,
		registry: registry,
		download: d,
		metrics:  m,
		opts:     opts,
	}
}

// collector 保存每个站点的结果，调用方放弃等待后晚到的结果直接丢弃
type collector struct {
	mu     sync.Mutex
	closed bool
	bySite [][]entity.SearchResult
}

func (c *collector) put(i int, results []entity.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.bySite[i] = results
	}
}

func (c *collector) close() [][]entity.SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return c.bySite
}

func (a *SimpleAggregator) Search(ctx context.Context, query string) []entity.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return []entity.SearchResult{}
	}

	analyzers := a.registry.All()
	col := &collector{bySite: make([][]entity.SearchResult, len(analyzers))}

	pool := routingpool.NewSimpleRoutingPool(ctx, a.opts.Worker)
	if err := pool.Start(); err != nil {
		a.logger.WithError(err).Error("fail to start search pool")
		return []entity.SearchResult{}
	}

	for i, an := range analyzers {
		searchURL, ok := an.SearchURL(query)
		if !ok {
			continue
		}
		i, an := i, an
		err := pool.Submit(func(ctx context.Context) {
			col.put(i, a.searchSite(ctx, an, searchURL))
		})
		if err != nil {
			a.logger.WithError(err).WithField("site", an.Site()).Warn("search task not submitted")
			break
		}
	}
	pool.Close()

	select {
	case <-pool.Done():
	case <-ctx.Done():
		// 已开始的抓取在后台结束后被丢弃
		a.logger.WithError(ctx.Err()).WithField("query", query).Warn("search abandoned")
	}

	bySite := col.close()
	if a.opts.SampleResults {
		a.addSamples(query, analyzers, bySite)
	}

	merged := make([]entity.SearchResult, 0)
	for _, results := range bySite {
		merged = append(merged, results...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Price < merged[j].Price
	})
	return merged
}

// searchSite 任何失败都视为该站点没有结果
func (a *SimpleAggregator) searchSite(ctx context.Context, an analyzer.Analyzer, searchURL string) []entity.SearchResult {
	if a.opts.SiteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.SiteTimeout)
		defer cancel()
	}
	logger := a.logger.WithField("site", an.Site()).WithField("url", searchURL)

	page := a.download.Download(ctx, searchURL)
	a.metrics.Fetch(an.Site().String(), page.OK())
	if !page.OK() {
		logger.WithField("status", page.StatusCode).WithField("remark", page.Remark).Warn("fail to fetch search page")
		return nil
	}

	doc, err := analyzer.ParseDocument(page)
	if err != nil {
		logger.WithError(err).Warn("fail to parse search page")
		return nil
	}

	results := an.ExtractSearchListing(doc, a.opts.Limit)
	for i := range results {
		results[i].Name = util.Truncate(results[i].Name, a.opts.NameLength)
	}
	a.metrics.Listing(an.Site().String(), len(results))
	logger.WithField("count", len(results)).Debug("search page extracted")
	return results
}

func (a *SimpleAggregator) addSamples(query string, analyzers []analyzer.Analyzer, bySite [][]entity.SearchResult) {
	title := cases.Title(language.Und).String(query)
	for i, an := range analyzers {
		sample := an.Sample()
		if sample == nil || len(bySite[i]) != 0 {
			continue
		}
		bySite[i] = []entity.SearchResult{{
			Name:   util.Truncate(fmt.Sprintf("%s - Sample %s Product", title, an.Site()), a.opts.NameLength),
			Price:  sample.Price,
			Site:   an.Site(),
			URL:    fmt.Sprintf(sample.URL, url.PathEscape(query)),
			Sample: true,
		}}
	}
}
