package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/andrewyi/pricewatch/src/aggregator"
	"github.com/andrewyi/pricewatch/src/alerter"
	"github.com/andrewyi/pricewatch/src/analyzer"
	"github.com/andrewyi/pricewatch/src/catalog"
	"github.com/andrewyi/pricewatch/src/config"
	"github.com/andrewyi/pricewatch/src/controller"
	"github.com/andrewyi/pricewatch/src/core"
	"github.com/andrewyi/pricewatch/src/dbstorage"
	"github.com/andrewyi/pricewatch/src/downloader"
	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
	"github.com/andrewyi/pricewatch/src/filestorage"
	"github.com/andrewyi/pricewatch/src/metrics"
	"github.com/andrewyi/pricewatch/src/notifier"
)

type Server struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
	config *config.Config
	out    io.Writer

	registerer prometheus.Registerer

	registry  *analyzer.Registry
	download  downloader.Downloader
	metrics   *metrics.Metrics
	dbStorage *dbstorage.SimpleDBStorage
}

func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ctx:        ctx,
		cancel:     cancel,
		out:        os.Stdout,
		registerer: prometheus.DefaultRegisterer,
	}
}

func (s *Server) initLog() {
	var logger = log.New()
	logger.SetFormatter(&log.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	// 日志走stderr，stdout留给命令输出
	logger.SetOutput(os.Stderr)

	if s.config.Log.Context {
		logger.SetReportCaller(true)
	}

	if logLevel, err := log.ParseLevel(s.config.Log.Level); err != nil {
		logger.SetLevel(log.InfoLevel)
	} else {
		logger.SetLevel(logLevel)
	}
	s.logger = logger
}

// Before 在所有命令之前执行：读取配置、初始化日志和公共组件
// 数据库只在需要的命令中打开
func (s *Server) Before(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.GlobalString("config"))
	if err != nil {
		return err
	}
	s.config = cfg

	s.initLog()

	s.registry = analyzer.NewDefaultRegistry()
	s.download = downloader.NewSimpleDownloader(
		time.Duration(cfg.Downloader.Timeout)*time.Second,
		time.Duration(cfg.Downloader.Backoff)*time.Millisecond,
		cfg.Downloader.Retry,
		cfg.Downloader.UserAgent,
	)
	s.metrics = metrics.New(s.registerer)

	// 收到中断信号时取消正在进行的操作
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-c:
			s.logger.Warn("interrupt signal, server gonna stop")
			s.cancel()
		case <-s.ctx.Done():
		}
	}()
	return nil
}

func (s *Server) openStorage() (*dbstorage.SimpleDBStorage, error) {
	if s.dbStorage != nil {
		return s.dbStorage, nil
	}
	dbStorage, err := dbstorage.NewSimpleDBStorage(s.config.Database.Driver, s.config.Database.URL, s.logger)
	if err != nil {
		return nil, fmt.Errorf("fail to create dbstorage handler: %w", err)
	}
	if err := dbStorage.Sync(); err != nil {
		dbStorage.Close()
		return nil, fmt.Errorf("fail to sync tables: %w", err)
	}
	s.dbStorage = dbStorage
	return dbStorage, nil
}

func (s *Server) newRefresher() (*core.Refresher, error) {
	dbStorage, err := s.openStorage()
	if err != nil {
		return nil, err
	}
	n, err := notifier.New(s.config, s.logger)
	if err != nil {
		return nil, err
	}

	c := controller.NewSimpleController(s.registry, s.download, dbStorage,
		filestorage.NewSimpleFileStorage(s.config.Storage.Location), s.metrics, s.logger)
	a := alerter.NewSimpleAlerter(dbStorage, n, s.metrics, s.logger)
	return core.NewRefresher(dbStorage, c, a, s.config.Refresh.Worker, s.logger), nil
}

func (s *Server) newCatalog() (*catalog.Catalog, error) {
	dbStorage, err := s.openStorage()
	if err != nil {
		return nil, err
	}
	return catalog.NewCatalog(dbStorage, s.registry, s.logger), nil
}

// Refresh 刷新所有商品一次
func (s *Server) Refresh(ctx *cli.Context) error {
	r, err := s.newRefresher()
	if err != nil {
		return err
	}
	report, err := r.RefreshAll(s.ctx)
	if err != nil {
		return err
	}
	s.printReport(report)
	return nil
}

// Watch 按计划定时刷新，直到收到中断信号
func (s *Server) Watch(ctx *cli.Context) error {
	r, err := s.newRefresher()
	if err != nil {
		return err
	}

	if addr := s.config.Metrics.Listen; addr != "" {
		handler := promhttp.Handler()
		if g, ok := s.registerer.(prometheus.Gatherer); ok {
			handler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.WithError(err).WithField("listen", addr).Error("metrics server stopped")
			}
		}()
		defer srv.Close()
		s.logger.WithField("listen", addr).Info("metrics served")
	}

	return core.CreateRefreshSchedule(s.ctx, r, s.config.Refresh.Schedule)
}

func (s *Server) Search(ctx *cli.Context) error {
	query := strings.Join(ctx.Args(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search needs a query")
	}

	cfg := s.config
	// 单个站点的等待上限：每次下载的超时加上一次重试和退避
	siteTimeout := time.Duration(cfg.Downloader.Timeout)*time.Second*time.Duration(cfg.Downloader.Retry+1) +
		time.Duration(cfg.Downloader.Backoff)*time.Millisecond
	a := aggregator.NewSimpleAggregator(s.registry, s.download, s.metrics, aggregator.Options{
		Worker:        cfg.Search.Worker,
		Limit:         cfg.Search.Limit,
		NameLength:    cfg.Search.NameLength,
		SiteTimeout:   siteTimeout,
		SampleResults: cfg.Search.SampleResults || ctx.Bool("samples"),
	}, s.logger)

	results := a.Search(s.ctx, query)
	if ctx.Bool("json") {
		return s.printJSON(results)
	}
	s.printResults(results)
	return nil
}

func (s *Server) Save(ctx *cli.Context) error {
	c, err := s.newCatalog()
	if err != nil {
		return err
	}
	site, err := enum.ParseSite(ctx.String("site"))
	if err != nil {
		return &catalog.ValidationError{Field: "site", Reason: err.Error()}
	}
	p, created, err := c.SaveResult(entity.SearchResult{
		Name:  ctx.String("name"),
		URL:   ctx.String("url"),
		Site:  site,
		Price: ctx.Float64("price"),
	})
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(s.out, "Product saved successfully! (id %d)\n", p.ID)
	} else {
		fmt.Fprintf(s.out, "Product already exists. Price updated! (id %d)\n", p.ID)
	}
	return nil
}

func (s *Server) Alert(ctx *cli.Context) error {
	c, err := s.newCatalog()
	if err != nil {
		return err
	}
	target := ctx.Float64("target")
	a, created, err := c.SetAlert(ctx.String("email"), ctx.Int64("product"), target)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(s.out, "Price alert set at ₹%v (alert %d)\n", target, a.ID)
	} else {
		fmt.Fprintf(s.out, "Price alert updated to ₹%v (alert %d)\n", target, a.ID)
	}
	return nil
}

func (s *Server) Delete(ctx *cli.Context) error {
	c, err := s.newCatalog()
	if err != nil {
		return err
	}
	id := ctx.Int64("product")
	if err := c.DeleteProduct(id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Product %d deleted\n", id)
	return nil
}

func (s *Server) List(ctx *cli.Context) error {
	c, err := s.newCatalog()
	if err != nil {
		return err
	}
	summaries, err := c.ListProducts()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSITE\tLATEST\tLOWEST\tNAME\tURL")
	for _, sum := range summaries {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", sum.Product.ID, sum.Product.Site,
			formatPrice(sum.Latest), formatPrice(sum.Lowest), sum.Product.Name, sum.Product.URL)
	}
	return w.Flush()
}

func (s *Server) Seed(ctx *cli.Context) error {
	r, err := s.newRefresher()
	if err != nil {
		return err
	}
	file := ctx.String("file")
	if file == "" {
		return errors.New("seed needs --file")
	}
	report, err := r.ImportSeed(s.ctx, s.registry, file)
	if err != nil {
		return err
	}
	s.printReport(report)
	return nil
}

func (s *Server) printReport(r core.Report) {
	fmt.Fprintf(s.out, "Processed %d products: %d updated, %d failed, %d alerts sent\n",
		r.Total, r.Updated, r.Failed, r.AlertsFired)
}

func (s *Server) printResults(results []entity.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(s.out, "No results")
		return
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRICE\tSITE\tNAME\tURL")
	for _, r := range results {
		name := r.Name
		if r.Sample {
			name += " (sample)"
		}
		fmt.Fprintf(w, "₹%v\t%s\t%s\t%s\n", r.Price, r.Site, name, r.URL)
	}
	w.Flush()
}

func (s *Server) printJSON(v interface{}) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatPrice(p entity.Price) string {
	if !p.Valid {
		return "-"
	}
	return fmt.Sprintf("₹%v", p.Value)
}

func (s *Server) Stop() {
	s.cancel()
	if s.dbStorage != nil {
		s.dbStorage.Close()
		s.dbStorage = nil
	}
}
