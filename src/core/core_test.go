package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyi/pricewatch/src/analyzer"
	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
)

type staticLister []*schema.Product

func (s staticLister) ListProducts() ([]*schema.Product, error) {
	return s, nil
}

// fakeController 按url返回预设价格，没有预设的返回错误
type fakeController struct {
	mu      sync.Mutex
	prices  map[string]float64
	noPrice map[string]bool
	calls   []string
	onCall  func()
}

func (f *fakeController) Refresh(ctx context.Context, url string, site enum.Site) (*schema.Product, entity.Price, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if f.onCall != nil {
		f.onCall()
	}
	if f.noPrice[url] {
		return nil, entity.Price{}, nil
	}
	price, ok := f.prices[url]
	if !ok {
		return nil, entity.Price{}, errors.New("db down")
	}
	return &schema.Product{URL: url, Site: site.String()}, entity.NewPrice(price), nil
}

type fakeAlerter struct {
	mu        sync.Mutex
	evaluated map[string]float64
}

func (f *fakeAlerter) Evaluate(ctx context.Context, p *schema.Product, observed float64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluated[p.URL] = observed
	if observed < 1000 {
		return 1, nil
	}
	return 0, nil
}

func TestRefreshAllDoesNotAbortOnFailures(t *testing.T) {
	products := staticLister{
		{ID: 1, URL: "https://www.amazon.in/dp/A", Site: "Amazon"},
		{ID: 2, URL: "https://www.flipkart.com/b/p/itm2", Site: "Flipkart"},
		{ID: 3, URL: "https://www.ajio.com/c/p/3", Site: "Ajio"},
		{ID: 4, URL: "https://www.myntra.com/d/4/buy", Site: "Myntra"},
		{ID: 5, URL: "https://shop.example/e", Site: "Example"},
	}
	c := &fakeController{
		prices: map[string]float64{
			"https://www.amazon.in/dp/A":       900,
			"https://www.flipkart.com/b/p/itm2": 1500,
		},
		noPrice: map[string]bool{"https://www.myntra.com/d/4/buy": true},
	}
	a := &fakeAlerter{evaluated: map[string]float64{}}
	r := NewRefresher(products, c, a, 2, log.New())

	report, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Total: 5, Updated: 2, Failed: 3, AlertsFired: 1}, report)
	assert.Len(t, c.calls, 4)
	assert.Equal(t, map[string]float64{
		"https://www.amazon.in/dp/A":       900,
		"https://www.flipkart.com/b/p/itm2": 1500,
	}, a.evaluated)
}

func TestImportSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.txt")
	require.NoError(t, os.WriteFile(path, []byte(`# tracked products
https://www.amazon.in/dp/A

https://www.amazon.in/dp/A
https://www.flipkart.com/b/p/itm2
https://unknown.example/x
`), 0o644))

	c := &fakeController{prices: map[string]float64{
		"https://www.amazon.in/dp/A":       1200,
		"https://www.flipkart.com/b/p/itm2": 1500,
	}}
	r := NewRefresher(staticLister{}, c, &fakeAlerter{evaluated: map[string]float64{}}, 2, log.New())

	report, err := r.ImportSeed(context.Background(), analyzer.NewDefaultRegistry(), path)
	require.NoError(t, err)
	assert.Equal(t, Report{Total: 3, Updated: 2, Failed: 1}, report)
	assert.ElementsMatch(t, []string{"https://www.amazon.in/dp/A", "https://www.flipkart.com/b/p/itm2"}, c.calls)

	_, err = r.ImportSeed(context.Background(), analyzer.NewDefaultRegistry(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRefreshScheduleRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &fakeController{prices: map[string]float64{"https://www.amazon.in/dp/A": 1200}}
	var once sync.Once
	c.onCall = func() { once.Do(cancel) }

	r := NewRefresher(staticLister{{ID: 1, URL: "https://www.amazon.in/dp/A", Site: "Amazon"}},
		c, &fakeAlerter{evaluated: map[string]float64{}}, 1, log.New())

	done := make(chan error, 1)
	go func() { done <- CreateRefreshSchedule(ctx, r, "@every 1h") }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not stop after cancel")
	}
	assert.Len(t, c.calls, 1)
}

func TestRefreshScheduleRejectsBadSpec(t *testing.T) {
	r := NewRefresher(staticLister{}, &fakeController{}, &fakeAlerter{}, 1, log.New())
	assert.Error(t, CreateRefreshSchedule(context.Background(), r, "not a spec"))
}
