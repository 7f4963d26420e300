package dbstorage

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyi/pricewatch/src/dbstorage/schema"
)

func newTestStorage(t *testing.T) *SimpleDBStorage {
	t.Helper()
	s, err := NewSimpleDBStorage("sqlite3", filepath.Join(t.TempDir(), "catalog.db"), log.New())
	require.NoError(t, err)
	require.NoError(t, s.Sync())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertProductByURLDeduplicates(t *testing.T) {
	s := newTestStorage(t)

	first, created, err := s.UpsertProductByURL(&schema.Product{
		Name: "Phone", URL: "https://www.amazon.in/dp/B0TEST", Site: "Amazon", ImageURL: "a.jpg",
	}, "name", "image_url")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, first.ID)

	second, created, err := s.UpsertProductByURL(&schema.Product{
		Name: "Phone (Blue)", URL: "https://www.amazon.in/dp/B0TEST", Site: "Amazon", ImageURL: "b.jpg",
	}, "name", "image_url")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	products, err := s.ListProducts()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Phone (Blue)", products[0].Name)
	assert.Equal(t, "b.jpg", products[0].ImageURL)
}

func TestUpsertProductKeepsStoredValuesWhenLatestMissing(t *testing.T) {
	s := newTestStorage(t)

	_, _, err := s.UpsertProductByURL(&schema.Product{
		Name: "Shoe", URL: "https://www.ajio.com/p/1", Site: "Ajio", ImageURL: "s.jpg",
	}, "name", "image_url")
	require.NoError(t, err)

	p, created, err := s.UpsertProductByURL(&schema.Product{
		URL: "https://www.ajio.com/p/1", Site: "Ajio",
	}, "name", "image_url")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Shoe", p.Name)
	assert.Equal(t, "s.jpg", p.ImageURL)
}

func TestUpsertProductConcurrentSameURL(t *testing.T) {
	s := newTestStorage(t)

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, _, err := s.UpsertProductByURL(&schema.Product{
				Name: "Kettle", URL: "https://www.flipkart.com/kettle/p/itm1", Site: "Flipkart",
			}, "name")
			errs[i] = err
			if p != nil {
				ids[i] = p.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	products, err := s.ListProducts()
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestMinPriceSinceAndLatest(t *testing.T) {
	s := newTestStorage(t)
	p, _, err := s.UpsertProductByURL(&schema.Product{Name: "Tv", URL: "https://x/tv", Site: "Amazon"})
	require.NoError(t, err)

	now := time.Now()
	_, err = s.AppendPriceHistory(p.ID, 500, now.AddDate(-2, 0, 0))
	require.NoError(t, err)
	_, err = s.AppendPriceHistory(p.ID, 900, now.AddDate(0, -1, 0))
	require.NoError(t, err)
	_, err = s.AppendPriceHistory(p.ID, 1100, now)
	require.NoError(t, err)

	min, ok, err := s.MinPriceSince(p.ID, now.AddDate(0, 0, -365))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 900.0, min)

	latest, err := s.LatestPriceSample(p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1100.0, latest.Price)
	assert.Equal(t, now.Unix(), latest.Time().Unix())

	_, ok, err = s.MinPriceSince(p.ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.LatestPriceSample(p.ID + 100)
	assert.True(t, errors.Is(err, ErrDataNotExist))
}

func TestAlertsLifecycle(t *testing.T) {
	s := newTestStorage(t)
	p, _, err := s.UpsertProductByURL(&schema.Product{Name: "Watch", URL: "https://x/watch", Site: "Myntra"})
	require.NoError(t, err)
	u, err := s.UpsertUser("a@example.com")
	require.NoError(t, err)
	again, err := s.UpsertUser(" a@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	a, created, err := s.SetAlert(u.ID, p.ID, 1000)
	require.NoError(t, err)
	assert.True(t, created)
	// 未触发的提醒只更新目标价格
	b, created, err := s.SetAlert(u.ID, p.ID, 800)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, b.ID)

	recipients, err := s.FindUnnotifiedAlerts(p.ID)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "a@example.com", recipients[0].Email)
	assert.Equal(t, 800.0, recipients[0].Alert.TargetPrice)

	changed, err := s.MarkAlertNotified(a.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.MarkAlertNotified(a.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	recipients, err = s.FindUnnotifiedAlerts(p.ID)
	require.NoError(t, err)
	assert.Empty(t, recipients)

	// 已触发后再设置会新建提醒
	c, created, err := s.SetAlert(u.ID, p.ID, 700)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, c.ID)

	_, _, err = s.SetAlert(u.ID, p.ID+100, 700)
	assert.True(t, errors.Is(err, ErrDataNotExist))
}

func TestSetAlertConcurrentKeepsOnePending(t *testing.T) {
	s := newTestStorage(t)
	p, _, err := s.UpsertProductByURL(&schema.Product{Name: "Fan", URL: "https://x/fan", Site: "Amazon"})
	require.NoError(t, err)
	u, err := s.UpsertUser("c@example.com")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, c, err := s.SetAlert(u.ID, p.ID, float64(1000+i))
			assert.NoError(t, err)
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	recipients, err := s.FindUnnotifiedAlerts(p.ID)
	require.NoError(t, err)
	assert.Len(t, recipients, 1)
}

func TestStorageLogsThroughInjectedLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s, err := NewSimpleDBStorage("sqlite3", filepath.Join(t.TempDir(), "catalog.db"), logger)
	require.NoError(t, err)
	require.NoError(t, s.Sync())
	defer s.Close()

	p, _, err := s.UpsertProductByURL(&schema.Product{Name: "Lamp", URL: "https://x/lamp", Site: "Ajio"})
	require.NoError(t, err)

	// 提醒的用户不存在
	tx, err := s.NewTransaction()
	require.NoError(t, err)
	require.NoError(t, tx.InsertAlert(&schema.PriceAlert{UserID: 404, ProductID: p.ID, TargetPrice: 10}))
	require.NoError(t, tx.Commit())
	tx.Close()

	recipients, err := s.FindUnnotifiedAlerts(p.ID)
	require.NoError(t, err)
	assert.Empty(t, recipients)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "alert owner missing, skip", hook.LastEntry().Message)
}

func TestDeleteProductCascades(t *testing.T) {
	s := newTestStorage(t)
	p, _, err := s.UpsertProductByURL(&schema.Product{Name: "Bag", URL: "https://x/bag", Site: "Ajio"})
	require.NoError(t, err)
	_, err = s.AppendPriceHistory(p.ID, 100, time.Now())
	require.NoError(t, err)
	u, err := s.UpsertUser("b@example.com")
	require.NoError(t, err)
	_, _, err = s.SetAlert(u.ID, p.ID, 90)
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(p.ID))

	_, err = s.GetProduct(p.ID)
	assert.True(t, errors.Is(err, ErrDataNotExist))
	history, err := s.PriceHistory(p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	alerts, err := s.AlertsOfProduct(p.ID)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	assert.True(t, errors.Is(s.DeleteProduct(p.ID), ErrDataNotExist))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.True(t, IsUniqueViolation(ErrDataExist))
}
