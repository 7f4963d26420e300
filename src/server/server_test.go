package server

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyi/pricewatch/src/catalog"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("log:\n  level: error\ndatabase:\n  driver: sqlite3\n  url: %s\n",
		filepath.Join(dir, "pricewatch.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run 每次用新的Server执行一条命令，和命令行多次调用一致
func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	s := NewServer()
	s.registerer = prometheus.NewRegistry()
	var out bytes.Buffer
	s.out = &out
	defer s.Stop()

	err := NewApp(s).Run(append([]string{"pricewatch", "-c", configPath}, args...))
	return out.String(), err
}

func TestCatalogCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "save", "--name", "Yoga Mat", "--url", "https://www.ajio.com/yoga-mat/p/77?src=ad", "--site", "ajio", "--price", "1299")
	require.NoError(t, err)
	assert.Contains(t, out, "Product saved successfully! (id 1)")

	out, err = run(t, cfg, "save", "--name", "Yoga Mat", "--url", "https://www.ajio.com/yoga-mat/p/77", "--site", "Ajio", "--price", "1199")
	require.NoError(t, err)
	assert.Contains(t, out, "Product already exists. Price updated!")

	out, err = run(t, cfg, "alert", "--email", "me@example.com", "--product", "1", "--target", "999")
	require.NoError(t, err)
	assert.Contains(t, out, "Price alert set at ₹999")

	out, err = run(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Yoga Mat")
	assert.Contains(t, out, "https://www.ajio.com/yoga-mat/p/77")
	assert.Contains(t, out, "₹1199")

	out, err = run(t, cfg, "delete", "--product", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Product 1 deleted")

	_, err = run(t, cfg, "delete", "--product", "1")
	assert.True(t, catalog.IsValidationError(err))
}

func TestSaveRejectsUnknownSite(t *testing.T) {
	_, err := run(t, writeConfig(t), "save", "--name", "x", "--url", "https://x.example/p", "--site", "ebay", "--price", "10")
	assert.True(t, catalog.IsValidationError(err))
}

func TestRefreshEmptyCatalog(t *testing.T) {
	out, err := run(t, writeConfig(t), "refresh")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 0 products: 0 updated, 0 failed, 0 alerts sent")
}
