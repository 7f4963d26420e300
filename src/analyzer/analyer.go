package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
)

// Analyzer extracts product data for one site.
type Analyzer interface {
	Site() enum.Site
	CanHandle(rawURL string) bool
	Canonicalize(rawURL string) (string, error)

	ExtractProductPage(doc *goquery.Document) entity.ProductPage

	// SearchURL 返回false表示该站点不支持搜索
	SearchURL(query string) (string, bool)
	ExtractSearchListing(doc *goquery.Document, limit int) []entity.SearchResult

	Sample() *SampleRules
}

// Registry 保存所有站点的analyzer，按site tag分发
type Registry struct {
	analyzers []Analyzer
	bySite    map[enum.Site]Analyzer
}

func NewRegistry(rules []Rules) *Registry {
	r := &Registry{bySite: make(map[enum.Site]Analyzer)}
	for _, rule := range rules {
		a := NewSimpleAnalyzer(rule)
		r.analyzers = append(r.analyzers, a)
		r.bySite[rule.Site] = a
	}
	return r
}

func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultRules())
}

func (r *Registry) Get(site enum.Site) (Analyzer, bool) {
	a, ok := r.bySite[site]
	return a, ok
}

// Find returns the analyzer whose hosts match the url, or nil.
func (r *Registry) Find(rawURL string) Analyzer {
	for _, a := range r.analyzers {
		if a.CanHandle(rawURL) {
			return a
		}
	}
	return nil
}

func (r *Registry) All() []Analyzer {
	return r.analyzers
}

// ParseDocument turns downloaded content into a goquery document.
func ParseDocument(page entity.PageInfo) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(page.Content))
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.Split(u.Host, ":")[0])
}
