// 按配置表从页面中提取商品名、价格、图片
// 所有字段都允许缺失，缺失时返回空字段而不是错误
package analyzer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
)

var (
	ErrNoHost      = errors.New("url has no host")
	ErrForeignHost = errors.New("url host not served by site")
	ErrNoProductID = errors.New("url carries no product id")
)

type SimpleAnalyzer struct {
	rules Rules
}

func NewSimpleAnalyzer(rules Rules) Analyzer {
	return &SimpleAnalyzer{
		rules: rules,
	}
}

func (a *SimpleAnalyzer) Site() enum.Site {
	return a.rules.Site
}

func (a *SimpleAnalyzer) Sample() *SampleRules {
	return a.rules.Sample
}

func (a *SimpleAnalyzer) CanHandle(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, h := range a.rules.Hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Canonicalize drops query strings and fragments and, for sites with a
// stable product id in the path, reduces the url to {root}{marker}{id}.
// Urls on hosts the site does not serve are rejected, as are urls of
// id-marker sites from which no id can be recovered.
func (a *SimpleAnalyzer) Canonicalize(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	switch {
	case raw == "":
		return "", ErrNoHost
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(raw, "/"):
		raw = a.rules.Root + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrNoHost, rawURL)
	}
	if !a.CanHandle(u.String()) {
		return "", fmt.Errorf("%w: %s %s", ErrForeignHost, a.rules.Site, u.Host)
	}

	if marker := a.rules.IDMarker; marker != "" {
		id := productID(u.Path, marker)
		if id == "" {
			// 广告结果是跳转链接，真实地址在url参数里
			if target, err := url.Parse(u.Query().Get("url")); err == nil {
				id = productID(target.Path, marker)
			}
		}
		if id == "" {
			return "", fmt.Errorf("%w: %s", ErrNoProductID, rawURL)
		}
		return a.rules.Root + marker + id, nil
	}

	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// productID 取marker之后的第一段路径
func productID(path, marker string) string {
	i := strings.Index(path, marker)
	if i < 0 {
		return ""
	}
	id := path[i+len(marker):]
	if j := strings.Index(id, "/"); j >= 0 {
		id = id[:j]
	}
	return id
}

func (a *SimpleAnalyzer) ExtractProductPage(doc *goquery.Document) entity.ProductPage {
	page := entity.ProductPage{
		Site:  a.rules.Site,
		Name:  entity.NewField(pick(doc.Selection, a.rules.Name)),
		Image: entity.NewField(pick(doc.Selection, a.rules.Image)),
	}
	if raw := pick(doc.Selection, a.rules.Price); raw != "" {
		page.Price = NormalizePrice(raw, a.rules.Site)
	}
	return page
}

func (a *SimpleAnalyzer) SearchURL(query string) (string, bool) {
	if a.rules.Listing == nil {
		return "", false
	}
	return fmt.Sprintf(a.rules.Listing.SearchURL, url.QueryEscape(query)), true
}

func (a *SimpleAnalyzer) ExtractSearchListing(doc *goquery.Document, limit int) []entity.SearchResult {
	l := a.rules.Listing
	if l == nil {
		return nil
	}

	var results []entity.SearchResult
	doc.Find(l.Container).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if limit > 0 && i >= limit {
			return false
		}

		name := pick(s, l.Names)
		priceText := pick(s, []Selector{l.Price})
		link := pick(s, l.Links)
		if name == "" || priceText == "" || link == "" {
			return true
		}

		price := ListingPrice(priceText)
		if !price.Valid {
			return true
		}
		canonical, err := a.Canonicalize(link)
		if err != nil {
			return true
		}

		results = append(results, entity.SearchResult{
			Name:  name,
			Price: price.Value,
			Site:  a.rules.Site,
			URL:   canonical,
		})
		return true
	})
	return results
}

// pick 按顺序尝试选择器，返回第一个非空值
func pick(s *goquery.Selection, selectors []Selector) string {
	for _, sel := range selectors {
		found := s.Find(sel.CSS).First()
		if found.Length() == 0 {
			continue
		}
		var v string
		if sel.Attr != "" {
			v, _ = found.Attr(sel.Attr)
		} else {
			v = found.Text()
		}
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
