// 各站点的选择器配置表
// 页面结构变化时只需要调整这里，按顺序尝试，第一个非空的匹配生效
package analyzer

import (
	"github.com/andrewyi/pricewatch/src/enum"
)

// Selector picks a value out of a document: the text of the first element
// matching CSS, or its Attr attribute when Attr is set.
type Selector struct {
	CSS  string
	Attr string
}

// ListingRules describe a site's search results page.
type ListingRules struct {
	SearchURL string // %s 为转义后的查询词
	Container string
	Names     []Selector
	Price     Selector
	Links     []Selector
}

// SampleRules describe the placeholder listing used when sample results are enabled.
type SampleRules struct {
	URL   string // %s 为转义后的查询词
	Price float64
}

// Rules is the full extraction configuration of one site.
type Rules struct {
	Site  enum.Site
	Root  string
	Hosts []string

	// 形如 /dp/{ASIN} 的稳定商品ID段，空表示该站点没有
	IDMarker string

	Name  []Selector
	Price []Selector
	Image []Selector

	Listing *ListingRules
	Sample  *SampleRules
}

func text(css string) Selector {
	return Selector{CSS: css}
}

func attr(css, name string) Selector {
	return Selector{CSS: css, Attr: name}
}

// DefaultRules returns the built-in rules for every supported site.
func DefaultRules() []Rules {
	return []Rules{
		{
			Site:     enum.SiteAmazon,
			Root:     "https://www.amazon.in",
			Hosts:    []string{"amazon.in", "amzn.in"},
			IDMarker: "/dp/",
			Name:     []Selector{text("span#productTitle")},
			Price:    []Selector{text("span.a-price-whole"), text("span.a-offscreen")},
			Image:    []Selector{attr("img#landingImage", "src")},
			Listing: &ListingRules{
				SearchURL: "https://www.amazon.in/s?k=%s",
				Container: "div[data-component-type='s-search-result']",
				Names: []Selector{
					text("span.a-size-medium"),
					text("span.a-size-base-plus"),
					text("h2 span"),
				},
				Price: text("span.a-price-whole"),
				Links: []Selector{attr("a.a-link-normal", "href"), attr("h2 a", "href")},
			},
		},
		{
			Site:  enum.SiteFlipkart,
			Root:  "https://www.flipkart.com",
			Hosts: []string{"flipkart.com"},
			Name:  []Selector{text("span.B_NuCI"), text("h1.yhB1nd")},
			Price: []Selector{text("div._30jeq3"), text("div._25b18c")},
			Image: []Selector{attr("img._396cs4", "src"), attr("img._2r_T1I", "src")},
			Listing: &ListingRules{
				SearchURL: "https://www.flipkart.com/search?q=%s",
				Container: "div[data-id]",
				Names: []Selector{
					text("a.IRpwTa"),
					text("a.s1Q9rs"),
					text("div._4rR01T"),
					text("a.wjcEIp"),
				},
				Price: text("div._30jeq3, div._25b18c, div._3I9_wc"),
				Links: []Selector{attr("a", "href")},
			},
			Sample: &SampleRules{URL: "https://www.flipkart.com/search?q=%s", Price: 899},
		},
		{
			Site:   enum.SiteMyntra,
			Root:   "https://www.myntra.com",
			Hosts:  []string{"myntra.com"},
			Name:   []Selector{text("h1.pdp-title"), text("h1.pdp-name")},
			Price:  []Selector{text("span.pdp-price"), text("strong.pdp-price")},
			Image:  []Selector{attr("img.image-grid-image", "src")},
			Sample: &SampleRules{URL: "https://www.myntra.com/%s", Price: 1199},
		},
		{
			Site:   enum.SiteAjio,
			Root:   "https://www.ajio.com",
			Hosts:  []string{"ajio.com"},
			Name:   []Selector{text("h1.prod-title"), text("div.prod-title")},
			Price:  []Selector{text("span.prod-sp"), text("div.prod-sp")},
			Image:  []Selector{attr("img.rilrtl-lazy-img", "src")},
			Sample: &SampleRules{URL: "https://www.ajio.com/search/?text=%s", Price: 1099},
		},
	}
}
