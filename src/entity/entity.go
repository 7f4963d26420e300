package entity

import (
	"github.com/andrewyi/pricewatch/src/enum"
)

// 保存了下载的内容
type PageInfo struct {
	URL        string
	State      uint32 // enum.PageState*
	StatusCode int
	Remark     string // error description, if any
	Content    string
}

func (p PageInfo) OK() bool {
	return p.State == enum.PageStateSuccess
}

// Price is an extracted amount; Valid is false when nothing numeric was found.
type Price struct {
	Value float64
	Valid bool
}

func NewPrice(v float64) Price {
	return Price{Value: v, Valid: true}
}

// Field is an extracted text value; Found is false when no selector matched.
type Field struct {
	Value string
	Found bool
}

func NewField(v string) Field {
	return Field{Value: v, Found: v != ""}
}

// ProductPage holds what a single product page yielded.
type ProductPage struct {
	URL   string
	Site  enum.Site
	Name  Field
	Price Price
	Image Field
}

// SearchResult is a transient listing returned by a search, never persisted as such.
type SearchResult struct {
	Name   string    `json:"name"`
	Price  float64   `json:"price"`
	Site   enum.Site `json:"site"`
	URL    string    `json:"url"`
	Sample bool      `json:"sample,omitempty"`
}
