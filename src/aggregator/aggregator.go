package aggregator

import (
	"context"

	"github.com/andrewyi/pricewatch/src/entity"
)

// Aggregator searches every site that supports search and merges the listings.
type Aggregator interface {
	// Search 返回按价格升序的结果，部分或全部站点失败时返回能拿到的部分，不返回错误
	Search(ctx context.Context, query string) []entity.SearchResult
}
