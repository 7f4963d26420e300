package downloader

import (
	"context"

	"github.com/andrewyi/pricewatch/src/entity"
)

type Downloader interface {
	Download(ctx context.Context, url string) entity.PageInfo
}
