package filestorage

import (
	"github.com/andrewyi/pricewatch/src/entity"
)

// FileStorage keeps raw pages on disk for selector maintenance.
type FileStorage interface {
	Store(entity.PageInfo) (string, error)
}
