// 数据库表
// products.url 是唯一去重键，price_samples 只追加不修改
package schema

import (
	"time"
)

type Product struct {
	ID        int64     `xorm:"bigint pk autoincr 'id'"`
	Name      string    `xorm:"varchar(255) notnull 'name'"`
	URL       string    `xorm:"varchar(2048) notnull unique(uk_url) 'url'"`
	Site      string    `xorm:"varchar(50) notnull 'site'"`
	ImageURL  string    `xorm:"varchar(2048) 'image_url'"`
	CreatedAt time.Time `xorm:"created notnull 'created_at'"`
	UpdatedAt time.Time `xorm:"updated notnull 'updated_at'"`
}

func (p *Product) TableName() string {
	return "products"
}

// PriceSample 记录一次价格观测，CheckedAt 为unix秒，便于跨数据库做区间比较
type PriceSample struct {
	ID        int64   `xorm:"bigint pk autoincr 'id'"`
	ProductID int64   `xorm:"bigint notnull index(idx_sample_product) 'product_id'"`
	Price     float64 `xorm:"double notnull 'price'"`
	CheckedAt int64   `xorm:"bigint notnull index(idx_sample_product) 'checked_at'"`
}

func (s *PriceSample) TableName() string {
	return "price_samples"
}

func (s *PriceSample) Time() time.Time {
	return time.Unix(s.CheckedAt, 0)
}

type User struct {
	ID        int64     `xorm:"bigint pk autoincr 'id'"`
	Email     string    `xorm:"varchar(254) notnull unique(uk_email) 'email'"`
	CreatedAt time.Time `xorm:"created notnull 'created_at'"`
}

func (u *User) TableName() string {
	return "users"
}

// PriceAlert 的 notified 只会从false变为true一次
type PriceAlert struct {
	ID          int64     `xorm:"bigint pk autoincr 'id'"`
	UserID      int64     `xorm:"bigint notnull index 'user_id'"`
	ProductID   int64     `xorm:"bigint notnull index 'product_id'"`
	TargetPrice float64   `xorm:"double notnull 'target_price'"`
	Notified    bool      `xorm:"bool notnull 'notified'"`
	CreatedAt   time.Time `xorm:"created notnull 'created_at'"`
	UpdatedAt   time.Time `xorm:"updated notnull 'updated_at'"`
}

func (a *PriceAlert) TableName() string {
	return "price_alerts"
}

func Tables() []interface{} {
	return []interface{}{
		new(Product),
		new(PriceSample),
		new(User),
		new(PriceAlert),
	}
}
