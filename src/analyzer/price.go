package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/enum"
)

var (
	// Rs. 必须排在 Rs 之前，否则会残留 "."
	priceReplacer = strings.NewReplacer(
		"₹", "",
		"Rs.", "",
		"Rs", "",
		"INR", "",
		",", "",
		" ", "",
		"\u00a0", "",
		"\n", "",
		"\t", "",
	)

	wholeDigitsRe = regexp.MustCompile(`^\d+$`)
	decimalRe     = regexp.MustCompile(`^\d+(\.\d+)?$`)
	firstDigitsRe = regexp.MustCompile(`\d+`)
)

// 这些站点把价格渲染成不带小数点的整数串（如 "123499" 代表 1234.99）
var wholeAmountSites = map[enum.Site]bool{
	enum.SiteAmazon: true,
}

// 超过该长度的整数串按 digits/100 解释
const wholeAmountMaxDigits = 4

func cleanPriceText(raw string) string {
	return strings.TrimSpace(priceReplacer.Replace(raw))
}

// NormalizePrice converts currency formatted text into an amount using the
// decimal conventions of the given site. It never fails: text that does not
// hold a positive number yields an invalid Price.
func NormalizePrice(raw string, site enum.Site) entity.Price {
	cleaned := cleanPriceText(raw)
	if cleaned == "" {
		return entity.Price{}
	}

	if wholeAmountSites[site] {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		if !wholeDigitsRe.MatchString(cleaned) {
			return entity.Price{}
		}
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return entity.Price{}
		}
		if len(cleaned) > wholeAmountMaxDigits {
			v = v / 100
		}
		return positive(v)
	}

	if !decimalRe.MatchString(cleaned) {
		return entity.Price{}
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return entity.Price{}
	}
	return positive(v)
}

// ListingPrice takes the first run of digits of a search listing price.
// Listings show whole currency units, so no fractional part is read.
func ListingPrice(raw string) entity.Price {
	m := firstDigitsRe.FindString(cleanPriceText(raw))
	if m == "" {
		return entity.Price{}
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return entity.Price{}
	}
	return positive(v)
}

func positive(v float64) entity.Price {
	if v <= 0 {
		return entity.Price{}
	}
	return entity.NewPrice(v)
}
