package enum

import (
	"fmt"
	"strings"
)

const (
	// state of a fetched page
	PageStatePending = 0
	PageStateSuccess = 1
	PageStateFail    = 2

	// days covered by the trailing minimum
	TrailingWindowDays = 365
)

// Site is the closed set of retail sites the tracker understands.
type Site string

const (
	SiteAmazon   Site = "Amazon"
	SiteFlipkart Site = "Flipkart"
	SiteMyntra   Site = "Myntra"
	SiteAjio     Site = "Ajio"
)

// Sites lists every supported site in display order.
var Sites = []Site{SiteAmazon, SiteFlipkart, SiteMyntra, SiteAjio}

func (s Site) String() string {
	return string(s)
}

func (s Site) Valid() bool {
	for _, v := range Sites {
		if v == s {
			return true
		}
	}
	return false
}

// ParseSite accepts a site tag in any letter case.
func ParseSite(tag string) (Site, error) {
	tag = strings.TrimSpace(tag)
	for _, v := range Sites {
		if strings.EqualFold(string(v), tag) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported site %q", tag)
}
