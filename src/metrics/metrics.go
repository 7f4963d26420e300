// prometheus计数器，nil *Metrics 上的方法都是空操作，测试和未开启指标时可以直接传nil
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFail    = "fail"

	ExtractionPrice   = "price"
	ExtractionNoPrice = "no_price"

	RefreshUpdated     = "updated"
	RefreshNoPrice     = "no_price"
	RefreshUnsupported = "unsupported"
	RefreshError       = "error"
)

type Metrics struct {
	fetches     *prometheus.CounterVec
	extractions *prometheus.CounterVec
	listings    *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	alerts      *prometheus.CounterVec
}

// New registers the counters on registerer; nil means the default registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_fetch_total",
			Help: "Outbound page fetches by site and outcome.",
		}, []string{"site", "outcome"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_extraction_total",
			Help: "Product page extractions by site and result.",
		}, []string{"site", "result"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_search_results_total",
			Help: "Search listing entries collected per site.",
		}, []string{"site"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_refresh_total",
			Help: "Product refreshes by result.",
		}, []string{"result"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_alerts_fired_total",
			Help: "Price alerts fired by delivery outcome.",
		}, []string{"outcome"}),
	}
	registerer.MustRegister(m.fetches, m.extractions, m.listings, m.refreshes, m.alerts)
	return m
}

func (m *Metrics) Fetch(site string, ok bool) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(site, outcome(ok)).Inc()
}

func (m *Metrics) Extraction(site string, priced bool) {
	if m == nil {
		return
	}
	result := ExtractionNoPrice
	if priced {
		result = ExtractionPrice
	}
	m.extractions.WithLabelValues(site, result).Inc()
}

func (m *Metrics) Listing(site string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.listings.WithLabelValues(site).Add(float64(n))
}

func (m *Metrics) Refresh(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) Alert(ok bool) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFail
}
