package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForecastAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokyotemps_forecast_api_calls_total",
			Help: "Total forecast API calls",
		},
		[]string{"city", "status"},
	)

	ForecastAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokyotemps_forecast_api_latency_seconds",
			Help:    "Forecast API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"city"},
	)

	ForecastsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokyotemps_forecasts_stored_total",
			Help: "Total forecast rows written to the store",
		},
	)

	FetchAndSaveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokyotemps_fetch_and_save_total",
			Help: "Fetch-and-save cycles by outcome",
		},
		[]string{"outcome"},
	)

	LiveCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokyotemps_live_cache_total",
			Help: "Live forecast cache lookups by result",
		},
		[]string{"result"},
	)
)
