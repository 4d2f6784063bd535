package assetcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LoadTime is one network load sample.
type LoadTime struct {
	URL      string        `json:"url"`
	Duration time.Duration `json:"duration"`
}

// Metrics is a point-in-time snapshot of cache activity.
type Metrics struct {
	Hits            int64         `json:"hits"`
	Misses          int64         `json:"misses"`
	Errors          int64         `json:"errors"`
	CacheSize       int           `json:"cacheSize"`
	ImageCacheSize  int           `json:"imageCacheSize"`
	LoadTimes       []LoadTime    `json:"loadTimes"`
	AverageLoadTime time.Duration `json:"averageLoadTime"`
}

func averageLoadTime(samples []LoadTime) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s.Duration
	}
	return sum / time.Duration(len(samples))
}

type collectors struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	errors   prometheus.Counter
	loadTime prometheus.Histogram
}

// newCollectors registers with reg when it is non-nil.
func newCollectors(reg prometheus.Registerer, sizes func() (memory, images int)) *collectors {
	f := promauto.With(reg)
	c := &collectors{
		hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seekkrr", Subsystem: "assetcache", Name: "hits_total",
			Help: "Asset lookups served from the memory or persistent tier.",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seekkrr", Subsystem: "assetcache", Name: "misses_total",
			Help: "Asset lookups that went to the network.",
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seekkrr", Subsystem: "assetcache", Name: "errors_total",
			Help: "Asset loads that exhausted their retries.",
		}),
		loadTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seekkrr", Subsystem: "assetcache", Name: "load_seconds",
			Help:    "Network load time of accepted assets.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "seekkrr", Subsystem: "assetcache", Name: "entries",
		Help: "Entries in the memory tier.",
	}, func() float64 {
		m, _ := sizes()
		return float64(m)
	})
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "seekkrr", Subsystem: "assetcache", Name: "images",
		Help: "Decoded images held in memory.",
	}, func() float64 {
		_, i := sizes()
		return float64(i)
	})
	return c
}
