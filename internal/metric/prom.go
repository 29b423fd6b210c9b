// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metric

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Video results as reported by Collector.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Collector holds Prometheus counters and histograms of a batch run. Batch runs are
// short lived, so metrics are exported as a node exporter textfile rather than served.
type Collector struct {
	registry     *prometheus.Registry
	framesTotal  prometheus.Counter
	videosTotal  *prometheus.CounterVec
	frameSeconds prometheus.Histogram
	lastRun      prometheus.Gauge
}

// NewCollector creates and registers batch metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	framesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chromaswap_frames_total",
		Help: "Total number of composited frames written",
	})
	videosTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chromaswap_videos_total",
		Help: "Total number of processed videos by result",
	}, []string{"result"})
	frameSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chromaswap_frame_processing_seconds",
		Help:    "Per-frame keying and compositing time",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chromaswap_last_run_timestamp_seconds",
		Help: "Unix time of the last finished batch run",
	})

	registry.MustRegister(framesTotal, videosTotal, frameSeconds, lastRun)

	// Pre-create result series so both show up as zero.
	videosTotal.WithLabelValues(ResultOK)
	videosTotal.WithLabelValues(ResultFailed)

	return &Collector{
		registry:     registry,
		framesTotal:  framesTotal,
		videosTotal:  videosTotal,
		frameSeconds: frameSeconds,
		lastRun:      lastRun,
	}
}

// ObserveFrame records a single written frame.
func (c *Collector) ObserveFrame(d time.Duration) {
	c.framesTotal.Inc()
	c.frameSeconds.Observe(d.Seconds())
}

// ObserveVideo records a finished video.
func (c *Collector) ObserveVideo(ok bool) {
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	c.videosTotal.WithLabelValues(result).Inc()
}

// MarkRunDone sets the last run timestamp.
func (c *Collector) MarkRunDone(t time.Time) {
	c.lastRun.Set(float64(t.Unix()))
}

// Gatherer exposes the underlying registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile writes all metrics in text exposition format to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
