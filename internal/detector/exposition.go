package detector

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/miradorstack/mirador-triage/internal/models"
)

const bytesPerMB = 1024 * 1024

// AppendExposition converts one Prometheus text scrape taken at `at` into resource
// samples on res. Families missing from the scrape leave res untouched.
func (d *Detector) AppendExposition(res *models.Resources, r io.Reader, at time.Time) error {
	if at.IsZero() {
		at = d.clock.Now()
	}
	mfs, err := d.parseMetrics(r)
	if err != nil {
		return err
	}

	if heap, ok := firstFamily(mfs, "go_memstats_heap_inuse_bytes", "process_resident_memory_bytes"); ok {
		res.Memory = append(res.Memory, models.MemorySample{Timestamp: at, HeapUsedMB: sumFamily(heap) / bytesPerMB})
	}
	if fds, ok := mfs["process_open_fds"]; ok {
		res.FileDescriptors = append(res.FileDescriptors, models.CounterSample{Timestamp: at, Value: sumFamily(fds)})
	}
	if limit, ok := mfs["process_max_fds"]; ok {
		res.FileDescriptorLimit = sumFamily(limit)
	}

	var conns float64
	found := false
	for _, name := range d.cfg.ConnectionGauges {
		if mf, ok := mfs[name]; ok {
			conns += sumFamily(mf)
			found = true
		}
	}
	if found {
		res.Connections = append(res.Connections, models.CounterSample{Timestamp: at, Value: conns})
	}
	if d.cfg.ConnectionLimitGauge != "" {
		if limit, ok := mfs[d.cfg.ConnectionLimitGauge]; ok {
			res.ConnectionLimit = sumFamily(limit)
		}
	}
	return nil
}

// withScrapes returns a copy of res with every scrape folded in as samples.
// Unreadable scrapes are skipped.
func (d *Detector) withScrapes(res models.Resources) models.Resources {
	if len(res.Scrapes) == 0 {
		return res
	}
	merged := res
	merged.Memory = append([]models.MemorySample(nil), res.Memory...)
	merged.Connections = append([]models.CounterSample(nil), res.Connections...)
	merged.FileDescriptors = append([]models.CounterSample(nil), res.FileDescriptors...)
	for _, scrape := range res.Scrapes {
		if err := d.AppendExposition(&merged, strings.NewReader(scrape.Body), scrape.Timestamp); err != nil {
			d.logger.Warn("skipping unreadable scrape", slog.String("path", scrape.Path), slog.Any("error", err))
		}
	}
	sort.SliceStable(merged.Memory, func(i, j int) bool {
		return merged.Memory[i].Timestamp.Before(merged.Memory[j].Timestamp)
	})
	return merged
}

// parseMetrics decodes a text exposition. Partial results are kept.
func (d *Detector) parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	if err != nil {
		d.logger.Warn("partial exposition parse", slog.Any("error", err))
	}
	return mfs, nil
}

func firstFamily(mfs map[string]*dto.MetricFamily, names ...string) (*dto.MetricFamily, bool) {
	for _, name := range names {
		if mf, ok := mfs[name]; ok {
			return mf, true
		}
	}
	return nil, false
}

// sumFamily adds up all counter, gauge or untyped values in mf.
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
