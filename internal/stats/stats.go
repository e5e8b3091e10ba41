// Package stats counts what the poll loop does and exports the counters in
// the Prometheus text exposition format, suitable for node_exporter's
// textfile collector.
package stats

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Metric names written by Recorder.
const (
	MetricFetches    = "toasts_fetches_total"
	MetricShown      = "toasts_notifications_shown_total"
	MetricSuppressed = "toasts_notifications_suppressed_total"
	MetricCycles     = "toasts_cycles_total"
	MetricLastCycle  = "toasts_last_cycle_timestamp_seconds"
)

// Fetch outcomes recorded per source.
const (
	OutcomeOK                 = "ok"
	OutcomeAuthError          = "auth_error"
	OutcomeUnexpectedResponse = "unexpected_response"
	OutcomeTransportError     = "transport_error"
	OutcomeUnclassified       = "unclassified"
)

type fetchKey struct {
	source  string
	outcome string
}

// Recorder accumulates counters for the lifetime of the process.
//
// Recorder is not safe for concurrent use; the poll loop is its only writer.
type Recorder struct {
	fetches    map[fetchKey]float64
	shown      map[string]float64
	suppressed map[string]float64
	cycles     float64
	lastCycle  time.Time
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{
		fetches:    make(map[fetchKey]float64),
		shown:      make(map[string]float64),
		suppressed: make(map[string]float64),
	}
}

// Fetch counts one fetch attempt for source with the given outcome.
func (r *Recorder) Fetch(source, outcome string) {
	r.fetches[fetchKey{source, outcome}]++
}

// Shown counts n notifications displayed for source.
func (r *Recorder) Shown(source string, n int) {
	if n > 0 {
		r.shown[source] += float64(n)
	}
}

// Suppressed counts n notifications held back by the display cap.
func (r *Recorder) Suppressed(source string, n int) {
	if n > 0 {
		r.suppressed[source] += float64(n)
	}
}

// Cycle marks the end of a poll cycle at t.
func (r *Recorder) Cycle(t time.Time) {
	r.cycles++
	r.lastCycle = t
}

// Families returns the non-empty counters as metric families, sorted by name.
func (r *Recorder) Families() []*dto.MetricFamily {
	fetches := family(MetricFetches, "Fetch attempts per source and outcome.", dto.MetricType_COUNTER)
	keys := make([]fetchKey, 0, len(r.fetches))
	for k := range r.fetches {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].outcome < keys[j].outcome
	})
	for _, k := range keys {
		fetches.Metric = append(fetches.Metric, counter(r.fetches[k], label("source", k.source), label("outcome", k.outcome)))
	}

	shown := perSource(MetricShown, "Notifications displayed per source.", r.shown)
	suppressed := perSource(MetricSuppressed, "Notifications held back by notif_max_show per source.", r.suppressed)

	cycles := family(MetricCycles, "Completed poll cycles.", dto.MetricType_COUNTER)
	cycles.Metric = append(cycles.Metric, counter(r.cycles))

	last := family(MetricLastCycle, "Unix time the last poll cycle finished.", dto.MetricType_GAUGE)
	var ts float64
	if !r.lastCycle.IsZero() {
		ts = float64(r.lastCycle.UnixNano()) / 1e9
	}
	last.Metric = append(last.Metric, &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(ts)}})

	var out []*dto.MetricFamily
	for _, mf := range []*dto.MetricFamily{fetches, shown, suppressed, cycles, last} {
		// The text encoder rejects families without samples.
		if len(mf.Metric) > 0 {
			out = append(out, mf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// WriteText writes the counters in the Prometheus text format.
func (r *Recorder) WriteText(w io.Writer) error {
	for _, mf := range r.Families() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("stats: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile atomically replaces path with the current counters.
func (r *Recorder) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".toasts-metrics-*")
	if err != nil {
		return fmt.Errorf("stats: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("stats: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stats: close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("stats: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("stats: rename: %w", err)
	}
	return nil
}

func family(name, help string, typ dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: typ.Enum(),
	}
}

func perSource(name, help string, values map[string]float64) *dto.MetricFamily {
	mf := family(name, help, dto.MetricType_COUNTER)
	sources := make([]string, 0, len(values))
	for s := range values {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		mf.Metric = append(mf.Metric, counter(values[s], label("source", s)))
	}
	return mf
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label:   labels,
		Counter: &dto.Counter{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}
