package observability

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// MetricsObserver counts events by type and level and renders the counts in
// the Prometheus text exposition format.
type MetricsObserver struct {
	namespace string
	counts    map[metricKey]uint64
	mu        sync.Mutex
}

type metricKey struct {
	eventType EventType
	level     string
}

// NewMetricsObserver creates a MetricsObserver whose metric names are
// prefixed with namespace.
func NewMetricsObserver(namespace string) *MetricsObserver {
	return &MetricsObserver{
		namespace: namespace,
		counts:    make(map[metricKey]uint64),
	}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[metricKey{eventType: event.Type, level: event.Level.String()}]++
}

// Count returns the number of events of the given type observed so far,
// across all levels.
func (o *MetricsObserver) Count(eventType EventType) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	var total uint64
	for k, n := range o.counts {
		if k.eventType == eventType {
			total += n
		}
	}
	return total
}

// Reset discards all counts.
func (o *MetricsObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts = make(map[metricKey]uint64)
}

// Families returns the current counts as a single counter metric family,
// one series per (type, level) pair, sorted by label values.
func (o *MetricsObserver) Families() []*dto.MetricFamily {
	o.mu.Lock()
	keys := make([]metricKey, 0, len(o.counts))
	for k := range o.counts {
		keys = append(keys, k)
	}
	counts := make(map[metricKey]uint64, len(o.counts))
	for k, n := range o.counts {
		counts[k] = n
	}
	o.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].eventType != keys[j].eventType {
			return keys[i].eventType < keys[j].eventType
		}
		return keys[i].level < keys[j].level
	})

	family := &dto.MetricFamily{
		Name: proto.String(o.metricName()),
		Help: proto.String("Number of weak map events observed, by event type and level."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, k := range keys {
		family.Metric = append(family.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String("level"), Value: proto.String(k.level)},
				{Name: proto.String("type"), Value: proto.String(string(k.eventType))},
			},
			Counter: &dto.Counter{Value: proto.Float64(float64(counts[k]))},
		})
	}
	return []*dto.MetricFamily{family}
}

// WriteText writes the current counts to w in the Prometheus text format.
// Nothing is written before the first event is observed.
func (o *MetricsObserver) WriteText(w io.Writer) error {
	for _, family := range o.Families() {
		if len(family.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("write metric family %s: %w", family.GetName(), err)
		}
	}
	return nil
}

func (o *MetricsObserver) metricName() string {
	if o.namespace == "" {
		return "events_total"
	}
	return o.namespace + "_events_total"
}
