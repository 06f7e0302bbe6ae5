package obs

import (
	"sort"
	"strings"
	"sync"
)

// Label is a key/value pair attached to measurements.
type Label struct {
	Key   string
	Value string
}

// Meter is a very small interface for emitting counters/histograms.
// Implementations may no-op or bridge to a metrics system.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter is a Meter that discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}

// MemMeter keeps measurements in memory. It is safe for concurrent use.
//
// Series are keyed as name{k=v,...} with labels sorted by key. Histograms
// are stored as two series, name_count and name_sum.
type MemMeter struct {
	mu     sync.Mutex
	series map[string]float64
}

func NewMemMeter() *MemMeter {
	return &MemMeter{series: make(map[string]float64)}
}

func (m *MemMeter) Counter(name string, value float64, labels ...Label) {
	m.add(seriesKey(name, labels), value)
}

func (m *MemMeter) Histogram(name string, value float64, labels ...Label) {
	m.add(seriesKey(name+"_count", labels), 1)
	m.add(seriesKey(name+"_sum", labels), value)
}

func (m *MemMeter) add(key string, v float64) {
	m.mu.Lock()
	if m.series == nil {
		m.series = make(map[string]float64)
	}
	m.series[key] += v
	m.mu.Unlock()
}

// Value returns the current value of one series.
func (m *MemMeter) Value(name string, labels ...Label) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.series[seriesKey(name, labels)]
}

// Snapshot returns a copy of every series.
func (m *MemMeter) Snapshot() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.series))
	for k, v := range m.series {
		out[k] = v
	}
	return out
}

func seriesKey(name string, labels []Label) string {
	if len(labels) == 0 {
		return name
	}
	ls := append([]Label(nil), labels...)
	sort.Slice(ls, func(i, j int) bool { return ls[i].Key < ls[j].Key })
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, l := range ls {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Key)
		b.WriteByte('=')
		b.WriteString(l.Value)
	}
	b.WriteByte('}')
	return b.String()
}
