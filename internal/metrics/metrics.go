package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Nazarovdf/saverbot/internal/logutils"
)

// MaxDurationValues ограничивает историю длительностей на один ключ
const MaxDurationValues = 1000

// Recorder is the write side used by the job runner.
type Recorder interface {
	IncrementCounter(name string, labels map[string]string)
	RecordDuration(name string, duration time.Duration, labels map[string]string)
}

// InMemoryMetrics keeps counters and durations for the admin panel.
type InMemoryMetrics struct {
	mu        sync.RWMutex
	counters  map[string]*Counter
	durations map[string]*Duration
}

type Counter struct {
	Name   string            `json:"name"`
	Value  int64             `json:"value"`
	Labels map[string]string `json:"labels"`
}

type Duration struct {
	Name   string            `json:"name"`
	Values []time.Duration   `json:"values"`
	Labels map[string]string `json:"labels"`
}

// Average returns the mean of the recorded values.
func (d *Duration) Average() time.Duration {
	if len(d.Values) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range d.Values {
		total += v
	}
	return total / time.Duration(len(d.Values))
}

func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		counters:  make(map[string]*Counter),
		durations: make(map[string]*Duration),
	}
}

// IncrementCounter увеличивает счетчик
func (m *InMemoryMetrics) IncrementCounter(name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := buildKey(name, labels)
	counter, exists := m.counters[key]
	if !exists {
		counter = &Counter{Name: name, Labels: copyLabels(labels)}
		m.counters[key] = counter
	}
	counter.Value++

	logutils.Log.WithFields(map[string]any{
		"metric": name,
		"labels": labels,
		"value":  counter.Value,
	}).Debug("Counter incremented")
}

// RecordDuration записывает время выполнения
func (m *InMemoryMetrics) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := buildKey(name, labels)
	d, exists := m.durations[key]
	if !exists {
		d = &Duration{Name: name, Labels: copyLabels(labels)}
		m.durations[key] = d
	}
	d.Values = append(d.Values, duration)
	if len(d.Values) > MaxDurationValues {
		d.Values = d.Values[len(d.Values)-MaxDurationValues:]
	}
}

// Sum adds every counter called name whose labels include match.
func (m *InMemoryMetrics) Sum(name string, match map[string]string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, c := range m.counters {
		if c.Name != name || !hasLabels(c.Labels, match) {
			continue
		}
		total += c.Value
	}
	return total
}

// GetCounters возвращает копию всех счетчиков
func (m *InMemoryMetrics) GetCounters() map[string]Counter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Counter, len(m.counters))
	for k, v := range m.counters {
		result[k] = Counter{Name: v.Name, Value: v.Value, Labels: copyLabels(v.Labels)}
	}
	return result
}

// GetDurations возвращает копию всех длительностей
func (m *InMemoryMetrics) GetDurations() map[string]Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]Duration, len(m.durations))
	for k, v := range m.durations {
		values := make([]time.Duration, len(v.Values))
		copy(values, v.Values)
		result[k] = Duration{Name: v.Name, Values: values, Labels: copyLabels(v.Labels)}
	}
	return result
}

func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[string]*Counter)
	m.durations = make(map[string]*Duration)
	logutils.Log.Info("All metrics reset")
}

// buildKey sorts labels so the same set always maps to one key.
func buildKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(":" + k + "=" + labels[k])
	}
	return b.String()
}

func hasLabels(labels, match map[string]string) bool {
	for k, v := range match {
		if labels[k] != v {
			return false
		}
	}
	return true
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	result := make(map[string]string, len(labels))
	for k, v := range labels {
		result[k] = v
	}
	return result
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrementCounter(string, map[string]string)             {}
func (NoOpMetrics) RecordDuration(string, time.Duration, map[string]string) {}
