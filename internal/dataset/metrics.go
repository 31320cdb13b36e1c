package dataset

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Metrics is an insertion-ordered map of metric key to value.
type Metrics struct {
	keys []string
	vals map[string]float64
}

// NewMetrics returns an empty map.
func NewMetrics() *Metrics {
	return &Metrics{vals: make(map[string]float64)}
}

// Set stores v under key. Re-setting a key keeps its original position.
func (m *Metrics) Set(key string, v float64) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value stored under key.
func (m *Metrics) Get(key string) (float64, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Metrics) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Len returns the number of keys.
func (m *Metrics) Len() int { return len(m.keys) }

// MarshalJSON encodes the map as an object with keys in insertion order.
// Non-finite values are encoded as null.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		v := m.vals[k]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.WriteString("null")
			continue
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// round3 rounds to three decimals the way %.3f does: the exact binary
// value is rounded, so 0.0625 gives 0.062.
func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 3, 64), 64)
	if err != nil {
		return v
	}
	return r
}
