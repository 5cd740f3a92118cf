package prospect

import (
	"encoding/json"
	"maps"
)

// Metrics is the aggregate summary from GET /prospects/metrics.
// Keys without a dedicated field are kept verbatim in Extra.
type Metrics struct {
	Total      int
	ByStatus   map[string]int
	ByPosition map[string]int
	AverageOvr float64
	FullAccess int
	Extra      map[string]json.RawMessage
}

type metricsWire struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus,omitempty"`
	ByPosition map[string]int `json:"byPosition,omitempty"`
	AverageOvr float64        `json:"averageOvr"`
	FullAccess int            `json:"fullAccess"`
}

var knownMetricKeys = map[string]struct{}{ //nolint:gochecknoglobals // read-only key set
	"total": {}, "byStatus": {}, "byPosition": {}, "averageOvr": {}, "fullAccess": {},
}

// UnmarshalJSON decodes the known keys and keeps the rest in Extra.
func (m *Metrics) UnmarshalJSON(b []byte) error {
	var w metricsWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	*m = Metrics{
		Total:      w.Total,
		ByStatus:   w.ByStatus,
		ByPosition: w.ByPosition,
		AverageOvr: w.AverageOvr,
		FullAccess: w.FullAccess,
	}
	for k, v := range all {
		if _, known := knownMetricKeys[k]; known {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage)
		}
		m.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes the known keys and Extra side by side.
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+len(knownMetricKeys))
	for k, v := range m.Extra {
		out[k] = v
	}
	out["total"] = m.Total
	out["averageOvr"] = m.AverageOvr
	out["fullAccess"] = m.FullAccess
	if m.ByStatus != nil {
		out["byStatus"] = m.ByStatus
	}
	if m.ByPosition != nil {
		out["byPosition"] = m.ByPosition
	}
	return json.Marshal(out)
}

// Clone returns a copy that shares no map with m.
func (m Metrics) Clone() Metrics {
	m.ByStatus = maps.Clone(m.ByStatus)
	m.ByPosition = maps.Clone(m.ByPosition)
	m.Extra = maps.Clone(m.Extra)
	return m
}
