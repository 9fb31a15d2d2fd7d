package utcptypes

import "encoding/json"

// UTCPVersion is the protocol version this module implements.
const UTCPVersion = "1.0.0"

// Manual is the document a provider returns describing the tools it offers.
type Manual struct {
	// UTCPVersion is the protocol version the manual was authored against.
	UTCPVersion string `json:"utcp_version"`
	// ManualVersion is the provider's own version for this manual's content.
	ManualVersion string `json:"manual_version,omitempty"`
	// Tools lists every tool this manual exposes. Names are bare (not yet
	// namespaced); namespacing happens on registration.
	Tools []*Tool `json:"tools"`

	// Name is assigned at registration time, not part of the wire document.
	Name string `json:"-"`
	// CallTemplate is the manual-level call template used as the default
	// for tools that don't declare their own.
	CallTemplate CallTemplate `json:"-"`
}

// Clone returns a deep copy of the manual, including every tool.
func (m *Manual) Clone() *Manual {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Tools = make([]*Tool, len(m.Tools))
	for i, t := range m.Tools {
		cp.Tools[i] = t.Clone()
	}
	if m.CallTemplate != nil {
		cp.CallTemplate = m.CallTemplate.Clone()
	}
	return &cp
}

// manualWire mirrors Manual's public wire fields only; Name and CallTemplate
// are populated out of band during registration.
type manualWire struct {
	UTCPVersion   string  `json:"utcp_version"`
	ManualVersion string  `json:"manual_version,omitempty"`
	Tools         []*Tool `json:"tools"`
}

// MarshalJSON implements json.Marshaler.
func (m *Manual) MarshalJSON() ([]byte, error) {
	return json.Marshal(manualWire{
		UTCPVersion:   m.UTCPVersion,
		ManualVersion: m.ManualVersion,
		Tools:         m.Tools,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Manual) UnmarshalJSON(data []byte) error {
	var w manualWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.UTCPVersion = w.UTCPVersion
	m.ManualVersion = w.ManualVersion
	m.Tools = w.Tools
	return nil
}
