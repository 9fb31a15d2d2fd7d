package utcptypes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManual_MarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	manual := &Manual{
		UTCPVersion:   UTCPVersion,
		ManualVersion: "1.2.3",
		Tools:         []*Tool{{Name: "echo"}},
	}
	raw, err := json.Marshal(manual)
	require.NoError(t, err)

	var decoded Manual
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, manual.UTCPVersion, decoded.UTCPVersion)
	require.Equal(t, manual.ManualVersion, decoded.ManualVersion)
	require.Len(t, decoded.Tools, 1)
	require.Equal(t, "echo", decoded.Tools[0].Name)
}

func TestManual_CloneDeepCopiesToolsAndTemplate(t *testing.T) {
	t.Parallel()

	manual := &Manual{
		Tools:        []*Tool{{Name: "echo", Tags: []string{"a"}}},
		CallTemplate: &DirectCallTemplate{CallableName: "fn"},
	}
	cp := manual.Clone()
	cp.Tools[0].Tags[0] = "mutated"
	cp.CallTemplate.(*DirectCallTemplate).CallableName = "other"

	require.Equal(t, "a", manual.Tools[0].Tags[0])
	require.Equal(t, "fn", manual.CallTemplate.(*DirectCallTemplate).CallableName)
}

func TestManual_CloneOfNilIsNil(t *testing.T) {
	t.Parallel()

	var m *Manual
	require.Nil(t, m.Clone())
}
