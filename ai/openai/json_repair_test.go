package openai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "valid json unchanged", input: `{"min_lat": 5}`, want: `{"min_lat": 5}`},
		{name: "bare keys", input: `{min_lat: -5, max_lat: 5}`, want: `{"min_lat": -5, "max_lat": 5}`},
		{name: "missing opening quote", input: `{"min_lat": 1, max_lat": 2}`, want: `{"min_lat": 1, "max_lat": 2}`},
		{name: "trailing comma", input: `{"a": 1,}`, want: `{"a": 1}`},
		{name: "trailing comma in array", input: `{"a": [1, 2, ]}`, want: `{"a": [1, 2 ]}`},
		{name: "string contents untouched", input: `{"note": "a, b: {c}"}`, want: `{"note": "a, b: {c}"}`},
		{name: "bare value kept", input: `{"a": [x, y]}`, want: `{"a": [x, y]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around", input: "Here it is: {\"a\":1} hope that helps", want: `{"a":1}`},
		{name: "no object", input: "  nothing  ", want: "nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSONObject(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairedOutputParses(t *testing.T) {
	var out map[string]any
	err := json.Unmarshal([]byte(repairJSON(`{start_date: "2024-01-01", float_wmo_id: 42,}`)), &out)
	assert.NoError(t, err)
	assert.Equal(t, "2024-01-01", out["start_date"])
}
