package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/floatchat/ai/mock"
	"github.com/poiesic/floatchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestExtractFilters(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     core.Filter
	}{
		{
			name:     "empty object",
			response: `{}`,
			want:     core.Filter{},
		},
		{
			name:     "equator band",
			response: `{"min_lat": -5, "max_lat": 5}`,
			want:     core.Filter{MinLat: core.Ref(-5.0), MaxLat: core.Ref(5.0)},
		},
		{
			name:     "fenced with prose",
			response: "Sure! Here you go:\n```json\n{\"min_lon\": 60, \"max_lon\": 100}\n```",
			want:     core.Filter{MinLon: core.Ref(60.0), MaxLon: core.Ref(100.0)},
		},
		{
			name:     "dates become inclusive day bounds",
			response: `{"start_date": "2024-01-01", "end_date": "2024-12-31"}`,
			want: core.Filter{
				Start: core.Ref(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
				End:   core.Ref(time.Date(2024, 12, 31, 23, 59, 59, 999999000, time.UTC)),
			},
		},
		{
			name:     "numeric float id",
			response: `{"float_wmo_id": 5906468}`,
			want:     core.Filter{FloatID: core.Ref("5906468")},
		},
		{
			name:     "null and blank values are absent",
			response: `{"min_lat": null, "start_date": "", "float_wmo_id": "2902746"}`,
			want:     core.Filter{FloatID: core.Ref("2902746")},
		},
		{
			name:     "numeric strings",
			response: `{"min_lat": "-10.5"}`,
			want:     core.Filter{MinLat: core.Ref(-10.5)},
		},
		{
			name:     "bare keys and trailing comma",
			response: `{min_lat: 1, max_lat: 2,}`,
			want:     core.Filter{MinLat: core.Ref(1.0), MaxLat: core.Ref(2.0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mock.NewMockGenerator(tt.response)
			extractor := NewFilterExtractor(gen, "fast-model", WithClock(fixedClock))

			got, err := extractor.ExtractFilters(context.Background(), "floats near the equator")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			calls := gen.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "fast-model", calls[0].Model)
		})
	}
}

func TestExtractFiltersFailures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		genErr   error
	}{
		{name: "not json", response: "I could not find any filters."},
		{name: "invalid date", response: `{"start_date": "last year"}`},
		{name: "latitude out of range", response: `{"min_lat": -120}`},
		{name: "inverted range", response: `{"min_lat": 10, "max_lat": -10}`},
		{name: "wrong type", response: `{"min_lat": [1, 2]}`},
		{name: "remote failure", genErr: &core.RemoteServiceError{Status: 429, Body: "rate limited"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mock.NewMockGenerator(tt.response)
			if tt.genErr != nil {
				gen.WithGenerateFunc(func(ctx context.Context, prompt, model string) (string, error) {
					return "", tt.genErr
				})
			}
			extractor := NewFilterExtractor(gen, "fast-model")

			got, err := extractor.ExtractFilters(context.Background(), "anything")
			require.Error(t, err)
			assert.True(t, got.IsEmpty())

			var extractErr *core.ExtractionError
			require.True(t, errors.As(err, &extractErr))
			if tt.genErr != nil {
				var remote *core.RemoteServiceError
				require.True(t, errors.As(err, &remote))
				assert.Equal(t, 429, remote.Status)
			} else {
				assert.Equal(t, tt.response, extractErr.Response)
			}
			assert.Equal(t, 1, gen.CallCount(), "extraction must not retry")
		})
	}
}

func TestBuildFilterPrompt(t *testing.T) {
	prompt := buildFilterPrompt("salinity  \"near\"\nthe equator", fixedClock())

	assert.Contains(t, prompt, "The current date is 2025-03-14.")
	assert.Contains(t, prompt, `"min_lat", "max_lat", "min_lon", "max_lon", "start_date", "end_date", "float_wmo_id"`)
	assert.Contains(t, prompt, `User Query: "salinity \"near\" the equator"`)
	assert.Contains(t, prompt, "between -5 and 5 degrees latitude")
}
