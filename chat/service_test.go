package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/floatchat/ai/mock"
	"github.com/poiesic/floatchat/core"
	"github.com/poiesic/floatchat/search"
	"github.com/poiesic/floatchat/storage/badger"
	"github.com/poiesic/floatchat/storage/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	searchFunc func(ctx context.Context, query string, topK int) (*search.Result, error)
	topK       int
}

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int, _ search.SearchMonitor) (*search.Result, error) {
	f.topK = topK
	return f.searchFunc(ctx, query, topK)
}

func resultOf(profiles ...*core.Profile) *search.Result {
	r := &search.Result{Candidates: -1, Matches: []search.Match{}}
	for i, p := range profiles {
		r.Matches = append(r.Matches, search.Match{Profile: p, Distance: float32(i)})
	}
	return r
}

func sampleProfile() *core.Profile {
	return &core.Profile{
		ID:        42,
		FloatID:   "2902746",
		Timestamp: time.Date(2024, 3, 9, 17, 30, 0, 0, time.UTC),
		Latitude:  -10.256,
		Longitude: 75.5,
		Measurements: core.Measurements{
			"TEMP":  core.Number(28.5),
			"depth": core.Number(5),
		},
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	gen := mock.NewMockGenerator("ok")
	_, err := NewService(nil, gen)
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewService(&fakeRetriever{}, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewService(&fakeRetriever{}, gen, WithTopK(0))
	assert.ErrorIs(t, err, search.ErrInvalidTopK)
}

func TestBuildPromptWithData(t *testing.T) {
	prompt := BuildPrompt("How warm is it?", []*core.Profile{sampleProfile()})

	assert.True(t, strings.HasPrefix(prompt, "Context: You are an expert oceanographer AI. Based ONLY on the following retrieved data points"))
	assert.Contains(t, prompt, "Retrieved Data:\nID: 42, Time: 2024-03-09, Lat: -10.26, Lon: 75.50, Measurements: {\"TEMP\":28.5,\"depth\":5}\n")
	assert.Contains(t, prompt, "User Question: How warm is it?")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestBuildPromptWithoutData(t *testing.T) {
	prompt := BuildPrompt("Anything near Mars?", nil)

	assert.Contains(t, prompt, "You were unable to find any relevant data.")
	assert.Contains(t, prompt, "User Question: Anything near Mars?")
	assert.NotContains(t, prompt, "Retrieved Data:")
}

func TestAnswer(t *testing.T) {
	ctx := context.Background()
	equator := core.Filter{MinLat: core.Ref(-5.0), MaxLat: core.Ref(5.0)}
	retriever := &fakeRetriever{searchFunc: func(ctx context.Context, query string, topK int) (*search.Result, error) {
		r := resultOf(sampleProfile())
		r.Filter = equator
		r.Candidates = 1
		return r, nil
	}}
	gen := mock.NewMockGenerator("  Around 28.5 degrees.\n")

	svc, err := NewService(retriever, gen, WithModel("answer-model"))
	require.NoError(t, err)

	answer, err := svc.Answer(ctx, "  How warm is it near the equator?  ")
	require.NoError(t, err)

	assert.Equal(t, "Around 28.5 degrees.", answer.Text)
	assert.Equal(t, "answer-model", answer.Model)
	assert.Equal(t, equator, answer.Filter)
	require.Len(t, answer.Matches, 1)
	assert.Equal(t, DefaultTopK, retriever.topK)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "answer-model", calls[0].Model)
	assert.Contains(t, calls[0].Prompt, "ID: 42,")
	assert.Contains(t, calls[0].Prompt, "User Question: How warm is it near the equator?")
}

func TestAnswerWithModelOverridesDefault(t *testing.T) {
	retriever := &fakeRetriever{searchFunc: func(context.Context, string, int) (*search.Result, error) {
		return resultOf(), nil
	}}
	gen := mock.NewMockGenerator("No data.")
	svc, err := NewService(retriever, gen, WithModel("default"), WithTopK(3))
	require.NoError(t, err)

	answer, err := svc.AnswerWithModel(context.Background(), "q", "other")
	require.NoError(t, err)
	assert.Equal(t, "other", answer.Model)
	assert.Equal(t, 3, retriever.topK)
	assert.Contains(t, gen.Calls()[0].Prompt, "unable to find any relevant data")
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	svc, err := NewService(&fakeRetriever{}, mock.NewMockGenerator(""))
	require.NoError(t, err)

	_, err = svc.Answer(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestAnswerRetrievalFailure(t *testing.T) {
	boom := errors.New("database unavailable")
	retriever := &fakeRetriever{searchFunc: func(context.Context, string, int) (*search.Result, error) {
		return nil, boom
	}}
	gen := mock.NewMockGenerator("unused")
	svc, err := NewService(retriever, gen)
	require.NoError(t, err)

	_, err = svc.Answer(context.Background(), "q")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, gen.CallCount())
}

func TestAnswerGenerationFailure(t *testing.T) {
	retriever := &fakeRetriever{searchFunc: func(context.Context, string, int) (*search.Result, error) {
		return resultOf(sampleProfile()), nil
	}}
	gen := mock.NewMockGenerator("").WithGenerateFunc(func(context.Context, string, string) (string, error) {
		return "", &core.RemoteServiceError{Status: http.StatusTooManyRequests, Body: "rate limited"}
	})
	svc, err := NewService(retriever, gen)
	require.NoError(t, err)

	_, err = svc.Answer(context.Background(), "q")
	require.ErrorIs(t, err, ErrRequestFailed)

	var remote *core.RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusTooManyRequests, remote.Status)
}

func TestAnswerOverEmptyStores(t *testing.T) {
	ctx := context.Background()

	backend, err := sqlstore.Open(ctx, sqlstore.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	store, err := badger.NewMemoryVectorStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	index, err := store.Collection(ctx, "ocean_profiles")
	require.NoError(t, err)

	provider := mock.NewMockProvider()
	retriever, err := search.NewRetriever(sqlstore.NewProfileRepository(backend), index, provider)
	require.NoError(t, err)

	svc, err := NewService(retriever, provider.Generator())
	require.NoError(t, err)

	answer, err := svc.Answer(ctx, "What is the salinity in the Arabian Sea?")
	require.NoError(t, err)
	assert.Equal(t, "mock answer", answer.Text)
	assert.Empty(t, answer.Matches)
	assert.Contains(t, provider.GetMockGenerator().Calls()[0].Prompt, "unable to find any relevant data")
}
