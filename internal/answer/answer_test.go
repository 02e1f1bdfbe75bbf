package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

type recordingGenerator struct {
	reply string
	err   error
	req   domain.GenerateRequest
}

func (g *recordingGenerator) Name() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, req domain.GenerateRequest) (string, error) {
	g.req = req
	return g.reply, g.err
}

func passage(text string, page int, score float64) domain.SearchResult {
	return domain.SearchResult{Chunk: domain.Chunk{Text: text, PageNumber: page, SectionType: domain.SectionMisc}, Score: score}
}

func TestLLM_PromptCarriesSourcesAndFields(t *testing.T) {
	gen := &recordingGenerator{reply: "  The rate is $1,200.  "}
	passages := []domain.SearchResult{
		passage("[Rates] Linehaul rate $1,200 flat.", 2, 0.9),
		passage("Fuel surcharge included.", 3, 0.7),
	}
	fields := []domain.FieldMatch{{Field: "rate", Value: 1200, Confidence: 0.876}}

	ans, err := NewLLM(gen).Synthesize(context.Background(), "What is the rate?", passages, fields)
	require.NoError(t, err)
	assert.Equal(t, "The rate is $1,200.", ans.Text)
	assert.Equal(t, passages, ans.Sources)

	assert.False(t, gen.req.JSON)
	assert.NotEmpty(t, gen.req.System)
	assert.Contains(t, gen.req.User, "[Source 1] (Page 2): [Rates] Linehaul rate $1,200 flat.")
	assert.Contains(t, gen.req.User, "[Source 2] (Page 3): Fuel surcharge included.")
	assert.Contains(t, gen.req.User, "IDENTIFIED STRUCTURED DATA")
	assert.Contains(t, gen.req.User, "- rate: 1200 (Score: 0.88)")
	assert.Contains(t, gen.req.User, "What is the rate?")
}

func TestLLM_NoFieldsOmitsStructuredBlock(t *testing.T) {
	gen := &recordingGenerator{reply: "ok"}
	_, err := NewLLM(gen).Synthesize(context.Background(), "q", []domain.SearchResult{passage("x", 1, 0.9)}, nil)
	require.NoError(t, err)
	assert.NotContains(t, gen.req.User, "IDENTIFIED STRUCTURED DATA")
}

func TestLLM_GeneratorErrorPropagates(t *testing.T) {
	gen := &recordingGenerator{err: domain.ErrUpstreamUnavailable}
	_, err := NewLLM(gen).Synthesize(context.Background(), "q", []domain.SearchResult{passage("x", 1, 0.9)}, nil)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
}

func TestExtractive_PicksQuestionSentences(t *testing.T) {
	passages := []domain.SearchResult{
		passage("[Parties] Shipper is Blue Harbor Foods. Carrier is ACME Freight LLC.", 1, 0.8),
		passage("Pickup at 08:00 on dock 4. Delivery appointment required.", 1, 0.6),
	}
	ans, err := NewExtractive(1).Synthesize(context.Background(), "Who is the carrier?", passages, nil)
	require.NoError(t, err)
	assert.Equal(t, "Carrier is ACME Freight LLC.", ans.Text)
	assert.Equal(t, passages, ans.Sources)
}

func TestExtractive_KeepsDecimalsInsideSentences(t *testing.T) {
	passages := []domain.SearchResult{passage("Linehaul rate is $1,200.50 per load. Detention billed hourly.", 1, 0.9)}
	ans, err := NewExtractive(1).Synthesize(context.Background(), "linehaul rate", passages, nil)
	require.NoError(t, err)
	assert.Equal(t, "Linehaul rate is $1,200.50 per load.", ans.Text)
}

func TestExtractive_FieldsLeadTheAnswer(t *testing.T) {
	passages := []domain.SearchResult{passage("Carrier is ACME.", 1, 0.9)}
	fields := []domain.FieldMatch{{Field: "carrier_name", Value: "ACME", Confidence: 0.8}}
	ans, err := NewExtractive(2).Synthesize(context.Background(), "carrier", passages, fields)
	require.NoError(t, err)
	assert.Equal(t, "carrier_name: ACME\nCarrier is ACME.", ans.Text)
}

func TestExtractive_NothingToSayIsRefusal(t *testing.T) {
	ans, err := NewExtractive(3).Synthesize(context.Background(), "q", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, RefusalText, ans.Text)
}

func TestRefused(t *testing.T) {
	r := Refused()
	assert.Equal(t, RefusalText, r.Text)
	assert.NotNil(t, r.Sources)
	assert.Empty(t, r.Sources)
}
