package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
	"docintel/internal/service"
)

type stubAsker struct {
	resp     service.Response
	err      error
	question string
}

func (s *stubAsker) Ask(_ context.Context, _ string, question string) (service.Response, error) {
	s.question = question
	return s.resp, s.err
}

func newModel(a Asker) Model {
	doc := &service.Document{ID: "doc-1", Name: "rc.txt", Chunks: make([]domain.Chunk, 3)}
	m := New(context.Background(), a, doc)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m = next.(Model)
	assert.True(t, m.busy)
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestModel_ShowsAcceptedAnswer(t *testing.T) {
	stub := &stubAsker{resp: service.Response{
		Answer: "The carrier is ACME Freight.",
		Sources: []domain.SearchResult{
			{Chunk: domain.Chunk{Text: "Carrier: ACME Freight.", PageNumber: 1, SectionType: domain.SectionParties}, Score: 0.91},
			{Chunk: domain.Chunk{Text: "Pickup at 8.", PageNumber: 2, SectionType: domain.SectionSchedule}, Score: 0.4},
		},
		Mappings: []domain.FieldMatch{{Field: "carrier_name", Value: "ACME Freight", Confidence: 0.8}},
		Metrics:  domain.ConfidenceResult{SemanticScore: 0.91, SchemaScore: 0.8, FinalConfidence: 0.855, Status: domain.StatusAccepted},
	}}
	m := submit(t, newModel(stub), "who is the carrier")

	assert.Equal(t, "who is the carrier", stub.question)
	assert.False(t, m.busy)
	body := m.renderResponse()
	assert.Contains(t, body, "The carrier is ACME Freight.")
	assert.Contains(t, body, "final=0.855")
	assert.Contains(t, body, "carrier_name = ACME Freight")
	assert.Contains(t, body, "Source 1/2")
	assert.Contains(t, m.View(), "rc.txt")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Contains(t, m.renderResponse(), "Source 2/2  page=2")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 0, m.cursor)
}

func TestModel_ShowsRefusal(t *testing.T) {
	stub := &stubAsker{resp: service.Response{
		Answer:  "I'm sorry",
		Metrics: domain.ConfidenceResult{Status: domain.StatusRefused, SemanticScore: 0.2, FinalConfidence: 0.1},
	}}
	m := submit(t, newModel(stub), "weather?")
	body := m.renderResponse()
	assert.Contains(t, body, "refused")
	assert.NotContains(t, body, "Source")
	assert.Contains(t, m.status, "refused")
}

func TestModel_ShowsErrors(t *testing.T) {
	m := submit(t, newModel(&stubAsker{err: errors.New("upstream down")}), "q")
	assert.Equal(t, "Error: upstream down", m.status)
	assert.Equal(t, "No answer yet.", m.renderResponse())
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Shipper is Blue Harbor. Carrier is ACME.", "carrier")
	assert.Contains(t, out, "Shipper is Blue Harbor.")
	assert.Contains(t, out, "ACME")
}
