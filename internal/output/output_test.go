package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	metrics := domain.ConfidenceResult{SemanticScore: 0.9, FinalConfidence: 0.45, Status: domain.StatusAccepted}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, metrics))
	assert.Contains(t, buf.String(), "final_confidence: 0.45")
	assert.Contains(t, buf.String(), "status: accepted")

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, metrics))
	assert.Contains(t, buf.String(), `"status": "accepted"`)

	assert.Error(t, Write(&buf, Format("xml"), metrics))
}
