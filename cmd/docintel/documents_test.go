package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel/internal/domain"
)

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"rate:number", " carrier ", "pickup_date:string"})
	require.NoError(t, err)
	assert.Equal(t, []domain.SchemaField{
		{Name: "rate", Type: domain.FieldNumber},
		{Name: "carrier", Type: domain.FieldString},
		{Name: "pickup_date", Type: domain.FieldString},
	}, fields)

	_, err = parseFields([]string{":number"})
	assert.Error(t, err)

	_, err = parseFields([]string{"rate:money"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := parseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseLevel("loud")
	assert.Error(t, err)
}
