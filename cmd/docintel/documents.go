package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docintel/internal/chunker"
	"docintel/internal/domain"
	"docintel/internal/output"
	"docintel/internal/parser"
	"docintel/internal/service"
	"docintel/internal/tui"
)

var (
	questions  []string
	fieldSpecs []string
)

var chunksCmd = &cobra.Command{
	Use:   "chunks FILE...",
	Short: "Parse and chunk documents without indexing them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := parser.NewPlainText()
		ch := chunker.NewSectionChunker()
		type fileChunks struct {
			File   string         `yaml:"file" json:"file"`
			Chunks []domain.Chunk `yaml:"chunks" json:"chunks"`
		}
		var out []fileChunks
		for _, path := range args {
			items, err := p.Parse(path)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			out = append(out, fileChunks{File: path, Chunks: ch.Chunk(items)})
		}
		return output.Write(os.Stdout, format, out)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest documents and print their chunks and structured data",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, docs, err := ingestAll(cmd.Context(), args)
		if err != nil {
			return err
		}
		return output.Write(os.Stdout, format, docs)
	},
}

var askCmd = &cobra.Command{
	Use:   "ask FILE --question Q",
	Short: "Ingest a document and answer questions about it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(questions) == 0 {
			return fmt.Errorf("at least one --question is required")
		}
		svc, docs, err := ingestAll(cmd.Context(), args)
		if err != nil {
			return err
		}
		type qa struct {
			Question string           `yaml:"question" json:"question"`
			Response service.Response `yaml:"response" json:"response"`
		}
		var out []qa
		for _, q := range questions {
			resp, err := svc.Ask(cmd.Context(), docs[0].ID, q)
			if err != nil {
				return fmt.Errorf("ask %q: %w", q, err)
			}
			out = append(out, qa{Question: q, Response: resp})
		}
		return output.Write(os.Stdout, format, out)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract FILE [--field name:type]...",
	Short: "Extract tables and structured fields from a document",
	Long: `Extract tables and structured fields from a document.

Without --field the proposed schema is used. Field types are string or number.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFields(fieldSpecs)
		if err != nil {
			return err
		}
		svc, docs, err := ingestAll(cmd.Context(), args)
		if err != nil {
			return err
		}
		doc := docs[0]
		if len(fields) == 0 {
			fields = doc.Schema
		}
		res, err := svc.Extract(cmd.Context(), doc.ID, fields)
		if err != nil {
			return err
		}
		return output.Write(os.Stdout, format, res)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat FILE",
	Short: "Ingest a document and ask questions interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, docs, err := ingestAll(cmd.Context(), args)
		if err != nil {
			return err
		}
		m := tui.New(cmd.Context(), svc, docs[0])
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	askCmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "question to ask (repeatable)")
	extractCmd.Flags().StringArrayVarP(&fieldSpecs, "field", "f", nil, "field to extract as name:type (repeatable)")
}

func ingestAll(ctx context.Context, paths []string) (*service.DocumentService, []*service.Document, error) {
	svc, err := buildService(appCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	p := parser.NewPlainText()
	docs := make([]*service.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := svc.IngestFile(ctx, p, path)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
	}
	return svc, docs, nil
}

// parseFields reads "name:type" flags; the type defaults to string.
func parseFields(specs []string) ([]domain.SchemaField, error) {
	fields := make([]domain.SchemaField, 0, len(specs))
	for _, raw := range specs {
		name, typ, _ := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid field %q", raw)
		}
		switch domain.FieldType(strings.TrimSpace(typ)) {
		case domain.FieldNumber:
			fields = append(fields, domain.SchemaField{Name: name, Type: domain.FieldNumber})
		case domain.FieldString, "":
			fields = append(fields, domain.SchemaField{Name: name, Type: domain.FieldString})
		default:
			return nil, fmt.Errorf("invalid field type %q for %s", typ, name)
		}
	}
	return fields, nil
}
