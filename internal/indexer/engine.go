// Package indexer loads persisted segments into a MemoryIndex that serves as
// the posting provider, and ingests new documents into it.
package indexer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
)

// RawDocument is an ingestion record: untokenized field text plus
// attributes. Fields flagged HTML have their markup stripped first.
type RawDocument struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Fields     map[string]string `json:"fields"`
	HTML       bool              `json:"html,omitempty"`
}

// Engine embeds the MemoryIndex it serves, so it satisfies index.Reader.
type Engine struct {
	*index.MemoryIndex

	writer   *segment.Writer
	cfg      config.IndexConfig
	mu       sync.Mutex
	pending  []index.Document
	segments int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Open loads every segment under cfg.DataDir in name order. A corrupt
// segment fails the open, since skipping it would shift internal ids.
func Open(cfg config.IndexConfig, m *metrics.Metrics) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		MemoryIndex: index.NewMemoryIndex(),
		writer:      segment.NewWriter(cfg.DataDir),
		cfg:         cfg,
		metrics:     m,
		logger:      slog.Default().With("component", "indexer"),
	}
	if err := e.loadSegments(); err != nil {
		return nil, fmt.Errorf("loading segments: %w", err)
	}
	return e, nil
}

func (e *Engine) loadSegments() error {
	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("reading data directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.Extension) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		reader, err := segment.OpenReader(filepath.Join(e.cfg.DataDir, name))
		if err != nil {
			return err
		}
		docs, err := reader.Documents()
		if err != nil {
			return fmt.Errorf("segment %s: %w", name, err)
		}
		for _, doc := range docs {
			if _, err := e.MemoryIndex.AddDocument(doc); err != nil {
				return fmt.Errorf("segment %s: %w", name, err)
			}
		}
		e.segments++
		e.logger.Info("loaded segment", "segment", name, "docs", reader.DocCount())
	}
	e.logger.Info("index ready", "segments", e.segments, "docs", e.NumDocs())
	return nil
}

// Analyze tokenizes raw into an indexable Document.
func Analyze(raw RawDocument) (index.Document, error) {
	doc := index.Document{
		ExternalID: raw.ID,
		Attributes: raw.Attributes,
		Fields:     make(map[string][]string, len(raw.Fields)),
	}
	for name, text := range raw.Fields {
		if raw.HTML {
			extracted, err := tokenizer.ExtractText(strings.NewReader(text))
			if err != nil {
				return doc, fmt.Errorf("extracting text of %s.%s: %w", raw.ID, name, err)
			}
			text = extracted
		}
		doc.Fields[name] = tokenizer.Terms(text)
	}
	return doc, nil
}

// IndexDocument analyzes raw and adds it to the index. It is persisted by
// the next Flush.
func (e *Engine) IndexDocument(raw RawDocument) error {
	doc, err := Analyze(raw)
	if err != nil {
		return err
	}
	if _, err := e.MemoryIndex.AddDocument(doc); err != nil {
		return err
	}
	e.mu.Lock()
	e.pending = append(e.pending, doc)
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
	}
	e.logger.Debug("document indexed", "doc_id", raw.ID, "fields", len(doc.Fields))
	return nil
}

// Flush writes pending documents to a new segment. It returns "" when there
// is nothing to write.
func (e *Engine) Flush() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) == 0 {
		return "", nil
	}
	name, err := e.writer.Write(e.pending)
	if err != nil {
		return "", fmt.Errorf("writing segment: %w", err)
	}
	e.logger.Info("segment flushed", "segment", name, "docs", len(e.pending))
	e.pending = nil
	e.segments++
	return name, nil
}

// Ping reports whether the index has any documents; used by readiness.
func (e *Engine) Ping(context.Context) error {
	if e.NumDocs() == 0 {
		return fmt.Errorf("index %s is empty: %w", e.cfg.DataDir, errors.ErrNotFound)
	}
	return nil
}

// ReadJSONL decodes one RawDocument per non-blank line.
func ReadJSONL(r io.Reader) ([]RawDocument, error) {
	var docs []RawDocument
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var doc RawDocument
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, errors.ErrInvalidInput, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	return docs, nil
}
