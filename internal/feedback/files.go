package feedback

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

// Resolver maps external document ids to internal ones.
type Resolver interface {
	InternalID(externalID string) (int, error)
}

// ReadRankingFile reads an initial ranking in TREC result format and keeps
// the first docs entries of each query in file order. Documents that are
// not in the index are logged and skipped. Reading stops at the first blank
// line.
func ReadRankingFile(r io.Reader, resolver Resolver, docs int) (map[string][]WeightedDoc, error) {
	logger := slog.Default().With("component", "feedback-ranking-file")
	out := make(map[string][]WeightedDoc)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return nil, fmt.Errorf("ranking line %d: %w: want at least 5 fields, got %d",
				lineNo, errors.ErrInvalidInput, len(fields))
		}
		qid := fields[0]
		if len(out[qid]) >= docs {
			continue
		}
		score, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			return nil, fmt.Errorf("ranking line %d: %w: bad score %q", lineNo, errors.ErrInvalidInput, fields[4])
		}
		id, err := resolver.InternalID(fields[2])
		if err != nil {
			logger.Warn("skipping unknown document", "query_id", qid, "external_id", fields[2], "error", err)
			continue
		}
		out[qid] = append(out[qid], WeightedDoc{DocID: id, Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ranking file: %w", err)
	}
	return out, nil
}

// WriteExpansion appends one "qid: query" line.
func WriteExpansion(w io.Writer, qid, expansion string) error {
	_, err := fmt.Fprintf(w, "%s: %s\n", qid, expansion)
	return err
}
