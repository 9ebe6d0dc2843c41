// Package pipeline drives batch runs: a query file is evaluated query by
// query, optionally expanded by relevance feedback, and written as a TREC
// run; the learning-to-rank flow trains and applies an external ranker.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

// Query is one line of a query file.
type Query struct {
	ID   string
	Text string
}

// ReadQueries parses "qid:query text" lines. Blank lines are skipped; a
// line without ':' fails the whole file.
func ReadQueries(r io.Reader) ([]Query, error) {
	var out []Query
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		qid, text, ok := strings.Cut(line, ":")
		qid = strings.TrimSpace(qid)
		if !ok || qid == "" {
			return nil, fmt.Errorf("query line %d: %w: missing 'qid:' prefix", lineNo, errors.ErrInvalidInput)
		}
		out = append(out, Query{ID: qid, Text: strings.TrimSpace(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return out, nil
}

func LoadQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()
	return ReadQueries(f)
}
