package ranker

import (
	"bufio"
	"fmt"
	"io"
)

// MaxTrecResults caps the rows written per query.
const MaxTrecResults = 100

// TrecWriter writes result rows as
// qid Q0 externalId rank score runId, tab separated.
type TrecWriter struct {
	w     *bufio.Writer
	runID string
	limit int
}

// NewTrecWriter caps each query at limit rows, or MaxTrecResults when
// limit is not positive.
func NewTrecWriter(w io.Writer, runID string, limit int) *TrecWriter {
	if limit <= 0 {
		limit = MaxTrecResults
	}
	return &TrecWriter{w: bufio.NewWriter(w), runID: runID, limit: limit}
}

// WriteQuery writes docs, already ranked and carrying external ids. An empty
// result writes a single dummy row so the query still appears in the run.
func (t *TrecWriter) WriteQuery(qid string, docs []ScoredDoc) error {
	if len(docs) == 0 {
		_, err := fmt.Fprintf(t.w, "%s\tQ0\tdummy\t1\t0\t%s\n", qid, t.runID)
		return err
	}
	if len(docs) > t.limit {
		docs = docs[:t.limit]
	}
	for i, d := range docs {
		if _, err := fmt.Fprintf(t.w, "%s\tQ0\t%s\t%d\t%g\t%s\n", qid, d.ExternalID, i+1, d.Score, t.runID); err != nil {
			return fmt.Errorf("writing result for query %s: %w", qid, err)
		}
	}
	return nil
}

func (t *TrecWriter) Flush() error {
	return t.w.Flush()
}
