// Package feedback implements pseudo-relevance-feedback query expansion:
// candidate terms are drawn from the body field of the top-ranked documents
// of an initial run and weighted into a #wand clause.
package feedback

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/ranker"
)

// WeightedDoc is one feedback document with its initial retrieval score.
type WeightedDoc struct {
	DocID int
	Score float64
}

// Term is a candidate expansion term and its accumulated weight.
type Term struct {
	Term  string
	Score float64
}

// TopDocs returns the first n entries of an already sorted ScoreList.
func TopDocs(list *ranker.ScoreList, n int) []WeightedDoc {
	if n > list.Len() {
		n = list.Len()
	}
	out := make([]WeightedDoc, 0, n)
	for _, d := range list.Docs[:n] {
		out = append(out, WeightedDoc{DocID: d.DocID, Score: d.Score})
	}
	return out
}

type Expander struct {
	reader index.Reader
	logger *slog.Logger
}

func NewExpander(reader index.Reader) *Expander {
	return &Expander{
		reader: reader,
		logger: slog.Default().With("component", "feedback-expander"),
	}
}

// Expand scores every body term of the top documents and returns the best
// numTerms, highest first. A term's score sums, over all top documents d,
//
//	(tf + mu*P) / (len(d) + mu) * score(d) * ln(1/P)
//
// with tf = 0 for documents that lack the term, where P is the term's
// collection probability in the body field.
func (e *Expander) Expand(top []WeightedDoc, numTerms int, mu float64) []Term {
	const field = index.FieldBody
	total := float64(e.reader.SumFieldLength(field))
	if total == 0 || numTerms <= 0 {
		return nil
	}

	// Sum of score/(len+mu) over every top document: the absent-term
	// contribution of all of them before any occurrence is seen.
	var docWeight float64
	for _, d := range top {
		docWeight += d.Score / (float64(e.reader.FieldLength(field, d.DocID)) + mu)
	}

	scores := make(map[string]float64)
	for _, d := range top {
		tv := e.reader.TermVector(d.DocID, field)
		docLen := float64(e.reader.FieldLength(field, d.DocID))
		for i, stem := range tv.Stems {
			if strings.ContainsAny(stem, ".,") {
				continue
			}
			p := float64(tv.Ctf[i]) / total
			if p <= 0 {
				continue
			}
			idf := math.Log(1 / p)
			present := (float64(tv.Freqs[i]) + mu*p) / (docLen + mu) * d.Score * idf
			absent := mu * p / (docLen + mu) * d.Score * idf

			s, seen := scores[stem]
			if !seen {
				s = mu * p * docWeight * idf
			}
			scores[stem] = s + present - absent
		}
	}

	terms := make([]Term, 0, len(scores))
	for t, s := range scores {
		terms = append(terms, Term{Term: t, Score: s})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Score != terms[j].Score {
			return terms[i].Score > terms[j].Score
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > numTerms {
		terms = terms[:numTerms]
	}
	e.logger.Debug("expansion terms selected", "docs", len(top), "candidates", len(scores), "kept", len(terms))
	return terms
}

// FormatExpansion renders terms as a #wand clause.
func FormatExpansion(terms []Term) string {
	var b strings.Builder
	b.WriteString("#wand(")
	for i, t := range terms {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.4f %s", t.Score, t.Term)
	}
	b.WriteByte(')')
	return b.String()
}

// Combine weighs the original query by origWeight against the expansion
// clause.
func Combine(original, expansion string, origWeight float64) string {
	return fmt.Sprintf("#wand(%.4f #and(%s) %.4f %s)", origWeight, original, 1-origWeight, expansion)
}
