// Package index defines the posting-provider contract consumed by query
// evaluation and feature extraction, and an in-memory implementation of it.
package index

import (
	"fmt"
	"strings"
)

// Invalid is the document id reported by exhausted iterators.
const Invalid = -1

const (
	FieldBody     = "body"
	FieldTitle    = "title"
	FieldURL      = "url"
	FieldInlink   = "inlink"
	FieldKeywords = "keywords"
)

// Fields lists the searchable fields in canonical order.
var Fields = []string{FieldBody, FieldTitle, FieldURL, FieldInlink, FieldKeywords}

// ValidField reports whether name (case-insensitive) is a searchable field and
// returns its canonical spelling.
func ValidField(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, f := range Fields {
		if f == name {
			return f, true
		}
	}
	return "", false
}

// Posting is one document's entry in an inverted list. Positions are
// strictly ascending.
type Posting struct {
	DocID     int   `json:"doc"`
	Positions []int `json:"pos"`
}

func (p Posting) TF() int {
	return len(p.Positions)
}

// InvList is a document-ordered posting list for one (term, field), or a list
// synthesized by a proximity operator.
type InvList struct {
	Field    string
	Postings []Posting
	ctf      int64
}

func NewInvList(field string) *InvList {
	return &InvList{Field: field}
}

// Append adds a posting. Document ids must be appended in increasing order.
func (l *InvList) Append(docID int, positions []int) error {
	if n := len(l.Postings); n > 0 && l.Postings[n-1].DocID >= docID {
		return fmt.Errorf("posting for doc %d appended after doc %d", docID, l.Postings[n-1].DocID)
	}
	l.Postings = append(l.Postings, Posting{DocID: docID, Positions: positions})
	l.ctf += int64(len(positions))
	return nil
}

// Df is the number of documents in the list.
func (l *InvList) Df() int {
	return len(l.Postings)
}

// Ctf is the total number of occurrences across the list.
func (l *InvList) Ctf() int64 {
	return l.ctf
}

// TermVector describes the distinct stems of one (document, field) with their
// in-document and corpus statistics.
type TermVector struct {
	Stems []string
	Freqs []int
	Ctf   []int64
	Df    []int
}

func (v TermVector) Len() int {
	return len(v.Stems)
}

// Lookup returns the index of stem, or -1.
func (v TermVector) Lookup(stem string) int {
	for i, s := range v.Stems {
		if s == stem {
			return i
		}
	}
	return -1
}

// Document is the unit of indexing: analyzed token sequences per field plus
// free-form string attributes such as rawUrl or a spam score.
type Document struct {
	ExternalID string              `json:"id"`
	Attributes map[string]string   `json:"attributes,omitempty"`
	Fields     map[string][]string `json:"fields"`
}

// Reader is the posting and statistics provider. Implementations are read by
// one evaluation at a time.
type Reader interface {
	InternalID(externalID string) (int, error)
	ExternalID(docID int) (string, error)
	// Attribute returns the named attribute of a document, if set.
	Attribute(name string, docID int) (string, bool)
	FieldLength(field string, docID int) int
	SumFieldLength(field string) int64
	// DocCount is the number of documents with a non-empty field.
	DocCount(field string) int
	NumDocs() int
	TermVector(docID int, field string) TermVector
	// Postings returns the inverted list of term in field; unknown terms
	// yield an empty list.
	Postings(term, field string) *InvList
	Ctf(term, field string) int64
}
