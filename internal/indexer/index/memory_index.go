package index

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/RoaringBitmap/roaring"
)

type storedDoc struct {
	externalID string
	attrs      map[string]string
	fields     map[string][]string
}

// MemoryIndex is an in-memory Reader. Internal ids are assigned in insertion
// order, so every posting list is naturally document-ordered.
type MemoryIndex struct {
	mu        sync.RWMutex
	docs      []storedDoc
	external  map[string]int
	postings  map[string]map[string]*InvList
	fieldDocs map[string]*roaring.Bitmap
	fieldLen  map[string]int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		external:  make(map[string]int),
		postings:  make(map[string]map[string]*InvList),
		fieldDocs: make(map[string]*roaring.Bitmap),
		fieldLen:  make(map[string]int64),
	}
}

// AddDocument indexes doc and returns its internal id. Field names are
// canonicalized; unknown fields are rejected.
func (m *MemoryIndex) AddDocument(doc Document) (int, error) {
	if doc.ExternalID == "" {
		return Invalid, errors.New(errors.ErrInvalidInput, http.StatusBadRequest, "document has no external id")
	}

	fields := make(map[string][]string, len(doc.Fields))
	for name, tokens := range doc.Fields {
		field, ok := ValidField(name)
		if !ok {
			return Invalid, errors.Newf(errors.ErrInvalidInput, http.StatusBadRequest, "document %s has unknown field %q", doc.ExternalID, name)
		}
		fields[field] = tokens
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.external[doc.ExternalID]; exists {
		return Invalid, errors.Newf(errors.ErrInvalidInput, http.StatusConflict, "document %s already indexed", doc.ExternalID)
	}

	id := len(m.docs)
	m.docs = append(m.docs, storedDoc{
		externalID: doc.ExternalID,
		attrs:      doc.Attributes,
		fields:     fields,
	})
	m.external[doc.ExternalID] = id

	for field, tokens := range fields {
		if len(tokens) == 0 {
			continue
		}
		bm, ok := m.fieldDocs[field]
		if !ok {
			bm = roaring.New()
			m.fieldDocs[field] = bm
		}
		bm.Add(uint32(id))
		m.fieldLen[field] += int64(len(tokens))

		positions := make(map[string][]int)
		for pos, term := range tokens {
			positions[term] = append(positions[term], pos)
		}
		terms, ok := m.postings[field]
		if !ok {
			terms = make(map[string]*InvList)
			m.postings[field] = terms
		}
		for term, pos := range positions {
			list, ok := terms[term]
			if !ok {
				list = NewInvList(field)
				terms[term] = list
			}
			if err := list.Append(id, pos); err != nil {
				return Invalid, fmt.Errorf("indexing %s: %w", doc.ExternalID, err)
			}
		}
	}
	return id, nil
}

func (m *MemoryIndex) InternalID(externalID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.external[externalID]
	if !ok {
		return Invalid, fmt.Errorf("external id %s: %w", externalID, errors.ErrNotFound)
	}
	return id, nil
}

func (m *MemoryIndex) ExternalID(docID int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if docID < 0 || docID >= len(m.docs) {
		return "", fmt.Errorf("internal id %d: %w", docID, errors.ErrNotFound)
	}
	return m.docs[docID].externalID, nil
}

func (m *MemoryIndex) Attribute(name string, docID int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if docID < 0 || docID >= len(m.docs) {
		return "", false
	}
	v, ok := m.docs[docID].attrs[name]
	return v, ok
}

func (m *MemoryIndex) FieldLength(field string, docID int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if docID < 0 || docID >= len(m.docs) {
		return 0
	}
	return len(m.docs[docID].fields[field])
}

func (m *MemoryIndex) SumFieldLength(field string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fieldLen[field]
}

func (m *MemoryIndex) DocCount(field string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bm, ok := m.fieldDocs[field]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// HasField reports whether the document has a non-empty field.
func (m *MemoryIndex) HasField(field string, docID int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bm, ok := m.fieldDocs[field]
	return ok && docID >= 0 && bm.Contains(uint32(docID))
}

func (m *MemoryIndex) NumDocs() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) Postings(term, field string) *InvList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list, ok := m.postings[field][term]
	if !ok {
		return NewInvList(field)
	}
	return list
}

func (m *MemoryIndex) Ctf(term, field string) int64 {
	return m.Postings(term, field).Ctf()
}

// TermVector builds the vector from the stored token sequence. Stems are
// sorted; a missing field yields an empty vector.
func (m *MemoryIndex) TermVector(docID int, field string) TermVector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tv TermVector
	if docID < 0 || docID >= len(m.docs) {
		return tv
	}
	tokens := m.docs[docID].fields[field]
	if len(tokens) == 0 {
		return tv
	}
	freqs := make(map[string]int)
	for _, t := range tokens {
		freqs[t]++
	}
	tv.Stems = make([]string, 0, len(freqs))
	for stem := range freqs {
		tv.Stems = append(tv.Stems, stem)
	}
	sort.Strings(tv.Stems)
	tv.Freqs = make([]int, len(tv.Stems))
	tv.Ctf = make([]int64, len(tv.Stems))
	tv.Df = make([]int, len(tv.Stems))
	for i, stem := range tv.Stems {
		list := m.postings[field][stem]
		tv.Freqs[i] = freqs[stem]
		tv.Ctf[i] = list.Ctf()
		tv.Df[i] = list.Df()
	}
	return tv
}

// Documents returns copies of the indexed documents in internal id order.
func (m *MemoryIndex) Documents() []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, len(m.docs))
	for i, d := range m.docs {
		out[i] = Document{ExternalID: d.externalID, Attributes: d.attrs, Fields: d.fields}
	}
	return out
}
