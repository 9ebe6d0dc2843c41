package letor

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/internal/searcher/model"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
)

const (
	attrSpam   = "score"
	attrRawURL = "rawUrl"

	// Root domains up to this length score 0 for URL complexity.
	rootDomainBaseline = 10
)

// scoredFields are the fields that each get a BM25, Indri and overlap
// feature, in slot order.
var scoredFields = []string{index.FieldBody, index.FieldTitle, index.FieldURL, index.FieldInlink}

// Candidate is a document to extract features for. Relevance is the
// training label, 0 for test documents.
type Candidate struct {
	ExternalID string
	Relevance  int
}

type Extractor struct {
	reader   index.Reader
	bm25     *model.BM25
	indri    *model.Indri
	pageRank *PageRank
	metrics  *metrics.Metrics
}

func NewExtractor(reader index.Reader, m *model.Letor, pageRank *PageRank, mt *metrics.Metrics) *Extractor {
	if pageRank == nil {
		pageRank = NewPageRank(nil)
	}
	return &Extractor{
		reader:   reader,
		bm25:     m.BM25,
		indri:    m.Indri,
		pageRank: pageRank,
		metrics:  mt,
	}
}

// Extract computes a row for every candidate of query qid. stems are the
// query's analyzed terms. Candidates that cannot be resolved to an indexed
// document are logged and skipped.
func (e *Extractor) Extract(ctx context.Context, qid string, stems []string, candidates []Candidate) []DocFeature {
	log := logger.FromContext(ctx).With("component", "feature-extractor")
	rows := make([]DocFeature, 0, len(candidates))
	for _, c := range candidates {
		doc, err := e.reader.InternalID(c.ExternalID)
		if err != nil {
			log.Warn("skipping unresolvable document", "query_id", qid, "external_id", c.ExternalID, "error", err)
			e.metrics.DocsSkippedTotal.Inc()
			continue
		}
		row := DocFeature{
			Relevance:  c.Relevance,
			QueryID:    qid,
			ExternalID: c.ExternalID,
		}
		e.documentFeatures(&row.Features, doc, c.ExternalID)
		for i, field := range scoredFields {
			e.fieldFeatures(&row.Features, FeatureBodyBM25+3*i, stems, doc, field)
		}
		if overlap, ok := e.overlap(stems, doc, index.FieldKeywords); ok {
			row.Features.Put(FeatureKeywordOverlap, overlap)
		}
		rows = append(rows, row)
	}
	return rows
}

// documentFeatures fills the query-independent slots.
func (e *Extractor) documentFeatures(v *Vector, doc int, externalID string) {
	if s, ok := e.reader.Attribute(attrSpam, doc); ok {
		if spam, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			v.Put(FeatureSpam, float64(spam))
		}
	}
	if raw, ok := e.reader.Attribute(attrRawURL, doc); ok {
		v.Put(FeatureURLDepth, float64(strings.Count(raw, "/")))
		wiki := 0.0
		if strings.Contains(strings.ToLower(raw), "wikipedia.org") {
			wiki = 1
		}
		v.Put(FeatureWikipedia, wiki)
		if n, ok := rootDomainLength(raw); ok {
			v.Put(FeatureURLComplexity, math.Max(0, float64(n-rootDomainBaseline)))
		}
	}
	if pr, ok := e.pageRank.Lookup(externalID); ok {
		v.Put(FeaturePageRank, pr)
	}
}

// fieldFeatures fills the BM25, Indri and overlap slots starting at first
// for one field. The slots stay absent when the document has no terms in
// the field.
func (e *Extractor) fieldFeatures(v *Vector, first int, stems []string, doc int, field string) {
	tv := e.reader.TermVector(doc, field)
	if tv.Len() == 0 || len(stems) == 0 {
		return
	}
	fieldTotal := float64(e.reader.SumFieldLength(field))
	docLen := float64(e.reader.FieldLength(field, doc))
	numDocs := float64(e.reader.NumDocs())
	avgLen := 0.0
	if n := e.reader.DocCount(field); n > 0 {
		avgLen = fieldTotal / float64(n)
	}
	exponent := 1 / float64(len(stems))

	var bm25 float64
	indri := 1.0
	matched := 0
	for _, stem := range stems {
		i := tv.Lookup(stem)
		if i < 0 {
			ctf := float64(e.reader.Ctf(stem, field))
			indri *= math.Pow(e.indri.TermScore(0, ctf, fieldTotal, docLen), exponent)
			continue
		}
		tf := float64(tv.Freqs[i])
		bm25 += e.bm25.TermScore(tf, float64(tv.Df[i]), numDocs, docLen, avgLen)
		indri *= math.Pow(e.indri.TermScore(tf, float64(tv.Ctf[i]), fieldTotal, docLen), exponent)
		matched++
	}
	v.Put(first, bm25)
	v.Put(first+1, indri)
	v.Put(first+2, float64(matched)/float64(len(stems)))
}

// overlap is the fraction of stems present in the field.
func (e *Extractor) overlap(stems []string, doc int, field string) (float64, bool) {
	tv := e.reader.TermVector(doc, field)
	if tv.Len() == 0 || len(stems) == 0 {
		return 0, false
	}
	matched := 0
	for _, s := range stems {
		if tv.Lookup(s) >= 0 {
			matched++
		}
	}
	return float64(matched) / float64(len(stems)), true
}

// rootDomainLength is the length of the last two labels of raw's host, e.g.
// "wikipedia.org" for "http://en.wikipedia.org/wiki/X".
func rootDomainLength(raw string) (int, bool) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return 0, false
	}
	labels := strings.Split(strings.TrimSuffix(u.Hostname(), "."), ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return len(strings.Join(labels, ".")), true
}
