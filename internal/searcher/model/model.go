// Package model defines the retrieval models, their parameter constraints and
// the term-level scoring formulas they contribute to query evaluation and
// feature extraction.
package model

import (
	"fmt"
	"math"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

// Kind tags the closed set of retrieval models.
type Kind int

const (
	KindUnrankedBoolean Kind = iota
	KindRankedBoolean
	KindBM25
	KindIndri
	KindLetor
)

func (k Kind) String() string {
	switch k {
	case KindUnrankedBoolean:
		return "unrankedboolean"
	case KindRankedBoolean:
		return "rankedboolean"
	case KindBM25:
		return "bm25"
	case KindIndri:
		return "indri"
	case KindLetor:
		return "letor"
	default:
		return fmt.Sprintf("model(%d)", int(k))
	}
}

// Model is implemented by UnrankedBoolean, RankedBoolean, *BM25, *Indri and
// *Letor only.
type Model interface {
	Kind() Kind
	// DefaultOperator wraps every raw query before parsing.
	DefaultOperator() string
	// CacheKey identifies the model and its parameters.
	CacheKey() string
}

type UnrankedBoolean struct{}

func (UnrankedBoolean) Kind() Kind              { return KindUnrankedBoolean }
func (UnrankedBoolean) DefaultOperator() string { return "#and" }
func (UnrankedBoolean) CacheKey() string        { return "unrankedboolean" }

type RankedBoolean struct{}

func (RankedBoolean) Kind() Kind              { return KindRankedBoolean }
func (RankedBoolean) DefaultOperator() string { return "#and" }
func (RankedBoolean) CacheKey() string        { return "rankedboolean" }

// BM25 carries the Okapi BM25 parameters. Query term frequency is always 1.
type BM25 struct {
	K1 float64
	B  float64
	K3 float64
}

// NewBM25 requires k1 >= 0, 0 <= b <= 1 and k3 >= 0.
func NewBM25(k1, b, k3 float64) (*BM25, error) {
	if k1 < 0 || b < 0 || b > 1 || k3 < 0 || math.IsNaN(k1+b+k3) {
		return nil, errors.Newf(errors.ErrInvalidParameter, http.StatusBadRequest,
			"bm25 requires k1>=0, 0<=b<=1, k3>=0 (got k1=%g b=%g k3=%g)", k1, b, k3)
	}
	return &BM25{K1: k1, B: b, K3: k3}, nil
}

func (*BM25) Kind() Kind              { return KindBM25 }
func (*BM25) DefaultOperator() string { return "#sum" }
func (m *BM25) CacheKey() string {
	return fmt.Sprintf("bm25:%g:%g:%g", m.K1, m.B, m.K3)
}

// RSJ is the Robertson/Sparck-Jones idf weight floored at zero.
func RSJ(numDocs, df float64) float64 {
	return math.Max(0, math.Log((numDocs-df+0.5)/(df+0.5)))
}

// TermScore scores one term occurrence count tf in a field of docLen tokens
// whose average length is avgLen.
func (m *BM25) TermScore(tf, df, numDocs, docLen, avgLen float64) float64 {
	rsj := RSJ(numDocs, df)
	norm := 1 - m.B
	if avgLen > 0 {
		norm += m.B * docLen / avgLen
	}
	tfWeight := tf / (tf + m.K1*norm)
	const qtf = 1.0
	userWeight := (m.K3 + 1) * qtf / (m.K3 + qtf)
	return rsj * tfWeight * userWeight
}

// Indri carries the Dirichlet prior mu and the Jelinek-Mercer mixing weight
// lambda of the Indri language model.
type Indri struct {
	Mu     float64
	Lambda float64
}

// NewIndri requires mu >= 0 and 0 <= lambda <= 1.
func NewIndri(mu, lambda float64) (*Indri, error) {
	if mu < 0 || lambda < 0 || lambda > 1 || math.IsNaN(mu+lambda) {
		return nil, errors.Newf(errors.ErrInvalidParameter, http.StatusBadRequest,
			"indri requires mu>=0, 0<=lambda<=1 (got mu=%g lambda=%g)", mu, lambda)
	}
	return &Indri{Mu: mu, Lambda: lambda}, nil
}

func (*Indri) Kind() Kind              { return KindIndri }
func (*Indri) DefaultOperator() string { return "#and" }
func (m *Indri) CacheKey() string {
	return fmt.Sprintf("indri:%g:%g", m.Mu, m.Lambda)
}

// TermScore is the smoothed probability of a term with frequency tf in a
// field of docLen tokens, given its collection frequency ctf over a field of
// fieldTotal tokens. tf=0 gives the default score for an absent term.
func (m *Indri) TermScore(tf, ctf, fieldTotal, docLen float64) float64 {
	p := 0.0
	if fieldTotal > 0 {
		p = ctf / fieldTotal
	}
	smoothed := 0.0
	if docLen+m.Mu > 0 {
		smoothed = (tf + m.Mu*p) / (docLen + m.Mu)
	}
	return (1-m.Lambda)*smoothed + m.Lambda*p
}

// Letor holds both parameter sets; it does no scoring itself.
type Letor struct {
	BM25  *BM25
	Indri *Indri
}

func NewLetor(bm25 *BM25, indri *Indri) *Letor {
	return &Letor{BM25: bm25, Indri: indri}
}

func (*Letor) Kind() Kind              { return KindLetor }
func (*Letor) DefaultOperator() string { return "#sum" }
func (m *Letor) CacheKey() string {
	return "letor/" + m.BM25.CacheKey()
}

// Scoring returns the model that actually scores documents for m: Letor
// retrieves with its BM25 parameters.
func Scoring(m Model) Model {
	if l, ok := m.(*Letor); ok {
		return l.BM25
	}
	return m
}

// FromConfig builds the configured model, validating its parameters.
func FromConfig(cfg config.RetrievalConfig) (Model, error) {
	return ByName(cfg.Algorithm, cfg)
}

// ByName builds the named model with parameters from cfg.
func ByName(name string, cfg config.RetrievalConfig) (Model, error) {
	switch name {
	case "unrankedboolean":
		return UnrankedBoolean{}, nil
	case "rankedboolean":
		return RankedBoolean{}, nil
	case "bm25":
		return NewBM25(cfg.BM25.K1, cfg.BM25.B, cfg.BM25.K3)
	case "indri":
		return NewIndri(cfg.Indri.Mu, cfg.Indri.Lambda)
	case "letor":
		bm25, err := NewBM25(cfg.BM25.K1, cfg.BM25.B, cfg.BM25.K3)
		if err != nil {
			return nil, err
		}
		indri, err := NewIndri(cfg.Indri.Mu, cfg.Indri.Lambda)
		if err != nil {
			return nil, err
		}
		return NewLetor(bm25, indri), nil
	default:
		return nil, errors.Newf(errors.ErrInvalidParameter, http.StatusBadRequest, "unknown retrieval model %q", name)
	}
}
