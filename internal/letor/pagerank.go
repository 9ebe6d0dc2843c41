package letor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// PageRank maps external document ids to page-rank scores.
type PageRank struct {
	scores map[string]float64
}

func NewPageRank(scores map[string]float64) *PageRank {
	if scores == nil {
		scores = make(map[string]float64)
	}
	return &PageRank{scores: scores}
}

// Lookup reports the score of externalID, and whether it has one.
func (p *PageRank) Lookup(externalID string) (float64, bool) {
	s, ok := p.scores[externalID]
	return s, ok
}

func (p *PageRank) Len() int {
	return len(p.scores)
}

// LoadPageRank reads "<externalId> <score>" lines until the first blank
// line. Lines without exactly two fields are ignored. On a read or parse
// failure it returns what was loaded so far together with the error.
func LoadPageRank(r io.Reader) (*PageRank, error) {
	pr := NewPageRank(nil)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			break
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		score, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return pr, fmt.Errorf("page-rank line %d: bad score %q", lineNo, fields[1])
		}
		pr.scores[fields[0]] = score
	}
	if err := scanner.Err(); err != nil {
		return pr, fmt.Errorf("reading page-rank scores: %w", err)
	}
	return pr, nil
}

// LoadPageRankFile is LoadPageRank on a file. Failures are logged and the
// partial table is still returned.
func LoadPageRankFile(path string) *PageRank {
	logger := slog.Default().With("component", "pagerank")
	f, err := os.Open(path)
	if err != nil {
		logger.Error("page-rank file unavailable", "path", path, "error", err)
		return NewPageRank(nil)
	}
	defer f.Close()

	pr, err := LoadPageRank(f)
	if err != nil {
		logger.Error("page-rank file partially loaded", "path", path, "loaded", pr.Len(), "error", err)
		return pr
	}
	logger.Info("page-rank scores loaded", "path", path, "entries", pr.Len())
	return pr
}
