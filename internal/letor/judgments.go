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

// RelevantDocList is one query's judged documents in file order.
type RelevantDocList struct {
	ExternalIDs []string
	Relevance   []int
}

func (l *RelevantDocList) Add(externalID string, relevance int) {
	l.ExternalIDs = append(l.ExternalIDs, externalID)
	l.Relevance = append(l.Relevance, relevance)
}

func (l *RelevantDocList) Len() int {
	return len(l.ExternalIDs)
}

// Judgments maps query ids to their judged documents.
type Judgments map[string]*RelevantDocList

// ReadJudgments reads "<qid> <iter> <externalId> <relevance>" lines until the
// first blank line. On a malformed line it returns what was read so far
// together with the error.
func ReadJudgments(r io.Reader) (Judgments, error) {
	out := make(Judgments)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			break
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return out, fmt.Errorf("judgment line %d: want 4 fields, got %d", lineNo, len(fields))
		}
		rel, err := strconv.Atoi(fields[3])
		if err != nil {
			return out, fmt.Errorf("judgment line %d: bad relevance %q", lineNo, fields[3])
		}
		list, ok := out[fields[0]]
		if !ok {
			list = &RelevantDocList{}
			out[fields[0]] = list
		}
		list.Add(fields[2], rel)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("reading judgments: %w", err)
	}
	return out, nil
}

// LoadJudgmentsFile is ReadJudgments on a file. Failures are logged and the
// partial judgments are still returned.
func LoadJudgmentsFile(path string) Judgments {
	logger := slog.Default().With("component", "judgments")
	f, err := os.Open(path)
	if err != nil {
		logger.Error("judgments file unavailable", "path", path, "error", err)
		return make(Judgments)
	}
	defer f.Close()

	j, err := ReadJudgments(f)
	if err != nil {
		logger.Error("judgments file partially loaded", "path", path, "queries", len(j), "error", err)
	}
	return j
}
