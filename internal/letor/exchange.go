package letor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
)

// FormatRow renders row in the ranking exchange format:
//
//	<relevance> qid:<id> <slot>:<value> ... # <externalId>
//
// Only present, enabled slots are written.
func FormatRow(row DocFeature, disabled DisableSet) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(row.Relevance))
	b.WriteString(" qid:")
	b.WriteString(row.QueryID)
	for i, f := range row.Features {
		slot := i + 1
		if !f.Set || disabled.Disabled(slot) {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(slot))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(f.Value, 'g', -1, 64))
	}
	b.WriteString(" # ")
	b.WriteString(row.ExternalID)
	return b.String()
}

// WriteFeatures writes one line per row.
func WriteFeatures(w io.Writer, rows []DocFeature, disabled DisableSet) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		if _, err := bw.WriteString(FormatRow(row, disabled)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseRow parses one exchange-format line.
func ParseRow(line string) (DocFeature, error) {
	var row DocFeature
	body, ext, ok := strings.Cut(line, "#")
	if !ok {
		return row, fmt.Errorf("%w: feature row has no '# externalId' comment", errors.ErrInvalidInput)
	}
	row.ExternalID = strings.TrimSpace(ext)

	fields := strings.Fields(body)
	if len(fields) < 2 {
		return row, fmt.Errorf("%w: feature row needs a relevance and a qid", errors.ErrInvalidInput)
	}
	rel, err := strconv.Atoi(fields[0])
	if err != nil {
		return row, fmt.Errorf("%w: bad relevance %q", errors.ErrInvalidInput, fields[0])
	}
	row.Relevance = rel

	qid, ok := strings.CutPrefix(fields[1], "qid:")
	if !ok || qid == "" {
		return row, fmt.Errorf("%w: bad qid %q", errors.ErrInvalidInput, fields[1])
	}
	row.QueryID = qid

	for _, f := range fields[2:] {
		slotStr, valStr, ok := strings.Cut(f, ":")
		if !ok {
			return row, fmt.Errorf("%w: bad feature %q", errors.ErrInvalidInput, f)
		}
		slot, err := strconv.Atoi(slotStr)
		if err != nil || slot < 1 || slot > NumFeatures {
			return row, fmt.Errorf("%w: bad feature slot %q", errors.ErrInvalidInput, slotStr)
		}
		v, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return row, fmt.Errorf("%w: bad feature value %q", errors.ErrInvalidInput, valStr)
		}
		row.Features.Put(slot, v)
	}
	return row, nil
}

// ReadFeatures parses every non-blank line of r.
func ReadFeatures(r io.Reader) ([]DocFeature, error) {
	var rows []DocFeature
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		row, err := ParseRow(line)
		if err != nil {
			return nil, fmt.Errorf("feature line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading features: %w", err)
	}
	return rows, nil
}

// ReadScores reads the ranker's predictions: one float per line, in input
// row order. Reading stops at the first blank line.
func ReadScores(r io.Reader) ([]float64, error) {
	var scores []float64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: prediction %d is %q", errors.ErrInvalidInput, len(scores)+1, line)
		}
		scores = append(scores, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading predictions: %w", err)
	}
	return scores, nil
}
