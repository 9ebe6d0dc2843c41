package letor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Structured-Query-Engine/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Ranker invokes an external SVM-rank style trainer and classifier:
//
//	learn -c <C> <features> <model>
//	classify <features> <model> <predictions>
//
// Each call blocks until the tool exits. There is no timeout: a tool that
// never exits blocks the caller.
type Ranker struct {
	LearnPath    string
	ClassifyPath string
	C            float64
	metrics      *metrics.Metrics
}

func NewRanker(learnPath, classifyPath string, c float64, m *metrics.Metrics) *Ranker {
	return &Ranker{LearnPath: learnPath, ClassifyPath: classifyPath, C: c, metrics: m}
}

// Learn trains a model from a feature file.
func (r *Ranker) Learn(ctx context.Context, featureFile, modelFile string) error {
	return r.run(ctx, "learn", r.LearnPath,
		"-c", strconv.FormatFloat(r.C, 'g', -1, 64), featureFile, modelFile)
}

// Classify writes one prediction per feature row to predictionFile.
func (r *Ranker) Classify(ctx context.Context, featureFile, modelFile, predictionFile string) error {
	return r.run(ctx, "classify", r.ClassifyPath, featureFile, modelFile, predictionFile)
}

func (r *Ranker) run(ctx context.Context, stage, path string, args ...string) error {
	err := runTool(ctx, stage, path, args...)
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.metrics.RankerRunsTotal.WithLabelValues(stage, status).Inc()
	return err
}

// runTool starts path, drains its stdout and stderr concurrently into the
// debug log so a full pipe never stalls it, and waits for it to exit. A
// non-zero exit status is an ErrSubprocess.
func runTool(ctx context.Context, stage, path string, args ...string) error {
	log := logger.FromContext(ctx).With("component", "ranker", "stage", stage)

	cmd := exec.Command(path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ranker %s: %w", stage, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ranker %s: %w", stage, err)
	}
	if err := cmd.Start(); err != nil {
		return errors.Newf(errors.ErrSubprocess, http.StatusInternalServerError,
			"starting ranker %s (%s): %v", stage, path, err)
	}
	log.Info("ranker started", "path", path, "args", args)

	var g errgroup.Group
	g.Go(func() error { return drain(stdout, func(line string) { log.Debug("ranker output", "line", line) }) })
	g.Go(func() error { return drain(stderr, func(line string) { log.Debug("ranker stderr", "line", line) }) })
	drainErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		return errors.Newf(errors.ErrSubprocess, http.StatusInternalServerError,
			"ranker %s (%s) failed: %v", stage, path, err)
	}
	if drainErr != nil {
		return fmt.Errorf("ranker %s: reading output: %w", stage, drainErr)
	}
	log.Info("ranker finished")
	return nil
}

func drain(r io.Reader, line func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		// Keep the pipe empty until the process exits.
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
