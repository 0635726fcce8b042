package onboarding

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"clerk/internal/reconcile"
)

// Labeler returns the expected decision for a client, if one is known.
type Labeler func(clientID string) (reconcile.Decision, bool)

// MapLabeler looks expected decisions up in a fixed table.
func MapLabeler(labels map[string]reconcile.Decision) Labeler {
	return func(clientID string) (reconcile.Decision, bool) {
		d, ok := labels[clientID]
		return d, ok
	}
}

// ModuloLabeler follows the test-data convention where numeric ids whose
// value mod 1000 is at most 500 belong to clients that should be accepted.
// Non-numeric ids are unlabeled.
func ModuloLabeler() Labeler {
	return func(clientID string) (reconcile.Decision, bool) {
		n, err := strconv.Atoi(clientID)
		if err != nil {
			return "", false
		}
		if n%1000 <= 500 {
			return reconcile.Accept, true
		}
		return reconcile.Reject, true
	}
}

// Mismatch is a labeled client the engine decided differently.
type Mismatch struct {
	ClientID string
	Expected reconcile.Decision
	Actual   reconcile.Decision
	Result   *Result
}

// BatchSummary tallies a batch run. A false positive is an accepted client
// whose label says reject; a false negative is the reverse.
type BatchSummary struct {
	Results        []*Result
	Labeled        int
	Correct        int
	FalsePositives []Mismatch
	FalseNegatives []Mismatch
}

// Accuracy is the percentage of labeled clients decided correctly, or 0 when
// nothing was labeled.
func (b BatchSummary) Accuracy() float64 {
	if b.Labeled == 0 {
		return 0
	}
	pct := float64(b.Correct) / float64(b.Labeled) * 100
	return math.Round(pct*100) / 100
}

// EvaluateBatch evaluates every stored snapshot with bounded concurrency.
// labels may be nil. The first load failure cancels the batch.
func (s *Service) EvaluateBatch(ctx context.Context, labels Labeler) (*BatchSummary, error) {
	ids, err := s.snapshots.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	results := make([]*Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, id := range ids {
		g.Go(func() error {
			snap, err := s.snapshots.Get(gctx, id)
			if err != nil {
				return fmt.Errorf("load snapshot %s: %w", id, err)
			}
			result, err := s.evaluate(gctx, snap.ID, snap.Fields, OriginBatch)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ClientID < results[j].ClientID
	})
	summary := &BatchSummary{Results: results}
	if labels == nil {
		return summary, nil
	}
	for _, r := range results {
		expected, ok := labels(r.ClientID)
		if !ok {
			continue
		}
		summary.Labeled++
		switch {
		case expected == r.Decision:
			summary.Correct++
		case r.Decision == reconcile.Accept:
			summary.FalsePositives = append(summary.FalsePositives, Mismatch{ClientID: r.ClientID, Expected: expected, Actual: r.Decision, Result: r})
		default:
			summary.FalseNegatives = append(summary.FalseNegatives, Mismatch{ClientID: r.ClientID, Expected: expected, Actual: r.Decision, Result: r})
		}
	}

	s.logger.InfoContext(ctx, "batch evaluated",
		"clients", len(results),
		"labeled", summary.Labeled,
		"correct", summary.Correct,
		"false_positives", len(summary.FalsePositives),
		"false_negatives", len(summary.FalseNegatives),
		"accuracy", summary.Accuracy(),
	)
	return summary, nil
}
