package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"pitchcast/pkg/domain"
	"pitchcast/pkg/store"
)

// ReconcileOutcome classifies what the poller did with one pending video.
type ReconcileOutcome string

const (
	OutcomeUnchanged ReconcileOutcome = "unchanged"
	OutcomeCompleted ReconcileOutcome = "completed"
	OutcomeFailed    ReconcileOutcome = "failed"
	OutcomeError     ReconcileOutcome = "error"
)

// ReconcileResult is the per-video result of one reconciliation sweep.
type ReconcileResult struct {
	VideoID string
	Outcome ReconcileOutcome
	Err     error
}

// Reconcile polls the synthesis provider for every video stuck in
// video_creating and resolves the ones that finished. Videos pending longer
// than the synthesis timeout are marked failed without a poll. A poll error
// leaves that video untouched for the next sweep; one video's error never
// blocks the others.
func (a *App) Reconcile(ctx context.Context) ([]ReconcileResult, error) {
	videos, err := a.store.ListVideosByStatus(domain.VideoCreating)
	if err != nil {
		return nil, fmt.Errorf("list pending videos: %w", err)
	}
	if len(videos) == 0 {
		return nil, nil
	}

	results := make([]ReconcileResult, len(videos))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.pollConcurrency)
	for i, v := range videos {
		i, v := i, v
		g.Go(func() error {
			res := a.reconcileOne(gctx, v)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (a *App) reconcileOne(ctx context.Context, v domain.Video) ReconcileResult {
	if a.synthTimeout > 0 && time.Since(v.UpdatedAt) > a.synthTimeout {
		cause := fmt.Sprintf("synthesis timed out after %s", a.synthTimeout)
		if err := a.store.MarkVideoFailed(v.ID, cause); err != nil {
			return ReconcileResult{VideoID: v.ID, Outcome: OutcomeError, Err: err}
		}
		return ReconcileResult{VideoID: v.ID, Outcome: OutcomeFailed}
	}

	job, err := a.synth.Job(ctx, v.SynthJobID)
	if err != nil {
		return ReconcileResult{VideoID: v.ID, Outcome: OutcomeError,
			Err: &AdapterError{Provider: "synthesis", Err: err}}
	}
	switch {
	case job.Completed():
		if err := a.store.AdvanceVideo(v.ID, domain.VideoCreating, domain.VideoDone,
			store.VideoFields{VideoURL: job.URL}); err != nil {
			return ReconcileResult{VideoID: v.ID, Outcome: OutcomeError, Err: err}
		}
		return ReconcileResult{VideoID: v.ID, Outcome: OutcomeCompleted}
	case job.Failed():
		cause := job.Error
		if cause == "" {
			cause = fmt.Sprintf("synthesis job %s reported %s", job.ID, job.Status)
		}
		if err := a.store.MarkVideoFailed(v.ID, cause); err != nil {
			return ReconcileResult{VideoID: v.ID, Outcome: OutcomeError, Err: err}
		}
		return ReconcileResult{VideoID: v.ID, Outcome: OutcomeFailed}
	}
	return ReconcileResult{VideoID: v.ID, Outcome: OutcomeUnchanged}
}

// RunReconciler sweeps on the given interval until ctx is canceled.
func (a *App) RunReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := a.Reconcile(ctx)
			if err != nil {
				slog.Error("reconcile sweep", "err", err)
				continue
			}
			if len(results) > 0 {
				var done, failed, errs int
				for _, r := range results {
					switch r.Outcome {
					case OutcomeCompleted:
						done++
					case OutcomeFailed:
						failed++
					case OutcomeError:
						errs++
						slog.Warn("reconcile video", "video_id", r.VideoID, "err", r.Err)
					}
				}
				slog.Info("reconcile sweep", "pending", len(results),
					"completed", done, "failed", failed, "errors", errs)
			}
		}
	}
}
