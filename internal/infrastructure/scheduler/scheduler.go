// Package scheduler drives claims through the pipeline in-process: one
// goroutine per claim, sleeping a random delay between steps.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kirillkom/fleet-claims/internal/core/domain"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
)

type Options struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// Jitter returns a value in [0, n). Defaults to math/rand/v2.
	Jitter func(n int64) int64
}

type run struct {
	cancel context.CancelFunc
	gen    uint64
}

// Scheduler implements ports.StepDispatcher for a single process.
type Scheduler struct {
	stepper ports.PipelineStepper
	opts    Options

	base      context.Context
	cancelAll context.CancelFunc
	wg        sync.WaitGroup

	mu     sync.Mutex
	runs   map[string]run
	gen    uint64
	closed bool
}

func New(stepper ports.PipelineStepper, opts Options) *Scheduler {
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.Int64N
	}
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		stepper:   stepper,
		opts:      opts,
		base:      base,
		cancelAll: cancel,
		runs:      make(map[string]run),
	}
}

// Start begins periodic stepping. Starting a claim that is already scheduled
// is a no-op. The run outlives ctx; only Cancel or Close stop it.
func (s *Scheduler) Start(_ context.Context, claimID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.WrapError(domain.ErrTemporary, "schedule claim", fmt.Errorf("scheduler is closed"))
	}
	if _, running := s.runs[claimID]; running {
		return nil
	}

	s.gen++
	ctx, cancel := context.WithCancel(s.base)
	s.runs[claimID] = run{cancel: cancel, gen: s.gen}
	s.wg.Add(1)
	go s.loop(ctx, claimID, s.gen)
	return nil
}

// Cancel stops the pending step of a claim. Recorded outputs are untouched.
func (s *Scheduler) Cancel(_ context.Context, claimID string) error {
	s.mu.Lock()
	r, ok := s.runs[claimID]
	if ok {
		delete(s.runs, claimID)
	}
	s.mu.Unlock()

	if ok {
		r.cancel()
		slog.Info("pipeline_canceled", "claim_id", claimID)
	}
	return nil
}

// Running reports whether a claim currently has a scheduled run.
func (s *Scheduler) Running(claimID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[claimID]
	return ok
}

// Close cancels every run and waits for the goroutines to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancelAll()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, claimID string, gen uint64) {
	defer s.wg.Done()
	defer s.finish(claimID, gen)

	for {
		if !s.sleep(ctx) {
			return
		}
		res, err := s.stepper.Step(ctx, claimID)
		switch {
		case domain.IsKind(err, domain.ErrStepInFlight):
			continue
		case err != nil:
			if ctx.Err() == nil {
				slog.Warn("pipeline_step_failed", "claim_id", claimID, "error", err)
			}
			return
		case res.Done:
			slog.Info("pipeline_completed", "claim_id", claimID)
			return
		}
	}
}

func (s *Scheduler) sleep(ctx context.Context) bool {
	delay := s.opts.MinDelay
	if spread := s.opts.MaxDelay - s.opts.MinDelay; spread > 0 {
		delay += time.Duration(s.opts.Jitter(int64(spread) + 1))
	}
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) finish(claimID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[claimID]; ok && r.gen == gen {
		r.cancel()
		delete(s.runs, claimID)
	}
}
