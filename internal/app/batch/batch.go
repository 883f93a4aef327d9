// Package batch computes many rosters concurrently.
//
// Each job is loaded, validated and computed in its own goroutine, bounded
// by an errgroup limit. Every successful result carries a SHA-256 digest of its
// JSON encoding so identical plans can be spotted across files.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pvplan/pvplan/internal/app/compensation"
	"github.com/pvplan/pvplan/internal/domain"
)

// Loader turns a job source (usually a file path) into a plan.
type Loader func(ctx context.Context, source string) (domain.PlanInput, error)

// Config controls runner behavior.
type Config struct {
	MaxConcurrent int           // Parallel computations (default: 4)
	JobTimeout    time.Duration // Per-job deadline for the loader (default: 30s)
	MaxDepth      int           // Roster depth limit, 0 = unlimited
}

// DefaultConfig returns runner defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent: 4,
		JobTimeout:    30 * time.Second,
	}
}

// Outcome is the result of one job. Err is set when loading or
// validation failed; Result and Digest are then zero.
type Outcome struct {
	Source  string                     `json:"source"`
	Result  *domain.CompensationResult `json:"result,omitempty"`
	Digest  string                     `json:"digest,omitempty"`
	Err     error                      `json:"-"`
	Elapsed time.Duration              `json:"elapsed_ns"`
}

// Runner computes batches of plans.
type Runner struct {
	mu        sync.Mutex
	config    Config
	load      Loader
	validate  func([]domain.Member, int) error
	completed int64
	failed    int64
}

// New creates a runner. validate may be nil.
func New(cfg Config, load Loader, validate func([]domain.Member, int) error) *Runner {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}
	return &Runner{
		config:   cfg,
		load:     load,
		validate: validate,
	}
}

// Run computes every source and returns outcomes in input order. If ctx
// is cancelled before all jobs have started it returns the outcomes of the
// started jobs with ctx.Err(); jobs already running finish first.
func (r *Runner) Run(ctx context.Context, sources []string) ([]Outcome, error) {
	out := make([]Outcome, len(sources))
	var g errgroup.Group
	g.SetLimit(r.config.MaxConcurrent)

	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			g.Wait()
			return out[:i], err
		}
		i, src := i, src
		g.Go(func() error {
			out[i] = r.execute(ctx, src)
			return nil
		})
	}

	g.Wait()
	return out, nil
}

// execute loads, validates and computes one job.
func (r *Runner) execute(ctx context.Context, src string) Outcome {
	start := time.Now()
	o := Outcome{Source: src}

	jobCtx, cancel := context.WithTimeout(ctx, r.config.JobTimeout)
	defer cancel()

	in, err := r.load(jobCtx, src)
	if err == nil && r.validate != nil {
		err = r.validate(in.Downline, r.config.MaxDepth)
	}
	if err != nil {
		o.Err = err
		o.Elapsed = time.Since(start)
		r.fail(src, err)
		return o
	}

	res := compensation.Compute(in)
	digest, err := Digest(res)
	if err != nil {
		o.Err = err
		o.Elapsed = time.Since(start)
		r.fail(src, err)
		return o
	}
	o.Result = &res
	o.Digest = digest
	o.Elapsed = time.Since(start)

	r.mu.Lock()
	r.completed++
	r.mu.Unlock()
	return o
}

func (r *Runner) fail(src string, err error) {
	log.Printf("[batch] %s failed: %v", src, err)
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()
}

// Digest returns the hex SHA-256 of the result's JSON encoding.
// Per-member contributions are left out because member ids are assigned
// at load time and differ between otherwise identical rosters.
func Digest(res domain.CompensationResult) (string, error) {
	res.Contributions = nil
	b, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("digest result: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Stats reports runner totals.
type Stats struct {
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	MaxSlots  int   `json:"max_slots"`
}

// Stats returns totals since the runner was created.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Completed: r.completed,
		Failed:    r.failed,
		MaxSlots:  r.config.MaxConcurrent,
	}
}
