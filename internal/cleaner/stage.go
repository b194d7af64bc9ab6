package cleaner

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

// DeleteOptions is passed through to the Deleter.
type DeleteOptions struct {
	DryRun bool
}

// Deleter removes every path matched by the non-negated patterns and not
// matched by a "!" pattern. It returns the removed paths, or under DryRun the
// paths that would be removed.
type Deleter interface {
	Delete(ctx context.Context, patterns []string, opts DeleteOptions) ([]string, error)
}

// Logger receives the observable output of a run.
type Logger interface {
	LogPatterns(patterns []string)
	LogDeleted(count int)
	LogDeletedPaths(paths []string)
}

// Report summarises one finalized run.
type Report struct {
	RunID       string        `json:"run_id"`
	Destination string        `json:"destination"`
	DryRun      bool          `json:"dry_run"`
	Patterns    []string      `json:"patterns"`
	Deleted     []string      `json:"deleted"`
	Count       int           `json:"count"`
	Files       int           `json:"files"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Stage is one invocation of the cleaning step. It owns the PatternSet for
// the run; the set is mutated by OnFile and read once by Finalize.
type Stage struct {
	cfg       *NormalizedConfig
	set       *PatternSet
	deleter   Deleter
	logger    Logger
	files     int
	startedAt time.Time
	finalized bool
}

// NewStage seeds a PatternSet from cfg. A nil logger discards output.
func NewStage(cfg *NormalizedConfig, deleter Deleter, logger Logger) *Stage {
	if logger == nil {
		logger = discardLogger{}
	}
	return &Stage{
		cfg:       cfg,
		set:       NewSeededSet(cfg),
		deleter:   deleter,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Config returns the normalized configuration the stage runs with.
func (s *Stage) Config() *NormalizedConfig {
	return s.cfg
}

// Patterns returns the current pattern list in insertion order.
func (s *Stage) Patterns() []string {
	return s.set.Patterns()
}

// OnFile registers rec as about to be written and returns it unchanged.
func (s *Stage) OnFile(rec FileRecord) FileRecord {
	dest := s.cfg.Destination
	s.set.ExcludePathAndAncestors(path.Join(dest, path.Dir(rec.RelativePath)))
	for _, out := range Resolve(rec, s.cfg.Extensions) {
		s.set.ExcludePathAndAncestors(path.Join(dest, out))
	}
	s.files++
	return rec
}

// Run consumes in until it is closed, forwarding every record to out in
// order, then finalizes. out may be nil and is closed when Run returns.
//
// If ctx is done before in is closed the run is abandoned: Finalize is not
// called and nothing is deleted.
func (s *Stage) Run(ctx context.Context, in <-chan FileRecord, out chan<- FileRecord) (*Report, error) {
	if out != nil {
		defer close(out)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
		case rec, ok := <-in:
			if !ok {
				return s.Finalize(ctx)
			}
			rec = s.OnFile(rec)
			if out == nil {
				continue
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
			}
		}
	}
}

// Finalize hands the pattern list to the Deleter and reports the result.
// It may be called once; no file may be registered afterwards.
func (s *Stage) Finalize(ctx context.Context) (*Report, error) {
	if s.finalized {
		return nil, ErrAlreadyFinalized
	}
	s.finalized = true

	if s.deleter == nil {
		return nil, invalidConfigf("no deleter configured")
	}

	patterns := s.set.Patterns()
	if s.cfg.DryRun {
		s.logger.LogPatterns(patterns)
	}

	deleted, err := s.deleter.Delete(ctx, patterns, DeleteOptions{DryRun: s.cfg.DryRun})
	if err != nil {
		return nil, &DeletionError{Destination: s.cfg.Destination, DryRun: s.cfg.DryRun, Err: err}
	}
	if deleted == nil {
		deleted = []string{}
	}

	s.logger.LogDeleted(len(deleted))
	if s.cfg.DryRun {
		s.logger.LogDeletedPaths(deleted)
	}

	return &Report{
		RunID:       uuid.NewString(),
		Destination: s.cfg.Destination,
		DryRun:      s.cfg.DryRun,
		Patterns:    patterns,
		Deleted:     deleted,
		Count:       len(deleted),
		Files:       s.files,
		StartedAt:   s.startedAt,
		Duration:    time.Since(s.startedAt),
	}, nil
}

type discardLogger struct{}

func (discardLogger) LogPatterns([]string)     {}
func (discardLogger) LogDeleted(int)           {}
func (discardLogger) LogDeletedPaths([]string) {}
