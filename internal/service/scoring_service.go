package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
	"github.com/Phurinho/outcome-career-align/pkg/jobs"
)

const scoringJobType = "score_unmapped"

type scoringEngine interface {
	UnmappedCLOs(ctx context.Context) ([]models.CLO, error)
	ScoreCLO(ctx context.Context, cloID string) (int, int, error)
}

// ScoringQueueConfig tunes the background scoring queue.
type ScoringQueueConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	// RunTTL is how long finished runs stay queryable. Defaults to an hour.
	RunTTL     time.Duration
}

type scoringRunState struct {
	run    models.ScoringRun
	scored map[string]struct{}
}

// ScoringService runs "score every unmapped CLO" batches on a worker queue.
type ScoringService struct {
	engine  scoringEngine
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger

	mu     sync.RWMutex
	runs   map[string]*scoringRunState
	runTTL time.Duration
	now    func() time.Time
}

// NewScoringService wires the queue; call Start before StartRun.
func NewScoringService(engine scoringEngine, cfg ScoringQueueConfig, metrics *MetricsService, logger *zap.Logger) *ScoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = time.Hour
	}
	s := &ScoringService{
		engine:  engine,
		metrics: metrics,
		logger:  logger,
		runs:    make(map[string]*scoringRunState),
		runTTL:  cfg.RunTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.queue = jobs.NewQueue("scoring", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnExhaust:  s.fail,
	})
	return s
}

// Start launches the scoring workers.
func (s *ScoringService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for the workers to exit.
func (s *ScoringService) Stop() {
	s.queue.Stop()
}

// StartRun queues a batch run and returns its initial state.
func (s *ScoringService) StartRun(ctx context.Context, actor models.Actor) (*models.ScoringRun, error) {
	run := &models.ScoringRun{
		ID:          uuid.NewString(),
		Status:      models.ScoringRunQueued,
		RequestedBy: actor.UserID,
		CreatedAt:   s.now(),
	}
	s.mu.Lock()
	s.pruneLocked(run.CreatedAt)
	s.runs[run.ID] = &scoringRunState{run: *run, scored: make(map[string]struct{})}
	snapshot := *run
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: scoringJobType}); err != nil {
		s.fail(jobs.Job{ID: run.ID}, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue scoring run")
	}
	s.logger.Info("scoring run queued", zap.String("run_id", run.ID), zap.String("requested_by", actor.UserID))
	return &snapshot, nil
}

// Run returns the current state of a batch run.
func (s *ScoringService) Run(_ context.Context, id string) (*models.ScoringRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[id]
	if !ok || s.expired(state, s.now()) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scoring run not found")
	}
	snapshot := state.run
	return &snapshot, nil
}

// handle scores every CLO that is still unmapped. CLOs already scored by an
// earlier attempt of the same run are skipped, so each CLO is counted once.
func (s *ScoringService) handle(ctx context.Context, job jobs.Job) error {
	s.update(job.ID, func(run *models.ScoringRun) {
		run.Status = models.ScoringRunRunning
		run.Error = ""
	})

	clos, err := s.engine.UnmappedCLOs(ctx)
	if err != nil {
		return err
	}
	for _, clo := range clos {
		if s.scoredBefore(job.ID, clo.ID) {
			continue
		}
		suggested, skipped, err := s.engine.ScoreCLO(ctx, clo.ID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if state, ok := s.runs[job.ID]; ok {
			state.scored[clo.ID] = struct{}{}
			state.run.CLOsScored++
			state.run.Suggested += suggested
			state.run.Skipped += skipped
		}
		s.mu.Unlock()
	}

	s.finish(job.ID, models.ScoringRunFinished, "")
	return nil
}

func (s *ScoringService) fail(job jobs.Job, err error) {
	s.finish(job.ID, models.ScoringRunFailed, err.Error())
}

func (s *ScoringService) finish(id string, status models.ScoringRunStatus, message string) {
	at := s.now()
	s.update(id, func(run *models.ScoringRun) {
		run.Status = status
		run.Error = message
		run.FinishedAt = &at
	})
	s.metrics.RecordScoringRun(status)
	s.logger.Info("scoring run finished", zap.String("run_id", id), zap.String("status", string(status)))
}

func (s *ScoringService) update(id string, fn func(run *models.ScoringRun)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.runs[id]; ok {
		fn(&state.run)
	}
}

func (s *ScoringService) scoredBefore(runID, cloID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.runs[runID]
	if !ok {
		return false
	}
	_, done := state.scored[cloID]
	return done
}

func (s *ScoringService) expired(state *scoringRunState, now time.Time) bool {
	return state.run.FinishedAt != nil && now.Sub(*state.run.FinishedAt) > s.runTTL
}

// pruneLocked drops finished runs older than the TTL. Callers hold mu.
func (s *ScoringService) pruneLocked(now time.Time) {
	for id, state := range s.runs {
		if s.expired(state, now) {
			delete(s.runs, id)
		}
	}
}
