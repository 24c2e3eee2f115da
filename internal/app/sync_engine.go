package app

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-sync/internal/domain"
	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
	"github.com/jsamuelsen/quote-sync/internal/platform/metrics"
	"github.com/jsamuelsen/quote-sync/internal/platform/telemetry"
	"github.com/jsamuelsen/quote-sync/internal/ports"
)

// State is the sync engine's position in a cycle.
type State string

const (
	StateIdle    State = "idle"
	StatePushing State = "pushing"
	StatePulling State = "pulling"
	StateMerging State = "merging"
	StateFailed  State = "failed"
)

// Outcome classifies a finished cycle.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomePartialPushFailure Outcome = "partial_push_failure"
	OutcomePullFailed         Outcome = "pull_failed"

	// OutcomeCoalesced is returned to a trigger absorbed by an in-flight cycle.
	OutcomeCoalesced Outcome = "coalesced"
)

// CycleReport describes what one cycle did.
type CycleReport struct {
	CycleID    string
	Outcome    Outcome
	StartedAt  time.Time
	FinishedAt time.Time

	Pushed     int
	PushFailed []string
	Pulled     int
	Added      int
	Updated    int

	// Conflicts lists every conflict detected during the merge, whether it
	// was resolved on the spot or deferred.
	Conflicts    []domain.Conflict
	AutoResolved int

	// Error carries the pull failure or a storage failure, if any.
	Error string
}

// Status is a point-in-time view of the engine.
type Status struct {
	State            State
	Running          bool
	Policy           domain.Policy
	LastOutcome      Outcome
	LastError        string
	LastSync         *time.Time
	PendingConflicts int
	LastReport       *CycleReport
}

// EngineConfig configures an Engine. Store and Remote are required.
type EngineConfig struct {
	Store  *Store
	Remote ports.RemoteQuotes
	Logger *slog.Logger

	Policy          domain.Policy
	PullLimit       int
	PushConcurrency int

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine reconciles the store with the remote: push dirty records, pull a
// batch, merge. At most one cycle runs at a time; triggers that arrive
// while one is running are coalesced into a single follow-up cycle.
type Engine struct {
	store  *Store
	remote ports.RemoteQuotes
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	pullLimit       int
	pushConcurrency int

	cycleMu sync.Mutex
	running bool
	rerun   bool

	// mu guards everything below. Lock order is Store.mu before mu.
	mu          sync.Mutex
	state       State
	policy      domain.Policy
	pending     map[string]domain.Conflict
	lastOutcome Outcome
	lastError   string
	lastReport  *CycleReport
}

// NewEngine creates a sync engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	policy := cfg.Policy
	if policy == "" {
		policy = domain.PolicyServerWins
	}

	pullLimit := cfg.PullLimit
	if pullLimit <= 0 {
		pullLimit = 10
	}

	return &Engine{
		store:           cfg.Store,
		remote:          cfg.Remote,
		logger:          logger.With(slog.String("component", "app.Engine")),
		tracer:          telemetry.Tracer(),
		now:             now,
		pullLimit:       pullLimit,
		pushConcurrency: max(cfg.PushConcurrency, 1),
		state:           StateIdle,
		policy:          policy,
		pending:         map[string]domain.Conflict{},
	}
}

// Sync runs a cycle, or marks a follow-up if one is already running.
// It never returns an error: every failure is folded into the report.
// A cycle is not cancelled by ctx once started.
func (e *Engine) Sync(ctx context.Context) *CycleReport {
	e.cycleMu.Lock()
	if e.running {
		e.rerun = true
		e.cycleMu.Unlock()

		metrics.SyncCycles.WithLabelValues(string(OutcomeCoalesced)).Inc()
		e.logger.DebugContext(ctx, "sync in flight, trigger coalesced")

		at := e.now().UTC()

		return &CycleReport{Outcome: OutcomeCoalesced, StartedAt: at, FinishedAt: at}
	}

	e.running = true
	e.cycleMu.Unlock()

	ctx = context.WithoutCancel(ctx)

	for {
		report := e.runCycle(ctx)

		e.cycleMu.Lock()
		if !e.rerun {
			e.running = false
			e.cycleMu.Unlock()

			return report
		}

		e.rerun = false
		e.cycleMu.Unlock()

		e.logger.DebugContext(ctx, "running coalesced follow-up cycle")
	}
}

func (e *Engine) runCycle(ctx context.Context) *CycleReport {
	report := &CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: e.now().UTC(),
	}

	ctx = logging.WithCycleID(ctx, report.CycleID)
	logger := logging.FromContext(ctx)

	ctx, span := e.tracer.Start(ctx, "sync.cycle",
		trace.WithAttributes(attribute.String("sync.cycle_id", report.CycleID)))
	defer span.End()

	logger.DebugContext(ctx, "sync cycle started")

	e.setState(StatePushing)
	e.push(ctx, report)

	e.setState(StatePulling)

	remote, err := e.remote.Pull(ctx, e.pullLimit)
	if err != nil {
		report.Outcome = OutcomePullFailed
		report.Error = err.Error()

		span.RecordError(err)
		span.SetStatus(codes.Error, "pull failed")
		logger.WarnContext(ctx, "pull failed, cycle aborted", slog.Any("error", err))

		return e.finish(ctx, span, report, StateFailed)
	}

	report.Pulled = len(remote)

	e.setState(StateMerging)
	e.merge(ctx, remote, report)

	report.Outcome = OutcomeSuccess
	if len(report.PushFailed) > 0 {
		report.Outcome = OutcomePartialPushFailure
	}

	syncedAt := e.now().UTC()
	if err := e.store.SetLastSync(ctx, syncedAt); err != nil {
		report.Error = err.Error()
		logger.WarnContext(ctx, "persisting last sync failed", slog.Any("error", err))
	}

	metrics.LastSuccessfulSync.Set(float64(syncedAt.Unix()))

	return e.finish(ctx, span, report, StateIdle)
}

// push sends every dirty record not awaiting a manual decision. A success
// marks the record clean only if it was not changed while in flight.
func (e *Engine) push(ctx context.Context, report *CycleReport) {
	ctx, span := e.tracer.Start(ctx, "sync.push")
	defer span.End()

	logger := logging.FromContext(ctx)

	dirty := e.store.Dirty()

	e.mu.Lock()
	dirty = slices.DeleteFunc(dirty, func(q domain.Quote) bool {
		_, held := e.pending[q.ID]
		return held
	})
	e.mu.Unlock()

	span.SetAttributes(attribute.Int("sync.dirty", len(dirty)))

	if len(dirty) == 0 {
		return
	}

	errs := fanOut(ctx, e.pushConcurrency, dirty, e.remote.Push)

	acked := make([]domain.Quote, 0, len(dirty))

	for i, err := range errs {
		if err != nil {
			report.PushFailed = append(report.PushFailed, dirty[i].ID)
			metrics.PushResults.WithLabelValues("failed").Inc()
			logger.WarnContext(ctx, "push failed",
				slog.String("quote_id", dirty[i].ID),
				slog.Any("error", err))

			continue
		}

		acked = append(acked, dirty[i])
		metrics.PushResults.WithLabelValues("ok").Inc()
	}

	report.Pushed = len(acked)

	if len(acked) == 0 {
		return
	}

	err := e.store.Apply(ctx, func(r *RecordSet) error {
		for _, sent := range acked {
			cur, ok := r.Get(sent.ID)
			if !ok || cur != sent {
				continue
			}

			cur.MarkSynced()
			r.Put(cur)
		}

		return nil
	})
	if err != nil {
		report.Error = err.Error()
		logger.WarnContext(ctx, "persisting push results failed", slog.Any("error", err))
	}
}

// merge folds the pulled batch into the store.
func (e *Engine) merge(ctx context.Context, remote []domain.Quote, report *CycleReport) {
	ctx, span := e.tracer.Start(ctx, "sync.merge",
		trace.WithAttributes(attribute.Int("sync.pulled", len(remote))))
	defer span.End()

	now := e.now().UTC()

	err := e.store.Apply(ctx, func(r *RecordSet) error {
		e.mu.Lock()
		defer e.mu.Unlock()

		for _, rq := range remote {
			local, ok := r.Get(rq.ID)

			switch {
			case !ok:
				r.Put(rq)
				report.Added++

			case local.SameContent(rq):
				local.MarkSynced()
				r.Put(local)
				delete(e.pending, rq.ID)

			case !local.Dirty:
				local.AcceptRemote(rq)
				r.Put(local)
				report.Updated++
				delete(e.pending, rq.ID)

			default:
				c := domain.Conflict{ID: rq.ID, Local: local, Remote: rq, DetectedAt: now}
				report.Conflicts = append(report.Conflicts, c)

				if e.policy == domain.PolicyManual {
					e.pending[c.ID] = c
					continue
				}

				local.AcceptRemote(rq)
				r.Put(local)
				report.AutoResolved++
				delete(e.pending, rq.ID)
			}
		}

		metrics.PendingConflicts.Set(float64(len(e.pending)))

		return nil
	})

	metrics.ConflictsDetected.Add(float64(len(report.Conflicts)))
	metrics.ConflictsResolved.WithLabelValues(string(domain.ChoiceRemote), "auto").Add(float64(report.AutoResolved))

	span.SetAttributes(
		attribute.Int("sync.added", report.Added),
		attribute.Int("sync.updated", report.Updated),
		attribute.Int("sync.conflicts", len(report.Conflicts)),
	)

	if len(report.Conflicts) > 0 {
		logging.FromContext(ctx).InfoContext(ctx, "conflicts detected",
			slog.Int("count", len(report.Conflicts)),
			slog.Int("auto_resolved", report.AutoResolved))
	}

	if err != nil {
		report.Error = err.Error()
		logging.FromContext(ctx).WarnContext(ctx, "persisting merge failed", slog.Any("error", err))
	}
}

func (e *Engine) finish(ctx context.Context, span trace.Span, report *CycleReport, state State) *CycleReport {
	report.FinishedAt = e.now().UTC()
	elapsed := report.FinishedAt.Sub(report.StartedAt)

	span.SetAttributes(attribute.String("sync.outcome", string(report.Outcome)))
	metrics.RecordCycle(string(report.Outcome), elapsed)

	e.mu.Lock()
	e.state = state
	e.lastOutcome = report.Outcome
	e.lastError = report.Error
	e.lastReport = report
	e.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "sync cycle finished",
		slog.String("outcome", string(report.Outcome)),
		slog.Int("pushed", report.Pushed),
		slog.Int("push_failed", len(report.PushFailed)),
		slog.Int("pulled", report.Pulled),
		slog.Int("conflicts", len(report.Conflicts)),
		slog.Duration("duration", elapsed))

	return report
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.cycleMu.Lock()
	running := e.running
	e.cycleMu.Unlock()

	lastSync := e.store.Preferences().LastSync

	e.mu.Lock()
	defer e.mu.Unlock()

	return Status{
		State:            e.state,
		Running:          running,
		Policy:           e.policy,
		LastOutcome:      e.lastOutcome,
		LastError:        e.lastError,
		LastSync:         lastSync,
		PendingConflicts: len(e.pending),
		LastReport:       e.lastReport,
	}
}

// Policy returns the active conflict policy.
func (e *Engine) Policy() domain.Policy {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.policy
}

// SetPolicy switches the conflict policy for subsequent merges. Pending
// conflicts are kept when switching to server-wins.
func (e *Engine) SetPolicy(p domain.Policy) {
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()

	e.logger.Info("conflict policy changed", slog.String("policy", string(p)))
}

// Conflicts lists pending conflicts, oldest detection first.
func (e *Engine) Conflicts() []domain.Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Conflict, 0, len(e.pending))
	for _, c := range e.pending {
		out = append(out, c)
	}

	slices.SortFunc(out, func(a, b domain.Conflict) int {
		if c := a.DetectedAt.Compare(b.DetectedAt); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})

	return out
}

// Resolve settles one pending conflict. Returns domain.NotFoundError when no
// conflict is pending for id.
func (e *Engine) Resolve(ctx context.Context, id string, choice domain.Choice) error {
	e.mu.Lock()
	c, ok := e.pending[id]
	if ok {
		delete(e.pending, id)
		metrics.PendingConflicts.Set(float64(len(e.pending)))
	}
	e.mu.Unlock()

	if !ok {
		return domain.NewNotFoundError("conflict", id)
	}

	return e.apply(ctx, []domain.Conflict{c}, choice)
}

// ResolveAll settles every pending conflict with the same choice and
// returns how many were resolved.
func (e *Engine) ResolveAll(ctx context.Context, choice domain.Choice) (int, error) {
	conflicts := e.takePending()
	if len(conflicts) == 0 {
		return 0, nil
	}

	return len(conflicts), e.apply(ctx, conflicts, choice)
}

// DiscardConflicts drops every pending conflict without touching records.
func (e *Engine) DiscardConflicts() int {
	n := len(e.takePending())

	e.logger.Info("pending conflicts discarded", slog.Int("count", n))

	return n
}

func (e *Engine) takePending() []domain.Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Conflict, 0, len(e.pending))
	for _, c := range e.pending {
		out = append(out, c)
	}

	clear(e.pending)
	metrics.PendingConflicts.Set(0)

	return out
}

// apply writes the chosen side of each conflict. Remote applies the remote
// content; local keeps the current content. Both leave the record clean and
// server-sourced.
func (e *Engine) apply(ctx context.Context, conflicts []domain.Conflict, choice domain.Choice) error {
	now := e.now().UTC()

	err := e.store.Apply(ctx, func(r *RecordSet) error {
		for _, c := range conflicts {
			cur, ok := r.Get(c.ID)
			if !ok {
				cur = c.Local
			}

			if choice == domain.ChoiceRemote {
				cur.AcceptRemote(c.Remote)
			} else {
				cur.MarkSynced()
			}

			cur.UpdatedAt = now
			r.Put(cur)
		}

		return nil
	})

	metrics.ConflictsResolved.WithLabelValues(string(choice), "manual").Add(float64(len(conflicts)))
	logging.FromContext(ctx).InfoContext(ctx, "conflicts resolved",
		slog.String("choice", string(choice)),
		slog.Int("count", len(conflicts)))

	return err
}
