package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/cucumber/godog"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// scriptedRemote is a RemoteQuotes whose behaviour is set by feature steps.
type scriptedRemote struct {
	mu       sync.Mutex
	records  []domain.Quote
	failPush bool
	failPull bool
	pushed   []string
}

func (r *scriptedRemote) Pull(_ context.Context, limit int) ([]domain.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failPull {
		return nil, domain.NewFetchError("posts", "pull", "connection refused")
	}

	return slices.Clone(r.records[:min(limit, len(r.records))]), nil
}

func (r *scriptedRemote) Push(_ context.Context, q domain.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failPush || r.failPull {
		return domain.NewFetchStatusError("posts", "push", 503, "service temporarily unavailable")
	}

	r.pushed = append(r.pushed, q.ID)

	return nil
}

type syncScenario struct {
	store  *Store
	remote *scriptedRemote
	engine *Engine
	policy domain.Policy
	report *CycleReport
}

func (s *syncScenario) reset(t *testing.T) {
	s.store, _ = newTestStore(t)
	s.remote = &scriptedRemote{}
	s.engine = nil
	s.policy = domain.PolicyServerWins
	s.report = nil
}

func (s *syncScenario) ensureEngine() *Engine {
	if s.engine == nil {
		s.engine = NewEngine(EngineConfig{
			Store:     s.store,
			Remote:    s.remote,
			Logger:    discardLogger(),
			Policy:    s.policy,
			PullLimit: testPullLimit,
			Now:       newFakeClock().Now,
		})
	}

	return s.engine
}

func (s *syncScenario) syncPolicyIs(policy string) error {
	p, err := domain.ParsePolicy(policy)
	if err != nil {
		return err
	}

	s.policy = p

	return nil
}

func (s *syncScenario) localRecord(state, id, text, category string) error {
	source := domain.SourceLocal
	if !domain.IsLocalID(id) {
		source = domain.SourceServer
	}

	return s.store.Apply(context.Background(), func(r *RecordSet) error {
		r.Put(domain.Quote{
			ID:        id,
			Text:      text,
			Category:  category,
			UpdatedAt: baseTime,
			Dirty:     state == "dirty",
			Source:    source,
		})

		return nil
	})
}

func (s *syncScenario) remoteHas(id, text, category string) error {
	s.remote.records = append(s.remote.records, remoteQuote(id, text, category))
	return nil
}

func (s *syncScenario) remoteRejectsPushes() error {
	s.remote.failPush = true
	return nil
}

func (s *syncScenario) remoteUnreachable() error {
	s.remote.failPull = true
	return nil
}

func (s *syncScenario) cycleRuns() error {
	s.report = s.ensureEngine().Sync(context.Background())
	return nil
}

func (s *syncScenario) outcomeIs(want string) error {
	if s.report == nil {
		return errors.New("no cycle has run")
	}

	if string(s.report.Outcome) != want {
		return fmt.Errorf("outcome %q, want %q (error: %s)", s.report.Outcome, want, s.report.Error)
	}

	return nil
}

func (s *syncScenario) conflictsReported(n int) error {
	if got := len(s.report.Conflicts); got != n {
		return fmt.Errorf("%d conflicts reported, want %d", got, n)
	}

	return nil
}

func (s *syncScenario) conflictsPending(n int) error {
	if got := len(s.ensureEngine().Conflicts()); got != n {
		return fmt.Errorf("%d conflicts pending, want %d", got, n)
	}

	return nil
}

func (s *syncScenario) record(id string) (domain.Quote, error) {
	for _, q := range s.store.Snapshot() {
		if q.ID == id {
			return q, nil
		}
	}

	return domain.Quote{}, fmt.Errorf("record %q not in store", id)
}

func (s *syncScenario) recordHasText(id, want string) error {
	q, err := s.record(id)
	if err != nil {
		return err
	}

	if q.Text != want {
		return fmt.Errorf("record %q has text %q, want %q", id, q.Text, want)
	}

	return nil
}

func (s *syncScenario) recordIs(id, state string) error {
	q, err := s.record(id)
	if err != nil {
		return err
	}

	if q.Dirty != (state == "dirty") {
		return fmt.Errorf("record %q dirty=%t, want %s", id, q.Dirty, state)
	}

	return nil
}

func (s *syncScenario) storeHolds(n int) error {
	if got := len(s.store.Snapshot()); got != n {
		return fmt.Errorf("store holds %d records, want %d", got, n)
	}

	return nil
}

func (s *syncScenario) remoteReceivedPush(id string) error {
	if !slices.Contains(s.remote.pushed, id) {
		return fmt.Errorf("no push for %q, pushed %v", id, s.remote.pushed)
	}

	return nil
}

func (s *syncScenario) conflictResolved(id, choice string) error {
	c, err := domain.ParseChoice(choice)
	if err != nil {
		return err
	}

	return s.ensureEngine().Resolve(context.Background(), id, c)
}

func TestFeatures(t *testing.T) {
	s := &syncScenario{}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				s.reset(t)
				return ctx, nil
			})

			ctx.Step(`^the sync policy is "([^"]*)"$`, s.syncPolicyIs)
			ctx.Step(`^a (clean|dirty) local record "([^"]*)" with text "([^"]*)" in "([^"]*)"$`, s.localRecord)
			ctx.Step(`^the remote has record "([^"]*)" with text "([^"]*)" in "([^"]*)"$`, s.remoteHas)
			ctx.Step(`^the remote rejects pushes$`, s.remoteRejectsPushes)
			ctx.Step(`^the remote is unreachable$`, s.remoteUnreachable)
			ctx.Step(`^a sync cycle runs$`, s.cycleRuns)
			ctx.Step(`^the outcome is "([^"]*)"$`, s.outcomeIs)
			ctx.Step(`^(\d+) conflicts? (?:is|are) reported$`, s.conflictsReported)
			ctx.Step(`^(\d+) conflicts? (?:is|are) pending$`, s.conflictsPending)
			ctx.Step(`^record "([^"]*)" has text "([^"]*)"$`, s.recordHasText)
			ctx.Step(`^record "([^"]*)" is (clean|dirty)$`, s.recordIs)
			ctx.Step(`^the store holds (\d+) records?$`, s.storeHolds)
			ctx.Step(`^the remote received a push for "([^"]*)"$`, s.remoteReceivedPush)
			ctx.Step(`^the conflict on "([^"]*)" is resolved keeping (remote|local)$`, s.conflictResolved)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
