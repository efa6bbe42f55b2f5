package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/portfolio-core/pkg/cache"
	"github.com/dd0wney/portfolio-core/pkg/connmon"
	"github.com/dd0wney/portfolio-core/pkg/executor"
	"github.com/dd0wney/portfolio-core/pkg/localstore"
	"github.com/dd0wney/portfolio-core/pkg/remote"
)

// fakeRemote is an in-memory remote.Service whose reachability can be
// toggled mid-test.
type fakeRemote struct {
	mu       sync.Mutex
	rows     map[string]map[string]remote.Row
	down     bool
	authFail bool
	calls    map[string]int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rows:  make(map[string]map[string]remote.Row),
		calls: make(map[string]int),
	}
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeRemote) gate(op string) error {
	f.calls[op]++
	if f.authFail {
		return executor.AuthorizationError(op, errors.New("token expired"))
	}
	if f.down {
		return executor.TransientError(op, errors.New("connection refused"))
	}
	return nil
}

func (f *fakeRemote) Select(ctx context.Context, collection string, filter remote.Filter) ([]remote.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("select"); err != nil {
		return nil, err
	}

	var result []remote.Row
	for _, row := range f.rows[collection] {
		match := true
		for column, want := range filter {
			if fmt.Sprint(row[column]) != want {
				match = false
				break
			}
		}
		if match {
			result = append(result, row)
		}
	}
	return result, nil
}

func (f *fakeRemote) Insert(ctx context.Context, collection string, row remote.Row) (remote.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("insert"); err != nil {
		return nil, err
	}

	if f.rows[collection] == nil {
		f.rows[collection] = make(map[string]remote.Row)
	}
	id, _ := row["id"].(string)
	f.rows[collection][id] = row
	return row, nil
}

func (f *fakeRemote) Update(ctx context.Context, collection, id string, row remote.Row) (remote.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("update"); err != nil {
		return nil, err
	}

	if f.rows[collection] == nil || f.rows[collection][id] == nil {
		return nil, executor.ValidationError("update", fmt.Errorf("no row %s", id))
	}
	f.rows[collection][id] = row
	return row, nil
}

func (f *fakeRemote) Delete(ctx context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate("delete"); err != nil {
		return err
	}
	delete(f.rows[collection], id)
	return nil
}

func (f *fakeRemote) Authenticate(ctx context.Context, email, password string) (*remote.Session, error) {
	return &remote.Session{AccessToken: "t", UserID: "u"}, nil
}

func (f *fakeRemote) Ping(ctx context.Context) (time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return 0, executor.TransientError("ping", errors.New("unreachable"))
	}
	return 50 * time.Millisecond, nil
}

func (f *fakeRemote) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) row(collection, id string) remote.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[collection] == nil {
		return nil
	}
	return f.rows[collection][id]
}

type fixture struct {
	remote  *fakeRemote
	local   *localstore.MemoryStore
	cache   *cache.Cache
	monitor *connmon.Monitor
	router  *Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fr := newFakeRemote()
	local := localstore.NewMemoryStore()
	c := cache.New()

	monitor, err := connmon.New(fr, connmon.Config{ProbeInterval: time.Hour}, nil, nil)
	if err != nil {
		t.Fatalf("connmon.New failed: %v", err)
	}
	t.Cleanup(monitor.Close)

	exec := executor.New(nil)
	router, err := NewRouter(fr, local, c, monitor, exec, Config{
		Executor: executor.Options{MaxRetries: 1, BaseDelay: time.Millisecond},
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	t.Cleanup(router.Close)

	return &fixture{remote: fr, local: local, cache: c, monitor: monitor, router: router}
}

func (fx *fixture) goOnline(t *testing.T) {
	t.Helper()
	fx.remote.setDown(false)
	if state := fx.monitor.ForceReconnect(); state.Status != connmon.StatusOnline {
		t.Fatalf("expected online, got %s", state.Status)
	}
}

func (fx *fixture) goOffline() {
	fx.remote.setDown(true)
	// Drive the state machine all the way down
	for !isOffline(fx.monitor) {
		fx.monitor.Probe()
	}
}

func isOffline(m *connmon.Monitor) bool {
	return m.GetState().Status == connmon.StatusOffline
}

func TestOnlineCreateGoesRemote(t *testing.T) {
	fx := newFixture(t)
	fx.goOnline(t)

	result, err := fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"id": "s1", "name": "Go"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if result.Provenance != ProvenanceRemote {
		t.Errorf("expected remote provenance, got %s", result.Provenance)
	}
	if fx.remote.row("skills", "s1") == nil {
		t.Error("row missing from remote")
	}
	if fx.router.QueueDepth() != 0 {
		t.Error("online write should not queue")
	}
}

func TestOfflineCreateQueuesAndAppliesLocally(t *testing.T) {
	fx := newFixture(t)
	fx.goOffline()

	result, err := fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"name": "Rust", "level": "beginner"})
	if err != nil {
		t.Fatalf("offline create failed: %v", err)
	}
	if result.Provenance != ProvenanceQueued {
		t.Errorf("expected queued provenance, got %s", result.Provenance)
	}
	if fx.router.QueueDepth() != 1 {
		t.Fatalf("expected queue depth 1, got %d", fx.router.QueueDepth())
	}

	// Optimistic local copy exists under the generated id
	pending := fx.router.PendingOperations()[0]
	id, _ := pending.Payload["id"].(string)
	if id == "" {
		t.Fatal("offline create did not assign an id")
	}
	record, err := fx.local.Get("skills", id)
	if err != nil {
		t.Fatalf("local copy missing: %v", err)
	}
	if record.Data["name"] != "Rust" {
		t.Errorf("unexpected local data: %v", record.Data)
	}
}

func TestWriteThenReplayExactlyOnce(t *testing.T) {
	fx := newFixture(t)
	fx.goOffline()

	fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"name": "Rust", "level": "beginner"})
	id, _ := fx.router.PendingOperations()[0].Payload["id"].(string)

	fx.remote.setDown(false)
	inserts := fx.remote.callCount("insert")

	replayed := fx.router.SyncOfflineData(context.Background())
	if replayed != 1 {
		t.Fatalf("expected 1 replayed operation, got %d", replayed)
	}
	if fx.router.QueueDepth() != 0 {
		t.Errorf("queue should be empty after replay, depth %d", fx.router.QueueDepth())
	}
	if fx.remote.callCount("insert")-inserts != 1 {
		t.Errorf("expected exactly one insert, got %d", fx.remote.callCount("insert")-inserts)
	}
	if fx.remote.row("skills", id) == nil {
		t.Error("replayed row missing from remote")
	}

	// A second sync must not replay anything
	if again := fx.router.SyncOfflineData(context.Background()); again != 0 {
		t.Errorf("second sync replayed %d operations", again)
	}
}

func TestConcurrentSyncsReplayEachOperationOnce(t *testing.T) {
	fx := newFixture(t)
	fx.goOffline()

	fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"name": "Rust", "level": "beginner"})
	fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"name": "Zig", "level": "beginner"})

	// Restore reachability without probing so no background drain starts;
	// the two syncs below race only each other
	fx.remote.setDown(false)
	inserts := fx.remote.callCount("insert")

	var wg sync.WaitGroup
	replayed := make([]int, 2)
	for i := range replayed {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replayed[i] = fx.router.SyncOfflineData(context.Background())
		}(i)
	}
	wg.Wait()

	if total := replayed[0] + replayed[1]; total != 2 {
		t.Errorf("expected 2 replayed operations across both syncs, got %d", total)
	}
	if got := fx.remote.callCount("insert") - inserts; got != 2 {
		t.Errorf("expected each operation inserted exactly once, got %d inserts", got)
	}
	if depth := fx.router.QueueDepth(); depth != 0 {
		t.Errorf("expected empty queue, got depth %d", depth)
	}
	if dead := fx.router.DeadLetters(); len(dead) != 0 {
		t.Errorf("expected no dead letters, got %d", len(dead))
	}
}

func TestOfflineReadMissReturnsNotFound(t *testing.T) {
	fx := newFixture(t)
	fx.goOffline()

	_, err := fx.router.PerformOperation(context.Background(), "skills", KindRead,
		map[string]any{"id": "absent"})
	if !errors.Is(err, executor.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if code := executor.CodeOf(err); code != executor.CodeNotFound {
		t.Errorf("expected code %s, got %s", executor.CodeNotFound, code)
	}
}

func TestReconnectTriggersReplay(t *testing.T) {
	fx := newFixture(t)
	fx.goOffline()

	fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"name": "Zig", "level": "beginner"})

	fx.goOnline(t)

	// The replay worker drains asynchronously after the online transition
	deadline := time.Now().Add(2 * time.Second)
	for fx.router.QueueDepth() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if fx.router.QueueDepth() != 0 {
		t.Fatal("queue did not drain after reconnect")
	}
}

func TestOnlineReadCachesResult(t *testing.T) {
	fx := newFixture(t)
	fx.goOnline(t)
	fx.remote.Insert(context.Background(), "skills", remote.Row{"id": "s1", "name": "Go"})

	first, err := fx.router.PerformOperation(context.Background(), "skills", KindRead,
		map[string]any{"id": "s1"})
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if first.Provenance != ProvenanceRemote {
		t.Errorf("expected remote provenance, got %s", first.Provenance)
	}

	second, err := fx.router.PerformOperation(context.Background(), "skills", KindRead,
		map[string]any{"id": "s1"})
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if second.Provenance != ProvenanceCache {
		t.Errorf("expected cache provenance, got %s", second.Provenance)
	}
}

func TestOfflineReadServesLocalWithStaleFlag(t *testing.T) {
	fx := newFixture(t)

	// Seed a local copy that was never remotely confirmed
	fx.local.Put(&localstore.Record{
		ID:         "s1",
		Collection: "skills",
		Data:       map[string]any{"id": "s1", "name": "Go"},
		UpdatedAt:  time.Now(),
	})
	fx.goOffline()

	result, err := fx.router.PerformOperation(context.Background(), "skills", KindRead,
		map[string]any{"id": "s1"})
	if err != nil {
		t.Fatalf("offline read failed: %v", err)
	}
	if result.Provenance != ProvenanceLocal {
		t.Errorf("expected local provenance, got %s", result.Provenance)
	}
	if !result.Stale {
		t.Error("unconfirmed local copy must be flagged stale")
	}
}

func TestWriteInvalidatesCollectionCache(t *testing.T) {
	fx := newFixture(t)
	fx.goOnline(t)
	fx.remote.Insert(context.Background(), "skills", remote.Row{"id": "s1", "name": "Go"})

	fx.router.PerformOperation(context.Background(), "skills", KindRead, map[string]any{"id": "s1"})
	fx.router.PerformOperation(context.Background(), "skills", KindUpdate,
		map[string]any{"id": "s1", "name": "Go", "level": "expert"})

	// The cached read must have been dropped by the mutation
	result, _ := fx.router.PerformOperation(context.Background(), "skills", KindRead,
		map[string]any{"id": "s1"})
	if result.Provenance == ProvenanceCache {
		t.Error("cache should have been invalidated by the update")
	}
}

func TestAuthorizationErrorDoesNotFallBack(t *testing.T) {
	fx := newFixture(t)
	fx.goOnline(t)
	fx.remote.authFail = true

	_, err := fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"id": "s1", "name": "Go"})
	if !errors.Is(err, executor.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if fx.router.QueueDepth() != 0 {
		t.Error("authorization failure must not enqueue")
	}
}

func TestPermanentReplayFailureDeadLetters(t *testing.T) {
	fx := newFixture(t)
	fx.goOffline()

	// Update for a row the remote does not have -> validation error on replay
	fx.router.PerformOperation(context.Background(), "skills", KindUpdate,
		map[string]any{"id": "ghost", "name": "Phantom"})

	fx.remote.setDown(false)
	fx.router.SyncOfflineData(context.Background())

	if fx.router.QueueDepth() != 0 {
		t.Errorf("queue should be empty, depth %d", fx.router.QueueDepth())
	}
	dead := fx.router.DeadLetters()
	if len(dead) != 1 {
		t.Fatalf("expected 1 dead letter, got %d", len(dead))
	}
	if dead[0].LastError == "" {
		t.Error("dead letter should record its last error")
	}
}

func TestTransientReplayFailureKeepsFIFO(t *testing.T) {
	fx := newFixture(t)
	fx.goOffline()

	fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"name": "first"})
	fx.router.PerformOperation(context.Background(), "skills", KindCreate,
		map[string]any{"name": "second"})

	// Remote still down: drain must defer, not reorder or drop
	replayed := fx.router.SyncOfflineData(context.Background())
	if replayed != 0 {
		t.Errorf("expected 0 replayed while down, got %d", replayed)
	}
	if fx.router.QueueDepth() != 2 {
		t.Fatalf("expected both operations retained, depth %d", fx.router.QueueDepth())
	}
	if name := fx.router.PendingOperations()[0].Payload["name"]; name != "first" {
		t.Errorf("FIFO head changed: %v", name)
	}
}

func TestUnknownKindRejected(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.router.PerformOperation(context.Background(), "skills", Kind("upsert"), nil)
	if !errors.Is(err, executor.ErrUnknownOperation) {
		t.Errorf("expected unknown operation error, got %v", err)
	}
}

func TestInvalidCollectionRejected(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.router.PerformOperation(context.Background(), "Bad Name!", KindList, nil)
	if !errors.Is(err, executor.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
