package replaycache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/replaycache/record"
	"github.com/unkn0wn-root/replaycache/store"
)

type memStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{m: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, addr store.Address) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.m[addr.Path()]
	return b, ok, nil
}

func (s *memStore) Put(_ context.Context, addr store.Address, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[addr.Path()] = value
	return nil
}

func (s *memStore) Close(context.Context) error { return nil }

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// testBackend counts invocations and answers completion calls the way a
// scripted inference provider would.
type testBackend struct {
	mu    sync.Mutex
	calls int
	delay time.Duration
	err   error
}

func (b *testBackend) Invoke(_ context.Context, op string, args Args) (any, error) {
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.calls++
	switch op {
	case "completion":
		return map[string]any{
			"content":     fmt.Sprintf("Response to: %v", args["content"]),
			"model":       args["model_id"],
			"call_number": float64(b.calls),
		}, nil
	default:
		return map[string]any{"op": op}, nil
	}
}

func (b *testBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

var inferenceOps = []Operation{
	{Name: "completion", Params: []string{"model_id", "content"}},
	{Name: "chat_completion", Params: []string{"model_id", "messages"}},
	{Name: "embeddings", Params: []string{"model_id", "contents"}},
}

func newTestProxy(t *testing.T, st store.Store, b Backend, optsOpt func(*Options)) *Proxy {
	t.Helper()
	opts := Options{
		API:        "inference",
		Operations: inferenceOps,
		Store:      st,
		Backend:    b,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	p, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// TestMissThenHit verifies the fallback flow end to end: first call reaches
// the backend and persists exactly one record, repeats replay it untouched.
func TestMissThenHit(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	b := &testBackend{}
	p := newTestProxy(t, st, b, nil)

	args := Args{"model_id": "test-model", "content": "Hello world"}

	first, err := p.Invoke(ctx, "completion", args)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	want := map[string]any{
		"content":     "Response to: Hello world",
		"model":       "test-model",
		"call_number": float64(1),
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("first call: got %v, want %v", first, want)
	}
	if b.count() != 1 {
		t.Fatalf("backend calls after miss: got %d, want 1", b.count())
	}
	if st.len() != 1 {
		t.Fatalf("records after miss: got %d, want 1", st.len())
	}

	for i := 0; i < 3; i++ {
		got, err := p.Invoke(ctx, "completion", args)
		if err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("replay %d: got %v, want %v", i, got, want)
		}
	}
	if b.count() != 1 {
		t.Fatalf("backend calls after replays: got %d, want 1", b.count())
	}
	if st.len() != 1 {
		t.Fatalf("records after replays: got %d, want 1", st.len())
	}
}

// TestHitSuppressesBackendInCacheOnly verifies a populated cache serves
// cache-only mode without touching the backend at all.
func TestHitSuppressesBackendInCacheOnly(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	b := &testBackend{}
	args := Args{"model_id": "m", "content": "hi"}

	// Record once in fallback mode.
	warm := newTestProxy(t, st, b, nil)
	if _, err := warm.Invoke(ctx, "completion", args); err != nil {
		t.Fatalf("warm: %v", err)
	}

	// Same store, cache-only, same provider namespace.
	replay := newTestProxy(t, st, b, func(o *Options) { o.Mode = ModeCacheOnly })
	if _, err := replay.Invoke(ctx, "completion", args); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if b.count() != 1 {
		t.Fatalf("backend calls: got %d, want 1", b.count())
	}
}

func TestCacheOnlyMissFails(t *testing.T) {
	ctx := context.Background()
	b := &testBackend{}
	p := newTestProxy(t, newMemStore(), b, func(o *Options) { o.Mode = ModeCacheOnly })

	_, err := p.Invoke(ctx, "completion", Args{"model_id": "m", "content": "x"})
	var miss *CacheMissError
	if !errors.As(err, &miss) {
		t.Fatalf("want CacheMissError, got %v", err)
	}
	if miss.Key == "" || miss.Mode != ModeCacheOnly {
		t.Fatalf("miss error lacks diagnostics: %+v", miss)
	}
	if b.count() != 0 {
		t.Fatalf("backend touched in cache-only mode: %d calls", b.count())
	}
}

func TestNoBackendFailsOnMiss(t *testing.T) {
	ctx := context.Background()
	p := newTestProxy(t, newMemStore(), nil, nil)

	_, err := p.Invoke(ctx, "completion", Args{"model_id": "m", "content": "x"})
	var nb *NoBackendError
	if !errors.As(err, &nb) {
		t.Fatalf("want NoBackendError, got %v", err)
	}
	if p.ProviderType() != record.NoProvider {
		t.Fatalf("provider namespace: got %q, want %q", p.ProviderType(), record.NoProvider)
	}
}

func TestUnknownOperation(t *testing.T) {
	p := newTestProxy(t, newMemStore(), &testBackend{}, nil)

	_, err := p.Invoke(context.Background(), "transcribe", Args{"audio": "x"})
	var unknown *UnknownOperationError
	if !errors.As(err, &unknown) {
		t.Fatalf("want UnknownOperationError, got %v", err)
	}
	if unknown.Op != "transcribe" || unknown.API != "inference" {
		t.Fatalf("unexpected error contents: %+v", unknown)
	}
}

// TestKeyDiscrimination verifies distinct arguments produce distinct
// records and distinct backend invocations.
func TestKeyDiscrimination(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	b := &testBackend{}
	p := newTestProxy(t, st, b, nil)

	if _, err := p.Invoke(ctx, "completion", Args{"model_id": "m", "content": "one"}); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := p.Invoke(ctx, "completion", Args{"model_id": "m", "content": "two"}); err != nil {
		t.Fatalf("second: %v", err)
	}
	if b.count() != 2 {
		t.Fatalf("backend calls: got %d, want 2", b.count())
	}
	if st.len() != 2 {
		t.Fatalf("records: got %d, want 2", st.len())
	}
}

func TestBackendErrorPropagatesUncached(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	boom := errors.New("upstream exploded")
	b := &testBackend{err: boom}
	p := newTestProxy(t, st, b, nil)

	_, err := p.Invoke(ctx, "completion", Args{"model_id": "m", "content": "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("want backend error unchanged, got %v", err)
	}
	if st.len() != 0 {
		t.Fatalf("failed call was cached: %d records", st.len())
	}
}

func TestCorruptRecordIsHardError(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	b := &testBackend{}
	p := newTestProxy(t, st, b, nil)

	args := Args{"model_id": "m", "content": "x"}
	if _, err := p.Invoke(ctx, "completion", args); err != nil {
		t.Fatalf("warm: %v", err)
	}

	// Trash the only record in place.
	st.mu.Lock()
	for k := range st.m {
		st.m[k] = []byte("{not json")
	}
	st.mu.Unlock()

	_, err := p.Invoke(ctx, "completion", args)
	var corrupt *CorruptRecordError
	if !errors.As(err, &corrupt) {
		t.Fatalf("want CorruptRecordError, got %v", err)
	}
	if b.count() != 1 {
		t.Fatalf("corrupt record fell through to backend: %d calls", b.count())
	}
}

type chatResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
}

// typedBackend returns a concrete struct so replays can reconstruct it.
type typedBackend struct{ calls int }

func (b *typedBackend) Invoke(_ context.Context, _ string, args Args) (any, error) {
	b.calls++
	return &chatResponse{
		Content: fmt.Sprintf("Response to: %v", args["content"]),
		Model:   fmt.Sprint(args["model_id"]),
	}, nil
}

// TestTypedReplay verifies a registered response type is reconstructed to
// its concrete form on replay, and that Call keeps the static type.
func TestTypedReplay(t *testing.T) {
	ctx := context.Background()
	reg := record.NewRegistry()
	record.RegisterType[chatResponse](reg, "chatResponse")

	b := &typedBackend{}
	p := newTestProxy(t, newMemStore(), b, func(o *Options) { o.Registry = reg })

	args := Args{"model_id": "test-model", "content": "Hello world"}
	first, err := Call[*chatResponse](ctx, p, "completion", args)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	replayed, err := Call[*chatResponse](ctx, p, "completion", args)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !reflect.DeepEqual(first, replayed) {
		t.Fatalf("replay diverged: %+v vs %+v", first, replayed)
	}
	if b.calls != 1 {
		t.Fatalf("backend calls: got %d, want 1", b.calls)
	}
}

// TestProviderNamespaceSegregation verifies two backends behind the same
// interface never share records, even for identical arguments.
func TestProviderNamespaceSegregation(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	args := Args{"model_id": "m", "content": "same"}

	b1 := &testBackend{}
	b2 := &testBackend{}
	p1 := newTestProxy(t, st, b1, func(o *Options) { o.ProviderType = "Fireworks" })
	p2 := newTestProxy(t, st, b2, func(o *Options) { o.ProviderType = "Together" })

	if _, err := p1.Invoke(ctx, "completion", args); err != nil {
		t.Fatalf("p1: %v", err)
	}
	if _, err := p2.Invoke(ctx, "completion", args); err != nil {
		t.Fatalf("p2: %v", err)
	}
	if st.len() != 2 {
		t.Fatalf("records: got %d, want 2 (namespaces collided)", st.len())
	}
	if b1.count() != 1 || b2.count() != 1 {
		t.Fatalf("backend calls: got %d/%d, want 1/1", b1.count(), b2.count())
	}
}

// TestConcurrentMissesCollapse verifies concurrent callers for one key
// converge on a single backend call and a single record.
func TestConcurrentMissesCollapse(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	b := &testBackend{delay: 20 * time.Millisecond}
	p := newTestProxy(t, st, b, nil)

	args := Args{"model_id": "m", "content": "herd"}
	const callers = 16

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := p.Invoke(ctx, "completion", args)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent invoke: %v", err)
		}
	}
	if got := b.count(); got != 1 {
		t.Fatalf("backend calls: got %d, want 1", got)
	}
	if st.len() != 1 {
		t.Fatalf("records: got %d, want 1", st.len())
	}
}

type lifecycleBackend struct {
	testBackend
	initialized  bool
	shutdown     bool
	registered   []string
	unregistered []string
}

func (b *lifecycleBackend) Initialize(context.Context) error { b.initialized = true; return nil }
func (b *lifecycleBackend) Shutdown(context.Context) error   { b.shutdown = true; return nil }

func (b *lifecycleBackend) RegisterModel(_ context.Context, m Model) (Model, error) {
	b.registered = append(b.registered, m.ID)
	return m, nil
}

func (b *lifecycleBackend) UnregisterModel(_ context.Context, id string) error {
	b.unregistered = append(b.unregistered, id)
	return nil
}

func TestLifecyclePassthrough(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	b := &lifecycleBackend{}
	p := newTestProxy(t, st, b, nil)

	if err := p.Initialize(ctx); err != nil || !b.initialized {
		t.Fatalf("Initialize: err=%v forwarded=%v", err, b.initialized)
	}
	if _, err := p.RegisterModel(ctx, Model{ID: "m1"}); err != nil {
		t.Fatalf("RegisterModel: %v", err)
	}
	if err := p.UnregisterModel(ctx, "m1"); err != nil {
		t.Fatalf("UnregisterModel: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil || !b.shutdown {
		t.Fatalf("Shutdown: err=%v forwarded=%v", err, b.shutdown)
	}
	if len(b.registered) != 1 || len(b.unregistered) != 1 {
		t.Fatalf("registration forwarding: %v / %v", b.registered, b.unregistered)
	}
	if st.len() != 0 {
		t.Fatalf("lifecycle calls were cached: %d records", st.len())
	}
}

// TestLifecycleNoops verifies lifecycle calls without a capable backend are
// harmless and RegisterModel echoes the model back.
func TestLifecycleNoops(t *testing.T) {
	ctx := context.Background()
	p := newTestProxy(t, newMemStore(), nil, nil)

	if err := p.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	m, err := p.RegisterModel(ctx, Model{ID: "m1"})
	if err != nil || m.ID != "m1" {
		t.Fatalf("RegisterModel echo: %v %v", m, err)
	}
	if err := p.UnregisterModel(ctx, "m1"); err != nil {
		t.Fatalf("UnregisterModel: %v", err)
	}
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"cache_only", ModeCacheOnly, true},
		{"cache_with_fallback", ModeCacheWithFallback, true},
		{"fallback", ModeCacheWithFallback, true},
		{"record", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseMode(%q): got %v, %v", tc.in, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseMode(%q): expected error", tc.in)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Store: newMemStore()}); err == nil {
		t.Fatal("missing api accepted")
	}
	if _, err := New(Options{API: "inference"}); err == nil {
		t.Fatal("missing store accepted")
	}
	if _, err := New(Options{
		API:        "inference",
		Store:      newMemStore(),
		Operations: []Operation{{Name: "a/b"}},
	}); err == nil {
		t.Fatal("path-unsafe operation name accepted")
	}
	if _, err := New(Options{
		API:        "inference",
		Store:      newMemStore(),
		Operations: []Operation{{Name: "x"}, {Name: "x"}},
	}); err == nil {
		t.Fatal("duplicate operation accepted")
	}

	// Empty capability set is legal; every call is then unknown.
	p, err := New(Options{API: "inference", Store: newMemStore()})
	if err != nil {
		t.Fatalf("empty descriptor: %v", err)
	}
	var unknown *UnknownOperationError
	if _, err := p.Invoke(context.Background(), "completion", nil); !errors.As(err, &unknown) {
		t.Fatalf("want UnknownOperationError, got %v", err)
	}
}
