package rediscache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// fakeClient is an in-memory Client. Errors, when set, are returned from every call.
type fakeClient struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	setKeys []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setKeys = append(f.setKeys, key)
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.data[key] = value.([]byte)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

type countingBackend struct {
	mu     sync.Mutex
	result triage.Result
	err    error
	calls  int
}

func (c *countingBackend) Name() string { return "remote" }

func (c *countingBackend) Classify(context.Context, triage.AlertText) (triage.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.result, c.err
}

var (
	alertText = triage.AlertText{Title: "Link flapping", Description: "core switch port 48"}
	netResult = triage.Result{PriorityScore: 70, Classification: "network", SuggestedAction: "Check optics", Method: triage.MethodRemoteModel}
)

func TestClassify_MissThenHit(t *testing.T) {
	t.Parallel()

	inner := &countingBackend{result: netResult}
	client := newFakeClient()
	b := New(inner, client, time.Hour, log.Nop())

	for i := range 3 {
		got, err := b.Classify(context.Background(), alertText)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != netResult {
			t.Errorf("call %d = %+v, want %+v", i, got, netResult)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if len(client.setKeys) != 1 || client.ttls[client.setKeys[0]] != time.Hour {
		t.Errorf("sets = %v ttls = %v", client.setKeys, client.ttls)
	}
	if b.Name() != "remote" {
		t.Errorf("Name = %q, want inner name", b.Name())
	}
}

func TestClassify_FailuresNotCached(t *testing.T) {
	t.Parallel()

	inner := &countingBackend{err: triage.ErrBackendUnavailable}
	client := newFakeClient()
	b := New(inner, client, time.Hour, log.Nop())

	for range 2 {
		if _, err := b.Classify(context.Background(), alertText); !errors.Is(err, triage.ErrBackendUnavailable) {
			t.Fatalf("err = %v, want ErrBackendUnavailable", err)
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
	if len(client.setKeys) != 0 {
		t.Errorf("failed result cached: %v", client.setKeys)
	}
}

func TestClassify_RedisErrorsBypassed(t *testing.T) {
	t.Parallel()

	inner := &countingBackend{result: netResult}
	client := newFakeClient()
	client.getErr = errors.New("connection refused")
	client.setErr = errors.New("connection refused")
	b := New(inner, client, time.Minute, log.Nop())

	got, err := b.Classify(context.Background(), alertText)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != netResult {
		t.Errorf("Classify = %+v, want %+v", got, netResult)
	}
}

func TestClassify_CorruptEntryRefetched(t *testing.T) {
	t.Parallel()

	inner := &countingBackend{result: netResult}
	client := newFakeClient()
	b := New(inner, client, time.Minute, log.Nop())
	client.data[b.key(alertText)] = []byte("{not json")

	got, err := b.Classify(context.Background(), alertText)
	if err != nil || got != netResult {
		t.Fatalf("Classify = %+v, %v", got, err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	b := New(&countingBackend{}, newFakeClient(), time.Minute, nil)

	k1 := b.key(triage.AlertText{Title: "ab", Description: "c"})
	k2 := b.key(triage.AlertText{Title: "a", Description: "bc"})
	if k1 == k2 {
		t.Error("title/description boundary not part of the key")
	}
	if k1 != b.key(triage.AlertText{Title: "ab", Description: "c"}) {
		t.Error("key not stable")
	}
	if want := DefaultKeyPrefix + "remote:"; k1[:len(want)] != want {
		t.Errorf("key %q missing prefix %q", k1, want)
	}
}

func TestConnect_BadURL(t *testing.T) {
	t.Parallel()

	if _, err := Connect(context.Background(), "http://not-redis"); err == nil {
		t.Error("expected error for non-redis url")
	}
}

func TestIntegration_RealRedis(t *testing.T) {
	url := os.Getenv("OPSGENIX_TEST_REDIS_URL")
	if url == "" {
		t.Skip("OPSGENIX_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer func() { _ = client.Close() }()

	inner := &countingBackend{result: netResult}
	b := New(inner, client, 5*time.Second, log.Nop())
	text := triage.AlertText{Title: "integration " + time.Now().String()}

	for range 2 {
		got, err := b.Classify(ctx, text)
		if err != nil || got != netResult {
			t.Fatalf("Classify = %+v, %v", got, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}
