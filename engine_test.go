package authcore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	authcore "github.com/vocalis-health/authcore"
	"github.com/vocalis-health/authcore/store/memstore"
)

// fakeClock drives all expiry logic in the engine tests. Advancing it moves
// token issuance, digest windows, and LastLoginAt in lockstep.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentSecret struct {
	Email  string
	Secret string
}

// recordingNotifier captures every secret handed to the notifier so tests can
// replay them through the confirm flows.
type recordingNotifier struct {
	mu            sync.Mutex
	verifications []sentSecret
	resets        []sentSecret
}

func (n *recordingNotifier) SendVerification(_ context.Context, email, secret string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, sentSecret{Email: email, Secret: secret})
	return nil
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, email, secret string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, sentSecret{Email: email, Secret: secret})
	return nil
}

func (n *recordingNotifier) lastVerification(t *testing.T) sentSecret {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.verifications) == 0 {
		t.Fatal("no verification secret was delivered")
	}
	return n.verifications[len(n.verifications)-1]
}

func (n *recordingNotifier) lastReset(t *testing.T) sentSecret {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.resets) == 0 {
		t.Fatal("no reset secret was delivered")
	}
	return n.resets[len(n.resets)-1]
}

func (n *recordingNotifier) verificationCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.verifications)
}

func (n *recordingNotifier) resetCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.resets)
}

// testEngineConfig uses a reduced Argon2 work factor so the suite stays fast.
func testEngineConfig() authcore.Config {
	cfg := authcore.Config{}
	cfg.JWT.Secret = []byte("engine-test-secret-with-32-bytes!!!")
	cfg.JWT.Issuer = "authcore-test"
	cfg.Password.Memory = 32768
	cfg.Password.Time = 2
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine   *authcore.Engine
	repo     *memstore.Repository
	notifier *recordingNotifier
	clock    *fakeClock
}

func newTestEngine(t *testing.T, mutate func(*authcore.Config)) *testEnv {
	t.Helper()

	cfg := testEngineConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	clock := newFakeClock()
	repo := memstore.New()
	notifier := &recordingNotifier{}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithRepository(repo).
		WithNotifier(notifier).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, repo: repo, notifier: notifier, clock: clock}
}

func mustRegister(t *testing.T, env *testEnv, email, password string) *authcore.RegisterResult {
	t.Helper()

	result, err := env.engine.Register(context.Background(), authcore.RegisterRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Register(%s) error: %v", email, err)
	}
	return result
}

func TestZeroEngineNotReady(t *testing.T) {
	var engine authcore.Engine

	if _, err := engine.Login(context.Background(), "a@b.c", "password123"); err != authcore.ErrEngineNotReady {
		t.Fatalf("Login on zero engine = %v, want ErrEngineNotReady", err)
	}
	if _, err := engine.Refresh(context.Background(), "token"); err != authcore.ErrEngineNotReady {
		t.Fatalf("Refresh on zero engine = %v, want ErrEngineNotReady", err)
	}
}

func TestBuilderRequiresRepository(t *testing.T) {
	_, err := authcore.New().WithConfig(testEngineConfig()).Build()
	if err == nil {
		t.Fatal("expected Build to fail without a repository")
	}
}

func TestBuilderRejectsShortSecret(t *testing.T) {
	cfg := testEngineConfig()
	cfg.JWT.Secret = []byte("too-short")

	_, err := authcore.New().WithConfig(cfg).WithRepository(memstore.New()).Build()
	if err == nil {
		t.Fatal("expected Build to reject a short JWT secret")
	}
}

func TestAuditAndMetricsWiring(t *testing.T) {
	sink := authcore.NewChannelSink(32)

	cfg := testEngineConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 32

	clock := newFakeClock()
	engine, err := authcore.New().
		WithConfig(cfg).
		WithRepository(memstore.New()).
		WithNotifier(&recordingNotifier{}).
		WithClock(clock.Now).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}

	ctx := authcore.WithClientIP(context.Background(), "203.0.113.9")
	if _, err := engine.Register(ctx, authcore.RegisterRequest{Email: "audit@example.com", Password: "password123"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, err := engine.Login(ctx, "audit@example.com", "password123"); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	// Close drains the dispatcher, so every emitted event is in the channel.
	engine.Close()

	seen := map[string]bool{}
	for {
		select {
		case event := <-sink.Events():
			if !event.Success {
				t.Fatalf("unexpected failure event: %+v", event)
			}
			if event.IP != "203.0.113.9" {
				t.Fatalf("event IP = %q, want 203.0.113.9", event.IP)
			}
			seen[event.EventType] = true
			continue
		default:
		}
		break
	}
	if !seen["register"] || !seen["login"] {
		t.Fatalf("missing audit events, saw %v", seen)
	}

	snapshot := engine.MetricsSnapshot()
	if snapshot["register_success"] != 1 {
		t.Fatalf("register_success = %d, want 1", snapshot["register_success"])
	}
	if snapshot["login_success"] != 1 {
		t.Fatalf("login_success = %d, want 1", snapshot["login_success"])
	}
}
