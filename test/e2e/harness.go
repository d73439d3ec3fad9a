package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nivelo-ai/leadrouter/pkg/agent"
	"github.com/nivelo-ai/leadrouter/pkg/api"
	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/config"
	"github.com/nivelo-ai/leadrouter/pkg/crm"
	"github.com/nivelo-ai/leadrouter/pkg/events"
	"github.com/nivelo-ai/leadrouter/pkg/graph"
	"github.com/nivelo-ai/leadrouter/pkg/intel"
	"github.com/nivelo-ai/leadrouter/pkg/llm"
	"github.com/nivelo-ai/leadrouter/pkg/models"
	"github.com/nivelo-ai/leadrouter/pkg/queue"
	"github.com/nivelo-ai/leadrouter/pkg/reconcile"
	"github.com/nivelo-ai/leadrouter/pkg/responder"
	"github.com/nivelo-ai/leadrouter/pkg/router"
)

// turnWait bounds how long a test waits for an enqueued turn to finish.
const turnWait = 10 * time.Second

// testConfigYAML keeps turn processing fast and deterministic for tests.
// Everything not listed falls back to the built-in defaults.
const testConfigYAML = `
queue:
  worker_count: 2
  turn_timeout: 5s
  graceful_shutdown_timeout: 5s
crm:
  calendar_id: cal-e2e
  location_id: loc-e2e
`

// testApp is one fully wired instance: HTTP intake, worker pool, graph
// runtime, memory checkpoint store, CRM stub, and scripted generator.
type testApp struct {
	t       *testing.T
	baseURL string
	store   *checkpoint.MemoryStore
	pool    *queue.WorkerPool
	crm     *fakeCRM
	gen     *llm.Fake

	mu     sync.Mutex
	events []events.Event
}

func newTestApp(t *testing.T, replies ...string) *testApp {
	t.Helper()
	ctx := context.Background()

	t.Setenv("WEBHOOK_TOKEN", "")

	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(configDir, "leadrouter.yaml"), []byte(testConfigYAML), 0o644))
	cfg, err := config.Initialize(ctx, configDir)
	require.NoError(t, err)

	fc := newFakeCRM(t)
	crmClient := crm.NewClientWithBaseURL(cfg.CRM, "test-token", fc.srv.URL)
	gen := llm.NewFake(replies...)

	app := &testApp{t: t, crm: fc, gen: gen}

	bus := events.NewBus()
	bus.Subscribe(func(e events.Event) {
		app.mu.Lock()
		app.events = append(app.events, e)
		app.mu.Unlock()
	})

	profileA, err := cfg.GetProfile("A")
	require.NoError(t, err)
	profileB, err := cfg.GetProfile("B")
	require.NoError(t, err)
	profileC, err := cfg.GetProfile("C")
	require.NoError(t, err)

	app.store = checkpoint.NewMemoryStore(cfg.Checkpoint.TTL)
	engine := graph.New(app.store, bus)
	router.Build(engine, router.Deps{
		Reconciler: reconcile.New(crmClient),
		Intel:      intel.NewStage(),
		Supervisor: agent.NewSupervisor(),
		Discovery:  agent.NewSpecialist(models.AgentDiscovery, gen, profileA),
		Qualifier:  agent.NewSpecialist(models.AgentQualifier, gen, profileB),
		Closer:     agent.NewCloser(gen, profileC, crmClient, cfg.CRM),
		Responder: responder.New(crmClient, responder.WithSleeper(
			func(context.Context, time.Duration) error { return nil })),
		Bus: bus,
	})

	app.pool = queue.NewWorkerPool(cfg.Queue, engine)
	app.pool.Start(ctx)
	t.Cleanup(app.pool.Stop)

	server := api.NewServer(cfg.Server, app.pool, app.store, "e2e")
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	app.baseURL = srv.URL

	return app
}

// postWebhook posts a raw payload to the webhook endpoint and returns the
// decoded response body.
func (app *testApp) postWebhook(payload map[string]any) (*http.Response, map[string]any) {
	app.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(app.t, err)
	resp, err := http.Post(app.baseURL+"/webhooks/crm", "application/json", bytes.NewReader(data))
	require.NoError(app.t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

// sendMessage posts one inbound customer message and waits for its turn to
// finish. Returns the turn id.
func (app *testApp) sendMessage(contactID, conversationID, text string) string {
	app.t.Helper()
	resp, body := app.postWebhook(map[string]any{
		"contactId":      contactID,
		"conversationId": conversationID,
		"body":           text,
	})
	require.Equal(app.t, http.StatusAccepted, resp.StatusCode)
	turnID, _ := body["turn_id"].(string)
	require.NotEmpty(app.t, turnID)
	app.waitForTurn(turnID)
	return turnID
}

// waitForTurn blocks until the turn's completed (or discarded) event appears.
func (app *testApp) waitForTurn(turnID string) {
	app.t.Helper()
	require.Eventually(app.t, func() bool {
		app.mu.Lock()
		defer app.mu.Unlock()
		for _, e := range app.events {
			if e.TurnID != turnID {
				continue
			}
			if e.Type == events.EventTypeTurnCompleted || e.Type == events.EventTypeTurnDiscarded {
				return true
			}
		}
		return false
	}, turnWait, 10*time.Millisecond, "turn %s did not finish", turnID)
}

// getThread fetches the thread summary over the API.
func (app *testApp) getThread(threadID string) (int, map[string]any) {
	app.t.Helper()
	resp, err := http.Get(app.baseURL + "/api/v1/threads/" + threadID)
	require.NoError(app.t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

// eventsOfType returns captured events of the given type, oldest first.
func (app *testApp) eventsOfType(eventType string) []events.Event {
	app.mu.Lock()
	defer app.mu.Unlock()
	var out []events.Event
	for _, e := range app.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// loadState reads the thread's checkpoint directly from the store.
func (app *testApp) loadState(threadID string) *models.ConversationState {
	app.t.Helper()
	state, err := app.store.Load(context.Background(), threadID)
	require.NoError(app.t, err)
	return state
}
