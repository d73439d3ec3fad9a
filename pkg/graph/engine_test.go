package graph

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/events"
	"github.com/nivelo-ai/leadrouter/pkg/models"
)

func newTestEngine(t *testing.T) (*Engine, *checkpoint.MemoryStore, *events.Bus, *[]string) {
	t.Helper()
	store := checkpoint.NewMemoryStore(0)
	bus := events.NewBus()
	var published []string
	bus.Subscribe(func(e events.Event) { published = append(published, e.Type) })
	return New(store, bus), store, bus, &published
}

func testTurn(threadID string) *models.Turn {
	return &models.Turn{
		TurnID:   "t1",
		ThreadID: threadID,
		Webhook:  models.InboundMessage{ContactID: "c1", ConversationID: "1", Body: "hola"},
		Inbound:  models.Message{Role: models.RoleCustomer, Content: "hola", Origin: models.OriginWebhook},
	}
}

func TestRunTurnWalksLinearGraph(t *testing.T) {
	e, store, _, published := newTestEngine(t)
	var visited []string
	node := func(name string) NodeFunc {
		return func(_ context.Context, _ *models.Turn) error {
			visited = append(visited, name)
			return nil
		}
	}
	e.Add("a", node("a"))
	e.Add("b", node("b"))
	e.Add("c", node("c"))
	e.StartAt("a")
	e.Connect("a", "b", nil)
	e.Connect("b", "c", nil)

	turn := testTurn("conv-1")
	require.NoError(t, e.RunTurn(context.Background(), turn))

	assert.Equal(t, []string{"a", "b", "c"}, visited)
	assert.Contains(t, *published, events.EventTypeTurnStarted)
	assert.Contains(t, *published, events.EventTypeTurnCompleted)

	saved, err := store.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", saved.ContactID)
}

func TestRunTurnCreatesStateForNewThread(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	var got *models.ConversationState
	e.Add("a", func(_ context.Context, turn *models.Turn) error {
		got = turn.State
		return nil
	})
	e.StartAt("a")

	turn := testTurn("conv-1")
	turn.Webhook.Extra = map[string]any{"source": "ads"}
	require.NoError(t, e.RunTurn(context.Background(), turn))

	require.NotNil(t, got)
	assert.Equal(t, "conv-1", got.ThreadID)
	assert.Equal(t, "c1", got.ContactID)
	assert.Equal(t, "ads", got.WebhookData["source"])
}

func TestRunTurnLoadsExistingState(t *testing.T) {
	e, store, _, _ := newTestEngine(t)
	prior := models.NewConversationState("conv-1", "c1", "1", "loc")
	prior.LeadScore = 7
	require.NoError(t, store.Save(context.Background(), "conv-1", prior))

	var score int
	e.Add("a", func(_ context.Context, turn *models.Turn) error {
		score = turn.State.LeadScore
		return nil
	})
	e.StartAt("a")

	require.NoError(t, e.RunTurn(context.Background(), testTurn("conv-1")))
	assert.Equal(t, 7, score)
}

func TestConditionalEdgesFirstMatchWins(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	var visited []string
	node := func(name string) NodeFunc {
		return func(_ context.Context, _ *models.Turn) error {
			visited = append(visited, name)
			return nil
		}
	}
	e.Add("start", node("start"))
	e.Add("yes", node("yes"))
	e.Add("no", node("no"))
	e.StartAt("start")
	e.Connect("start", "yes", func(t *models.Turn) bool { return t.State.LeadScore >= 5 })
	e.Connect("start", "no", nil)

	turn := testTurn("conv-1")
	require.NoError(t, e.RunTurn(context.Background(), turn))
	assert.Equal(t, []string{"start", "no"}, visited)
}

func TestStepBudgetBreaksToFallback(t *testing.T) {
	e, store, _, published := newTestEngine(t)
	spins := 0
	e.Add("spin", func(_ context.Context, _ *models.Turn) error {
		spins++
		return nil
	})
	responded := false
	e.Add("respond", func(_ context.Context, turn *models.Turn) error {
		responded = true
		return nil
	})
	e.StartAt("spin")
	e.FallbackTo("respond")
	e.Connect("spin", "spin", nil)

	turn := testTurn("conv-1")
	require.NoError(t, e.RunTurn(context.Background(), turn))

	assert.Equal(t, maxSteps, spins)
	assert.True(t, responded, "fallback node still runs")
	assert.True(t, turn.ShouldEnd)
	assert.Contains(t, *published, events.EventTypeStepBudgetExceeded)

	_, err := store.Load(context.Background(), "conv-1")
	assert.NoError(t, err, "turn still checkpoints")
}

func TestCancellationDiscardsTurn(t *testing.T) {
	e, store, _, published := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	e.Add("a", func(_ context.Context, _ *models.Turn) error {
		cancel()
		return nil
	})
	e.Add("b", func(_ context.Context, _ *models.Turn) error { return nil })
	e.StartAt("a")
	e.Connect("a", "b", nil)

	err := e.RunTurn(ctx, testTurn("conv-1"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, *published, events.EventTypeTurnDiscarded)
	assert.NotContains(t, *published, events.EventTypeTurnCompleted)

	_, loadErr := store.Load(context.Background(), "conv-1")
	assert.ErrorIs(t, loadErr, checkpoint.ErrNotFound, "no checkpoint written")
}

func TestSameThreadTurnsSerialize(t *testing.T) {
	store := checkpoint.NewMemoryStore(0)
	e := New(store, events.NewBus())

	var mu sync.Mutex
	active, maxActive := 0, 0
	e.Add("a", func(_ context.Context, _ *models.Turn) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})
	e.StartAt("a")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.RunTurn(context.Background(), testTurn("conv-1"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive, "same-thread turns never overlap")
}

func TestUnknownNodeFails(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	e.StartAt("missing")
	err := e.RunTurn(context.Background(), testTurn("conv-1"))
	assert.ErrorContains(t, err, `no node "missing"`)
}
