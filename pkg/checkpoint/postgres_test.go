package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivelo-ai/leadrouter/pkg/checkpoint"
	"github.com/nivelo-ai/leadrouter/pkg/models"
	"github.com/nivelo-ai/leadrouter/test/util"
)

func newPostgresTestStore(t *testing.T, ttl time.Duration) *checkpoint.PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres integration test in short mode")
	}

	db, dbName := util.SetupTestDatabase(t)
	store, err := checkpoint.NewPostgresStoreFromDB(db, dbName, ttl)
	require.NoError(t, err)
	return store
}

func postgresSampleState(t *testing.T) *models.ConversationState {
	t.Helper()
	ts := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	s := models.NewConversationState("contact-c1", "c1", "", "loc1")
	s.Messages = []models.Message{
		{Role: models.RoleCustomer, Content: "hola", Origin: models.OriginWebhook, Timestamp: &ts},
	}
	s.ExtractedData[models.FieldBusinessType] = "restaurante"
	s.LeadScore = 4
	s.ScoreHistory = []models.ScoreEntry{{Score: 4, PreviousScore: 0, Timestamp: ts, Reason: "business_type"}}
	return s
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := newPostgresTestStore(t, 0)
	ctx := context.Background()
	state := postgresSampleState(t)

	require.NoError(t, store.Save(ctx, state.ThreadID, state))

	loaded, err := store.Load(ctx, state.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, state.ThreadID, loaded.ThreadID)
	assert.Equal(t, state.Messages, loaded.Messages)
	assert.Equal(t, state.ExtractedData, loaded.ExtractedData)
	assert.Equal(t, state.LeadScore, loaded.LeadScore)
	assert.Equal(t, state.ScoreHistory, loaded.ScoreHistory)
}

func TestPostgresStoreNotFound(t *testing.T) {
	store := newPostgresTestStore(t, 0)
	_, err := store.Load(context.Background(), "contact-nope")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestPostgresStoreUpsert(t *testing.T) {
	store := newPostgresTestStore(t, 0)
	ctx := context.Background()
	state := postgresSampleState(t)

	require.NoError(t, store.Save(ctx, state.ThreadID, state))

	updated := state.Clone()
	updated.LeadScore = 8
	require.NoError(t, store.Save(ctx, state.ThreadID, updated))

	loaded, err := store.Load(ctx, state.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.LeadScore)
}

func TestPostgresStoreSweepExpired(t *testing.T) {
	// Negative TTL writes rows already expired.
	store := newPostgresTestStore(t, -time.Hour)
	ctx := context.Background()
	state := postgresSampleState(t)

	require.NoError(t, store.Save(ctx, state.ThreadID, state))

	_, err := store.Load(ctx, state.ThreadID)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	removed, err := store.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestPostgresStoreHealth(t *testing.T) {
	store := newPostgresTestStore(t, 0)
	assert.NoError(t, store.Health(context.Background()))
}
