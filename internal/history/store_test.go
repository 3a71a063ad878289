package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"leaf-backend/internal/core"
	"leaf-backend/internal/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) *Store {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "leaf.db"))
	require.NoError(t, err)

	store, err := NewStore(db, 16)
	require.NoError(t, err)
	return store
}

func prediction(label core.Label) core.Prediction {
	return core.Prediction{
		Label:         label,
		Confidence:    0.9,
		Probabilities: map[core.Label]float32{label: 0.9},
	}
}

func TestEnsureSession(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	same, err := store.EnsureSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, same)

	// An id the database has never seen gets replaced.
	other, err := store.EnsureSession(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestAppendAndHistory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	record, err := store.Append(ctx, id, "leaf.png", []byte("image bytes"), prediction(core.LateBlight))
	require.NoError(t, err)
	assert.NotZero(t, record.ID)

	history, err = store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.LateBlight, history[0].Prediction)
	assert.Equal(t, "leaf.png", history[0].Filename)
	assert.InDelta(t, 0.9, history[0].Probabilities[core.LateBlight], 1e-6)

	data, err := history[0].Image()
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))

	loaded, err := store.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.SessionID)

	_, err = store.Get(ctx, record.ID+100)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecentIsNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)

	for i, label := range core.ClassNames[:7] {
		_, err := store.Append(ctx, id, string(label)+".png", []byte{byte(i)}, prediction(label))
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, id, DisplayLimit)
	require.NoError(t, err)
	require.Len(t, recent, DisplayLimit)
	for i, record := range recent {
		assert.Equal(t, core.ClassNames[6-i], record.Prediction)
	}

	// The full history is unbounded.
	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 7)
}

func TestClear(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)
	other, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)

	_, err = store.Append(ctx, id, "a.png", []byte("a"), prediction(core.Healthy))
	require.NoError(t, err)
	_, err = store.Append(ctx, other, "b.png", []byte("b"), prediction(core.Healthy))
	require.NoError(t, err)

	// Warm the cache so clearing has to invalidate it.
	_, err = store.History(ctx, id)
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, id))
	require.NoError(t, store.Clear(ctx, id))

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)

	history, err = store.History(ctx, other)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	same, err := store.EnsureSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, same, "clearing keeps the session")
}

// interleaveWrite runs write once, right after the next scan_records query
// returns its rows and before History can cache them.
func interleaveWrite(t *testing.T, store *Store, write func()) {
	armed := true
	err := store.db.Callback().Query().After("gorm:query").Register("test:interleave_write", func(tx *gorm.DB) {
		if armed && tx.Statement.Table == "scan_records" {
			armed = false
			write()
		}
	})
	require.NoError(t, err)
}

func TestHistoryCacheSeesConcurrentAppend(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)

	interleaveWrite(t, store, func() {
		_, err := store.Append(ctx, id, "late.png", []byte("late"), prediction(core.EarlyBlight))
		require.NoError(t, err)
	})

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history, "rows were read before the append")

	history, err = store.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, core.EarlyBlight, history[0].Prediction)
}

func TestHistoryCacheSeesConcurrentClear(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = store.Append(ctx, id, "a.png", []byte("a"), prediction(core.Healthy))
	require.NoError(t, err)

	interleaveWrite(t, store, func() {
		require.NoError(t, store.Clear(ctx, id))
	})

	history, err := store.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	history, err = store.History(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDisplay(t *testing.T) {
	records := make([]Record, 8)
	for i := range records {
		records[i] = Record{ID: uint(i + 1)}
	}

	shown := Display(records, 5)
	require.Len(t, shown, 5)
	assert.Equal(t, []uint{8, 7, 6, 5, 4}, ids(shown))

	assert.Equal(t, []uint{2, 1}, ids(Display(records[:2], 5)))
	assert.Empty(t, Display(nil, 5))
	assert.Empty(t, Display(records, 0))

	// The input is left untouched.
	assert.Equal(t, uint(1), records[0].ID)
}

func ids(records []Record) []uint {
	out := make([]uint, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestPredictions(t *testing.T) {
	records := []Record{{Prediction: core.Healthy}, {Prediction: core.LeafMold}}
	assert.Equal(t, []core.Label{core.Healthy, core.LeafMold}, Predictions(records))
	assert.Equal(t, core.Quality{Status: "Needs Improvement", Tier: core.TierMedium}, core.QualityTrend(Predictions(records)))
}

func TestExpire(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }

	stale, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)
	_, err = store.Append(ctx, stale, "old.png", []byte("old"), prediction(core.Healthy))
	require.NoError(t, err)

	store.now = func() time.Time { return start.Add(2 * time.Hour) }
	fresh, err := store.EnsureSession(ctx, uuid.Nil)
	require.NoError(t, err)

	expired, err := store.Expire(ctx, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{stale}, expired)

	history, err := store.History(ctx, stale)
	require.NoError(t, err)
	assert.Empty(t, history)

	same, err := store.EnsureSession(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, fresh, same)

	renewed, err := store.EnsureSession(ctx, stale)
	require.NoError(t, err)
	assert.NotEqual(t, stale, renewed)
}
