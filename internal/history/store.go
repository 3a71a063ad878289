package history

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leaf-backend/internal/core"
	"leaf-backend/internal/database"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DisplayLimit is how many records the page shows.
const DisplayLimit = 5

var ErrRecordNotFound = errors.New("history record not found")

type Record struct {
	ID            uint
	SessionID     uuid.UUID
	Filename      string
	ImageBase64   string
	Prediction    core.Label
	Confidence    float32
	Probabilities map[core.Label]float32
	CreatedAt     time.Time
}

// Image returns the originally uploaded bytes.
func (r Record) Image() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.ImageBase64)
}

// Store keeps classification history per browser session. Full histories are
// cached by session id and invalidated on every write to that session.
type Store struct {
	db    *gorm.DB
	cache *lru.Cache[uuid.UUID, []Record]
	now   func() time.Time

	// Bumped on every write to a session. A history read from the database is
	// only cached if no write happened while it was loading.
	genLock     sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewStore(db *gorm.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[uuid.UUID, []Record](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("error creating history cache: %w", err)
	}
	return &Store{
		db:          db,
		cache:       cache,
		now:         time.Now,
		generations: make(map[uuid.UUID]uint64),
	}, nil
}

func (s *Store) generation(sessionID uuid.UUID) uint64 {
	s.genLock.Lock()
	defer s.genLock.Unlock()
	return s.generations[sessionID]
}

func (s *Store) invalidate(sessionID uuid.UUID) {
	s.genLock.Lock()
	defer s.genLock.Unlock()
	s.generations[sessionID]++
	s.cache.Remove(sessionID)
}

func (s *Store) forget(sessionID uuid.UUID) {
	s.genLock.Lock()
	defer s.genLock.Unlock()
	delete(s.generations, sessionID)
	s.cache.Remove(sessionID)
}

// EnsureSession returns sessionID if it names a live session and refreshes its
// last seen time. Otherwise a new session is created and its id returned.
func (s *Store) EnsureSession(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	now := s.now().UTC()

	if sessionID != uuid.Nil {
		_, err := getSession(ctx, s.db, sessionID)
		if err == nil {
			if err := touchSession(ctx, s.db, sessionID, now); err != nil {
				return uuid.Nil, fmt.Errorf("error updating session: %w", err)
			}
			return sessionID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, fmt.Errorf("error loading session: %w", err)
		}
	}

	session := database.Session{ID: uuid.New(), CreatedAt: now, LastSeen: now}
	if err := createSession(ctx, s.db, &session); err != nil {
		return uuid.Nil, fmt.Errorf("error creating session: %w", err)
	}
	slog.Info("created session", "session_id", session.ID)
	return session.ID, nil
}

// Append records a classification of image under sessionID.
func (s *Store) Append(ctx context.Context, sessionID uuid.UUID, filename string, image []byte, pred core.Prediction) (Record, error) {
	probs, err := json.Marshal(pred.Probabilities)
	if err != nil {
		return Record{}, fmt.Errorf("error encoding probabilities: %w", err)
	}

	row := database.ScanRecord{
		SessionID:     sessionID,
		Filename:      filename,
		ImageBase64:   base64.StdEncoding.EncodeToString(image),
		Prediction:    string(pred.Label),
		Confidence:    pred.Confidence,
		Probabilities: datatypes.JSON(probs),
		CreatedAt:     s.now().UTC(),
	}
	if err := saveRecord(ctx, s.db, &row); err != nil {
		return Record{}, fmt.Errorf("error saving history record: %w", err)
	}
	s.invalidate(sessionID)

	return toRecord(row), nil
}

// History returns every record of the session, oldest first.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID) ([]Record, error) {
	if records, ok := s.cache.Get(sessionID); ok {
		return records, nil
	}

	gen := s.generation(sessionID)

	rows, err := getRecords(ctx, s.db, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error loading history: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	s.genLock.Lock()
	if s.generations[sessionID] == gen {
		s.cache.Add(sessionID, records)
	}
	s.genLock.Unlock()

	return records, nil
}

// Recent returns at most n records of the session, newest first.
func (s *Store) Recent(ctx context.Context, sessionID uuid.UUID, n int) ([]Record, error) {
	records, err := s.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Display(records, n), nil
}

func (s *Store) Get(ctx context.Context, recordID uint) (Record, error) {
	row, err := getRecord(ctx, s.db, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, fmt.Errorf("error loading history record: %w", err)
	}
	return toRecord(row), nil
}

// Clear empties the session's history. The session itself is kept.
func (s *Store) Clear(ctx context.Context, sessionID uuid.UUID) error {
	if err := deleteRecords(ctx, s.db, sessionID); err != nil {
		return fmt.Errorf("error clearing history: %w", err)
	}
	s.invalidate(sessionID)
	return nil
}

// Expire deletes every session idle since before, along with its records, and
// returns the ids that were removed.
func (s *Store) Expire(ctx context.Context, before time.Time) ([]uuid.UUID, error) {
	ids, err := idleSessions(ctx, s.db, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("error listing idle sessions: %w", err)
	}

	expired := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if err := deleteSession(ctx, s.db, id); err != nil {
			return expired, fmt.Errorf("error deleting session %s: %w", id, err)
		}
		s.forget(id)
		expired = append(expired, id)
	}
	return expired, nil
}

// Display picks the last n records of a history and orders them newest first.
func Display(records []Record, n int) []Record {
	if n < 0 {
		n = 0
	}
	if len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[len(records)-1-i] = r
	}
	return out
}

func Predictions(records []Record) []core.Label {
	labels := make([]core.Label, len(records))
	for i, r := range records {
		labels[i] = r.Prediction
	}
	return labels
}

func toRecord(row database.ScanRecord) Record {
	record := Record{
		ID:          row.ID,
		SessionID:   row.SessionID,
		Filename:    row.Filename,
		ImageBase64: row.ImageBase64,
		Prediction:  core.Label(row.Prediction),
		Confidence:  row.Confidence,
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Probabilities) > 0 {
		if err := json.Unmarshal(row.Probabilities, &record.Probabilities); err != nil {
			slog.Warn("error decoding stored probabilities", "record_id", row.ID, "error", err)
		}
	}
	return record
}
