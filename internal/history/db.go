package history

import (
	"context"
	"sync"
	"time"

	"leaf-backend/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SQLite only supports one writer at a time, so we need a lock
// whenever we write to the database
var dbMutex sync.Mutex

func createSession(ctx context.Context, db *gorm.DB, session *database.Session) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Create(session).Error
}

func getSession(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) (database.Session, error) {
	var session database.Session
	err := db.WithContext(ctx).First(&session, "id = ?", sessionID).Error
	return session, err
}

func touchSession(ctx context.Context, db *gorm.DB, sessionID uuid.UUID, now time.Time) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Model(&database.Session{ID: sessionID}).Update("last_seen", now).Error
}

func saveRecord(ctx context.Context, db *gorm.DB, record *database.ScanRecord) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Create(record).Error
}

func getRecords(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) ([]database.ScanRecord, error) {
	var records []database.ScanRecord
	err := db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&records).Error
	return records, err
}

func getRecord(ctx context.Context, db *gorm.DB, recordID uint) (database.ScanRecord, error) {
	var record database.ScanRecord
	err := db.WithContext(ctx).First(&record, "id = ?", recordID).Error
	return record, err
}

func deleteRecords(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Delete(&database.ScanRecord{}, "session_id = ?", sessionID).Error
}

func deleteSession(ctx context.Context, db *gorm.DB, sessionID uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	return db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Delete(&database.ScanRecord{}, "session_id = ?", sessionID).Error; err != nil {
			return err
		}
		return txn.Delete(&database.Session{}, "id = ?", sessionID).Error
	})
}

func idleSessions(ctx context.Context, db *gorm.DB, before time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.WithContext(ctx).Model(&database.Session{}).Where("last_seen < ?", before).Pluck("id", &ids).Error
	return ids, err
}
