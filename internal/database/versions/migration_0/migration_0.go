package migration_0

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	LastSeen  time.Time `gorm:"index"`
}

type ScanRecord struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null"`

	Filename    string
	ImageBase64 string
	Prediction  string  `gorm:"size:64;not null"`
	Confidence  float32 `gorm:"default:0"`

	CreatedAt time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Session{}, &ScanRecord{}); err != nil {
		return fmt.Errorf("error creating initial schema: %w", err)
	}
	return nil
}
