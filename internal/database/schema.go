package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
	LastSeen  time.Time `gorm:"index"`

	Records []ScanRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

type ScanRecord struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;index;not null"`

	Filename      string
	ImageBase64   string
	Prediction    string         `gorm:"size:64;not null"`
	Confidence    float32        `gorm:"default:0"`
	Probabilities datatypes.JSON // {"<label>": score}

	CreatedAt time.Time
}
