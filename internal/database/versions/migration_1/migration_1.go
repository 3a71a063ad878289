package migration_1

import (
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ScanRecord struct {
	Probabilities datatypes.JSON
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&ScanRecord{}, "Probabilities"); err != nil {
		return fmt.Errorf("error adding Probabilities column: %w", err)
	}

	if err := db.Model(&ScanRecord{}).
		Where("probabilities IS NULL").
		Update("probabilities", datatypes.JSON("{}")).Error; err != nil {
		return fmt.Errorf("error setting default value for Probabilities: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&ScanRecord{}, "Probabilities"); err != nil {
		return fmt.Errorf("error dropping Probabilities column: %w", err)
	}

	return nil
}
