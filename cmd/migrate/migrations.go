package main

import (
	"gorm.io/gorm"

	"github.com/muralkit/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		// Accounts & access
		&models.User{},
		&models.Project{},
		&models.Collaborator{},

		// Canvas state
		&models.ProjectCounter{},
		&models.Element{},
		&models.Operation{},
		&models.Snapshot{},

		// Ephemeral state (durable fallback)
		&models.PresenceRecord{},

		// Media
		&models.MediaAsset{},
		&models.GenerationRecord{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	models := registerModels()

	// Run AutoMigrate for all models
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}

	// Run custom migrations
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		enableUUIDExtension,
		addOperationIndexes,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addOperationIndexes adds custom indexes for replay and presence queries
func addOperationIndexes(db *gorm.DB) error {
	// Replay reads are always ordered scans of a single project's log
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_operations_project_op_index
		ON operations(project_id, op_index)
	`).Error; err != nil {
		return err
	}

	// Durable presence fallback filters on freshness
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_presence_records_project_last_seen
		ON presence_records(project_id, last_seen)
	`).Error
}
