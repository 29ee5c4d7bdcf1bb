package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Operation kinds carried in the payload's "type" field.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
	OpBatch  = "batch"
)

// Operation is one recorded edit. OpIndex is assigned inside the append
// transaction and is strictly increasing per project. Rows are append-only,
// never mutated or reordered.
type Operation struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index:idx_operations_project_index,unique" json:"project_id"`
	OpIndex   int64          `gorm:"not null;index:idx_operations_project_index,unique" json:"op_index"`
	IssuerID  uuid.UUID      `gorm:"type:uuid;not null" json:"issuer_id"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Snapshot is the materialized element state as of OpIndex. The snapshot
// with the highest OpIndex is authoritative for its project.
type Snapshot struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_snapshots_project_index,unique" json:"project_id"`
	OpIndex       int64          `gorm:"not null;index:idx_snapshots_project_index,unique" json:"op_index"`
	Elements      datatypes.JSON `gorm:"type:jsonb;not null" json:"elements"`
	FormatVersion int            `gorm:"not null;default:1" json:"format_version"`
	CreatedAt     time.Time      `json:"created_at"`
}
