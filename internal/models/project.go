package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Collaborator roles.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Project represents a shared canvas document owned by a user.
type Project struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OwnerID             uuid.UUID      `gorm:"type:uuid;index;not null" json:"owner_id" validate:"required"`
	Name                string         `gorm:"not null" json:"name" validate:"required"`
	Description         string         `gorm:"type:text" json:"description"`
	Settings            datatypes.JSON `gorm:"type:jsonb" json:"settings"`
	LastSnapshotOpIndex int64          `gorm:"not null;default:0" json:"last_snapshot_op_index"`
	Archived            bool           `gorm:"not null;default:false;index" json:"archived"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`

	Collaborators []Collaborator `gorm:"foreignKey:ProjectID" json:"collaborators,omitempty"`
}

// Collaborator grants a user a role on a project. The owner gets an
// implicit owner entry when the project is created.
type Collaborator struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_collaborators_project_user,unique" json:"project_id" validate:"required"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_collaborators_project_user,unique" json:"user_id" validate:"required"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role" validate:"required,oneof=owner editor viewer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectCounter is the per-project operation sequence counter. It is the
// only row mutated under a lock; the append transaction increments it and
// writes the operation together.
type ProjectCounter struct {
	ProjectID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"project_id"`
	LastOpIndex int64     `gorm:"not null;default:0" json:"last_op_index"`
	UpdatedAt   time.Time `json:"updated_at"`
}
