package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PresenceRecord is the durable fallback for ephemeral presence. It has no
// automatic expiry; readers filter by LastSeen against a freshness window.
type PresenceRecord struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index:idx_presence_project_user,unique" json:"project_id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_presence_project_user,unique" json:"user_id"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	LastSeen  time.Time      `gorm:"not null;index" json:"last_seen"`
}

// PresenceData is the cursor/tool state a collaborator broadcasts.
type PresenceData struct {
	Cursor    *Point   `json:"cursor,omitempty"`
	Tool      string   `json:"tool,omitempty"`
	Color     string   `json:"color,omitempty"`
	Selection []string `json:"selection,omitempty"`
}

// PresenceEntry is the read-path shape: the broadcast data plus identity
// and recency.
type PresenceEntry struct {
	UserID    uuid.UUID    `json:"user_id"`
	ProjectID uuid.UUID    `json:"project_id"`
	Data      PresenceData `json:"data"`
	LastSeen  time.Time    `json:"last_seen"`
}
