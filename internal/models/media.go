package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaAsset is an uploaded object tracked for garbage collection. The GC
// worker reclaims assets whose StorageKey and URL appear in no live project
// element payload or generation record, once older than the retention
// window.
type MediaAsset struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	StorageKey  string    `gorm:"uniqueIndex;not null" json:"storage_key"`
	URL         string    `gorm:"not null" json:"url"`
	Checksum    string    `gorm:"type:varchar(64)" json:"checksum"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// GenerationRecord indexes completed AI generations. Only the output URL
// matters here: it feeds the GC live set. Provider calls happen elsewhere.
type GenerationRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;index;not null" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Prompt    string    `gorm:"type:text" json:"prompt"`
	Status    string    `gorm:"type:varchar(32);not null;default:'completed'" json:"status"`
	OutputURL string    `json:"output_url"`
	CreatedAt time.Time `json:"created_at"`
}
