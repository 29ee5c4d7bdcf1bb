package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Anchor is a named offset on an element used for connector snapping.
// Offsets are relative to the element's top-left corner.
type Anchor struct {
	Name string  `json:"name"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

// Element is a single canvas item. ElementID is client-assigned and unique
// within a project; conflicting concurrent upserts resolve last-write-wins.
type Element struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"-"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index:idx_elements_project_element,unique" json:"project_id"`
	ElementID string         `gorm:"not null;index:idx_elements_project_element,unique" json:"id" validate:"required"`
	X         float64        `gorm:"not null" json:"x"`
	Y         float64        `gorm:"not null" json:"y"`
	Width     float64        `gorm:"not null" json:"width"`
	Height    float64        `gorm:"not null" json:"height"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Anchors   datatypes.JSON `gorm:"type:jsonb" json:"anchors"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Rect is an axis-aligned query region.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
