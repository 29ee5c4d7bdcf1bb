package types

type ProjectCreateRequest struct {
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description"`
	Settings    map[string]interface{} `json:"settings"`
}

type ProjectUpdateRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Settings    map[string]interface{} `json:"settings"`
}

type CollaboratorAddRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=editor viewer"`
}

type PresenceUpdateRequest struct {
	Cursor    *PointRequest `json:"cursor"`
	Tool      string        `json:"tool"`
	Color     string        `json:"color"`
	Selection []string      `json:"selection"`
}

type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SnapshotWorkerRequest struct {
	ProjectID string `json:"project_id"`
	MaxOps    int    `json:"max_ops" validate:"gte=0"`
	MaxAge    string `json:"max_age"`
	Force     bool   `json:"force"`
}

type MediaGCWorkerRequest struct {
	MediaID string `json:"media_id" validate:"omitempty,uuid4"`
	TTLDays int    `json:"ttl_days" validate:"gte=0"`
	DryRun  *bool  `json:"dry_run"`
}
