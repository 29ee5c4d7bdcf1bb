package services

import (
	"encoding/json"

	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
)

// ElementState is the wire form of an element inside operation payloads
// and snapshot bodies.
type ElementState struct {
	ID      string          `json:"id"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Width   float64         `json:"width"`
	Height  float64         `json:"height"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Anchors []models.Anchor `json:"anchors,omitempty"`
}

// OperationPayload describes one edit. Type selects which field applies:
// upsert uses Element, delete uses ElementID, batch uses Elements.
type OperationPayload struct {
	Type      string         `json:"type"`
	Element   *ElementState  `json:"element,omitempty"`
	ElementID string         `json:"element_id,omitempty"`
	Elements  []ElementState `json:"elements,omitempty"`
}

// Validate rejects malformed payloads before they reach the log.
func (p *OperationPayload) Validate() error {
	switch p.Type {
	case models.OpUpsert:
		if p.Element == nil || p.Element.ID == "" {
			return appErr.New(appErr.CodeInvalid, "upsert operation requires an element with an id")
		}
	case models.OpDelete:
		if p.ElementID == "" {
			return appErr.New(appErr.CodeInvalid, "delete operation requires element_id")
		}
	case models.OpBatch:
		if len(p.Elements) == 0 {
			return appErr.New(appErr.CodeInvalid, "batch operation requires elements")
		}
		for _, el := range p.Elements {
			if el.ID == "" {
				return appErr.New(appErr.CodeInvalid, "batch element missing id")
			}
		}
	default:
		return appErr.New(appErr.CodeInvalid, "unknown operation type")
	}
	return nil
}

// Replay applies operations in order onto base and returns the resulting
// element state. Replaying ops (snapshotIndex, head] onto a snapshot must
// equal replaying everything from zero onto the empty map; the apply rules
// here are the single source of that equivalence.
func Replay(base map[string]ElementState, ops []models.Operation) (map[string]ElementState, error) {
	state := make(map[string]ElementState, len(base))
	for id, el := range base {
		state[id] = el
	}
	for _, op := range ops {
		var payload OperationPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return nil, appErr.Wrap(err, appErr.CodeCorrupt, "undecodable operation payload in log")
		}
		switch payload.Type {
		case models.OpUpsert:
			if payload.Element != nil {
				state[payload.Element.ID] = *payload.Element
			}
		case models.OpDelete:
			delete(state, payload.ElementID)
		case models.OpBatch:
			for _, el := range payload.Elements {
				state[el.ID] = el
			}
		default:
			return nil, appErr.New(appErr.CodeCorrupt, "unknown operation type in log")
		}
	}
	return state, nil
}

// checkContiguous verifies the returned ops form an unbroken sequence
// starting right after base. A gap means the log is corrupt and must be
// surfaced, never silently healed.
func checkContiguous(base int64, ops []models.Operation) error {
	expect := base + 1
	for _, op := range ops {
		if op.OpIndex != expect {
			return appErr.New(appErr.CodeCorrupt, "gap in operation sequence").
				WithMeta("expected_index", expect).
				WithMeta("actual_index", op.OpIndex)
		}
		expect++
	}
	return nil
}

// snapshotElements decodes a snapshot body into replayable state.
func snapshotElements(snap *models.Snapshot) (map[string]ElementState, error) {
	state := map[string]ElementState{}
	if len(snap.Elements) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(snap.Elements, &state); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeCorrupt, "undecodable snapshot body")
	}
	return state, nil
}
