package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/muralkit/engine/internal/models"
	appErr "github.com/muralkit/engine/pkg/errors"
)

func opWith(t *testing.T, index int64, payload OperationPayload) models.Operation {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return models.Operation{
		ProjectID: uuid.New(),
		OpIndex:   index,
		IssuerID:  uuid.New(),
		Payload:   datatypes.JSON(raw),
	}
}

func TestReplay(t *testing.T) {
	elA := ElementState{ID: "a", X: 1, Y: 2, Width: 10, Height: 10}
	elA2 := ElementState{ID: "a", X: 5, Y: 5, Width: 10, Height: 10}
	elB := ElementState{ID: "b", X: 100, Y: 100, Width: 20, Height: 20}
	elC := ElementState{ID: "c", X: 50, Y: 50, Width: 5, Height: 5}

	ops := []models.Operation{
		opWith(t, 1, OperationPayload{Type: models.OpUpsert, Element: &elA}),
		opWith(t, 2, OperationPayload{Type: models.OpBatch, Elements: []ElementState{elB, elC}}),
		opWith(t, 3, OperationPayload{Type: models.OpUpsert, Element: &elA2}),
		opWith(t, 4, OperationPayload{Type: models.OpDelete, ElementID: "b"}),
	}

	t.Run("applies upserts, batches and deletes in order", func(t *testing.T) {
		state, err := Replay(nil, ops)
		require.NoError(t, err)
		require.Len(t, state, 2)
		require.Equal(t, elA2, state["a"])
		require.Equal(t, elC, state["c"])
		_, ok := state["b"]
		require.False(t, ok)
	})

	t.Run("replaying the tail onto a prefix equals replaying everything", func(t *testing.T) {
		full, err := Replay(nil, ops)
		require.NoError(t, err)

		// Cut the log at every point and replay the remainder on top of
		// the prefix state.
		for cut := 0; cut <= len(ops); cut++ {
			prefix, err := Replay(nil, ops[:cut])
			require.NoError(t, err)
			resumed, err := Replay(prefix, ops[cut:])
			require.NoError(t, err)
			require.Equal(t, full, resumed, "cut at %d", cut)
		}
	})

	t.Run("does not mutate the base map", func(t *testing.T) {
		base := map[string]ElementState{"b": elB}
		_, err := Replay(base, []models.Operation{
			opWith(t, 1, OperationPayload{Type: models.OpDelete, ElementID: "b"}),
		})
		require.NoError(t, err)
		require.Contains(t, base, "b")
	})

	t.Run("unknown type in the log is corrupt", func(t *testing.T) {
		bad := models.Operation{OpIndex: 1, Payload: datatypes.JSON(`{"type":"wiggle"}`)}
		_, err := Replay(nil, []models.Operation{bad})
		require.Error(t, err)
		require.True(t, appErr.IsCode(err, appErr.CodeCorrupt))
	})
}

func TestOperationPayloadValidate(t *testing.T) {
	el := ElementState{ID: "a"}

	cases := []struct {
		name    string
		payload OperationPayload
		ok      bool
	}{
		{"valid upsert", OperationPayload{Type: models.OpUpsert, Element: &el}, true},
		{"upsert without element", OperationPayload{Type: models.OpUpsert}, false},
		{"upsert without element id", OperationPayload{Type: models.OpUpsert, Element: &ElementState{}}, false},
		{"valid delete", OperationPayload{Type: models.OpDelete, ElementID: "a"}, true},
		{"delete without element id", OperationPayload{Type: models.OpDelete}, false},
		{"valid batch", OperationPayload{Type: models.OpBatch, Elements: []ElementState{el}}, true},
		{"empty batch", OperationPayload{Type: models.OpBatch}, false},
		{"batch element missing id", OperationPayload{Type: models.OpBatch, Elements: []ElementState{{}}}, false},
		{"unknown type", OperationPayload{Type: "transmogrify"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				require.True(t, appErr.IsCode(err, appErr.CodeInvalid))
			}
		})
	}
}

func TestCheckContiguous(t *testing.T) {
	mk := func(indexes ...int64) []models.Operation {
		ops := make([]models.Operation, 0, len(indexes))
		for _, i := range indexes {
			ops = append(ops, models.Operation{OpIndex: i})
		}
		return ops
	}

	require.NoError(t, checkContiguous(0, mk(1, 2, 3)))
	require.NoError(t, checkContiguous(41, mk(42, 43)))
	require.NoError(t, checkContiguous(7, nil))

	err := checkContiguous(0, mk(1, 3))
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeCorrupt))

	err = checkContiguous(5, mk(7))
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeCorrupt))
}
