package services

import (
	"encoding/json"
	"strings"

	"github.com/muralkit/engine/internal/models"
)

// collectStrings walks an arbitrary JSON document and gathers every string
// value. Media references are free-form URLs or storage keys embedded
// anywhere in element payloads, so the live set is the union of all
// strings rather than a fixed field.
func collectStrings(raw []byte, out map[string]struct{}) {
	if len(raw) == 0 {
		return
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	collectValue(v, out)
}

func collectValue(v any, out map[string]struct{}) {
	switch t := v.(type) {
	case string:
		if t != "" {
			out[t] = struct{}{}
		}
	case []any:
		for _, item := range t {
			collectValue(item, out)
		}
	case map[string]any:
		for _, item := range t {
			collectValue(item, out)
		}
	}
}

// isReferenced reports whether any live string mentions the asset, by its
// storage key or by its public URL.
func isReferenced(asset models.MediaAsset, live map[string]struct{}) bool {
	if _, ok := live[asset.URL]; ok {
		return true
	}
	if _, ok := live[asset.StorageKey]; ok {
		return true
	}
	for s := range live {
		if asset.StorageKey != "" && strings.Contains(s, asset.StorageKey) {
			return true
		}
	}
	return false
}
