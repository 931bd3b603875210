package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDocRegistered(t *testing.T) {
	doc, err := swag.ReadDoc()
	require.NoError(t, err)

	var parsed struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		BasePath    string                     `json:"basePath"`
		Paths       map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, "图谱跟踪服务 API", parsed.Info.Title)
	assert.Equal(t, "/swagger/atlas-tracker-service", parsed.BasePath)
	for _, path := range []string{
		"/refresh",
		"/refresh/statuses",
		"/entities/{entity_type}/{entity_id}/reconcile",
		"/entities/{entity_type}/{entity_id}/findings",
		"/validations/{validation_id}/in-progress",
		"/atlases/{atlas_id}/task-counts",
	} {
		assert.Contains(t, parsed.Paths, path)
	}
	assert.Contains(t, parsed.Definitions, "atlas_tracker.OverrideResult")
}
