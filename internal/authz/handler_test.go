package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueGroupsByModule(t *testing.T) {
	registry := testRegistry(t)
	h := NewPermissionsHandler(nil, registry, nil, nil)

	rec := httptest.NewRecorder()
	h.catalogue(rec, httptest.NewRequest(http.MethodGet, "/permissions/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Modules map[string][]permissionEntry `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.NotEmpty(t, body.Modules["user"])
	require.NotEmpty(t, body.Modules["vault"])
	for module, entries := range body.Modules {
		for _, e := range entries {
			assert.Equal(t, module, e.Module)
		}
	}

	total := 0
	for _, entries := range body.Modules {
		total += len(entries)
	}
	assert.Len(t, registry.IDs(), total)
}
