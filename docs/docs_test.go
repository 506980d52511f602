package docs

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type swaggerDoc struct {
	Info struct {
		Title   string `json:"title"`
		Version string `json:"version"`
	} `json:"info"`
	Paths map[string]map[string]struct {
		Security  []map[string][]string `json:"security"`
		Responses map[string]any        `json:"responses"`
	} `json:"paths"`
	Definitions         map[string]any `json:"definitions"`
	SecurityDefinitions map[string]any `json:"securityDefinitions"`
}

func readDoc(t *testing.T) swaggerDoc {
	t.Helper()
	var doc swaggerDoc
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc), "rendered document must be valid JSON")
	return doc
}

func TestDoc_Info(t *testing.T) {
	doc := readDoc(t)
	assert.Equal(t, "Student Marketplace Auth API", doc.Info.Title)
	assert.Equal(t, "1.0", doc.Info.Version)
	assert.Contains(t, doc.SecurityDefinitions, "BearerAuth")
}

// The operations and status codes below mirror the @Router, @Success and
// @Failure annotations on the handlers.
func TestDoc_OperationsMatchHandlers(t *testing.T) {
	doc := readDoc(t)

	ops := []struct {
		path, method string
		secured      bool
		codes        []int
	}{
		{"/auth", "post", false, []int{200, 201, 400, 401, 409, 422}},
		{"/auth", "get", true, []int{200, 400, 401}},
		{"/admin/principals", "get", true, []int{200, 401, 403, 404, 422}},
	}

	documented := 0
	for _, methods := range doc.Paths {
		documented += len(methods)
	}
	assert.Equal(t, len(ops), documented, "unexpected number of documented operations")

	for _, op := range ops {
		t.Run(op.method+" "+op.path, func(t *testing.T) {
			o, ok := doc.Paths[op.path][op.method]
			require.True(t, ok, "operation missing")
			assert.Len(t, o.Responses, len(op.codes))
			for _, code := range op.codes {
				assert.Contains(t, o.Responses, strconv.Itoa(code))
			}
			if op.secured {
				require.Len(t, o.Security, 1)
				assert.Contains(t, o.Security[0], "BearerAuth")
			} else {
				assert.Empty(t, o.Security)
			}
		})
	}
}

func TestDoc_DefinitionsResolve(t *testing.T) {
	doc := readDoc(t)
	for _, name := range []string{
		"handler.Envelope", "handler.authResponse", "handler.meResponse", "handler.registerRequest",
		"domain.Account", "domain.Principal", "domain.Role", "domain.ValidationError",
	} {
		assert.Contains(t, doc.Definitions, name)
	}

	// the password hash is never part of the documented account
	account, ok := doc.Definitions["domain.Account"].(map[string]any)
	require.True(t, ok)
	props, ok := account["properties"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, props, "password_hash")
}
