package docs

import (
	"encoding/json"
	"sort"
	"strings"
)

// SwaggerSpec represents the structure of the rendered swagger document
type SwaggerSpec struct {
	Paths map[string]map[string]PathInfo `json:"paths"`
}

// PathInfo contains information about an API endpoint
type PathInfo struct {
	Summary     string                 `json:"summary"`
	Description string                 `json:"description"`
	Tags        []string               `json:"tags"`
	Parameters  []interface{}          `json:"parameters"`
	Responses   map[string]interface{} `json:"responses"`
}

// Endpoint is one method on one path.
type Endpoint struct {
	Method  string
	Path    string
	Summary string
}

// GetSwaggerSpec returns the parsed swagger specification
func GetSwaggerSpec() (*SwaggerSpec, error) {
	var spec SwaggerSpec
	if err := json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Endpoints lists every documented endpoint ordered by path then method.
func (s *SwaggerSpec) Endpoints() []Endpoint {
	var out []Endpoint
	for path, methods := range s.Paths {
		for method, info := range methods {
			out = append(out, Endpoint{
				Method:  strings.ToUpper(method),
				Path:    path,
				Summary: info.Summary,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})

	return out
}
