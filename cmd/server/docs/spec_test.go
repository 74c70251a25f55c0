package docs

import "testing"

func TestGetSwaggerSpec(t *testing.T) {
	spec, err := GetSwaggerSpec()
	if err != nil {
		t.Fatalf("expected spec to parse, got %v", err)
	}

	eps := spec.Endpoints()
	if len(eps) == 0 {
		t.Fatal("expected endpoints, got none")
	}

	found := false
	for i, e := range eps {
		if i > 0 && eps[i-1].Path > e.Path {
			t.Errorf("expected endpoints ordered by path, got %q before %q", eps[i-1].Path, e.Path)
		}
		if e.Method == "POST" && e.Path == "/api/game/create" {
			found = true
			if e.Summary != "Create a game" {
				t.Errorf("expected summary %q, got %q", "Create a game", e.Summary)
			}
		}
	}
	if !found {
		t.Error("expected POST /api/game/create to be documented")
	}
}
