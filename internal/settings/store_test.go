package settings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "settings.toml"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if got := s.Selection(Scope{Account: "a", League: "Standard"}); got != nil {
		t.Fatalf("expected nil selection, got %+v", got)
	}
}

func TestSaveSelectionPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.toml")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	scope := Scope{Account: "Zana", League: "Standard"}
	tabs := []StashTab{{Position: 1, Name: "A"}, {Position: 4, Name: "Maps", IsMapTab: true}}
	if err := s.SaveSelection(scope, tabs); err != nil {
		t.Fatalf("SaveSelection: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Selection(scope)
	if len(got) != 2 || got[1] != tabs[1] || got[0] != tabs[0] {
		t.Fatalf("unexpected selection after reopen: %+v", got)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "map_tab = true") {
		t.Fatalf("expected map_tab key in file:\n%s", data)
	}
}

func TestSelectionsAreScoped(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "settings.toml"))
	std := Scope{Account: "Zana", League: "Standard"}
	hc := Scope{Account: "Zana", League: "Hardcore"}
	if err := s.SaveSelection(std, []StashTab{{Position: 1, Name: "A"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSelection(hc, []StashTab{{Position: 2, Name: "B"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSelection(std, []StashTab{{Position: 3, Name: "C"}}); err != nil {
		t.Fatal(err)
	}
	if got := s.Selection(std); len(got) != 1 || got[0].Position != 3 {
		t.Fatalf("standard selection: %+v", got)
	}
	if got := s.Selection(hc); len(got) != 1 || got[0].Position != 2 {
		t.Fatalf("hardcore selection: %+v", got)
	}
	if n := len(s.Leagues()); n != 2 {
		t.Fatalf("expected 2 leagues, got %d", n)
	}
}

func TestSaveEmptySelectionKeepsLeague(t *testing.T) {
	s, _ := Open(filepath.Join(t.TempDir(), "settings.toml"))
	scope := Scope{Account: "Zana", League: "Standard"}
	_ = s.SaveSelection(scope, []StashTab{{Position: 1, Name: "A"}})
	if err := s.SaveSelection(scope, nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Selection(scope); len(got) != 0 {
		t.Fatalf("expected empty selection, got %+v", got)
	}
}

func TestSelectionReturnsCopy(t *testing.T) {
	s, _ := Open("")
	scope := Scope{Account: "Zana", League: "Standard"}
	_ = s.SaveSelection(scope, []StashTab{{Position: 1, Name: "A"}})
	got := s.Selection(scope)
	got[0].Name = "mutated"
	if s.Selection(scope)[0].Name != "A" {
		t.Fatal("Selection leaked internal slice")
	}
}

func TestSaveSelectionRejectsInvalidScope(t *testing.T) {
	s, _ := Open("")
	if err := s.SaveSelection(Scope{Account: "Zana"}, nil); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("leagues = [[[\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected parse error")
	}
}
