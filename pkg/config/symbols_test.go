package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSymbolsMissingFileFallsBack(t *testing.T) {
	got, err := LoadSymbols(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(DefaultSymbols) {
		t.Fatalf("expected %d default symbols, got %d", len(DefaultSymbols), len(got))
	}
}

func TestLoadSymbolsParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	body := "symbols:\n  - symbol: DOGEUSDT\n    name: Dogecoin\n    base_price: 0.2\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := LoadSymbols(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(got))
	}
	if got[0].Symbol != "DOGEUSDT" || got[0].Name != "Dogecoin" || got[0].BasePrice != 0.2 {
		t.Fatalf("unexpected symbol: %+v", got[0])
	}
}

func TestLoadSymbolsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	if err := os.WriteFile(path, []byte("symbols: [unclosed"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadSymbols(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
