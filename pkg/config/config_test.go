package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Fails bool   `yaml:"fails"`
}

func (s *sample) Validate() error {
	if s.Fails {
		return errors.New("told to fail")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	path := writeFile(t, "name: ${SAMPLE_NAME}\n")

	s := sample{Port: 8080}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "from-env" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "fails: true\n")
	err := Load(path, &sample{})
	if err == nil || !strings.Contains(err.Error(), "told to fail") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &sample{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	s := sample{Port: 1}
	if err := LoadOptional(missing, &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Port != 1 {
		t.Errorf("defaults changed: %+v", s)
	}
	if err := LoadOptional(missing, &sample{Fails: true}); err == nil {
		t.Error("defaults are still validated")
	}
}
