package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name" toml:"name"`
	Port    int           `yaml:"port" toml:"port"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port required")
	}
	return nil
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadYAMLExpandsEnv(t *testing.T) {
	t.Setenv("MENUBOARD_TEST_NAME", "lobby")
	p := write(t, "config.yaml", "name: ${MENUBOARD_TEST_NAME}\nport: 9090\ntimeout: 15s\n")

	var got sample
	if err := Load(p, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "lobby" || got.Port != 9090 || got.Timeout != 15*time.Second {
		t.Errorf("got %+v", got)
	}
}

func TestLoadTOML(t *testing.T) {
	p := write(t, "config.toml", "name = \"drive-thru\"\nport = 8081\ntimeout = \"500ms\"\n")

	var got sample
	if err := Load(p, &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "drive-thru" || got.Port != 8081 || got.Timeout != 500*time.Millisecond {
		t.Errorf("got %+v", got)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	p := write(t, "config.yaml", "name: x\n")
	var got sample
	err := Load(p, &got)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := write(t, "default.yaml", "port: 7000\n")
	var got sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &got); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if got.Port != 7000 {
		t.Errorf("port = %d", got.Port)
	}
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), "", &got); err == nil {
		t.Error("expected error without default file")
	}
}
