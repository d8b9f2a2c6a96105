package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestConfigPath(t *testing.T) {
	// Cannot run in parallel - depends on environment variables
	path := ConfigPath()
	if path == "" {
		t.Skip("Could not determine home directory")
	}

	expected := filepath.Join(".config", "bioctl", "config.yaml")
	if !strings.HasSuffix(path, expected) {
		t.Errorf("ConfigPath() = %q, want path ending with %q", path, expected)
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	t.Parallel()
	data, err := yaml.Marshal(&Config{Server: "http://test.example.com:8000"})
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if loaded.Server != "http://test.example.com:8000" {
		t.Errorf("Config.Server = %q, want %q", loaded.Server, "http://test.example.com:8000")
	}
}

func TestGetServerFlagPrecedence(t *testing.T) {
	// Cannot run in parallel - modifies globals and environment variables
	originalFlag := serverFlag
	defer func() { serverFlag = originalFlag }()

	t.Setenv("BIOCTL_SERVER", "http://env.example.com:8000")

	serverFlag = "http://flag.example.com:8000"
	if got := GetServer(); got != "http://flag.example.com:8000" {
		t.Errorf("GetServer() = %q, want flag value to win over env", got)
	}

	serverFlag = ""
	if got := GetServer(); got != "http://env.example.com:8000" {
		t.Errorf("GetServer() = %q, want env value", got)
	}
}

func TestGetServerDefault(t *testing.T) {
	// Cannot run in parallel - modifies globals and environment variables
	originalFlag := serverFlag
	defer func() { serverFlag = originalFlag }()

	serverFlag = ""
	t.Setenv("BIOCTL_SERVER", "")
	t.Setenv("HOME", t.TempDir()) // isolate from any real config file

	if got := GetServer(); got != DefaultServer {
		t.Errorf("GetServer() = %q, want default %q", got, DefaultServer)
	}
}
