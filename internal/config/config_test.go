package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:  HTTPConfig{Port: 8080},
		Store: StoreConfig{URI: "http://localhost:9200"},
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingStoreURI(t *testing.T) {
	cfg := validConfig()
	cfg.Store.URI = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing store uri")
	}
}

func TestValidate_PageSizeOverThreshold(t *testing.T) {
	cfg := validConfig()
	cfg.Search = SearchConfig{DefaultPageSize: 200, MaxResultThreshold: 100}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for page size above threshold")
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Store.ExperimentsIndex != "mlflow-experiments" {
		t.Errorf("expected ExperimentsIndex='mlflow-experiments', got %q", cfg.Store.ExperimentsIndex)
	}
	if cfg.Store.RunsIndex != "mlflow-runs" {
		t.Errorf("expected RunsIndex='mlflow-runs', got %q", cfg.Store.RunsIndex)
	}
	if cfg.Store.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Store.ReadinessTimeout)
	}
	if cfg.Search.DefaultPageSize != 1000 {
		t.Errorf("expected DefaultPageSize=1000, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.MaxResultThreshold != 50000 {
		t.Errorf("expected MaxResultThreshold=50000, got %d", cfg.Search.MaxResultThreshold)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Store:  StoreConfig{ExperimentsIndex: "exp-custom", RunsIndex: "runs-custom", ReadinessTimeout: 15},
		Search: SearchConfig{DefaultPageSize: 50, MaxResultThreshold: 500},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Store.ExperimentsIndex != "exp-custom" {
		t.Errorf("expected ExperimentsIndex='exp-custom', got %q", cfg.Store.ExperimentsIndex)
	}
	if cfg.Search.DefaultPageSize != 50 {
		t.Errorf("expected DefaultPageSize=50, got %d", cfg.Search.DefaultPageSize)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TRACKDEX_TEST_PASS", "secret")
	os.Unsetenv("TRACKDEX_TEST_MISSING")

	in := []byte("password: ${TRACKDEX_TEST_PASS}\nuri: ${TRACKDEX_TEST_MISSING:-http://localhost:9200}\n")
	got := string(expandEnvVars(in))

	want := "password: secret\nuri: http://localhost:9200\n"
	if got != want {
		t.Errorf("expanded config:\ngot:  %q\nwant: %q", got, want)
	}
}
