package config

import (
	"strings"
	"testing"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8000")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "info")
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("got port %s, want 8000", cfg.Port)
	}
	if cfg.LogRetentionWeeks != 4 {
		t.Errorf("got retention %d, want 4", cfg.LogRetentionWeeks)
	}
	if cfg.HistoryYears != 4 {
		t.Errorf("got history years %d, want 4", cfg.HistoryYears)
	}
	if !cfg.TrainOnDemand {
		t.Error("train on demand not enabled by default")
	}
	if cfg.DataDir != "data" || cfg.ModelDir != "models" || cfg.DatabasePath != "forecast.db" {
		t.Errorf("unexpected path defaults: %s %s %s", cfg.DataDir, cfg.ModelDir, cfg.DatabasePath)
	}
	if cfg.Seed != 42 {
		t.Errorf("got seed %d, want 42", cfg.Seed)
	}
}

func TestLoadOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("TRAIN_ON_DEMAND", "false")
	t.Setenv("HISTORY_YEARS", "5")
	t.Setenv("SEED", "1234")
	t.Setenv("DATABASE_PATH", "/tmp/test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TrainOnDemand {
		t.Error("TRAIN_ON_DEMAND=false not honored")
	}
	if cfg.HistoryYears != 5 {
		t.Errorf("got history years %d, want 5", cfg.HistoryYears)
	}
	if cfg.Seed != 1234 {
		t.Errorf("got seed %d, want 1234", cfg.Seed)
	}
	if cfg.DatabasePath != "/tmp/test.db" {
		t.Errorf("got database path %s", cfg.DatabasePath)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"invalid port", "PORT", "notaport", "PORT"},
		{"privileged port", "PORT", "80", "PORT"},
		{"port out of range", "PORT", "70000", "PORT"},
		{"public address", "ADDRESS", "8.8.8.8", "ADDRESS"},
		{"bad address", "ADDRESS", "not-an-ip", "ADDRESS"},
		{"unknown env", "ENV", "production!", "ENV"},
		{"unknown log level", "LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"retention too long", "LOG_RETENTION_WEEKS", "104", "LOG_RETENTION_WEEKS"},
		{"history too short", "HISTORY_YEARS", "1", "HISTORY_YEARS"},
		{"history too long", "HISTORY_YEARS", "50", "HISTORY_YEARS"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("%s=%s accepted, want error", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %s", err, tc.want)
			}
		})
	}
}

func TestGetEnvVarsListsAllKeys(t *testing.T) {
	vars := GetEnvVars()

	for _, key := range []string{"PORT", "DATA_DIR", "MODEL_DIR", "DATABASE_PATH", "TRAIN_ON_DEMAND", "HISTORY_YEARS", "SEED"} {
		found := false
		for _, v := range vars {
			if v == key {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s missing from GetEnvVars", key)
		}
	}
}
