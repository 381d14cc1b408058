package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestLoadValidConfig(t *testing.T) {
	_ = os.Setenv("PORT", "8002")
	_ = os.Setenv("ADDRESS", "127.0.0.1")
	_ = os.Setenv("ENV", "dev")
	_ = os.Setenv("LOG_LEVEL", "info")
	_ = os.Setenv("SOURCE_PATH", "matrix/compat.csv")
	_ = os.Setenv("OUTPUT_DIR", "out")
	_ = os.Setenv("REFRESH_TIMES", "05:30,17:45")
	_ = os.Setenv("WATCH_SOURCE", "true")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.SourcePath != "matrix/compat.csv" {
		t.Errorf("Expected source matrix/compat.csv, got %s", cfg.SourcePath)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("Expected output dir out, got %s", cfg.OutputDir)
	}
	if !reflect.DeepEqual(cfg.RefreshTimes, []string{"05:30", "17:45"}) {
		t.Errorf("Expected refresh times [05:30 17:45], got %v", cfg.RefreshTimes)
	}
	if !cfg.WatchSource {
		t.Error("Expected WatchSource to be true")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("Expected default log dir logs, got %s", cfg.LogDir)
	}
	if cfg.SourcePath != "data/compatibility.xlsx" {
		t.Errorf("Expected default source data/compatibility.xlsx, got %s", cfg.SourcePath)
	}
	if cfg.OutputDir != "public/data" {
		t.Errorf("Expected default output dir public/data, got %s", cfg.OutputDir)
	}
	if !reflect.DeepEqual(cfg.RefreshTimes, []string{"06:00", "18:00"}) {
		t.Errorf("Expected default refresh times, got %v", cfg.RefreshTimes)
	}
	if cfg.WatchSource {
		t.Error("Expected WatchSource to default to false")
	}
	if cfg.RulesPath != "" {
		t.Errorf("Expected no rules path by default, got %s", cfg.RulesPath)
	}
}

func TestLoadNormalizesEnvironment(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("ENV", "Production")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Expected env prod, got %s", cfg.Env)
	}
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"non numeric port", "PORT", "abc", "PORT must be a valid number"},
		{"port zero", "PORT", "0", "PORT must be between 1 and 65535"},
		{"port too high", "PORT", "65536", "PORT must be between 1 and 65535"},
		{"privileged port", "PORT", "80", "PORT 80 is privileged"},
		{"bad address", "ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"public address", "ADDRESS", "8.8.8.8", "is a public IP"},
		{"bad env", "ENV", "invalid", "ENV must be one of"},
		{"bad log level", "LOG_LEVEL", "verbose", "LOG_LEVEL must be one of"},
		{"request body too large", "MAX_REQUEST_BODY", "209715200", "too large"},
		{"negative retention", "LOG_RETENTION_WEEKS", "-1", "must be positive"},
		{"log file too small", "MAX_LOG_FILE_SIZE", "1024", "too small"},
		{"unsupported source", "SOURCE_PATH", "matrix.pdf", "SOURCE_PATH must be"},
		{"non numeric retention", "LOG_RETENTION_WEEKS", "four", "must be a valid number"},
		{"retention over a year", "LOG_RETENTION_WEEKS", "60", "too large"},
		{"bad watch flag", "WATCH_SOURCE", "sometimes", "WATCH_SOURCE must be a boolean"},
		{"bad refresh time", "REFRESH_TIMES", "25:00", "refresh time must be HH:MM"},
		{"refresh time without minutes", "REFRESH_TIMES", "06", "refresh time must be HH:MM"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cleanupEnv()
			defer cleanupEnv()
			_ = os.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestLoadErrorNamesVariable(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()
	_ = os.Setenv("MAX_HEADER_SIZE", "0")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected error for MAX_HEADER_SIZE=0, got nil")
	}
	if !strings.Contains(err.Error(), "invalid MAX_HEADER_SIZE") {
		t.Errorf("Expected error naming MAX_HEADER_SIZE, got %v", err)
	}
}

func TestAllowedAddresses(t *testing.T) {
	for _, address := range []string{"localhost", "::1", "10.0.0.5", "192.168.1.20", "0.0.0.0"} {
		t.Run(address, func(t *testing.T) {
			if err := validateAddress(address); err != nil {
				t.Errorf("Expected %s to be accepted, got %v", address, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"06:00;18:00", []string{"06:00", "18:00"}},
		{"06:00, 18:00", []string{"06:00", "18:00"}},
		{" ; ;", []string{}},
		{"12:00", []string{"12:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := splitList(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"test", EnvTest, false},
		{" TEST ", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for %s: %v", tt.input, err)
				}
				if env != tt.expected {
					t.Errorf("Expected %v, got %v", tt.expected, env)
				}
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func TestGetEnvVarsCoversConfig(t *testing.T) {
	vars := GetEnvVars()
	for _, key := range []string{"SOURCE_PATH", "OUTPUT_DIR", "RULES_PATH", "REFRESH_TIMES", "WATCH_SOURCE"} {
		found := false
		for _, v := range vars {
			if v == key {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %s in GetEnvVars", key)
		}
	}
}

func cleanupEnv() {
	for _, key := range GetEnvVars() {
		_ = os.Unsetenv(key)
	}
}
