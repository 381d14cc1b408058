// Package config loads the service configuration from environment variables
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Environment is the deployment environment the process runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

var validEnvs = []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}

// ParseEnvironment maps an ENV value, long forms included, to an Environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, value)
}

func (e Environment) String() string {
	return string(e)
}

const (
	mb = 1024 * 1024
	gb = 1024 * mb
)

var (
	refreshTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	logLevels          = []string{"debug", "info", "warn", "warning", "error"}
	sourceExtensions   = []string{".xlsx", ".xlsm", ".csv", ".tsv", ".txt"}
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int
	MaxLogFileSize    int64 // bytes
	MaxRequestBody    int64 // bytes
	MaxHeaderSize     int64 // bytes

	SourcePath     string // spreadsheet export to ingest
	SourceSheet    string // empty selects the first worksheet
	OutputDir      string // index.json and compatibility.json land here
	RulesPath      string // empty uses the built-in ruleset
	DatasetVersion string
	RefreshTimes   []string // HH:MM
	WatchSource    bool
}

// setting binds one environment variable to a Config field. apply parses
// and validates the raw value, which is already defaulted.
type setting struct {
	key   string
	def   string
	apply func(cfg *Config, value string) error
}

var settings = []setting{
	{"PORT", "8000", func(c *Config, v string) error {
		c.Port = v
		return validatePort(v)
	}},
	{"ADDRESS", "127.0.0.1", func(c *Config, v string) error {
		c.Address = v
		return validateAddress(v)
	}},
	{"ENV", string(EnvDevelopment), func(c *Config, v string) (err error) {
		c.Env, err = ParseEnvironment(v)
		return err
	}},
	{"LOG_LEVEL", "info", func(c *Config, v string) error {
		c.LogLevel = strings.ToLower(v)
		if !slices.Contains(logLevels, c.LogLevel) {
			return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", logLevels, v)
		}
		return nil
	}},
	{"LOG_DIR", "logs", func(c *Config, v string) error {
		c.LogDir = v
		return nil
	}},
	{"LOG_RETENTION_WEEKS", "4", func(c *Config, v string) error {
		weeks, err := parseInt("LOG_RETENTION_WEEKS", v, 1, 52)
		c.LogRetentionWeeks = int(weeks)
		return err
	}},
	{"MAX_LOG_FILE_SIZE", strconv.Itoa(100 * mb), func(c *Config, v string) (err error) {
		c.MaxLogFileSize, err = parseInt("MAX_LOG_FILE_SIZE", v, mb, gb)
		return err
	}},
	{"MAX_REQUEST_BODY", strconv.Itoa(mb), func(c *Config, v string) (err error) {
		c.MaxRequestBody, err = parseInt("MAX_REQUEST_BODY", v, 1, 100*mb)
		return err
	}},
	{"MAX_HEADER_SIZE", strconv.Itoa(mb), func(c *Config, v string) (err error) {
		c.MaxHeaderSize, err = parseInt("MAX_HEADER_SIZE", v, 1, 100*mb)
		return err
	}},
	{"SOURCE_PATH", "data/compatibility.xlsx", func(c *Config, v string) error {
		c.SourcePath = v
		return validateSourcePath(v)
	}},
	{"SOURCE_SHEET", "", func(c *Config, v string) error {
		c.SourceSheet = v
		return nil
	}},
	{"OUTPUT_DIR", "public/data", func(c *Config, v string) error {
		c.OutputDir = v
		return nil
	}},
	{"RULES_PATH", "", func(c *Config, v string) error {
		c.RulesPath = v
		return nil
	}},
	{"DATASET_VERSION", "2.0.0", func(c *Config, v string) error {
		c.DatasetVersion = v
		return nil
	}},
	{"REFRESH_TIMES", "06:00;18:00", func(c *Config, v string) error {
		c.RefreshTimes = splitList(v)
		return validateRefreshTimes(c.RefreshTimes)
	}},
	{"WATCH_SOURCE", "false", func(c *Config, v string) (err error) {
		c.WatchSource, err = strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WATCH_SOURCE must be a boolean, got: %s", v)
		}
		return nil
	}},
}

// Load reads every setting from the environment, falling back to defaults
// for unset variables, and fails on the first invalid value.
func Load() (*Config, error) {
	cfg := &Config{}
	for _, s := range settings {
		value := strings.TrimSpace(os.Getenv(s.key))
		if value == "" {
			value = s.def
		}
		if err := s.apply(cfg, value); err != nil {
			return nil, fmt.Errorf("configuration validation failed: invalid %s: %w", s.key, err)
		}
	}
	return cfg, nil
}

func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}
	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}
	return nil
}

// validateAddress accepts localhost and loopback, private or unspecified IPs.
func validateAddress(address string) error {
	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}
	return nil
}

func parseInt(key, value string, lo, hi int64) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number, got: %s", key, value)
	}
	switch {
	case n <= 0:
		return n, fmt.Errorf("%s must be positive, got: %d", key, n)
	case n < lo:
		return n, fmt.Errorf("%s is too small (min %d), got: %d", key, lo, n)
	case n > hi:
		return n, fmt.Errorf("%s is too large (max %d), got: %d", key, hi, n)
	}
	return n, nil
}

// validateSourcePath checks the extension only; the file may appear later
// and is opened on every run.
func validateSourcePath(path string) error {
	if slices.Contains(sourceExtensions, strings.ToLower(filepath.Ext(path))) {
		return nil
	}
	return fmt.Errorf("SOURCE_PATH must be a .xlsx, .csv, .tsv or .txt file, got: %s", path)
}

func validateRefreshTimes(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("REFRESH_TIMES cannot be empty")
	}
	for _, t := range times {
		if !refreshTimePattern.MatchString(t) {
			return fmt.Errorf("refresh time must be HH:MM, got: %s", t)
		}
	}
	return nil
}

// splitList splits a ; or , separated list and drops blanks
func splitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ';' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// GetEnvVars returns every environment variable Load reads
func GetEnvVars() []string {
	keys := make([]string, len(settings))
	for i, s := range settings {
		keys[i] = s.key
	}
	return keys
}
