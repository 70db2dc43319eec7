package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config stores runtime configuration for the ingestion job and query server.
type Config struct {
	AppEnv         string `validate:"oneof=dev stage prod"`
	ServiceName    string `validate:"required"`
	ServiceVersion string
	LogLevel       logging.Level
	LogFormat      string `validate:"oneof=json console"`

	DBDriver string `validate:"oneof=sqlite postgres"`
	DBPath   string `validate:"required_if=DBDriver sqlite"`
	DBURL    string `validate:"required_if=DBDriver postgres"`

	CricbuzzBaseURL             string `validate:"required,url"`
	CricbuzzAPIHost             string `validate:"required"`
	CricbuzzAPIKey              string
	CricbuzzTimeout             time.Duration `validate:"gt=0"`
	CricbuzzCircuitEnabled      bool
	CricbuzzCircuitFailureCount int           `validate:"gte=1"`
	CricbuzzCircuitOpenTimeout  time.Duration `validate:"gt=0"`
	CricbuzzCircuitHalfOpenMax  int           `validate:"gte=1"`

	IngestMinInterval       time.Duration `validate:"gte=0"`
	IngestMaxAttempts       int           `validate:"gte=1,lte=10"`
	IngestDiscover          bool
	IngestSyncTeams         bool
	IngestFetchRosters      bool
	IngestRefreshIncomplete bool
	IngestArchiveRaw        bool
	ReplayWorkers           int `validate:"gte=1,lte=64"`

	QueryHTTPAddr     string `validate:"required"`
	QueryMaxRows      int    `validate:"gte=1"`
	QueryReadTimeout  time.Duration
	QueryWriteTimeout time.Duration
	CacheEnabled      bool
	CacheTTL          time.Duration
	CacheMaxEntries   int `validate:"gte=1"`

	UptraceEnabled             bool
	UptraceDSN                 string `validate:"required_if=UptraceEnabled true"`
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string `validate:"required_if=PyroscopeEnabled true"`
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	driver := strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", DriverSQLite)))

	cricbuzzTimeout, err := time.ParseDuration(getEnv("CRICBUZZ_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICBUZZ_TIMEOUT: %w", err)
	}
	circuitEnabled, err := strconv.ParseBool(getEnv("CRICBUZZ_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICBUZZ_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailureCount, err := getEnvAsInt("CRICBUZZ_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICBUZZ_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("CRICBUZZ_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICBUZZ_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	circuitHalfOpenMax, err := getEnvAsInt("CRICBUZZ_CIRCUIT_HALF_OPEN_MAX_REQ", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse CRICBUZZ_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	minInterval, err := time.ParseDuration(getEnv("INGEST_MIN_INTERVAL", "1s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_MIN_INTERVAL: %w", err)
	}
	maxAttempts, err := getEnvAsInt("INGEST_MAX_ATTEMPTS", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse INGEST_MAX_ATTEMPTS: %w", err)
	}
	discover, err := getEnvAsBool("INGEST_DISCOVER", true)
	if err != nil {
		return Config{}, err
	}
	syncTeams, err := getEnvAsBool("INGEST_SYNC_TEAMS", false)
	if err != nil {
		return Config{}, err
	}
	fetchRosters, err := getEnvAsBool("INGEST_FETCH_ROSTERS", false)
	if err != nil {
		return Config{}, err
	}
	refreshIncomplete, err := getEnvAsBool("INGEST_REFRESH_INCOMPLETE", false)
	if err != nil {
		return Config{}, err
	}
	archiveRaw, err := getEnvAsBool("INGEST_ARCHIVE_RAW", true)
	if err != nil {
		return Config{}, err
	}
	replayWorkers, err := getEnvAsInt("REPLAY_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse REPLAY_WORKERS: %w", err)
	}

	queryMaxRows, err := getEnvAsInt("QUERY_MAX_ROWS", 5000)
	if err != nil {
		return Config{}, fmt.Errorf("parse QUERY_MAX_ROWS: %w", err)
	}
	readTimeout, err := time.ParseDuration(getEnv("QUERY_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse QUERY_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("QUERY_WRITE_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse QUERY_WRITE_TIMEOUT: %w", err)
	}
	cacheEnabled, err := getEnvAsBool("CACHE_ENABLED", true)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	cacheMaxEntries, err := getEnvAsInt("CACHE_MAX_ENTRIES", 1024)
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_MAX_ENTRIES: %w", err)
	}

	uptraceEnabled, err := getEnvAsBool("UPTRACE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	pyroscopeEnabled, err := getEnvAsBool("PYROSCOPE_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}

	serviceName := getEnv("APP_SERVICE_NAME", "cricket-ingest")
	cfg := Config{
		AppEnv:                      appEnv,
		ServiceName:                 serviceName,
		ServiceVersion:              getEnv("APP_SERVICE_VERSION", "dev"),
		LogLevel:                    logging.ParseLevel(getEnv("APP_LOG_LEVEL", "info")),
		LogFormat:                   logging.ParseFormat(getEnv("APP_LOG_FORMAT", logging.FormatJSON)),
		DBDriver:                    driver,
		DBPath:                      strings.TrimSpace(getEnv("DB_PATH", "cricket_matches.db")),
		DBURL:                       strings.TrimSpace(getEnv("DB_URL", "")),
		CricbuzzBaseURL:             strings.TrimRight(strings.TrimSpace(getEnv("CRICBUZZ_BASE_URL", "https://cricbuzz-cricket.p.rapidapi.com")), "/"),
		CricbuzzAPIHost:             strings.TrimSpace(getEnv("CRICBUZZ_API_HOST", "cricbuzz-cricket.p.rapidapi.com")),
		CricbuzzAPIKey:              strings.TrimSpace(getEnv("CRICBUZZ_API_KEY", "")),
		CricbuzzTimeout:             cricbuzzTimeout,
		CricbuzzCircuitEnabled:      circuitEnabled,
		CricbuzzCircuitFailureCount: circuitFailureCount,
		CricbuzzCircuitOpenTimeout:  circuitOpenTimeout,
		CricbuzzCircuitHalfOpenMax:  circuitHalfOpenMax,
		IngestMinInterval:           minInterval,
		IngestMaxAttempts:           maxAttempts,
		IngestDiscover:              discover,
		IngestSyncTeams:             syncTeams,
		IngestFetchRosters:          fetchRosters,
		IngestRefreshIncomplete:     refreshIncomplete,
		IngestArchiveRaw:            archiveRaw,
		ReplayWorkers:               replayWorkers,
		QueryHTTPAddr:               getEnv("QUERY_HTTP_ADDR", ":8090"),
		QueryMaxRows:                queryMaxRows,
		QueryReadTimeout:            readTimeout,
		QueryWriteTimeout:           writeTimeout,
		CacheEnabled:                cacheEnabled,
		CacheTTL:                    cacheTTL,
		CacheMaxEntries:             cacheMaxEntries,
		UptraceEnabled:              uptraceEnabled,
		UptraceDSN:                  uptraceDSN,
		PyroscopeEnabled:            pyroscopeEnabled,
		PyroscopeServerAddress:      strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", "")),
		PyroscopeAppName:            strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", serviceName)),
		PyroscopeAuthToken:          strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:      strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword:  strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:         pyroscopeUploadRate,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// RequireAPIKey reports a missing provider key. Only commands that call the
// provider need one.
func (c Config) RequireAPIKey() error {
	if c.CricbuzzAPIKey == "" {
		return fmt.Errorf("CRICBUZZ_API_KEY is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	return strconv.Atoi(value)
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	for _, item := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
