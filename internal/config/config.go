package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreSQLite     = "sqlite"
	StorePostgres   = "postgres"
	StoreClickHouse = "clickhouse"
	StoreMemory     = "memory"
)

// Source modes.
const (
	SourceLive   = "live"
	SourceReplay = "replay"
)

// Archive drivers.
const (
	ArchiveNone = "none"
	ArchiveFS   = "fs"
	ArchiveS3   = "s3"
)

var prefectureCode = regexp.MustCompile(`^[0-9]{6}$`)

// Config holds all service settings, populated from environment variables.
type Config struct {
	JMABaseURL    string
	JMATimeout    time.Duration
	JMAMaxRetries int
	JMACacheSize  int

	Prefectures []string
	SitesFile   string
	Sites       *Registry

	StoreDriver string
	StoreDSN    string

	SourceMode         string
	ArchiveDriver      string
	ArchiveDir         string
	ArchiveS3Bucket    string
	ArchiveS3Region    string
	ArchiveS3Endpoint  string
	ArchiveS3PathStyle bool

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	APICORSOrigins  []string
	RunInterval     time.Duration
	MasterInterval  time.Duration
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first when present;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	jmaTimeout, err := parsePositiveDuration("JMA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parsePositiveDuration("RUN_INTERVAL", "1h")
	if err != nil {
		return nil, err
	}
	masterInterval, err := parsePositiveDuration("MASTER_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}
	maxRetries, err := parseNonNegativeInt("JMA_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseNonNegativeInt("JMA_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		JMABaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("JMA_BASE_URL", "https://www.jma.go.jp/bosai"), "/"),
		JMATimeout:    jmaTimeout,
		JMAMaxRetries: maxRetries,
		JMACacheSize:  cacheSize,

		SitesFile: os.Getenv("SITES_FILE"),

		StoreDriver: sharedcfg.EnvOrDefault("STORE_DRIVER", StoreSQLite),
		StoreDSN:    sharedcfg.EnvOrDefault("STORE_DSN", "jma.db"),

		SourceMode:         sharedcfg.EnvOrDefault("SOURCE_MODE", SourceLive),
		ArchiveDriver:      sharedcfg.EnvOrDefault("ARCHIVE_DRIVER", ArchiveNone),
		ArchiveDir:         sharedcfg.EnvOrDefault("ARCHIVE_DIR", "archive"),
		ArchiveS3Bucket:    os.Getenv("ARCHIVE_S3_BUCKET"),
		ArchiveS3Region:    sharedcfg.EnvOrDefault("ARCHIVE_S3_REGION", "ap-northeast-1"),
		ArchiveS3Endpoint:  os.Getenv("ARCHIVE_S3_ENDPOINT"),
		ArchiveS3PathStyle: os.Getenv("ARCHIVE_S3_PATH_STYLE") == "true",

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "jma-weather-records"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		APICORSOrigins:  splitList(os.Getenv("API_CORS_ORIGINS")),
		RunInterval:     runInterval,
		MasterInterval:  masterInterval,
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	prefectures := splitList(os.Getenv("PREFECTURES"))
	if cfg.SitesFile != "" {
		reg, err := LoadRegistry(cfg.SitesFile)
		if err != nil {
			return nil, err
		}
		cfg.Sites = reg
		prefectures = append(prefectures, reg.Prefectures()...)
	}
	cfg.Prefectures = dedupe(prefectures)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for _, p := range c.Prefectures {
		if !prefectureCode.MatchString(p) {
			return fmt.Errorf("invalid prefecture code %q: want 6 digits", p)
		}
	}
	switch c.StoreDriver {
	case StoreSQLite, StorePostgres, StoreClickHouse, StoreMemory:
	default:
		return errors.New("invalid STORE_DRIVER")
	}
	if c.StoreDriver != StoreMemory && c.StoreDSN == "" {
		return errors.New("STORE_DSN is required")
	}
	switch c.ArchiveDriver {
	case ArchiveNone, ArchiveFS, ArchiveS3:
	default:
		return errors.New("invalid ARCHIVE_DRIVER")
	}
	if c.ArchiveDriver == ArchiveS3 && c.ArchiveS3Bucket == "" {
		return errors.New("ARCHIVE_DRIVER is s3 but ARCHIVE_S3_BUCKET is not set")
	}
	switch c.SourceMode {
	case SourceLive:
	case SourceReplay:
		if c.ArchiveDriver == ArchiveNone {
			return errors.New("SOURCE_MODE is replay but ARCHIVE_DRIVER is none")
		}
	default:
		return errors.New("invalid SOURCE_MODE")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// RequirePrefectures returns an error when no prefecture is configured. The
// master pipeline runs without prefectures; forecast and warning runs do not.
func (c *Config) RequirePrefectures() error {
	if len(c.Prefectures) == 0 {
		return errors.New("no prefectures configured: set PREFECTURES or SITES_FILE")
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
