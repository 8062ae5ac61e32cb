// Package config assembles the device configuration in three layers:
// compiled-in defaults, environment variables, and an optional
// device-local override file that has the last word.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device      DeviceConfig
	Recognition RecognitionConfig
	Engine      EngineConfig
	Gallery     GalleryConfig
	Ledger      LedgerConfig
	Central     CentralConfig
	Provision   ProvisionConfig
	Web         WebConfig
}

type DeviceConfig struct {
	ID           string // defaults to the hostname
	OverridePath string // device-local YAML override file
}

type RecognitionConfig struct {
	DetectionThreshold   float64 // engine-side face confidence cutoff (default 0.6)
	RecognitionThreshold float64 // minimum cosine similarity for a match (default 0.70)
	VerifyFrames         int     // consecutive frames before attendance fires (default 5)
}

type EngineConfig struct {
	URL string // defaults to http://localhost:8000
}

type GalleryConfig struct {
	EmbeddingsPath string
	NamesPath      string
	UseIndex       bool // build the in-memory vector index on load
}

type LedgerConfig struct {
	Path string // SQLite file, defaults to attendance.db
}

type CentralConfig struct {
	DSN                   string // MySQL DSN of the central attendance store
	SyncBatchSize         int    // records per sync cycle (default 50)
	ConnectTimeoutSeconds int    // dial fast-fail bound (default 2)
	SyncIntervalSeconds   int    // cadence of the background sync (default 30)
}

// ConnectTimeout returns the dial bound as a duration.
func (c CentralConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// SyncInterval returns the sync cadence as a duration.
func (c CentralConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

type ProvisionConfig struct {
	URL string // PostgreSQL URL of the enrollment registry
	Dim int    // embedding dimensionality (default 512)
}

type WebConfig struct {
	Port int // local HTTP API port (default 8089)
}

// Override is the shape of the device-local override file. Only fields
// present in the file take effect; everything else keeps its
// environment or default value.
type Override struct {
	DeviceID             *string  `yaml:"device_id"`
	DetectionThreshold   *float64 `yaml:"detection_threshold"`
	RecognitionThreshold *float64 `yaml:"recognition_threshold"`
	VerifyFrames         *int     `yaml:"verify_frames"`
	EngineURL            *string  `yaml:"engine_url"`
	CentralDSN           *string  `yaml:"central_dsn"`
	SyncBatchSize        *int     `yaml:"sync_batch_size"`
	SyncIntervalSeconds  *int     `yaml:"sync_interval_seconds"`
	WebPort              *int     `yaml:"web_port"`
}

// envStr reads an environment variable, falling back to a default when
// unset or empty.
func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean ("1", "true", ...).
// Returns the default value if the env var is unset, empty, or invalid.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func defaultDeviceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown-device"
	}
	return host
}

// Load builds the configuration. It never fails: unusable values fall
// back layer by layer until the compiled-in defaults hold.
func Load() *Config {
	cfg := &Config{
		Device: DeviceConfig{
			ID:           envStr("DEVICE_ID", defaultDeviceID()),
			OverridePath: envStr("DEVICE_OVERRIDE_PATH", "device.yaml"),
		},
		Recognition: RecognitionConfig{
			DetectionThreshold:   envFloat("DETECTION_THRESHOLD", 0.6),
			RecognitionThreshold: envFloat("RECOGNITION_THRESHOLD", 0.70),
			VerifyFrames:         envInt("VERIFY_FRAMES", 5),
		},
		Engine: EngineConfig{
			URL: envStr("ENGINE_URL", "http://localhost:8000"),
		},
		Gallery: GalleryConfig{
			EmbeddingsPath: envStr("GALLERY_EMBEDDINGS_PATH", "gallery/embeddings.bin"),
			NamesPath:      envStr("GALLERY_NAMES_PATH", "gallery/names.json"),
			UseIndex:       envBool("GALLERY_USE_INDEX", false),
		},
		Ledger: LedgerConfig{
			Path: envStr("LEDGER_PATH", "attendance.db"),
		},
		Central: CentralConfig{
			DSN:                   os.Getenv("CENTRAL_DSN"),
			SyncBatchSize:         envInt("SYNC_BATCH_SIZE", 50),
			ConnectTimeoutSeconds: envInt("CENTRAL_TIMEOUT_SECONDS", 2),
			SyncIntervalSeconds:   envInt("SYNC_INTERVAL_SECONDS", 30),
		},
		Provision: ProvisionConfig{
			URL: os.Getenv("PROVISION_DATABASE_URL"),
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Web: WebConfig{
			Port: envInt("WEB_PORT", 8089),
		},
	}

	cfg.applyOverride(cfg.Device.OverridePath)
	return cfg
}

// applyOverride layers the device-local file on top of the current
// values. A missing file is the normal case for a fresh device; an
// unreadable one is logged and skipped.
func (c *Config) applyOverride(path string) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("warning: cannot read device override %s: %v", path, err)
		}
		return
	}

	var o Override
	if err := yaml.Unmarshal(data, &o); err != nil {
		log.Printf("warning: ignoring malformed device override %s: %v", path, err)
		return
	}

	if o.DeviceID != nil {
		c.Device.ID = *o.DeviceID
	}
	if o.DetectionThreshold != nil {
		c.Recognition.DetectionThreshold = *o.DetectionThreshold
	}
	if o.RecognitionThreshold != nil {
		c.Recognition.RecognitionThreshold = *o.RecognitionThreshold
	}
	if o.VerifyFrames != nil {
		c.Recognition.VerifyFrames = *o.VerifyFrames
	}
	if o.EngineURL != nil {
		c.Engine.URL = *o.EngineURL
	}
	if o.CentralDSN != nil {
		c.Central.DSN = *o.CentralDSN
	}
	if o.SyncBatchSize != nil {
		c.Central.SyncBatchSize = *o.SyncBatchSize
	}
	if o.SyncIntervalSeconds != nil {
		c.Central.SyncIntervalSeconds = *o.SyncIntervalSeconds
	}
	if o.WebPort != nil {
		c.Web.Port = *o.WebPort
	}
}
