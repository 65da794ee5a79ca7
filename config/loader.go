package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path (if any) over Defaults, then applies
// ASKBOOK_* environment overrides. The result has not been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "ASKBOOK_LOG_LEVEL")
	setStr(&cfg.LogFormat, "ASKBOOK_LOG_FORMAT")

	// ── Input ──
	setStr(&cfg.Input.Transport, "ASKBOOK_INPUT_TRANSPORT")
	setStr(&cfg.Input.Path, "ASKBOOK_INPUT_PATH")
	setBool(&cfg.Input.SkipInvalid, "ASKBOOK_INPUT_SKIP_INVALID")

	// ── Book ──
	setInt(&cfg.Book.InitialCapacity, "ASKBOOK_BOOK_INITIAL_CAPACITY")
	setInt64(&cfg.Book.FinalBuy, "ASKBOOK_BOOK_FINAL_BUY")

	// ── Journal ──
	setBool(&cfg.Journal.Enabled, "ASKBOOK_JOURNAL_ENABLED")
	setStr(&cfg.Journal.Dir, "ASKBOOK_JOURNAL_DIR")
	setInt64(&cfg.Journal.SegmentSize, "ASKBOOK_JOURNAL_SEGMENT_SIZE")

	// ── Outbox ──
	setBool(&cfg.Outbox.Enabled, "ASKBOOK_OUTBOX_ENABLED")
	setStr(&cfg.Outbox.Dir, "ASKBOOK_OUTBOX_DIR")
	setStr(&cfg.Outbox.Codec, "ASKBOOK_OUTBOX_CODEC")
	setBool(&cfg.Outbox.Durable, "ASKBOOK_OUTBOX_DURABLE")

	// ── Publish ──
	setBool(&cfg.Publish.Enabled, "ASKBOOK_PUBLISH_ENABLED")
	setStr(&cfg.Publish.Driver, "ASKBOOK_PUBLISH_DRIVER")
	setStringSlice(&cfg.Publish.Brokers, "ASKBOOK_PUBLISH_BROKERS")
	setStr(&cfg.Publish.Topic, "ASKBOOK_PUBLISH_TOPIC")
	setDuration(&cfg.Publish.Interval, "ASKBOOK_PUBLISH_INTERVAL")
	setInt(&cfg.Publish.MaxRetries, "ASKBOOK_PUBLISH_MAX_RETRIES")

	// ── Metrics ──
	setStr(&cfg.Metrics.Textfile, "ASKBOOK_METRICS_TEXTFILE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
