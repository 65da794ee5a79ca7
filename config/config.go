package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the top-level askbook configuration.
type Config struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Input   InputConfig   `toml:"input"`
	Book    BookConfig    `toml:"book"`
	Journal JournalConfig `toml:"journal"`
	Outbox  OutboxConfig  `toml:"outbox"`
	Publish PublishConfig `toml:"publish"`
	Metrics MetricsConfig `toml:"metrics"`
}

// InputConfig selects where commands come from.
type InputConfig struct {
	Transport   string `toml:"transport"` // stdin | file | mmap | journal
	Path        string `toml:"path"`
	SkipInvalid bool   `toml:"skip_invalid"`
}

type BookConfig struct {
	InitialCapacity int   `toml:"initial_capacity"`
	FinalBuy        int64 `toml:"final_buy"`
}

// JournalConfig controls the binary command journal.
type JournalConfig struct {
	Enabled     bool   `toml:"enabled"`
	Dir         string `toml:"dir"`
	SegmentSize int64  `toml:"segment_size"`
}

// OutboxConfig controls the on-disk fill outbox.
type OutboxConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Codec   string `toml:"codec"` // json | proto
	Durable bool   `toml:"durable"`
}

// PublishConfig controls relaying the outbox to Kafka.
type PublishConfig struct {
	Enabled    bool     `toml:"enabled"`
	Driver     string   `toml:"driver"` // kafka-go | sarama
	Brokers    []string `toml:"brokers"`
	Topic      string   `toml:"topic"`
	Interval   duration `toml:"interval"`
	MaxRetries int      `toml:"max_retries"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "250ms").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the built-in values.
func Defaults() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Input: InputConfig{
			Transport: "stdin",
		},
		Book: BookConfig{
			InitialCapacity: 1 << 16,
			FinalBuy:        1000,
		},
		Journal: JournalConfig{
			Dir:         "./journal",
			SegmentSize: 64 << 20,
		},
		Outbox: OutboxConfig{
			Dir:   "./outbox",
			Codec: "json",
		},
		Publish: PublishConfig{
			Driver:     "kafka-go",
			Brokers:    []string{"localhost:9092"},
			Topic:      "askbook.fills",
			Interval:   duration{250 * time.Millisecond},
			MaxRetries: 5,
		},
	}
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
	validTransports = map[string]bool{"stdin": true, "file": true, "mmap": true, "journal": true}
	validCodecs     = map[string]bool{"json": true, "proto": true}
	validDrivers    = map[string]bool{"kafka-go": true, "sarama": true}
)

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		errs = append(errs, fmt.Sprintf("unknown log_format %q (valid: text, json)", c.LogFormat))
	}

	// Input
	if !validTransports[c.Input.Transport] {
		errs = append(errs, fmt.Sprintf("input: unknown transport %q (valid: stdin, file, mmap, journal)", c.Input.Transport))
	}
	if c.Input.Transport != "stdin" && c.Input.Path == "" {
		errs = append(errs, "input: path is required for transport "+c.Input.Transport)
	}

	// Book
	if c.Book.InitialCapacity < 0 {
		errs = append(errs, "book: initial_capacity must not be negative")
	}
	if c.Book.FinalBuy < 0 {
		errs = append(errs, "book: final_buy must not be negative")
	}

	// Journal
	if c.Journal.Enabled {
		if c.Journal.Dir == "" {
			errs = append(errs, "journal: dir must not be empty")
		}
		if c.Journal.SegmentSize <= 0 {
			errs = append(errs, "journal: segment_size must be positive")
		}
		if c.Input.Transport == "journal" && c.Input.Path == c.Journal.Dir {
			errs = append(errs, "journal: dir must differ from the journal being replayed")
		}
	}

	// Outbox
	if c.Outbox.Enabled {
		if c.Outbox.Dir == "" {
			errs = append(errs, "outbox: dir must not be empty")
		}
		if !validCodecs[c.Outbox.Codec] {
			errs = append(errs, fmt.Sprintf("outbox: unknown codec %q (valid: json, proto)", c.Outbox.Codec))
		}
	}

	// Publish
	if c.Publish.Enabled {
		if !c.Outbox.Enabled {
			errs = append(errs, "publish: requires outbox.enabled")
		}
		if !validDrivers[c.Publish.Driver] {
			errs = append(errs, fmt.Sprintf("publish: unknown driver %q (valid: kafka-go, sarama)", c.Publish.Driver))
		}
		if len(c.Publish.Brokers) == 0 {
			errs = append(errs, "publish: at least one broker is required")
		}
		if c.Publish.Topic == "" {
			errs = append(errs, "publish: topic must not be empty")
		}
		if c.Publish.Interval.Duration <= 0 {
			errs = append(errs, "publish: interval must be positive")
		}
		if c.Publish.MaxRetries <= 0 {
			errs = append(errs, "publish: max_retries must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
