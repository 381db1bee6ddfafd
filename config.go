package varframe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

// Config collects the tunables of a stream reader as they appear in a TOML file.
type Config struct {
	URL           string `toml:"url"`
	UserAgent     string `toml:"user_agent"`
	Capacity      int    `toml:"capacity"`
	ChunkSize     int    `toml:"chunk_size"`
	MaxPooledSize int    `toml:"max_pooled_size"`
	SkipInvalid   bool   `toml:"skip_invalid"`
	LogLevel      string `toml:"log_level"`
	MetricsAddr   string `toml:"metrics_addr"`
}

func DefaultConfig() Config {
	return Config{
		UserAgent:     DEFAULT_USER_AGENT,
		Capacity:      DEFAULT_CAPACITY,
		ChunkSize:     CHUNK_SIZE,
		MaxPooledSize: MAX_POOLED_SIZE,
		LogLevel:      "info",
	}
}

// LoadConfig reads a TOML file over DefaultConfig. Keys the file leaves out
// keep their defaults; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("varframe: load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("varframe: load config: unknown keys: %s", strings.Join(keys, ", "))
	}
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidCapacity, c.Capacity)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.MaxPooledSize < 0 {
		return fmt.Errorf("varframe: max_pooled_size %d is negative", c.MaxPooledSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level means info.
func (c Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("varframe: log_level: %w", err)
	}
	return lvl, nil
}

// NewPool builds a Pool sized by the config.
func (c Config) NewPool(opts ...PoolOption) *Pool {
	return NewPool(append([]PoolOption{WithMaxPooledSize(c.MaxPooledSize)}, opts...)...)
}

func (c Config) PipelineOptions() []Option {
	return []Option{WithCapacity(c.Capacity)}
}

func (c Config) SourceOptions() []SourceOption {
	return []SourceOption{WithChunkSize(c.ChunkSize)}
}

func (c Config) HTTPOptions() []HTTPOption {
	return []HTTPOption{WithUserAgent(c.UserAgent), WithHTTPSourceOptions(c.SourceOptions()...)}
}
