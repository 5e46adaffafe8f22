package model

import "time"

// Config holds the complete tabfind configuration
type Config struct {
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	Heuristic HeuristicConfig `yaml:"heuristic" mapstructure:"heuristic"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Contact   ContactConfig   `yaml:"contact" mapstructure:"contact"`
	Summary   SummaryConfig   `yaml:"summary" mapstructure:"summary"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// SourceConfig locates the published TSV document
type SourceConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Columns []int  `yaml:"columns" mapstructure:"columns"` // Spreadsheet positions to expose (A=0)
}

// QueryConfig controls pagination and filter presentation
type QueryConfig struct {
	PageSize   int    `yaml:"page_size" mapstructure:"page_size"`
	MaxFilters int    `yaml:"max_filters" mapstructure:"max_filters"`
	Locale     string `yaml:"locale" mapstructure:"locale"` // BCP 47 tag for filter value ordering
}

// HeuristicConfig holds the thresholds used to pick categorical filters
type HeuristicConfig struct {
	MinFilled         int     `yaml:"min_filled" mapstructure:"min_filled"`
	MinFillRatio      float64 `yaml:"min_fill_ratio" mapstructure:"min_fill_ratio"`
	MaxUnique         int     `yaml:"max_unique" mapstructure:"max_unique"`
	TruncateLen       int     `yaml:"truncate_len" mapstructure:"truncate_len"`
	FillWeight        float64 `yaml:"fill_weight" mapstructure:"fill_weight"`
	CardinalityWeight float64 `yaml:"cardinality_weight" mapstructure:"cardinality_weight"`
}

// CacheConfig controls the raw document cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend string        `yaml:"backend" mapstructure:"backend"` // layered, memory, disk, sqlite
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Key     string        `yaml:"key" mapstructure:"key"` // Overrides the key derived from the source URL
}

// ContactConfig controls contact detection
type ContactConfig struct {
	Key    string `yaml:"key" mapstructure:"key"`       // Exact header label holding the contact value
	Region string `yaml:"region" mapstructure:"region"` // Phone canonicalization region
}

// SummaryConfig controls the copyable record summary
type SummaryConfig struct {
	Keys      []string `yaml:"keys" mapstructure:"keys"`
	MaxFields int      `yaml:"max_fields" mapstructure:"max_fields"`
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy         string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	Retries           int           `yaml:"retries" mapstructure:"retries"`
}

// ServerConfig holds the JSON API listener configuration
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// DefaultColumns returns spreadsheet columns A through K plus AC
func DefaultColumns() []int {
	cols := make([]int, 0, 12)
	for i := 0; i <= 10; i++ {
		cols = append(cols, i)
	}
	return append(cols, 28)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Columns: DefaultColumns(),
		},
		Query: QueryConfig{
			PageSize:   25,
			MaxFilters: 6,
			Locale:     "es",
		},
		Heuristic: HeuristicConfig{
			MinFilled:         10,
			MinFillRatio:      0.25,
			MaxUnique:         40,
			TruncateLen:       80,
			FillWeight:        10,
			CardinalityWeight: 0.12,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "layered",
			TTL:     10 * time.Minute,
		},
		Contact: ContactConfig{
			Region: "CO",
		},
		Summary: SummaryConfig{
			MaxFields: 6,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "tabfind/0.1 (+https://github.com/ppiankov/tabfind)",
			MaxBodyBytes:      20_000_000,
			RequestsPerSecond: 2,
			Burst:             2,
			Retries:           3,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
