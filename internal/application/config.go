package application

import (
	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/sinks"
	"elecharvest/lib/configutil"
	configlibsql "elecharvest/lib/configutil/libsql"
)

type SessionConfig struct {
	// CookiesFile is a json object of cookie name to value, exported from a browser that
	// has passed the gateway login.
	CookiesFile string            `json:"cookies_file" yaml:"cookies_file"`
	Cookies     elecweb.CookieSet `json:"cookies" yaml:"cookies"`

	TimeoutSeconds    int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	MimicBrowser      bool    `json:"mimic_browser" yaml:"mimic_browser"`
	Insecure          bool    `json:"insecure" yaml:"insecure"`
	// DumpDir receives every http exchange when set, `<dev_state>` is expanded.
	DumpDir string `json:"dump_dir" yaml:"dump_dir"`
}

type HarvestConfig struct {
	BaseUrl string               `json:"base_url" yaml:"base_url"`
	Pinned  elecweb.PinnedFields `json:"pinned" yaml:"pinned"`
	// DisablePins posts the resolved values for every level.
	DisablePins      bool `json:"disable_pins" yaml:"disable_pins"`
	MaxPagesPerMonth int  `json:"max_pages_per_month" yaml:"max_pages_per_month"`
	// UsageColumn is left nil by DefaultConfig so that an explicit 0 is not replaced
	// when the file is merged with the defaults, nil means elecweb.DefaultUsageColumn.
	UsageColumn *int `json:"usage_column" yaml:"usage_column"`
	KeepPartial bool `json:"keep_partial" yaml:"keep_partial"`
}

type ServerConfig struct {
	Port        int    `json:"port" yaml:"port"`
	AccessToken string `json:"access_token" yaml:"access_token"`
	// Schedule is a five field cron spec (Asia/Shanghai) for harvesting the previous and
	// current month, empty disables scheduled harvests.
	Schedule string `json:"schedule" yaml:"schedule"`
}

type Config struct {
	Selection elecweb.Selection   `json:"selection" yaml:"selection"`
	Session   SessionConfig       `json:"session" yaml:"session"`
	Harvest   HarvestConfig       `json:"harvest" yaml:"harvest"`
	Database  configlibsql.Struct `json:"database" yaml:"database"`
	Email     *sinks.EmailConfig  `json:"email" yaml:"email"`
	// WorkbookDir enables xlsx export of every harvest into this directory.
	WorkbookDir string       `json:"workbook_dir" yaml:"workbook_dir"`
	Server      ServerConfig `json:"server" yaml:"server"`
}

func DefaultConfig() Config {
	harvest := elecweb.DefaultConfig()
	return Config{
		Session: SessionConfig{
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
		},
		Harvest: HarvestConfig{
			BaseUrl:          harvest.BaseUrl,
			Pinned:           harvest.Pinned,
			MaxPagesPerMonth: harvest.MaxPagesPerMonth,
		},
		Database: configlibsql.Struct{
			File: "<dev_state>/elec.db",
		},
		Server: ServerConfig{
			Port: 8000,
		},
	}
}

// LoadConfig reads `name` (and its .local override) on top of DefaultConfig.
func LoadConfig(name string) (Config, error) {
	return configutil.ReadConfigWithDefaults(name, DefaultConfig())
}

// HarvesterConfig converts the file representation into the harvester's.
func (c HarvestConfig) HarvesterConfig() elecweb.Config {
	cfg := elecweb.Config{
		BaseUrl:          c.BaseUrl,
		Pinned:           c.Pinned,
		MaxPagesPerMonth: c.MaxPagesPerMonth,
		UsageColumn:      elecweb.DefaultUsageColumn,
		Partial:          elecweb.DISCARD_PARTIAL,
	}
	if c.UsageColumn != nil {
		cfg.UsageColumn = *c.UsageColumn
	}
	if c.DisablePins {
		cfg.Pinned = elecweb.PinnedFields{}
	}
	if c.KeepPartial {
		cfg.Partial = elecweb.KEEP_PARTIAL
	}
	return cfg
}
