package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // "./modlint.db"
	} `yaml:"database"`

	Corpus struct {
		Sources []string `yaml:"sources"` // ["./Modules/Native/ModuleData"]
		Include []string `yaml:"include"` // doublestar globs, relative to the root
		Exclude []string `yaml:"exclude"`
		Workers int      `yaml:"workers"` // 0 = GOMAXPROCS
	} `yaml:"corpus"`

	Rules struct {
		SeverityThreshold string            `yaml:"severity_threshold"` // INFO|WARNING|ERROR
		Disabled          []string          `yaml:"disabled"`
		Packs             []string          `yaml:"packs"`      // YAML rule packs
		Categories        map[string]string `yaml:"categories"` // base id -> rule category
	} `yaml:"rules"`

	Reporting struct {
		OutDir  string   `yaml:"out_dir"` // "./reports"
		Formats []string `yaml:"formats"` // json|html|dot
	} `yaml:"reporting"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`

	API struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		SessionHours   int      `yaml:"session_hours"`
	} `yaml:"api"`

	Watch struct {
		DebounceMS int `yaml:"debounce_ms"`
	} `yaml:"watch"`

	Cache struct {
		Contexts int `yaml:"contexts"` // cached module states for single-file checks
	} `yaml:"cache"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Database.DSN = "./modlint.db"
	c.Corpus.Include = []string{"**/*.xml"}
	c.Rules.SeverityThreshold = "INFO"
	c.Reporting.OutDir = "./reports"
	c.Reporting.Formats = []string{"json", "html"}
	c.Logging.Format = "json"
	c.Logging.Level = "info"
	c.API.Addr = ":8080"
	c.API.SessionHours = 12
	c.Watch.DebounceMS = 500
	c.Cache.Contexts = 8
	return c
}

// LoadConfig reads path over the defaults and applies MODLINT_* overrides.
// A missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	applyEnv(&c)
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("MODLINT_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("MODLINT_SOURCES"); v != "" {
		c.Corpus.Sources = splitList(v)
	}
	if v := os.Getenv("MODLINT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Corpus.Workers = n
		}
	}
	if v := os.Getenv("MODLINT_SEVERITY_THRESHOLD"); v != "" {
		c.Rules.SeverityThreshold = strings.ToUpper(v)
	}
	if v := os.Getenv("MODLINT_DISABLED_RULES"); v != "" {
		c.Rules.Disabled = splitList(v)
	}
	if v := os.Getenv("MODLINT_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MODLINT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MODLINT_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("MODLINT_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := os.Getenv("MODLINT_ALLOWED_ORIGINS"); v != "" {
		c.API.AllowedOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
