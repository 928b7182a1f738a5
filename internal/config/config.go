package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StrategyPaginated = "paginated"
	StrategyBulkCSV   = "bulk_csv"
)

type Supplier struct {
	BaseURL     string        `yaml:"base_url"`
	Email       string        `yaml:"email"`
	Password    string        `yaml:"password"`
	TokenFile   string        `yaml:"token_file"`
	TokenMargin time.Duration `yaml:"token_margin"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	Timeout     time.Duration `yaml:"timeout"`
	CSVCharset  string        `yaml:"csv_charset"`
}

type Sync struct {
	Strategy        string        `yaml:"strategy"`
	PerPage         int           `yaml:"per_page"`
	PageDelay       time.Duration `yaml:"page_delay"`
	DefaultMaxPages int           `yaml:"default_max_pages"`
	MarkupPercent   float64       `yaml:"markup_percent"`
}

type Config struct {
	Port         string `yaml:"port"`
	DBDSN        string `yaml:"db_dsn"`
	LogFile      string `yaml:"log_file"`
	Debug        bool   `yaml:"debug"`
	AdminKeyHash string `yaml:"admin_key_hash"`
	TemplatesDir string `yaml:"templates_dir"`

	Supplier Supplier `yaml:"supplier"`
	Sync     Sync     `yaml:"sync"`
}

// Defaults returns a config with every knob at its default value.
func Defaults() Config {
	return Config{
		Port:         "8080",
		DBDSN:        "b2b_catalog.db",
		TemplatesDir: "./web/templates",
		Supplier: Supplier{
			BaseURL:     "https://api.qogita.com",
			TokenMargin: 5 * time.Minute,
			TokenTTL:    time.Hour,
			Timeout:     30 * time.Second,
			CSVCharset:  "utf-8",
		},
		Sync: Sync{
			Strategy:        StrategyPaginated,
			PerPage:         100,
			PageDelay:       time.Second,
			DefaultMaxPages: 10,
			MarkupPercent:   10,
		},
	}
}

// Load reads .env (when present), then the optional CONFIG_FILE yaml, then
// the process environment. Later sources win.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			log.Printf("[warn] could not read config file %s: %v", path, err)
		}
	}
	applyEnv(&cfg)

	if cfg.Sync.Strategy != StrategyPaginated && cfg.Sync.Strategy != StrategyBulkCSV {
		log.Printf("[warn] unknown SYNC_STRATEGY %q, using %s", cfg.Sync.Strategy, StrategyPaginated)
		cfg.Sync.Strategy = StrategyPaginated
	}

	log.Printf("[config] PORT=%s DB_DSN=%s DEBUG=%t SUPPLIER_BASE_URL=%s SYNC_STRATEGY=%s MARKUP_PERCENT=%.2f TOKEN_FILE=%s",
		cfg.Port, cfg.DBDSN, cfg.Debug, cfg.Supplier.BaseURL, cfg.Sync.Strategy, cfg.Sync.MarkupPercent, cfg.Supplier.TokenFile)
	if cfg.Supplier.Email == "" || cfg.Supplier.Password == "" {
		log.Printf("[warn] supplier credentials not set; sync will fail until SUPPLIER_EMAIL and SUPPLIER_PASSWORD are provided")
	}
	return cfg
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, cfg)
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.DBDSN, "DB_DSN")
	setString(&cfg.LogFile, "LOG_FILE")
	setString(&cfg.AdminKeyHash, "ADMIN_KEY_HASH")
	setString(&cfg.TemplatesDir, "TEMPLATES_DIR")
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}

	s := &cfg.Supplier
	setString(&s.BaseURL, "SUPPLIER_BASE_URL")
	setString(&s.Email, "SUPPLIER_EMAIL")
	setString(&s.Password, "SUPPLIER_PASSWORD")
	setString(&s.TokenFile, "SUPPLIER_TOKEN_FILE")
	setString(&s.CSVCharset, "SUPPLIER_CSV_CHARSET")
	setDuration(&s.TokenMargin, "SUPPLIER_TOKEN_MARGIN")
	setDuration(&s.TokenTTL, "SUPPLIER_TOKEN_TTL")
	setDuration(&s.Timeout, "SUPPLIER_TIMEOUT")
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")

	y := &cfg.Sync
	setString(&y.Strategy, "SYNC_STRATEGY")
	setInt(&y.PerPage, "SYNC_PER_PAGE")
	setInt(&y.DefaultMaxPages, "SYNC_DEFAULT_MAX_PAGES")
	setDuration(&y.PageDelay, "SYNC_PAGE_DELAY")
	if v := os.Getenv("MARKUP_PERCENT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			y.MarkupPercent = f
		} else {
			log.Printf("[warn] ignoring MARKUP_PERCENT=%q", v)
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[warn] ignoring %s=%q", key, v)
		return
	}
	*dst = n
}

func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("[warn] ignoring %s=%q", key, v)
		return
	}
	*dst = d
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
