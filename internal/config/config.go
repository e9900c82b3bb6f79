package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AngelCh415/LEADS_GO/internal/leads"
	"github.com/AngelCh415/LEADS_GO/internal/metrics"
	"github.com/AngelCh415/LEADS_GO/internal/models"
)

const (
	BackendREST   = "rest"
	BackendSQLite = "sqlite"
)

type Config struct {
	TableURL        string
	TableKey        string
	Backend         string
	DBPath          string
	Port            string
	HTTPTimeout     time.Duration
	RefreshInterval time.Duration
	ReportWeeks     int
	LogLevel        slog.Level
	ConfigPath      string
	Stages          []leads.StageDef
}

// fileConfig es el YAML opcional (LEADS_CONFIG). Las variables de entorno ganan.
type fileConfig struct {
	Table struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
	} `yaml:"table"`
	Backend        string `yaml:"backend"`
	DBPath         string `yaml:"db_path"`
	Port           string `yaml:"port"`
	RefreshSeconds int    `yaml:"refresh_seconds"`
	ReportWeeks    *int   `yaml:"report_weeks"`
	LogLevel       string `yaml:"log_level"`
	Stages         []struct {
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"stages"`
}

// Load lee el YAML (si path no está vacío) y aplica el entorno encima.
// Con error devuelve igual una config usable con defaults + entorno.
func Load(path string) (Config, error) {
	cfg := Config{
		Backend:         BackendREST,
		DBPath:          "leads.db",
		Port:            "8080",
		HTTPTimeout:     15 * time.Second,
		RefreshInterval: 60 * time.Second,
		ReportWeeks:     metrics.DefaultWeeks,
		LogLevel:        slog.LevelInfo,
		ConfigPath:      strings.TrimSpace(path),
		Stages:          leads.DefaultStages(),
	}

	var ferr error
	if cfg.ConfigPath != "" {
		ferr = applyFile(&cfg, cfg.ConfigPath)
	}
	applyEnv(&cfg)
	return cfg, ferr
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	setStr(&cfg.TableURL, fc.Table.URL)
	setStr(&cfg.TableKey, fc.Table.Key)
	setStr(&cfg.Backend, strings.ToLower(fc.Backend))
	setStr(&cfg.DBPath, fc.DBPath)
	setStr(&cfg.Port, fc.Port)
	if fc.RefreshSeconds > 0 {
		cfg.RefreshInterval = time.Duration(fc.RefreshSeconds) * time.Second
	}
	if fc.ReportWeeks != nil {
		cfg.ReportWeeks = *fc.ReportWeeks
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLevel(fc.LogLevel)
	}
	if len(fc.Stages) > 0 {
		defs := make([]leads.StageDef, 0, len(fc.Stages))
		for _, s := range fc.Stages {
			defs = append(defs, leads.StageDef{Name: models.Stage(s.Name), Aliases: s.Aliases})
		}
		cfg.Stages = defs
	}
	return nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.TableURL, firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"))
	setStr(&cfg.TableKey, firstEnv("SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_KEY"))
	setStr(&cfg.Backend, strings.ToLower(os.Getenv("LEADS_BACKEND")))
	setStr(&cfg.DBPath, os.Getenv("LEADS_DB_PATH"))
	setStr(&cfg.Port, os.Getenv("PORT"))
	if d, ok := seconds("HTTP_TIMEOUT_SECONDS"); ok {
		cfg.HTTPTimeout = d
	}
	if d, ok := seconds("REFRESH_INTERVAL_SECONDS"); ok {
		cfg.RefreshInterval = d
	}
	if v, err := strconv.Atoi(os.Getenv("REPORT_WEEKS")); err == nil {
		cfg.ReportWeeks = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLevel(v)
	}
}

// Vocabulary valida las etapas configuradas.
func (c Config) Vocabulary() (*leads.Vocabulary, error) {
	return leads.NewVocabulary(c.Stages)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func seconds(k string) (time.Duration, bool) {
	v := os.Getenv(k)
	if v == "" {
		return 0, false
	}
	d, err := time.ParseDuration(v + "s")
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
