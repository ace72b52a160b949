package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Pass, d.Host, d.Port, d.Name, d.SSLMode)
}

type MQ struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Pass   string `yaml:"password"`
	VHost  string `yaml:"vhost"`
	UseTLS bool   `yaml:"tls"`
}

type Redis struct {
	Addr    string        `yaml:"addr"`
	Pass    string        `yaml:"password"`
	DB      int           `yaml:"db"`
	CartTTL time.Duration `yaml:"cart_ttl"`
}

// POS holds the floor settings. Tables only seeds an empty layout; after
// that the layout is edited through the API.
type POS struct {
	TaxRate      string   `yaml:"tax_rate"`
	Tables       []string `yaml:"tables"`
	RequireReady bool     `yaml:"require_ready"`
}

// Rate parses TaxRate; Validate has already rejected bad values.
func (p POS) Rate() decimal.Decimal { return decimal.RequireFromString(p.TaxRate) }

type Ports struct {
	Order   int `yaml:"order"`
	Kitchen int `yaml:"kitchen"`
	Reports int `yaml:"reports"`
	Notify  int `yaml:"notify"`
}

type App struct {
	Database DB     `yaml:"database"`
	Rabbit   MQ     `yaml:"rabbitmq"`
	Redis    Redis  `yaml:"redis"`
	POS      POS    `yaml:"pos"`
	Ports    Ports  `yaml:"ports"`
	LogLevel string `yaml:"log_level"`
}

func Defaults() App {
	return App{
		Database: DB{Port: 5432, SSLMode: "disable", MaxConns: 10},
		Rabbit:   MQ{Port: 5672, VHost: "/"},
		Redis:    Redis{Addr: "localhost:6379", CartTTL: 12 * time.Hour},
		POS: POS{
			TaxRate:      "0.05",
			Tables:       []string{"1", "2", "3", "4", "5", "6"},
			RequireReady: true,
		},
		Ports:    Ports{Order: 3000, Kitchen: 3001, Reports: 3002, Notify: 3003},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults, then applies POS_*
// environment overrides and validates the result.
func Load(path string) (App, error) {
	a := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, err
	}
	if err := yaml.Unmarshal(b, &a); err != nil {
		return App{}, fmt.Errorf("parse %s: %w", path, err)
	}
	applyEnv(&a, os.LookupEnv)
	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

func (a App) Validate() error {
	var errs []error
	if a.Database.Host == "" || a.Database.User == "" || a.Database.Name == "" {
		errs = append(errs, errors.New("database config incomplete"))
	}
	if a.Rabbit.Host == "" || a.Rabbit.User == "" {
		errs = append(errs, errors.New("rabbitmq config incomplete"))
	}
	if a.Redis.Addr == "" {
		errs = append(errs, errors.New("redis addr is empty"))
	}
	if r, err := decimal.NewFromString(a.POS.TaxRate); err != nil || r.IsNegative() {
		errs = append(errs, fmt.Errorf("pos.tax_rate %q is not a non-negative decimal", a.POS.TaxRate))
	}
	return errors.Join(errs...)
}

var envKeys = map[string]func(a *App, v string){
	"POS_DB_HOST":       func(a *App, v string) { a.Database.Host = v },
	"POS_DB_PORT":       func(a *App, v string) { a.Database.Port = atoi(v, a.Database.Port) },
	"POS_DB_USER":       func(a *App, v string) { a.Database.User = v },
	"POS_DB_PASSWORD":   func(a *App, v string) { a.Database.Pass = v },
	"POS_DB_NAME":       func(a *App, v string) { a.Database.Name = v },
	"POS_RABBIT_HOST":   func(a *App, v string) { a.Rabbit.Host = v },
	"POS_RABBIT_PORT":   func(a *App, v string) { a.Rabbit.Port = atoi(v, a.Rabbit.Port) },
	"POS_RABBIT_USER":   func(a *App, v string) { a.Rabbit.User = v },
	"POS_RABBIT_PASS":   func(a *App, v string) { a.Rabbit.Pass = v },
	"POS_REDIS_ADDR":    func(a *App, v string) { a.Redis.Addr = v },
	"POS_REDIS_PASS":    func(a *App, v string) { a.Redis.Pass = v },
	"POS_TAX_RATE":      func(a *App, v string) { a.POS.TaxRate = v },
	"POS_LOG_LEVEL":     func(a *App, v string) { a.LogLevel = v },
	"POS_REQUIRE_READY": func(a *App, v string) { a.POS.RequireReady, _ = strconv.ParseBool(v) },
}

func applyEnv(a *App, lookup func(string) (string, bool)) {
	for k, set := range envKeys {
		if v, ok := lookup(k); ok && v != "" {
			set(a, v)
		}
	}
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
