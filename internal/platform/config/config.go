package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config/config.yaml"
	DefaultEnvPath    = ".env"
	envPrefix         = "ATTENDANCE_"

	ModeDev     = "dev"
	ModeRelease = "release"

	BackendXLSX  = "xlsx"
	BackendMySQL = "mysql"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type StoreConfig struct {
	Backend  string         `yaml:"backend"` // xlsx | mysql
	XLSXPath string         `yaml:"xlsx_path"`
	Database DatabaseConfig `yaml:"database"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type ClientConfig struct {
	ServerURL string `yaml:"server_url"`
	Timezone  string `yaml:"timezone"` // "" / "Local" でホストのローカル時刻
}

// Google Form の entry.* に対応するフィールドID
type WebhookFields struct {
	EmployeeID   string `yaml:"employee_id"`
	EmployeeName string `yaml:"employee_name"`
	CheckIn      string `yaml:"check_in"`
	CheckOut     string `yaml:"check_out"`
	Date         string `yaml:"date"`
}

type WebhookConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Fields  WebhookFields `yaml:"fields"`
}

type Config struct {
	Version string        `yaml:"version"`
	Mode    string        `yaml:"mode"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
	Client  ClientConfig  `yaml:"client"`
	Webhook WebhookConfig `yaml:"webhook"`
}

func Default() Config {
	return Config{
		Version: "1",
		Mode:    ModeRelease,
		Server: ServerConfig{
			Addr:        ":3000",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Store: StoreConfig{
			Backend:  BackendXLSX,
			XLSXPath: "data/attendance_records.xlsx",
			Database: DatabaseConfig{Host: "127.0.0.1", Port: 3306, DBName: "attendance"},
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Client: ClientConfig{
			ServerURL: "http://localhost:3000",
			Timezone:  "Local",
		},
		Webhook: WebhookConfig{
			Enabled: true,
			URL:     "https://docs.google.com/forms/d/e/1FAIpQLSexvLFYNSlaA92_EDQAuWKqR9Rf25B8FHhdKnpa92x_D7cpyg/formResponse",
			Timeout: 10 * time.Second,
			Fields: WebhookFields{
				EmployeeID:   "entry.891535886",
				EmployeeName: "entry.474494596",
				CheckIn:      "entry.1816829517",
				CheckOut:     "entry.87362829",
				Date:         "entry.425001362",
			},
		},
	}
}

// LoadConfig: 既定値 → YAML → .env / 環境変数 の順に上書きする。
// 設定ファイルが無い場合は既定値のまま続行。
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	buf, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := loadDotEnv(DefaultEnvPath); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	// 既に設定済みの環境変数は上書きしない
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("MODE", &c.Mode)
	str("SERVER_ADDR", &c.Server.Addr)
	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_XLSX_PATH", &c.Store.XLSXPath)
	str("DB_HOST", &c.Store.Database.Host)
	str("DB_USER", &c.Store.Database.Username)
	str("DB_PASSWORD", &c.Store.Database.Password)
	str("DB_NAME", &c.Store.Database.DBName)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("CLIENT_SERVER_URL", &c.Client.ServerURL)
	str("CLIENT_TIMEZONE", &c.Client.Timezone)
	str("WEBHOOK_URL", &c.Webhook.URL)

	if v, ok := os.LookupEnv(envPrefix + "DB_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sDB_PORT: %w", envPrefix, err)
		}
		c.Store.Database.Port = port
	}
	if v, ok := os.LookupEnv(envPrefix + "WEBHOOK_ENABLED"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sWEBHOOK_ENABLED: %w", envPrefix, err)
		}
		c.Webhook.Enabled = b
	}
	if v, ok := os.LookupEnv(envPrefix + "CORS_ORIGINS"); ok {
		c.Server.CORSOrigins = splitList(v)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("invalid mode %q (dev|release)", c.Mode)
	}
	switch c.Store.Backend {
	case BackendXLSX:
		if c.Store.XLSXPath == "" {
			return errors.New("store.xlsx_path is required for the xlsx backend")
		}
	case BackendMySQL:
		if c.Store.Database.Host == "" || c.Store.Database.DBName == "" {
			return errors.New("store.database.host and store.database.dbname are required for the mysql backend")
		}
	default:
		return fmt.Errorf("invalid store.backend %q (xlsx|mysql)", c.Store.Backend)
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return errors.New("webhook.url is required when the webhook is enabled")
	}
	if _, err := c.Client.Location(); err != nil {
		return err
	}
	return nil
}

// Location: 「今日」を決める唯一のタイムゾーン
func (c ClientConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid client.timezone %q: %w", tz, err)
	}
	return loc, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
