package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// this is a pointer so that if someone attempts to use it before loading it will
// panic and force them to load it first.
// it is also private so that it cannot be modified after loading.
var _loaded *Config

// Config is the main configuration structure
type Config struct {
	Common Common `yaml:"common"`
}

// Load loads the configuration following proper precedence: defaults → config file → environment variables
func Load() {
	LoadDefault()

	configFile := os.Getenv("USUARIOS_CONFIG_FILE")
	if configFile == "" {
		configFile = "usuarios.yaml"
	}

	log.Printf("Attempting to load config file: %s", configFile)

	if err := LoadFromFile(configFile); err != nil {
		log.Printf("Failed to load config file: %v, using defaults", err)
	} else {
		log.Printf("Successfully loaded config from file: %s", configFile)
	}

	// Environment variables win over the file
	ApplyEnvOverrides()

	log.Printf("Final config - DB Host: %s, DB User: %s, DB Database: %s",
		_loaded.Common.Postgres.Host,
		_loaded.Common.Postgres.User,
		_loaded.Common.Postgres.Database)
}

// LoadDefault installs a copy of the defaults as the loaded config.
func LoadDefault() {
	config := defaultConfig
	config.Common.Http.CorsOrigins = append([]string(nil), defaultConfig.Common.Http.CorsOrigins...)
	_loaded = &config
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes merges YAML values over the defaults and installs the result.
func LoadFromBytes(data []byte) error {
	cfg := defaultConfig

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	_loaded = &cfg
	return nil
}

// Validate checks the values that cannot be defaulted at use time.
func (c *Config) Validate() error {
	pg := c.Common.Postgres
	if pg.MaxOpenConnections <= 0 {
		return fmt.Errorf("postgres.max_open_connections must be a positive integer")
	}
	if pg.MaxIdleConnections < 0 || pg.MaxIdleConnections > pg.MaxOpenConnections {
		return fmt.Errorf("postgres.max_idle_connections must be between 0 and max_open_connections")
	}

	durations := map[string]string{
		"postgres.conn_max_lifetime":  pg.ConnMaxLifetime,
		"postgres.conn_max_idle_time": pg.ConnMaxIdleTime,
		"postgres.operation_timeout":  pg.OperationTimeout,
		"web.request_timeout":         c.Common.Web.RequestTimeout,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if _, err := url.Parse(c.Common.Web.APIURL); err != nil || c.Common.Web.APIURL == "" {
		return fmt.Errorf("web.api_url must be a valid URL")
	}

	return nil
}

// set sane defaults for all of the config options. when loading the config from
// the file, any options that are not set will be set to these defaults.
var defaultConfig = Config{
	Common: Common{
		Log: logConfig{
			Level:  "info",
			Format: "json",
		},
		Http: httpConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			MaxRequestSize: 1048576,
			CorsOrigins:    []string{"*"},
		},
		Postgres: postgresConfig{
			postgresConfigCommon: postgresConfigCommon{
				User:               "postgres",
				Password:           "postgres",
				Host:               "localhost",
				Port:               5432,
				Database:           "usuarios",
				ReadTimeout:        30,
				WriteTimeout:       30,
				MaxOpenConnections: 10,
				MaxIdleConnections: 5,
				ConnMaxLifetime:    "1h",
				ConnMaxIdleTime:    "5m",
				OperationTimeout:   "5s",
			},
		},
		Web: webConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			APIURL:         "http://localhost:3000",
			RequestTimeout: "10s",
		},
	},
}

type Common struct {
	Log      logConfig      `yaml:"log"`
	Http     httpConfig     `yaml:"http"`
	Postgres postgresConfig `yaml:"postgres"`
	Web      webConfig      `yaml:"web"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type httpConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	MaxRequestSize int64    `yaml:"max_request_size"`
	CorsOrigins    []string `yaml:"cors_origins"`
}

type postgresConfigCommon struct {
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	Database           string `yaml:"database"`
	ReadTimeout        int    `yaml:"read_timeout"`
	WriteTimeout       int    `yaml:"write_timeout"`
	MaxOpenConnections int    `yaml:"max_open_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections"`
	ConnMaxLifetime    string `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime    string `yaml:"conn_max_idle_time"`
	OperationTimeout   string `yaml:"operation_timeout"` // bound on every store call
	Tracing            bool   `yaml:"tracing"`           // OpenTelemetry spans per query
}

func (c postgresConfigCommon) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
	)
}

// Durations are validated on load, so parse failures here fall back to zero.

func (c postgresConfigCommon) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

func (c postgresConfigCommon) ConnMaxIdleTimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxIdleTime)
	return d
}

func (c postgresConfigCommon) OperationTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.OperationTimeout)
	return d
}

type postgresConfig struct {
	postgresConfigCommon `yaml:",inline"`
}

type webConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	APIURL         string `yaml:"api_url"`         // base URL of the usuarios API
	RequestTimeout string `yaml:"request_timeout"` // per call to the API
}

func (c webConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// there should be a getter for each top level field in the config struct.
// these getters will panic if the config has not been loaded.

func Logger() logConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Log
}

func Http() httpConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Http
}

func Postgres() postgresConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Postgres
}

func Web() webConfig {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded.Common.Web
}

func Get() *Config {
	if _loaded == nil {
		panic("config not loaded - call Load() first")
	}
	return _loaded
}

func ApplyEnvOverrides() {
	if _loaded == nil {
		return
	}

	if dbHost := os.Getenv("USUARIOS_DB_HOST"); dbHost != "" {
		_loaded.Common.Postgres.Host = dbHost
	}
	if dbPort := os.Getenv("USUARIOS_DB_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			_loaded.Common.Postgres.Port = port
		}
	}
	if dbUser := os.Getenv("USUARIOS_DB_USER"); dbUser != "" {
		_loaded.Common.Postgres.User = dbUser
	}
	if dbPassword := os.Getenv("USUARIOS_DB_PASSWORD"); dbPassword != "" {
		_loaded.Common.Postgres.Password = dbPassword
	}
	if dbName := os.Getenv("USUARIOS_DB_NAME"); dbName != "" {
		_loaded.Common.Postgres.Database = dbName
	}

	if httpHost := os.Getenv("USUARIOS_HTTP_HOST"); httpHost != "" {
		_loaded.Common.Http.Host = httpHost
	}
	if httpPort := os.Getenv("USUARIOS_HTTP_PORT"); httpPort != "" {
		if port, err := strconv.Atoi(httpPort); err == nil {
			_loaded.Common.Http.Port = port
		}
	}

	if logLevel := os.Getenv("USUARIOS_LOG_LEVEL"); logLevel != "" {
		_loaded.Common.Log.Level = logLevel
	}

	if webPort := os.Getenv("USUARIOS_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil {
			_loaded.Common.Web.Port = port
		}
	}
	if apiURL := os.Getenv("USUARIOS_API_URL"); apiURL != "" {
		_loaded.Common.Web.APIURL = apiURL
	}
}
