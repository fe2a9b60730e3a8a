package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceRTDB = "rtdb"
	SourceMQTT = "mqtt"
)

// Config is the dashboard configuration, read from YAML and the environment.
type Config struct {
	Source   string         `yaml:"source"`
	RTDB     RTDBConfig     `yaml:"rtdb"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Influx   InfluxConfig   `yaml:"influx"`
	HTTP     HTTPConfig     `yaml:"http"`
	Queue    QueueConfig    `yaml:"queue"`
	Log      LogConfig      `yaml:"log"`
	Actuator ActuatorConfig `yaml:"actuator"`
}

// RTDBConfig points at the realtime database root.
type RTDBConfig struct {
	URL  string `yaml:"url"`
	Auth string `yaml:"auth"`
}

// MQTTConfig is used when Source is mqtt. Site selects the interop/<site>/ topics.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	User     string `yaml:"user"`
	Pass     string `yaml:"pass"`
	Site     string `yaml:"site"`
}

// InfluxConfig enables view-state history when URL is set. Site, when set,
// tags every point; see HistorySite.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
	Site   string `yaml:"site"`
}

// HTTPConfig is the listen address of the dashboard server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// QueueConfig bounds the snapshots waiting for the sync loop.
type QueueConfig struct {
	Capacity int `yaml:"capacity"`
}

// LogConfig holds the slog level name.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ActuatorConfig bounds each remote actuator write.
type ActuatorConfig struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Load reads the optional YAML file at path, then applies environment
// overrides and defaults. An empty path means environment only.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Source = getEnv("SNAPSHOT_SOURCE", c.Source)

	c.RTDB.URL = getEnv("RTDB_URL", c.RTDB.URL)
	c.RTDB.Auth = getEnv("RTDB_AUTH", c.RTDB.Auth)

	c.MQTT.Broker = getEnv("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.User = getEnv("MQTT_USER", c.MQTT.User)
	c.MQTT.Pass = getEnv("MQTT_PASS", c.MQTT.Pass)
	c.MQTT.Site = getEnv("MQTT_SITE", c.MQTT.Site)

	c.Influx.URL = getEnv("INFLUX_URL", c.Influx.URL)
	c.Influx.Token = getEnv("INFLUX_TOKEN", c.Influx.Token)
	c.Influx.Org = getEnv("INFLUX_ORG", c.Influx.Org)
	c.Influx.Bucket = getEnv("INFLUX_BUCKET", c.Influx.Bucket)
	c.Influx.Site = getEnv("INFLUX_SITE", c.Influx.Site)

	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	if v := os.Getenv("QUEUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Queue.Capacity = n
		}
	}
	if v := os.Getenv("ACTUATOR_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Actuator.WriteTimeout = d
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = SourceRTDB
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "interop-dashboard"
	}
	if c.Influx.Org == "" {
		c.Influx.Org = "my-org"
	}
	if c.Influx.Bucket == "" {
		c.Influx.Bucket = "dashboard"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Queue.Capacity <= 0 {
		c.Queue.Capacity = 16
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Actuator.WriteTimeout <= 0 {
		c.Actuator.WriteTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	switch c.Source {
	case SourceRTDB:
		if c.RTDB.URL == "" {
			return errors.New("rtdb.url is required when source is rtdb")
		}
	case SourceMQTT:
		if c.MQTT.Site == "" {
			return errors.New("mqtt.site is required when source is mqtt")
		}
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, SourceRTDB, SourceMQTT)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// HistorySite is the site tag for history points. An explicit influx.site wins;
// otherwise the MQTT site is used, but only when MQTT is the source.
func (c *Config) HistorySite() string {
	if c.Influx.Site != "" {
		return c.Influx.Site
	}
	if c.Source == SourceMQTT {
		return c.MQTT.Site
	}
	return ""
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
