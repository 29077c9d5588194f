package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces every environment override, e.g.
// INTAKE_TRANSFER_HIGH_DID or INTAKE_SIGNALWIRE_PROJECT_ID.
const EnvPrefix = "INTAKE_"

const defaultConfigFile = "configs/config.yaml"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	AMQP        AMQPConfig        `koanf:"amqp"`
	SignalWire  SignalWireConfig  `koanf:"signalwire"`
	CRM         CRMConfig         `koanf:"crm"`
	Transfer    TransferConfig    `koanf:"transfer"`
	Intake      IntakeConfig      `koanf:"intake"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Security    SecurityConfig    `koanf:"security"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig configures the optional session arena. An empty URL disables it.
type RedisConfig struct {
	URL        string        `koanf:"url"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	SessionTTL time.Duration `koanf:"session_ttl"`
}

// AMQPConfig configures record event publishing. An empty URL disables it.
type AMQPConfig struct {
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

type SignalWireConfig struct {
	ProjectID string        `koanf:"project_id"`
	Token     string        `koanf:"token"`
	SpaceURL  string        `koanf:"space_url"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Enabled reports whether recording lookups can be made
func (c SignalWireConfig) Enabled() bool {
	return c.ProjectID != "" && c.Token != "" && c.SpaceURL != ""
}

type CRMConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// Enabled reports whether a CRM is configured
func (c CRMConfig) Enabled() bool {
	return c.BaseURL != ""
}

// TransferConfig holds the process-wide routing fallback. QueueA and QueueB
// are the older destination names.
type TransferConfig struct {
	HighDID       string   `koanf:"high_did"`
	MidDID        string   `koanf:"mid_did"`
	LowDID        string   `koanf:"low_did"`
	QueueADID     string   `koanf:"queue_a_did"`
	QueueBDID     string   `koanf:"queue_b_did"`
	Trunk         string   `koanf:"trunk"`
	HighThreshold *float64 `koanf:"high_threshold"`
	MidThreshold  *float64 `koanf:"mid_threshold"`
}

type IntakeConfig struct {
	AgentName     string        `koanf:"agent_name"`
	CompanyName   string        `koanf:"company_name"`
	LookupTimeout time.Duration `koanf:"lookup_timeout"`
	OptOutPhrases []string      `koanf:"opt_out_phrases"`
}

type PersistenceConfig struct {
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	BackgroundTimeout time.Duration `koanf:"background_timeout"`
	RecordingDelay    time.Duration `koanf:"recording_delay"`
}

type SecurityConfig struct {
	JWTSecret string          `koanf:"jwt_secret"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
	BatchTimeout  time.Duration `koanf:"batch_timeout"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			SessionTTL: 2 * time.Hour,
		},
		AMQP: AMQPConfig{
			Exchange: "intake.events",
		},
		SignalWire: SignalWireConfig{
			Timeout: 30 * time.Second,
		},
		CRM: CRMConfig{
			Timeout: 5 * time.Second,
		},
		Intake: IntakeConfig{
			AgentName:     "James",
			CompanyName:   "Easy Finance",
			LookupTimeout: 3 * time.Second,
		},
		Persistence: PersistenceConfig{
			WriteTimeout:      5 * time.Second,
			BackgroundTimeout: 30 * time.Second,
			RecordingDelay:    10 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			BatchTimeout:  5 * time.Second,
		},
	}
}

// Load layers defaults, the YAML file at path (configs/config.yaml when
// empty, optional) and INTAKE_ environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps INTAKE_TRANSFER_HIGH_DID to transfer.high_did. Only the first
// underscore separates the section; the rest belong to the field name.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	if _, nested := nestedSections[section]; !nested {
		return key
	}
	if section == "security" && strings.HasPrefix(field, "rate_limit_") {
		return "security.rate_limit." + strings.TrimPrefix(field, "rate_limit_")
	}
	return section + "." + field
}

var nestedSections = map[string]struct{}{
	"server": {}, "database": {}, "redis": {}, "amqp": {}, "signalwire": {}, "crm": {},
	"transfer": {}, "intake": {}, "persistence": {}, "security": {}, "telemetry": {},
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	t := c.Transfer
	if t.HighThreshold != nil && t.MidThreshold != nil && *t.MidThreshold > *t.HighThreshold {
		return fmt.Errorf("transfer.mid_threshold must not exceed transfer.high_threshold")
	}
	return nil
}
