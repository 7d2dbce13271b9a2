package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/dyluth/koorda/internal/timespec"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/dyluth/koorda/pkg/snapshot"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreRedis = "redis"
	StoreFile  = "file"
)

// Default service paths appended to koordinator.base_url when a service URL
// is not configured explicitly.
const (
	DefaultPollingPath    = "/pollingservice"
	DefaultWorkflowsPath  = "/workflowsservice"
	DefaultMonitoringPath = "/monitoringservice"
	DefaultTaskStatusPath = "/taskstatusservice"
	DefaultBotPath        = "/bot"
)

// Config represents the top-level koorda.yml configuration
type Config struct {
	Version     string            `yaml:"version" validate:"eq=1.0"`
	Koordinator KoordinatorConfig `yaml:"koordinator"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	Store       StoreConfig       `yaml:"store"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Launch      LaunchConfig      `yaml:"launch"`
	Skill       SkillConfig       `yaml:"skill"`
	Resolver    ResolverConfig    `yaml:"resolver"`
	// Timezone is the IANA zone times are spoken in ("Europe/Paris").
	// Empty means the host's local zone.
	Timezone string `yaml:"timezone" env:"KOORDA_TIMEZONE"`
}

// KoordinatorConfig locates the workflow engine services
type KoordinatorConfig struct {
	BaseURL    string        `yaml:"base_url" env:"KOORDA_KOORDINATOR_BASE_URL"`
	Polling    string        `yaml:"polling_url" env:"KOORDA_KOORDINATOR_POLLING_URL" validate:"required,url"`
	Workflows  string        `yaml:"workflows_url" env:"KOORDA_KOORDINATOR_WORKFLOWS_URL" validate:"required,url"`
	Monitoring string        `yaml:"monitoring_url" env:"KOORDA_KOORDINATOR_MONITORING_URL" validate:"required,url"`
	TaskStatus string        `yaml:"task_status_url" env:"KOORDA_KOORDINATOR_TASK_STATUS_URL" validate:"required,url"`
	Bot        string        `yaml:"bot_url" env:"KOORDA_KOORDINATOR_BOT_URL" validate:"required,url"`
	Workspace  string        `yaml:"workspace" env:"KOORDA_KOORDINATOR_WORKSPACE" validate:"required"`
	Namespace  string        `yaml:"namespace" env:"KOORDA_KOORDINATOR_NAMESPACE" validate:"required"`
	Timeout    time.Duration `yaml:"timeout" env:"KOORDA_KOORDINATOR_TIMEOUT" validate:"gt=0"`
}

// BridgeConfig tunes the event feed poller and reply waits
type BridgeConfig struct {
	PollInterval         time.Duration `yaml:"poll_interval" env:"KOORDA_BRIDGE_POLL_INTERVAL" validate:"gt=0"`
	ReplyTimeout         time.Duration `yaml:"reply_timeout" env:"KOORDA_BRIDGE_REPLY_TIMEOUT" validate:"gt=0"`
	FeedLimit            int           `yaml:"feed_limit" env:"KOORDA_BRIDGE_FEED_LIMIT" validate:"gte=0"`
	AcceptedTypes        []string      `yaml:"accepted_types" env:"KOORDA_BRIDGE_ACCEPTED_TYPES" validate:"min=1,dive,required"`
	CorrelationAttribute string        `yaml:"correlation_attribute" env:"KOORDA_BRIDGE_CORRELATION_ATTRIBUTE" validate:"required"`
}

// StoreConfig selects where conversation snapshots live
type StoreConfig struct {
	Backend  string        `yaml:"backend" env:"KOORDA_STORE_BACKEND" validate:"oneof=redis file"`
	RedisURL string        `yaml:"redis_url" env:"KOORDA_REDIS_URL" validate:"required_if=Backend redis"`
	Instance string        `yaml:"instance" env:"KOORDA_STORE_INSTANCE" validate:"required"`
	Dir      string        `yaml:"dir" env:"KOORDA_STORE_DIR" validate:"required_if=Backend file"`
	TTL      time.Duration `yaml:"ttl" env:"KOORDA_STORE_TTL" validate:"gte=0"`
}

// ServerConfig configures the HTTP adapter
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"KOORDA_SERVER_ADDR" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"KOORDA_SERVER_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LoggingConfig configures zerolog output
type LoggingConfig struct {
	Level        string `yaml:"level" env:"KOORDA_LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	Format       string `yaml:"format" env:"KOORDA_LOG_FORMAT" validate:"oneof=json console"`
	Output       string `yaml:"output" env:"KOORDA_LOG_OUTPUT"`
	EnableCaller bool   `yaml:"enable_caller" env:"KOORDA_LOG_CALLER"`
}

// LaunchConfig controls workflow launches
type LaunchConfig struct {
	// AwaitConfirmation waits for the backend's confirmation event after a
	// workflow start instead of answering right away.
	AwaitConfirmation bool `yaml:"await_confirmation" env:"KOORDA_LAUNCH_AWAIT_CONFIRMATION"`
}

// SkillConfig identifies the skill on relayed user requests
type SkillConfig struct {
	ID             string `yaml:"id" env:"KOORDA_SKILL_ID"`
	Stream         string `yaml:"stream" env:"KOORDA_SKILL_STREAM"`
	RelayLifecycle bool   `yaml:"relay_lifecycle" env:"KOORDA_SKILL_RELAY_LIFECYCLE"`
}

// ResolverConfig tunes spoken name matching
type ResolverConfig struct {
	PlausibilitySlack int `yaml:"plausibility_slack" env:"KOORDA_RESOLVER_PLAUSIBILITY_SLACK" validate:"gte=0"`
}

// Validate applies defaults, then checks every field against its constraints.
// Service URLs left empty are derived from koordinator.base_url.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if err := structValidator().Struct(c); err != nil {
		return describeValidation(err)
	}

	if _, err := timespec.LoadLocation(c.Timezone); err != nil {
		return err
	}
	if c.Store.Backend == StoreRedis {
		if _, err := redis.ParseURL(c.Store.RedisURL); err != nil {
			return fmt.Errorf("store.redis_url: %w", err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	k := &c.Koordinator
	base := strings.TrimRight(k.BaseURL, "/")
	if base != "" {
		setDefault(&k.Polling, base+DefaultPollingPath)
		setDefault(&k.Workflows, base+DefaultWorkflowsPath)
		setDefault(&k.Monitoring, base+DefaultMonitoringPath)
		setDefault(&k.TaskStatus, base+DefaultTaskStatusPath)
		setDefault(&k.Bot, base+DefaultBotPath)
	}
	if k.Timeout == 0 {
		k.Timeout = 10 * time.Second
	}

	b := &c.Bridge
	if b.PollInterval == 0 {
		b.PollInterval = 500 * time.Millisecond
	}
	if b.ReplyTimeout == 0 {
		b.ReplyTimeout = 7 * time.Second
	}
	if len(b.AcceptedTypes) == 0 {
		b.AcceptedTypes = []string{koordinator.EventTypeText}
	}
	setDefault(&b.CorrelationAttribute, koordinator.CorrelationAttribute)

	s := &c.Store
	setDefault(&s.Backend, StoreRedis)
	setDefault(&s.Instance, "default")
	if s.Backend == StoreRedis {
		setDefault(&s.RedisURL, "redis://localhost:6379/0")
	}
	if s.Backend == StoreFile {
		setDefault(&s.Dir, filepath.Join(os.TempDir(), "koorda"))
	}
	if s.TTL == 0 {
		s.TTL = snapshot.DefaultTTL
	}

	setDefault(&c.Server.Addr, ":8080")
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	setDefault(&c.Logging.Level, "info")
	setDefault(&c.Logging.Format, "json")

	setDefault(&c.Skill.Stream, "koorda")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// ClientOptions returns the Koordinator client options.
func (c *Config) ClientOptions() koordinator.Options {
	return koordinator.Options{
		Endpoints: koordinator.Endpoints{
			Polling:    c.Koordinator.Polling,
			Workflows:  c.Koordinator.Workflows,
			Monitoring: c.Koordinator.Monitoring,
			TaskStatus: c.Koordinator.TaskStatus,
			Bot:        c.Koordinator.Bot,
		},
		Workspace: c.Koordinator.Workspace,
		Namespace: c.Koordinator.Namespace,
		FeedLimit: c.Bridge.FeedLimit,
		Timeout:   c.Koordinator.Timeout,
	}
}

// RedisOptions parses store.redis_url.
func (c *Config) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Store.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opts, nil
}

// Location returns the zone spoken times are converted to.
func (c *Config) Location() (*time.Location, error) {
	return timespec.LoadLocation(c.Timezone)
}

// LogConfig returns the logger settings.
func (c *Config) LogConfig() telemetry.LogConfig {
	return telemetry.LogConfig{
		Level:        c.Logging.Level,
		Format:       c.Logging.Format,
		Output:       c.Logging.Output,
		EnableCaller: c.Logging.EnableCaller,
	}
}

// Load reads koorda.yml from path, applies KOORDA_* environment overrides and
// validates the result. An empty path configures from the environment only.
func Load(path string) (*Config, error) {
	var config Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// structValidator reports fields by their YAML path ("koordinator.workspace").
func structValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the root struct name
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s' (got %v)", path, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", path, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
