package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"pushdispatch/pkg/config"
)

type Config struct {
	LogLevel string              `yaml:"log_level"`
	DB       config.DBConfig     `yaml:"db"`
	MQ       config.MQConfig     `yaml:"mq"`
	Redis    config.RedisConfig  `yaml:"redis"`
	Server   config.ServerConfig `yaml:"server"`
	JWT      config.JWTConfig    `yaml:"jwt"`
	FCM      config.FCMConfig    `yaml:"fcm"`
	Dispatch DispatchConfig      `yaml:"dispatch"`
}

// DispatchConfig controls the poller, the sweeper and the consumer.
type DispatchConfig struct {
	PollSchedule     string        `yaml:"poll_schedule"`
	SweepSchedule    string        `yaml:"sweep_schedule"`
	TimeZone         string        `yaml:"time_zone"`
	LatenessWindow   time.Duration `yaml:"lateness_window"`
	PollBatchSize    int           `yaml:"poll_batch_size"`
	SweepBatchSize   int           `yaml:"sweep_batch_size"`
	RetentionDays    int           `yaml:"retention_days"`
	SweepFailed      bool          `yaml:"sweep_failed"`
	Concurrency      int           `yaml:"concurrency"`
	SendTimeout      time.Duration `yaml:"send_timeout"`
	ClaimTTL         time.Duration `yaml:"claim_ttl"`
	ConsumerPrefetch int           `yaml:"consumer_prefetch"`
	OutboxInterval   time.Duration `yaml:"outbox_interval"`
}

func (d DispatchConfig) Retention() time.Duration {
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

func DefaultDispatch() DispatchConfig {
	return DispatchConfig{
		PollSchedule:     "* * * * *",
		SweepSchedule:    "0 2 * * *",
		TimeZone:         "America/Santiago",
		LatenessWindow:   5 * time.Minute,
		PollBatchSize:    50,
		SweepBatchSize:   500,
		RetentionDays:    30,
		Concurrency:      10,
		SendTimeout:      10 * time.Second,
		ClaimTTL:         10 * time.Minute,
		ConsumerPrefetch: 10,
		OutboxInterval:   time.Second,
	}
}

// Load reads config/<CONFIG_ENV>.yaml on top of config/base.yaml, then
// applies environment overrides.
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")
	return LoadFrom(env, configDir)
}

func LoadFrom(env, configDir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := Config{Dispatch: DefaultDispatch()}
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideFCMFromEnv(&cfg.FCM)
	overrideDispatchFromEnv(&cfg.Dispatch)

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}

	return &cfg, nil
}

func overrideDispatchFromEnv(cfg *DispatchConfig) {
	if tz := os.Getenv("DISPATCH_TIME_ZONE"); tz != "" {
		cfg.TimeZone = tz
	}
	if days := os.Getenv("DISPATCH_RETENTION_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil {
			cfg.RetentionDays = n
		}
	}
	if v := os.Getenv("DISPATCH_SWEEP_FAILED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SweepFailed = b
		}
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if err := c.Dispatch.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (d DispatchConfig) Validate() error {
	var errs []error

	if _, err := cron.ParseStandard(d.PollSchedule); err != nil {
		errs = append(errs, fmt.Errorf("dispatch.poll_schedule: %w", err))
	}
	if _, err := cron.ParseStandard(d.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("dispatch.sweep_schedule: %w", err))
	}
	if _, err := time.LoadLocation(d.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("dispatch.time_zone: %w", err))
	}
	if d.LatenessWindow <= 0 {
		errs = append(errs, errors.New("dispatch.lateness_window must be positive"))
	}
	if d.PollBatchSize <= 0 {
		errs = append(errs, errors.New("dispatch.poll_batch_size must be positive"))
	}
	if d.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("dispatch.sweep_batch_size must be positive"))
	}
	if d.RetentionDays <= 0 {
		errs = append(errs, errors.New("dispatch.retention_days must be positive"))
	}
	if d.Concurrency <= 0 {
		errs = append(errs, errors.New("dispatch.concurrency must be positive"))
	}
	if d.SendTimeout <= 0 {
		errs = append(errs, errors.New("dispatch.send_timeout must be positive"))
	}
	if d.ClaimTTL <= d.LatenessWindow {
		errs = append(errs, errors.New("dispatch.claim_ttl must be longer than dispatch.lateness_window"))
	}

	return errors.Join(errs...)
}
