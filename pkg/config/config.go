package config

import (
	"os"
	"strconv"
)

// DBConfig PostgreSQL connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
}

// MQConfig RabbitMQ settings.
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig shared secret for the producer API.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// FCMConfig Firebase Cloud Messaging settings.
type FCMConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
	DryRun          bool   `yaml:"dry_run"`
}

func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
	if mode := os.Getenv("DB_SSLMODE"); mode != "" {
		cfg.SSLMode = mode
	}
}

func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

func OverrideFCMFromEnv(cfg *FCMConfig) {
	if file := os.Getenv("FCM_CREDENTIALS_FILE"); file != "" {
		cfg.CredentialsFile = file
	}
	if project := os.Getenv("FCM_PROJECT_ID"); project != "" {
		cfg.ProjectID = project
	}
	if dry := os.Getenv("FCM_DRY_RUN"); dry != "" {
		if v, err := strconv.ParseBool(dry); err == nil {
			cfg.DryRun = v
		}
	}
}
