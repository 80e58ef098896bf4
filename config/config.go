package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 服务配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Gateway GatewayConfig `yaml:"gateway"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	StaticDir       string        `yaml:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig 日志文件滚动策略
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"` // 同时输出到 stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// GatewayConfig WebSocket 连接参数
type GatewayConfig struct {
	SendBuffer        int           `yaml:"send_buffer"`
	ReadLimit         int64         `yaml:"read_limit"`
	PongWait          time.Duration `yaml:"pong_wait"`
	WriteWait         time.Duration `yaml:"write_wait"`
	MaxMessagesPerSec int           `yaml:"max_messages_per_sec"`
}

// Default 未提供配置文件时使用
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			StaticDir:       "public",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			File:       "app.log",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Gateway: GatewayConfig{
			SendBuffer:        64,
			ReadLimit:         1 << 16,
			PongWait:          60 * time.Second,
			WriteWait:         10 * time.Second,
			MaxMessagesPerSec: 120,
		},
	}
}

// Load 依次叠加：默认值 → YAML 文件（可缺省）→ .env → 环境变量
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := GetEnv("PORT", ""); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Addr = GetEnv("ARENA_ADDR", c.Server.Addr)
	c.Server.StaticDir = GetEnv("ARENA_STATIC_DIR", c.Server.StaticDir)
	c.Log.File = GetEnv("ARENA_LOG_FILE", c.Log.File)
	c.Log.Level = GetEnv("ARENA_LOG_LEVEL", c.Log.Level)
}

// Validate 检查数值型参数
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server.addr is empty")
	case c.Gateway.SendBuffer <= 0:
		return fmt.Errorf("gateway.send_buffer must be positive, got %d", c.Gateway.SendBuffer)
	case c.Gateway.ReadLimit <= 0:
		return fmt.Errorf("gateway.read_limit must be positive, got %d", c.Gateway.ReadLimit)
	case c.Gateway.PongWait <= 0 || c.Gateway.WriteWait <= 0:
		return errors.New("gateway.pong_wait and gateway.write_wait must be positive")
	case c.Gateway.MaxMessagesPerSec <= 0:
		return fmt.Errorf("gateway.max_messages_per_sec must be positive, got %d", c.Gateway.MaxMessagesPerSec)
	}
	return nil
}

// GetEnv 读取环境变量，未设置时返回 fallback
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
