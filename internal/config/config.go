package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoint 是未设置 CHAT_API_ENDPOINT 时转发的远端聊天接口。
const DefaultEndpoint = "https://artisan-chatbot.onrender.com/chat"

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Relay   RelayConfig
	Session SessionConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Relay:   relay,
		Session: session,
		Log:     loadLogConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// RelayConfig 描述远端聊天接口配置。
type RelayConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func loadRelayConfig() (RelayConfig, error) {
	timeout, err := parseOptionalIntEnv("CHAT_API_TIMEOUT")
	if err != nil {
		return RelayConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil {
		if *timeout < 1 {
			return RelayConfig{}, fmt.Errorf("invalid CHAT_API_TIMEOUT value %d: must be positive", *timeout)
		}
		timeoutSeconds = *timeout
	}

	return RelayConfig{
		Endpoint: getEnvOrDefault("CHAT_API_ENDPOINT", DefaultEndpoint),
		Timeout:  time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// SessionConfig 描述会话状态存储配置，TTL 同时作为空闲会话的过期时间。
type SessionConfig struct {
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

func loadSessionConfig() (SessionConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("SESSION_STORE", "memory"))
	if driver != "memory" && driver != "redis" {
		return SessionConfig{}, fmt.Errorf("invalid SESSION_STORE value %q: expected memory or redis", driver)
	}

	db, err := parseOptionalIntEnv("REDIS_DB")
	if err != nil {
		return SessionConfig{}, err
	}
	redisDB := 0
	if db != nil {
		redisDB = *db
	}

	ttl, err := parseOptionalIntEnv("SESSION_TTL")
	if err != nil {
		return SessionConfig{}, err
	}
	ttlSeconds := 24 * 60 * 60
	if ttl != nil && *ttl > 0 {
		ttlSeconds = *ttl
	}

	return SessionConfig{
		Driver:        driver,
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:       redisDB,
		TTL:           time.Duration(ttlSeconds) * time.Second,
	}, nil
}

// LogConfig 描述 zerolog 日志输出配置。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
