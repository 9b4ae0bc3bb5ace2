package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	DatabaseURL string
	Port        string
	LogLevel    string
	CORSOrigins []string

	// LoadOnStart 启动时是否自动执行一次数据导入
	LoadOnStart bool

	Source SourceConfig

	CacheTTL time.Duration
	// CacheSharedKey 为 true 时所有 /movies 请求共用一个缓存键（旧行为）
	CacheSharedKey bool

	// IngestWorkers 抓取电影详情的并发数，1 表示严格串行
	IngestWorkers int
	// IngestInterval 定时重新导入的间隔，0 表示关闭
	IngestInterval time.Duration
}

// SourceConfig 外部影视数据源配置
type SourceConfig struct {
	BaseURL        string
	Host           string
	APIKey         string
	Timeout        time.Duration
	RateLimit      float64 // 每秒请求数，0 表示不限速
	TitleCacheSize int     // 电影详情 LRU 缓存条数，0 表示关闭
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "moviedb")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	workers := getEnvInt("INGEST_WORKERS", 1)
	if workers < 1 {
		workers = 1
	}

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		DatabaseURL: dbURL,
		Port:        getEnv("PORT", "3000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		LoadOnStart: getEnvBool("LOAD_ON_START", false),
		Source: SourceConfig{
			BaseURL:        strings.TrimRight(getEnv("SOURCE_BASE_URL", "https://moviesdatabase.p.rapidapi.com"), "/"),
			Host:           getEnv("RAPID_API_HOST", "moviesdatabase.p.rapidapi.com"),
			APIKey:         getEnv("RAPID_API_KEY", ""),
			Timeout:        getEnvDuration("SOURCE_TIMEOUT", 30*time.Second),
			RateLimit:      getEnvFloat("SOURCE_RATE_LIMIT", 0),
			TitleCacheSize: getEnvInt("SOURCE_TITLE_CACHE_SIZE", 0),
		},
		CacheTTL:       getEnvDuration("CACHE_TTL", 300*time.Second),
		CacheSharedKey: getEnvBool("CACHE_SHARED_KEY", false),
		IngestWorkers:  workers,
		IngestInterval: getEnvDuration("INGEST_INTERVAL", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvDuration 支持 "300s" 这类写法，也兼容纯数字（按秒计）
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
