package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config beidao-data（HTTP API + MQTT 接入）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	JWT   JWTConfig
	Admin AdminConfig
	OTA   OTAConfig
	MQTT  MQTTConfig
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// JWTConfig 令牌签发配置
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// AdminConfig 启动时播种的管理员账号（为空则跳过）
type AdminConfig struct {
	Phone    string
	Password string
}

// OTAConfig 固件发布平台配置
type OTAConfig struct {
	BaseURL string
	APIKey  string
}

// MQTTConfig MQTT 配置（设备状态/姿态事件接入，默认禁用）
type MQTTConfig struct {
	Enabled     bool
	Broker      string // 如 "tcp://localhost:1883"
	ClientID    string
	Username    string
	Password    string
	StatusTopic string // 设备状态主题
	EventTopic  string // 姿态事件主题
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// 本地开发 DB 不可用时回退到内存仓储，避免裸跑起不来
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "beidao")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.JWT.Secret = getEnv("JWT_SECRET", "beidao-dev-secret")
	cfg.JWT.AccessExpiry = time.Duration(parseInt(getEnv("JWT_ACCESS_EXPIRY_MINUTES", "10080"), 10080)) * time.Minute
	cfg.JWT.RefreshExpiry = time.Duration(parseInt(getEnv("JWT_REFRESH_EXPIRY_DAYS", "30"), 30)) * 24 * time.Hour

	cfg.Admin.Phone = getEnv("ADMIN_PHONE", "")
	cfg.Admin.Password = getEnv("ADMIN_PASSWORD", "")

	cfg.OTA.BaseURL = getEnv("OTA_BASE_URL", "")
	cfg.OTA.APIKey = getEnv("OTA_API_KEY", "")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "beidao-data")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.StatusTopic = getEnv("MQTT_STATUS_TOPIC", "beidao/devices/+/status")
	cfg.MQTT.EventTopic = getEnv("MQTT_EVENT_TOPIC", "beidao/devices/+/postures")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
