package configuration

import (
	"fmt"
	"os"
	"strconv"

	"newsroom/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	Vault       Vault       `json:"vault"`
	OAuth       OAuth       `json:"oauth"`
	Generation  Generation  `json:"generation"`
	Publish     Publish     `json:"publish"`
	AI          AI          `json:"ai"`
	Quota       Quota       `json:"quota"`
}

type App struct {
	Port        int      `json:"port"`
	SecretKey   string   `json:"secretKey"`
	TLSEnabled  bool     `json:"tlsEnabled"`
	TLSCertFile string   `json:"tlsCertFile"`
	TLSKeyFile  string   `json:"tlsKeyFile"`
	BaseURL     string   `json:"baseURL"`
	CorsOrigins []string `json:"corsOrigins"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// Vault holds the base64 master key. It is never written back or logged.
type Vault struct {
	MasterKey string `json:"masterKey"`
}

// OAuth holds per-platform authorization settings.
type OAuth struct {
	StateTTLSeconds int           `json:"stateTTLSeconds"`
	Twitter         OAuthPlatform `json:"twitter"`
	LinkedIn        OAuthPlatform `json:"linkedin"`
	Facebook        OAuthPlatform `json:"facebook"`
	Mastodon        OAuthPlatform `json:"mastodon"`
}

type OAuthPlatform struct {
	Enabled  *bool    `json:"enabled"`
	Protocol string   `json:"protocol"`
	Scopes   []string `json:"scopes"`
	// 2.0 endpoints
	AuthURL  string `json:"authURL"`
	TokenURL string `json:"tokenURL"`
	// 1.0a endpoints and static consumer keys
	RequestTokenURL string `json:"requestTokenURL"`
	AuthorizeURL    string `json:"authorizeURL"`
	AccessTokenURL  string `json:"accessTokenURL"`
	ConsumerKey     string `json:"consumerKey"`
	ConsumerSecret  string `json:"consumerSecret"`
	CallbackURL     string `json:"callbackURL"`
	// API base for publishing, or instance URL for Mastodon
	APIBaseURL string `json:"apiBaseURL"`
}

func (p OAuthPlatform) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

type Generation struct {
	Concurrency          int `json:"concurrency"`
	CallTimeoutSeconds   int `json:"callTimeoutSeconds"`
	JobTTLHours          int `json:"jobTTLHours"`
	SweepIntervalSeconds int `json:"sweepIntervalSeconds"`
}

type Publish struct {
	CallTimeoutSeconds int `json:"callTimeoutSeconds"`
}

type AI struct {
	DefaultModel string `json:"defaultModel"`
	BaseURL      string `json:"baseURL"`
}

// Quota holds the default daily tier limits used when runtime settings are unavailable.
// Zero means the built-in default.
type Quota struct {
	GuestLimit int `json:"guestLimit"`
	FreeLimit  int `json:"freeLimit"`
	PaidLimit  int `json:"paidLimit"`
}

var C Config

func init() {
	Load()
}

// Load resolves C from the config file and the environment. main calls it again after
// reading .env files so their values take effect.
func Load() {
	C = Config{}
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initVault(&C)
	initOAuth(&C)
	initRuntime(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	logger.GetLogger().WithField("host", C.Database.Psql.Host).WithField("name", C.Database.Psql.Name).Info("Database configuration")
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")
	C.Database.Psql.SSLMode = getConfigValue(C.Database.Psql.SSLMode, "DB_SSLMODE", "disable")

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Username = getConfigValue(C.RedisClient.Username, "REDIS_USERNAME", "")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
}

func initApp(C *Config) {
	// SECRET_KEY overrides the config file for JWT verification
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// APP_PORT -> PORT -> config -> 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.BaseURL == "" {
		scheme := "http"
		if C.App.TLSEnabled {
			scheme = "https"
		}
		C.App.BaseURL = getEnv("APP_BASE_URL", fmt.Sprintf("%s://localhost:%d", scheme, C.App.Port))
	}
	if len(C.App.CorsOrigins) == 0 {
		C.App.CorsOrigins = []string{"http://localhost:5173", "http://localhost:4200"}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initVault(C *Config) {
	C.Vault.MasterKey = getConfigValue(C.Vault.MasterKey, "VAULT_MASTER_KEY", "")
}

func initRuntime(C *Config) {
	if C.Generation.Concurrency <= 0 {
		C.Generation.Concurrency = 3
	}
	if C.Generation.CallTimeoutSeconds <= 0 {
		C.Generation.CallTimeoutSeconds = 60
	}
	if C.Generation.JobTTLHours <= 0 {
		C.Generation.JobTTLHours = 72
	}
	if C.Generation.SweepIntervalSeconds <= 0 {
		C.Generation.SweepIntervalSeconds = 30
	}
	// The sweep also refreshes running units; it has to tick before they look stale elsewhere.
	if limit := C.Generation.CallTimeoutSeconds; C.Generation.SweepIntervalSeconds >= limit {
		C.Generation.SweepIntervalSeconds = (limit + 1) / 2
	}
	if C.Publish.CallTimeoutSeconds <= 0 {
		C.Publish.CallTimeoutSeconds = 20
	}
	C.AI.DefaultModel = getConfigValue(C.AI.DefaultModel, "AI_DEFAULT_MODEL", "")
	C.AI.BaseURL = getConfigValue(C.AI.BaseURL, "AI_BASE_URL", "")
	C.Pubsub.ProjectID = getConfigValue(C.Pubsub.ProjectID, "PUBSUB_PROJECT_ID", "")
	C.Pubsub.Topic = getConfigValue(C.Pubsub.Topic, "PUBSUB_TOPIC", "newsroom-status")
	C.ServiceBus.Namespace = getConfigValue(C.ServiceBus.Namespace, "SERVICEBUS_NAMESPACE", "")
	C.ServiceBus.Queue = getConfigValue(C.ServiceBus.Queue, "SERVICEBUS_QUEUE", "newsroom-status")
	C.Quota.GuestLimit = getIntValue(C.Quota.GuestLimit, "QUOTA_GUEST_LIMIT")
	C.Quota.FreeLimit = getIntValue(C.Quota.FreeLimit, "QUOTA_FREE_LIMIT")
	C.Quota.PaidLimit = getIntValue(C.Quota.PaidLimit, "QUOTA_PAID_LIMIT")
}

// getIntValue lets a non-negative integer env var override the config file.
func getIntValue(configValue int, envKey string) int {
	if v := os.Getenv(envKey); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		logger.GetLogger().WithField("key", envKey).Warn("Ignoring invalid integer value")
	}
	return configValue
}
