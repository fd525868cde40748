// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "configs/intelligence.yaml"

// Config 是所有进程共享的配置：先读 YAML 文件，再由环境变量覆盖。
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	ServiceName string `yaml:"service_name"`
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Timezone    string `yaml:"timezone"`
	AutoMigrate bool   `yaml:"auto_migrate"`

	AutoPostThreshold     float64 `yaml:"auto_post_threshold"`
	PerformanceWindowDays int     `yaml:"performance_window_days"`
	RevenueWindowDays     int     `yaml:"revenue_window_days"`
	CheckInWindowDays     int     `yaml:"checkin_window_days"`

	CacheTTL          time.Duration `yaml:"cache_ttl"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`

	// LockBackend 取值 redis | zookeeper | local
	LockBackend string        `yaml:"lock_backend"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	LockWait    time.Duration `yaml:"lock_wait"`
	// NotifyTimeout 限制持锁期间每次推送的耗时，需小于 LockTTL
	NotifyTimeout time.Duration `yaml:"notify_timeout"`
}

type InfraConfig struct {
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Nacos     NacosConfig     `yaml:"nacos"`

	Notification NotificationConfig `yaml:"notification"`
}

// NotificationConfig Transport 取值 kafka | http；http 时请求直接 POST 到 WebhookURL
type NotificationConfig struct {
	Transport  string `yaml:"transport"`
	WebhookURL string `yaml:"webhook_url"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addrs string `yaml:"addrs"` // "host1:port1,host2:port2"
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	NotificationTopic string   `yaml:"notification_topic"`
	TriggerTopic      string   `yaml:"trigger_topic"`
	GroupID           string   `yaml:"group_id"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

// DefaultConfig 本地开发默认值
func DefaultConfig() Config {
	return Config{
		App: AppConfig{
			ServiceName:           "intelligence-service",
			Port:                  8090,
			LogLevel:              "info",
			LogFormat:             "json",
			Timezone:              "UTC",
			AutoPostThreshold:     0.85,
			PerformanceWindowDays: 30,
			RevenueWindowDays:     60,
			CheckInWindowDays:     30,
			CacheTTL:              10 * time.Minute,
			SchedulerInterval:     time.Hour,
			LockBackend:           "redis",
			LockTTL:               30 * time.Second,
			LockWait:              5 * time.Second,
			NotifyTimeout:         5 * time.Second,
		},
		Infra: InfraConfig{
			MySQL: MySQLConfig{Host: "localhost", Port: 3306, User: "root", Database: "promo_intelligence"},
			Redis: RedisConfig{Addrs: "localhost:6379"},
			Kafka: KafkaConfig{
				Brokers:           []string{"localhost:9092"},
				NotificationTopic: "promotion-notification-topic",
				TriggerTopic:      "venue-activity-topic",
				GroupID:           "suggestion-scheduler",
			},
			Zookeeper: ZookeeperConfig{Servers: []string{"localhost:2181"}, SessionTimeout: 5 * time.Second},
			Jaeger:    JaegerConfig{Endpoint: "http://localhost:14268/api/traces", SampleRatio: 1},
			Nacos:     NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},

			Notification: NotificationConfig{Transport: "kafka", WebhookURL: "http://localhost:8095/notifications"},
		},
	}
}

// LoadConfig 读取 CONFIG_FILE（默认 configs/intelligence.yaml）。文件不存在时只使用默认值和环境变量。
func LoadConfig() (*Config, error) {
	return LoadConfigFile(getEnv("CONFIG_FILE", defaultConfigFile))
}

func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "read config file %s", path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 环境变量优先级最高，和部署脚本里的变量名保持一致
func (c *Config) applyEnv() error {
	c.App.ServiceName = getEnv("SERVICE_NAME", c.App.ServiceName)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getEnv("LOG_FORMAT", c.App.LogFormat)
	c.App.Timezone = getEnv("APP_TIMEZONE", c.App.Timezone)
	c.App.LockBackend = getEnv("LOCK_BACKEND", c.App.LockBackend)

	c.Infra.MySQL.Host = getEnv("MYSQL_HOST", c.Infra.MySQL.Host)
	c.Infra.MySQL.User = getEnv("MYSQL_USER", c.Infra.MySQL.User)
	c.Infra.MySQL.Password = getEnv("MYSQL_PASSWORD", c.Infra.MySQL.Password)
	c.Infra.MySQL.Database = getEnv("MYSQL_DATABASE", c.Infra.MySQL.Database)
	c.Infra.Redis.Addrs = getEnv("REDIS_ADDRS", c.Infra.Redis.Addrs)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.Infra.Nacos.Addrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.Addrs)
	c.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", c.Infra.Nacos.Namespace)
	c.Infra.Nacos.Group = getEnv("NACOS_GROUP", c.Infra.Nacos.Group)
	c.Infra.Notification.Transport = getEnv("NOTIFICATION_TRANSPORT", c.Infra.Notification.Transport)
	c.Infra.Notification.WebhookURL = getEnv("NOTIFICATION_WEBHOOK_URL", c.Infra.Notification.WebhookURL)

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok && v != "" {
		c.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("ZOOKEEPER_SERVERS"); ok && v != "" {
		c.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}

	var err error
	if c.App.Port, err = getEnvInt("PORT", c.App.Port); err != nil {
		return err
	}
	if c.Infra.MySQL.Port, err = getEnvInt("MYSQL_PORT", c.Infra.MySQL.Port); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("AUTO_POST_THRESHOLD"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "AUTO_POST_THRESHOLD=%q", v)
		}
		c.App.AutoPostThreshold = f
	}
	if v, ok := os.LookupEnv("NACOS_ENABLED"); ok {
		c.Infra.Nacos.Enabled = v == "true" || v == "1"
	}
	if v, ok := os.LookupEnv("SCHEDULER_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "SCHEDULER_INTERVAL=%q", v)
		}
		c.App.SchedulerInterval = d
	}
	return nil
}

// validate redis 锁没有续期，持锁期间的单次推送不能比锁活得更久
func (c *Config) validate() error {
	if c.App.LockBackend == "redis" && c.App.NotifyTimeout >= c.App.LockTTL {
		return errors.Errorf("notify_timeout %s must be shorter than lock_ttl %s", c.App.NotifyTimeout, c.App.LockTTL)
	}
	return nil
}

// Location 解析业务时区，用于时段分析和推送时间
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", c.App.Timezone)
	}
	return loc, nil
}

// DSN 由 go-sql-driver 拼装连接串，时间列按业务时区解析
func (m MySQLConfig) DSN(loc *time.Location) string {
	cfg := mysql.NewConfig()
	cfg.User = m.User
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = m.Host + ":" + strconv.Itoa(m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = loc
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s=%q", key, v)
	}
	return n, nil
}
