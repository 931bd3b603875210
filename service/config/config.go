/*
 * @module service/config/config
 * @description 服务配置：默认值 -> 配置文件（YAML） -> 环境变量覆盖 -> 校验
 * @architecture 分层架构 - 基础设施层
 * @documentReference DESIGN.md
 * @stateFlow 加载默认配置 -> 读取配置文件 -> 应用环境变量 -> 校验
 * @rules 环境变量优先级最高；Redis 与 Kafka 未配置时对应功能关闭
 * @dependencies gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs service/init
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPaths 未指定 CONFIG_FILE 时依次尝试的配置文件
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// Config 服务配置
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Catalogs   CatalogConfig    `yaml:"catalogs"`
	Validation ValidationConfig `yaml:"validation"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Listener   ListenerConfig   `yaml:"listener"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port        int    `yaml:"port"`
	BaseContext string `yaml:"base_context"`
}

// DatabaseConfig 数据库配置，URL 非空时优先使用
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Schema   string `yaml:"schema"`
	TimeZone string `yaml:"time_zone"`
}

// DSN 数据库连接串
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Schema, d.TimeZone)
}

// RedisConfig 分布式锁使用的 Redis 配置
type RedisConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	KeyPrefix     string        `yaml:"key_prefix"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
	RenewInterval time.Duration `yaml:"renew_interval"`
}

// Enabled 是否配置了 Redis
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// KafkaConfig 校验变更通知配置
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled 是否配置了 Kafka
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// CatalogConfig 外部目录配置
type CatalogConfig struct {
	HCAURL          string        `yaml:"hca_url"`
	CellxGeneURL    string        `yaml:"cellxgene_url"`
	CrossrefURL     string        `yaml:"crossref_url"`
	Quiescence      time.Duration `yaml:"quiescence"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`

	// Crossref 请求配额，多实例通过 Redis 共享；为 0 或未配置 Redis 时不限流
	CrossrefRateLimit  int           `yaml:"crossref_rate_limit"`
	CrossrefRateWindow time.Duration `yaml:"crossref_rate_window"`
}

// ValidationConfig 校验参数
type ValidationConfig struct {
	TitleSimilarityThreshold float64 `yaml:"title_similarity_threshold"`
	MinMetadataTier          int     `yaml:"min_metadata_tier"`
}

// SchedulerConfig 定时全量刷新配置，RefreshCron 为空时不启动
type SchedulerConfig struct {
	RefreshCron    string        `yaml:"refresh_cron"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// ListenerConfig 源实体变更监听配置
type ListenerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default 默认配置
func Default() *Config {
	return &Config{
		LogLevel: "debug",
		Server: ServerConfig{
			Port: 80,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
			Schema:   "public",
			TimeZone: "UTC",
		},
		Redis: RedisConfig{
			Port:          6379,
			LockTTL:       30 * time.Minute,
			RenewInterval: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Topic: "atlas-tracker.validation-changes",
		},
		Catalogs: CatalogConfig{
			HCAURL:          "https://service.azul.data.humancellatlas.org",
			CellxGeneURL:    "https://api.cellxgene.cziscience.com",
			CrossrefURL:     "https://api.crossref.org",
			Quiescence:      4 * time.Hour,
			RefreshInterval: 4 * time.Hour,
			FetchTimeout:    30 * time.Minute,

			CrossrefRateLimit:  40,
			CrossrefRateWindow: time.Second,
		},
		Validation: ValidationConfig{
			TitleSimilarityThreshold: 0.9,
			MinMetadataTier:          1,
		},
		Scheduler: SchedulerConfig{
			RefreshCron:    "0 0 * * * *",
			RefreshTimeout: 2 * time.Hour,
		},
		Listener: ListenerConfig{
			Enabled: true,
		},
	}
}

// Load 按 默认值 -> 配置文件 -> 环境变量 的顺序加载配置
func Load() (*Config, error) {
	cfg := Default()

	paths := DefaultConfigPaths
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		paths = []string{path}
	}
	if err := loadFile(cfg, paths); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

// loadFile 读取第一个存在的配置文件，均不存在时保持默认值
func loadFile(cfg *Config, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return fmt.Errorf("不支持的配置文件格式: %s", ext)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
		return nil
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnvOverrides 环境变量覆盖，非法取值返回错误
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("LOG_LEVEL", &cfg.LogLevel)
	env.integer("LISTEN_PORT", &cfg.Server.Port)
	env.str("BASE_CONTEXT", &cfg.Server.BaseContext)

	env.str("DATABASE_URL", &cfg.Database.URL)
	env.str("DB_HOST", &cfg.Database.Host)
	env.integer("DB_PORT", &cfg.Database.Port)
	env.str("DB_USER", &cfg.Database.User)
	env.str("DB_PASSWORD", &cfg.Database.Password)
	env.str("DB_NAME", &cfg.Database.Name)
	env.str("DB_SSLMODE", &cfg.Database.SSLMode)
	env.str("DB_SCHEMA", &cfg.Database.Schema)
	env.str("DB_TIMEZONE", &cfg.Database.TimeZone)

	env.str("REDIS_HOST", &cfg.Redis.Host)
	env.integer("REDIS_PORT", &cfg.Redis.Port)
	env.str("REDIS_PASSWORD", &cfg.Redis.Password)
	env.integer("REDIS_DB", &cfg.Redis.DB)
	env.str("REDIS_KEY_PREFIX", &cfg.Redis.KeyPrefix)
	env.duration("REVALIDATION_LOCK_TTL", &cfg.Redis.LockTTL)
	env.duration("REVALIDATION_LOCK_RENEW_INTERVAL", &cfg.Redis.RenewInterval)

	env.list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	env.str("KAFKA_TOPIC", &cfg.Kafka.Topic)

	env.str("HCA_API_URL", &cfg.Catalogs.HCAURL)
	env.str("CELLXGENE_API_URL", &cfg.Catalogs.CellxGeneURL)
	env.str("CROSSREF_API_URL", &cfg.Catalogs.CrossrefURL)
	env.duration("REFRESH_QUIESCENCE", &cfg.Catalogs.Quiescence)
	env.duration("CELLXGENE_REFRESH_INTERVAL", &cfg.Catalogs.RefreshInterval)
	env.duration("CATALOG_FETCH_TIMEOUT", &cfg.Catalogs.FetchTimeout)
	env.integer("CROSSREF_RATE_LIMIT", &cfg.Catalogs.CrossrefRateLimit)
	env.duration("CROSSREF_RATE_WINDOW", &cfg.Catalogs.CrossrefRateWindow)

	env.number("TITLE_SIMILARITY_THRESHOLD", &cfg.Validation.TitleSimilarityThreshold)
	env.integer("MIN_METADATA_TIER", &cfg.Validation.MinMetadataTier)

	env.str("REFRESH_CRON", &cfg.Scheduler.RefreshCron)
	env.duration("REFRESH_TIMEOUT", &cfg.Scheduler.RefreshTimeout)

	env.boolean("ENTITY_LISTENER_ENABLED", &cfg.Listener.Enabled)

	return errors.Join(env.errs...)
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" && c.Database.Host == "" {
		errs = append(errs, errors.New("数据库主机不能为空"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("服务端口无效: %d", c.Server.Port))
	}
	if c.Validation.TitleSimilarityThreshold <= 0 || c.Validation.TitleSimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("标题相似度阈值需在 (0, 1] 之间: %v", c.Validation.TitleSimilarityThreshold))
	}
	if c.Validation.MinMetadataTier < 0 {
		errs = append(errs, fmt.Errorf("最低元数据等级无效: %d", c.Validation.MinMetadataTier))
	}
	if c.Catalogs.Quiescence <= 0 || c.Catalogs.RefreshInterval <= 0 {
		errs = append(errs, errors.New("目录刷新间隔必须为正"))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("已配置Kafka但未指定主题"))
	}
	return errors.Join(errs...)
}

// envReader 读取并转换环境变量，记录所有转换错误
type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) value(key string) (string, bool) {
	value, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (e *envReader) str(key string, dest *string) {
	if value, ok := e.value(key); ok {
		*dest = value
	}
}

func (e *envReader) integer(key string, dest *int) {
	if value, ok := e.value(key); ok {
		parsed, err := cast.ToIntE(value)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dest = parsed
	}
}

func (e *envReader) number(key string, dest *float64) {
	if value, ok := e.value(key); ok {
		parsed, err := cast.ToFloat64E(value)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dest = parsed
	}
}

func (e *envReader) boolean(key string, dest *bool) {
	if value, ok := e.value(key); ok {
		parsed, err := cast.ToBoolE(value)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dest = parsed
	}
}

func (e *envReader) duration(key string, dest *time.Duration) {
	if value, ok := e.value(key); ok {
		parsed, err := cast.ToDurationE(value)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dest = parsed
	}
}

// list 逗号分隔
func (e *envReader) list(key string, dest *[]string) {
	if value, ok := e.value(key); ok {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*dest = items
	}
}
