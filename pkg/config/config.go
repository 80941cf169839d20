package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 队列驱动
const (
	QueueDriverRedis  = "redis"
	QueueDriverLmstfy = "lmstfy"
)

// Config 全局配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lmstfy    LmstfyConfig    `mapstructure:"lmstfy"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Anomaly   AnomalyConfig   `mapstructure:"anomaly"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Workers   []WorkerConfig  `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig API 服务配置
type ServerConfig struct {
	Port      string  `mapstructure:"port"`
	RateLimit float64 `mapstructure:"rate_limit"` // 每个客户端每秒请求数，0 表示不限
	Burst     int     `mapstructure:"burst"`
}

// MySQLConfig MySQL 配置
type MySQLConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// QueueConfig 事件队列配置
type QueueConfig struct {
	Driver      string `mapstructure:"driver"`       // redis / lmstfy
	Name        string `mapstructure:"name"`         // 事件队列名称
	MaxAttempts int    `mapstructure:"max_attempts"` // Release 的最大投递次数，超过后丢弃
}

// PipelineConfig 流水线配置
type PipelineConfig struct {
	PayloadLimit int `mapstructure:"payload_limit"` // 参与分析的 payload 最大字符数
	SummaryChars int `mapstructure:"summary_chars"` // 摘要截取的 payload 字符数
}

// AnomalyConfig 异常检测配置
type AnomalyConfig struct {
	WindowSize         int           `mapstructure:"window_size"` // 窗口容量 N
	TTL                time.Duration `mapstructure:"ttl"`
	RecordObservations bool          `mapstructure:"record_observations"` // 打分后是否写回窗口
}

// EmbeddingConfig 向量模型配置
type EmbeddingConfig struct {
	Backend  string        `mapstructure:"backend"` // http / hash
	Model    string        `mapstructure:"model"`
	Endpoint string        `mapstructure:"endpoint"`
	Token    string        `mapstructure:"token"`
	Dim      int           `mapstructure:"dim"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotifyConfig 通知配置
type NotifyConfig struct {
	List    string        `mapstructure:"list"`    // 本地通知列表
	Channel string        `mapstructure:"channel"` // 广播频道
	Upstash UpstashConfig `mapstructure:"upstash"`
}

// UpstashConfig 远端 REST 通道（可选）
type UpstashConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enabled 是否配置了远端通道
func (u UpstashConfig) Enabled() bool {
	return u.URL != "" && u.Token != ""
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	QueueName  string           `mapstructure:"queue_name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// setDefaults 注册默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "opsguard")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.burst", 40)

	v.SetDefault("mysql.max_open_conns", 10)

	v.SetDefault("redis.addr", "127.0.0.1:6379")

	v.SetDefault("lmstfy.port", 7777)

	v.SetDefault("queue.driver", QueueDriverRedis)
	v.SetDefault("queue.name", "events")
	v.SetDefault("queue.max_attempts", 3)

	v.SetDefault("pipeline.payload_limit", 8000)
	v.SetDefault("pipeline.summary_chars", 100)

	v.SetDefault("anomaly.window_size", 50)
	v.SetDefault("anomaly.ttl", time.Hour)
	v.SetDefault("anomaly.record_observations", true)

	v.SetDefault("embedding.backend", "hash")
	v.SetDefault("embedding.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embedding.dim", 384)
	v.SetDefault("embedding.cache_ttl", 24*time.Hour)
	v.SetDefault("embedding.timeout", 10*time.Second)

	v.SetDefault("notify.list", "agent_notifications")
	v.SetDefault("notify.channel", "incident_alerts")
	v.SetDefault("notify.upstash.timeout", 5*time.Second)

	v.SetDefault("metrics.addr", ":9090")
}

// Load 加载配置文件
// 环境变量 OPSGUARD_<SECTION>_<KEY> 覆盖文件中的值
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("OPSGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	if len(cfg.Workers) == 0 {
		cfg.Workers = []WorkerConfig{DefaultWorker(cfg.Queue.Name)}
	}
	for i := range cfg.Workers {
		cfg.Workers[i].applyDefaults(cfg.Queue.Name)
	}

	return &cfg, nil
}

// DefaultWorker 单线程拉取循环的默认配置
func DefaultWorker(queue string) WorkerConfig {
	w := WorkerConfig{Name: "incident-pipeline", QueueName: queue}
	w.applyDefaults(queue)
	return w
}

func (w *WorkerConfig) applyDefaults(queue string) {
	if w.QueueName == "" {
		w.QueueName = queue
	}
	if w.Subscriber.Threads <= 0 {
		w.Subscriber.Threads = 1
	}
	if w.Subscriber.Timeout <= 0 {
		w.Subscriber.Timeout = 5 * time.Second
	}
	if w.Subscriber.TTR <= 0 {
		w.Subscriber.TTR = 60 * time.Second
	}
	if w.Subscriber.ErrorBackoff <= 0 {
		w.Subscriber.ErrorBackoff = time.Second
	}
	if w.Processor.Threads <= 0 {
		w.Processor.Threads = 1
	}
	if w.Processor.Timeout <= 0 {
		w.Processor.Timeout = 2 * time.Minute
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	switch c.Queue.Driver {
	case QueueDriverRedis:
	case QueueDriverLmstfy:
		if c.Lmstfy.Host == "" {
			return fmt.Errorf("lmstfy.host is required when queue.driver=lmstfy")
		}
	default:
		return fmt.Errorf("unknown queue.driver: %q", c.Queue.Driver)
	}
	if c.Queue.Name == "" {
		return fmt.Errorf("queue.name is required")
	}
	if c.Anomaly.WindowSize <= 0 {
		return fmt.Errorf("anomaly.window_size must be positive")
	}
	if c.Pipeline.PayloadLimit <= 0 || c.Pipeline.SummaryChars <= 0 {
		return fmt.Errorf("pipeline.payload_limit and pipeline.summary_chars must be positive")
	}
	switch c.Embedding.Backend {
	case "hash":
	case "http":
		if c.Embedding.Endpoint == "" {
			return fmt.Errorf("embedding.endpoint is required when embedding.backend=http")
		}
	default:
		return fmt.Errorf("unknown embedding.backend: %q", c.Embedding.Backend)
	}
	if c.Embedding.Dim <= 0 {
		return fmt.Errorf("embedding.dim must be positive")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	return nil
}
