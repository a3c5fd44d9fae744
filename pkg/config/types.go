package config

// ==================== 基础配置 ====================

// AppConfig 应用基础配置
type AppConfig struct {
	Env    string `yaml:"env" mapstructure:"env"`
	Name   string `yaml:"name" mapstructure:"name"`
	NodeID string `yaml:"node_id" mapstructure:"node_id"`
}

// LogConfig 日志配置
type LogConfig struct {
	Format       string        `yaml:"format" mapstructure:"format"`
	Level        string        `yaml:"level" mapstructure:"level"`
	ReportCaller bool          `yaml:"report_caller" mapstructure:"report_caller"`
	File         LogFileConfig `yaml:"file" mapstructure:"file"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir          string `yaml:"dir" mapstructure:"dir"`
	Filename     string `yaml:"filename" mapstructure:"filename"`
	MaxAgeDays   int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	RotationDays int    `yaml:"rotation_days" mapstructure:"rotation_days"`
}

// ==================== Socket / Bridge 配置 ====================

// SocketConfig Phoenix socket 连接配置
type SocketConfig struct {
	Endpoint            string            `yaml:"endpoint" mapstructure:"endpoint"`
	Params              map[string]string `yaml:"params" mapstructure:"params"`
	Headers             map[string]string `yaml:"headers" mapstructure:"headers"`
	HeartbeatInterval   Duration          `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
	ReconnectBackoff    Duration          `yaml:"reconnect_backoff" mapstructure:"reconnect_backoff"`
	MaxReconnectBackoff Duration          `yaml:"max_reconnect_backoff" mapstructure:"max_reconnect_backoff"`
	RejoinAfter         Duration          `yaml:"rejoin_after" mapstructure:"rejoin_after"`
	DialTimeout         Duration          `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	WriteTimeout        Duration          `yaml:"write_timeout" mapstructure:"write_timeout"`
	// JoinTimeout join/leave 默认超时
	JoinTimeout Duration `yaml:"join_timeout" mapstructure:"join_timeout"`
	// Topics 启动后自动加入的频道
	Topics []string `yaml:"topics" mapstructure:"topics"`
}

// PolicyRule 事件策略规则
type PolicyRule struct {
	Kind        string `yaml:"kind" mapstructure:"kind"`
	TopicPrefix string `yaml:"topic_prefix" mapstructure:"topic_prefix"`
	Action      string `yaml:"action" mapstructure:"action"`
}

// BridgeConfig bridge 核心配置
type BridgeConfig struct {
	PushTimeout    Duration     `yaml:"push_timeout" mapstructure:"push_timeout"`
	EventBuffer    int          `yaml:"event_buffer" mapstructure:"event_buffer"`
	SkipPrefixes   []string     `yaml:"skip_prefixes" mapstructure:"skip_prefixes"`
	Rules          []PolicyRule `yaml:"rules" mapstructure:"rules"`
	CloseReplaced  bool         `yaml:"close_replaced" mapstructure:"close_replaced"`
	PropagateTrace bool         `yaml:"propagate_trace" mapstructure:"propagate_trace"`
}

// ==================== 认证配置 ====================

// AuthConfig socket token 配置，Secret 通过 SOCKET_SECRET 注入
type AuthConfig struct {
	Secret    string   `yaml:"secret" mapstructure:"secret"`
	Subject   string   `yaml:"subject" mapstructure:"subject"`
	Issuer    string   `yaml:"issuer" mapstructure:"issuer"`
	TTL       Duration `yaml:"ttl" mapstructure:"ttl"`
	ClockSkew Duration `yaml:"clock_skew" mapstructure:"clock_skew"`
	// RevokeOnExit 退出时把签发的 token 写入 Redis 黑名单
	RevokeOnExit bool `yaml:"revoke_on_exit" mapstructure:"revoke_on_exit"`
}

// ==================== 基础设施配置 ====================

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Db       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers       []string `yaml:"brokers" mapstructure:"brokers"`
	Topic         string   `yaml:"topic" mapstructure:"topic"`
	ClientID      string   `yaml:"client_id" mapstructure:"client_id"`
	Username      string   `yaml:"username" mapstructure:"username"`
	Password      string   `yaml:"password" mapstructure:"password"`
	SASLMechanism string   `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"`
	TLSEnabled    bool     `yaml:"tls_enabled" mapstructure:"tls_enabled"`
	RequiredAcks  string   `yaml:"required_acks" mapstructure:"required_acks"`
	MaxAttempts   int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	// CommandTopic / ConsumerGroup 用于 kafka 命令来源
	CommandTopic  string `yaml:"command_topic" mapstructure:"command_topic"`
	ConsumerGroup string `yaml:"consumer_group" mapstructure:"consumer_group"`
}

// ==================== 输入输出配置 ====================

// IntakeConfig 命令来源: "stdin" | "redis" | "kafka" | "none"
type IntakeConfig struct {
	Source string `yaml:"source" mapstructure:"source"`
}

// SinkConfig 事件输出
type SinkConfig struct {
	Log   bool `yaml:"log" mapstructure:"log"`
	Kafka bool `yaml:"kafka" mapstructure:"kafka"`
	Redis bool `yaml:"redis" mapstructure:"redis"`
}

// ==================== 可观测性配置 ====================

// TracingConfig 分布式追踪配置
type TracingConfig struct {
	Exporter     string            `yaml:"exporter" mapstructure:"exporter"`
	Endpoint     string            `yaml:"endpoint" mapstructure:"endpoint"`
	ServiceName  string            `yaml:"service_name" mapstructure:"service_name"`
	Insecure     bool              `yaml:"insecure" mapstructure:"insecure"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`
	SampleRatio  float64           `yaml:"sample_ratio" mapstructure:"sample_ratio"`
	ResourceTags map[string]string `yaml:"resource_tags" mapstructure:"resource_tags"`
}

// MetricsConfig 指标暴露配置
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	Path string `yaml:"path" mapstructure:"path"`
}
