package config

// ==================== LogConfig 默认值 ====================

// ApplyDefaults 应用日志配置默认值
func (l *LogConfig) ApplyDefaults() {
	if l.Format == "" {
		l.Format = "json"
	}
	if l.Level == "" {
		l.Level = "info"
	}
	if l.File.Dir == "" {
		l.File.Dir = "./logs"
	}
	if l.File.MaxAgeDays <= 0 {
		l.File.MaxAgeDays = 7
	}
	if l.File.RotationDays <= 0 {
		l.File.RotationDays = 1
	}
}

// ==================== SocketConfig 默认值 ====================

// ApplyDefaults 应用 socket 配置默认值
func (s *SocketConfig) ApplyDefaults() {
	if s.HeartbeatInterval <= 0 {
		s.HeartbeatInterval = 30
	}
	if s.ReconnectBackoff <= 0 {
		s.ReconnectBackoff = 1
	}
	if s.MaxReconnectBackoff <= 0 {
		s.MaxReconnectBackoff = 15
	}
	if s.RejoinAfter <= 0 {
		s.RejoinAfter = 1
	}
	if s.DialTimeout <= 0 {
		s.DialTimeout = 5
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = 10
	}
	if s.JoinTimeout <= 0 {
		s.JoinTimeout = 10
	}
}

// ==================== BridgeConfig 默认值 ====================

// ApplyDefaults 应用 bridge 配置默认值
func (b *BridgeConfig) ApplyDefaults() {
	if b.PushTimeout <= 0 {
		b.PushTimeout = 10
	}
	if b.EventBuffer <= 0 {
		b.EventBuffer = 256
	}
}

// ==================== AuthConfig 默认值 ====================

// ApplyDefaults 应用认证配置默认值
func (a *AuthConfig) ApplyDefaults() {
	if a.Subject == "" {
		a.Subject = "channel-bridge"
	}
	if a.TTL <= 0 {
		a.TTL = 3600
	}
	if a.ClockSkew < 0 {
		a.ClockSkew = 0
	}
}

// ==================== RedisConfig 默认值 ====================

// ApplyDefaults 应用 Redis 配置默认值
func (r *RedisConfig) ApplyDefaults() {
	if r.Addr == "" {
		r.Addr = "127.0.0.1:6379"
	}
	if r.Prefix == "" {
		r.Prefix = "channel-bridge"
	}
}

// ==================== KafkaConfig 默认值 ====================

// ApplyDefaults 应用 Kafka 配置默认值
func (k *KafkaConfig) ApplyDefaults() {
	if k.Topic == "" {
		k.Topic = "channel-bridge.events"
	}
	if k.ClientID == "" {
		k.ClientID = "channel-bridge"
	}
	if k.MaxAttempts <= 0 {
		k.MaxAttempts = 3
	}
	if k.CommandTopic == "" {
		k.CommandTopic = "channel-bridge.commands"
	}
	if k.ConsumerGroup == "" {
		k.ConsumerGroup = "channel-bridge"
	}
}

// ==================== IntakeConfig 默认值 ====================

// ApplyDefaults 应用命令来源默认值
func (i *IntakeConfig) ApplyDefaults() {
	if i.Source == "" {
		i.Source = "stdin"
	}
}

// ==================== MetricsConfig 默认值 ====================

// ApplyDefaults 应用 Metrics 配置默认值
func (m *MetricsConfig) ApplyDefaults() {
	if m.Addr == "" {
		m.Addr = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// ==================== TracingConfig 默认值 ====================

// ApplyDefaults 应用 Tracing 配置默认值
func (t *TracingConfig) ApplyDefaults() {
	if t.Exporter == "" {
		t.Exporter = "disabled"
	}
	if t.SampleRatio <= 0 {
		t.SampleRatio = 1.0
	}
}
