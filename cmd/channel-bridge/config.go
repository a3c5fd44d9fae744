package main

import (
	"github.com/google/uuid"

	"github.com/Goden-Gun/channel-bridge/pkg/config"
)

// Config 运行时完整配置，对应 configs/config_<APP_ENV>.yaml
type Config struct {
	App     config.AppConfig     `yaml:"app" mapstructure:"app"`
	Log     config.LogConfig     `yaml:"log" mapstructure:"log"`
	Socket  config.SocketConfig  `yaml:"socket" mapstructure:"socket"`
	Bridge  config.BridgeConfig  `yaml:"bridge" mapstructure:"bridge"`
	Auth    config.AuthConfig    `yaml:"auth" mapstructure:"auth"`
	Redis   config.RedisConfig   `yaml:"redis" mapstructure:"redis"`
	Kafka   config.KafkaConfig   `yaml:"kafka" mapstructure:"kafka"`
	Intake  config.IntakeConfig  `yaml:"intake" mapstructure:"intake"`
	Sink    config.SinkConfig    `yaml:"sink" mapstructure:"sink"`
	Tracing config.TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics config.MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults 应用所有配置段的默认值
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "channel-bridge"
	}
	if c.App.Env == "" {
		c.App.Env = config.GetEnv()
	}
	if c.App.NodeID == "" {
		c.App.NodeID = config.GetNodeID("NODE_ID", "POD_NAME")
	}
	if c.App.NodeID == "" {
		c.App.NodeID = uuid.NewString()
	}
	c.Log.ApplyDefaults()
	c.Socket.ApplyDefaults()
	c.Bridge.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Intake.ApplyDefaults()
	c.Metrics.ApplyDefaults()
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.App.Name
	}
	c.Tracing.ApplyDefaults()
}

// loadConfig 加载 YAML + 环境变量，并从 Docker Secrets / 环境变量注入密钥
func loadConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	secrets := []config.SecretDefinition{
		{Name: "SOCKET_SECRET", Target: &cfg.Auth.Secret},
		{Name: "REDIS_PASSWORD", Target: &cfg.Redis.Password},
		{Name: "KAFKA_PASSWORD", Target: &cfg.Kafka.Password},
	}
	if err := config.LoadConfigWithSecrets(cfg, secrets, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
