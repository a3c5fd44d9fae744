package config

import (
	"os"
	"strings"
)

// GetSecretOrEnv 从 Docker Secret 文件或环境变量读取敏感信息
// 优先级: {NAME}_FILE 指定的文件 > {NAME} 环境变量 > 默认值
//
// 示例:
//
//	secret := GetSecretOrEnv("SOCKET_SECRET", "")
//	// 如果 SOCKET_SECRET_FILE=/run/secrets/socket-secret 存在，读取文件内容
//	// 否则读取 SOCKET_SECRET 环境变量
func GetSecretOrEnv(name string, defaultValue string) string {
	if filePath := os.Getenv(name + "_FILE"); filePath != "" {
		if data, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	if value := os.Getenv(name); value != "" {
		return value
	}
	return defaultValue
}

// SecretDefinition Secret 定义
type SecretDefinition struct {
	Name     string  // Secret 名称 (如 SOCKET_SECRET)
	Target   *string // 目标字段指针
	Default  string  // 默认值，为空时保留配置文件中的值
	Required bool    // 是否必需
}

// LoadConfigWithSecrets 加载配置并注入 Secrets
//
// 示例:
//
//	cfg := &Config{}
//	secretDefs := []SecretDefinition{
//	    {Name: "SOCKET_SECRET", Target: &cfg.Auth.Secret},
//	    {Name: "REDIS_PASSWORD", Target: &cfg.Redis.Password},
//	}
//	if err := LoadConfigWithSecrets(cfg, secretDefs); err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigWithSecrets(cfg interface{}, secrets []SecretDefinition, opts ...LoadOptions) error {
	if err := LoadConfig(cfg, opts...); err != nil {
		return err
	}

	for _, s := range secrets {
		fallback := s.Default
		if fallback == "" && s.Target != nil {
			fallback = *s.Target
		}
		value := GetSecretOrEnv(s.Name, fallback)
		if s.Required && value == "" {
			return &SecretNotFoundError{Name: s.Name}
		}
		if s.Target != nil {
			*s.Target = value
		}
	}
	return nil
}

// SecretNotFoundError Secret 未找到错误
type SecretNotFoundError struct {
	Name string
}

func (e *SecretNotFoundError) Error() string {
	return "required secret not found: " + e.Name
}
