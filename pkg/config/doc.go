// Package config provides configuration types and loading utilities for
// channel-bridge and services embedding it.
//
// Usage:
//
//	import "github.com/Goden-Gun/channel-bridge/pkg/config"
//
//	type MyConfig struct {
//	    App    config.AppConfig    `yaml:"app" mapstructure:"app"`
//	    Socket config.SocketConfig `yaml:"socket" mapstructure:"socket"`
//	    Bridge config.BridgeConfig `yaml:"bridge" mapstructure:"bridge"`
//	    Log    config.LogConfig    `yaml:"log" mapstructure:"log"`
//	}
//
//	func LoadMyConfig() (*MyConfig, error) {
//	    cfg := &MyConfig{}
//	    if err := config.LoadConfig(cfg); err != nil {
//	        return nil, err
//	    }
//	    cfg.App.Env = config.GetEnv()
//	    cfg.Socket.ApplyDefaults()
//	    cfg.Bridge.ApplyDefaults()
//	    return cfg, nil
//	}
//
// Durations are written either as seconds or as Go duration strings ("30s").
package config
