package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Duration 支持 YAML/JSON 反序列化，单位为秒
// 可以从数字（秒数）或字符串（如 "30s"）解析
type Duration int64

// Duration 返回 time.Duration 值
func (d Duration) Duration() time.Duration {
	return time.Duration(d) * time.Second
}

// Seconds 返回秒数
func (d Duration) Seconds() int64 {
	return int64(d)
}

// SecondsInt 返回 int 类型的秒数
func (d Duration) SecondsInt() int {
	return int(d)
}

// DurationHook 把 "30s" / "2m" 这样的字符串解析为 Duration，纯数字按秒处理
func DurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(Duration(0))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != durationType || from.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if s == "" {
			return Duration(0), nil
		}
		if d, err := time.ParseDuration(s); err == nil {
			return Duration(d / time.Second), nil
		}
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q", s)
		}
		return Duration(secs), nil
	}
}
