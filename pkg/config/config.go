// Package config loads application configuration from a YAML file with
// environment variable overrides, and can watch the file for changes.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Config 配置管理器
type Config struct {
	viper *viper.Viper
	mu    sync.RWMutex

	configFile string         // 配置文件完整路径
	envPrefix  string         // 环境变量前缀
	defaults   map[string]any // 默认配置值

	watcher *watcher // 文件监控
}

// Option 配置选项
type Option func(*Config)

// WithFile 设置配置文件路径
func WithFile(path string) Option {
	return func(c *Config) { c.configFile = path }
}

// WithEnvPrefix 设置环境变量前缀（如 "LIAO" 对应 LIAO_SERVER_ADDR）
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) { c.envPrefix = prefix }
}

// WithDefaults 设置默认值
func WithDefaults(defaults map[string]any) Option {
	return func(c *Config) { c.defaults = defaults }
}

// New 创建配置管理器
func New(opts ...Option) *Config {
	c := &Config{viper: viper.New()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load 加载配置
//
// 优先级：环境变量 > 配置文件 > 默认值。配置文件缺失不是错误，
// 允许纯环境变量/默认值运行。
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, value := range c.defaults {
		c.viper.SetDefault(key, value)
	}

	if c.envPrefix != "" {
		c.viper.SetEnvPrefix(c.envPrefix)
		c.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		c.viper.AutomaticEnv()
	}

	if c.configFile == "" {
		return nil
	}
	c.viper.SetConfigFile(c.configFile)
	if err := c.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", c.configFile, err)
	}
	return nil
}

// Unmarshal 解码到结构体
func (c *Config) Unmarshal(v any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.Unmarshal(v)
}

// GetString 读取字符串值
func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viper.GetString(key)
}

// Watch 开始监控配置文件变更
//
// 每次文件写入后重读配置并调用 onChange；重读失败调用 onError（可为 nil）。
func (c *Config) Watch(onChange func(), onError func(error)) error {
	if c.configFile == "" {
		return fmt.Errorf("config: no file to watch")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		return fmt.Errorf("config: already watching")
	}

	w, err := newWatcher(c.configFile, func() {
		c.mu.Lock()
		err := c.viper.ReadInConfig()
		c.mu.Unlock()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange()
		}
	})
	if err != nil {
		return err
	}
	c.watcher = w
	return nil
}

// Stop 停止监控
func (c *Config) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		c.watcher.stop()
		c.watcher = nil
	}
}
