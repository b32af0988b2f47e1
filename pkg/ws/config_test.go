package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestConfig_Validate 测试配置校验
func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max connections", func(c *Config) { c.MaxConnections = 0 }},
		{"zero message size", func(c *Config) { c.MaxMessageSize = 0 }},
		{"zero heartbeat interval", func(c *Config) { c.HeartbeatInterval = 0 }},
		{"timeout not greater than interval", func(c *Config) { c.HeartbeatTimeout = c.HeartbeatInterval }},
		{"zero send queue", func(c *Config) { c.SendQueueSize = 0 }},
		{"zero high send queue", func(c *Config) { c.HighSendQueueSize = 0 }},
		{"zero write wait", func(c *Config) { c.WriteWait = 0 }},
		{"zero read buffer", func(c *Config) { c.UpgraderConfig.ReadBufferSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

// TestOptions 测试配置选项
func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithMaxConnections(500),
		WithMessageSizeLimit(32 * 1024),
		WithHeartbeat(10*time.Second, 35*time.Second),
		WithSendQueueSizes(128, 32),
	} {
		opt(cfg)
	}

	if cfg.MaxConnections != 500 {
		t.Errorf("MaxConnections: got %d", cfg.MaxConnections)
	}
	if cfg.MaxMessageSize != 32*1024 {
		t.Errorf("MaxMessageSize: got %d", cfg.MaxMessageSize)
	}
	if cfg.HeartbeatInterval != 10*time.Second || cfg.HeartbeatTimeout != 35*time.Second {
		t.Errorf("heartbeat: got %v/%v", cfg.HeartbeatInterval, cfg.HeartbeatTimeout)
	}
	if cfg.SendQueueSize != 128 || cfg.HighSendQueueSize != 32 {
		t.Errorf("queues: got %d/%d", cfg.SendQueueSize, cfg.HighSendQueueSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func originRequest(host, origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "http://"+host+"/ws", nil)
	r.Host = host
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

// TestDefaultCheckOrigin 测试默认同源策略
func TestDefaultCheckOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"same origin http", "http://example.com", true},
		{"same origin https", "https://example.com", true},
		{"cross origin", "http://evil.com", false},
		{"empty origin rejected", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultCheckOrigin(originRequest("example.com", tt.origin)); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestWhitelistChecker 测试 Origin 白名单
func TestWhitelistChecker(t *testing.T) {
	check := createWhitelistChecker([]string{"https://app.example.com"})

	if !check(originRequest("api.example.com", "https://app.example.com")) {
		t.Error("whitelisted origin rejected")
	}
	if check(originRequest("api.example.com", "https://other.example.com")) {
		t.Error("non-whitelisted origin accepted")
	}
	if check(originRequest("api.example.com", "")) {
		t.Error("empty origin accepted")
	}
}

// TestNewUpgrader_CheckOriginFallback 测试 Upgrader 的 Origin 检查回退顺序
func TestNewUpgrader_CheckOriginFallback(t *testing.T) {
	// 显式函数优先
	up := newUpgrader(UpgraderConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
		AllowedOrigins:  []string{"https://never.example.com"},
	})
	if !up.CheckOrigin(originRequest("example.com", "http://anything.example.com")) {
		t.Error("explicit CheckOrigin not used")
	}

	// 无显式函数时使用白名单
	up = newUpgrader(UpgraderConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		AllowedOrigins:  []string{"https://app.example.com"},
	})
	if !up.CheckOrigin(originRequest("example.com", "https://app.example.com")) {
		t.Error("whitelist not applied")
	}
	if up.CheckOrigin(originRequest("example.com", "http://example.com")) {
		t.Error("same-origin accepted despite whitelist")
	}
}
