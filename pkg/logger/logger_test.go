package logger

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

// TestNew_Defaults 测试空配置回退到控制台 info 级别
func TestNew_Defaults(t *testing.T) {
	log, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info level not enabled by default")
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level enabled by default")
	}
}

// TestNew_InvalidLevel 测试非法级别报错
func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "chatty"}); err == nil {
		t.Fatal("invalid level accepted")
	}
}

// TestNew_FileOutput 测试文件输出可写
func TestNew_FileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	log, err := New(&Config{Level: "debug", Filename: file})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("hello")
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
