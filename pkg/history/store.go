// Package history is the durable chat-history collaborator of the presence
// core. The core never reads from or writes to this store on its own: the
// Mirror subscribes to the presence observer bus and persists routed messages
// as a fire-and-forget hook, so storage failures can never block or roll back
// in-memory delivery.
package history

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tokmz/liao/pkg/presence"
)

// DBType 数据库类型
type DBType string

const (
	// MySQL MySQL 数据库
	MySQL DBType = "mysql"
	// PostgreSQL PostgreSQL 数据库
	PostgreSQL DBType = "postgres"
	// SQLite SQLite 数据库
	SQLite DBType = "sqlite"
)

// Config 存储配置
type Config struct {
	Type DBType // 数据库类型
	DSN  string // 连接串

	// 连接池
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// gorm 日志级别（1=Silent 2=Error 3=Warn 4=Info）
	LogLevel int
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Type:            SQLite,
		MaxIdleConns:    2,
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
		LogLevel:        2,
	}
}

// RoomRecord 房间行
//
// 与核心中的瞬态房间无关：这里只登记历史上出现过的房间名。
type RoomRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"uniqueIndex;size:191"`
	CreatedAt time.Time
}

// MessageRecord 消息行，软删除
type MessageRecord struct {
	ID              string `gorm:"primaryKey;size:64"` // 路由消息 ID
	Room            string `gorm:"index;size:191"`
	FromUserUUID    string `gorm:"index;size:64"`
	FromDisplayName string `gorm:"size:191"`
	ToUserUUID      string `gorm:"index;size:64"`
	Body            string
	SentAt          int64 // Unix 毫秒
	CreatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// Store 聊天历史存储
type Store struct {
	db *gorm.DB
}

// Open 打开存储并完成迁移
func Open(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history: DSN is required")
	}

	dialector, err := getDialector(cfg.Type, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			log.New(log.Writer(), "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.LogLevel(cfg.LogLevel),
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("history: failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("history: failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&RoomRecord{}, &MessageRecord{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// getDialector 根据数据库类型返回对应的 Dialector
func getDialector(dbType DBType, dsn string) (gorm.Dialector, error) {
	switch dbType {
	case MySQL:
		return mysql.Open(dsn), nil
	case PostgreSQL:
		return postgres.Open(dsn), nil
	case SQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("history: unsupported database type: %s", dbType)
	}
}

// EnsureRoom 登记房间名，已存在则无操作
func (s *Store) EnsureRoom(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where(RoomRecord{Name: name}).
		FirstOrCreate(&RoomRecord{Name: name}).Error
}

// SaveMessage 落盘一条已路由的消息
func (s *Store) SaveMessage(ctx context.Context, msg *presence.RoutedMessage) error {
	if msg.Room != "" {
		if err := s.EnsureRoom(ctx, msg.Room); err != nil {
			return err
		}
	}
	record := MessageRecord{
		ID:              msg.ID,
		Room:            msg.Room,
		FromUserUUID:    msg.FromUserUUID,
		FromDisplayName: msg.FromDisplayName,
		ToUserUUID:      msg.ToUserUUID,
		Body:            msg.Body,
		SentAt:          msg.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// ListMessages 按时间倒序读取一个房间最近的消息
func (s *Store) ListMessages(ctx context.Context, room string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []MessageRecord
	err := s.db.WithContext(ctx).
		Where("room = ?", room).
		Order("sent_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// DeleteMessage 软删除一条消息
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&MessageRecord{}, "id = ?", id).Error
}
