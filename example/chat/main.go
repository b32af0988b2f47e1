// Command chat runs a standalone chat gateway: a gin server exposing the
// WebSocket endpoint backed by the presence core, with optional durable
// history mirroring.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/liao/pkg/config"
	"github.com/tokmz/liao/pkg/history"
	"github.com/tokmz/liao/pkg/logger"
	"github.com/tokmz/liao/pkg/presence"
	"github.com/tokmz/liao/pkg/ws"
)

// serverConfig 服务配置
type serverConfig struct {
	Server struct {
		Addr           string   `mapstructure:"addr"`
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		MaxConnections int      `mapstructure:"max_connections"`
	} `mapstructure:"server"`

	Chat struct {
		// Policy 房间成员策略：multi_room / single_room
		Policy string `mapstructure:"policy"`
	} `mapstructure:"chat"`

	History struct {
		Enabled bool   `mapstructure:"enabled"`
		Type    string `mapstructure:"type"` // sqlite / mysql / postgres
		DSN     string `mapstructure:"dsn"`
	} `mapstructure:"history"`

	Log logger.Config `mapstructure:"log"`
}

func main() {
	cfgFile := os.Getenv("LIAO_CONFIG")
	if cfgFile == "" {
		cfgFile = "config.yaml"
	}

	loader := config.New(
		config.WithFile(cfgFile),
		config.WithEnvPrefix("LIAO"),
		config.WithDefaults(map[string]any{
			"server.addr":            ":8080",
			"server.max_connections": 10000,
			"chat.policy":            "multi_room",
			"history.type":           "sqlite",
			"log.level":              "info",
			"log.console":            true,
		}),
	)
	if err := loader.Load(); err != nil {
		panic(err)
	}
	var cfg serverConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		panic(err)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	policy := presence.PolicyMultiRoom
	if cfg.Chat.Policy == "single_room" {
		policy = presence.PolicySingleRoom
	}

	state := presence.New(
		presence.WithPolicy(policy),
		presence.WithLogger(log),
	)
	defer state.Close()

	// 历史镜像：旁路落盘，失败不影响在线投递
	if cfg.History.Enabled {
		store, err := history.Open(&history.Config{
			Type: history.DBType(cfg.History.Type),
			DSN:  cfg.History.DSN,
		})
		if err != nil {
			log.Fatal("open history store", zap.Error(err))
		}
		history.NewMirror(store, log).Attach(state.Bus())
		log.Info("history mirror enabled", zap.String("type", cfg.History.Type))
	}

	gatewayOpts := []ws.Option{
		ws.WithMaxConnections(cfg.Server.MaxConnections),
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		gatewayOpts = append(gatewayOpts, ws.WithCheckOriginWhitelist(cfg.Server.AllowedOrigins))
	} else {
		gatewayOpts = append(gatewayOpts, ws.WithAllowAllOrigins())
	}
	gateway, err := ws.NewGateway(state, gatewayOpts...)
	if err != nil {
		log.Fatal("create gateway", zap.Error(err))
	}
	gateway.SetLogger(log)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/ws", func(c *gin.Context) {
		_ = gateway.HandleUpgrade(c.Writer, c.Request)
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"connections": gateway.ClientCount(),
			"rooms":       state.Rooms().RoomCount(),
		})
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return gateway.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", zap.Error(err))
	}
}
