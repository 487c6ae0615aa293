package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chatkuy_server/internal/config"
	dao "chatkuy_server/internal/dao/mysql"
	myredis "chatkuy_server/internal/dao/redis"
	"chatkuy_server/internal/handler"
	"chatkuy_server/internal/https_server"
	"chatkuy_server/internal/infrastructure/logger"
	"chatkuy_server/internal/service"
	"chatkuy_server/internal/service/auth"
	"chatkuy_server/internal/service/chat"
	"chatkuy_server/internal/service/friendship"
	"chatkuy_server/internal/service/message"
	"chatkuy_server/internal/service/presence"
	"chatkuy_server/internal/service/readstate"
	"chatkuy_server/pkg/util/jwt"
	"chatkuy_server/pkg/util/snowflake"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功")

	// 3. 初始化参数校验翻译
	if err := handler.InitTrans("zh"); err != nil {
		zap.L().Fatal("初始化校验翻译失败", zap.Error(err))
	}

	// 4. 初始化数据库
	repos, err := dao.Init(&conf.DatabaseConfig)
	if err != nil {
		zap.L().Fatal("数据库初始化失败", zap.Error(err))
	}
	zap.L().Info("数据库初始化成功", zap.String("driver", conf.DatabaseConfig.Driver))

	// 5. 初始化 Redis
	cache, err := myredis.Init(&conf.RedisConfig)
	if err != nil {
		zap.L().Fatal("Redis 初始化失败", zap.Error(err))
	}
	zap.L().Info("Redis 初始化成功")

	// 6. 初始化 JWT 和雪花算法
	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	snowflake.Init(conf.SnowflakeConfig.MachineID)

	// 7. 初始化消息存储和投递代理
	store := message.NewStore(repos, cache, message.Options{
		DefaultLimit:  conf.ChatConfig.HistoryDefaultLimit,
		MaxLimit:      conf.ChatConfig.HistoryMaxLimit,
		ReadBatchSize: conf.ChatConfig.ReadBatchSize,
	})
	registry := chat.NewRegistry()
	var broker chat.MessageBroker
	if conf.KafkaConfig.MessageMode == "kafka" {
		nodeId := strconv.FormatInt(conf.SnowflakeConfig.MachineID, 10)
		broker = chat.NewKafkaBroker(chat.NewKafkaClient(conf.KafkaConfig, nodeId), registry)
	} else {
		broker = chat.NewStandaloneBroker(registry)
	}
	zap.L().Info("投递代理初始化成功", zap.String("mode", conf.KafkaConfig.MessageMode))

	// 8. 初始化 Service 层 (依赖注入)
	gate := friendship.NewGate(repos.Contact)
	authSvc := auth.NewAuthService(repos.User)
	reads := readstate.NewService(gate, store, chat.NewNotifier(broker))
	presenceSvc := presence.NewService(gate, registry)
	chatServer := chat.NewServer(chat.ServerConfig{
		Registry:    registry,
		Broker:      broker,
		Verifier:    authSvc,
		Gate:        gate,
		Store:       store,
		History:     reads,
		SendBuffer:  conf.ChatConfig.SendBuffer,
		PongWait:    time.Duration(conf.ChatConfig.PongWaitSeconds) * time.Second,
		AuthTimeout: time.Duration(conf.ChatConfig.AuthTimeoutSeconds) * time.Second,
	})
	svc := service.NewServices(store, reads, presenceSvc, authSvc)
	zap.L().Info("Service 层初始化成功")

	// 9. 初始化 HTTPS 服务器
	engine := https_server.Init(&conf.MainConfig, handler.NewHandlers(svc, chatServer), authSvc)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}

	// 10. 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	go broker.Start(ctx)

	go func() {
		var err error
		if conf.MainConfig.CertFile != "" && conf.MainConfig.KeyFile != "" {
			err = srv.ListenAndServeTLS(conf.MainConfig.CertFile, conf.MainConfig.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()
	zap.L().Info("服务已启动", zap.String("addr", srv.Addr))

	// 设置信号监听
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 等待信号
	<-quit
	zap.L().Info("关闭服务器...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP 服务关闭失败", zap.Error(err))
	}
	chatServer.Close()
	cancel()
	broker.Close()
	if err := cache.Close(); err != nil {
		zap.L().Error("关闭 Redis 失败", zap.Error(err))
	}

	zap.L().Info("服务器已关闭")
}
