// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// MainConfig 主配置
type MainConfig struct {
	AppName     string `toml:"appName"`     // 应用名称
	Host        string `toml:"host"`        // 监听地址，如 "0.0.0.0"
	Port        int    `toml:"port"`        // 监听端口
	Mode        string `toml:"mode"`        // 运行模式：dev / release
	TLSRedirect bool   `toml:"tlsRedirect"` // 是否把 HTTP 请求重定向到 HTTPS
	CertFile    string `toml:"certFile"`    // TLS 证书，为空时以 HTTP 启动
	KeyFile     string `toml:"keyFile"`     // TLS 私钥
}

// DatabaseConfig 数据库连接配置
type DatabaseConfig struct {
	Driver       string `toml:"driver"`       // mysql 或 postgres
	Host         string `toml:"host"`         // 数据库地址
	Port         int    `toml:"port"`         // 端口
	User         string `toml:"user"`         // 用户名
	Password     string `toml:"password"`     // 密码
	DatabaseName string `toml:"databaseName"` // 数据库名称
	LogLevel     string `toml:"logLevel"`     // gorm 日志级别：silent, error, warn, info
	MaxOpenConns int    `toml:"maxOpenConns"` // 最大连接数
	MaxIdleConns int    `toml:"maxIdleConns"` // 最大空闲连接数
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host      string `toml:"host"`      // Redis 地址
	Port      int    `toml:"port"`      // Redis 端口
	Password  string `toml:"password"`  // 密码，无密码留空
	Db        int    `toml:"db"`        // 数据库编号
	WorkerNum int    `toml:"workerNum"` // 异步缓存任务 worker 数
	TaskQueue int    `toml:"taskQueue"` // 异步缓存任务队列长度
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // 日志级别：debug, info, warn, error
}

// KafkaConfig 实时投递所用的消息队列配置
type KafkaConfig struct {
	MessageMode   string        `toml:"messageMode"`   // "channel" 单机模式，"kafka" 多实例模式
	HostPort      string        `toml:"hostPort"`      // Kafka 地址，如 "localhost:9092"
	DeliveryTopic string        `toml:"deliveryTopic"` // 投递事件主题
	ConsumerGroup string        `toml:"consumerGroup"` // 消费组前缀，每个实例追加自身节点标识
	Timeout       time.Duration `toml:"timeout"`       // 读写超时（秒）
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // 签名密钥
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Access Token 有效期（分钟）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 节点 ID，范围 0-1023
}

// ChatConfig 聊天业务参数
type ChatConfig struct {
	HistoryDefaultLimit int `toml:"historyDefaultLimit"` // 历史消息默认分页大小
	HistoryMaxLimit     int `toml:"historyMaxLimit"`     // 历史消息单页上限
	ReadBatchSize       int `toml:"readBatchSize"`       // 批量已读子批次大小
	SendBuffer          int `toml:"sendBuffer"`          // 每个连接的发送缓冲
	PongWaitSeconds     int `toml:"pongWaitSeconds"`     // 心跳超时（秒）
	AuthTimeoutSeconds  int `toml:"authTimeoutSeconds"`  // 首帧认证超时（秒）
}

// Config 应用程序总配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	DatabaseConfig  `toml:"databaseConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	ChatConfig      `toml:"chatConfig"`
}

// config 全局配置单例，延迟加载
var config *Config

// LoadConfig 依次尝试候选路径，加载第一个可用的配置文件
func LoadConfig() error {
	paths := []string{
		"configs/config_local.toml",
		"configs/config.toml",
		"../../configs/config_local.toml",
		"../../configs/config.toml",
	}

	for _, path := range paths {
		if _, err := toml.DecodeFile(path, config); err == nil {
			return nil
		}
	}

	return fmt.Errorf("could not find configuration file in any of the search paths")
}

// GetConfig 获取全局配置实例，首次调用时加载配置文件
func GetConfig() *Config {
	if config == nil {
		config = Default()
		_ = LoadConfig() // 找不到配置文件时使用默认值
	}
	return config
}

// Default 返回带默认值的配置，配置文件中出现的字段会覆盖它们
func Default() *Config {
	return &Config{
		MainConfig: MainConfig{
			AppName: "chatkuy_server",
			Host:    "0.0.0.0",
			Port:    8000,
			Mode:    "dev",
		},
		DatabaseConfig: DatabaseConfig{
			Driver:       "mysql",
			Host:         "127.0.0.1",
			Port:         3306,
			User:         "root",
			DatabaseName: "chatkuy",
			LogLevel:     "warn",
			MaxOpenConns: 50,
			MaxIdleConns: 10,
		},
		RedisConfig: RedisConfig{
			Host:      "127.0.0.1",
			Port:      6379,
			WorkerNum: 15,
			TaskQueue: 3000,
		},
		LogConfig: LogConfig{
			LogPath: "./logs",
			Level:   "info",
		},
		KafkaConfig: KafkaConfig{
			MessageMode:   "channel",
			HostPort:      "127.0.0.1:9092",
			DeliveryTopic: "chat_delivery",
			ConsumerGroup: "chatkuy",
			Timeout:       1,
		},
		JWTConfig: JWTConfig{
			AccessTokenExpiry: 60,
		},
		SnowflakeConfig: SnowflakeConfig{
			MachineID: 1,
		},
		ChatConfig: ChatConfig{
			HistoryDefaultLimit: 50,
			HistoryMaxLimit:     100,
			ReadBatchSize:       450,
			SendBuffer:          256,
			PongWaitSeconds:     60,
			AuthTimeoutSeconds:  10,
		},
	}
}
