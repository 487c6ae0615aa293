// Package mysql 负责建立数据库连接、迁移表结构并创建 Repository 层
package mysql

import (
	"fmt"

	"chatkuy_server/internal/config"
	"chatkuy_server/internal/dao/mysql/repository"
	"chatkuy_server/internal/infrastructure/logger"
	"chatkuy_server/internal/model"

	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Init 按配置连接数据库并返回 Repository 聚合
// driver 为 mysql（默认）或 postgres
func Init(conf *config.DatabaseConfig) (*repository.Repositories, error) {
	dialector, err := newDialector(conf)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.GormLogger(conf.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取连接池失败: %w", err)
	}
	if conf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
	}
	if conf.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return repository.NewRepositories(db), nil
}

// Migrate 自动迁移全部表结构，只增不删
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.UserInfo{},
		&model.UserContact{},
		&model.Conversation{},
		&model.Message{},
	); err != nil {
		return fmt.Errorf("迁移表结构失败: %w", err)
	}
	return nil
}

func newDialector(conf *config.DatabaseConfig) (gorm.Dialector, error) {
	switch conf.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			conf.User, conf.Password, conf.Host, conf.Port, conf.DatabaseName)
		return mysqldriver.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			conf.Host, conf.Port, conf.User, conf.Password, conf.DatabaseName)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", conf.Driver)
	}
}
