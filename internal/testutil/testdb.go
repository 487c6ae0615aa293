// Package testutil 为各层测试提供内存数据库和缓存替身
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatkuy_server/internal/dao/mysql"
	"chatkuy_server/internal/dao/mysql/repository"
	"chatkuy_server/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64

// NewRepositories 创建一个独立的内存 SQLite 数据库并完成迁移
func NewRepositories(t testing.TB) *repository.Repositories {
	t.Helper()
	dsn := fmt.Sprintf("file:chatkuy_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite pool: %v", err)
	}
	// SQLite 同一时刻只允许一个写事务
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := mysql.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewRepositories(db)
}

// SeedUser 写入用户资料
func SeedUser(t testing.TB, repos *repository.Repositories, uuid, nickname string) {
	t.Helper()
	user := &model.UserInfo{Uuid: uuid, Nickname: nickname, Email: uuid + "@example.com", Avatar: "https://cdn.example.com/" + uuid + ".png"}
	if err := repos.User.Save(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", uuid, err)
	}
}

// SeedFriends 写入双向好友关系
func SeedFriends(t testing.TB, repos *repository.Repositories, a, b string) {
	t.Helper()
	if err := repos.Contact.CreatePair(context.Background(), a, b); err != nil {
		t.Fatalf("seed friends %s <-> %s: %v", a, b, err)
	}
}

// Clock 每次调用前进 1ms 的 UTC 时钟，保证测试中的时间严格递增
type Clock struct {
	mu  sync.Mutex
	cur time.Time
}

// NewClock 从固定时间点开始
func NewClock() *Clock {
	return &Clock{cur: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

// Now 返回下一个时间点
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Millisecond)
	return c.cur
}

// StubCache 内存缓存替身
// 默认 SubmitTask 同步执行；Defer 之后任务进入队列，由 RunPending 按需执行
type StubCache struct {
	mu       sync.Mutex
	data     map[string]string
	deferred bool
	pending  []func()
}

// NewStubCache 创建空缓存
func NewStubCache() *StubCache {
	return &StubCache{data: make(map[string]string)}
}

func (s *StubCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *StubCache) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *StubCache) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := strconv.ParseInt(s.data[key], 10, 64)
	n++
	s.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *StubCache) SubmitTask(action func()) {
	s.mu.Lock()
	if s.deferred {
		s.pending = append(s.pending, action)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	action()
}

// Defer 之后提交的任务只排队不执行
func (s *StubCache) Defer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred = true
}

// RunPending 执行并清空排队中的任务，返回执行数量
func (s *StubCache) RunPending() int {
	s.mu.Lock()
	tasks := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// Has 判断 key 当前是否存在
func (s *StubCache) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}
