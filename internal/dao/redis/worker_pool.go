package redis

import (
	"sync"

	"go.uber.org/zap"
)

// workerPool 固定数量的后台协程消费缓存任务
type workerPool struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	wg     sync.WaitGroup
}

func newWorkerPool(workerNum, queueSize int) *workerPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &workerPool{tasks: make(chan func(), queueSize)}
	p.wg.Add(workerNum)
	for i := 0; i < workerNum; i++ {
		go p.worker()
	}
	zap.L().Info("缓存任务 worker 已启动", zap.Int("workers", workerNum), zap.Int("buffer", queueSize))
	return p
}

// worker 单个任务 panic 不会带走整个协程
func (p *workerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *workerPool) run(task func()) {
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("缓存任务 panic", zap.Any("recover", rec))
		}
	}()
	if task != nil {
		task()
	}
}

// submit 队列已满或已关闭时降级为同步执行
func (p *workerPool) submit(task func()) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		p.run(task)
		return
	}
	select {
	case p.tasks <- task:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		zap.L().Warn("缓存任务队列已满，同步执行")
		p.run(task)
	}
}

// close 停止接收任务并等待队列中的任务执行完毕
func (p *workerPool) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
