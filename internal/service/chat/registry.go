// Package chat 实现长连接实时投递
// registry.go
// 核心职责：维护本实例在线会话，userId -> 连接集合，以及连接 ID 的反向索引
// 仅存在于内存，进程重启后由新连接重建
package chat

import "sync"

// Registry 在线会话注册表，并发安全
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*UserConn
	byConn map[string]*UserConn
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]*UserConn),
		byConn: make(map[string]*UserConn),
	}
}

// Register 注册一个已认证的连接，同一用户可以有多个连接
func (r *Registry) Register(c *UserConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.byUser[c.UserId]
	if !ok {
		conns = make(map[string]*UserConn)
		r.byUser[c.UserId] = conns
	}
	conns[c.Id] = c
	r.byConn[c.Id] = c
}

// Unregister 移除连接，返回被移除的连接以及该用户是否还有其他在线连接
func (r *Registry) Unregister(connId string) (*UserConn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byConn[connId]
	if !ok {
		return nil, false
	}
	delete(r.byConn, connId)
	conns := r.byUser[c.UserId]
	delete(conns, connId)
	if len(conns) == 0 {
		delete(r.byUser, c.UserId)
		return c, false
	}
	return c, true
}

// IsOnline 用户在本实例是否有连接
func (r *Registry) IsOnline(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userId]) > 0
}

// SessionsFor 返回用户的全部连接快照
func (r *Registry) SessionsFor(userId string) []*UserConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.byUser[userId]
	res := make([]*UserConn, 0, len(conns))
	for _, c := range conns {
		res = append(res, c)
	}
	return res
}

// Sessions 返回全部连接快照
func (r *Registry) Sessions() []*UserConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*UserConn, 0, len(r.byConn))
	for _, c := range r.byConn {
		res = append(res, c)
	}
	return res
}
