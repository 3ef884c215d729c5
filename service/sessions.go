package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dlrandrade/Multiverso-do-Impacto/utils"
)

// SessionStore 内存中的会话表
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	machine  *Machine
	runner   *Runner
}

func NewSessionStore(machine *Machine, runner *Runner) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		machine:  machine,
		runner:   runner,
	}
}

// Create 新建会话
func (st *SessionStore) Create() *Session {
	id := uuid.NewString()
	sess := NewSession(id, st.machine, st.runner)

	st.mu.Lock()
	st.sessions[id] = sess
	st.mu.Unlock()

	utils.Logger.Info("session created", zap.String("session", id))
	return sess
}

// Get 按 ID 查找会话
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Delete 关闭并移除会话
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		sess.Close()
		utils.Logger.Info("session deleted", zap.String("session", id))
	}
	return ok
}

// Len 会话数量
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep 移除空闲超过 maxIdle 的会话，返回移除数量
func (st *SessionStore) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	st.mu.Lock()
	var expired []*Session
	for id, sess := range st.sessions {
		if sess.LastActive().Before(cutoff) {
			expired = append(expired, sess)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		utils.Logger.Info("idle sessions swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunSweeper 周期性清理空闲会话，直到 ctx 结束
func (st *SessionStore) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(maxIdle)
		}
	}
}

// CloseAll 关闭全部会话
func (st *SessionStore) CloseAll() {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, sess := range st.sessions {
		sess.Close()
		delete(st.sessions, id)
	}
}
