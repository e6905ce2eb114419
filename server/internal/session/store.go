package session

import (
	"context"
	"errors"

	"avatar-talk/server/internal/model"
)

var ErrNotFound = errors.New("session not found")

// Store 会话状态的唯一来源。
// 约定：同一个 key 在存活期间只对应一条记录；所有修改都在该 key 的临界区内完成；
// 对外返回的都是快照（深拷贝），调用方修改快照不会影响存储。
type Store interface {
	// GetOrCreate 不存在时用 seed 初始化新记录，created 表示本次是否新建。
	GetOrCreate(ctx context.Context, id string, seed func(*model.SessionState)) (state *model.SessionState, created bool, err error)
	// Get 返回快照，不存在时返回 ErrNotFound。
	Get(ctx context.Context, id string) (*model.SessionState, error)
	// Update 在临界区内执行 fn 并返回修改后的快照；会话已删除时返回 ErrNotFound。
	Update(ctx context.Context, id string, fn func(*model.SessionState) error) (*model.SessionState, error)
	// Delete 删除会话；fold 在会话锁内执行，用于把计数折叠进访客记录。
	Delete(ctx context.Context, id string, fold func(*model.SessionState) error) (*model.SessionState, error)
	// Len 当前存活的会话数。
	Len() int
}
