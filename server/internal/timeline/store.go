package timeline

import (
	"context"

	"avatar-talk/server/internal/model"
)

// Store 会话事件日志，只记录元数据（类型、情绪、来源、长度），不记原文。
type Store interface {
	// Append 写入事件并返回分配的 seq。
	// 约定：同一 session 的 seq 单调递增；相同 EventID 幂等返回同一 seq，且 fresh=false。
	Append(ctx context.Context, sessionID string, evt *model.Event) (seq int64, fresh bool, err error)
	// List 返回该 session 当前保留的事件。
	List(ctx context.Context, sessionID string) ([]model.Event, error)
	// Delete 会话结束时丢弃日志。
	Delete(ctx context.Context, sessionID string) error
}
