// Package visitor 保存跨会话的访客记忆，会话断开时把计数折叠进来。
package visitor

import (
	"context"
	"errors"
	"strings"
	"time"

	"avatar-talk/server/internal/model"
	"avatar-talk/server/internal/relationship"
)

var ErrNotFound = errors.New("visitor not found")

// Store 访客记录存储。语义与 session.Store 一致：返回快照，修改在 key 的临界区内完成。
type Store interface {
	GetOrCreate(ctx context.Context, id string) (state *model.VisitorState, created bool, err error)
	Get(ctx context.Context, id string) (*model.VisitorState, error)
	// Update 不存在时先按默认值创建再执行 fn。
	Update(ctx context.Context, id string, fn func(*model.VisitorState) error) (*model.VisitorState, error)
	Len(ctx context.Context) (int, error)
	// Snapshot 全部访客的快照，只用于统计接口。
	Snapshot(ctx context.Context) ([]*model.VisitorState, error)
}

// TrackedTopics 折叠时从历史中识别的话题关键词。
var TrackedTopics = []string{"友禅"}

// NewState 访客默认值。
func NewState(id string, now time.Time) *model.VisitorState {
	return &model.VisitorState{
		VisitorID:           id,
		FirstVisit:          now,
		LastVisit:           now,
		VisitCount:          1,
		Topics:              []string{},
		RelationshipStyle:   string(relationship.Formal),
		SelectedSuggestions: model.ChipSet{},
	}
}

// Fold 把结束的会话并入访客记录。
// 对话数累加、话题和卡片取并集、等级只升不降；没有发过消息的会话不产生任何变化。
func Fold(v *model.VisitorState, s *model.SessionState, ladder relationship.Ladder, now time.Time) bool {
	if v == nil || s == nil || len(s.History) == 0 {
		return false
	}

	v.LastVisit = now
	v.TotalConversations += s.InteractionCount

	for _, topic := range TrackedTopics {
		if v.HasTopic(topic) {
			continue
		}
		for _, turn := range s.History {
			if strings.Contains(turn.Content, topic) {
				v.Topics = append(v.Topics, topic)
				break
			}
		}
	}

	if derived := ladder.For(v.TotalConversations); derived.Level > v.RelationshipLevel {
		v.RelationshipLevel = derived.Level
	}
	v.RelationshipStyle = string(ladder.ByLevel(v.RelationshipLevel).Style)
	v.SelectedSuggestions.Union(s.SelectedSuggestions)
	return true
}

// Stats 访客统计。
type Stats struct {
	TotalVisitors      int         `json:"total_visitors"`
	TotalConversations int         `json:"total_conversations"`
	QuizCompleted      int         `json:"quiz_completed"`
	LevelDistribution  map[int]int `json:"level_distribution"`
	Visitors           []Summary   `json:"visitor_summary"`
}

// Summary 单个访客的摘要。
type Summary struct {
	VisitorID          string   `json:"visitor_id"`
	VisitCount         int      `json:"visit_count"`
	TotalConversations int      `json:"total_conversations"`
	RelationshipLevel  int      `json:"relationship_level"`
	Topics             []string `json:"topics_discussed"`
}

// Summarize 从快照计算统计。
func Summarize(visitors []*model.VisitorState) Stats {
	st := Stats{
		LevelDistribution: map[int]int{},
		Visitors:          make([]Summary, 0, len(visitors)),
	}
	for _, v := range visitors {
		st.TotalVisitors++
		st.TotalConversations += v.TotalConversations
		st.LevelDistribution[v.RelationshipLevel]++
		if v.QuizCompleted {
			st.QuizCompleted++
		}
		st.Visitors = append(st.Visitors, Summary{
			VisitorID:          v.VisitorID,
			VisitCount:         v.VisitCount,
			TotalConversations: v.TotalConversations,
			RelationshipLevel:  v.RelationshipLevel,
			Topics:             append([]string(nil), v.Topics...),
		})
	}
	return st
}
