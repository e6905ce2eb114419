package orchestrator

import (
	"time"

	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/mentalstate"
	"avatar-talk/server/internal/model"
	"avatar-talk/server/internal/relationship"
)

// DefaultEmotionHistoryCap 情绪日志只保留最近的条数。
const DefaultEmotionHistoryCap = 50

// TurnFacts 一次消息回合需要归约进会话的事实，外部调用都已在锁外完成。
type TurnFacts struct {
	UserText    string
	Reply       string
	Emotion     emotion.Label
	Language    string
	ClientCount int
	Selected    []string
	VisitorID   string
	Style       relationship.Style
	Now         time.Time
}

// Reducer 只做事实归约，不触发外部调用。
type Reducer struct {
	HistoryCap int
	Estimator  mentalstate.Estimator
}

// ReduceTurn 把回合结果写进会话，返回写入前的情绪（用于转移统计）。
func (r Reducer) ReduceTurn(s *model.SessionState, f TurnFacts) emotion.Label {
	prev := s.CurrentEmotion

	count := s.InteractionCount
	if f.ClientCount > count {
		count = f.ClientCount
	}
	s.InteractionCount = count + 1

	if f.VisitorID != "" {
		s.VisitorID = f.VisitorID
	}
	if f.Language != "" {
		s.Language = f.Language
	}
	// 客户端上报的是完整列表，直接替换；计数只增不减。
	if len(f.Selected) > 0 {
		set := model.ChipSet{}
		for _, c := range f.Selected {
			set.Add(c)
		}
		s.SelectedSuggestions = set
		if len(f.Selected) > s.SelectedCount {
			s.SelectedCount = len(f.Selected)
		}
	}

	s.History = append(s.History,
		model.Turn{Role: "user", Content: f.UserText, TS: f.Now},
		model.Turn{Role: "assistant", Content: f.Reply, TS: f.Now},
	)
	if f.Style != "" {
		s.RelationshipStyle = string(f.Style)
	}
	r.recordEmotion(s, f.Emotion, f.Now)
	return prev
}

// ReduceGreeting 问候只记录情绪，不计入对话数。
func (r Reducer) ReduceGreeting(s *model.SessionState, e emotion.Label, style relationship.Style, now time.Time) emotion.Label {
	prev := s.CurrentEmotion
	s.Greeted = true
	if style != "" {
		s.RelationshipStyle = string(style)
	}
	r.recordEmotion(s, e, now)
	return prev
}

// ReduceEmotion 测验、问卷等旁路台词只更新情绪。
func (r Reducer) ReduceEmotion(s *model.SessionState, e emotion.Label, now time.Time) emotion.Label {
	prev := s.CurrentEmotion
	r.recordEmotion(s, e, now)
	return prev
}

func (r Reducer) recordEmotion(s *model.SessionState, e emotion.Label, now time.Time) {
	if !emotion.Valid(e) {
		e = emotion.Neutral
	}
	s.CurrentEmotion = e
	s.EmotionHistory = AppendEmotion(s.EmotionHistory, model.EmotionRecord{
		Emotion:          e,
		Timestamp:        now,
		InteractionCount: s.InteractionCount,
	}, r.HistoryCap)
	s.MentalState = r.Estimator.Estimate(s.EmotionHistory, s.InteractionCount)
}

// AppendEmotion 环形语义：超过 capacity 时丢弃最旧的记录。
func AppendEmotion(history []model.EmotionRecord, rec model.EmotionRecord, capacity int) []model.EmotionRecord {
	if capacity <= 0 {
		capacity = DefaultEmotionHistoryCap
	}
	history = append(history, rec)
	if len(history) <= capacity {
		return history
	}
	// 拷贝到新切片，避免底层数组无限增长。
	out := make([]model.EmotionRecord, capacity)
	copy(out, history[len(history)-capacity:])
	return out
}
