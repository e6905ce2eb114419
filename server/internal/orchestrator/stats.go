package orchestrator

import (
	"sync"

	"avatar-talk/server/internal/emotion"
)

// EmotionStats 全局情绪分布与转移矩阵，跨会话累计。
type EmotionStats struct {
	mu          sync.Mutex
	total       int
	counts      map[emotion.Label]int
	transitions map[emotion.Label]map[emotion.Label]int
}

// EmotionSnapshot 统计接口的输出。
type EmotionSnapshot struct {
	Total        int                       `json:"total"`
	Distribution map[string]int            `json:"distribution"`
	Transitions  map[string]map[string]int `json:"emotion_transitions"`
}

func NewEmotionStats() *EmotionStats {
	return &EmotionStats{
		counts:      make(map[emotion.Label]int),
		transitions: make(map[emotion.Label]map[emotion.Label]int),
	}
}

// Record 记录一次 from -> to。
func (s *EmotionStats) Record(from, to emotion.Label) {
	if from == "" {
		from = emotion.Neutral
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.counts[to]++
	row, ok := s.transitions[from]
	if !ok {
		row = make(map[emotion.Label]int)
		s.transitions[from] = row
	}
	row[to]++
}

func (s *EmotionStats) Snapshot() EmotionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := EmotionSnapshot{
		Total:        s.total,
		Distribution: make(map[string]int, len(s.counts)),
		Transitions:  make(map[string]map[string]int, len(s.transitions)),
	}
	for l, n := range s.counts {
		out.Distribution[string(l)] = n
	}
	for from, row := range s.transitions {
		m := make(map[string]int, len(row))
		for to, n := range row {
			m[string(to)] = n
		}
		out.Transitions[string(from)] = m
	}
	return out
}
