// Package mentalstate 从会话的情绪日志推导粗粒度的心理状态。
package mentalstate

import (
	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/model"
)

const (
	// DefaultWindow 参与计算的最近情绪条数。
	DefaultWindow = 10
	// DefaultDepthTurns 对话深度达到 1.0 所需的轮数。
	DefaultDepthTurns = 20
)

var (
	stressful = map[emotion.Label]bool{emotion.Sad: true, emotion.Angry: true}
	engaging  = map[emotion.Label]bool{emotion.Happy: true, emotion.Surprise: true, emotion.Angry: true}
)

// Estimator 纯函数封装，Window/DepthTurns 可调。
type Estimator struct {
	Window     int
	DepthTurns int
}

func New() Estimator {
	return Estimator{Window: DefaultWindow, DepthTurns: DefaultDepthTurns}
}

// Estimate 用默认参数计算。
func Estimate(history []model.EmotionRecord, interactionCount int) model.MentalState {
	return New().Estimate(history, interactionCount)
}

// Estimate 计算 stress/engagement/depth：
// stress = 最近窗口内 sad/angry 的占比，engagement = happy/surprise/angry 的占比，
// depth = min(interactionCount/DepthTurns, 1)。空历史返回默认值。
func (e Estimator) Estimate(history []model.EmotionRecord, interactionCount int) model.MentalState {
	if len(history) == 0 {
		return model.DefaultMentalState()
	}

	window := e.Window
	if window <= 0 {
		window = DefaultWindow
	}
	recent := history
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	var stress, engage int
	for _, rec := range recent {
		l := emotion.Normalize(string(rec.Emotion))
		if stressful[l] {
			stress++
		}
		if engaging[l] {
			engage++
		}
	}
	n := float64(len(recent))

	return model.MentalState{
		Stress:     clamp(float64(stress) / n),
		Engagement: clamp(float64(engage) / n),
		Depth:      e.depth(interactionCount),
	}
}

func (e Estimator) depth(count int) float64 {
	turns := e.DepthTurns
	if turns <= 0 {
		turns = DefaultDepthTurns
	}
	return clamp(float64(count) / float64(turns))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
