// Package relationship 根据累计对话数推导访客的关系等级与说话风格。
package relationship

import "strings"

// Style 关系风格。
type Style string

const (
	Formal       Style = "formal"
	CasualPolite Style = "casual_polite"
	Friendly     Style = "friendly"
	Close        Style = "close"
	BestFriend   Style = "best_friend"
	Master       Style = "master"
)

// MasterLevel 只由问卷完成授予，计数永远到不了。
const MasterLevel = 5

// Level 一个关系档位。
type Level struct {
	Level int    `json:"level"`
	Style Style  `json:"style"`
	Name  string `json:"name"`
}

// Step 计数小于 Below 时落在该档。
type Step struct {
	Below int
	Level Level
}

// Ladder 递增的关系阶梯，最后一档没有上界。
type Ladder struct {
	Steps []Step
	Top   Level
}

// DefaultLadder 2/4/6/8 的默认阶梯。
func DefaultLadder() Ladder {
	return Ladder{
		Steps: []Step{
			{Below: 2, Level: Level{Level: 0, Style: Formal, Name: "-"}},
			{Below: 4, Level: Level{Level: 1, Style: CasualPolite, Name: "Level 1"}},
			{Below: 6, Level: Level{Level: 2, Style: Friendly, Name: "Level 2"}},
			{Below: 8, Level: Level{Level: 3, Style: Close, Name: "Level 3"}},
		},
		Top: Level{Level: 4, Style: BestFriend, Name: "MAX"},
	}
}

// MasterRank 问卷完成后的等级。
func MasterRank() Level {
	return Level{Level: MasterLevel, Style: Master, Name: "Master"}
}

// For 计数到档位。
func (l Ladder) For(count int) Level {
	for _, s := range l.Steps {
		if count < s.Below {
			return s.Level
		}
	}
	return l.Top
}

// ByLevel 等级数字到档位，用于把访客记录的等级还原成风格。
func (l Ladder) ByLevel(level int) Level {
	if level >= MasterLevel {
		return MasterRank()
	}
	for _, s := range l.Steps {
		if s.Level.Level == level {
			return s.Level
		}
	}
	if level <= 0 {
		return l.Steps[0].Level
	}
	return l.Top
}

// LevelFor 使用默认阶梯。
func LevelFor(count int) Level {
	return DefaultLadder().For(count)
}

// GreetingTier 风格到问候语档位（formal/polite/friendly/casual）。
func GreetingTier(s Style) string {
	switch s {
	case CasualPolite:
		return "polite"
	case Friendly:
		return "friendly"
	case Close, BestFriend, Master:
		return "casual"
	default:
		return "formal"
	}
}

// AdjustStyle 日语按关系风格改写语尾，其它语言原样返回。
func AdjustStyle(text, language string, s Style) string {
	if language != "ja" {
		return text
	}
	switch s {
	case Friendly:
		return strings.ReplaceAll(text, "です。", "だよ〜。")
	case Close, BestFriend, Master:
		return strings.NewReplacer(
			"です。", "だよ。",
			"でしょう。", "だよね。",
			"ですか?", "?",
			"ですか？", "？",
		).Replace(text)
	}
	return text
}
