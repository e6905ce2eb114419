// Package actor 根据人设、语言和关系风格构建 LLM 的系统提示。
package actor

import (
	"fmt"
	"strings"

	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/relationship"
)

// ProfileSource 提供人设描述。*dialogue.Catalog 实现了该接口。
type ProfileSource interface {
	Profile(personaID, language string) string
}

// Prompter 负责组装系统提示
type Prompter struct {
	profiles  ProfileSource
	maxLength int
}

// NewPrompter 创建 Prompter；maxLength<=0 表示不限制。
func NewPrompter(profiles ProfileSource, maxLength int) *Prompter {
	return &Prompter{profiles: profiles, maxLength: maxLength}
}

// styleGuide 关系风格对应的说话方式。
var styleGuide = map[string]map[relationship.Style]string{
	"ja": {
		relationship.Formal:       "丁寧語で話してください。",
		relationship.CasualPolite: "丁寧語を基本に、少し親しみを込めて話してください。",
		relationship.Friendly:     "親しい友達のように、柔らかい口調で話してください。",
		relationship.Close:        "くだけた口調で、親友のように話してください。",
		relationship.BestFriend:   "くだけた口調で、親友のように話してください。",
		relationship.Master:       "くだけた口調で、長年の仲間のように話してください。",
	},
	"en": {
		relationship.Formal:       "Speak politely.",
		relationship.CasualPolite: "Speak politely but warmly.",
		relationship.Friendly:     "Speak like a friendly acquaintance.",
		relationship.Close:        "Speak casually, like a close friend.",
		relationship.BestFriend:   "Speak casually, like a best friend.",
		relationship.Master:       "Speak casually, like a longtime companion.",
	},
}

// SystemPrompt 构建完整的系统提示
func (p *Prompter) SystemPrompt(persona, language, style string) string {
	var sb strings.Builder

	sb.WriteString("[Role Definition]\n")
	profile := ""
	if p.profiles != nil {
		profile = strings.TrimSpace(p.profiles.Profile(persona, language))
	}
	if profile == "" {
		profile = "You are a friendly guide at an exhibition booth."
	}
	sb.WriteString(profile)
	sb.WriteString("\n\n")

	sb.WriteString("[Language & Tone]\n")
	if language == "en" {
		sb.WriteString("Reply in English.\n")
	} else {
		sb.WriteString("日本語で回答してください。\n")
	}
	guides := styleGuide[language]
	if guides == nil {
		guides = styleGuide["ja"]
	}
	if g, ok := guides[relationship.Style(style)]; ok {
		sb.WriteString(g)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("[Emotion Tag]\n")
	sb.WriteString(fmt.Sprintf("End every reply with exactly one tag in the form %s.\n", emotion.FormatTag("<emotion>")))
	sb.WriteString("Allowed emotions: ")
	sb.WriteString(vocabularyList())
	sb.WriteString("\n\n")

	sb.WriteString("[Constraints]\n")
	sb.WriteString("- Keep the reply short enough to be spoken in about 20 seconds.\n")
	sb.WriteString("- Use short, spoken-style sentences.\n")
	sb.WriteString("- Do not use markdown or lists.\n")

	out := sb.String()
	if p.maxLength > 0 && len([]rune(out)) > p.maxLength {
		out = string([]rune(out)[:p.maxLength])
	}
	return out
}

func vocabularyList() string {
	var names []string
	for _, l := range emotion.Vocabulary() {
		// 这两个由服务端判定，不让模型输出。
		if l == emotion.Start || l == emotion.DangerQuestion {
			continue
		}
		names = append(names, string(l))
	}
	return strings.Join(names, ", ")
}
