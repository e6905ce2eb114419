package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"avatar-talk/server/internal/dialogue"
	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/model"
	"avatar-talk/server/internal/quiz"
	"avatar-talk/server/internal/relationship"
	"avatar-talk/server/internal/survey"
)

// Line 测验与问卷流程里的一句台词及其附带数据。
type Line struct {
	Message     string        `json:"message"`
	Emotion     emotion.Label `json:"emotion"`
	Audio       *string       `json:"audio"`
	VoiceEngine string        `json:"voice_engine,omitempty"`
	Language    string        `json:"language"`

	Question *quiz.View   `json:"question,omitempty"`
	Result   *quiz.Result `json:"result,omitempty"`
	Final    *quiz.Final  `json:"final,omitempty"`

	ShowReward     bool   `json:"show_reward,omitempty"`
	RewardImageURL string `json:"reward_image_url,omitempty"`
	Saved          bool   `json:"saved,omitempty"`
}

// language 会话语言，会话不存在时用默认语言。
func (o *Orchestrator) language(ctx context.Context, sessionID string) (*model.SessionState, string) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, o.catalog.DefaultLanguage
	}
	return s, s.Language
}

// say 记录情绪并合成语音。会话已关闭时只返回台词。
func (o *Orchestrator) say(ctx context.Context, sessionID string, line *Line, spoken string) *Line {
	if spoken == "" {
		spoken = line.Message
	}
	var prev emotion.Label
	committed, err := o.sessions.Update(ctx, sessionID, func(s *model.SessionState) error {
		prev = o.reducer.ReduceEmotion(s, line.Emotion, o.now())
		_, _, err := o.timeline.Append(ctx, sessionID, &model.Event{
			Type:     eventFor(line),
			Emotion:  line.Emotion,
			Chars:    utf8.RuneCountInString(spoken),
			ServerTS: o.now(),
		})
		return err
	})
	if err == nil {
		o.stats.Record(prev, committed.CurrentEmotion)
	}
	line.Audio, line.VoiceEngine = o.speak(ctx, sessionID, spoken, line.Language, line.Emotion)
	return line
}

// QuizProposal 邀请参加测验。
func (o *Orchestrator) QuizProposal(ctx context.Context, sessionID string) *Line {
	_, lang := o.language(ctx, sessionID)
	msg, e := quiz.Proposal(lang)
	return o.say(ctx, sessionID, &Line{Message: msg, Emotion: e, Language: lang}, "")
}

// QuizDeclined 拒绝测验。
func (o *Orchestrator) QuizDeclined(ctx context.Context, sessionID string) *Line {
	_, lang := o.language(ctx, sessionID)
	msg, e := quiz.Declined(lang)
	return o.say(ctx, sessionID, &Line{Message: msg, Emotion: e, Language: lang}, "")
}

// QuizQuit 中途退出测验。
func (o *Orchestrator) QuizQuit(ctx context.Context, sessionID string) *Line {
	_, lang := o.language(ctx, sessionID)
	msg, e := o.quiz.Quit(sessionID, lang)
	return o.say(ctx, sessionID, &Line{Message: msg, Emotion: e, Language: lang}, "")
}

// QuizStart 开始测验，返回第一题。
func (o *Orchestrator) QuizStart(ctx context.Context, sessionID string) (*Line, error) {
	_, lang := o.language(ctx, sessionID)
	v, err := o.quiz.Start(sessionID, lang)
	if err != nil {
		return nil, fmt.Errorf("start quiz: %w", err)
	}
	o.logger.Printf("[Orchestrator] session=%s quiz started", sessionID)
	return o.say(ctx, sessionID, &Line{Message: v.Text, Emotion: emotion.Neutral, Language: lang, Question: &v}, v.Spoken), nil
}

// NextQuizQuestion 取第 idx 题。
func (o *Orchestrator) NextQuizQuestion(ctx context.Context, sessionID string, idx int) (*Line, error) {
	_, lang := o.language(ctx, sessionID)
	v, err := o.quiz.Question(sessionID, idx)
	if err != nil {
		return nil, fmt.Errorf("quiz question: %w", err)
	}
	return o.say(ctx, sessionID, &Line{Message: v.Text, Emotion: emotion.Neutral, Language: lang, Question: &v}, v.Spoken), nil
}

// QuizAnswer 服务端判分。
func (o *Orchestrator) QuizAnswer(ctx context.Context, sessionID string, idx, selected int) (*Line, error) {
	_, lang := o.language(ctx, sessionID)
	r, err := o.quiz.Answer(sessionID, idx, selected)
	if err != nil {
		return nil, fmt.Errorf("quiz answer: %w", err)
	}
	o.logger.Printf("[Orchestrator] session=%s quiz q=%d correct=%v total=%d", sessionID, idx, r.IsCorrect, r.TotalCorrect)
	return o.say(ctx, sessionID, &Line{Message: r.ResultMessage, Emotion: r.Emotion, Language: lang, Result: &r}, r.Spoken), nil
}

// QuizFinal 测验总结，之后提示问卷。
func (o *Orchestrator) QuizFinal(ctx context.Context, sessionID string) (*Line, error) {
	_, lang := o.language(ctx, sessionID)
	f, err := o.quiz.Finish(sessionID)
	if err != nil {
		return nil, fmt.Errorf("quiz final: %w", err)
	}
	return o.say(ctx, sessionID, &Line{Message: f.Message, Emotion: f.Emotion, Language: lang, Final: &f}, ""), nil
}

// SurveyQuestions 问卷题目。
func (o *Orchestrator) SurveyQuestions(ctx context.Context, sessionID string) []survey.Question {
	_, lang := o.language(ctx, sessionID)
	return survey.Questions(lang)
}

// SubmitSurvey 保存问卷并把访客提升到 Master。落库失败仍然致谢，Saved=false。
func (o *Orchestrator) SubmitSurvey(ctx context.Context, sessionID string, answers survey.Answers) (*Line, error) {
	snap, lang := o.language(ctx, sessionID)
	meta := survey.Context{Language: lang}
	if snap != nil {
		meta.VisitorID = snap.VisitorID
		meta.ConversationCount = snap.InteractionCount
	}
	meta.QuizScore, _ = o.quiz.Score(sessionID)

	_, saved, err := o.survey.Submit(ctx, answers, meta)
	if errors.Is(err, survey.ErrInvalidRating) {
		return nil, err
	}
	if err != nil && !errors.Is(err, survey.ErrDisabled) {
		o.logger.Printf("[Orchestrator] session=%s survey not saved: %v", sessionID, err)
	}

	if meta.VisitorID != "" {
		_, verr := o.visitors.Update(ctx, meta.VisitorID, func(v *model.VisitorState) error {
			v.QuizCompleted = true
			v.QuizScore = meta.QuizScore
			v.RelationshipLevel = relationship.MasterLevel
			v.RelationshipStyle = string(relationship.Master)
			return nil
		})
		if verr != nil {
			o.logger.Printf("[Orchestrator] session=%s visitor=%s promote failed: %v", sessionID, meta.VisitorID, verr)
		}
	}
	if snap != nil {
		_, _ = o.sessions.Update(ctx, sessionID, func(s *model.SessionState) error {
			s.RelationshipStyle = string(relationship.Master)
			return nil
		})
	}

	line := &Line{
		Message:        strings.TrimSpace(survey.ThankYou(lang)),
		Emotion:        emotion.Happy,
		Language:       lang,
		ShowReward:     true,
		RewardImageURL: survey.RewardImageURL,
		Saved:          saved,
	}
	o.logger.Printf("[Orchestrator] session=%s survey submitted visitor=%s saved=%v", sessionID, meta.VisitorID, saved)
	return o.say(ctx, sessionID, line, ""), nil
}

func eventFor(line *Line) string {
	if line.ShowReward {
		return EventSurvey
	}
	return EventQuiz
}

// Stage3Suggestions 全部答对后直接给出第三阶段的卡片。
func (o *Orchestrator) Stage3Suggestions(ctx context.Context, sessionID string) []string {
	persona := o.defaultPersona
	s, lang := o.language(ctx, sessionID)
	if s != nil {
		persona = s.Persona
	}
	return o.tracker.SuggestionsFor(dialogue.PhasePersonal, nil, persona, lang)
}
