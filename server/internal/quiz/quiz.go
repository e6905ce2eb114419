// Package quiz 会话内的三题小测验。判分在服务端完成，客户端声称的对错一律忽略。
package quiz

import (
	"errors"
	"fmt"
	"sync"

	"avatar-talk/server/internal/emotion"
)

var (
	ErrNoQuiz       = errors.New("no quiz in progress")
	ErrBadQuestion  = errors.New("question index out of range")
	ErrBadSelection = errors.New("selected option out of range")
)

// View 下发给客户端的题目，不含正确答案。
type View struct {
	Index   int      `json:"questionIndex"`
	Total   int      `json:"totalQuestions"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	// Spoken 朗读用文本（带题号）。
	Spoken string `json:"-"`
}

// Result 一次作答的判定。
type Result struct {
	QuestionIndex int           `json:"questionIndex"`
	IsCorrect     bool          `json:"isCorrect"`
	CorrectOption int           `json:"correctOption"`
	Explanation   string        `json:"explanation"`
	ResultMessage string        `json:"resultMessage"`
	Emotion       emotion.Label `json:"emotion"`
	HasNext       bool          `json:"hasNextQuestion"`
	NextIndex     int           `json:"nextQuestionIndex"`
	IsFinal       bool          `json:"isFinalResult"`
	TotalCorrect  int           `json:"totalCorrect"`
	Spoken        string        `json:"-"`
}

// Final 全部作答后的总结。
type Final struct {
	Message    string        `json:"message"`
	Emotion    emotion.Label `json:"emotion"`
	AllCorrect bool          `json:"allCorrect"`
	ShowSurvey bool          `json:"showSurvey"`
	Score      int           `json:"score"`
}

type progress struct {
	language string
	answered map[int]bool
	score    int
	finished bool
}

// Service 保存每个会话的答题进度。
type Service struct {
	mu       sync.Mutex
	bank     Bank
	sessions map[string]*progress
}

func NewService(bank Bank) *Service {
	if bank == nil {
		bank = DefaultBank()
	}
	return &Service{bank: bank, sessions: make(map[string]*progress)}
}

// Proposal 邀请参加测验的台词。
func Proposal(language string) (string, emotion.Label) {
	if language == "en" {
		return "Take the quiz and survey to get a special reward! Will you challenge?", emotion.Happy
	}
	return "クイズとアンケートに回答して特別報酬をゲット！クイズに挑戦しますか？", emotion.Happy
}

// Declined 拒绝测验时的回复。
func Declined(language string) (string, emotion.Label) {
	if language == "en" {
		return "Okay! Let me know when you want to try!", emotion.Neutral
	}
	return "わかった！また挑戦したくなったら声をかけてね！", emotion.Neutral
}

// Start 开始（或重新开始）测验，返回第一题。
func (s *Service) Start(sessionID, language string) (View, error) {
	s.mu.Lock()
	s.sessions[sessionID] = &progress{language: language, answered: make(map[int]bool)}
	s.mu.Unlock()
	return s.view(language, 0)
}

// Question 取第 idx 题。
func (s *Service) Question(sessionID string, idx int) (View, error) {
	s.mu.Lock()
	p, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return View{}, ErrNoQuiz
	}
	return s.view(p.language, idx)
}

func (s *Service) view(language string, idx int) (View, error) {
	qs := s.bank.questions(language)
	if idx < 0 || idx >= len(qs) {
		return View{}, fmt.Errorf("%w: %d", ErrBadQuestion, idx)
	}
	q := qs[idx]
	spoken := fmt.Sprintf("問題%d: %s", idx+1, q.Text)
	if language == "en" {
		spoken = fmt.Sprintf("Question %d: %s", idx+1, q.Text)
	}
	return View{
		Index:   idx,
		Total:   len(qs),
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
		Spoken:  spoken,
	}, nil
}

// Answer 判分。同一题重复作答只按第一次计分。
func (s *Service) Answer(sessionID string, idx, selected int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.sessions[sessionID]
	if !ok || p.finished {
		return Result{}, ErrNoQuiz
	}
	qs := s.bank.questions(p.language)
	if idx < 0 || idx >= len(qs) {
		return Result{}, fmt.Errorf("%w: %d", ErrBadQuestion, idx)
	}
	q := qs[idx]
	if selected < 0 || selected >= len(q.Options) {
		return Result{}, fmt.Errorf("%w: %d", ErrBadSelection, selected)
	}

	correct := selected == q.Correct
	if !p.answered[idx] {
		p.answered[idx] = true
		if correct {
			p.score++
		}
	}

	r := Result{
		QuestionIndex: idx,
		IsCorrect:     correct,
		CorrectOption: q.Correct,
		Explanation:   q.Explanation,
		HasNext:       idx+1 < len(qs),
		IsFinal:       idx+1 >= len(qs),
		TotalCorrect:  p.score,
	}
	if r.HasNext {
		r.NextIndex = idx + 1
	}
	switch {
	case correct && p.language == "en":
		r.ResultMessage, r.Emotion = "Amazing! Correct!", emotion.Surprise
	case correct:
		r.ResultMessage, r.Emotion = "すごい！正解です！", emotion.Surprise
	case p.language == "en":
		r.ResultMessage, r.Emotion = "Oh, so close!", emotion.Sad
	default:
		r.ResultMessage, r.Emotion = "あぁ、惜しいです！", emotion.Sad
	}
	r.Spoken = r.ResultMessage + " " + r.Explanation
	return r, nil
}

// Finish 结束测验并给出总结。进度保留到 Drop，问卷提交时据此取分。
func (s *Service) Finish(sessionID string) (Final, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.sessions[sessionID]
	if !ok {
		return Final{}, ErrNoQuiz
	}
	p.finished = true
	total := len(s.bank.questions(p.language))

	f := Final{Emotion: emotion.Happy, ShowSurvey: true, Score: p.score, AllCorrect: p.score == total}
	switch {
	case f.AllCorrect && p.language == "en":
		f.Message = "Congratulations! Perfect score! Answer the survey to get your special reward!"
	case f.AllCorrect:
		f.Message = "コングラチュレーション！おめでとうございます！全問正解です！アンケートに答えると特別なプレゼントがもらえるよ！"
	case p.language == "en":
		f.Message = fmt.Sprintf("You got %d/%d correct. Answer the survey to get your special reward!", p.score, total)
	default:
		f.Message = fmt.Sprintf("%d/%d問正解でした。アンケートに答えると特別なプレゼントがもらえるよ！", p.score, total)
	}
	return f, nil
}

// Quit 中途退出，清掉进度。
func (s *Service) Quit(sessionID, language string) (string, emotion.Label) {
	s.Drop(sessionID)
	if language == "en" {
		return "Okay! Come back when you're ready!", emotion.Neutral
	}
	return "わかった！準備ができたらまた挑戦してね！", emotion.Neutral
}

// Score 当前得分，没有测验时 ok=false。
func (s *Service) Score(sessionID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.sessions[sessionID]
	if !ok {
		return 0, false
	}
	return p.score, true
}

// Drop 会话断开时丢弃进度。
func (s *Service) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Len 进行中的测验数。
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
