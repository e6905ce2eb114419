// Package survey 测验后的满意度问卷。
package survey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
)

var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Answers 客户端提交的原始答案，评分以字符串形式传入。
type Answers struct {
	Q1 string `json:"q1"`
	Q2 string `json:"q2"`
	Q3 string `json:"q3"`
}

// Context 提交时从会话和测验中取到的信息。
type Context struct {
	VisitorID         string
	QuizScore         int
	ConversationCount int
	Language          string
}

// Service 校验并保存问卷。
type Service struct {
	persister  Persister
	avatarName string
	logger     *log.Logger
}

func NewService(p Persister, avatarName string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if p == nil {
		p = NopPersister{Logger: logger}
	}
	if strings.TrimSpace(avatarName) == "" {
		avatarName = "Unknown"
	}
	return &Service{persister: p, avatarName: avatarName, logger: logger}
}

// Enabled 是否真正落库。
func (s *Service) Enabled() bool {
	_, nop := s.persister.(NopPersister)
	return !nop
}

// Submit 校验评分并保存。
// 校验失败返回 ErrInvalidRating；保存失败时 saved=false，err 为底层错误，调用方仍应视为已作答。
func (s *Service) Submit(ctx context.Context, in Answers, meta Context) (rec *Record, saved bool, err error) {
	q1, err := parseRating("q1", in.Q1)
	if err != nil {
		return nil, false, err
	}
	q2, err := parseRating("q2", in.Q2)
	if err != nil {
		return nil, false, err
	}
	q3, err := parseRating("q3", in.Q3)
	if err != nil {
		return nil, false, err
	}

	visitorID := meta.VisitorID
	if visitorID == "" {
		visitorID = "unknown"
	}
	rec = &Record{
		AvatarName:        s.avatarName,
		VisitorID:         visitorID,
		QuizScore:         meta.QuizScore,
		ConversationCount: meta.ConversationCount,
		Q1:                q1,
		Q2:                q2,
		Q3:                q3,
		Language:          meta.Language,
	}
	if err := s.persister.Save(ctx, rec); err != nil {
		if !errors.Is(err, ErrDisabled) {
			s.logger.Printf("[Survey] save failed visitor=%s: %v", visitorID, err)
		}
		return rec, false, err
	}
	s.logger.Printf("[Survey] saved id=%s visitor=%s score=%d", rec.ID, visitorID, rec.QuizScore)
	return rec, true, nil
}

func parseRating(field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 1 || v > 5 {
		return 0, fmt.Errorf("%s=%q: %w", field, raw, ErrInvalidRating)
	}
	return v, nil
}
