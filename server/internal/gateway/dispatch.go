package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"avatar-talk/server/internal/orchestrator"
	"avatar-talk/server/internal/survey"
)

// dispatch 在事件队列里串行执行，把一条客户端事件路由到对话核心并下发结果。
// 核心返回的错误在这里转成对应语言的 error 帧，不会断开连接。
func (g *Gateway) dispatch(ctx context.Context, msg *ClientMessage) error {
	switch msg.Type {
	case EventMessage:
		return g.handleMessage(ctx, msg, msg.Text)
	case EventAudioMessage:
		return g.handleAudio(ctx, msg)
	case EventSetLanguage:
		return g.handleSetLanguage(ctx, msg)
	case EventVisitorInfo:
		return g.core.BindVisitor(ctx, g.sessionID, msg.VisitorID, msg.VisitCount)
	case EventSelectUserType:
		res, err := g.core.SelectPersona(ctx, g.sessionID, msg.UserType, msg.Language)
		if err != nil {
			_ = g.sendErrorToClient(msg.EventID, err.Error())
			return err
		}
		return g.send(EventUserTypeSelected, msg.EventID, res)

	case EventRequestQuizProposal:
		return g.send(EventQuizProposal, msg.EventID, g.core.QuizProposal(ctx, g.sessionID))
	case EventQuizStart:
		return g.reply(EventQuizQuestion, msg)(g.core.QuizStart(ctx, g.sessionID))
	case EventQuizAnswer:
		return g.reply(EventQuizAnswerResult, msg)(g.core.QuizAnswer(ctx, g.sessionID, msg.QuestionIndex, msg.SelectedOption))
	case EventNextQuizQuestion:
		return g.reply(EventQuizQuestion, msg)(g.core.NextQuizQuestion(ctx, g.sessionID, msg.QuestionIndex))
	case EventQuizFinalResult:
		return g.reply(EventQuizFinal, msg)(g.core.QuizFinal(ctx, g.sessionID))
	case EventQuizDeclined:
		return g.send(EventResponse, msg.EventID, g.core.QuizDeclined(ctx, g.sessionID))
	case EventQuizQuit:
		return g.send(EventResponse, msg.EventID, g.core.QuizQuit(ctx, g.sessionID))
	case EventStage3Suggestions:
		return g.send(EventStage3, msg.EventID, map[string][]string{"suggestions": g.core.Stage3Suggestions(ctx, g.sessionID)})

	case EventGetSurveyQuestions:
		return g.send(EventSurveyQuestions, msg.EventID, map[string][]survey.Question{"questions": g.core.SurveyQuestions(ctx, g.sessionID)})
	case EventSubmitSurvey:
		if msg.Answers == nil {
			_ = g.sendErrorToClient(msg.EventID, survey.ErrInvalidRating.Error())
			return survey.ErrInvalidRating
		}
		return g.reply(EventSurveySubmitted, msg)(g.core.SubmitSurvey(ctx, g.sessionID, *msg.Answers))

	default:
		err := fmt.Errorf("unknown event type %q", msg.Type)
		_ = g.sendErrorToClient(msg.EventID, err.Error())
		return err
	}
}

// reply 把 (line, err) 形式的结果转成下发帧。
func (g *Gateway) reply(t EventType, msg *ClientMessage) func(*orchestrator.Line, error) error {
	return func(line *orchestrator.Line, err error) error {
		if err != nil {
			_ = g.sendErrorToClient(msg.EventID, err.Error())
			return err
		}
		return g.send(t, msg.EventID, line)
	}
}

func (g *Gateway) handleMessage(ctx context.Context, msg *ClientMessage, text string) error {
	res, err := g.core.HandleMessage(ctx, orchestrator.MessageInput{
		SessionID:           g.sessionID,
		EventID:             msg.EventID,
		Text:                text,
		Language:            msg.Language,
		VisitorID:           msg.VisitorID,
		InteractionCount:    msg.InteractionCount,
		SelectedSuggestions: msg.SelectedSuggestions,
	})
	switch {
	case err == nil:
		return g.send(EventResponse, msg.EventID, res)
	case errors.Is(err, orchestrator.ErrDuplicateEvent):
		return g.send(EventAck, msg.EventID, map[string]bool{"duplicate": true})
	case errors.Is(err, orchestrator.ErrEmptyMessage), errors.Is(err, orchestrator.ErrSessionClosed):
		return nil
	default:
		_ = g.sendErrorToClient(msg.EventID, turnErrorText(msg.Language))
		return err
	}
}

// handleAudio 转写后先回 transcription，再按普通消息跑一轮。
func (g *Gateway) handleAudio(ctx context.Context, msg *ClientMessage) error {
	audio, err := decodeAudio(msg.Audio)
	if err != nil || len(audio) == 0 {
		_ = g.sendErrorToClient(msg.EventID, audioMissingText(msg.Language))
		return orchestrator.ErrNoAudio
	}

	text, err := g.core.Transcribe(ctx, g.sessionID, audio, msg.Language)
	switch {
	case errors.Is(err, orchestrator.ErrEmptyMessage):
		_ = g.sendErrorToClient(msg.EventID, audioUnrecognizedText(msg.Language))
		return err
	case err != nil:
		_ = g.sendErrorToClient(msg.EventID, audioFailedText(msg.Language))
		return err
	}

	if err := g.send(EventTranscription, msg.EventID, map[string]string{"text": text}); err != nil {
		return err
	}
	return g.handleMessage(ctx, msg, text)
}

func (g *Gateway) handleSetLanguage(ctx context.Context, msg *ClientMessage) error {
	res, err := g.core.SetLanguage(ctx, g.sessionID, msg.Language)
	if err != nil {
		_ = g.sendErrorToClient(msg.EventID, err.Error())
		return err
	}
	if err := g.send(EventLanguageChanged, msg.EventID, map[string]string{"language": res.Language}); err != nil {
		return err
	}
	return g.send(EventGreeting, msg.EventID, res)
}

// decodeAudio 兼容 data URL 前缀。
func decodeAudio(raw string) ([]byte, error) {
	if i := strings.Index(raw, ";base64,"); i >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
}

func turnErrorText(language string) string {
	if language == "en" {
		return "Sorry, an error occurred."
	}
	return "申し訳ございません。エラーが発生しました。"
}

func audioMissingText(language string) string {
	if language == "en" {
		return "Failed to receive audio data."
	}
	return "音声データを受信できませんでした。"
}

func audioUnrecognizedText(language string) string {
	if language == "en" {
		return "Could not recognize speech. Please try again."
	}
	return "音声が認識できませんでした。もう一度お試しください。"
}

func audioFailedText(language string) string {
	if language == "en" {
		return "Speech recognition failed. Please try again."
	}
	return "音声認識に失敗しました。もう一度お試しください。"
}
