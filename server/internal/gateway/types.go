package gateway

import (
	"time"

	"avatar-talk/server/internal/survey"
)

// EventType 定义了网关处理的事件类型
type EventType string

const (
	// 对话
	EventMessage        EventType = "message"
	EventAudioMessage   EventType = "audio_message"
	EventSetLanguage    EventType = "set_language"
	EventVisitorInfo    EventType = "visitor_info"
	EventSelectUserType EventType = "select_user_type"

	// 测验
	EventRequestQuizProposal EventType = "request_quiz_proposal"
	EventQuizStart           EventType = "quiz_start"
	EventQuizAnswer          EventType = "quiz_answer"
	EventNextQuizQuestion    EventType = "request_next_quiz_question"
	EventQuizFinalResult     EventType = "request_quiz_final_result"
	EventQuizDeclined        EventType = "quiz_declined"
	EventQuizQuit            EventType = "quiz_quit"
	EventStage3Suggestions   EventType = "request_stage3_suggestions"

	// 问卷
	EventGetSurveyQuestions EventType = "get_survey_questions"
	EventSubmitSurvey       EventType = "submit_survey"
)

// 下行事件
const (
	EventStatus           EventType = "status"
	EventCurrentLanguage  EventType = "current_language"
	EventGreeting         EventType = "greeting"
	EventLanguageChanged  EventType = "language_changed"
	EventResponse         EventType = "response"
	EventTranscription    EventType = "transcription"
	EventUserTypeSelected EventType = "user_type_selected"
	EventQuizProposal     EventType = "quiz_proposal"
	EventQuizQuestion     EventType = "quiz_question"
	EventQuizAnswerResult EventType = "quiz_answer_result"
	EventQuizFinal        EventType = "quiz_final_result"
	EventStage3           EventType = "stage3_suggestions"
	EventSurveyQuestions  EventType = "survey_questions"
	EventSurveySubmitted  EventType = "survey_submitted"
	EventAck              EventType = "ack"
	EventError            EventType = "error"
)

// ClientMessage 客户端发送给网关的消息（WebSocket文本帧）
type ClientMessage struct {
	Type    EventType `json:"type"`
	EventID string    `json:"event_id,omitempty"` // 幂等去重

	Text                string   `json:"message,omitempty"`
	Language            string   `json:"language,omitempty"`
	VisitorID           string   `json:"visitorId,omitempty"`
	VisitCount          int      `json:"visitCount,omitempty"`
	InteractionCount    int      `json:"interactionCount,omitempty"`
	SelectedSuggestions []string `json:"selectedSuggestions,omitempty"`

	// Audio base64 编码的录音
	Audio    string `json:"audio,omitempty"`
	UserType string `json:"userType,omitempty"`

	QuestionIndex  int             `json:"questionIndex,omitempty"`
	SelectedOption int             `json:"selectedOption,omitempty"`
	Answers        *survey.Answers `json:"answers,omitempty"`

	ClientTS time.Time `json:"client_ts,omitempty"`
}

// ServerMessage 网关发送给客户端的消息
type ServerMessage struct {
	Type     EventType `json:"type"`
	Seq      int64     `json:"seq,omitempty"` // 服务端序号
	EventID  string    `json:"event_id,omitempty"`
	Data     any       `json:"data,omitempty"`
	ServerTS time.Time `json:"server_ts"`
	Error    string    `json:"error,omitempty"`
}
