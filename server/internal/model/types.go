package model

import (
	"strings"
	"time"

	"avatar-talk/server/internal/emotion"
)

// Turn 表示对话历史中的一轮。
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	TS      time.Time `json:"ts,omitempty"`
}

// EmotionRecord 情绪日志中的一条。
type EmotionRecord struct {
	Emotion          emotion.Label `json:"emotion"`
	Timestamp        time.Time     `json:"timestamp"`
	InteractionCount int           `json:"interaction_count"`
}

// MentalState 由最近情绪推导的粗粒度状态，三个值都在 [0,1]。
type MentalState struct {
	Stress     float64 `json:"stress_level"`
	Engagement float64 `json:"engagement_level"`
	Depth      float64 `json:"conversation_depth"`
}

// DefaultMentalState 空历史时的默认值。
func DefaultMentalState() MentalState {
	return MentalState{Stress: 0, Engagement: 0.5, Depth: 0}
}

// SessionState 一个连接的对话记忆，随连接创建和销毁。
type SessionState struct {
	// 连接 ID，作为存储键。
	SessionID string `json:"session_id"`
	// 访客 ID，只是反向引用。
	VisitorID string `json:"visitor_id,omitempty"`

	Language string `json:"language"`
	// Persona 对话表分区（user_type）。
	Persona string `json:"persona"`
	// PersonaSelected 是否已通过属性选择改过一次 persona。
	PersonaSelected bool `json:"persona_selected"`

	History          []Turn          `json:"conversation_history"`
	InteractionCount int             `json:"interaction_count"`
	EmotionHistory   []EmotionRecord `json:"emotion_history"`
	CurrentEmotion   emotion.Label   `json:"current_emotion"`
	MentalState      MentalState     `json:"mental_state"`

	RelationshipStyle string `json:"relationship_style"`

	// SelectedSuggestions 已选择过的建议卡片，只有成员语义。
	SelectedSuggestions ChipSet `json:"selected_suggestions"`
	// SelectedCount 驱动阶段判定，只增不减。
	SelectedCount int `json:"selected_suggestions_count"`

	Greeted   bool      `json:"greeted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone 深拷贝，用于在锁外读取快照。
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.History = append([]Turn(nil), s.History...)
	out.EmotionHistory = append([]EmotionRecord(nil), s.EmotionHistory...)
	out.SelectedSuggestions = s.SelectedSuggestions.Clone()
	return &out
}

// VisitorState 跨会话的访客记忆。
type VisitorState struct {
	VisitorID          string    `json:"visitor_id"`
	FirstVisit         time.Time `json:"first_visit"`
	LastVisit          time.Time `json:"last_visit"`
	VisitCount         int       `json:"visit_count"`
	TotalConversations int       `json:"total_conversations"`
	Topics             []string  `json:"topics_discussed"`
	RelationshipLevel  int       `json:"relationship_level"`
	RelationshipStyle  string    `json:"relationship_style"`
	// SelectedSuggestions 各会话选择过的卡片并集。
	SelectedSuggestions ChipSet `json:"selected_suggestions"`
	QuizCompleted       bool    `json:"quiz_completed"`
	QuizScore           int     `json:"quiz_score"`
}

// Clone 深拷贝。
func (v *VisitorState) Clone() *VisitorState {
	if v == nil {
		return nil
	}
	out := *v
	out.Topics = append([]string(nil), v.Topics...)
	out.SelectedSuggestions = v.SelectedSuggestions.Clone()
	return &out
}

// HasTopic 判断话题是否已记录。
func (v *VisitorState) HasTopic(topic string) bool {
	for _, t := range v.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// ChipSet 建议卡片集合，按归一化文本去重，保留第一次出现的原文。
type ChipSet []string

// ChipKey 卡片的比较键：大小写与空白不敏感。
func ChipKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Has 判断集合中是否有等价卡片。
func (c ChipSet) Has(s string) bool {
	key := ChipKey(s)
	for _, v := range c {
		if ChipKey(v) == key {
			return true
		}
	}
	return false
}

// Add 加入新卡片，已存在则忽略，返回是否新增。
func (c *ChipSet) Add(s string) bool {
	if ChipKey(s) == "" || c.Has(s) {
		return false
	}
	*c = append(*c, s)
	return true
}

// Union 合并另一个集合。
func (c *ChipSet) Union(other ChipSet) {
	for _, s := range other {
		c.Add(s)
	}
}

// Clone 拷贝。
func (c ChipSet) Clone() ChipSet {
	if c == nil {
		return nil
	}
	return append(ChipSet(nil), c...)
}

// MediaItem 图片或视频附件。
type MediaItem struct {
	URL       string `json:"url" yaml:"url"`
	Caption   string `json:"caption,omitempty" yaml:"caption"`
	Alt       string `json:"alt,omitempty" yaml:"alt"`
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail"`
}

// MediaLink 外部链接。
type MediaLink struct {
	Text string `json:"text" yaml:"text"`
	URL  string `json:"url" yaml:"url"`
}

// Media 和某个问答条目绑定的附件。
type Media struct {
	Images []MediaItem `json:"images,omitempty" yaml:"images"`
	Videos []MediaItem `json:"videos,omitempty" yaml:"videos"`
	Link   *MediaLink  `json:"link,omitempty" yaml:"link"`
}

// Empty 判断是否没有任何附件。
func (m *Media) Empty() bool {
	return m == nil || (len(m.Images) == 0 && len(m.Videos) == 0 && m.Link == nil)
}

// TurnResult 一次回合的输出，由传输层原样下发。
type TurnResult struct {
	Message           string        `json:"message"`
	Emotion           emotion.Label `json:"emotion"`
	Audio             *string       `json:"audio"`
	Language          string        `json:"language"`
	VoiceEngine       string        `json:"voice_engine,omitempty"`
	ProcessingTime    float64       `json:"processingTime"`
	Suggestions       []string      `json:"suggestions"`
	RelationshipLevel string        `json:"relationshipLevel"`
	InteractionCount  int           `json:"interactionCount"`
	MentalState       MentalState   `json:"mentalState"`
	Media             *Media        `json:"media,omitempty"`
	IsGreeting        bool          `json:"isGreeting,omitempty"`
	// UserTypeSelection 问候时提示客户端展示属性选择。
	UserTypeSelection bool   `json:"enableUserTypeSelection,omitempty"`
	Persona           string `json:"userType,omitempty"`
	// Source 回答来源：cache/scripted/llm/fallback/greeting。
	Source string `json:"source,omitempty"`
}

// Event 表示时间线中的一个事件。
type Event struct {
	// Seq 由后端分配的单调序号。
	Seq int64 `json:"seq,omitempty"`
	// SessionID 由编排器补齐。
	SessionID string `json:"session_id,omitempty"`
	// EventID 客户端传入，用于重投去重。
	EventID string `json:"event_id,omitempty"`

	// Type 事件类型（user_message/assistant_text/greeting/...）。
	Type    string        `json:"type"`
	Emotion emotion.Label `json:"emotion,omitempty"`
	// Source 助手回答的来源。
	Source string `json:"source,omitempty"`
	// Chars 文本长度，只记长度不记原文。
	Chars    int       `json:"chars,omitempty"`
	ServerTS time.Time `json:"server_ts"`
}
