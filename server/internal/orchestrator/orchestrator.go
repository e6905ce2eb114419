package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"avatar-talk/server/internal/cache"
	"avatar-talk/server/internal/dialogue"
	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/llm"
	"avatar-talk/server/internal/mentalstate"
	"avatar-talk/server/internal/model"
	"avatar-talk/server/internal/quiz"
	"avatar-talk/server/internal/relationship"
	"avatar-talk/server/internal/session"
	"avatar-talk/server/internal/speech"
	"avatar-talk/server/internal/survey"
	"avatar-talk/server/internal/timeline"
	"avatar-talk/server/internal/visitor"
)

var (
	ErrEmptyMessage   = errors.New("empty message")
	ErrDuplicateEvent = errors.New("duplicate event")
	// ErrSessionClosed 外部调用期间会话被断开，本轮结果已丢弃。
	ErrSessionClosed = errors.New("session closed during turn")
	ErrNoAudio       = errors.New("empty audio")
	ErrSelectionOff  = errors.New("user type selection disabled")
)

// 回答来源。
const (
	SourceCache    = "cache"
	SourceScripted = "scripted"
	SourceLLM      = "llm"
	SourceFallback = "fallback"
	SourceGreeting = "greeting"
)

// 时间线事件类型。
const (
	EventUserMessage   = "user_message"
	EventAssistantText = "assistant_text"
	EventGreeting      = "greeting"
	EventPersona       = "persona_selected"
	EventQuiz          = "quiz"
	EventSurvey        = "survey"
)

// Speaker 语音合成服务。
type Speaker interface {
	Speak(ctx context.Context, text, language string, e emotion.Label) (speech.Result, error)
}

// Options 编排器的协作者与参数。nil 的协作者视为未启用。
type Options struct {
	Catalog    *dialogue.Catalog
	Tracker    *dialogue.Tracker
	Resolver   *dialogue.Resolver
	Responder  *llm.Responder
	Classifier *emotion.Classifier
	Speaker    Speaker
	Recognizer speech.Recognizer
	Cache      *cache.ResponseCache
	Quiz       *quiz.Service
	Survey     *survey.Service
	Stats      *EmotionStats

	Ladder                  relationship.Ladder
	Estimator               mentalstate.Estimator
	EmotionHistoryCap       int
	DefaultPersona          string
	EnableUserTypeSelection bool

	Now    func() time.Time
	Logger *log.Logger
}

// Orchestrator 负责一次回合的完整编排。
//
// 约定：
// - 外部调用（LLM/TTS/STT/问卷落库）都在会话锁外进行：先取快照，调用完成后再用 Update 提交。
// - 提交时会话已被删除则丢弃本轮结果，不会重新插入。
// - 协作者失败只降级（道歉文案、neutral、无音频），不向传输层抛出。
type Orchestrator struct {
	sessions session.Store
	visitors visitor.Store
	timeline timeline.Store

	catalog    *dialogue.Catalog
	tracker    *dialogue.Tracker
	resolver   *dialogue.Resolver
	responder  *llm.Responder
	classifier *emotion.Classifier
	speaker    Speaker
	recognizer speech.Recognizer
	cache      *cache.ResponseCache
	quiz       *quiz.Service
	survey     *survey.Service
	stats      *EmotionStats

	reducer        Reducer
	ladder         relationship.Ladder
	defaultPersona string
	selectionOn    bool

	now    func() time.Time
	logger *log.Logger
}

func New(sessions session.Store, visitors visitor.Store, tl timeline.Store, opts Options) (*Orchestrator, error) {
	if sessions == nil || visitors == nil || tl == nil {
		return nil, errors.New("orchestrator: stores are required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("orchestrator: dialogue catalog is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tracker == nil {
		opts.Tracker = dialogue.NewTracker(opts.Catalog, nil)
	}
	if opts.Resolver == nil {
		opts.Resolver = dialogue.NewResolver(opts.Catalog, nil)
	}
	if opts.Classifier == nil {
		opts.Classifier = emotion.NewClassifier(emotion.DefaultWeights(), nil, opts.Logger)
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewResponseCache(0, 0)
	}
	if opts.Quiz == nil {
		opts.Quiz = quiz.NewService(nil)
	}
	if opts.Survey == nil {
		opts.Survey = survey.NewService(nil, "", opts.Logger)
	}
	if opts.Stats == nil {
		opts.Stats = NewEmotionStats()
	}
	if len(opts.Ladder.Steps) == 0 {
		opts.Ladder = relationship.DefaultLadder()
	}
	if opts.Estimator == (mentalstate.Estimator{}) {
		opts.Estimator = mentalstate.New()
	}
	if opts.EmotionHistoryCap <= 0 {
		opts.EmotionHistoryCap = DefaultEmotionHistoryCap
	}
	persona := opts.DefaultPersona
	if persona == "" || !opts.Catalog.HasPersona(persona) {
		persona = opts.Catalog.DefaultPersona
	}

	return &Orchestrator{
		sessions:       sessions,
		visitors:       visitors,
		timeline:       tl,
		catalog:        opts.Catalog,
		tracker:        opts.Tracker,
		resolver:       opts.Resolver,
		responder:      opts.Responder,
		classifier:     opts.Classifier,
		speaker:        opts.Speaker,
		recognizer:     opts.Recognizer,
		cache:          opts.Cache,
		quiz:           opts.Quiz,
		survey:         opts.Survey,
		stats:          opts.Stats,
		reducer:        Reducer{HistoryCap: opts.EmotionHistoryCap, Estimator: opts.Estimator},
		ladder:         opts.Ladder,
		defaultPersona: persona,
		selectionOn:    opts.EnableUserTypeSelection,
		now:            opts.Now,
		logger:         opts.Logger,
	}, nil
}

// Stats 全局情绪统计。
func (o *Orchestrator) Stats() *EmotionStats { return o.stats }

// SelectionEnabled 是否开启属性选择。
func (o *Orchestrator) SelectionEnabled() bool { return o.selectionOn }

// MessageInput 一条用户消息。
type MessageInput struct {
	SessionID string
	// EventID 客户端事件 ID，用于重投去重，可为空。
	EventID             string
	Text                string
	Language            string
	VisitorID           string
	InteractionCount    int
	SelectedSuggestions []string
}

// HandleMessage 执行一次完整回合：
// RECEIVED → CACHE_CHECK → RESOLVE(脚本/LLM/降级) → EMOTION_VALIDATE → HISTORY_UPDATE → SUGGESTION_BUILD → AUDIO_DISPATCH。
func (o *Orchestrator) HandleMessage(ctx context.Context, in MessageInput) (*model.TurnResult, error) {
	start := o.now()
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	// 会话不存在（过期事件）时按新会话处理。
	snap, _, err := o.sessions.GetOrCreate(ctx, in.SessionID, o.seed(in.VisitorID, in.Language))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	userEmotion := o.classifier.ClassifyForAvatar(text)
	if err := o.record(ctx, in.SessionID, model.Event{
		EventID: in.EventID,
		Type:    EventUserMessage,
		Emotion: userEmotion,
		Chars:   utf8.RuneCountInString(text),
	}); err != nil {
		return nil, err
	}

	lang := snap.Language
	if in.Language != "" {
		lang = normalizeLanguage(in.Language)
	}
	visitorID := in.VisitorID
	if visitorID == "" {
		visitorID = snap.VisitorID
	}
	clientCount := in.InteractionCount
	if clientCount < snap.InteractionCount {
		clientCount = snap.InteractionCount
	}

	style := relationship.Style(snap.RelationshipStyle)
	if visitorID != "" {
		v, err := o.touchVisitor(ctx, visitorID, in.SelectedSuggestions)
		if err != nil {
			o.logger.Printf("[Orchestrator] session=%s visitor=%s load failed: %v", in.SessionID, visitorID, err)
		} else {
			style = o.styleFor(v, clientCount)
		}
	}

	phase := o.tracker.PhaseFor(snap.Persona, snap.SelectedCount)
	reply, source := o.resolve(ctx, in.SessionID, text, lang, phase, style, snap)
	if userEmotion == emotion.DangerQuestion {
		reply.Emotion = emotion.DangerQuestion
	}
	// 缓存里已经是改写后的文本，命中时原样下发。
	message := reply.Message
	if source != SourceCache {
		message = relationship.AdjustStyle(reply.Message, lang, style)
	}

	// 连接已断开（队列取消了本回合）时丢弃结果，不写会话也不进缓存。
	if ctx.Err() != nil {
		o.logger.Printf("[Orchestrator] session=%s turn cancelled (%v), discarding reply source=%s", in.SessionID, ctx.Err(), source)
		return nil, ErrSessionClosed
	}

	var prev emotion.Label
	committed, err := o.sessions.Update(ctx, in.SessionID, func(s *model.SessionState) error {
		prev = o.reducer.ReduceTurn(s, TurnFacts{
			UserText:    text,
			Reply:       message,
			Emotion:     reply.Emotion,
			Language:    lang,
			ClientCount: clientCount,
			Selected:    in.SelectedSuggestions,
			VisitorID:   visitorID,
			Style:       style,
			Now:         o.now(),
		})
		_, _, err := o.timeline.Append(ctx, s.SessionID, &model.Event{
			Type:    EventAssistantText,
			Emotion: reply.Emotion,
			Source:  source,
			Chars:   utf8.RuneCountInString(message),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			o.logger.Printf("[Orchestrator] session=%s closed during turn, discarding reply", in.SessionID)
			return nil, ErrSessionClosed
		}
		return nil, fmt.Errorf("commit turn: %w", err)
	}
	o.stats.Record(prev, committed.CurrentEmotion)
	if source == SourceScripted || source == SourceLLM {
		o.cache.Put(text, lang, snap.Persona, cache.Response{Message: message, Emotion: reply.Emotion, Source: source})
	}

	result := &model.TurnResult{
		Message:           message,
		Emotion:           committed.CurrentEmotion,
		Language:          lang,
		Suggestions:       o.suggestions(committed),
		RelationshipLevel: string(style),
		InteractionCount:  committed.InteractionCount,
		MentalState:       committed.MentalState,
		Media:             o.catalog.MediaFor(committed.Persona, lang, in.Text),
		Source:            source,
	}
	result.Audio, result.VoiceEngine = o.speak(ctx, in.SessionID, message, lang, result.Emotion)
	result.ProcessingTime = roundSeconds(o.now().Sub(start))

	o.logger.Printf("[Orchestrator] session=%s turn=%d source=%s emotion=%s style=%s input=%q",
		in.SessionID, result.InteractionCount, source, result.Emotion, style, truncate(text, 30))
	return result, nil
}

// resolve 缓存 → 脚本 → LLM → 道歉文案。写缓存由调用方在提交成功后完成，降级文案不缓存。
func (o *Orchestrator) resolve(ctx context.Context, sessionID, text, lang string, phase dialogue.Phase, style relationship.Style, snap *model.SessionState) (cache.Response, string) {
	if r, ok := o.cache.Get(text, lang, snap.Persona); ok {
		return r, SourceCache
	}

	if ans, ok := o.resolver.Resolve(text, snap.Persona, phase, lang); ok {
		r := cache.Response{
			Message: strings.TrimSpace(ans.Text),
			Emotion: o.validate(sessionID, string(ans.Emotion)),
			Source:  SourceScripted,
		}
		return r, SourceScripted
	}

	ans, err := o.responder.Respond(ctx, llm.Request{
		SessionID: sessionID,
		Message:   text,
		Language:  lang,
		Persona:   snap.Persona,
		Style:     string(style),
		History:   snap.History,
	})
	if err != nil {
		o.logger.Printf("[Orchestrator] session=%s llm failed input=%q: %v", sessionID, truncate(text, 30), err)
		return cache.Response{Message: apology(lang), Emotion: emotion.Neutral, Source: SourceFallback}, SourceFallback
	}

	e := o.validate(sessionID, ans.RawEmotion)
	if !ans.Tagged {
		e, _ = o.classifier.Classify(ans.Text)
	}
	return cache.Response{Message: ans.Text, Emotion: e, Source: SourceLLM}, SourceLLM
}

// validate 把任意情绪折叠进词表，发生替换时记日志。
func (o *Orchestrator) validate(sessionID, raw string) emotion.Label {
	l, ok := emotion.Parse(raw)
	if !ok && raw != "" {
		o.logger.Printf("[Orchestrator] session=%s invalid emotion %q replaced with %s", sessionID, raw, l)
	}
	return l
}

// touchVisitor 首次见到访客 ID 时创建记录，并把客户端上报的卡片并入访客集合。
func (o *Orchestrator) touchVisitor(ctx context.Context, visitorID string, selected []string) (*model.VisitorState, error) {
	if len(selected) == 0 {
		v, _, err := o.visitors.GetOrCreate(ctx, visitorID)
		return v, err
	}
	return o.visitors.Update(ctx, visitorID, func(v *model.VisitorState) error {
		v.SelectedSuggestions.Union(model.ChipSet(selected))
		return nil
	})
}

// styleFor 累计对话数 = 访客历史对话数 + 本会话计数；已授予的等级不会被计数拉低。
func (o *Orchestrator) styleFor(v *model.VisitorState, sessionCount int) relationship.Style {
	level := o.ladder.For(v.TotalConversations + sessionCount)
	if stored := o.ladder.ByLevel(v.RelationshipLevel); stored.Level > level.Level {
		level = stored
	}
	return level.Style
}

func (o *Orchestrator) suggestions(s *model.SessionState) []string {
	if o.selectionOn && !s.PersonaSelected {
		return []string{}
	}
	phase := o.tracker.PhaseFor(s.Persona, s.SelectedCount)
	return o.tracker.SuggestionsFor(phase, s.SelectedSuggestions, s.Persona, s.Language)
}

// speak 合成失败只记日志，音频为 nil。
func (o *Orchestrator) speak(ctx context.Context, sessionID, text, lang string, e emotion.Label) (*string, string) {
	if o.speaker == nil {
		return nil, ""
	}
	res, err := o.speaker.Speak(ctx, text, lang, e)
	if err != nil {
		o.logger.Printf("[Orchestrator] session=%s speech failed engine=%s: %v", sessionID, res.Engine, err)
		return nil, res.Engine
	}
	return res.Audio, res.Engine
}

// record 在会话锁内写时间线，重投的事件返回 ErrDuplicateEvent。
func (o *Orchestrator) record(ctx context.Context, sessionID string, evt model.Event) error {
	_, err := o.sessions.Update(ctx, sessionID, func(s *model.SessionState) error {
		evt.ServerTS = o.now()
		_, fresh, err := o.timeline.Append(ctx, sessionID, &evt)
		if err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		if !fresh {
			return ErrDuplicateEvent
		}
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		return ErrSessionClosed
	}
	return err
}

func (o *Orchestrator) seed(visitorID, language string) func(*model.SessionState) {
	return func(s *model.SessionState) {
		s.Persona = o.defaultPersona
		s.VisitorID = visitorID
		if language != "" {
			s.Language = normalizeLanguage(language)
		}
	}
}

// Connect 建立会话并生成问候。首次连接用人设问候（start），已有会话按关系档位问候（happy）。
func (o *Orchestrator) Connect(ctx context.Context, sessionID, visitorID, language string) (*model.TurnResult, error) {
	snap, created, err := o.sessions.GetOrCreate(ctx, sessionID, o.seed(visitorID, language))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if visitorID == "" {
		visitorID = snap.VisitorID
	}

	style := relationship.Formal
	if visitorID != "" {
		if v, _, err := o.visitors.GetOrCreate(ctx, visitorID); err != nil {
			o.logger.Printf("[Orchestrator] session=%s visitor=%s load failed: %v", sessionID, visitorID, err)
		} else {
			style = o.styleFor(v, 0)
		}
	}

	var (
		text string
		e    emotion.Label
	)
	if created || !snap.Greeted {
		line := o.catalog.Greeting(snap.Persona, snap.Language)
		text, e = strings.TrimSpace(line.Text), emotion.Start
		if line.Emotion != "" {
			e = emotion.Normalize(string(line.Emotion))
		}
	} else {
		text = o.catalog.TierGreeting(snap.Persona, snap.Language, relationship.GreetingTier(style))
		e = emotion.Happy
	}
	o.logger.Printf("[Orchestrator] session=%s connect created=%v visitor=%s style=%s", sessionID, created, visitorID, style)
	return o.greet(ctx, sessionID, text, e, style)
}

// SetLanguage 切换语言并用新语言重新问候。
func (o *Orchestrator) SetLanguage(ctx context.Context, sessionID, language string) (*model.TurnResult, error) {
	lang := normalizeLanguage(language)
	snap, _, err := o.sessions.GetOrCreate(ctx, sessionID, o.seed("", lang))
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if _, err := o.sessions.Update(ctx, sessionID, func(s *model.SessionState) error {
		s.Language = lang
		return nil
	}); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}

	style := relationship.Formal
	if snap.VisitorID != "" {
		if v, err := o.visitors.Get(ctx, snap.VisitorID); err == nil {
			style = o.styleFor(v, 0)
		}
	}
	text := o.catalog.TierGreeting(snap.Persona, lang, relationship.GreetingTier(style))
	return o.greet(ctx, sessionID, text, emotion.Start, style)
}

func (o *Orchestrator) greet(ctx context.Context, sessionID, text string, e emotion.Label, style relationship.Style) (*model.TurnResult, error) {
	var prev emotion.Label
	committed, err := o.sessions.Update(ctx, sessionID, func(s *model.SessionState) error {
		prev = o.reducer.ReduceGreeting(s, e, style, o.now())
		_, _, err := o.timeline.Append(ctx, sessionID, &model.Event{
			Type:     EventGreeting,
			Emotion:  e,
			Source:   SourceGreeting,
			Chars:    utf8.RuneCountInString(text),
			ServerTS: o.now(),
		})
		return err
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionClosed
		}
		return nil, fmt.Errorf("commit greeting: %w", err)
	}
	o.stats.Record(prev, committed.CurrentEmotion)

	result := &model.TurnResult{
		Message:           text,
		Emotion:           committed.CurrentEmotion,
		Language:          committed.Language,
		Suggestions:       o.suggestions(committed),
		RelationshipLevel: string(style),
		InteractionCount:  committed.InteractionCount,
		MentalState:       committed.MentalState,
		IsGreeting:        true,
		Source:            SourceGreeting,
		UserTypeSelection: o.selectionOn,
	}
	result.Audio, result.VoiceEngine = o.speak(ctx, sessionID, text, committed.Language, result.Emotion)
	return result, nil
}

// BindVisitor 记录访客 ID 与客户端上报的访问次数。
func (o *Orchestrator) BindVisitor(ctx context.Context, sessionID, visitorID string, visitCount int) error {
	if visitorID == "" {
		return nil
	}
	if _, err := o.sessions.Update(ctx, sessionID, func(s *model.SessionState) error {
		s.VisitorID = visitorID
		return nil
	}); err != nil {
		return fmt.Errorf("bind visitor: %w", err)
	}
	_, err := o.visitors.Update(ctx, visitorID, func(v *model.VisitorState) error {
		if visitCount > 0 {
			v.VisitCount = visitCount
		}
		v.LastVisit = o.now()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update visitor: %w", err)
	}
	o.logger.Printf("[Orchestrator] session=%s bound visitor=%s visits=%d", sessionID, visitorID, visitCount)
	return nil
}

// SelectPersona 属性选择，每个会话只生效一次。
func (o *Orchestrator) SelectPersona(ctx context.Context, sessionID, persona, language string) (*model.TurnResult, error) {
	if !o.selectionOn {
		return nil, ErrSelectionOff
	}
	if !o.catalog.HasPersona(persona) {
		return nil, fmt.Errorf("%w: %s", dialogue.ErrUnknownPersona, persona)
	}
	lang := normalizeLanguage(language)

	committed, err := o.sessions.Update(ctx, sessionID, func(s *model.SessionState) error {
		if !s.PersonaSelected {
			s.Persona = persona
			s.PersonaSelected = true
		}
		s.Language = lang
		_, _, err := o.timeline.Append(ctx, sessionID, &model.Event{Type: EventPersona, ServerTS: o.now()})
		return err
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionClosed
		}
		return nil, fmt.Errorf("select persona: %w", err)
	}

	line, ok := o.catalog.SelectionReply(committed.Persona, lang)
	if !ok {
		line = o.catalog.Greeting(committed.Persona, lang)
	}
	e := emotion.Normalize(string(line.Emotion))
	text := strings.TrimSpace(line.Text)
	phase := o.tracker.PhaseFor(committed.Persona, 0)

	result := &model.TurnResult{
		Message:           text,
		Emotion:           e,
		Language:          lang,
		Suggestions:       o.tracker.SuggestionsFor(phase, nil, committed.Persona, lang),
		RelationshipLevel: committed.RelationshipStyle,
		InteractionCount:  committed.InteractionCount,
		MentalState:       committed.MentalState,
		Persona:           committed.Persona,
	}
	result.Audio, result.VoiceEngine = o.speak(ctx, sessionID, text, lang, e)
	return result, nil
}

// Transcribe 语音转文字，空音频和识别失败都返回错误，由调用方给出对应语言的提示。
func (o *Orchestrator) Transcribe(ctx context.Context, sessionID string, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}
	if o.recognizer == nil {
		return "", speech.ErrNoProvider
	}
	text, err := o.recognizer.Recognize(ctx, audio, normalizeLanguage(language))
	if err != nil {
		o.logger.Printf("[Orchestrator] session=%s transcription failed: %v", sessionID, err)
		return "", fmt.Errorf("recognize: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	return text, nil
}

// Disconnect 删除会话，并在会话锁内把计数折叠进访客记录（锁顺序固定为 会话 → 访客）。
func (o *Orchestrator) Disconnect(ctx context.Context, sessionID string) error {
	final, err := o.sessions.Delete(ctx, sessionID, func(s *model.SessionState) error {
		if s.VisitorID == "" || len(s.History) == 0 {
			return nil
		}
		_, err := o.visitors.Update(ctx, s.VisitorID, func(v *model.VisitorState) error {
			visitor.Fold(v, s, o.ladder, o.now())
			return nil
		})
		return err
	})
	o.quiz.Drop(sessionID)
	if terr := o.timeline.Delete(ctx, sessionID); terr != nil {
		o.logger.Printf("[Orchestrator] session=%s drop timeline: %v", sessionID, terr)
	}
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fold visitor: %w", err)
	}
	o.logger.Printf("[Orchestrator] session=%s disconnected visitor=%s turns=%d", sessionID, final.VisitorID, final.InteractionCount)
	return nil
}

// Session 会话快照。
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*model.SessionState, error) {
	return o.sessions.Get(ctx, sessionID)
}

// Timeline 会话的事件日志。
func (o *Orchestrator) Timeline(ctx context.Context, sessionID string) ([]model.Event, error) {
	return o.timeline.List(ctx, sessionID)
}

func normalizeLanguage(l string) string {
	if strings.EqualFold(strings.TrimSpace(l), "en") {
		return "en"
	}
	return "ja"
}

func apology(lang string) string {
	if lang == "en" {
		return "Sorry, the system is currently initializing. Please try again in a moment."
	}
	return "申し訳ございません。システムが初期化中です。少々お待ちください。"
}

// truncate 日志里只留用户输入的前 n 个字符。
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func roundSeconds(d time.Duration) float64 {
	return float64(d.Round(10*time.Millisecond)) / float64(time.Second)
}
