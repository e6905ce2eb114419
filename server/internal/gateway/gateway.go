package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"avatar-talk/server/internal/model"
	"avatar-talk/server/internal/orchestrator"
	"avatar-talk/server/internal/survey"
)

// Core 网关依赖的对话核心，由 orchestrator.Orchestrator 实现。
type Core interface {
	Connect(ctx context.Context, sessionID, visitorID, language string) (*model.TurnResult, error)
	Disconnect(ctx context.Context, sessionID string) error
	HandleMessage(ctx context.Context, in orchestrator.MessageInput) (*model.TurnResult, error)
	SetLanguage(ctx context.Context, sessionID, language string) (*model.TurnResult, error)
	BindVisitor(ctx context.Context, sessionID, visitorID string, visitCount int) error
	SelectPersona(ctx context.Context, sessionID, persona, language string) (*model.TurnResult, error)
	Transcribe(ctx context.Context, sessionID string, audio []byte, language string) (string, error)

	QuizProposal(ctx context.Context, sessionID string) *orchestrator.Line
	QuizStart(ctx context.Context, sessionID string) (*orchestrator.Line, error)
	QuizAnswer(ctx context.Context, sessionID string, idx, selected int) (*orchestrator.Line, error)
	NextQuizQuestion(ctx context.Context, sessionID string, idx int) (*orchestrator.Line, error)
	QuizFinal(ctx context.Context, sessionID string) (*orchestrator.Line, error)
	QuizDeclined(ctx context.Context, sessionID string) *orchestrator.Line
	QuizQuit(ctx context.Context, sessionID string) *orchestrator.Line
	Stage3Suggestions(ctx context.Context, sessionID string) []string
	SurveyQuestions(ctx context.Context, sessionID string) []survey.Question
	SubmitSurvey(ctx context.Context, sessionID string, answers survey.Answers) (*orchestrator.Line, error)
}

// Config 网关配置
type Config struct {
	QueueSize    int
	EventTimeout time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
	// ReadLimit 单帧上限，录音以 base64 上传，需要留足空间。
	ReadLimit int64
}

func (c Config) withDefaults() Config {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 8 << 20
	}
	return c
}

// Gateway 一个客户端连接：读循环把事件放进串行队列，处理结果按序号下发。
type Gateway struct {
	sessionID string

	clientConn     *websocket.Conn
	clientConnLock sync.Mutex

	core   Core
	queue  *EventQueue
	config Config

	closeOnce sync.Once
	closeChan chan struct{}

	seqCounter int64
	seqLock    sync.Mutex

	logger *log.Logger
}

// NewGateway 创建网关。visitorID/language 来自握手请求，可为空。
func NewGateway(sessionID string, conn *websocket.Conn, core Core, cfg Config, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.Default()
	}
	g := &Gateway{
		sessionID:  sessionID,
		clientConn: conn,
		core:       core,
		config:     cfg.withDefaults(),
		closeChan:  make(chan struct{}),
		logger:     logger,
	}
	g.queue = NewEventQueue(sessionID, g.dispatch, cfg.QueueSize, cfg.EventTimeout, logger)
	return g
}

// SessionID 连接 ID。
func (g *Gateway) SessionID() string { return g.sessionID }

// QueueStats 事件队列统计。
func (g *Gateway) QueueStats() QueueStats { return g.queue.Stats() }

// Run 发送问候后进入读循环，连接断开时返回并清理会话。
func (g *Gateway) Run(ctx context.Context, visitorID, language string) {
	defer g.Close()

	conn := g.clientConn
	conn.SetReadLimit(g.config.ReadLimit)
	go g.pingLoop()

	res, err := g.core.Connect(ctx, g.sessionID, visitorID, language)
	if err != nil {
		g.logger.Printf("[Gateway] session=%s connect failed: %v", g.sessionID, err)
		_ = g.sendErrorToClient("", initErrorText(language))
	} else {
		_ = g.send(EventStatus, "", map[string]string{"message": statusText(res.Language)})
		_ = g.send(EventCurrentLanguage, "", map[string]string{"language": res.Language})
		_ = g.send(EventGreeting, "", res)
	}

	g.clientReadLoop(conn)
}

// clientReadLoop 从客户端读取 JSON 事件
func (g *Gateway) clientReadLoop(conn *websocket.Conn) {
	for {
		select {
		case <-g.closeChan:
			return
		default:
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Printf("[Gateway] session=%s client read error: %v", g.sessionID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = g.sendErrorToClient("", fmt.Sprintf("invalid message: %v", err))
			continue
		}
		if msg.Type == "" {
			_ = g.sendErrorToClient(msg.EventID, "missing event type")
			continue
		}
		if err := g.queue.Enqueue(&msg); err != nil {
			_ = g.sendErrorToClient(msg.EventID, err.Error())
		}
	}
}

// send 分配序号并写帧。
func (g *Gateway) send(t EventType, eventID string, data any) error {
	return g.sendToClient(&ServerMessage{Type: t, EventID: eventID, Data: data})
}

func (g *Gateway) sendToClient(msg *ServerMessage) error {
	g.seqLock.Lock()
	g.seqCounter++
	msg.Seq = g.seqCounter
	g.seqLock.Unlock()

	if msg.ServerTS.IsZero() {
		msg.ServerTS = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal server message: %w", err)
	}

	g.clientConnLock.Lock()
	defer g.clientConnLock.Unlock()

	if g.clientConn == nil {
		return errors.New("client connection is closed")
	}
	_ = g.clientConn.SetWriteDeadline(time.Now().Add(g.config.WriteTimeout))
	if err := g.clientConn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write to client: %w", err)
	}
	return nil
}

func (g *Gateway) sendErrorToClient(eventID, errMsg string) error {
	return g.sendToClient(&ServerMessage{
		Type:    EventError,
		EventID: eventID,
		Error:   errMsg,
		Data:    map[string]string{"message": errMsg},
	})
}

func (g *Gateway) pingLoop() {
	ticker := time.NewTicker(g.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.closeChan:
			return
		case <-ticker.C:
			g.clientConnLock.Lock()
			if g.clientConn != nil {
				_ = g.clientConn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second))
			}
			g.clientConnLock.Unlock()
		}
	}
}

// Close 先停队列（取消进行中的回合并等待其退出），再删除会话并并入访客记录，最后关连接。
// 顺序保证队列里剩下的事件不会在删除之后重新创建会话。可重复调用。
func (g *Gateway) Close() error {
	var closeErr error

	g.closeOnce.Do(func() {
		close(g.closeChan)
		_ = g.queue.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.core.Disconnect(ctx, g.sessionID); err != nil {
			g.logger.Printf("[Gateway] session=%s disconnect: %v", g.sessionID, err)
		}

		g.clientConnLock.Lock()
		if g.clientConn != nil {
			_ = g.clientConn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			closeErr = g.clientConn.Close()
			g.clientConn = nil
		}
		g.clientConnLock.Unlock()

		g.logger.Printf("[Gateway] session=%s closed", g.sessionID)
	})

	return closeErr
}

func statusText(language string) string {
	if language == "en" {
		return "Connected"
	}
	return "接続成功"
}

func initErrorText(language string) string {
	if language == "en" {
		return "An error occurred during initialization"
	}
	return "初期化中にエラーが発生しました"
}
