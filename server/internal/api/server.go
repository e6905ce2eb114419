package api

import (
	"errors"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"avatar-talk/server/internal/cache"
	"avatar-talk/server/internal/config"
	"avatar-talk/server/internal/gateway"
	"avatar-talk/server/internal/orchestrator"
	"avatar-talk/server/internal/session"
	"avatar-talk/server/internal/speech"
	"avatar-talk/server/internal/survey"
	"avatar-talk/server/internal/visitor"
)

// recentEmotions mental-state 接口返回的最近情绪条数。
const recentEmotions = 10

// Deps 服务依赖，由 main 组装。
type Deps struct {
	Orchestrator  *orchestrator.Orchestrator
	Sessions      session.Store
	Visitors      visitor.Store
	ResponseCache *cache.ResponseCache
	Speech        *speech.Service
	Survey        *survey.Service
	LLMEnabled    bool
	STTEnabled    bool
	Logger        *log.Logger
}

type Server struct {
	config *config.Config
	deps   Deps
	logger *log.Logger

	// gateways 管理所有活跃连接 (sessionID -> Gateway)
	gateways   map[string]*gateway.Gateway
	gatewaysMu sync.RWMutex

	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Orchestrator == nil || deps.Sessions == nil || deps.Visitors == nil {
		return nil, errors.New("api: orchestrator and stores are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	s := &Server{
		config:   cfg,
		deps:     deps,
		logger:   deps.Logger,
		gateways: make(map[string]*gateway.Gateway),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())
	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/ws", s.handleWebSocket)

	api := engine.Group("/api")
	api.GET("/visitor-stats", s.handleVisitorStats)
	api.GET("/emotion-stats", s.handleEmotionStats)
	api.GET("/mental-state/:sessionId", s.handleMentalState)
	api.GET("/survey/questions", s.handleSurveyQuestions)
	api.GET("/reward-image", s.handleRewardImage)
	return engine
}

// handleHealthz 返回服务健康状态与各组件规模。
func (s *Server) handleHealthz(c *gin.Context) {
	visitors, err := s.deps.Visitors.Len(c.Request.Context())
	if err != nil {
		s.logger.Printf("[API] count visitors: %v", err)
		visitors = -1
	}
	var responseCache int
	if s.deps.ResponseCache != nil {
		responseCache = s.deps.ResponseCache.Len()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"active_sessions":    s.deps.Sessions.Len(),
		"active_connections": s.connectionCount(),
		"visitors":           visitors,
		"response_cache":     responseCache,
		"audio_cache":        s.deps.Speech.CacheLen(),
		"services": gin.H{
			"llm":             s.deps.LLMEnabled,
			"speech":          s.deps.Speech.Providers(),
			"stt":             s.deps.STTEnabled,
			"survey_persist":  s.deps.Survey != nil && s.deps.Survey.Enabled(),
			"user_type_query": s.deps.Orchestrator.SelectionEnabled(),
		},
	})
}

// handleVisitorStats 访客总数与关系等级分布。
func (s *Server) handleVisitorStats(c *gin.Context) {
	all, err := s.deps.Visitors.Snapshot(c.Request.Context())
	if err != nil {
		s.logger.Printf("[API] visitor snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load visitors failed"})
		return
	}
	c.JSON(http.StatusOK, visitor.Summarize(all))
}

func (s *Server) handleEmotionStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Orchestrator.Stats().Snapshot())
}

// handleMentalState 当前心理状态、最近情绪与时间线。
func (s *Server) handleMentalState(c *gin.Context) {
	sessionID := c.Param("sessionId")
	ctx := c.Request.Context()

	st, err := s.deps.Orchestrator.Session(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		s.logger.Printf("[API] load session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load session failed"})
		return
	}

	history := st.EmotionHistory
	if len(history) > recentEmotions {
		history = history[len(history)-recentEmotions:]
	}
	events, err := s.deps.Orchestrator.Timeline(ctx, sessionID)
	if err != nil {
		s.logger.Printf("[API] load timeline %s: %v", sessionID, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":           st.SessionID,
		"current_mental_state": st.MentalState,
		"emotion":              st.CurrentEmotion,
		"relationship_level":   st.RelationshipStyle,
		"interaction_count":    st.InteractionCount,
		"history":              history,
		"timeline":             events,
	})
}

func (s *Server) handleSurveyQuestions(c *gin.Context) {
	lang := c.DefaultQuery("language", "ja")
	c.JSON(http.StatusOK, gin.H{"language": lang, "questions": survey.Questions(lang)})
}

func (s *Server) handleRewardImage(c *gin.Context) {
	path := s.config.Survey.RewardImage
	if path == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "reward image not configured"})
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.logger.Printf("[API] reward image %s: %v", path, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "reward image not found"})
		return
	}
	c.File(path)
}

// handleWebSocket 升级连接并运行网关，直到客户端断开。
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Printf("[API] websocket upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	gw := gateway.NewGateway(sessionID, conn, s.deps.Orchestrator, gateway.Config{
		QueueSize:    s.config.Server.EventQueueSize,
		EventTimeout: s.config.Server.TurnTimeout,
	}, s.logger)

	s.gatewaysMu.Lock()
	s.gateways[sessionID] = gw
	total := len(s.gateways)
	s.gatewaysMu.Unlock()
	s.logger.Printf("[API] connection opened session=%s remote=%s (active: %d)", sessionID, c.Request.RemoteAddr, total)

	defer func() {
		s.gatewaysMu.Lock()
		delete(s.gateways, sessionID)
		remaining := len(s.gateways)
		s.gatewaysMu.Unlock()
		s.logger.Printf("[API] connection closed session=%s (active: %d)", sessionID, remaining)
	}()

	gw.Run(c.Request.Context(), c.Query("visitor_id"), c.Query("language"))
}

func (s *Server) connectionCount() int {
	s.gatewaysMu.RLock()
	defer s.gatewaysMu.RUnlock()
	return len(s.gateways)
}

// CloseAll 关闭全部连接，用于优雅退出。
func (s *Server) CloseAll() {
	s.gatewaysMu.RLock()
	gws := make([]*gateway.Gateway, 0, len(s.gateways))
	for _, gw := range s.gateways {
		gws = append(gws, gw)
	}
	s.gatewaysMu.RUnlock()

	for _, gw := range gws {
		_ = gw.Close()
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, o := range s.config.Server.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && s.originAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
