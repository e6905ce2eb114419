package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"avatar-talk/server/internal/actor"
	"avatar-talk/server/internal/api"
	"avatar-talk/server/internal/cache"
	"avatar-talk/server/internal/config"
	"avatar-talk/server/internal/dialogue"
	"avatar-talk/server/internal/llm"
	"avatar-talk/server/internal/mentalstate"
	"avatar-talk/server/internal/orchestrator"
	"avatar-talk/server/internal/session"
	"avatar-talk/server/internal/speech"
	"avatar-talk/server/internal/survey"
	"avatar-talk/server/internal/timeline"
	"avatar-talk/server/internal/visitor"
)

// maxReplyRunes 系统提示里要求的回答长度上限。
const maxReplyRunes = 120

func main() {
	// 凭据走环境变量（OPENAI_API_KEY / ELEVENLABS_API_KEY / AZURE_SPEECH_KEY ...），其余放 YAML。
	configPath := flag.String("config", "server/configs/avatar.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg.Dialogue.DataFile)
	if err != nil {
		logger.Fatalf("load dialogue: %v", err)
	}

	visitors, closeVisitors, err := newVisitorStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("init visitor store: %v", err)
	}
	defer closeVisitors()

	surveys := survey.NewService(newSurveyPersister(ctx, cfg, logger), cfg.Survey.AvatarName, logger)

	speechSvc, recognizer, err := newSpeech(cfg, logger)
	if err != nil {
		logger.Fatalf("init speech: %v", err)
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("init llm: %v", err)
	}
	var responder *llm.Responder
	if client != nil {
		responder = llm.NewResponder(client, actor.NewPrompter(catalog, maxReplyRunes), cfg.LLM.HistoryTurns, logger)
	} else {
		logger.Printf("[Main] LLM disabled: no API key for provider %s", cfg.LLM.Provider)
	}

	responses := cache.NewResponseCache(cfg.Cache.ResponseCapacity, cfg.Cache.ResponseTTL)
	sessions := session.NewInMemoryStore(nil)
	opts := orchestrator.Options{
		Catalog:                 catalog,
		Responder:               responder,
		Recognizer:              recognizer,
		Cache:                   responses,
		Survey:                  surveys,
		EmotionHistoryCap:       cfg.Session.EmotionHistoryCap,
		DefaultPersona:          cfg.Dialogue.DefaultPersona,
		EnableUserTypeSelection: cfg.Dialogue.EnableUserTypeSelection,
		Logger:                  logger,
	}
	if speechSvc != nil {
		opts.Speaker = speechSvc
	}
	if cfg.Session.EstimatorWindow > 0 {
		opts.Estimator = mentalstate.Estimator{Window: cfg.Session.EstimatorWindow, DepthTurns: mentalstate.DefaultDepthTurns}
	}
	core, err := orchestrator.New(sessions, visitors, timeline.NewInMemoryStore(cfg.Session.TimelineMaxEvents), opts)
	if err != nil {
		logger.Fatalf("init orchestrator: %v", err)
	}

	server, err := api.NewServer(cfg, api.Deps{
		Orchestrator:  core,
		Sessions:      sessions,
		Visitors:      visitors,
		ResponseCache: responses,
		Speech:        speechSvc,
		Survey:        surveys,
		LLMEnabled:    responder != nil,
		STTEnabled:    recognizer != nil,
		Logger:        logger,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	httpServer := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     server.Routes(),
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		<-ctx.Done()
		logger.Printf("[Main] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.CloseAll()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("[Main] shutdown: %v", err)
		}
	}()

	logger.Printf("avatar-talk server listening on %s (llm=%v speech=%v stt=%v visitors=%s)",
		httpServer.Addr, responder != nil, speechSvc.Providers(), recognizer != nil, cfg.Visitor.Backend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}

func loadCatalog(path string) (*dialogue.Catalog, error) {
	if path == "" {
		return dialogue.LoadDefault()
	}
	return dialogue.LoadFile(path)
}

// newLogger 按配置决定输出位置；debug 级别附带文件行号。
func newLogger(cfg config.LoggingConfig) (*log.Logger, func(), error) {
	var out io.Writer = os.Stdout
	closeFn := func() {}
	switch cfg.Output {
	case "", "stdout":
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out = f
		closeFn = func() { _ = f.Close() }
	}
	flags := log.LstdFlags | log.Lmicroseconds
	if cfg.Level == "debug" {
		flags |= log.Lshortfile
	}
	logger := log.New(out, "", flags)
	log.SetOutput(out)
	log.SetFlags(flags)
	return logger, closeFn, nil
}

func newVisitorStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (visitor.Store, func(), error) {
	if cfg.Visitor.Backend != "redis" {
		store, err := visitor.NewInMemoryStore(cfg.Visitor.Capacity, nil)
		return store, func() {}, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Visitor.Redis.Addr,
		Password: cfg.Visitor.Redis.Password,
		DB:       cfg.Visitor.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	logger.Printf("[Main] visitor store: redis %s", cfg.Visitor.Redis.Addr)
	store := visitor.NewRedisStore(rdb, visitor.RedisConfig{Prefix: cfg.Visitor.Redis.Prefix, TTL: cfg.Visitor.TTL}, logger)
	return store, func() { _ = rdb.Close() }, nil
}

// newSurveyPersister 连不上数据库时退回不落库，问卷照常致谢。
func newSurveyPersister(ctx context.Context, cfg *config.Config, logger *log.Logger) survey.Persister {
	if cfg.Survey.DSN == "" {
		return nil
	}
	p, err := survey.OpenPostgres(ctx, cfg.Survey.DSN)
	if err != nil {
		logger.Printf("[Main] survey persistence disabled: %v", err)
		return nil
	}
	return p
}

// newSpeech 按 ElevenLabs → Azure → OpenAI 的顺序组装合成链。
func newSpeech(cfg *config.Config, logger *log.Logger) (*speech.Service, speech.Recognizer, error) {
	var providers []speech.Synthesizer
	if cfg.ElevenLabsEnabled() {
		var terms *speech.Terms
		if cfg.Speech.TermsFile != "" {
			t, err := speech.LoadTerms(cfg.Speech.TermsFile)
			if err != nil {
				return nil, nil, err
			}
			terms = t
		}
		el := cfg.Speech.ElevenLabs
		providers = append(providers, speech.NewElevenLabs(speech.ElevenLabsConfig{
			APIKey:                    el.APIKey,
			VoiceID:                   el.VoiceID,
			ModelID:                   el.ModelID,
			PronunciationDictionaryID: el.PronunciationDictionaryID,
		}, terms))
	}
	if cfg.AzureEnabled() {
		az := cfg.Speech.Azure
		providers = append(providers, speech.NewAzure(speech.AzureConfig{Key: az.Key, Region: az.Region, Voice: az.Voice}))
	}

	var recognizer speech.Recognizer
	if cfg.OpenAITTSEnabled() {
		oc := speech.OpenAIConfig{APIKey: cfg.LLM.OpenAI.APIKey, BaseURL: cfg.LLM.OpenAI.APIURL, STTModel: cfg.STT.Model}
		providers = append(providers, speech.NewOpenAISynthesizer(oc))
		recognizer = speech.NewWhisperRecognizer(oc)
	}

	if len(providers) == 0 {
		logger.Printf("[Main] speech disabled: no TTS provider configured")
		return nil, recognizer, nil
	}
	chain := speech.NewChain(logger, providers...)
	return speech.NewService(chain, cache.NewAudioCache(cfg.Cache.AudioCapacity), logger), recognizer, nil
}
