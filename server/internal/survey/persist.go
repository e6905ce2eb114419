package survey

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrDisabled 没有配置持久化目标。
var ErrDisabled = errors.New("survey persistence disabled")

// Record 一份问卷提交。
type Record struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AvatarName        string    `gorm:"type:varchar(64);not null" json:"avatar_name"`
	VisitorID         string    `gorm:"type:varchar(64);index" json:"visitor_id"`
	QuizScore         int       `gorm:"default:0" json:"quiz_score"`
	ConversationCount int       `gorm:"default:0" json:"conversation_count"`
	Q1                int       `gorm:"not null" json:"q1"`
	Q2                int       `gorm:"not null" json:"q2"`
	Q3                int       `gorm:"not null" json:"q3"`
	Language          string    `gorm:"type:varchar(8)" json:"language"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Record) TableName() string {
	return "survey_responses"
}

// Persister 问卷落库。
type Persister interface {
	Save(ctx context.Context, rec *Record) error
}

// GormPersister 写 Postgres。
type GormPersister struct {
	db *gorm.DB
}

// OpenPostgres 连接并迁移问卷表。
func OpenPostgres(ctx context.Context, dsn string) (*GormPersister, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return NewGormPersister(db), nil
}

func NewGormPersister(db *gorm.DB) *GormPersister {
	return &GormPersister{db: db}
}

func (p *GormPersister) Save(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := p.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

// Close 关闭连接池。
func (p *GormPersister) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NopPersister 没有 DSN 时使用，只打日志。
type NopPersister struct {
	Logger *log.Logger
}

func (p NopPersister) Save(_ context.Context, rec *Record) error {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[Survey] persistence disabled, dropping record visitor=%s score=%d q=%d/%d/%d",
		rec.VisitorID, rec.QuizScore, rec.Q1, rec.Q2, rec.Q3)
	return ErrDisabled
}
