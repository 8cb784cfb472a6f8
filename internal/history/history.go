package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/blackjack-backend/internal/engine"
)

// Round is the outcome of one finished round.
type Round struct {
	Code       string
	FinishedAt time.Time
	Summary    string
	Results    []engine.Result
}

type Recorder interface {
	RecordRound(ctx context.Context, r Round) error
}

// Nop discards every round.
type Nop struct{}

func (Nop) RecordRound(context.Context, Round) error { return nil }

type RoundRecord struct {
	ID         uint           `gorm:"primaryKey"`
	Code       string         `gorm:"size:6;index"`
	FinishedAt time.Time      `gorm:"index"`
	Summary    string         `gorm:"type:text"`
	Results    []ResultRecord `gorm:"foreignKey:RoundID;constraint:OnDelete:CASCADE"`
}

type ResultRecord struct {
	ID          uint   `gorm:"primaryKey"`
	RoundID     uint   `gorm:"index"`
	PlayerID    string `gorm:"size:64"`
	DisplayName string `gorm:"size:64"`
	Busted      bool
	Value       int
	Winner      bool
}

// Store persists rounds to Postgres through gorm.
type Store struct {
	db *gorm.DB
}

func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.AutoMigrate(&RoundRecord{}, &ResultRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) RecordRound(ctx context.Context, r Round) error {
	rec := toRecord(r)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record round %s: %w", r.Code, err)
	}
	return nil
}

// Recent returns the latest rounds for code, newest first.
func (s *Store) Recent(ctx context.Context, code string, limit int) ([]RoundRecord, error) {
	var rounds []RoundRecord
	err := s.db.WithContext(ctx).
		Preload("Results").
		Where("code = ?", code).
		Order("finished_at DESC").
		Limit(limit).
		Find(&rounds).Error
	if err != nil {
		return nil, fmt.Errorf("load rounds for %s: %w", code, err)
	}
	return rounds, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(r Round) RoundRecord {
	rec := RoundRecord{
		Code:       r.Code,
		FinishedAt: r.FinishedAt.UTC(),
		Summary:    r.Summary,
		Results:    make([]ResultRecord, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		rec.Results = append(rec.Results, ResultRecord{
			PlayerID:    res.PlayerID,
			DisplayName: res.DisplayName,
			Busted:      res.Busted,
			Value:       res.Value,
			Winner:      res.Winner,
		})
	}
	return rec
}
