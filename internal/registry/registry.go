package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/Nazarovdf/saverbot/internal/logutils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type UserRecord struct {
	UserID         int64 `gorm:"primaryKey;autoIncrement:false"`
	Username       string
	FirstName      string
	LastName       string
	FirstSeen      time.Time
	LastSeen       time.Time `gorm:"index"`
	TotalDownloads int64     `gorm:"not null;default:0"`
}

// Profile is the display data refreshed on every inbound message.
type Profile struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

type Stats struct {
	TotalUsers     int64
	ActiveToday    int64
	ActiveWeek     int64
	TotalDownloads int64
}

func (s Stats) Average() float64 {
	if s.TotalUsers == 0 {
		return 0
	}
	return float64(s.TotalDownloads) / float64(s.TotalUsers)
}

// Registry is the SQLite-backed user table.
type Registry struct {
	db  *gorm.DB
	now func() time.Time
}

func Open(path string) (*Registry, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// One connection keeps :memory: databases shared and serialises writers.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&UserRecord{}); err != nil {
		return nil, fmt.Errorf("auto migration failed: %w", err)
	}

	logutils.Log.WithField("path", path).Info("Database initialized successfully")
	return &Registry{db: db, now: time.Now}, nil
}

func (r *Registry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Touch records the user, refreshing display fields and last-seen.
func (r *Registry) Touch(ctx context.Context, p Profile) error {
	now := r.now()
	rec := UserRecord{
		UserID:    p.UserID,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		FirstSeen: now,
		LastSeen:  now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "last_seen"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("touch user %d: %w", p.UserID, err)
	}
	return nil
}

// Increment bumps the user's download counter, creating the row if needed.
func (r *Registry) Increment(ctx context.Context, userID int64) error {
	now := r.now()
	rec := UserRecord{UserID: userID, FirstSeen: now, LastSeen: now, TotalDownloads: 1}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_downloads": gorm.Expr("total_downloads + ?", 1),
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("increment downloads for %d: %w", userID, err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, userID int64) (UserRecord, error) {
	var rec UserRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	return rec, err
}

// Snapshot returns up to limit users in first-seen order and the total count.
func (r *Registry) Snapshot(ctx context.Context, limit int) ([]UserRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&UserRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var users []UserRecord
	err := r.db.WithContext(ctx).Order("first_seen ASC, user_id ASC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *Registry) UserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&UserRecord{}).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	now := r.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	var s Stats
	db := r.db.WithContext(ctx).Model(&UserRecord{})
	if err := db.Count(&s.TotalUsers).Error; err != nil {
		return Stats{}, fmt.Errorf("count users: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&UserRecord{}).Where("last_seen >= ?", startOfDay).Count(&s.ActiveToday).Error; err != nil {
		return Stats{}, fmt.Errorf("count active today: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&UserRecord{}).Where("last_seen >= ?", weekAgo).Count(&s.ActiveWeek).Error; err != nil {
		return Stats{}, fmt.Errorf("count active week: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&UserRecord{}).Select("COALESCE(SUM(total_downloads), 0)").Scan(&s.TotalDownloads).Error; err != nil {
		return Stats{}, fmt.Errorf("sum downloads: %w", err)
	}
	return s, nil
}
