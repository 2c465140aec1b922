package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Postgres persists rooms in two tables: rooms and room_participants,
// one row per participant keyed by (room_id, user_id). Deleting a room
// cascades to its participants. The updated_at index exists for the
// idle sweep.
type Postgres struct {
	db *gorm.DB
}

type roomRow struct {
	RoomID        string    `gorm:"primaryKey"`
	HostID        string    `gorm:"not null"`
	Topic         string
	VotesRevealed bool
	CreatedAt     time.Time
	UpdatedAt     time.Time `gorm:"index"`
}

func (roomRow) TableName() string { return "rooms" }

type participantRow struct {
	RoomID   string `gorm:"primaryKey"`
	UserID   string `gorm:"primaryKey"`
	Name     string
	IsHost   bool
	Vote     *string
	HasVoted bool
	JoinedAt time.Time

	Room roomRow `gorm:"foreignKey:RoomID;references:RoomID;constraint:OnDelete:CASCADE"`
}

func (participantRow) TableName() string { return "room_participants" }

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&roomRow{}, &participantRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, roomID string) (*RoomRecord, error) {
	var row roomRow
	err := p.db.WithContext(ctx).First(&row, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}

	var parts []participantRow
	if err := p.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at").
		Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	rec := &RoomRecord{
		RoomID:        row.RoomID,
		HostID:        row.HostID,
		Topic:         row.Topic,
		VotesRevealed: row.VotesRevealed,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	for _, pr := range parts {
		rec.Participants = append(rec.Participants, ParticipantRecord{
			UserID:   pr.UserID,
			Name:     pr.Name,
			IsHost:   pr.IsHost,
			Vote:     pr.Vote,
			HasVoted: pr.HasVoted,
			JoinedAt: pr.JoinedAt,
		})
	}
	return rec, nil
}

// Put upserts the room row and replaces its participant rows in one
// transaction. Replacement keeps the table exact after leaves and
// grace-period removals without tracking per-row diffs.
func (p *Postgres) Put(ctx context.Context, rec *RoomRecord) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := roomRow{
			RoomID:        rec.RoomID,
			HostID:        rec.HostID,
			Topic:         rec.Topic,
			VotesRevealed: rec.VotesRevealed,
			CreatedAt:     rec.CreatedAt,
			UpdatedAt:     rec.UpdatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}},
			UpdateAll: true,
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert room: %w", err)
		}

		if err := tx.Where("room_id = ?", rec.RoomID).
			Delete(&participantRow{}).Error; err != nil {
			return fmt.Errorf("clear participants: %w", err)
		}
		for _, pr := range rec.Participants {
			if err := tx.Create(&participantRow{
				RoomID:   rec.RoomID,
				UserID:   pr.UserID,
				Name:     pr.Name,
				IsHost:   pr.IsHost,
				Vote:     pr.Vote,
				HasVoted: pr.HasVoted,
				JoinedAt: pr.JoinedAt,
			}).Error; err != nil {
				return fmt.Errorf("insert participant: %w", err)
			}
		}
		return nil
	})
}

func (p *Postgres) Delete(ctx context.Context, roomID string) error {
	if err := p.db.WithContext(ctx).
		Delete(&roomRow{}, "room_id = ?", roomID).Error; err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

func (p *Postgres) SweepExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res := p.db.WithContext(ctx).
		Delete(&roomRow{}, "updated_at < ?", cutoff)
	if res.Error != nil {
		return 0, fmt.Errorf("sweep rooms: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
