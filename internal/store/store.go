// Package store is the persistence adapter: gorm over SQLite for
// groups, membership, and message history.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dkeye/huddle/internal/domain"
)

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite database at path and migrates
// the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the schema. SQLite
// ships with foreign keys off; they carry the messages→groups
// constraint, so turn them on before anything touches the tables.
func New(db *gorm.DB) (*Store, error) {
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := db.AutoMigrate(&userRow{}, &groupRow{}, &groupMemberRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveMessage(ctx context.Context, m *domain.Message) error {
	row := messageRow{
		ID:       string(m.ID),
		RoomID:   string(m.RoomID),
		SenderID: string(m.SenderID),
		Content:  m.Text,
		SentAt:   m.SentAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// MessagesByRoom returns a room's history in ascending timestamp
// order. Message IDs are ULIDs, so the id tiebreak keeps the order
// stable for equal timestamps.
func (s *Store) MessagesByRoom(ctx context.Context, room domain.RoomID) ([]domain.Message, error) {
	var rows []messageRow
	err := s.db.WithContext(ctx).
		Where("room_id = ?", string(room)).
		Order("sent_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Message{
			ID:       domain.MessageID(r.ID),
			RoomID:   domain.RoomID(r.RoomID),
			SenderID: domain.UserID(r.SenderID),
			Text:     r.Content,
			SentAt:   r.SentAt,
		})
	}
	return out, nil
}

// CreateGroup persists the group row and every membership row in one
// transaction; a failure rolls the whole group back.
func (s *Store) CreateGroup(ctx context.Context, g *domain.Group, members []domain.UserID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := groupRow{
			ID:          string(g.ID),
			Name:        g.Name,
			Description: g.Description,
			CreatorID:   string(g.CreatorID),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, uid := range members {
			m := groupMemberRow{UserID: string(uid), GroupID: string(g.ID)}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (s *Store) GroupsByUser(ctx context.Context, uid domain.UserID) ([]domain.Group, error) {
	var rows []groupRow
	err := s.db.WithContext(ctx).
		Joins("JOIN group_members gm ON gm.group_id = groups.id").
		Where("gm.user_id = ?", string(uid)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	out := make([]domain.Group, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Group{
			ID:          domain.GroupID(r.ID),
			Name:        r.Name,
			Description: r.Description,
			CreatorID:   domain.UserID(r.CreatorID),
		})
	}
	return out, nil
}

// UsersExcept lists the user directory minus the requesting user.
func (s *Store) UsersExcept(ctx context.Context, uid domain.UserID) ([]domain.User, error) {
	var rows []userRow
	err := s.db.WithContext(ctx).
		Where("id != ?", string(uid)).
		Order("username ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.User{ID: domain.UserID(r.ID), Username: r.Username})
	}
	return out, nil
}
