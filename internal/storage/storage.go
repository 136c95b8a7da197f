package storage

import (
	"context"
	"errors"
	"fluxe/backend/internal/models"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrRoomNotFound is returned when no room matches a lookup.
var ErrRoomNotFound = errors.New("chat room not found")

// Storage is the durable store for room records and their chat logs.
type Storage interface {
	SaveRoom(ctx context.Context, room *models.Room) error
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)
	// FindRoomByParticipant returns the most recently created room that has
	// connectionID as a participant, open or closed.
	FindRoomByParticipant(ctx context.Context, connectionID string) (*models.Room, error)
	// CloseRoom moves the room from open to closed. It reports true only if
	// this call performed the transition.
	CloseRoom(ctx context.Context, roomID string) (bool, error)
	AppendChat(ctx context.Context, roomID string, msg models.ChatMessage) error
	GetOpenRoomIDs(ctx context.Context) ([]string, error)
}

// Service is the PostgreSQL implementation of Storage.
type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Migrate creates the rooms and chat_messages tables.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(&models.Room{}, &models.ChatMessage{})
}

// SaveRoom зберігає кімнату в PostgreSQL
func (s *Service) SaveRoom(ctx context.Context, room *models.Room) error {
	return s.DB.WithContext(ctx).Omit("ChatLog").Save(room).Error
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room

	err := s.DB.WithContext(ctx).
		Preload("ChatLog", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("timestamp asc, id asc")
		}).
		Where("id = ?", roomID).
		First(&room).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return &room, nil
}

func (s *Service) FindRoomByParticipant(ctx context.Context, connectionID string) (*models.Room, error) {
	var room models.Room

	err := s.DB.WithContext(ctx).
		Where("? = ANY(participants)", connectionID).
		Order("created_at desc").
		First(&room).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find room for %s: %w", connectionID, err)
	}
	return &room, nil
}

// CloseRoom is a conditional UPDATE: only a row still marked open is changed,
// so of two concurrent callers exactly one sees RowsAffected == 1.
func (s *Service) CloseRoom(ctx context.Context, roomID string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ? AND status = ?", roomID, models.RoomOpen).
		Updates(map[string]interface{}{
			"status":    models.RoomClosed,
			"closed_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("close room %s: %w", roomID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Service) AppendChat(ctx context.Context, roomID string, msg models.ChatMessage) error {
	msg.ID = 0
	msg.RoomID = roomID
	if err := s.DB.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("append chat to room %s: %w", roomID, err)
	}
	return nil
}

func (s *Service) GetOpenRoomIDs(ctx context.Context) ([]string, error) {
	var roomIDs []string

	if err := s.DB.WithContext(ctx).
		Model(&models.Room{}).
		Where("status = ?", models.RoomOpen).
		Pluck("id", &roomIDs).Error; err != nil {
		return nil, fmt.Errorf("list open rooms: %w", err)
	}
	return roomIDs, nil
}
