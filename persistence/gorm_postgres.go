// persistence/gorm_postgres.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/parlorgames/roomsync/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore is the GORM-backed implementation of Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(host string, port int, user, password, dbname string) (*GormStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&RoomModel{}); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// RoomModel is the GORM row for a room document. Players and State stay
// serialized; the store never interprets the state payload.
type RoomModel struct {
	RoomID          string `gorm:"primaryKey;column:id"`
	RoomName        string `gorm:"not null"`
	ExpectedPlayers int    `gorm:"not null"`
	Players         []byte `gorm:"type:jsonb;not null"`
	State           []byte `gorm:"type:jsonb"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (RoomModel) TableName() string {
	return "rooms"
}

func (g *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	row, err := toRow(room)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Create(row).Error
}

func (g *GormStore) FetchRoom(ctx context.Context, key string) (*models.Room, error) {
	var row RoomModel
	if err := g.db.WithContext(ctx).First(&row, "id = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return fromRow(&row)
}

func (g *GormStore) AppendPlayer(ctx context.Context, key string, player models.Player) (*models.Room, error) {
	var room *models.Room

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row RoomModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "id = ?", key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}

		current, err := fromRow(&row)
		if err != nil {
			return err
		}

		if current.HasPlayer(player.PlayerID) {
			room = current
			return nil
		}
		if current.IsFull() {
			return ErrRoomFull
		}

		current.Players = append(current.Players, player)
		players, err := json.Marshal(current.Players)
		if err != nil {
			return err
		}

		if err := tx.Model(&row).Update("players", players).Error; err != nil {
			return err
		}

		room = current
		return nil
	})

	return room, err
}

func (g *GormStore) UpdateState(ctx context.Context, key string, state json.RawMessage) (*models.Room, error) {
	result := g.db.WithContext(ctx).Model(&RoomModel{}).
		Where("id = ?", key).
		Update("state", []byte(state))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRoomNotFound
	}
	return g.FetchRoom(ctx, key)
}

func (g *GormStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&RoomModel{}).Count(&count).Error
	return count, err
}

func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction exposes gorm transactions for the stats service.
func (g *GormStore) Transaction(fn func(tx *gorm.DB) error) error {
	return g.db.Transaction(fn)
}

func toRow(room *models.Room) (*RoomModel, error) {
	players, err := json.Marshal(room.Players)
	if err != nil {
		return nil, err
	}

	state := room.State
	if state == nil {
		state = json.RawMessage("{}")
	}

	return &RoomModel{
		RoomID:          room.ID,
		RoomName:        room.Name,
		ExpectedPlayers: room.ExpectedPlayers,
		Players:         players,
		State:           []byte(state),
		CreatedAt:       room.CreatedAt,
	}, nil
}

func fromRow(row *RoomModel) (*models.Room, error) {
	room := &models.Room{
		ID:              row.RoomID,
		Name:            row.RoomName,
		ExpectedPlayers: row.ExpectedPlayers,
		State:           json.RawMessage(row.State),
		CreatedAt:       row.CreatedAt,
	}
	if err := json.Unmarshal(row.Players, &room.Players); err != nil {
		return nil, err
	}
	return room, nil
}
