// services/room_stats.go
package services

import (
	"errors"

	"github.com/parlorgames/roomsync/persistence"
	"gorm.io/gorm"
)

// RoomStatsService answers operator queries about rooms. It needs the GORM
// store specifically: summaries are computed in SQL over the jsonb columns.
type RoomStatsService struct {
	store *persistence.GormStore
}

func NewRoomStatsService(store *persistence.GormStore) *RoomStatsService {
	return &RoomStatsService{store: store}
}

// GetRoomSummary returns occupancy and age for one room in a single
// consistent read.
func (s *RoomStatsService) GetRoomSummary(roomKey string) (map[string]interface{}, error) {
	var summary map[string]interface{}

	err := s.store.Transaction(func(tx *gorm.DB) error {
		result := tx.Raw(`
            SELECT
                id,
                room_name,
                expected_players,
                jsonb_array_length(players) AS player_count,
                expected_players - jsonb_array_length(players) AS open_slots,
                EXTRACT(EPOCH FROM (CURRENT_TIMESTAMP - created_at))::bigint AS age_seconds
            FROM rooms
            WHERE id = ?`, roomKey).Scan(&summary)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return persistence.ErrRoomNotFound
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, persistence.ErrRoomNotFound) {
			return nil, persistence.ErrRoomNotFound
		}
		return nil, err
	}
	return summary, nil
}

// GetOccupancy reports totals across all rooms: how many are open, full,
// and how many seats remain unfilled.
func (s *RoomStatsService) GetOccupancy() (map[string]interface{}, error) {
	var occupancy map[string]interface{}

	err := s.store.Transaction(func(tx *gorm.DB) error {
		return tx.Raw(`
            SELECT
                COUNT(*) AS total_rooms,
                SUM(CASE WHEN jsonb_array_length(players) >= expected_players THEN 1 ELSE 0 END) AS full_rooms,
                COALESCE(SUM(expected_players - jsonb_array_length(players)), 0) AS open_seats
            FROM rooms`).Scan(&occupancy).Error
	})

	return occupancy, err
}
