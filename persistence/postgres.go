// persistence/postgres.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/parlorgames/roomsync/models"
)

// PostgresStore is the database/sql implementation of Store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(host string, port int, user, password, dbname string) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS rooms (
            id VARCHAR(64) PRIMARY KEY,
            room_name VARCHAR(255) NOT NULL,
            expected_players INT NOT NULL,
            players JSONB NOT NULL,
            state JSONB,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	return err
}

func (p *PostgresStore) CreateRoom(ctx context.Context, room *models.Room) error {
	players, err := json.Marshal(room.Players)
	if err != nil {
		return err
	}

	state := room.State
	if state == nil {
		state = json.RawMessage("{}")
	}

	_, err = p.db.ExecContext(ctx, `
        INSERT INTO rooms (id, room_name, expected_players, players, state, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		room.ID, room.Name, room.ExpectedPlayers, players, []byte(state), room.CreatedAt)
	return err
}

func (p *PostgresStore) FetchRoom(ctx context.Context, key string) (*models.Room, error) {
	row := p.db.QueryRowContext(ctx, `
        SELECT id, room_name, expected_players, players, state, created_at
        FROM rooms WHERE id = $1`, key)
	return scanRoom(row)
}

// AppendPlayer serializes concurrent joins with a row lock so two callers
// cannot both take the last slot.
func (p *PostgresStore) AppendPlayer(ctx context.Context, key string, player models.Player) (*models.Room, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
        SELECT id, room_name, expected_players, players, state, created_at
        FROM rooms WHERE id = $1 FOR UPDATE`, key)

	room, err := scanRoom(row)
	if err != nil {
		return nil, err
	}

	if room.HasPlayer(player.PlayerID) {
		return room, tx.Commit()
	}
	if room.IsFull() {
		return nil, ErrRoomFull
	}

	room.Players = append(room.Players, player)
	players, err := json.Marshal(room.Players)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE rooms SET players = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		players, key); err != nil {
		return nil, err
	}

	return room, tx.Commit()
}

func (p *PostgresStore) UpdateState(ctx context.Context, key string, state json.RawMessage) (*models.Room, error) {
	result, err := p.db.ExecContext(ctx, `
        UPDATE rooms SET state = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		[]byte(state), key)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrRoomNotFound
	}

	return p.FetchRoom(ctx, key)
}

func (p *PostgresStore) CountRooms(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&count)
	return count, err
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	var room models.Room
	var players, state []byte

	err := row.Scan(&room.ID, &room.Name, &room.ExpectedPlayers, &players, &state, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(players, &room.Players); err != nil {
		return nil, err
	}
	room.State = json.RawMessage(state)
	return &room, nil
}
