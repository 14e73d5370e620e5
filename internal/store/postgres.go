package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/huddlechat/huddle/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PgArchive is the Postgres-backed MessageArchive.
type PgArchive struct {
	log  *log.Logger
	conn *sql.DB
}

func NewPgArchive(dsn string, logger *log.Logger) (*PgArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PgArchive{log: logger, conn: db}, nil
}

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (a *PgArchive) SaveMessage(msg types.Message) error {
	_, err := a.conn.Exec(`INSERT INTO messages
		(id, room_id, user_id, username, content, timestamp, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		msg.Id, msg.RoomId, msg.UserId, msg.Username, msg.Content, msg.Timestamp, msg.Type,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (a *PgArchive) MessagesByRoom(roomId string) ([]types.Message, error) {
	rows, err := a.conn.Query(`SELECT id, room_id, user_id, username, content, timestamp, type
		FROM messages WHERE room_id = $1 ORDER BY timestamp ASC`, roomId)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []types.Message
	for rows.Next() {
		var msg types.Message
		if err := rows.Scan(&msg.Id, &msg.RoomId, &msg.UserId, &msg.Username,
			&msg.Content, &msg.Timestamp, &msg.Type); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, rows.Err()
}

func (a *PgArchive) Close() error {
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
