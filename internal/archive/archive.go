// Package archive keeps finished games in SQLite.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tatianab/werewolf/internal/models"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var ErrNotFound = errors.New("game not found")

// Summary is one row of the game list.
type Summary struct {
	ID         string        `json:"id"`
	Winner     models.Winner `json:"winner"`
	HumanRole  models.Role   `json:"human_role"`
	Days       int           `json:"days"`
	FinishedAt time.Time     `json:"finished_at"`
}

type Store struct {
	sqlDB *sql.DB
}

// Open opens the archive at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func migrate(sqlDB *sql.DB) error {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := sqlDB.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveGame stores a finished game. Saving the same id again replaces it.
func (s *Store) SaveGame(ctx context.Context, review *models.Review, finishedAt time.Time) error {
	if review == nil || strings.TrimSpace(review.ID) == "" {
		return fmt.Errorf("game id is required")
	}
	seats, err := json.Marshal(review.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_entries WHERE game_id = ?`, review.ID); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, winner, human_role, days, seats, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   winner = excluded.winner,
		   human_role = excluded.human_role,
		   days = excluded.days,
		   seats = excluded.seats,
		   finished_at = excluded.finished_at`,
		review.ID,
		string(review.Winner),
		string(review.HumanRole),
		review.Days,
		string(seats),
		finishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save game: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO game_entries (game_id, seq, day, phase, kind, source, target, content)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entries: %w", err)
	}
	defer stmt.Close()
	for i, e := range review.Entries {
		if _, err := stmt.ExecContext(ctx, review.ID, i, e.Day, string(e.Phase), string(e.Kind), e.Source, e.Target, e.Content); err != nil {
			return fmt.Errorf("save entry %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadGame returns the review of an archived game.
func (s *Store) LoadGame(ctx context.Context, id string) (*models.Review, error) {
	var (
		review models.Review
		winner string
		role   string
		seats  string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, winner, human_role, days, seats FROM games WHERE id = ?`, id,
	).Scan(&review.ID, &winner, &role, &review.Days, &seats)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	review.Winner = models.Winner(winner)
	review.HumanRole = models.Role(role)
	if err := json.Unmarshal([]byte(seats), &review.Seats); err != nil {
		return nil, fmt.Errorf("decode seats: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT day, phase, kind, source, target, content FROM game_entries WHERE game_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e           models.Entry
			phase, kind string
		)
		if err := rows.Scan(&e.Day, &phase, &kind, &e.Source, &e.Target, &e.Content); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Phase = models.Phase(phase)
		e.Kind = models.EventKind(kind)
		review.Entries = append(review.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	return &review, nil
}

// ListGames returns up to limit games, newest first.
func (s *Store) ListGames(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, winner, human_role, days, finished_at FROM games ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			g            Summary
			winner, role string
			finished     int64
		)
		if err := rows.Scan(&g.ID, &winner, &role, &g.Days, &finished); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.Winner = models.Winner(winner)
		g.HumanRole = models.Role(role)
		g.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, g)
	}
	return out, rows.Err()
}
