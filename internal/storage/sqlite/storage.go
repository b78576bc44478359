// Package sqlite provides a SQLite-backed ladder storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/storage"
	"github.com/mcoot/pongladder/internal/storage/sqlite/migrations"
)

// Storage persists players and the game ledger in SQLite
type Storage struct {
	sqlDB *sql.DB
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func toNanos(value time.Time) int64 {
	return value.UTC().UnixNano()
}

func fromNanos(value int64) time.Time {
	return time.Unix(0, value).UTC()
}

// Open opens a SQLite ladder store and applies embedded migrations
func Open(path string) (*Storage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Storage{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle
func (s *Storage) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Player registry operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (name, name_key, elo_rating, version, created_at)
		 VALUES (?, ?, ?, 1, ?)`,
		player.Name,
		strings.ToLower(player.Name),
		player.EloRating,
		toNanos(player.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrPlayerNameTaken
		}
		return fmt.Errorf("insert player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	player.ID = model.PlayerID(id)
	player.Version = 1
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return reader{s.sqlDB}.GetPlayer(ctx, id)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return reader{s.sqlDB}.ListPlayers(ctx)
}

// Ledger operations

func (s *Storage) CommitGame(ctx context.Context, commit *model.GameCommit) (*model.Game, error) {
	game := commit.Game

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyRating(ctx, tx, game.Winner.ID, commit.WinnerVersion, game.WinnerRatingAfter); err != nil {
		return nil, err
	}
	if err := applyRating(ctx, tx, game.Loser.ID, commit.LoserVersion, game.LoserRatingAfter); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO games (
		   winner_id, loser_id, winner_score, loser_score,
		   winner_rating_before, winner_rating_after,
		   loser_rating_before, loser_rating_after,
		   created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		game.Winner.ID,
		game.Loser.ID,
		nullableScore(game.WinnerScore),
		nullableScore(game.LoserScore),
		game.WinnerRatingBefore,
		game.WinnerRatingAfter,
		game.LoserRatingBefore,
		game.LoserRatingAfter,
		toNanos(game.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit game: %w", err)
	}

	game.ID = model.GameID(id)
	game.CreatedAt = fromNanos(toNanos(game.CreatedAt))
	return &game, nil
}

// applyRating sets a player's rating if their version is still the expected one
func applyRating(ctx context.Context, tx *sql.Tx, id model.PlayerID, version int64, rating float64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE players SET elo_rating = ?, version = version + 1 WHERE id = ? AND version = ?`,
		rating, id, version)
	if err != nil {
		return fmt.Errorf("update rating of player %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rating of player %d: %w", id, err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish a missing player from a stale version
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM players WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrInvalidPlayer
	}
	if err != nil {
		return fmt.Errorf("check player %d: %w", id, err)
	}
	return model.ErrConflict
}

func (s *Storage) ListGames(ctx context.Context) ([]*model.Game, error) {
	return reader{s.sqlDB}.ListGames(ctx)
}

func (s *Storage) GetPlayerGames(ctx context.Context, id model.PlayerID) ([]*model.Game, error) {
	return reader{s.sqlDB}.GetPlayerGames(ctx, id)
}

func (s *Storage) GetPairGames(ctx context.Context, a, b model.PlayerID) ([]*model.Game, error) {
	return reader{s.sqlDB}.GetPairGames(ctx, a, b)
}

func (s *Storage) GetGlobalStats(ctx context.Context) (model.GlobalStats, error) {
	return reader{s.sqlDB}.GetGlobalStats(ctx)
}

// View runs fn inside a read-only transaction. Under WAL every query in the
// transaction sees the database as of its first read.
func (s *Storage) View(ctx context.Context, fn func(storage.Reader) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin view: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(reader{tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader runs the read queries against the database or an open transaction
type reader struct {
	q querier
}

func (r reader) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, elo_rating, version, created_at FROM players WHERE id = ?`, id)
	player, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return player, nil
}

func (r reader) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, elo_rating, version, created_at FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer func() { _ = rows.Close() }()

	players := make([]*model.Player, 0)
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

const selectGames = `
SELECT
    g.id, g.winner_id, w.name, g.loser_id, l.name,
    g.winner_score, g.loser_score,
    g.winner_rating_before, g.winner_rating_after,
    g.loser_rating_before, g.loser_rating_after,
    g.created_at
FROM games g
    JOIN players w ON w.id = g.winner_id
    JOIN players l ON l.id = g.loser_id
`

func (r reader) ListGames(ctx context.Context) ([]*model.Game, error) {
	return r.queryGames(ctx, selectGames+` ORDER BY g.created_at, g.id`)
}

func (r reader) GetPlayerGames(ctx context.Context, id model.PlayerID) ([]*model.Game, error) {
	if _, err := r.GetPlayer(ctx, id); err != nil {
		return nil, err
	}
	return r.queryGames(ctx,
		selectGames+` WHERE g.winner_id = ? OR g.loser_id = ? ORDER BY g.created_at, g.id`,
		id, id)
}

func (r reader) GetPairGames(ctx context.Context, a, b model.PlayerID) ([]*model.Game, error) {
	return r.queryGames(ctx,
		selectGames+` WHERE (g.winner_id = ? AND g.loser_id = ?) OR (g.winner_id = ? AND g.loser_id = ?)
		 ORDER BY g.created_at, g.id`,
		a, b, b, a)
}

func (r reader) GetGlobalStats(ctx context.Context) (model.GlobalStats, error) {
	var stats model.GlobalStats
	row := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(winner_score + loser_score), 0) FROM games`)
	if err := row.Scan(&stats.TotalGames, &stats.TotalPoints); err != nil {
		return model.GlobalStats{}, fmt.Errorf("global stats: %w", err)
	}
	return stats, nil
}

func (r reader) queryGames(ctx context.Context, query string, args ...any) ([]*model.Game, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	games := make([]*model.Game, 0)
	for rows.Next() {
		var (
			g           model.Game
			winnerScore sql.NullInt64
			loserScore  sql.NullInt64
			createdAt   int64
		)
		if err := rows.Scan(
			&g.ID, &g.Winner.ID, &g.Winner.Name, &g.Loser.ID, &g.Loser.Name,
			&winnerScore, &loserScore,
			&g.WinnerRatingBefore, &g.WinnerRatingAfter,
			&g.LoserRatingBefore, &g.LoserRatingAfter,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g.WinnerScore = scoreFromNull(winnerScore)
		g.LoserScore = scoreFromNull(loserScore)
		g.CreatedAt = fromNanos(createdAt)
		games = append(games, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	return games, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*model.Player, error) {
	var (
		p         model.Player
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.EloRating, &p.Version, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = fromNanos(createdAt)
	return &p, nil
}

func nullableScore(score *int) sql.NullInt64 {
	if score == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*score), Valid: true}
}

func scoreFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	score := int(v.Int64)
	return &score
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
