package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/scoreboard/pkg/scoreboard"
)

// PostgresStore keeps snapshots in the board_snapshots table (see
// internal/migrate). Unlike RedisStore, snapshots never expire.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, boardID string, snap scoreboard.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO board_snapshots (board_id, snapshot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (board_id) DO UPDATE
		SET snapshot = EXCLUDED.snapshot, updated_at = now()
	`, boardID, b)
	if err != nil {
		return fmt.Errorf("postgres save %s: %w", boardID, err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, boardID string) (scoreboard.Snapshot, bool, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
		SELECT snapshot
		FROM board_snapshots
		WHERE board_id = $1
	`, boardID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoreboard.Snapshot{}, false, nil
	}
	if err != nil {
		return scoreboard.Snapshot{}, false, fmt.Errorf("postgres load %s: %w", boardID, err)
	}

	var snap scoreboard.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return scoreboard.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", boardID, err)
	}
	return snap, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, boardID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM board_snapshots WHERE board_id = $1`, boardID); err != nil {
		return fmt.Errorf("postgres delete %s: %w", boardID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT board_id FROM board_snapshots ORDER BY board_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres list boards: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres list boards: %w", err)
	}
	return ids, nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
