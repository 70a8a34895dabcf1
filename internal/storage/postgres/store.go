package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

// Store persists position snapshots and workflow receipts.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ReceiptRecord captures one confirmed write for history queries.
type ReceiptRecord struct {
	ChainID     uint64
	Op          string
	TokenID     string
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// UpsertSnapshots inserts or updates inspect snapshots keyed by
// (chain_id, token_id).
func (s *Store) UpsertSnapshots(ctx context.Context, chainID uint64, snapshots []model.PositionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO position_snapshots (
				chain_id, token_id, liquidity, tick_lower, tick_upper, current_tick,
				price_lower, price_upper, current_price, in_range,
				token0_percent, token1_percent, tokens_owed0, tokens_owed1,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
			ON CONFLICT (chain_id, token_id)
			DO UPDATE SET
				liquidity = EXCLUDED.liquidity,
				tick_lower = EXCLUDED.tick_lower,
				tick_upper = EXCLUDED.tick_upper,
				current_tick = EXCLUDED.current_tick,
				price_lower = EXCLUDED.price_lower,
				price_upper = EXCLUDED.price_upper,
				current_price = EXCLUDED.current_price,
				in_range = EXCLUDED.in_range,
				token0_percent = EXCLUDED.token0_percent,
				token1_percent = EXCLUDED.token1_percent,
				tokens_owed0 = EXCLUDED.tokens_owed0,
				tokens_owed1 = EXCLUDED.tokens_owed1,
				updated_at = now()
		`,
			int64(chainID),
			snap.TokenID.String(),
			snap.Liquidity.String(),
			snap.TickLower,
			snap.TickUpper,
			snap.CurrentTick,
			snap.PriceLower,
			snap.PriceUpper,
			snap.CurrentPrice,
			snap.InRange,
			snap.Token0Percent,
			snap.Token1Percent,
			snap.TokensOwed0.String(),
			snap.TokensOwed1.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertReceipts appends confirmed write receipts.
func (s *Store) InsertReceipts(ctx context.Context, receipts []ReceiptRecord) error {
	if len(receipts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range receipts {
		batch.Queue(`
			INSERT INTO workflow_receipts (
				chain_id, op, token_id, tx_hash, block_number, gas_used, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,now())
			ON CONFLICT (tx_hash) DO NOTHING
		`,
			int64(r.ChainID),
			r.Op,
			r.TokenID,
			r.TxHash,
			int64(r.BlockNumber),
			int64(r.GasUsed),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range receipts {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// EnsureSchema creates the history tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS position_snapshots (
			chain_id BIGINT NOT NULL,
			token_id TEXT NOT NULL,
			liquidity TEXT NOT NULL,
			tick_lower INT NOT NULL,
			tick_upper INT NOT NULL,
			current_tick INT NOT NULL,
			price_lower TEXT NOT NULL,
			price_upper TEXT NOT NULL,
			current_price TEXT NOT NULL,
			in_range BOOLEAN NOT NULL,
			token0_percent DOUBLE PRECISION NOT NULL,
			token1_percent DOUBLE PRECISION NOT NULL,
			tokens_owed0 TEXT NOT NULL,
			tokens_owed1 TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (chain_id, token_id)
		);
		CREATE TABLE IF NOT EXISTS workflow_receipts (
			chain_id BIGINT NOT NULL,
			op TEXT NOT NULL,
			token_id TEXT NOT NULL,
			tx_hash TEXT NOT NULL PRIMARY KEY,
			block_number BIGINT NOT NULL,
			gas_used BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}
