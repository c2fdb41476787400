package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
	"github.com/kushwahaamar-dev/truth/internal/pool-service/dto"
	"github.com/kushwahaamar-dev/truth/pkg/contracts/events"
)

var ErrNotFound = errors.New("market not found")

// ReadRepo lê as tabelas do market-service (somente leitura)
type ReadRepo struct {
	DB *sql.DB
}

func (r *ReadRepo) ListMarkets(ctx context.Context, limit int) ([]dto.MarketSummary, error) {
	const q = `
		SELECT external_id, vault_mint, total_yes::text, total_no::text, resolved, COALESCE(outcome, ''),
		       to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM markets
		ORDER BY created_at DESC
		LIMIT $1;
	`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dto.MarketSummary
	for rows.Next() {
		var (
			m       dto.MarketSummary
			yes, no string
		)
		if err := rows.Scan(&m.MarketID, &m.Mint, &yes, &no, &m.Resolved, &m.Outcome, &m.CreatedAt); err != nil {
			return nil, err
		}
		if m.TotalYes, err = parseUnits(yes); err != nil {
			return nil, err
		}
		if m.TotalNo, err = parseUnits(no); err != nil {
			return nil, err
		}
		m.YesBps, m.NoBps = market.ImpliedBps(m.TotalYes, m.TotalNo)
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetPool monta o snapshot direto das tabelas. Version 0 indica que não veio do projector.
func (r *ReadRepo) GetPool(ctx context.Context, marketID string) (*events.PoolSnapshot, error) {
	const q = `
		SELECT m.external_id, m.vault_mint, m.total_yes::text, m.total_no::text, m.resolved, COALESCE(m.outcome, ''),
		       COUNT(b.owner) FILTER (WHERE b.claimed),
		       COALESCE(SUM(b.payout) FILTER (WHERE b.claimed), 0)::text
		FROM markets m
		LEFT JOIN user_bets b ON b.market_id = m.external_id
		WHERE m.external_id = $1
		GROUP BY m.external_id;
	`
	var (
		s            events.PoolSnapshot
		yes, no, pay string
	)
	err := r.DB.QueryRowContext(ctx, q, marketID).Scan(
		&s.MarketID, &s.Mint, &yes, &no, &s.Resolved, &s.Outcome, &s.Claims, &pay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.TotalYes, err = parseUnits(yes); err != nil {
		return nil, err
	}
	if s.TotalNo, err = parseUnits(no); err != nil {
		return nil, err
	}
	if s.PaidOut, err = parseUnits(pay); err != nil {
		return nil, err
	}
	s.YesBps, s.NoBps = market.ImpliedBps(s.TotalYes, s.TotalNo)
	s.UpdatedAt = time.Now().UTC()
	return &s, nil
}

// NUMERIC(20,0) chega como texto
func parseUnits(v string) (uint64, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse units %q: %w", v, err)
	}
	return n, nil
}
