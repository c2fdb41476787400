package repo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// Postgres implementa market.Store. Saldos ficam em NUMERIC(20,0) e trafegam
// como string para não perder o bit alto do uint64.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var _ market.Store = (*Postgres)(nil)

const selectMarket = `
	SELECT external_id, authority, vault_mint, vault, total_yes, total_no,
	       resolved, outcome, created_at, resolved_at
	FROM markets`

const selectBet = `
	SELECT market_id, owner, amount_yes, amount_no, claimed, payout, created_at, claimed_at
	FROM user_bets`

type scanner interface {
	Scan(dest ...any) error
}

func scanMarket(s scanner) (*market.Market, error) {
	var (
		m          market.Market
		outcome    sql.NullString
		resolvedAt sql.NullTime
	)
	if err := s.Scan(&m.ExternalID, &m.Authority, &m.VaultMint, &m.Vault, &m.TotalYes, &m.TotalNo,
		&m.Resolved, &outcome, &m.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	if outcome.Valid {
		o := market.Outcome(outcome.String)
		m.Outcome = &o
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		m.ResolvedAt = &t
	}
	return &m, nil
}

func scanBet(s scanner) (*market.UserBet, error) {
	var (
		b         market.UserBet
		claimedAt sql.NullTime
	)
	if err := s.Scan(&b.MarketID, &b.Owner, &b.AmountYes, &b.AmountNo, &b.Claimed, &b.Payout,
		&b.CreatedAt, &claimedAt); err != nil {
		return nil, err
	}
	if claimedAt.Valid {
		t := claimedAt.Time
		b.ClaimedAt = &t
	}
	return &b, nil
}

func num(v uint64) string { return strconv.FormatUint(v, 10) }

func outcomeArg(o *market.Outcome) any {
	if o == nil {
		return nil
	}
	return string(*o)
}

// CreateMarket insere o mercado; id duplicado vira ErrMarketAlreadyExists
func (p *Postgres) CreateMarket(ctx context.Context, m *market.Market) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO markets (external_id, authority, vault_mint, vault, total_yes, total_no, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, FALSE, $7)`,
		m.ExternalID, m.Authority, m.VaultMint, m.Vault, num(m.TotalYes), num(m.TotalNo), m.CreatedAt)
	if isUniqueViolation(err) {
		return market.ErrMarketAlreadyExists
	}
	return err
}

func (p *Postgres) GetMarket(ctx context.Context, id string) (*market.Market, error) {
	m, err := scanMarket(p.db.QueryRowContext(ctx, selectMarket+` WHERE external_id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, market.ErrMarketNotFound
	}
	return m, err
}

func (p *Postgres) ListMarkets(ctx context.Context, limit int) ([]market.Market, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, selectMarket+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (p *Postgres) GetBet(ctx context.Context, marketID, user string) (*market.UserBet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, selectBet+` WHERE market_id=$1 AND owner=$2`, marketID, user))
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := p.GetMarket(ctx, marketID); err != nil {
			return nil, err
		}
		return nil, market.ErrBetNotFound
	}
	return b, err
}

func (p *Postgres) ListBets(ctx context.Context, marketID string) ([]market.UserBet, error) {
	if _, err := p.GetMarket(ctx, marketID); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, selectBet+` WHERE market_id=$1 ORDER BY owner`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.UserBet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Update trava a linha do mercado (FOR UPDATE) durante fn. Apostas do mesmo
// mercado ficam serializadas pelo mesmo lock.
func (p *Postgres) Update(ctx context.Context, marketID string, fn func(market.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	m, err := scanMarket(tx.QueryRowContext(ctx, selectMarket+` WHERE external_id=$1 FOR UPDATE`, marketID))
	if errors.Is(err, sql.ErrNoRows) {
		return market.ErrMarketNotFound
	} else if err != nil {
		return fmt.Errorf("lock market: %w", err)
	}

	if err := fn(&pgTx{tx: tx, market: m}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx     *sql.Tx
	market *market.Market
}

func (t *pgTx) Market() *market.Market { return t.market }

func (t *pgTx) Bet(ctx context.Context, user string) (*market.UserBet, error) {
	b, err := scanBet(t.tx.QueryRowContext(ctx, selectBet+` WHERE market_id=$1 AND owner=$2`, t.market.ExternalID, user))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, market.ErrBetNotFound
	}
	return b, err
}

func (t *pgTx) PutMarket(ctx context.Context, m *market.Market) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE markets
		SET total_yes=$2::numeric, total_no=$3::numeric, resolved=$4, outcome=$5, resolved_at=$6
		WHERE external_id=$1`,
		m.ExternalID, num(m.TotalYes), num(m.TotalNo), m.Resolved, outcomeArg(m.Outcome), m.ResolvedAt)
	if err != nil {
		return err
	}
	t.market = m
	return nil
}

func (t *pgTx) PutBet(ctx context.Context, b *market.UserBet) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO user_bets (market_id, owner, amount_yes, amount_no, claimed, payout, created_at, claimed_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6::numeric, $7, $8)
		ON CONFLICT (market_id, owner) DO UPDATE
		SET amount_yes=EXCLUDED.amount_yes, amount_no=EXCLUDED.amount_no,
		    claimed=EXCLUDED.claimed, payout=EXCLUDED.payout, claimed_at=EXCLUDED.claimed_at`,
		b.MarketID, b.Owner, num(b.AmountYes), num(b.AmountNo), b.Claimed, num(b.Payout), b.CreatedAt, b.ClaimedAt)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
