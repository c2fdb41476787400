package repo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// Postgres implementa operações de carteira em banco
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func num(v uint64) string { return strconv.FormatUint(v, 10) }

// GetOrCreateWallet retorna a conta (owner, mint), criando com saldo zero se não existir
func (p *Postgres) GetOrCreateWallet(ctx context.Context, owner, mint string) (*Wallet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := getOrCreate(ctx, tx, owner, mint, KindUser)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// OpenVault cria a conta de custódia de um mercado. Idempotente.
func (p *Postgres) OpenVault(ctx context.Context, vault, mint string) (*Wallet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := getOrCreate(ctx, tx, vault, mint, KindVault)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

func getOrCreate(ctx context.Context, tx *sql.Tx, owner, mint, kind string) (*Wallet, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallets(id, owner, mint, kind, balance, version) VALUES($1,$2,$3,$4,0,1)
		 ON CONFLICT (owner, mint) DO NOTHING`,
		uuid.New().String(), owner, mint, kind); err != nil {
		return nil, err
	}

	w := Wallet{Owner: owner, Mint: mint}
	if err := tx.QueryRowContext(ctx,
		`SELECT id, kind, balance FROM wallets WHERE owner=$1 AND mint=$2`, owner, mint).
		Scan(&w.ID, &w.Kind, &w.Balance); err != nil {
		return nil, err
	}
	return &w, nil
}

// Deposit credita saldo externo (faucet/on-ramp) e registra no ledger.
// Com external_ref, repetir o depósito não credita de novo.
func (p *Postgres) Deposit(ctx context.Context, owner, mint string, amount uint64, externalRef string) (*Wallet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	w, err := getOrCreate(ctx, tx, owner, mint, KindUser)
	if err != nil {
		return nil, err
	}
	if err = tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE id=$1 FOR UPDATE`, w.ID).Scan(&w.Balance); err != nil {
		return nil, err
	}

	if externalRef != "" {
		var exists bool
		if err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM wallet_ledger WHERE wallet_id=$1 AND operation_type='DEPOSIT' AND description=$2)`,
			w.ID, "deposit:"+externalRef).Scan(&exists); err != nil {
			return nil, err
		}
		if exists {
			return w, nil
		}
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance + $1::numeric, version = version + 1 WHERE id=$2 RETURNING balance`,
		num(amount), w.ID).Scan(&w.Balance); err != nil {
		if isCheckViolation(err) {
			return nil, ErrBalanceOverflow
		}
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount, description) VALUES($1,'DEPOSIT',$2::numeric,$3)`,
		w.ID, num(amount), "deposit:"+externalRef); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

// Transfer move amount de (from, mint) para (to, mint) numa transação.
// Trava as duas linhas em ordem de id (evita deadlock entre transferências
// cruzadas) e só então checa idempotência por (from_wallet, external_ref) e saldo.
func (p *Postgres) Transfer(ctx context.Context, from, to, mint string, amount uint64, externalRef, authority string) (*Transfer, error) {
	if from == to {
		return nil, ErrSameAccount
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var fromID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE owner=$1 AND mint=$2`, from, mint).Scan(&fromID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInsufficientFunds // origem inexistente = saldo zero
	} else if err != nil {
		return nil, err
	}

	toWallet, err := getOrCreate(ctx, tx, to, mint, KindUser)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]uint64, 2)
	rows, err := tx.QueryContext(ctx,
		`SELECT id, balance FROM wallets WHERE id IN ($1,$2) ORDER BY id FOR UPDATE`, fromID, toWallet.ID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		var bal uint64
		if err := rows.Scan(&id, &bal); err != nil {
			rows.Close()
			return nil, err
		}
		balances[id] = bal
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := &Transfer{From: from, To: to, Mint: mint, Amount: amount, ExternalRef: externalRef}

	// Idempotência: mesma ref já processada devolve a transferência original
	err = tx.QueryRowContext(ctx,
		`SELECT id, amount FROM wallet_transfers WHERE from_wallet=$1 AND external_ref=$2`,
		fromID, externalRef).Scan(&out.ID, &out.Amount)
	if err == nil {
		out.Duplicate = true
		out.FromBalance = balances[fromID]
		return out, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if balances[fromID] < amount {
		return nil, ErrInsufficientFunds
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance - $1::numeric, version = version + 1 WHERE id=$2 RETURNING balance`,
		num(amount), fromID).Scan(&out.FromBalance); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1::numeric, version = version + 1 WHERE id=$2`,
		num(amount), toWallet.ID); err != nil {
		if isCheckViolation(err) {
			return nil, ErrBalanceOverflow
		}
		return nil, err
	}

	out.ID = uuid.New().String()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transfers(id, from_wallet, to_wallet, amount, external_ref, authority)
		 VALUES($1,$2,$3,$4::numeric,$5,$6)`,
		out.ID, fromID, toWallet.ID, num(amount), externalRef, authority); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_ledger(wallet_id, operation_type, amount, description, transfer_id)
		 VALUES($1,'DEBIT',$3::numeric,$4,$5), ($2,'CREDIT',$3::numeric,$4,$5)`,
		fromID, toWallet.ID, num(amount), "transfer:"+externalRef, out.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func isCheckViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23514"
}
