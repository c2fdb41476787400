package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("expectations: %v", err)
		}
		db.Close()
	})
	return NewPostgres(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

// lockPair simula o começo de Transfer: origem existe, destino é criado/lido
// e as duas linhas são travadas
func lockPair(mock sqlmock.Sqlmock, fromBal, toBal string) {
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM wallets WHERE owner=$1 AND mint=$2")).
		WithArgs("alice", "USDC").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("w-alice"))
	mock.ExpectExec(q("INSERT INTO wallets(id, owner, mint, kind, balance, version)")).
		WithArgs(sqlmock.AnyArg(), "market:m1", "USDC", KindUser).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT id, kind, balance FROM wallets WHERE owner=$1 AND mint=$2")).
		WithArgs("market:m1", "USDC").
		WillReturnRows(sqlmock.NewRows([]string{"id", "kind", "balance"}).AddRow("w-vault", KindVault, toBal))
	mock.ExpectQuery(q("SELECT id, balance FROM wallets WHERE id IN ($1,$2) ORDER BY id FOR UPDATE")).
		WithArgs("w-alice", "w-vault").
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).
			AddRow("w-alice", fromBal).
			AddRow("w-vault", toBal))
}

func TestPostgresTransferDuplicateRef(t *testing.T) {
	p, mock := newMock(t)

	lockPair(mock, "60", "40")
	mock.ExpectQuery(q("FROM wallet_transfers WHERE from_wallet=$1 AND external_ref=$2")).
		WithArgs("w-alice", "bet:1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount"}).AddRow("t-1", "40"))
	// nada é debitado: a tx termina em rollback
	mock.ExpectRollback()

	out, err := p.Transfer(context.Background(), "alice", "market:m1", "USDC", 40, "bet:1", "market-service")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !out.Duplicate || out.ID != "t-1" || out.Amount != 40 || out.FromBalance != 60 {
		t.Errorf("transfer = %+v", out)
	}
}

func TestPostgresTransferMissingSource(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM wallets WHERE owner=$1 AND mint=$2")).
		WithArgs("newbie", "USDC").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := p.Transfer(context.Background(), "newbie", "market:m1", "USDC", 10, "bet:1", "market-service")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want %v", err, ErrInsufficientFunds)
	}
}

func TestPostgresTransferInsufficientFunds(t *testing.T) {
	p, mock := newMock(t)

	lockPair(mock, "5", "0")
	mock.ExpectQuery(q("FROM wallet_transfers")).
		WithArgs("w-alice", "bet:1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount"}))
	mock.ExpectRollback()

	_, err := p.Transfer(context.Background(), "alice", "market:m1", "USDC", 10, "bet:1", "market-service")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want %v", err, ErrInsufficientFunds)
	}
}

func TestPostgresTransferAboveInt64(t *testing.T) {
	p, mock := newMock(t)
	const amount = uint64(1)<<63 + 5 // 9223372036854775813

	lockPair(mock, "18446744073709551615", "0")
	mock.ExpectQuery(q("FROM wallet_transfers")).
		WithArgs("w-alice", "bet:2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount"}))
	mock.ExpectQuery(q("UPDATE wallets SET balance = balance - $1::numeric")).
		WithArgs("9223372036854775813", "w-alice").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("9223372036854775802"))
	mock.ExpectExec(q("UPDATE wallets SET balance = balance + $1::numeric")).
		WithArgs("9223372036854775813", "w-vault").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO wallet_transfers")).
		WithArgs(sqlmock.AnyArg(), "w-alice", "w-vault", "9223372036854775813", "bet:2", "market-service").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO wallet_ledger")).
		WithArgs("w-alice", "w-vault", "9223372036854775813", "transfer:bet:2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	out, err := p.Transfer(context.Background(), "alice", "market:m1", "USDC", amount, "bet:2", "market-service")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if out.Duplicate || out.ID == "" || out.FromBalance != 9223372036854775802 {
		t.Errorf("transfer = %+v", out)
	}
}

func TestPostgresTransferCreditOverflow(t *testing.T) {
	p, mock := newMock(t)

	lockPair(mock, "10", "18446744073709551615")
	mock.ExpectQuery(q("FROM wallet_transfers")).
		WithArgs("w-alice", "bet:3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount"}))
	mock.ExpectQuery(q("UPDATE wallets SET balance = balance - $1::numeric")).
		WithArgs("10", "w-alice").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("0"))
	mock.ExpectExec(q("UPDATE wallets SET balance = balance + $1::numeric")).
		WithArgs("10", "w-vault").
		WillReturnError(&pq.Error{Code: "23514"})
	mock.ExpectRollback()

	_, err := p.Transfer(context.Background(), "alice", "market:m1", "USDC", 10, "bet:3", "market-service")
	if !errors.Is(err, ErrBalanceOverflow) {
		t.Errorf("err = %v, want %v", err, ErrBalanceOverflow)
	}
}
