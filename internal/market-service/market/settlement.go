package market

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// CheckedAdd soma dois saldos e falha em vez de dar a volta no uint64
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// Payout calcula floor(stake * (totalYes + totalNo) / winningTotal).
// A multiplicação é feita em 256 bits, sem divisão antecipada.
func Payout(stake, totalYes, totalNo, winningTotal uint64) (uint64, error) {
	if stake == 0 {
		return 0, ErrNoWinningStake
	}
	if winningTotal == 0 || stake > winningTotal {
		return 0, ErrSettlementUnavailable
	}

	pool := new(uint256.Int).Add(uint256.NewInt(totalYes), uint256.NewInt(totalNo))
	num := new(uint256.Int).Mul(uint256.NewInt(stake), pool)
	out := num.Div(num, uint256.NewInt(winningTotal))

	if !out.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return out.Uint64(), nil
}

// Settle calcula o payout de uma aposta num mercado resolvido
func Settle(m *Market, b *UserBet) (uint64, error) {
	if !m.Resolved || m.Outcome == nil {
		return 0, ErrMarketNotResolved
	}
	return Payout(b.WinningAmount(*m.Outcome), m.TotalYes, m.TotalNo, m.WinningTotal())
}

// ImpliedBps devolve a probabilidade implícita de cada lado em basis points.
// Pool vazio fica em 50/50. yes + no == 10000 sempre.
func ImpliedBps(totalYes, totalNo uint64) (yes, no uint32) {
	pool := new(uint256.Int).Add(uint256.NewInt(totalYes), uint256.NewInt(totalNo))
	if pool.IsZero() {
		return 5000, 5000
	}
	num := new(uint256.Int).Mul(uint256.NewInt(totalYes), uint256.NewInt(10000))
	y := uint32(num.Div(num, pool).Uint64())
	return y, 10000 - y
}
