package market

import "errors"

var (
	ErrMarketResolved        = errors.New("market is resolved")
	ErrMarketAlreadyResolved = errors.New("market already resolved")
	ErrMarketNotResolved     = errors.New("market not resolved")
	ErrMarketAlreadyExists   = errors.New("market already exists")
	ErrMarketNotFound        = errors.New("market not found")
	ErrBetNotFound           = errors.New("bet not found")
	ErrIDTooLong             = errors.New("market id too long")
	ErrInvalidMarketID       = errors.New("invalid market id")
	ErrInvalidMint           = errors.New("invalid mint")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrAlreadyClaimed        = errors.New("winnings already claimed")
	ErrNoWinningStake        = errors.New("no stake on the winning side")
	ErrSettlementUnavailable = errors.New("settlement unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrArithmeticOverflow    = errors.New("arithmetic overflow")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrMarketResolved, "MARKET_RESOLVED"},
	{ErrMarketAlreadyResolved, "MARKET_ALREADY_RESOLVED"},
	{ErrMarketNotResolved, "MARKET_NOT_RESOLVED"},
	{ErrMarketAlreadyExists, "MARKET_ALREADY_EXISTS"},
	{ErrMarketNotFound, "MARKET_NOT_FOUND"},
	{ErrBetNotFound, "BET_NOT_FOUND"},
	{ErrIDTooLong, "ID_TOO_LONG"},
	{ErrInvalidMarketID, "INVALID_MARKET_ID"},
	{ErrInvalidMint, "INVALID_MINT"},
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
	{ErrAlreadyClaimed, "ALREADY_CLAIMED"},
	{ErrNoWinningStake, "NO_WINNING_STAKE"},
	{ErrSettlementUnavailable, "SETTLEMENT_UNAVAILABLE"},
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrArithmeticOverflow, "ARITHMETIC_OVERFLOW"},
}

// Code devolve o código estável do erro (usado no JSON de erro e nos labels de métrica).
// nil -> "OK", erro desconhecido -> "INTERNAL".
func Code(err error) string {
	if err == nil {
		return "OK"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}
