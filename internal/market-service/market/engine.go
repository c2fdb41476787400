package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Escrow movimenta valor entre contas da wallet. Saques do vault exigem um
// VaultGrant, que só o Engine emite para o mercado dono do vault.
type Escrow interface {
	OpenVault(ctx context.Context, vault, mint string) error
	Deposit(ctx context.Context, from, vault, mint string, amount uint64, ref string) error
	Withdraw(ctx context.Context, grant VaultGrant, to, mint string, amount uint64, ref string) error
}

// Publisher recebe o estado já commitado de cada operação
type Publisher interface {
	PublishMarketInitialized(ctx context.Context, m Market) error
	PublishBetPlaced(ctx context.Context, m Market, b UserBet, amount uint64, sideYes bool) error
	PublishMarketResolved(ctx context.Context, m Market) error
	PublishWinningsClaimed(ctx context.Context, m Market, b UserBet) error
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.pub = p } }

func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

type Engine struct {
	log     *zap.Logger
	store   Store
	escrow  Escrow
	pub     Publisher
	metrics *Metrics
	now     func() time.Time
}

func NewEngine(log *zap.Logger, store Store, escrow Escrow, opts ...Option) *Engine {
	e := &Engine{
		log:    log,
		store:  store,
		escrow: escrow,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// InitializeMarket cria o mercado e abre o vault dele na wallet.
// authority é quem poderá resolver; não muda depois.
func (e *Engine) InitializeMarket(ctx context.Context, id, authority, mint string) (m *Market, err error) {
	defer func() { e.metrics.observe("initialize", err) }()

	if id == "" {
		return nil, ErrInvalidMarketID
	}
	if len(id) > MaxExternalIDLen {
		return nil, ErrIDTooLong
	}
	if authority == "" {
		return nil, ErrUnauthorized
	}
	if mint == "" {
		return nil, ErrInvalidMint
	}

	if _, err := e.store.GetMarket(ctx, id); err == nil {
		return nil, ErrMarketAlreadyExists
	} else if !errors.Is(err, ErrMarketNotFound) {
		return nil, fmt.Errorf("get market: %w", err)
	}

	vault := VaultFor(id)
	if err := e.escrow.OpenVault(ctx, vault, mint); err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	m = &Market{
		ExternalID: id,
		Authority:  authority,
		VaultMint:  mint,
		Vault:      vault,
		CreatedAt:  e.now(),
	}
	if err := e.store.CreateMarket(ctx, m); err != nil {
		return nil, fmt.Errorf("create market: %w", err)
	}

	e.log.Info("market initialized",
		zap.String("marketId", id),
		zap.String("authority", authority),
		zap.String("mint", mint),
	)
	e.publish("market_initialized", id, func() error { return e.pub.PublishMarketInitialized(ctx, *m) })
	return m, nil
}

// PlaceBet deposita amount do usuário no vault e soma no lado escolhido.
// Todas as checagens (inclusive overflow) rodam antes do depósito.
func (e *Engine) PlaceBet(ctx context.Context, id, user string, amount uint64, sideYes bool) (bet *UserBet, err error) {
	defer func() { e.metrics.observe("place_bet", err) }()

	if user == "" {
		return nil, ErrUnauthorized
	}

	ref := "bet:" + uuid.NewString()
	var (
		deposited bool
		mint      string
		market    *Market
	)

	err = e.store.Update(ctx, id, func(tx Tx) error {
		m := tx.Market()
		if m.Resolved {
			return ErrMarketResolved
		}
		if amount == 0 {
			return ErrInvalidAmount
		}

		b, err := tx.Bet(ctx, user)
		if errors.Is(err, ErrBetNotFound) {
			b = &UserBet{MarketID: id, Owner: user, CreatedAt: e.now()}
		} else if err != nil {
			return fmt.Errorf("get bet: %w", err)
		}

		totalYes, totalNo := m.TotalYes, m.TotalNo
		betYes, betNo := b.AmountYes, b.AmountNo
		if sideYes {
			if totalYes, err = CheckedAdd(totalYes, amount); err != nil {
				return err
			}
			if betYes, err = CheckedAdd(betYes, amount); err != nil {
				return err
			}
		} else {
			if totalNo, err = CheckedAdd(totalNo, amount); err != nil {
				return err
			}
			if betNo, err = CheckedAdd(betNo, amount); err != nil {
				return err
			}
		}
		// o pool inteiro precisa caber em uint64 para o settlement
		if _, err := CheckedAdd(totalYes, totalNo); err != nil {
			return err
		}

		if err := e.deposit(ctx, id, user, m.Vault, m.VaultMint, amount, ref); err != nil {
			return fmt.Errorf("deposit: %w", err)
		}
		deposited, mint = true, m.VaultMint

		m.TotalYes, m.TotalNo = totalYes, totalNo
		b.AmountYes, b.AmountNo = betYes, betNo
		if err := tx.PutMarket(ctx, m); err != nil {
			return fmt.Errorf("put market: %w", err)
		}
		if err := tx.PutBet(ctx, b); err != nil {
			return fmt.Errorf("put bet: %w", err)
		}

		market, bet = m.clone(), b
		return nil
	})
	if err != nil {
		if deposited {
			e.refund(ctx, id, user, mint, amount, ref)
		}
		return nil, err
	}

	e.metrics.stake(sideYes, amount)
	e.log.Info("bet placed",
		zap.String("marketId", id),
		zap.String("user", user),
		zap.Uint64("amount", amount),
		zap.Bool("sideYes", sideYes),
		zap.Uint64("totalYes", market.TotalYes),
		zap.Uint64("totalNo", market.TotalNo),
	)
	e.publish("market_bet_placed", id, func() error {
		return e.pub.PublishBetPlaced(ctx, *market, *bet, amount, sideYes)
	})
	return bet, nil
}

// deposit transfere o stake para o vault. Quando o resultado é desconhecido
// (timeout, 5xx) reenvia com a mesma ref: a wallet deduplica por (origem, ref),
// então o reenvio confirma o depósito já aplicado ou o aplica agora.
func (e *Engine) deposit(ctx context.Context, id, user, vault, mint string, amount uint64, ref string) error {
	err := e.escrow.Deposit(ctx, user, vault, mint, amount, ref)
	if err == nil || definitive(err) {
		return err
	}
	if ctx.Err() != nil {
		e.reconcile(id, user, amount, ref, err)
		return err
	}

	e.log.Warn("deposit outcome unknown, confirming by ref",
		zap.String("marketId", id),
		zap.String("ref", ref),
		zap.Error(err),
	)
	retryErr := e.escrow.Deposit(ctx, user, vault, mint, amount, ref)
	if retryErr == nil || definitive(retryErr) {
		return retryErr
	}
	e.reconcile(id, user, amount, ref, retryErr)
	return err
}

// definitive: a wallet respondeu e recusou; nada foi movido
func definitive(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrArithmeticOverflow) ||
		errors.Is(err, ErrInvalidAmount)
}

// reconcile registra um depósito que pode ter entrado no vault sem UserBet
func (e *Engine) reconcile(id, user string, amount uint64, ref string, err error) {
	e.log.Error("deposit needs reconciliation",
		zap.String("marketId", id),
		zap.String("user", user),
		zap.Uint64("amount", amount),
		zap.String("ref", ref),
		zap.Error(err),
	)
}

// refund devolve um depósito cujo commit falhou. Falha aqui só pode ser logada:
// o depósito fica no vault com a ref original para conciliação manual.
func (e *Engine) refund(ctx context.Context, id, user, mint string, amount uint64, ref string) {
	grant := VaultGrant{vault: VaultFor(id)}
	if err := e.escrow.Withdraw(ctx, grant, user, mint, amount, "refund:"+ref); err != nil {
		e.log.Error("refund failed",
			zap.String("marketId", id),
			zap.String("user", user),
			zap.Uint64("amount", amount),
			zap.String("ref", ref),
			zap.Error(err),
		)
		return
	}
	e.log.Warn("bet refunded after commit failure",
		zap.String("marketId", id),
		zap.String("user", user),
		zap.String("ref", ref),
	)
}

// ResolveMarket grava o resultado. Só a authority, e só uma vez.
func (e *Engine) ResolveMarket(ctx context.Context, id, caller string, outcomeYes bool) (market *Market, err error) {
	defer func() { e.metrics.observe("resolve", err) }()

	err = e.store.Update(ctx, id, func(tx Tx) error {
		m := tx.Market()
		if err := AuthorizeResolve(m, caller); err != nil {
			return err
		}
		if m.Resolved {
			return ErrMarketAlreadyResolved
		}

		o := OutcomeFrom(outcomeYes)
		now := e.now()
		m.Resolved = true
		m.Outcome = &o
		m.ResolvedAt = &now
		if err := tx.PutMarket(ctx, m); err != nil {
			return fmt.Errorf("put market: %w", err)
		}

		market = m.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("market resolved",
		zap.String("marketId", id),
		zap.String("outcome", string(*market.Outcome)),
		zap.Uint64("totalYes", market.TotalYes),
		zap.Uint64("totalNo", market.TotalNo),
	)
	e.publish("market_resolved", id, func() error { return e.pub.PublishMarketResolved(ctx, *market) })
	return market, nil
}

// ClaimWinnings paga a parte proporcional do pool ao dono da aposta.
// Claimed só vira true depois que o saque do vault deu certo.
func (e *Engine) ClaimWinnings(ctx context.Context, id, caller string) (payout uint64, err error) {
	defer func() { e.metrics.observe("claim", err) }()

	var (
		market *Market
		bet    *UserBet
	)

	err = e.store.Update(ctx, id, func(tx Tx) error {
		m := tx.Market()
		if !m.Resolved {
			return ErrMarketNotResolved
		}

		b, err := tx.Bet(ctx, caller)
		if err != nil {
			return err
		}
		if err := AuthorizeClaim(b, caller); err != nil {
			return err
		}
		if b.Claimed {
			return ErrAlreadyClaimed
		}

		amount, err := Settle(m, b)
		if err != nil {
			return err
		}

		// ref determinística: a wallet ignora o retry de um saque já feito
		ref := fmt.Sprintf("claim:%s:%s", id, caller)
		grant := VaultGrant{vault: m.Vault}
		if err := e.escrow.Withdraw(ctx, grant, caller, m.VaultMint, amount, ref); err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}

		now := e.now()
		b.Claimed = true
		b.Payout = amount
		b.ClaimedAt = &now
		if err := tx.PutBet(ctx, b); err != nil {
			return fmt.Errorf("put bet: %w", err)
		}

		payout, market, bet = amount, m.clone(), b
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.metrics.paid(payout)
	e.log.Info("winnings claimed",
		zap.String("marketId", id),
		zap.String("user", caller),
		zap.Uint64("payout", payout),
	)
	e.publish("market_winnings_claimed", id, func() error {
		return e.pub.PublishWinningsClaimed(ctx, *market, *bet)
	})
	return payout, nil
}

type Quote struct {
	MarketID string `json:"marketId"`
	User     string `json:"user"`
	IfYes    uint64 `json:"ifYes"`
	IfNo     uint64 `json:"ifNo"`
}

// Quote calcula quanto o usuário receberia em cada resultado com os totais atuais.
// Lado sem stake vale 0 (na hora do claim isso é NoWinningStake).
func (e *Engine) Quote(ctx context.Context, id, user string) (*Quote, error) {
	m, err := e.store.GetMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := e.store.GetBet(ctx, id, user)
	if err != nil {
		return nil, err
	}

	q := &Quote{MarketID: id, User: user}
	if b.AmountYes > 0 {
		if q.IfYes, err = Payout(b.AmountYes, m.TotalYes, m.TotalNo, m.TotalYes); err != nil {
			return nil, err
		}
	}
	if b.AmountNo > 0 {
		if q.IfNo, err = Payout(b.AmountNo, m.TotalYes, m.TotalNo, m.TotalNo); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func (e *Engine) GetMarket(ctx context.Context, id string) (*Market, error) {
	return e.store.GetMarket(ctx, id)
}

func (e *Engine) ListMarkets(ctx context.Context, limit int) ([]Market, error) {
	return e.store.ListMarkets(ctx, limit)
}

func (e *Engine) GetBet(ctx context.Context, id, user string) (*UserBet, error) {
	return e.store.GetBet(ctx, id, user)
}

func (e *Engine) ListBets(ctx context.Context, id string) ([]UserBet, error) {
	return e.store.ListBets(ctx, id)
}

// publish é best effort: a operação já foi commitada
func (e *Engine) publish(topic, id string, fn func() error) {
	if e.pub == nil {
		return
	}
	if err := fn(); err != nil {
		e.log.Error("publish event failed",
			zap.String("topic", topic),
			zap.String("marketId", id),
			zap.Error(err),
		)
	}
}
