package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kushwahaamar-dev/truth/internal/market-service/market"
	walletdto "github.com/kushwahaamar-dev/truth/internal/wallet-service/dto"
)

// Client é o adapter HTTP de market.Escrow para o wallet-service
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTP       *http.Client
}

var _ market.Escrow = (*Client)(nil)

func New(base, serviceKey string) *Client {
	return &Client{
		BaseURL:    base,
		ServiceKey: serviceKey,
		HTTP:       &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) OpenVault(ctx context.Context, vault, mint string) error {
	return c.post(ctx, "/wallet/vaults", walletdto.OpenVaultRequest{Vault: vault, Mint: mint}, nil)
}

// Deposit: usuário -> vault. A authority é o próprio usuário, já verificado pelo market-service.
func (c *Client) Deposit(ctx context.Context, from, vault, mint string, amount uint64, ref string) error {
	return c.transfer(ctx, walletdto.TransferRequest{
		From: from, To: vault, Mint: mint, Amount: amount, ExternalRef: ref, Authority: from,
	})
}

// Withdraw: vault -> usuário, assinado pela capacidade do mercado dono do vault
func (c *Client) Withdraw(ctx context.Context, grant market.VaultGrant, to, mint string, amount uint64, ref string) error {
	if !grant.Valid() {
		return market.ErrUnauthorized
	}
	return c.transfer(ctx, walletdto.TransferRequest{
		From: grant.Vault(), To: to, Mint: mint, Amount: amount, ExternalRef: ref, Authority: grant.Vault(),
	})
}

func (c *Client) transfer(ctx context.Context, req walletdto.TransferRequest) error {
	var out walletdto.TransferResponse
	return c.post(ctx, "/wallet/transfer", req, &out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ServiceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("wallet %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var e walletdto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return mapError(path, res.StatusCode, e)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// mapError traduz os códigos da wallet para os erros do domínio
func mapError(path string, status int, e walletdto.ErrorResponse) error {
	switch e.Code {
	case "INSUFFICIENT_FUNDS":
		return market.ErrInsufficientFunds
	case "UNAUTHORIZED":
		return fmt.Errorf("wallet %s: %s: %w", path, e.Error, market.ErrUnauthorized)
	case "ARITHMETIC_OVERFLOW":
		return market.ErrArithmeticOverflow
	}
	return fmt.Errorf("wallet %s http %d: %s %s", path, status, e.Code, e.Error)
}
