package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"nftmarket/core/types"
	"nftmarket/crypto"
)

// Client calls a node's JSON-RPC endpoint.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	nextID   atomic.Int64
}

// NewClient returns a client for endpoint. token, when set, is sent as a
// bearer credential on every call.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/") + "/",
		token:    strings.TrimSpace(token),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Call invokes method and decodes the result into out when out is non-nil.
// Server-side failures are returned as *RPCError.
func (c *Client) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      c.nextID.Add(1),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBytes*4))
	if err != nil {
		return err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("rpc: decode response (status %d): %w", resp.StatusCode, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Result, out)
}

// SendTransaction submits a signed transaction for execution.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (*ReceiptResult, error) {
	return c.submit(ctx, "market_sendTransaction", tx)
}

// SimulateTransaction executes a signed transaction without committing it.
func (c *Client) SimulateTransaction(ctx context.Context, tx *types.Transaction) (*ReceiptResult, error) {
	return c.submit(ctx, "market_simulateTransaction", tx)
}

func (c *Client) submit(ctx context.Context, method string, tx *types.Transaction) (*ReceiptResult, error) {
	encoded, err := tx.Encode()
	if err != nil {
		return nil, err
	}
	var receipt ReceiptResult
	if err := c.Call(ctx, method, &receipt, "0x"+hex.EncodeToString(encoded)); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Nonce returns the next expected nonce of addr.
func (c *Client) Nonce(ctx context.Context, addr crypto.Address) (uint64, error) {
	var nonce uint64
	err := c.Call(ctx, "market_getNonce", &nonce, addr.String())
	return nonce, err
}

// Account returns the account stored at addr.
func (c *Client) Account(ctx context.Context, addr crypto.Address) (*AccountResult, error) {
	var res AccountResult
	if err := c.Call(ctx, "market_getAccount", &res, addr.String()); err != nil {
		return nil, err
	}
	return &res, nil
}

// Marketplace returns the marketplace named name.
func (c *Client) Marketplace(ctx context.Context, name string) (*MarketplaceResult, error) {
	var res MarketplaceResult
	if err := c.Call(ctx, "market_getMarketplace", &res, name); err != nil {
		return nil, err
	}
	return &res, nil
}

// Listing returns the active listing of mint in the marketplace named name.
func (c *Client) Listing(ctx context.Context, name string, mint crypto.Address) (*ListingResult, error) {
	var res ListingResult
	if err := c.Call(ctx, "market_getListing", &res, name, mint.String()); err != nil {
		return nil, err
	}
	return &res, nil
}

// TokenBalance returns owner's associated holding balance of mint.
func (c *Client) TokenBalance(ctx context.Context, owner, mint crypto.Address) (*TokenBalanceResult, error) {
	var res TokenBalanceResult
	if err := c.Call(ctx, "market_getTokenBalance", &res, owner.String(), mint.String()); err != nil {
		return nil, err
	}
	return &res, nil
}

// RecentEvents returns up to limit of the newest committed events.
func (c *Client) RecentEvents(ctx context.Context, limit int) ([]ReceiptLog, error) {
	var res []ReceiptLog
	if err := c.Call(ctx, "market_recentEvents", &res, limit); err != nil {
		return nil, err
	}
	return res, nil
}

// StateRoot returns the hex commitment over committed ledger state.
func (c *Client) StateRoot(ctx context.Context) (string, error) {
	var root string
	err := c.Call(ctx, "market_stateRoot", &root)
	return root, err
}

// Listings returns up to limit open listings of the marketplace named name.
// A non-positive limit asks for the server maximum.
func (c *Client) Listings(ctx context.Context, name string, limit int) ([]ListingResult, error) {
	var res []ListingResult
	if err := c.Call(ctx, "market_listings", &res, name, limit); err != nil {
		return nil, err
	}
	return res, nil
}
