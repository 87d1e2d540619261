package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"nftmarket/core"
	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/core/types"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/common"
	"nftmarket/storage"
)

type testNode struct {
	proc     *core.Processor
	recorder *events.Recorder
	server   *httptest.Server
	client   *Client
}

func newTestNode(t *testing.T, opts Options) *testNode {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	recorder := events.NewRecorder(16)
	proc := core.NewProcessor(state.NewManager(db), core.WithEmitter(recorder))
	srv := httptest.NewServer(NewServer(proc, recorder, opts).Handler())
	t.Cleanup(srv.Close)
	return &testNode{proc: proc, recorder: recorder, server: srv, client: NewClient(srv.URL, "")}
}

func (n *testNode) fund(t *testing.T, addr crypto.Address, lamports uint64) {
	t.Helper()
	txn := n.proc.State().Begin()
	defer txn.Discard()
	ctx := common.NewContext(txn, bank.ProgramID, nil, n.proc.Rent(), 0)
	require.NoError(t, bank.Credit(ctx, addr, lamports))
	require.NoError(t, txn.Commit())
}

func signedTransfer(t *testing.T, key *crypto.PrivateKey, nonce uint64, to crypto.Address, lamports uint64) *types.Transaction {
	t.Helper()
	ix, err := bank.NewTransferInstruction(key.Address(), to, lamports)
	require.NoError(t, err)
	tx := &types.Transaction{Payer: key.Address(), Nonce: nonce, Instructions: []types.Instruction{ix}}
	require.NoError(t, tx.Sign(key))
	return tx
}

func rpcCode(t *testing.T, err error) int {
	t.Helper()
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr), "expected rpc error, got %v", err)
	return rpcErr.Code
}

func TestSendTransactionCommits(t *testing.T) {
	node := newTestNode(t, Options{})
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	bob := crypto.Address{0x0b}
	node.fund(t, key.Address(), 1_000)
	ctx := context.Background()
	rootBefore, err := node.client.StateRoot(ctx)
	require.NoError(t, err)

	sim, err := node.client.SimulateTransaction(ctx, signedTransfer(t, key, 0, bob, 300))
	require.NoError(t, err)
	require.Equal(t, "simulated", sim.Status)

	receipt, err := node.client.SendTransaction(ctx, signedTransfer(t, key, 0, bob, 300))
	require.NoError(t, err)
	require.Equal(t, "committed", receipt.Status)
	require.Equal(t, []string{"bank.transfer"}, receipt.Instructions)
	require.Len(t, receipt.Logs, 1)
	require.Equal(t, "bank.transfer", receipt.Logs[0]["type"])

	nonce, err := node.client.Nonce(ctx, key.Address())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	acct, err := node.client.Account(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, "300", acct.Lamports)
	require.Equal(t, bank.ProgramID.String(), acct.Owner)

	evts, err := node.client.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	require.Equal(t, receipt.TransactionHash, evts[0]["tx"])

	rootAfter, err := node.client.StateRoot(ctx)
	require.NoError(t, err)
	require.NotEqual(t, rootBefore, rootAfter)
}

func TestSendTransactionMapsLedgerErrors(t *testing.T) {
	node := newTestNode(t, Options{})
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	node.fund(t, key.Address(), 10)
	ctx := context.Background()

	_, err = node.client.SendTransaction(ctx, signedTransfer(t, key, 0, crypto.Address{0x0b}, 100))
	require.Equal(t, codeInsufficientFunds, rpcCode(t, err))

	_, err = node.client.SendTransaction(ctx, signedTransfer(t, key, 7, crypto.Address{0x0b}, 1))
	require.Equal(t, codeBadNonce, rpcCode(t, err))

	_, err = node.client.Marketplace(ctx, "ArtHouse")
	require.Equal(t, codeNotFound, rpcCode(t, err))

	_, err = node.client.Listing(ctx, strings.Repeat("x", 40), crypto.Address{0x01})
	require.Equal(t, codeInvalidParams, rpcCode(t, err))
}

func TestHandleRejectsMalformedRequests(t *testing.T) {
	node := newTestNode(t, Options{})

	post := func(body string) (*http.Response, RPCResponse) {
		resp, err := http.Post(node.server.URL+"/", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		var decoded RPCResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		return resp, decoded
	}

	resp, decoded := post(`{"jsonrpc":"2.0","id":1,"method":"market_unknown"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, codeMethodNotFound, decoded.Error.Code)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))

	_, decoded = post(`{not json`)
	require.Equal(t, codeParseError, decoded.Error.Code)

	_, decoded = post(`{"jsonrpc":"1.0","id":1,"method":"market_getNonce"}`)
	require.Equal(t, codeInvalidRequest, decoded.Error.Code)

	_, decoded = post(`{"jsonrpc":"2.0","id":1,"method":"market_getNonce","params":["nope"]}`)
	require.Equal(t, codeInvalidParams, decoded.Error.Code)

	_, decoded = post(`{"jsonrpc":"2.0","id":1,"method":"market_sendTransaction","params":["0xzz"]}`)
	require.Equal(t, codeInvalidParams, decoded.Error.Code)
}

func TestGuardedMethodsRequireToken(t *testing.T) {
	secret := []byte("operator-secret")
	node := newTestNode(t, Options{Auth: AuthConfig{Enabled: true, Secret: secret, Issuer: "ops"}})
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	node.fund(t, key.Address(), 100)
	ctx := context.Background()

	_, err = node.client.SendTransaction(ctx, signedTransfer(t, key, 0, crypto.Address{0x0b}, 1))
	require.Equal(t, codeUnauthorized, rpcCode(t, err))

	wrongIssuer, err := IssueToken(secret, "someone", "", time.Minute)
	require.NoError(t, err)
	_, err = NewClient(node.server.URL, wrongIssuer).SendTransaction(ctx, signedTransfer(t, key, 0, crypto.Address{0x0b}, 1))
	require.Equal(t, codeUnauthorized, rpcCode(t, err))

	token, err := IssueToken(secret, "ops", "", time.Minute)
	require.NoError(t, err)
	authed := NewClient(node.server.URL, token)
	_, err = authed.SendTransaction(ctx, signedTransfer(t, key, 0, crypto.Address{0x0b}, 1))
	require.NoError(t, err)

	_, err = node.client.Nonce(ctx, key.Address())
	require.NoError(t, err)
}

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	node := newTestNode(t, Options{RequestsPerSecond: 0.001, Burst: 2})
	ctx := context.Background()
	addr := crypto.Address{0x01}

	_, err := node.client.Nonce(ctx, addr)
	require.NoError(t, err)
	_, err = node.client.Nonce(ctx, addr)
	require.NoError(t, err)
	_, err = node.client.Nonce(ctx, addr)
	require.Equal(t, codeRateLimited, rpcCode(t, err))
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := newRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))
	now = now.Add(limiterIdleTTL + time.Second)
	require.True(t, limiter.allow("b"))
	require.NotContains(t, limiter.visitors, "a")
}

func TestEventsWebsocketStreamsCommittedEvents(t *testing.T) {
	node := newTestNode(t, Options{})
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	node.fund(t, key.Address(), 1_000)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(node.server.URL, "http") + "/ws/events?type=bank."
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return node.recorder.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = node.client.SendTransaction(ctx, signedTransfer(t, key, 0, crypto.Address{0x0b}, 1))
	require.NoError(t, err)
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var entry ReceiptLog
	require.NoError(t, json.Unmarshal(data, &entry))
	require.Equal(t, "bank.transfer", entry["type"])

	conn.Close(websocket.StatusNormalClosure, "done")
	require.Eventually(t, func() bool { return node.recorder.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}


func TestListingsRequiresMarketplace(t *testing.T) {
	node := newTestNode(t, Options{})
	ctx := context.Background()

	_, err := node.client.Listings(ctx, "Nowhere", 0)
	require.Equal(t, codeNotFound, rpcCode(t, err))

	_, err = node.client.Listings(ctx, strings.Repeat("x", 40), 0)
	require.Equal(t, codeInvalidParams, rpcCode(t, err))
}
