package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"nftmarket/core"
	"nftmarket/core/events"
	"nftmarket/core/state"
	"nftmarket/crypto"
	"nftmarket/native/bank"
	"nftmarket/native/common"
	"nftmarket/rpc"
	"nftmarket/storage"
)

type cliNode struct {
	t    *testing.T
	proc *core.Processor
	url  string
	dir  string
}

func newCLINode(t *testing.T) *cliNode {
	t.Helper()
	t.Setenv("MARKET_KEY_PASS", "correct horse")
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	recorder := events.NewRecorder(64)
	proc := core.NewProcessor(state.NewManager(db), core.WithEmitter(recorder))
	srv := httptest.NewServer(rpc.NewServer(proc, recorder, rpc.Options{}).Handler())
	t.Cleanup(srv.Close)
	return &cliNode{t: t, proc: proc, url: srv.URL, dir: t.TempDir()}
}

// run executes the CLI with wallet as the keystore name and returns stdout.
func (n *cliNode) run(wallet string, args ...string) ([]byte, error) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	full := append([]string{"market-cli", "--rpc", n.url, "--key", filepath.Join(n.dir, wallet+".json")}, args...)
	err := app.Run(full)
	return out.Bytes(), err
}

func (n *cliNode) mustRun(wallet string, args ...string) map[string]interface{} {
	n.t.Helper()
	out, err := n.run(wallet, args...)
	require.NoError(n.t, err)
	var decoded map[string]interface{}
	require.NoError(n.t, json.Unmarshal(out, &decoded), string(out))
	return decoded
}

func (n *cliNode) newWallet(name string, lamports uint64) crypto.Address {
	n.t.Helper()
	res := n.mustRun(name, "keygen")
	addr, err := crypto.DecodeAddress(res["address"].(string))
	require.NoError(n.t, err)
	if lamports > 0 {
		txn := n.proc.State().Begin()
		defer txn.Discard()
		ctx := common.NewContext(txn, bank.ProgramID, nil, n.proc.Rent(), 0)
		require.NoError(n.t, bank.Credit(ctx, addr, lamports))
		require.NoError(n.t, txn.Commit())
	}
	return addr
}

func TestCLITradesAnAssetEndToEnd(t *testing.T) {
	node := newCLINode(t)
	node.newWallet("admin", 5_000_000_000)
	seller := node.newWallet("seller", 5_000_000_000)
	buyer := node.newWallet("buyer", 5_000_000_000)

	collection := node.mustRun("admin", "nft", "mint", "--title", "Gallery Collection")
	require.Equal(t, "committed", collection["status"])
	collectionMint := collection["extra"].(map[string]interface{})["mint"].(string)

	asset := node.mustRun("seller", "nft", "mint", "--title", "Piece #1", "--collection", collectionMint)
	mint := asset["extra"].(map[string]interface{})["mint"].(string)

	node.mustRun("admin", "collection", "verify", "--mint", mint, "--collection", collectionMint)
	node.mustRun("admin", "market", "init", "--name", "Gallery", "--fee-bps", "250")

	listed := node.mustRun("seller", "market", "list", "--name", "Gallery", "--mint", mint, "--collection", collectionMint, "--price", "1000000")
	require.Equal(t, "committed", listed["status"])

	listing := node.mustRun("buyer", "market", "listing", "--name", "Gallery", "--mint", mint)
	require.Equal(t, seller.String(), listing["seller"])
	require.Equal(t, "1000000", listing["price"])

	out, err := node.run("buyer", "market", "listings", "--name", "Gallery")
	require.NoError(t, err)
	var open []rpc.ListingResult
	require.NoError(t, json.Unmarshal(out, &open))
	require.Len(t, open, 1)
	require.Equal(t, mint, open[0].Mint)

	bought := node.mustRun("buyer", "market", "purchase", "--name", "Gallery", "--mint", mint)
	require.Equal(t, "committed", bought["status"])
	require.Equal(t, seller.String(), bought["extra"].(map[string]interface{})["seller"])

	mintAddr, err := crypto.DecodeAddress(mint)
	require.NoError(t, err)
	balance, err := rpc.NewClient(node.url, "").TokenBalance(context.Background(), buyer, mintAddr)
	require.NoError(t, err)
	require.Equal(t, "1", balance.Amount)

	market := node.mustRun("buyer", "market", "show", "--name", "Gallery")
	require.Equal(t, "25000", market["treasuryBalance"])

	_, err = node.run("buyer", "market", "listing", "--name", "Gallery", "--mint", mint)
	require.Error(t, err)

	out, err = node.run("buyer", "market", "listings", "--name", "Gallery")
	require.NoError(t, err)
	open = nil
	require.NoError(t, json.Unmarshal(out, &open))
	require.Empty(t, open)

	out, err = node.run("buyer", "events", "--limit", "5")
	require.NoError(t, err)
	require.Contains(t, string(out), "marketplace.purchased")
}

func TestCLIDryRunDoesNotCommit(t *testing.T) {
	node := newCLINode(t)
	node.newWallet("payer", 1_000_000)
	to := crypto.Address{0x42}

	res := node.mustRun("payer", "transfer", "--to", to.String(), "--amount", "500", "--dry-run")
	require.Equal(t, "simulated", res["status"])

	balanceOf := func() string {
		out, err := node.run("payer", "--output", "yaml", "balance", "--address", to.String())
		require.NoError(t, err)
		var account rpc.AccountResult
		require.NoError(t, yaml.Unmarshal(out, &account))
		return account.Lamports
	}
	require.Equal(t, "0", balanceOf())

	node.mustRun("payer", "transfer", "--to", to.String(), "--amount", "500")
	require.Equal(t, "500", balanceOf())
}

func TestCLIRejectsBadInput(t *testing.T) {
	node := newCLINode(t)
	node.newWallet("admin", 1_000_000)

	_, err := node.run("admin", "market", "init", "--name", "Gallery", "--fee-bps", "10001")
	require.ErrorContains(t, err, "--fee-bps")

	_, err = node.run("admin", "transfer", "--to", "not-an-address", "--amount", "1")
	require.ErrorContains(t, err, "--to")

	_, err = node.run("admin", "--output", "xml", "address")
	require.ErrorContains(t, err, "unsupported output format")

	t.Setenv("MARKET_KEY_PASS", "wrong")
	_, err = node.run("admin", "address")
	require.ErrorContains(t, err, "unlock keystore")
}

func TestCLIIssuesVerifiableToken(t *testing.T) {
	node := newCLINode(t)
	t.Setenv("MARKET_RPC_JWT_SECRET", "s3cret")
	res := node.mustRun("admin", "token", "issue", "--issuer", "marketd", "--ttl", "1m")
	require.NotEmpty(t, res["token"])

	t.Setenv("MARKET_RPC_JWT_SECRET", "")
	_, err := node.run("admin", "token", "issue")
	require.Error(t, err)
}
