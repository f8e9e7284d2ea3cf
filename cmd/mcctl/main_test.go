package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mychain-dash/internal/chain"
	"github.com/wnt/mychain-dash/internal/config"
	"github.com/wnt/mychain-dash/internal/parser"
	"github.com/wnt/mychain-dash/internal/signing"
)

func newTestEnv(t *testing.T, chainURL, keyHex string) (*env, *bytes.Buffer) {
	t.Helper()
	opts := chain.DefaultPoolOptions()
	opts.Timeout = 2 * time.Second
	opts.RateLimit = 1000
	opts.Burst = 1000

	out := &bytes.Buffer{}
	return &env{
		cfg: config.Config{
			Bech32Prefix: "mychain",
			SignerKeyHex: keyHex,
			FeeDenom:     "ulc",
			FeeAmount:    "5000",
			GasLimit:     "200000",
		},
		logger: zerolog.Nop(),
		client: chain.NewClient(chain.NewPool([]string{chainURL}, opts, zerolog.Nop()), "mychain", zerolog.Nop()),
		parser: parser.New(zerolog.Nop()),
		in:     strings.NewReader(""),
		out:    out,
	}, out
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("1, 2,,30")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 30}, ids)

	_, err = parseIDs("")
	assert.Error(t, err)
	_, err = parseIDs("1,x")
	assert.Error(t, err)
}

func TestParseSide(t *testing.T) {
	isBuy, err := parseSide("BUY")
	require.NoError(t, err)
	assert.True(t, isBuy)

	isBuy, err = parseSide("sell")
	require.NoError(t, err)
	assert.False(t, isBuy)

	_, err = parseSide("hold")
	assert.Error(t, err)
}

func TestRunParse(t *testing.T) {
	e, out := newTestEnv(t, "http://127.0.0.1:1", "")
	e.in = strings.NewReader(`{"code":0,"txhash":"ABC","logs":[{"events":[{"type":"buy_maincoin_with_dev","attributes":[
		{"key":"user_tokens","value":"995000"},{"key":"dev_tokens","value":"100"},{"key":"amount_spent","value":"100000"}]}]}]}`)

	require.NoError(t, runParse(context.Background(), e, nil))
	assert.Contains(t, out.String(), `"totalUserTokens": "995000"`)
	assert.Contains(t, out.String(), `"txHash": "ABC"`)

	assert.Error(t, runParse(context.Background(), e, []string{"-format", "xml"}))
}

func TestSubmitWithoutKey(t *testing.T) {
	e, _ := newTestEnv(t, "http://127.0.0.1:1", "")
	err := runSell(context.Background(), e, []string{"-amount", "10"})
	assert.ErrorIs(t, err, chain.ErrWallet)

	e.cfg.SignerKeyHex = "zz"
	err = runSell(context.Background(), e, []string{"-amount", "10"})
	assert.ErrorIs(t, err, chain.ErrWallet)
}

func TestRunBuyWaitsForCommit(t *testing.T) {
	txPollInterval = 10 * time.Millisecond

	key, err := signing.GenerateKey("mychain")
	require.NoError(t, err)

	var lookups int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == chain.AccountPath(key.Address()):
			w.Write([]byte(`{"account":{"@type":"/cosmos.auth.v1beta1.BaseAccount","address":"` +
				key.Address() + `","account_number":"1","sequence":"0"}}`))
		case r.Method == http.MethodPost && r.URL.Path == chain.PathBroadcast:
			w.Write([]byte(`{"tx_response":{"txhash":"BEEF","code":0}}`))
		case r.URL.Path == chain.TxPath("BEEF"):
			if atomic.AddInt32(&lookups, 1) == 1 {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"code":5,"message":"tx not found"}`))
				return
			}
			w.Write([]byte(`{"tx_response":{"txhash":"BEEF","code":0,"height":"12","logs":[{"events":[
				{"type":"buy_maincoin_with_dev","attributes":[{"key":"user_tokens","value":"900"},{"key":"amount_spent","value":"50"}]}]}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	e, out := newTestEnv(t, server.URL, key.Hex())
	require.NoError(t, runBuy(context.Background(), e, []string{"-amount", "50"}))

	assert.Equal(t, int32(2), atomic.LoadInt32(&lookups))
	assert.Contains(t, out.String(), "Transaction submitted: BEEF")
	assert.Contains(t, out.String(), `"totalUserTokens": "900"`)
}

func TestRunBuyRejected(t *testing.T) {
	key, err := signing.GenerateKey("mychain")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"tx_response":{"txhash":"BAD","code":5,"raw_log":"insufficient funds"}}`))
			return
		}
		w.Write([]byte(`{"account":{"@type":"/cosmos.auth.v1beta1.BaseAccount","address":"` +
			key.Address() + `","account_number":"1","sequence":"0"}}`))
	}))
	defer server.Close()

	e, out := newTestEnv(t, server.URL, key.Hex())
	err = runBuy(context.Background(), e, []string{"-amount", "50"})
	assert.ErrorIs(t, err, errTxRejected)
	assert.Contains(t, out.String(), "insufficient funds")
	assert.Contains(t, out.String(), `"success": false`)
}
