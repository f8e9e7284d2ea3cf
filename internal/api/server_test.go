package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mychain-dash/internal/chain"
	"github.com/wnt/mychain-dash/internal/models"
	"github.com/wnt/mychain-dash/internal/parser"
	"github.com/wnt/mychain-dash/internal/signing"
)

func testAddress(t *testing.T, fill byte) string {
	t.Helper()
	addr, err := signing.EncodeAddress(bytes.Repeat([]byte{fill}, 20), signing.DefaultPrefix)
	require.NoError(t, err)
	return addr
}

type memStore struct {
	mu        sync.Mutex
	watched   map[string]time.Time
	snapshots map[string]models.PortfolioSnapshot
	session   *models.Session
	pingErr   error
}

func newMemStore() *memStore {
	return &memStore{
		watched:   make(map[string]time.Time),
		snapshots: make(map[string]models.PortfolioSnapshot),
	}
}

func (m *memStore) Watch(_ context.Context, addr string, due time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watched[addr] = due
	return nil
}

func (m *memStore) Unwatch(_ context.Context, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watched, addr)
	delete(m.snapshots, addr)
	return nil
}

func (m *memStore) Watched(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for a := range m.watched {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) Snapshot(_ context.Context, addr string) (*models.PortfolioSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[addr]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memStore) SaveSession(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &session
	return nil
}

func (m *memStore) Session(context.Context) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, nil
}

func (m *memStore) ClearSession(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

type stubChain struct {
	history *models.UserHistory
	records []models.TransactionRecord
	book    *models.OrderBook
	err     error
}

func (c *stubChain) UserHistory(context.Context, string) (*models.UserHistory, error) {
	return c.history, c.err
}

func (c *stubChain) TransactionHistory(context.Context, string) ([]models.TransactionRecord, error) {
	return c.records, c.err
}

func (c *stubChain) OrderBook(context.Context, string) (*models.OrderBook, error) {
	return c.book, c.err
}

type memJournal struct {
	saved map[string]parser.Result
}

func (j *memJournal) Save(_ context.Context, address string, result parser.Result) error {
	j.saved[address+"/"+result.TxHash] = result
	return nil
}

func (j *memJournal) ListByAddress(_ context.Context, address string, _ int) ([]models.PurchaseReceipt, error) {
	var out []models.PurchaseReceipt
	for _, r := range j.saved {
		out = append(out, models.PurchaseReceipt{TxHash: r.TxHash, Address: address})
	}
	return out, nil
}

type fixture struct {
	store   *memStore
	chain   *stubChain
	journal *memJournal
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   newMemStore(),
		chain:   &stubChain{},
		journal: &memJournal{saved: make(map[string]parser.Result)},
	}
	s := NewServer(Deps{
		Store:   f.store,
		Chain:   f.chain,
		Parser:  parser.New(zerolog.Nop()),
		Journal: f.journal,
	}, Options{Port: "0"}, zerolog.Nop())
	f.handler = s.Handler()
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"redis":"connected"`)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	f.store.pingErr = errors.New("down")
	rr = f.do(http.MethodGet, "/health", "")
	assert.Contains(t, rr.Body.String(), `"redis":"disconnected"`)

	rr = f.do(http.MethodOptions, "/v1/watch", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestPortfolioAndWatch(t *testing.T) {
	f := newFixture(t)
	addr := testAddress(t, 1)

	rr := f.do(http.MethodGet, "/v1/portfolio/not-an-address", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodGet, "/v1/portfolio/"+addr, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(http.MethodPost, "/v1/watch/"+addr, "")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, f.store.watched, addr)

	f.store.snapshots[addr] = models.PortfolioSnapshot{
		Address:        addr,
		LiquidityValue: "1234.5",
		Errors:         map[string]string{models.PartRewards: "unable to connect to blockchain API"},
	}
	rr = f.do(http.MethodGet, "/v1/portfolio/"+addr, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, addr, body["address"])
	assert.Equal(t, "$1,234.50", body["liquidity_display"])
	assert.Equal(t, []any{models.PartRewards}, body["failed_parts"])

	rr = f.do(http.MethodGet, "/v1/watch", "")
	assert.Contains(t, rr.Body.String(), addr)

	rr = f.do(http.MethodDelete, "/v1/watch/"+addr, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, f.store.watched, addr)
	assert.NotContains(t, f.store.snapshots, addr)
}

func TestSession(t *testing.T) {
	f := newFixture(t)
	addr := testAddress(t, 2)

	rr := f.do(http.MethodGet, "/v1/session", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(http.MethodPut, "/v1/session", `{"address":"`+addr+`","wallet_kind":"key"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, f.store.watched, addr, "connecting a wallet starts polling it")

	rr = f.do(http.MethodGet, "/v1/session", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"address":"`+addr+`","wallet_kind":"key"}`, rr.Body.String())

	rr = f.do(http.MethodPut, "/v1/session", `{"address":"`+addr+`","wallet_kind":"hardware"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPut, "/v1/session", `{"address":"cosmos1abc"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodPut, "/v1/session", `{`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodDelete, "/v1/session", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Nil(t, f.store.session)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	addr := testAddress(t, 3)

	f.chain.history = &models.UserHistory{
		Address:           addr,
		TotalTokensBought: "999999",
		Purchases: []models.PurchaseRecord{
			{TokensBought: "1000000", UserTokens: "900000", DevAllocation: "100000", Cost: "100000"},
			{TokensBought: "1000000", UserTokens: "1", DevAllocation: "1", Cost: "300000"},
		},
	}

	rr := f.do(http.MethodGet, "/v1/history/"+addr, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "2000000", body["total_tokens_bought"], "totals are derived from purchases")
	assert.Equal(t, "400000", body["total_spent"])
	assert.Equal(t, "0.2", body["average_price"])
	assert.Equal(t, "2.000000", body["tokens_display"])
	assert.EqualValues(t, 1, body["invalid_records"])

	f.chain.err = chain.ErrUnreachable
	rr = f.do(http.MethodGet, "/v1/history/"+addr, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"error":"unable to connect to blockchain API"}`, rr.Body.String())

	f.chain.err = &chain.StatusError{StatusCode: http.StatusNotFound}
	rr = f.do(http.MethodGet, "/v1/history/"+addr, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	f.chain.err = &chain.DecodeError{Path: "/x", Err: errors.New("bad")}
	rr = f.do(http.MethodGet, "/v1/history/"+addr, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestTransactions(t *testing.T) {
	f := newFixture(t)
	addr := testAddress(t, 4)
	f.chain.records = []models.TransactionRecord{
		{TxHash: "1", Type: "send"},
		{TxHash: "2", Type: "buy_maincoin"},
		{TxHash: "3", Type: "mystery"},
	}

	rr := f.do(http.MethodGet, "/v1/transactions/"+addr+"?type=buy_maincoin", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Transactions []struct {
			TxHash   string `json:"tx_hash"`
			Category string `json:"category"`
		} `json:"transactions"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, "2", body.Transactions[0].TxHash)
	assert.Equal(t, "buy_maincoin", body.Transactions[0].Category)
	assert.Equal(t, 1, body.Counts["other"])

	rr = f.do(http.MethodGet, "/v1/transactions/"+addr+"?type=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestOrders(t *testing.T) {
	f := newFixture(t)
	maker := testAddress(t, 5)
	f.chain.book = &models.OrderBook{
		BuyOrders: []models.Order{{
			ID: "1", Maker: maker,
			Price:  models.NewCoin("utusd", 500000),
			Amount: models.NewCoin("umc", 4000000),
		}},
	}

	rr := f.do(http.MethodGet, "/v1/orders/1?maker="+maker, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "2", body["maker_liquidity_value"])
	assert.Len(t, body["maker_orders"], 1)
	assert.Equal(t, []any{}, body["sell_orders"])

	rr = f.do(http.MethodGet, "/v1/orders/abc", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(http.MethodGet, "/v1/orders/1?maker=nope", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestParse(t *testing.T) {
	f := newFixture(t)
	addr := testAddress(t, 6)

	raw := `{"tx_response":{"code":0,"txhash":"ABC","logs":[{"events":[{"type":"buy_maincoin_with_dev","attributes":[
		{"key":"user_tokens","value":"995000"},{"key":"dev_tokens","value":"100"},{"key":"amount_spent","value":"100000"}]}]}]}}`

	rr := f.do(http.MethodPost, "/v1/parse?address="+addr, raw)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"success": true, "txHash": "ABC",
		"totalTokensBought": "995000", "totalUserTokens": "995000",
		"totalDevAllocation": "100", "totalPaid": "100000",
		"segments": [], "message": "Purchase completed successfully"
	}`, rr.Body.String())
	assert.Contains(t, f.journal.saved, addr+"/ABC")

	rr = f.do(http.MethodPost, "/v1/parse?address=not-an-address", raw)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, f.journal.saved, 1)
	assert.NotContains(t, f.journal.saved, "not-an-address/ABC")

	rr = f.do(http.MethodPost, "/v1/parse", `{"code":5,"raw_log":"insufficient funds"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"insufficient funds"}`, rr.Body.String())

	rr = f.do(http.MethodPost, "/v1/parse", `garbage`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Failed to parse transaction response"}`, rr.Body.String())

	rr = f.do(http.MethodPost, "/v1/parse?format=terminal", `{"txHash":"T","totalTokensBought":"5","segments":[]}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"totalUserTokens":"5"`)

	rr = f.do(http.MethodGet, "/v1/purchases/"+addr, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"tx_hash":"ABC"`)
}
