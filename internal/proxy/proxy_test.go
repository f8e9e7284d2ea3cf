package proxy

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvalidTarget(t *testing.T) {
	for _, target := range []string{"", "localhost:1317", "ftp://host", "http://"} {
		_, err := New(Options{Target: target}, zerolog.Nop())
		assert.Error(t, err, target)
	}
}

func TestProxyForwards(t *testing.T) {
	var gotHost, gotPath, gotQuery, gotMethod string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost, gotPath, gotQuery, gotMethod = r.Host, r.URL.Path, r.URL.RawQuery, r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Access-Control-Allow-Origin", "http://upstream.example")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"block":{}}`))
	}))
	defer upstream.Close()

	s, err := New(Options{Port: "8081", Target: upstream.URL}, zerolog.Nop())
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "http://dashboard.example/cosmos/base/tendermint/v1beta1/blocks/latest?x=1", nil)
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"block":{}}`, rr.Body.String())
		assert.Equal(t, "/cosmos/base/tendermint/v1beta1/blocks/latest", gotPath)
		assert.Equal(t, "x=1", gotQuery)
		assert.Equal(t, upstream.Listener.Addr().String(), gotHost, "host is rewritten to the target")
		assert.Equal(t, []string{"*"}, rr.Header().Values("Access-Control-Allow-Origin"))
	})

	t.Run("post body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cosmos/tx/v1beta1/txs", strings.NewReader(`{"tx_bytes":"AA=="}`))
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.MethodPost, gotMethod)
		assert.JSONEq(t, `{"tx_bytes":"AA=="}`, string(gotBody))
	})

	t.Run("preflight", func(t *testing.T) {
		gotPath = ""
		rr := httptest.NewRecorder()
		s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/cosmos/tx/v1beta1/txs", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, gotPath, "preflight is answered locally")
	})
}

func TestProxyHealth(t *testing.T) {
	s, err := New(Options{Port: "8081", Target: "http://localhost:1317"}, zerolog.Nop())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","service":"api-proxy-8081"}`, rr.Body.String())
}

func TestProxyUpstreamFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadURL := "http://" + l.Addr().String()
	l.Close()

	s, err := New(Options{Port: "8081", Target: deadURL, Service: "test-proxy"}, zerolog.Nop())
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cosmos/bank/v1beta1/supply", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Proxy error", body["error"])
	assert.NotEmpty(t, body["details"])
}

