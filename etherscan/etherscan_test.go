package etherscan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MShafiMalik/lumio-portal-backend/config"
	"github.com/MShafiMalik/lumio-portal-backend/log"
)

const testWallet = "0x2222222222222222222222222222222222222222"

func newTestClient(endpoint, apiKey string) *Client {
	return NewClient(&config.EtherscanConfig{Endpoint: endpoint, APIKey: apiKey}, log.NewDefaultLogger("test"))
}

func TestInteractionFound(t *testing.T) {
	var requests int64
	oldTx := time.Now().AddDate(0, 0, -30).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		require.Equal(t, "txlist", r.URL.Query().Get("action"))
		require.Equal(t, testWallet, r.URL.Query().Get("address"))
		fmt.Fprintf(w, `{"status":"1","result":[{"timeStamp":"%d"}]}`, oldTx)
	}))
	defer server.Close()

	c := newTestClient(server.URL, "key")
	require.True(t, c.HasRouterInteraction(context.Background(), testWallet))
	// One probe per known router.
	require.Equal(t, int64(len(uniswapRouters)), atomic.LoadInt64(&requests))
}

func TestSameDayTransactionIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"1","result":[{"timeStamp":"%d"}]}`, time.Now().Unix())
	}))
	defer server.Close()

	c := newTestClient(server.URL, "key")
	require.False(t, c.HasRouterInteraction(context.Background(), testWallet))
}

func TestNoHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","result":[]}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL, "key")
	require.False(t, c.HasRouterInteraction(context.Background(), testWallet))
}

func TestErrorResultDegrades(t *testing.T) {
	// The API reports errors by replacing the result array with a string.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","result":"Max rate limit reached"}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL, "key")
	require.False(t, c.HasRouterInteraction(context.Background(), testWallet))
}

func TestMissingAPIKeySkipsProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("probe issued without api key")
	}))
	defer server.Close()

	c := newTestClient(server.URL, "")
	require.False(t, c.HasRouterInteraction(context.Background(), testWallet))
}
