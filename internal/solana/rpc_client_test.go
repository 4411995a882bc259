package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastBackoff = Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond, Multiplier: 2}

type rpcCall struct {
	Method string
	Params []json.RawMessage
}

// fakeNode answers JSON-RPC calls with handle.
func fakeNode(t *testing.T, handle func(call rpcCall) (any, *RPCError)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID uint64 `json:"id"`
			rpcCall
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result, rpcErr := handle(req.rpcCall)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func decodeParam[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestBackoff_Next(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 3}

	assert.Equal(t, 100*time.Millisecond, b.next(1))
	assert.Equal(t, 300*time.Millisecond, b.next(2))
	assert.Equal(t, 900*time.Millisecond, b.next(3))
	assert.Equal(t, time.Second, b.next(4))
	assert.Equal(t, time.Second, b.next(10))
}

func TestHTTPClient_RetriesRateLimit(t *testing.T) {
	var hits atomic.Int32
	node := fakeNode(t, func(rpcCall) (any, *RPCError) { return int64(999), nil })
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		node.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, WithMaxRetries(3), WithBackoff(fastBackoff))
	slot, err := client.GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(999), slot)
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPClient_RetriesExhausted(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, WithMaxRetries(2), WithBackoff(fastBackoff))
	_, err := client.GetSlot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPClient_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, WithMaxRetries(3), WithBackoff(fastBackoff))
	_, err := client.GetSlot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPClient_NodeErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := fakeNode(t, func(rpcCall) (any, *RPCError) {
		hits.Add(1)
		return nil, &RPCError{Code: -32600, Message: "Invalid Request"}
	})

	client := NewHTTPClient(srv.URL, WithBackoff(fastBackoff))
	_, err := client.GetSlot(context.Background())

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryAfter("2"))
	assert.Zero(t, retryAfter(""))
	assert.Zero(t, retryAfter("-1"))
	assert.Zero(t, retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	srv := fakeNode(t, func(c rpcCall) (any, *RPCError) {
		assert.Equal(t, "getAccountInfo", c.Method)
		require.Len(t, c.Params, 2)
		assert.Equal(t, "Acct111", decodeParam[string](t, c.Params[0]))
		cfg := decodeParam[map[string]string](t, c.Params[1])
		assert.Equal(t, map[string]string{"encoding": "base64", "commitment": "confirmed"}, cfg)

		return map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"lamports":   2039280,
				"owner":      "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
				"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
				"executable": false,
				"rentEpoch":  361,
			},
		}, nil
	})

	client := NewHTTPClient(srv.URL, WithCommitment("confirmed"))
	info, err := client.GetAccountInfo(context.Background(), "Acct111")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, &AccountInfo{
		Lamports:  2039280,
		Owner:     "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		Data:      []byte("Hello World"),
		RentEpoch: 361,
	}, info)
}

func TestHTTPClient_GetAccountInfo_Missing(t *testing.T) {
	srv := fakeNode(t, func(rpcCall) (any, *RPCError) {
		return map[string]any{"value": nil}, nil
	})

	info, err := NewHTTPClient(srv.URL).GetAccountInfo(context.Background(), "Nobody")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestHTTPClient_GetAccountInfo_BadData(t *testing.T) {
	srv := fakeNode(t, func(rpcCall) (any, *RPCError) {
		return map[string]any{"value": map[string]any{"data": []string{"%%%", "base64"}}}, nil
	})

	_, err := NewHTTPClient(srv.URL).GetAccountInfo(context.Background(), "Bad")
	assert.ErrorContains(t, err, "decode account data")
}

func TestHTTPClient_GetProgramAccounts(t *testing.T) {
	srv := fakeNode(t, func(c rpcCall) (any, *RPCError) {
		assert.Equal(t, "getProgramAccounts", c.Method)
		assert.Equal(t, "Prog111", decodeParam[string](t, c.Params[0]))

		cfg := decodeParam[accountConfig](t, c.Params[1])
		assert.Equal(t, "base64", cfg.Encoding)
		assert.Empty(t, cfg.Commitment)
		require.Len(t, cfg.Filters, 2)
		require.NotNil(t, cfg.Filters[0].DataSize)
		assert.Equal(t, uint64(113), *cfg.Filters[0].DataSize)
		// base58 of {1,2,3}
		assert.Equal(t, &memcmpJSON{Offset: 64, Bytes: "Ldp"}, cfg.Filters[1].Memcmp)

		return []any{
			map[string]any{
				"pubkey":  "Acct1",
				"account": map[string]any{"lamports": 10, "owner": "Prog111", "data": []string{"AQID", "base64"}},
			},
		}, nil
	})

	accounts, err := NewHTTPClient(srv.URL).GetProgramAccounts(context.Background(), "Prog111",
		DataSizeFilter(113),
		MemcmpFilter(64, []byte{1, 2, 3}),
	)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Acct1", accounts[0].Pubkey)
	assert.Equal(t, []byte{1, 2, 3}, accounts[0].Account.Data)
	assert.Equal(t, "Prog111", accounts[0].Account.Owner)
}

func TestHTTPClient_GetSlot_Commitment(t *testing.T) {
	srv := fakeNode(t, func(c rpcCall) (any, *RPCError) {
		require.Len(t, c.Params, 1)
		assert.Equal(t, map[string]string{"commitment": "finalized"}, decodeParam[map[string]string](t, c.Params[0]))
		return int64(42), nil
	})

	slot, err := NewHTTPClient(srv.URL, WithCommitment("finalized")).GetSlot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), slot)
}

func TestHTTPClient_GetBlockTime(t *testing.T) {
	srv := fakeNode(t, func(c rpcCall) (any, *RPCError) {
		if decodeParam[int64](t, c.Params[0]) == 100 {
			return int64(1700000000), nil
		}
		return nil, nil
	})
	client := NewHTTPClient(srv.URL)

	bt, err := client.GetBlockTime(context.Background(), 100)
	require.NoError(t, err)
	require.NotNil(t, bt)
	assert.Equal(t, int64(1700000000), *bt)

	bt, err = client.GetBlockTime(context.Background(), 101)
	require.NoError(t, err)
	assert.Nil(t, bt)
}

func TestHTTPClient_CancelledContext(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPClient(srv.URL, WithBackoff(fastBackoff)).GetSlot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestChainClock_SkipsSlotsWithoutBlocks(t *testing.T) {
	srv := fakeNode(t, func(c rpcCall) (any, *RPCError) {
		switch c.Method {
		case "getSlot":
			return int64(500), nil
		case "getBlockTime":
			switch decodeParam[int64](t, c.Params[0]) {
			case 500:
				return nil, &RPCError{Code: -32009, Message: "Slot 500 was skipped"}
			case 499:
				return nil, nil
			case 498:
				return int64(1700000123), nil
			}
		}
		t.Errorf("unexpected call %s", c.Method)
		return nil, nil
	})

	now, err := NewChainClock(NewHTTPClient(srv.URL)).Now(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1700000123), now)
}

func TestChainClock_NoBlockTime(t *testing.T) {
	srv := fakeNode(t, func(c rpcCall) (any, *RPCError) {
		if c.Method == "getSlot" {
			return int64(3), nil
		}
		return nil, nil
	})

	_, err := NewChainClock(NewHTTPClient(srv.URL)).Now(context.Background())
	assert.ErrorIs(t, err, ErrNoBlockTime)
}
