package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"solana-vesting/internal/observability"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3

	// maxErrorBody caps how much of a failed response ends up in an error.
	maxErrorBody = 256
)

// Backoff is the delay schedule between retried requests.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoff doubles from one second up to ten.
var DefaultBackoff = Backoff{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

// next returns the delay before retry number attempt (1-based).
func (b Backoff) next(attempt int) time.Duration {
	d := float64(b.Initial)
	for i := 1; i < attempt; i++ {
		d *= b.Multiplier
		if time.Duration(d) >= b.Max {
			return b.Max
		}
	}
	return time.Duration(d)
}

// RPCError is an error object returned by the node. It is never retried.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPClient is an RPCClient speaking JSON-RPC 2.0 over HTTP.
type HTTPClient struct {
	endpoint   string
	http       *http.Client
	commitment string
	maxRetries int
	backoff    Backoff
	log        *logrus.Entry
	nextID     atomic.Uint64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout bounds every HTTP round trip.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// WithMaxRetries sets how many times a failed transport call is repeated.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) { c.maxRetries = n }
}

// WithBackoff sets the retry delay schedule.
func WithBackoff(b Backoff) ClientOption {
	return func(c *HTTPClient) { c.backoff = b }
}

// WithCommitment reads account state at the given commitment level
// ("processed", "confirmed" or "finalized"). Empty uses the node default.
func WithCommitment(level string) ClientOption {
	return func(c *HTTPClient) { c.commitment = level }
}

// WithLogger logs retried calls to log.
func WithLogger(log *logrus.Entry) ClientOption {
	return func(c *HTTPClient) { c.log = log }
}

// NewHTTPClient creates a client for the RPC node at endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		http:       &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		backoff:    DefaultBackoff,
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// retryableError marks a transport failure worth another attempt. wait
// overrides the backoff when the server sent Retry-After.
type retryableError struct {
	err  error
	wait time.Duration
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// call sends method and decodes its result into out. Transport failures,
// 429 and 5xx answers are retried; node errors are returned as *RPCError.
func (c *HTTPClient) call(ctx context.Context, method string, params []any, out any) error {
	start := time.Now()
	defer func() { observability.RecordRPCLatency(method, time.Since(start).Seconds()) }()

	body, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}

	var result json.RawMessage
	for attempt := 0; ; attempt++ {
		result, err = c.post(ctx, body)
		var retry *retryableError
		if err == nil || !errors.As(err, &retry) {
			break
		}
		if attempt >= c.maxRetries {
			return fmt.Errorf("%s failed after %d attempts: %w", method, attempt+1, err)
		}

		wait := c.backoff.next(attempt + 1)
		if retry.wait > wait {
			wait = retry.wait
		}
		c.log.WithError(err).WithFields(logrus.Fields{
			"method":  method,
			"attempt": attempt + 1,
			"wait":    wait,
		}).Debug("Retrying RPC call")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}

	if out == nil || len(result) == 0 {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// post performs one round trip and returns the raw result.
func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryableError{
			err:  errors.New("rate limited"),
			wait: retryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &retryableError{err: statusError(resp)}
	case resp.StatusCode != http.StatusOK:
		return nil, statusError(resp)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, &retryableError{err: fmt.Errorf("decode response: %w", err)}
	}
	if r.Error != nil {
		return nil, r.Error
	}
	return r.Result, nil
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("http status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

type accountConfig struct {
	Encoding   string        `json:"encoding"`
	Commitment string        `json:"commitment,omitempty"`
	Filters    []filterParam `json:"filters,omitempty"`
}

type filterParam struct {
	DataSize *uint64     `json:"dataSize,omitempty"`
	Memcmp   *memcmpJSON `json:"memcmp,omitempty"`
}

type memcmpJSON struct {
	Offset uint64 `json:"offset"`
	Bytes  string `json:"bytes"`
}

type encodedAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

func (a *encodedAccount) toInfo() (AccountInfo, error) {
	info := AccountInfo{
		Lamports:   a.Lamports,
		Owner:      a.Owner,
		Executable: a.Executable,
		RentEpoch:  a.RentEpoch,
	}
	// data is [payload, encoding].
	if len(a.Data) > 0 {
		raw, err := base64.StdEncoding.DecodeString(a.Data[0])
		if err != nil {
			return AccountInfo{}, fmt.Errorf("decode account data: %w", err)
		}
		info.Data = raw
	}
	return info, nil
}

// GetAccountInfo returns nil, nil when the account does not exist.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	var result struct {
		Value *encodedAccount `json:"value"`
	}
	cfg := accountConfig{Encoding: "base64", Commitment: c.commitment}
	if err := c.call(ctx, "getAccountInfo", []any{pubkey, cfg}, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}

	info, err := result.Value.toInfo()
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", pubkey, err)
	}
	return &info, nil
}

// GetProgramAccounts returns every account of program matching all filters.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, program string, filters ...AccountFilter) ([]ProgramAccount, error) {
	cfg := accountConfig{Encoding: "base64", Commitment: c.commitment}
	for _, f := range filters {
		var p filterParam
		if f.DataSize != nil {
			p.DataSize = f.DataSize
		} else if f.Memcmp != nil {
			p.Memcmp = &memcmpJSON{Offset: f.Memcmp.Offset, Bytes: base58.Encode(f.Memcmp.Bytes)}
		} else {
			continue
		}
		cfg.Filters = append(cfg.Filters, p)
	}

	var result []struct {
		Pubkey  string         `json:"pubkey"`
		Account encodedAccount `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", []any{program, cfg}, &result); err != nil {
		return nil, err
	}

	accounts := make([]ProgramAccount, len(result))
	for i := range result {
		info, err := result[i].Account.toInfo()
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", result[i].Pubkey, err)
		}
		accounts[i] = ProgramAccount{Pubkey: result[i].Pubkey, Account: info}
	}
	return accounts, nil
}

func (c *HTTPClient) GetSlot(ctx context.Context) (int64, error) {
	var params []any
	if c.commitment != "" {
		params = []any{map[string]string{"commitment": c.commitment}}
	}
	var slot int64
	if err := c.call(ctx, "getSlot", params, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// GetBlockTime returns nil when the node has no time for slot.
func (c *HTTPClient) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	var t *int64
	if err := c.call(ctx, "getBlockTime", []any{slot}, &t); err != nil {
		return nil, err
	}
	return t, nil
}
