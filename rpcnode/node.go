package rpcnode

/**
 * RPC Node Kit
 *
 * What is my purpose?
 * - You connect to a pasteld node
 * - You make RPC calls for me
 */

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tokenized/logger"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

const (
	// SubSystem is used by the logger package
	SubSystem = "RPCNode"

	// healthCheckPath is probed with a GET before calls when health checks
	// are enabled.
	healthCheckPath = "/health"

	// maxBackoff caps the sleep between retry attempts.
	maxBackoff = 120 * time.Second

	userAgent = "AuthServiceProxy/0.1"
)

// request is a JSON-RPC 1.1 request body.
type request struct {
	Version string        `json:"version"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

// response is a JSON-RPC 1.1 response body.
type response struct {
	Result json.RawMessage   `json:"result"`
	Error  *btcjson.RPCError `json:"error"`
	ID     uint64            `json:"id"`
}

// RPCNode is a JSON-RPC client for a node endpoint. All calls share one
// in-flight permit pool and one circuit breaker.
type RPCNode struct {
	config *Config

	// serviceURL starts at the configured endpoint and switches to the
	// fallback when the breaker opens.
	serviceURL string
	urlLock    sync.Mutex

	client     *http.Client
	authHeader string
	requestID  uint64

	inFlight *semaphore.Weighted
	breaker  *circuitBreaker
}

// NewNode returns a new instance of an RPC node client.
func NewNode(config *Config) *RPCNode {
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.ReconnectTimeout == 0 {
		config.ReconnectTimeout = DefaultReconnectTimeout
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.MaxInFlight == 0 {
		config.MaxInFlight = DefaultMaxInFlight
	}

	authPair := fmt.Sprintf("%s:%s", config.Username, config.Password)

	return &RPCNode{
		config:     config,
		serviceURL: config.URL(),
		client: &http.Client{
			Timeout: time.Duration(config.RequestTimeout) * time.Second,
		},
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(authPair)),
		inFlight:   semaphore.NewWeighted(int64(config.MaxInFlight)),
		breaker:    newCircuitBreaker(),
	}
}

// URL returns the service URL calls are currently sent to.
func (r *RPCNode) URL() string {
	r.urlLock.Lock()
	defer r.urlLock.Unlock()
	return r.serviceURL
}

func (r *RPCNode) adoptFallback(ctx context.Context) {
	if len(r.config.FallbackURL) == 0 {
		return
	}

	r.urlLock.Lock()
	defer r.urlLock.Unlock()
	if r.serviceURL != r.config.FallbackURL {
		logger.InfoWithFields(ctx, []logger.Field{
			logger.String("fallback_url", r.config.FallbackURL),
		}, "Switching to fallback URL")
		r.serviceURL = r.config.FallbackURL
	}
}

// Call performs a JSON-RPC call. The method name is passed through verbatim,
// so dotted paths compose the same method string the attribute-chained
// dispatch of other clients would. A nil result with a nil error never
// happens; missing results surface as code -343.
func (r *RPCNode) Call(ctx context.Context, method string,
	params ...interface{}) (json.RawMessage, error) {

	ctx = logger.ContextWithLogSubSystem(ctx, SubSystem)

	if err := r.inFlight.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "in-flight permit")
	}
	defer r.inFlight.Release(1)

	if wait := r.breaker.openRemaining(time.Now()); wait > 0 {
		logger.WarnWithFields(ctx, []logger.Field{
			logger.MillisecondsFromNano("wait_ms", wait.Nanoseconds()),
		}, "Circuit breaker is open. Waiting for timeout")
		if err := sleepContext(ctx, wait); err != nil {
			return nil, err
		}
		r.breaker.trial()
		logger.Verbose(ctx, "Testing circuit breaker with a request")
	}

	if params == nil {
		params = []interface{}{}
	}
	body, err := json.Marshal(request{
		Version: "1.1",
		Method:  method,
		Params:  params,
		ID:      atomic.AddUint64(&r.requestID, 1),
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt < r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt,
				time.Duration(r.config.ReconnectTimeout)*time.Second)
			logger.WarnWithFields(ctx, []logger.Field{
				logger.String("method", method),
				logger.Int("attempt", attempt+1),
				logger.MillisecondsFromNano("delay_ms", delay.Nanoseconds()),
			}, "Retrying RPC call")
			if err := sleepContext(ctx, delay); err != nil {
				return nil, err
			}
		}

		if r.config.UseHealthCheck {
			if err := r.healthCheck(ctx); err != nil {
				lastErr = err
				r.failure(ctx)
				continue
			}
		}

		resp, err := r.post(ctx, body)
		if err != nil {
			lastErr = errors.Wrap(err, method)
			logger.Error(ctx, "RPCCallFailed %s : %s", method, err)
			r.failure(ctx)
			continue
		}

		r.breaker.recordSuccess(time.Since(start))

		if resp.Error != nil {
			return nil, errors.Wrap(resp.Error, method)
		}
		if resp.Result == nil {
			return nil, errors.Wrap(ErrRPCMissingResult, method)
		}
		return resp.Result, nil
	}

	logger.Error(ctx, "RPCCallAborted %s : %s", method, lastErr)
	return nil, errors.Wrap(ErrMaxRetries, lastErr.Error())
}

// failure records a transport failure and handles breaker opening.
func (r *RPCNode) failure(ctx context.Context) {
	if r.breaker.recordFailure(time.Now()) {
		logger.WarnWithFields(ctx, []logger.Field{
			logger.MillisecondsFromNano("cooldown_ms",
				r.breaker.currentTimeout().Nanoseconds()),
		}, "Circuit breaker threshold reached. Opening circuit")
		r.adoptFallback(ctx)
	}
}

// post sends the request body and decodes the JSON-RPC envelope. A non-2xx
// status is fine as long as the body is an envelope; the node reports call
// errors with status 500.
func (r *RPCNode) post(ctx context.Context, body []byte) (*response, error) {
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL(),
		bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpRequest.Header.Set("Authorization", r.authHeader)
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("User-Agent", userAgent)

	httpResponse, err := r.client.Do(httpRequest)
	if err != nil {
		return nil, errors.Wrap(err, "post")
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	result := &response{}
	if err := json.Unmarshal(responseBody, result); err != nil {
		return nil, errors.Wrapf(err, "status %d", httpResponse.StatusCode)
	}

	return result, nil
}

// healthCheck probes the health endpoint. Any non-200 response is a
// pre-call failure.
func (r *RPCNode) healthCheck(ctx context.Context) error {
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.URL()+healthCheckPath, nil)
	if err != nil {
		return errors.Wrap(err, "create health request")
	}

	httpResponse, err := r.client.Do(httpRequest)
	if err != nil {
		return errors.Wrap(err, "health check")
	}
	defer httpResponse.Body.Close()
	io.Copy(io.Discard, httpResponse.Body)

	if httpResponse.StatusCode != http.StatusOK {
		return errors.Errorf("health check failed : status %d",
			httpResponse.StatusCode)
	}
	return nil
}

// backoffDelay is full jitter exponential backoff. Attempt i sleeps
// min(base*2^i + U[0, base], 120s).
func backoffDelay(attempt int, base time.Duration) time.Duration {
	delay := base<<uint(attempt) +
		time.Duration(rand.Int63n(int64(base)+1))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

// sleepContext sleeps unless the context finishes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
