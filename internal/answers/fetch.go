package answers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/visa-autofill/internal/config"
	"github.com/xkilldash9x/visa-autofill/internal/network"
)

// maxBodyBytes caps answer payloads. Real questionnaires are a few kilobytes.
const maxBodyBytes = 4 << 20

// StatusError is a non-2xx response from an answer source.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("answers: %s returned status %d", e.URL, e.StatusCode)
}

// Transient reports whether the request is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// fetcher performs authenticated GETs with retry on transient failures.
type fetcher struct {
	client         *http.Client
	apiKey         string
	timeout        time.Duration
	maxElapsed     time.Duration
	logger         *zap.Logger
	backoffFactory func() backoff.BackOff
}

func newFetcher(client *http.Client, cfg config.AnswersConfig, logger *zap.Logger) *fetcher {
	if client == nil {
		netCfg := network.NewDefaultClientConfig()
		netCfg.Logger = logger
		client = network.NewClient(netCfg)
	}
	f := &fetcher{
		client:     client,
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		maxElapsed: cfg.MaxRetryElapsed,
		logger:     logger.Named("fetch"),
	}
	f.backoffFactory = f.defaultBackoff
	return f
}

func (f *fetcher) defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = f.maxElapsed
	if f.maxElapsed <= 0 {
		// Zero means no retries rather than backoff's "retry forever".
		return &backoff.StopBackOff{}
	}
	return b
}

// loadJSON fetches endpoint and decodes it with DecodeBody.
func (f *fetcher) loadJSON(ctx context.Context, endpoint string) (*Map, error) {
	f.warnIfExpired()

	var body []byte
	operation := func() error {
		data, err := f.get(ctx, endpoint)
		if err != nil {
			return err
		}
		body = data
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(f.backoffFactory(), ctx)); err != nil {
		return nil, err
	}

	m, err := DecodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("answers: decoding %s: %w", endpoint, err)
	}
	return m, nil
}

func (f *fetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("answers: building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("Network error fetching answers, retrying...", zap.String("url", endpoint), zap.Error(err))
		return nil, fmt.Errorf("answers: fetching %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		statusErr := &StatusError{URL: endpoint, StatusCode: resp.StatusCode}
		if statusErr.Transient() {
			f.logger.Warn("Answer source returned a transient error, retrying...", zap.Int("status", resp.StatusCode))
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("answers: reading body: %w", err)
	}
	return data, nil
}

// warnIfExpired logs when the API key is a JWT past its exp claim. The request still goes out.
func (f *fetcher) warnIfExpired() {
	if f.apiKey == "" {
		return
	}
	exp, ok := tokenExpiry(f.apiKey)
	if ok && time.Now().After(exp) {
		f.logger.Warn("API key appears to be an expired token", zap.Time("expired_at", exp))
	}
}

// tokenExpiry extracts exp from an unverified JWT. ok is false for opaque keys.
func tokenExpiry(key string) (time.Time, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(key, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
