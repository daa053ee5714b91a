package fetcher

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config tunes the Colly-backed fetcher.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Colly implements Fetcher using the Colly collector with a fixed
// identity header.
type Colly struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewColly constructs a configured Colly-based Fetcher.
func NewColly(cfg Config, logger *zap.Logger) (*Colly, error) {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Colly{
		baseCollector: base,
		logger:        logger,
	}, nil
}

// Fetch retrieves a page via the configured Colly collector. A canceled
// context stops the fetch before any request is issued; it cannot
// interrupt a request already in flight.
func (f *Colly) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	collector := f.baseCollector.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{body: string(r.Body)})
	})

	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return "", err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if res.err != nil {
			f.logger.Debug("fetch failed", zap.String("url", rawURL), zap.Error(res.err))
		}
		return res.body, res.err
	default:
		return "", errors.New("colly fetch produced no result")
	}
}

type fetchResult struct {
	body string
	err  error
}
