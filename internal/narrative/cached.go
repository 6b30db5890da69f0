package narrative

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Cached wraps a Summarizer with a result cache and a request rate limit.
// Cache hits do not consume the rate budget.
type Cached struct {
	next    Summarizer
	cache   *cache.Cache
	limiter *rate.Limiter
}

// NewCached caches results for ttl and allows requestsPerMinute calls to next
// (unlimited when requestsPerMinute <= 0).
func NewCached(next Summarizer, ttl time.Duration, requestsPerMinute int) *Cached {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute)
	}
	return &Cached{
		next:    next,
		cache:   cache.New(ttl, 2*ttl),
		limiter: limiter,
	}
}

// Summarize returns a cached summary for the same prompt, otherwise waits
// for the limiter and asks next. It fails with ErrRateLimited when the wait
// would outlast ctx.
func (c *Cached) Summarize(ctx context.Context, prompt string) (string, error) {
	key := promptKey(prompt)
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	summary, err := c.next.Summarize(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, summary)
	return summary, nil
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
