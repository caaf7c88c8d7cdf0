// Package ratelimit caps the bandwidth used to fetch file lists.
package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBurst keeps small limits from reading a few bytes at a time
const minBurst = 64 * 1024

// Limiter is a token bucket shared by every stream of a listing source.
// A nil Limiter does not limit.
type Limiter struct {
	rate  int64 // bytes per second
	burst int64

	mu     sync.Mutex
	tokens int64
	last   time.Time
	now    func() time.Time
}

// NewLimiter returns a limiter allowing bytesPerSecond, or nil when
// bytesPerSecond is not positive
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	burst := bytesPerSecond
	if burst < minBurst {
		burst = minBurst
	}
	return &Limiter{
		rate:   bytesPerSecond,
		burst:  burst,
		tokens: burst,
		last:   time.Now(),
		now:    time.Now,
	}
}

// Rate returns the limit in bytes per second
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.rate
}

// reserve takes up to n tokens. It returns the tokens taken and, when none
// are available, how long to wait for the next one.
func (l *Limiter) reserve(n int64) (int64, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.tokens += int64(elapsed.Seconds() * float64(l.rate))
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.last = now
	}

	if l.tokens <= 0 {
		wait := time.Duration(float64(1-l.tokens) / float64(l.rate) * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		return 0, wait
	}
	if n > l.tokens {
		n = l.tokens
	}
	l.tokens -= n
	return n, 0
}

// giveBack returns tokens a short read did not use
func (l *Limiter) giveBack(n int64) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	l.tokens += n
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.mu.Unlock()
}

// Wait blocks until at least one byte may be read and returns how many,
// at most n
func (l *Limiter) Wait(ctx context.Context, n int64) (int64, error) {
	for {
		got, wait := l.reserve(n)
		if got > 0 {
			return got, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
}

type reader struct {
	ctx     context.Context
	r       io.Reader
	limiter *Limiter
}

// NewReader limits reads from r. The stream fails with the context error
// once ctx is done.
func NewReader(ctx context.Context, r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &reader{ctx: ctx, r: r, limiter: limiter}
}

func (r *reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return r.r.Read(p)
	}

	allowed, err := r.limiter.Wait(r.ctx, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n, err := r.r.Read(p[:allowed])
	r.limiter.giveBack(allowed - int64(n))
	return n, err
}
