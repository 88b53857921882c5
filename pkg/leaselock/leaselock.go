package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OFFIS-RIT/companynet/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("lease lock busy")
	ErrLost = errors.New("lease lock lost")

	errEmptyKey = errors.New("lease lock key is empty")
)

// NetworkOptions are the lease settings used while a network is persisted or
// deleted. Writers queue up behind each other instead of failing fast.
var NetworkOptions = Options{
	TTL:          2 * time.Minute,
	Wait:         true,
	WaitInterval: 500 * time.Millisecond,
	WaitJitter:   250 * time.Millisecond,
}

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client hands out expiring locks stored in the network_locks table. A lease
// is renewed in the background until released; if renewal fails the lease
// context is cancelled with ErrLost.
type Client struct {
	db dbConn
}

type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	TokenPrefix string
}

func (o Options) withDefaults() Options {
	if o.TTL < time.Millisecond {
		o.TTL = 5 * time.Minute
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, time.Second)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = 250 * time.Millisecond
	}
	o.WaitJitter = max(o.WaitJitter, 0)
	return o
}

type Lease struct {
	Key   string
	Token string

	Context context.Context

	client *Client
	ttlMs  int64
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(db dbConn) *Client {
	return &Client{db: db}
}

// NetworkKey returns the lock key guarding writes to one stored network.
func NetworkKey(networkID string) string {
	return "network:" + networkID
}

// WithNetwork runs fn while holding the lease of networkID, waiting for any
// other worker currently saving or deleting the same network.
func (c *Client) WithNetwork(ctx context.Context, networkID string, fn func(ctx context.Context) error) error {
	if networkID == "" {
		return errEmptyKey
	}
	return c.WithLease(ctx, NetworkKey(networkID), NetworkOptions, fn)
}

// WithLease runs fn while holding the lease for key. fn receives the lease
// context, which is cancelled if the lease is lost.
func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			logger.Warn("[Lock] Failed to release lease", "key", key, "err", err)
		}
	}()

	if err := fn(lease.Context); err != nil {
		if cause := context.Cause(lease.Context); errors.Is(cause, ErrLost) {
			return errors.Join(err, cause)
		}
		return err
	}
	return nil
}

// Acquire takes the lease for key. Without opts.Wait a held lease fails with
// ErrBusy; with it, Acquire polls until the holder releases or the lease
// expires.
func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errEmptyKey
	}
	opts = opts.withDefaults()

	tok, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	l := &Lease{
		Key:    key,
		Token:  opts.TokenPrefix + tok,
		client: c,
		ttlMs:  opts.TTL.Milliseconds(),
		stopCh: make(chan struct{}),
	}

	for {
		ok, err := l.claim(ctx, tryAcquireSQL)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		logger.Debug("[Lock] Waiting for lease", "key", key)
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	l.Context, l.cancel = context.WithCancelCause(ctx)
	go l.keepAlive(opts.RenewEvery)

	return l, nil
}

// Release stops renewal and deletes the lock row if this lease still owns it.
func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})

	_, err := l.client.db.Exec(ctx, releaseSQL, l.Key, l.Token)
	return err
}

// claim runs an acquire or renew statement. It reports false when the row
// belongs to another token.
func (l *Lease) claim(ctx context.Context, sql string) (bool, error) {
	var key string
	err := l.client.db.QueryRow(ctx, sql, l.Key, l.Token, l.ttlMs).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return key != "", nil
}

func (l *Lease) keepAlive(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renew(); err != nil {
				logger.Warn("[Lock] Lease lost", "key", l.Key, "err", err)
				l.cancel(err)
				return
			}
		}
	}
}

// renew extends the lease, retrying transient errors up to three times.
func (l *Lease) renew() error {
	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			if err := sleepWithJitter(l.Context, 200*time.Millisecond, 0); err != nil {
				return err
			}
		}
		ctx, cancel := context.WithTimeout(l.Context, 15*time.Second)
		ok, err := l.claim(ctx, renewSQL)
		cancel()
		switch {
		case err != nil:
			lastErr = err
		case !ok:
			return ErrLost
		default:
			return nil
		}
	}
	return errors.Join(ErrLost, lastErr)
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// A lock row may be taken over once it has expired or when the same token
// asks again.
const tryAcquireSQL = `
INSERT INTO network_locks (lock_key, locked_by, expires_at)
VALUES ($1, $2, now() + ($3::bigint * interval '1 millisecond'))
ON CONFLICT (lock_key) DO UPDATE
SET locked_by  = EXCLUDED.locked_by,
    expires_at = EXCLUDED.expires_at
WHERE network_locks.expires_at < now()
   OR network_locks.locked_by = EXCLUDED.locked_by
RETURNING lock_key;
`

const renewSQL = `
UPDATE network_locks
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lock_key = $1 AND locked_by = $2
RETURNING lock_key;
`

const releaseSQL = `
DELETE FROM network_locks
WHERE lock_key = $1 AND locked_by = $2;
`
