package throttle

import (
	"hash/fnv"
	"sync"
	"time"
)

// Subject kinds tracked by the ledger.
const (
	KindUser = "user"
	KindIP   = "ip"
)

// Config holds lockout policy for the ledger.
type Config struct {
	FreeAttempts int           // failures allowed before backoff kicks in
	BaseLockout  time.Duration // first lockout duration
	MaxLockout   time.Duration // backoff saturation
	Window       time.Duration // sliding window for counting failures
}

// record tracks recent failures for one (kind, key) subject.
type record struct {
	failures    []time.Time
	counter     int
	lockedUntil *time.Time
}

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

// Ledger tracks failed authentication attempts per user and per source
// address and computes lockout state with exponential backoff. State is
// sharded so contention stays local to hot usernames and IPs.
type Ledger struct {
	cfg    Config
	shards [shardCount]*shard
	now    func() time.Time
}

func NewLedger(cfg Config) *Ledger {
	l := &Ledger{
		cfg: cfg,
		now: time.Now,
	}
	for i := range l.shards {
		l.shards[i] = &shard{records: make(map[string]*record)}
	}
	return l
}

func (l *Ledger) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

func subjectKey(kind, key string) string {
	return kind + ":" + key
}

// RecordFailure appends a failure for both the user and IP axes and
// recomputes each lockout. Both updates are atomic per subject key.
func (l *Ledger) RecordFailure(userKey, ipKey string) {
	now := l.now()
	l.recordFailure(subjectKey(KindUser, userKey), now)
	l.recordFailure(subjectKey(KindIP, ipKey), now)
}

func (l *Ledger) recordFailure(key string, now time.Time) {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = &record{}
		s.records[key] = rec
	}

	// Failures outside the sliding window stop counting toward the counter.
	// An already-set lockedUntil stays authoritative.
	cutoff := now.Add(-l.cfg.Window)
	kept := rec.failures[:0]
	for _, t := range rec.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rec.failures = append(kept, now)
	rec.counter = len(rec.failures)

	if rec.counter > l.cfg.FreeAttempts {
		until := now.Add(l.lockoutDuration(rec.counter))
		// Lockouts only extend; a shorter recomputation never shrinks one.
		if rec.lockedUntil == nil || until.After(*rec.lockedUntil) {
			rec.lockedUntil = &until
		}
	}
}

// lockoutDuration grows exponentially with the failure counter once the free
// attempts are spent, saturating at MaxLockout.
func (l *Ledger) lockoutDuration(counter int) time.Duration {
	over := counter - l.cfg.FreeAttempts - 1
	if over < 0 {
		over = 0
	}

	dur := l.cfg.BaseLockout
	for i := 0; i < over; i++ {
		dur *= 2
		if dur >= l.cfg.MaxLockout {
			return l.cfg.MaxLockout
		}
	}
	if dur > l.cfg.MaxLockout {
		return l.cfg.MaxLockout
	}
	return dur
}

// RecordSuccess clears counters and lockout state for both subjects.
// Durable attempt history lives in the login_attempts table, not here.
func (l *Ledger) RecordSuccess(userKey, ipKey string) {
	l.recordSuccess(subjectKey(KindUser, userKey))
	l.recordSuccess(subjectKey(KindIP, ipKey))
}

func (l *Ledger) recordSuccess(key string) {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		rec.failures = nil
		rec.counter = 0
		rec.lockedUntil = nil
	}
}

// CheckLocked reports whether either the user or IP axis is locked.
// When both are locked, the later expiry wins.
func (l *Ledger) CheckLocked(userKey, ipKey string) (time.Time, bool) {
	now := l.now()

	userUntil, userLocked := l.lockedUntil(subjectKey(KindUser, userKey), now)
	ipUntil, ipLocked := l.lockedUntil(subjectKey(KindIP, ipKey), now)

	switch {
	case userLocked && ipLocked:
		if ipUntil.After(userUntil) {
			return ipUntil, true
		}
		return userUntil, true
	case userLocked:
		return userUntil, true
	case ipLocked:
		return ipUntil, true
	}
	return time.Time{}, false
}

func (l *Ledger) lockedUntil(key string, now time.Time) (time.Time, bool) {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.lockedUntil == nil {
		return time.Time{}, false
	}
	if rec.lockedUntil.After(now) {
		return *rec.lockedUntil, true
	}
	return time.Time{}, false
}

// Prune evicts records with an expired lockout and no failures inside the
// window. Returns the number of records removed.
func (l *Ledger) Prune() int {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)
	removed := 0

	for _, s := range l.shards {
		s.mu.Lock()
		for key, rec := range s.records {
			if rec.lockedUntil != nil && rec.lockedUntil.After(now) {
				continue
			}
			stale := true
			for _, t := range rec.failures {
				if t.After(cutoff) {
					stale = false
					break
				}
			}
			if stale {
				delete(s.records, key)
				removed++
			}
		}
		s.mu.Unlock()
	}

	return removed
}
