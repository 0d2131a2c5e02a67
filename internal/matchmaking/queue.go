// Package matchmaking implements the rank-windowed matchmaking queue: join,
// a two-stage matcher (closest-rank, then a time-ordered fallback), leave,
// cooldowns, and idle cleanup. Rating lookup and connection liveness are
// both external collaborators (rating persistence and the websocket
// transport are explicitly out of core), so the queue takes them as
// injected functions rather than importing either concern.
package matchmaking

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"corechess/internal/config"
	"corechess/internal/coreerr"
	"corechess/internal/eventbus"
	"corechess/internal/session"
	"corechess/internal/variant"
)

// RatingLookup resolves a user's rank for a variant/subvariant pair. ok is
// false if the variant or subvariant is unrecognized for this user.
type RatingLookup func(userID, variantName, subvariant string) (rank int, ok bool)

// ConnAlive reports whether connID is still a live connection. Injected so
// this package never has to know what transport a connection id names.
type ConnAlive func(connID string) bool

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusMatched Status = "matched"
)

// Entry is one user's place in a variant queue.
type Entry struct {
	UserID        string
	ConnID        string
	Rank          int
	Variant       string
	Subvariant    string
	JoinTimestamp int64
	Status        Status
}

// score implements rank + joinTimestamp/1e13: rank dominates, the
// timestamp only breaks ties, deterministically favoring earlier joiners.
func score(e Entry) float64 {
	return float64(e.Rank) + float64(e.JoinTimestamp)/1e13
}

// MatchResult is emitted to both matched users.
type MatchResult struct {
	SessionID string
	Session   *session.Session
}

// Queue is the matchmaking core. One instance is shared by every variant;
// entries are partitioned internally by variant name.
type Queue struct {
	cfg      config.Config
	ratings  RatingLookup
	connAlive ConnAlive
	sessions *session.Store
	bus      *eventbus.Bus

	mu        sync.Mutex
	byVariant map[string]map[string]*Entry // variant -> userID -> entry
	cooldowns map[string]int64             // userID -> absolute ms until rejoin allowed

	rng *rand.Rand
}

func New(cfg config.Config, ratings RatingLookup, connAlive ConnAlive, sessions *session.Store, bus *eventbus.Bus) *Queue {
	return &Queue{
		cfg:       cfg,
		ratings:   ratings,
		connAlive: connAlive,
		sessions:  sessions,
		bus:       bus,
		byVariant: make(map[string]map[string]*Entry),
		cooldowns: make(map[string]int64),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// JoinQueue implements the 6-step join sequence from the spec: cooldown
// check, cross-variant cleanup, rank lookup, insertion, an immediate
// by-rank match attempt, and (on a miss) scheduling the 10s fallback
// attempt as a cancellable background goroutine.
func (q *Queue) JoinQueue(ctx context.Context, userID, connID, variantName, subvariant string, now int64) (*MatchResult, error) {
	q.mu.Lock()
	if until, ok := q.cooldowns[userID]; ok && until > now {
		q.mu.Unlock()
		q.bus.Publish(eventbus.Event{Kind: "queue.cooldown", Payload: map[string]any{"userId": userID, "until": until}})
		return nil, nil
	}

	q.removeUserLocked(userID)

	rank, ok := q.ratings(userID, variantName, subvariant)
	if !ok {
		q.mu.Unlock()
		return nil, coreerr.Input(coreerr.CodeInvalidInput, "unrecognized variant or subvariant for this player")
	}

	entry := &Entry{
		UserID:        userID,
		ConnID:        connID,
		Rank:          rank,
		Variant:       variantName,
		Subvariant:    subvariant,
		JoinTimestamp: now,
		Status:        StatusWaiting,
	}
	if q.byVariant[variantName] == nil {
		q.byVariant[variantName] = make(map[string]*Entry)
	}
	q.byVariant[variantName][userID] = entry
	q.mu.Unlock()

	result, matched, err := q.tryMatch(ctx, userID, variantName, true, now)
	if err != nil {
		return nil, err
	}
	if matched {
		return result, nil
	}

	go q.scheduleFallback(ctx, userID, variantName)
	return nil, nil
}

func (q *Queue) scheduleFallback(ctx context.Context, userID, variantName string) {
	timer := time.NewTimer(q.cfg.FallbackMatchWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	_, _, _ = q.tryMatch(ctx, userID, variantName, false, time.Now().UnixMilli())
}

// tryMatch implements the matcher: candidate selection, filtering, best-pick,
// a liveness revalidation, and the atomic remove+session-create tail.
func (q *Queue) tryMatch(ctx context.Context, userID, variantName string, byRank bool, now int64) (*MatchResult, bool, error) {
	q.mu.Lock()
	variantQueue := q.byVariant[variantName]
	caller, ok := variantQueue[userID]
	if !ok || caller.Status != StatusWaiting {
		q.mu.Unlock()
		return nil, false, nil
	}
	if !q.connAlive(caller.ConnID) {
		delete(variantQueue, userID)
		q.mu.Unlock()
		return nil, false, nil
	}

	rangeWindow := q.rangeFor(len(variantQueue), now-caller.JoinTimestamp)

	var candidates []*Entry
	for otherID, e := range variantQueue {
		if otherID == userID || e.Status != StatusWaiting {
			continue
		}
		if variantName == variant.VariantClassic && e.Subvariant != caller.Subvariant {
			continue
		}
		if !q.connAlive(e.ConnID) {
			delete(variantQueue, otherID)
			continue
		}
		if byRank {
			// Candidates are admitted by score, not raw rank, so the tiny
			// join-timestamp term can still nudge a borderline candidate
			// across the window edge exactly as the ordered queue's score
			// key intends.
			diff := score(e) - float64(caller.Rank)
			if diff < -float64(rangeWindow) || diff > float64(rangeWindow) {
				continue
			}
		}
		candidates = append(candidates, e)
	}

	best := pickBest(candidates, caller, byRank)
	q.mu.Unlock()

	if best == nil {
		return nil, false, nil
	}

	return q.initiateMatch(ctx, caller, best, "matchmaking", "matchmaking")
}

func (q *Queue) rangeFor(queueSize int, waited int64) int {
	base := q.cfg.QueueRangeDefault
	if queueSize > q.cfg.QueueLargeThreshold {
		base = q.cfg.QueueRangeLarge
	}
	if time.Duration(waited)*time.Millisecond > q.cfg.QueueRangeWaitBoost {
		base *= 2
	}
	return base
}

// pickBest chooses the minimum rank-diff candidate (ties broken by earlier
// join); in fallback mode it picks the earliest joiner outright.
func pickBest(candidates []*Entry, caller *Entry, byRank bool) *Entry {
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !byRank {
			return candidates[i].JoinTimestamp < candidates[j].JoinTimestamp
		}
		di := abs(candidates[i].Rank - caller.Rank)
		dj := abs(candidates[j].Rank - caller.Rank)
		if di != dj {
			return di < dj
		}
		return candidates[i].JoinTimestamp < candidates[j].JoinTimestamp
	})
	return candidates[0]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// initiateMatch performs the atomic remove-both/mark-matched/cooldown tail
// and calls through to session creation for the regular matcher. The
// tournament overlay has its own initiateMatch for its cross-queue path.
func (q *Queue) initiateMatch(ctx context.Context, a, b *Entry, sourceA, sourceB string) (*MatchResult, bool, error) {
	q.mu.Lock()
	if !q.connAlive(a.ConnID) {
		q.removeUserLocked(a.UserID)
		q.mu.Unlock()
		return nil, false, nil
	}
	if !q.connAlive(b.ConnID) {
		q.removeUserLocked(b.UserID)
		q.mu.Unlock()
		return nil, false, nil
	}

	a.Status, b.Status = StatusMatched, StatusMatched
	now := time.Now().UnixMilli()
	cooldownUntil := now + q.cfg.CooldownTTL.Milliseconds()
	q.cooldowns[a.UserID] = cooldownUntil
	q.cooldowns[b.UserID] = cooldownUntil
	q.removeUserLocked(a.UserID)
	q.removeUserLocked(b.UserID)
	q.mu.Unlock()

	white, black := a, b
	whiteSource, blackSource := sourceA, sourceB
	if q.rng.Intn(2) == 1 {
		white, black = black, white
		whiteSource, blackSource = blackSource, whiteSource
	}

	sess, err := q.sessions.CreateSession(ctx, session.CreateParams{
		Variant:     white.Variant,
		Subvariant:  white.Subvariant,
		White:       session.PlayerSummary{UserID: white.UserID, Rating: white.Rank},
		Black:       session.PlayerSummary{UserID: black.UserID, Rating: black.Rank},
		WhiteSource: session.Source(whiteSource),
		BlackSource: session.Source(blackSource),
		Rated:       true,
		RNG:         q.rng,
	})
	if err != nil {
		return nil, false, err
	}

	q.bus.Publish(eventbus.Event{Kind: "queue.matched", Payload: map[string]any{
		"sessionId": sess.ID,
		"userIds":   []string{a.UserID, b.UserID},
	}})
	return &MatchResult{SessionID: sess.ID, Session: sess}, true, nil
}

// LeaveQueue removes userID from whichever variant queue holds it, and
// sets a cooldown if that entry was still waiting (a matched user leaving
// has already been moved into a session and owes no cooldown here).
func (q *Queue) LeaveQueue(userID string, now int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, entries := range q.byVariant {
		if e, ok := entries[userID]; ok {
			wasWaiting := e.Status == StatusWaiting
			delete(entries, userID)
			if wasWaiting {
				q.cooldowns[userID] = now + q.cfg.CooldownTTL.Milliseconds()
			}
			return
		}
	}
}

// removeUserLocked deletes userID from every variant queue. Caller must
// hold q.mu.
func (q *Queue) removeUserLocked(userID string) {
	for _, entries := range q.byVariant {
		delete(entries, userID)
	}
}

// CleanupIdleUsers drops entries whose join time predates IdleUserTimeout
// or whose connection has died. Intended to run every IdleSweepInterval.
func (q *Queue) CleanupIdleUsers(now int64) []string {
	cutoff := now - q.cfg.IdleUserTimeout.Milliseconds()

	q.mu.Lock()
	defer q.mu.Unlock()

	var evicted []string
	for _, entries := range q.byVariant {
		for userID, e := range entries {
			if e.JoinTimestamp < cutoff || !q.connAlive(e.ConnID) {
				delete(entries, userID)
				evicted = append(evicted, userID)
			}
		}
	}
	return evicted
}

// RunIdleCleanup runs CleanupIdleUsers on interval until ctx is canceled.
func RunIdleCleanup(ctx context.Context, q *Queue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			q.CleanupIdleUsers(t.UnixMilli())
		}
	}
}

// entryFor exposes a variant queue entry to this package's tests. The
// tournament overlay's cross-queue search uses WaitingEntriesFor instead.
func (q *Queue) entryFor(variantName, userID string) (*Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.byVariant[variantName][userID]
	return e, ok
}

// SetCooldown applies the configured cooldown to userID starting at now -
// exported so the tournament overlay can apply the same cooldown state to
// a participant it matched without duplicating the regular queue's
// cooldown bookkeeping.
func (q *Queue) SetCooldown(userID string, now int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cooldowns[userID] = now + q.cfg.CooldownTTL.Milliseconds()
}

// WaitingEntriesFor returns a snapshot of every waiting entry in a
// variant/subvariant queue, used by the tournament overlay's cross-queue
// fallback search.
func (q *Queue) WaitingEntriesFor(variantName, subvariant string) []*Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*Entry
	for _, e := range q.byVariant[variantName] {
		if e.Status != StatusWaiting {
			continue
		}
		if variantName == variant.VariantClassic && e.Subvariant != subvariant {
			continue
		}
		if !q.connAlive(e.ConnID) {
			continue
		}
		snapshot := *e
		out = append(out, &snapshot)
	}
	return out
}
