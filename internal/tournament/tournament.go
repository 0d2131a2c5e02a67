// Package tournament is a thin overlay on top of matchmaking: a single
// active tournament with a capacity-bounded participant set, a
// cross-variant queue keyed by the same score function as the regular
// queue, and a matcher that prefers pairing within the tournament before
// falling back to the regular queue.
package tournament

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"corechess/internal/coreerr"
	"corechess/internal/eventbus"
	"corechess/internal/matchmaking"
	"corechess/internal/session"
	"corechess/internal/variant"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusFinished   Status = "finished"
)

// variantPool is drawn from uniformly when a participant joins: Classic
// carries all three of its subvariants as distinct pool entries, the
// other variants have none.
var variantPool = []struct {
	Variant    string
	Subvariant string
}{
	{variant.VariantClassic, "standard"},
	{variant.VariantClassic, "blitz"},
	{variant.VariantClassic, "bullet"},
	{variant.VariantCrazyhouse, variant.CrazyhouseStandard},
	{variant.VariantCrazyhouse, variant.CrazyhouseWithTimer},
	{variant.VariantDecay, ""},
	{variant.VariantSixPointer, ""},
}

// Tournament is the single currently-active tournament's state.
type Tournament struct {
	ID        string
	Status    Status
	Capacity  int
	StartedAt int64
	Participants map[string]bool
}

// Overlay owns the one active tournament and a dedicated cross-variant
// queue, and holds a reference to the regular matchmaking queue for its
// cross-queue fallback match path.
type Overlay struct {
	capacity int
	regular  *matchmaking.Queue
	sessions *session.Store
	bus      *eventbus.Bus
	ratings  matchmaking.RatingLookup
	connAlive matchmaking.ConnAlive
	rng      *rand.Rand

	mu      sync.Mutex
	current *Tournament
	queue   map[string]*matchmaking.Entry // userID -> entry, single cross-variant queue
	nextID  int
}

func New(capacity int, regular *matchmaking.Queue, sessions *session.Store, bus *eventbus.Bus, ratings matchmaking.RatingLookup, connAlive matchmaking.ConnAlive) *Overlay {
	return &Overlay{
		capacity:  capacity,
		regular:   regular,
		sessions:  sessions,
		bus:       bus,
		ratings:   ratings,
		connAlive: connAlive,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		queue:     make(map[string]*matchmaking.Entry),
	}
}

// JoinTournament auto-creates the active tournament if none exists,
// rejects a full tournament, adds userID to the participant set, assigns
// a random (variant, subvariant), enters the tournament queue, then runs
// the tournament matcher.
func (o *Overlay) JoinTournament(ctx context.Context, userID, connID string, now int64) (*matchmaking.MatchResult, error) {
	o.mu.Lock()
	if o.current == nil || o.current.Status == StatusFinished {
		o.nextID++
		o.current = &Tournament{
			ID:           fmtTournamentID(o.nextID),
			Status:       StatusOpen,
			Capacity:     o.capacity,
			StartedAt:    now,
			Participants: map[string]bool{},
		}
	}
	t := o.current
	if len(t.Participants) >= t.Capacity && !t.Participants[userID] {
		o.mu.Unlock()
		return nil, coreerr.Input(coreerr.CodeInvalidInput, "tournament is full")
	}
	t.Participants[userID] = true

	pick := variantPool[o.rng.Intn(len(variantPool))]
	rank, ok := o.ratings(userID, pick.Variant, pick.Subvariant)
	if !ok {
		rank = 1000
	}
	entry := &matchmaking.Entry{
		UserID:        userID,
		ConnID:        connID,
		Rank:          rank,
		Variant:       pick.Variant,
		Subvariant:    pick.Subvariant,
		JoinTimestamp: now,
		Status:        matchmaking.StatusWaiting,
	}
	o.queue[userID] = entry
	o.mu.Unlock()

	return o.tryMatch(ctx, userID)
}

// tryMatch implements the tournament matcher: first search the tournament
// queue for an identical-variant waiter, highest score first, then fall
// back to the regular queue for a cross-queue match.
func (o *Overlay) tryMatch(ctx context.Context, userID string) (*matchmaking.MatchResult, error) {
	o.mu.Lock()
	caller, ok := o.queue[userID]
	if !ok || caller.Status != matchmaking.StatusWaiting {
		o.mu.Unlock()
		return nil, nil
	}
	if !o.connAlive(caller.ConnID) {
		delete(o.queue, userID)
		o.mu.Unlock()
		return nil, nil
	}

	var best *matchmaking.Entry
	var bestScore float64
	for otherID, e := range o.queue {
		if otherID == userID || e.Status != matchmaking.StatusWaiting {
			continue
		}
		if e.Variant != caller.Variant || e.Subvariant != caller.Subvariant {
			continue
		}
		if !o.connAlive(e.ConnID) {
			delete(o.queue, otherID)
			continue
		}
		s := float64(e.Rank) + float64(e.JoinTimestamp)/1e13
		if best == nil || s > bestScore {
			best, bestScore = e, s
		}
	}
	o.mu.Unlock()

	if best != nil {
		return o.initiateMatch(ctx, caller, best, false)
	}

	return o.crossQueueMatch(ctx, caller)
}

// crossQueueMatch looks in the regular matchmaking queue for a waiter on
// the tournament entry's variant/subvariant.
func (o *Overlay) crossQueueMatch(ctx context.Context, caller *matchmaking.Entry) (*matchmaking.MatchResult, error) {
	candidates := o.regular.WaitingEntriesFor(caller.Variant, caller.Subvariant)
	if len(candidates) == 0 {
		return nil, nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.JoinTimestamp < best.JoinTimestamp {
			best = c
		}
	}
	return o.initiateMatch(ctx, caller, best, true)
}

// initiateMatch removes both sides from their respective queues, marks
// them matched, applies cooldowns to both through the regular queue (the
// single source of cooldown state), resolves ratings, creates the
// session, and tags each side's source independently so metadata can
// distinguish matchmaking from tournament per user id.
func (o *Overlay) initiateMatch(ctx context.Context, tournamentSide, otherSide *matchmaking.Entry, crossQueue bool) (*matchmaking.MatchResult, error) {
	o.mu.Lock()
	delete(o.queue, tournamentSide.UserID)
	if !crossQueue {
		delete(o.queue, otherSide.UserID)
	}
	o.mu.Unlock()

	now := time.Now().UnixMilli()
	if crossQueue {
		o.regular.LeaveQueue(otherSide.UserID, now)
	}
	o.regular.SetCooldown(tournamentSide.UserID, now)
	o.regular.SetCooldown(otherSide.UserID, now)

	white, black := tournamentSide, otherSide
	whiteSource, blackSource := string(session.SourceTournament), string(session.SourceMatchmaking)
	if !crossQueue {
		blackSource = string(session.SourceTournament)
	}
	if o.rng.Intn(2) == 1 {
		white, black = black, white
		whiteSource, blackSource = blackSource, whiteSource
	}

	sess, err := o.sessions.CreateSession(ctx, session.CreateParams{
		Variant:     white.Variant,
		Subvariant:  white.Subvariant,
		White:       session.PlayerSummary{UserID: white.UserID, Rating: white.Rank},
		Black:       session.PlayerSummary{UserID: black.UserID, Rating: black.Rank},
		WhiteSource: session.Source(whiteSource),
		BlackSource: session.Source(blackSource),
		Rated:       true,
		RNG:         o.rng,
	})
	if err != nil {
		return nil, err
	}

	o.bus.Publish(eventbus.Event{Kind: "tournament.matched", Payload: map[string]any{
		"sessionId": sess.ID,
		"userIds":   []string{tournamentSide.UserID, otherSide.UserID},
	}})
	return &matchmaking.MatchResult{SessionID: sess.ID, Session: sess}, nil
}

// HandleDisconnect evicts userID from the tournament queue and, if they
// were a tournament participant, decrements the participant count.
func (o *Overlay) HandleDisconnect(userID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.queue, userID)
	if o.current != nil {
		delete(o.current.Participants, userID)
	}
}

func fmtTournamentID(n int) string {
	return "t-" + strconv.Itoa(n)
}
