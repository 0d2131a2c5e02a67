// Package session owns game session lifecycle: creating a session with
// color assignment and an initial board, the user-id to active-session
// index, idempotent activity refresh, and finalizing a session through to
// the durable summary sink. The store is in-memory and TTL-aware; nothing
// above this package persists a live session anywhere else.
package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"corechess/internal/coreerr"
	"corechess/internal/db"
	"corechess/internal/eventbus"
	"corechess/internal/variant"
)

// PlayerSummary is the player-facing identity carried on a Session; rating
// and identity themselves live in the (out-of-core) user/auth store this
// package only ever receives a snapshot of.
type PlayerSummary struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Title     string `json:"title,omitempty"`
}

type Players struct {
	White PlayerSummary `json:"white"`
	Black PlayerSummary `json:"black"`
}

// Source records, per user, which surface put them into this session -
// used only to decide whether a finished session's outcome should feed a
// tournament standings update (out of core) or not.
type Source string

const (
	SourceMatchmaking Source = "matchmaking"
	SourceTournament   Source = "tournament"
)

type Metadata struct {
	WhiteSource     Source                  `json:"whiteSource"`
	BlackSource     Source                  `json:"blackSource"`
	Rated           bool                    `json:"rated"`
	AllowSpectators bool                    `json:"allowSpectators"`
	DrawOffers      map[variant.Color]bool `json:"drawOffers,omitempty"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Session is the full persisted shape of one game. Board carries every
// variant-specific field; Status/EndedAt/Result* are finalized once, by
// EndSession, and never touched again.
type Session struct {
	ID         string        `json:"id"`
	Variant    string        `json:"variant"`
	Subvariant string        `json:"subvariant,omitempty"`
	Players    Players       `json:"players"`
	Board      *variant.Board `json:"board"`
	Status     Status        `json:"status"`
	CreatedAt  int64         `json:"createdAt"`
	LastActivity int64       `json:"lastActivity"`
	Metadata   Metadata      `json:"metadata"`
	EndedAt    int64         `json:"endedAt,omitempty"`
}

// MoveCount mirrors the length of Board.MoveHistory for callers that only
// need a count, not the full history.
func (s *Session) MoveCount() int {
	if s.Board == nil {
		return 0
	}
	return len(s.Board.MoveHistory)
}

// CreateParams is everything CreateSession needs besides the random color
// draw and id minting.
type CreateParams struct {
	Variant       string
	Subvariant    string
	White, Black  PlayerSummary
	WhiteSource   Source
	BlackSource   Source
	Rated         bool
	Fischer960    bool
	RNG           *rand.Rand
}

type entry struct {
	mu      sync.Mutex
	session Session
}

// Store is the in-memory, TTL-aware session store. One striped mutex per
// session id (created on demand) serializes concurrent moves against the
// same session without a single global lock, mirroring how engine.Runner
// and configstore.Store each guard one shared resource with their own
// sync.RWMutex; this store generalizes that to N resources by keying the
// stripe on session id.
type Store struct {
	cfgTTL time.Duration

	mu            sync.RWMutex
	sessions      map[string]*entry
	userToSession map[string]string // user id -> session id, active only

	bus *eventbus.Bus
	db  *db.Store
}

func NewStore(ttl time.Duration, bus *eventbus.Bus, durable *db.Store) *Store {
	return &Store{
		cfgTTL:        ttl,
		sessions:      make(map[string]*entry),
		userToSession: make(map[string]string),
		bus:           bus,
		db:            durable,
	}
}

// CreateSession mints a new session id, assigns colors uniformly at
// random, builds the variant's initial board, and atomically claims both
// user ids in the active-user index. Returns a session-already-active
// error if either user already owns an active session - a user may own at
// most one session at a time.
func (s *Store) CreateSession(ctx context.Context, params CreateParams) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sid, ok := s.userToSession[params.White.UserID]; ok {
		return nil, coreerr.Session(coreerr.CodeInvalidPlayer, "user "+params.White.UserID+" already has an active session "+sid)
	}
	if sid, ok := s.userToSession[params.Black.UserID]; ok {
		return nil, coreerr.Session(coreerr.CodeInvalidPlayer, "user "+params.Black.UserID+" already has an active session "+sid)
	}
	if params.White.UserID == params.Black.UserID {
		return nil, coreerr.Input(coreerr.CodeInvalidPlayer, "a session cannot match a player against themself")
	}

	rng := params.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	board, err := variant.InitialBoard(params.Variant, params.Subvariant, variant.InitialBoardOptions{
		Fischer960: params.Fischer960,
		RNG:        rng,
	})
	if err != nil {
		return nil, err
	}

	white, black := params.White, params.Black
	whiteSource, blackSource := params.WhiteSource, params.BlackSource
	if rng.Intn(2) == 1 {
		white, black = black, white
		whiteSource, blackSource = blackSource, whiteSource
	}

	now := time.Now().UnixMilli()
	board.TurnStartTimestamp = now

	sess := Session{
		ID:           uuid.NewString(),
		Variant:      params.Variant,
		Subvariant:   params.Subvariant,
		Players:      Players{White: white, Black: black},
		Board:        board,
		Status:       StatusActive,
		CreatedAt:    now,
		LastActivity: now,
		Metadata: Metadata{
			WhiteSource:     whiteSource,
			BlackSource:     blackSource,
			Rated:           params.Rated,
			AllowSpectators: true,
			DrawOffers:      map[variant.Color]bool{},
		},
	}

	s.sessions[sess.ID] = &entry{session: sess}
	s.userToSession[white.UserID] = sess.ID
	s.userToSession[black.UserID] = sess.ID

	s.publish("session.created", sess)

	out := sess
	return &out, nil
}

// GetSession returns a snapshot of the session, or GAME_NOT_FOUND.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	e := s.lookup(sessionID)
	if e == nil {
		return nil, coreerr.Session(coreerr.CodeGameNotFound, "session not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.session
	return &out, nil
}

// GetUserActiveSession resolves a user id to their current active session,
// cleaning up an orphaned index entry (pointing at a session that has
// since been finished and evicted) along the way.
func (s *Store) GetUserActiveSession(ctx context.Context, userID string) (*Session, error) {
	s.mu.RLock()
	sessionID, ok := s.userToSession[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, coreerr.Session(coreerr.CodeGameNotFound, "user has no active session")
	}

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		s.mu.Lock()
		if s.userToSession[userID] == sessionID {
			delete(s.userToSession, userID)
		}
		s.mu.Unlock()
		return nil, coreerr.Session(coreerr.CodeGameNotFound, "user has no active session")
	}
	return sess, nil
}

// UpdateSession replaces the stored board/status for sessionID via mutate,
// which receives the live session (already under its per-session lock) and
// returns the new value. It also refreshes LastActivity. Used by the game
// controller after every successful move.
func (s *Store) UpdateSession(ctx context.Context, sessionID string, mutate func(Session) (Session, error)) (*Session, error) {
	e := s.lookup(sessionID)
	if e == nil {
		return nil, coreerr.Session(coreerr.CodeGameNotFound, "session not found")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	updated, err := mutate(e.session)
	if err != nil {
		return nil, err
	}
	updated.LastActivity = time.Now().UnixMilli()
	e.session = updated

	out := e.session
	s.publish("session.updated", out)
	return &out, nil
}

// EndSession marks sessionID finished, removes it from the active-user
// index, writes a durable summary row, and evicts the in-memory entry.
// A second call that races the first on the same live entry returns the
// final snapshot without writing a second summary row (session_id is
// unique). Once the entry has been evicted, a later call by id returns
// GAME_NOT_FOUND.
func (s *Store) EndSession(ctx context.Context, sessionID, resultReason string, winner variant.Color) (*Session, error) {
	e := s.lookup(sessionID)
	if e == nil {
		return nil, coreerr.Session(coreerr.CodeGameNotFound, "session not found")
	}

	e.mu.Lock()
	already := e.session.Status == StatusFinished
	if !already {
		e.session.Status = StatusFinished
		e.session.EndedAt = time.Now().UnixMilli()
		if e.session.Board != nil {
			e.session.Board.GameEnded = true
			if e.session.Board.EndReason == "" {
				e.session.Board.EndReason = resultReason
			}
			if e.session.Board.WinnerColor == "" {
				e.session.Board.WinnerColor = winner
			}
		}
	}
	out := e.session
	e.mu.Unlock()

	s.mu.Lock()
	if s.userToSession[out.Players.White.UserID] == sessionID {
		delete(s.userToSession, out.Players.White.UserID)
	}
	if s.userToSession[out.Players.Black.UserID] == sessionID {
		delete(s.userToSession, out.Players.Black.UserID)
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !already && s.db != nil {
		result, reason, winnerColor := "draw", resultReason, string(winner)
		if out.Board != nil {
			reason = out.Board.EndReason
			winnerColor = string(out.Board.WinnerColor)
		}
		switch winnerColor {
		case string(variant.White):
			result = "white"
		case string(variant.Black):
			result = "black"
		}
		row := db.FinishedSession{
			SessionID:    out.ID,
			Variant:      out.Variant,
			Subvariant:   out.Subvariant,
			WhiteUserID:  out.Players.White.UserID,
			BlackUserID:  out.Players.Black.UserID,
			Result:       result,
			ResultReason: reason,
			WinnerColor:  winnerColor,
			MoveCount:    out.MoveCount(),
		}
		if err := s.db.InsertFinishedSession(ctx, row); err != nil {
			return &out, coreerr.Infra(coreerr.CodeDBError, err)
		}
	}

	s.publish("session.ended", out)
	return &out, nil
}

func (s *Store) lookup(sessionID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

func (s *Store) publish(kind string, sess Session) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Kind: kind, Payload: sess})
}

// SweepExpired evicts sessions whose LastActivity predates the TTL,
// finalizing each one as a timeout before removal. Intended to run as a
// periodic background goroutine (see internal/app's wiring), cancellable
// via ctx.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) []string {
	cutoff := now.Add(-s.cfgTTL).UnixMilli()

	s.mu.RLock()
	var stale []string
	for id, e := range s.sessions {
		e.mu.Lock()
		if e.session.Status == StatusActive && e.session.LastActivity < cutoff {
			stale = append(stale, id)
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, id := range stale {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			continue
		}
		winner := sess.Board.ActiveColor.Opponent()
		_, _ = s.EndSession(ctx, id, variant.ReasonTimeout, winner)
	}
	return stale
}

// RunIdleSweep runs SweepExpired on interval until ctx is canceled,
// following the same context-driven background-job shape the rest of the
// ambient stack uses for graceful shutdown.
func RunIdleSweep(ctx context.Context, store *Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			store.SweepExpired(ctx, t)
		}
	}
}
