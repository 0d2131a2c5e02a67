// Package variant implements the per-variant authoritative move engines:
// Classic (standard/blitz/bullet), Crazyhouse-standard, Crazyhouse-with-timer,
// Decay and SixPointer. Every engine shares the same thirteen-step pipeline
// (see doc.go) and is built on top of internal/chessadapter for plain chess
// legality; variant-specific mechanics (pockets, decay timers, point scoring)
// live entirely in this package.
package variant

import (
	"corechess/internal/chessadapter"
)

type Color = chessadapter.Color

const (
	White = chessadapter.White
	Black = chessadapter.Black
)

type PieceKind = chessadapter.PieceKind

// Move is the request shape callers submit to an engine: either a normal
// from/to (with optional promotion) or, for Crazyhouse variants, a drop.
type Move struct {
	From      string
	To        string
	Promotion PieceKind
	Drop      bool
	DropPiece PieceKind
}

// AppliedMove is what actually happened, enriched with capture info, ready
// to append to MoveHistory.
type AppliedMove struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Promotion PieceKind `json:"promotion,omitempty"`
	Drop      bool      `json:"drop,omitempty"`
	DropPiece PieceKind `json:"dropPiece,omitempty"`
	Captured  PieceKind `json:"captured,omitempty"`
	SAN       string    `json:"san"`
	Color     Color     `json:"color"`
	Timestamp int64     `json:"timestamp"`
}

type CapturedPieces struct {
	White []PieceKind `json:"white"`
	Black []PieceKind `json:"black"`
}

// RepetitionMap keys are FEN (Crazyhouse variants fold pocket contents into
// the key - see RepetitionKey).
type RepetitionMap map[string]int

// PocketPieces is the Crazyhouse-standard pocket: an unordered bag per
// color, no per-piece timers.
type PocketPieces struct {
	White []PieceKind `json:"white"`
	Black []PieceKind `json:"black"`
}

// PocketEntry is one piece sitting in a Crazyhouse-with-timer pocket queue.
type PocketEntry struct {
	Type       PieceKind `json:"type"`
	ID         string    `json:"id"`
	CapturedAt int64     `json:"capturedAt"`
}

// DropTimers maps a pocket entry id to its absolute expiry timestamp (ms).
// Only the head of each color's queue ever has an entry here.
type DropTimers map[string]int64

type DecaySide struct {
	QueenActive         bool   `json:"active"`
	QueenFrozen         bool   `json:"frozen"`
	QueenTimeRemaining  int64  `json:"timeRemaining"`
	QueenMoveCount      int    `json:"moveCount"`
	QueenLastUpdate     int64  `json:"lastUpdateTimestamp"`
	MajorActive         bool   `json:"majorActive"`
	MajorFrozen         bool   `json:"majorFrozen"`
	MajorTimeRemaining  int64  `json:"majorTimeRemaining"`
	MajorMoveCount      int    `json:"majorMoveCount"`
	MajorLastUpdate     int64  `json:"majorLastUpdateTimestamp"`
	MajorPieceType      string `json:"majorPieceType,omitempty"`
	MajorPieceSquare    string `json:"majorPieceSquare,omitempty"`
}

type DecayTimers struct {
	White DecaySide `json:"white"`
	Black DecaySide `json:"black"`
}

// FrozenPieces lists, per color, the tokens (square strings, or the literal
// "queen") that may no longer move.
type FrozenPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

type SixPointerState struct {
	MovesPlayedWhite int `json:"movesPlayedWhite"`
	MovesPlayedBlack int `json:"movesPlayedBlack"`
	MaxMoves         int `json:"maxMoves"`
	PointsWhite      int `json:"pointsWhite"`
	PointsBlack      int `json:"pointsBlack"`
}

// Board is the single variant-tagged game-state struct every engine reads
// and writes. Extension fields for variants other than the active one are
// simply left at their zero value.
type Board struct {
	Variant    string `json:"variant"`
	Subvariant string `json:"subvariant,omitempty"`

	FEN                string        `json:"fen"`
	ActiveColor        Color         `json:"activeColor"`
	WhiteTime          int64         `json:"whiteTime"`
	BlackTime          int64         `json:"blackTime"`
	Increment          int64         `json:"increment"`
	TurnStartTimestamp int64         `json:"turnStartTimestamp"`
	MoveHistory        []AppliedMove `json:"moveHistory"`
	PositionHistory    []string      `json:"positionHistory"`
	GameStarted        bool          `json:"gameStarted"`
	GameEnded          bool          `json:"gameEnded"`
	EndReason          string        `json:"endReason,omitempty"`
	WinnerColor        Color         `json:"winnerColor,omitempty"`
	CapturedPieces     CapturedPieces `json:"capturedPieces"`
	RepetitionMap      RepetitionMap  `json:"repetitionMap"`

	// Crazyhouse-standard
	PocketPieces PocketPieces `json:"pocketPieces,omitempty"`

	// PromotedSquares tracks which occupied squares hold a piece that got
	// there via pawn promotion, so that capturing it enqueues a pawn (not
	// the promoted piece type) into the capturer's pocket. Shared by both
	// Crazyhouse variants.
	PromotedSquares []string `json:"promotedSquares,omitempty"`

	// Crazyhouse-with-timer
	PocketQueueWhite []PocketEntry `json:"pocketQueueWhite,omitempty"`
	PocketQueueBlack []PocketEntry `json:"pocketQueueBlack,omitempty"`
	DropTimers       DropTimers    `json:"dropTimers,omitempty"`

	// Decay
	DecayActive  bool         `json:"decayActive,omitempty"`
	DecayTimers  DecayTimers  `json:"decayTimers,omitempty"`
	FrozenPieces FrozenPieces `json:"frozenPieces,omitempty"`

	// SixPointer
	SixPointer SixPointerState `json:"sixPointer,omitempty"`
}

// Clone performs a deep copy so engines can mutate freely and only publish
// the copy on success, leaving the caller's board observationally unchanged
// on any reject.
func (b *Board) Clone() *Board {
	clone := *b
	clone.MoveHistory = append([]AppliedMove(nil), b.MoveHistory...)
	clone.PositionHistory = append([]string(nil), b.PositionHistory...)
	clone.CapturedPieces.White = append([]PieceKind(nil), b.CapturedPieces.White...)
	clone.CapturedPieces.Black = append([]PieceKind(nil), b.CapturedPieces.Black...)

	clone.RepetitionMap = make(RepetitionMap, len(b.RepetitionMap))
	for k, v := range b.RepetitionMap {
		clone.RepetitionMap[k] = v
	}

	clone.PocketPieces.White = append([]PieceKind(nil), b.PocketPieces.White...)
	clone.PocketPieces.Black = append([]PieceKind(nil), b.PocketPieces.Black...)

	clone.PocketQueueWhite = append([]PocketEntry(nil), b.PocketQueueWhite...)
	clone.PocketQueueBlack = append([]PocketEntry(nil), b.PocketQueueBlack...)
	clone.DropTimers = make(DropTimers, len(b.DropTimers))
	for k, v := range b.DropTimers {
		clone.DropTimers[k] = v
	}

	clone.FrozenPieces.White = append([]string(nil), b.FrozenPieces.White...)
	clone.FrozenPieces.Black = append([]string(nil), b.FrozenPieces.Black...)

	clone.PromotedSquares = append([]string(nil), b.PromotedSquares...)

	return &clone
}

// Result is what every engine call returns on the success path (Valid=true,
// possibly GameEnded=true). Rejects - both non-fatal warnings and
// infrastructure failures - are returned as an error instead (see
// internal/coreerr), never as Result{Valid:false}, so callers can't
// forget to check Valid.
type Result struct {
	Valid       bool
	Move        AppliedMove
	State       *Board
	GameEnded   bool
	EndReason   string
	WinnerColor Color

	// Warning is set on an otherwise-valid, state-mutating result that the
	// caller should still surface to the client as a non-fatal advisory -
	// currently only SixPointer's per-move timeout-and-pass uses this.
	Warning string
}

// Engine is the contract every variant implements.
type Engine interface {
	// ValidateAndApply runs the full pipeline for one submitted move.
	ValidateAndApply(board *Board, move Move, playerColor Color, now int64) (*Result, error)

	// CheckTimeout runs only the clock half of the pipeline - the pre-move
	// time deduction and timeout terminal check - without an accompanying
	// move. It is how a periodic timer tick (or a stale makeMove call that
	// never arrives) discovers a flag fall.
	CheckTimeout(board *Board, now int64) (*Result, error)
}
