package variant

import (
	"time"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
)

// ClassicSubvariant fixes the base time and increment for the three Classic
// time controls.
type ClassicSubvariant string

const (
	Standard ClassicSubvariant = "standard"
	Blitz    ClassicSubvariant = "blitz"
	Bullet   ClassicSubvariant = "bullet"
)

func ClassicClock(sub ClassicSubvariant) (base, increment int64) {
	switch sub {
	case Blitz:
		return 3 * 60 * 1000, 2 * 1000
	case Bullet:
		return 60 * 1000, 1 * 1000
	default:
		return 10 * 60 * 1000, 0
	}
}

// ClassicEngine is plain chess: the whole rules layer is delegated to
// chessadapter, this engine only owns the clock and terminal bookkeeping.
type ClassicEngine struct{}

func NewClassicEngine() *ClassicEngine { return &ClassicEngine{} }

func (e *ClassicEngine) ValidateAndApply(board *Board, move Move, playerColor Color, now int64) (*Result, error) {
	now = normalizeNow(now, time.Now().UnixMilli())

	pos, err := guardActive(board, playerColor)
	if err != nil {
		return nil, err
	}

	clone := board.Clone()
	mover := playerColor
	if remaining := deductElapsed(clone, mover, now); remaining <= 0 {
		finishTerminal(clone, ReasonTimeout, mover.Opponent())
		return &Result{Valid: true, State: clone, GameEnded: true, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
	}

	applied, err := pos.Apply(chessadapter.Move{From: move.From, To: move.To, Promotion: move.Promotion})
	if err != nil {
		return nil, coreerr.Warning(coreerr.CodeIllegalMove, "move is not legal in the current position")
	}

	am := AppliedMove{From: applied.From, To: applied.To, Promotion: applied.Promotion, SAN: applied.SAN, Color: mover, Timestamp: now}
	if applied.HasCapture {
		am.Captured = applied.Captured
		addCapture(clone, mover, applied.Captured)
	}

	repKey := RepetitionKey(pos.FEN(), nil, nil)
	recordMove(clone, am, pos.FEN(), repKey, now)
	applyIncrement(clone, mover)

	if ended, reason, winner := plainChessTerminal(pos, clone, repKey); ended {
		finishTerminal(clone, reason, winner)
	}

	return &Result{Valid: true, Move: am, State: clone, GameEnded: clone.GameEnded, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
}

func (e *ClassicEngine) CheckTimeout(board *Board, now int64) (*Result, error) {
	if board.GameEnded {
		return nil, coreerr.Session(coreerr.CodeGameEnded, "game has already ended")
	}
	return checkTimeoutGeneric(board, normalizeNow(now, time.Now().UnixMilli())), nil
}

func addCapture(board *Board, capturer Color, piece PieceKind) {
	if capturer == White {
		board.CapturedPieces.White = append(board.CapturedPieces.White, piece)
	} else {
		board.CapturedPieces.Black = append(board.CapturedPieces.Black, piece)
	}
}
