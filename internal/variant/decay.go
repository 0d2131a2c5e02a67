package variant

import (
	"time"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
)

// DecayEngine: a side's queen carries a countdown that only ticks while it
// is the only thing keeping that side mobile-enough; once it expires the
// queen freezes, and a second countdown starts tracking whichever major
// piece (rook/knight/bishop) moves next for that side.
type DecayEngine struct{}

func NewDecayEngine() *DecayEngine { return &DecayEngine{} }

func decaySidePtr(board *Board, color Color) *DecaySide {
	if color == White {
		return &board.DecayTimers.White
	}
	return &board.DecayTimers.Black
}

func frozenListPtr(board *Board, color Color) *[]string {
	if color == White {
		return &board.FrozenPieces.White
	}
	return &board.FrozenPieces.Black
}

// decayTick implements "on any board event, for each side with an active,
// non-frozen timer, subtract now-lastUpdate from timeRemaining" - run for
// both sides on every call, independent of whose turn it is.
func decayTick(board *Board, now int64) {
	for _, color := range [2]Color{White, Black} {
		side := decaySidePtr(board, color)
		if side.QueenActive && !side.QueenFrozen {
			side.QueenTimeRemaining -= now - side.QueenLastUpdate
			side.QueenLastUpdate = now
			if side.QueenTimeRemaining <= 0 {
				side.QueenFrozen = true
				side.QueenActive = false
				appendFrozen(frozenListPtr(board, color), "queen")
			}
		}
		if side.MajorActive && !side.MajorFrozen {
			side.MajorTimeRemaining -= now - side.MajorLastUpdate
			side.MajorLastUpdate = now
			if side.MajorTimeRemaining <= 0 {
				side.MajorFrozen = true
				side.MajorActive = false
				appendFrozen(frozenListPtr(board, color), side.MajorPieceSquare)
			}
		}
	}
}

func appendFrozen(list *[]string, token string) {
	for _, existing := range *list {
		if existing == token {
			return
		}
	}
	*list = append(*list, token)
}

func isFrozenToken(list []string, token string) bool {
	for _, existing := range list {
		if existing == token {
			return true
		}
	}
	return false
}

func (e *DecayEngine) ValidateAndApply(board *Board, move Move, playerColor Color, now int64) (*Result, error) {
	now = normalizeNow(now, time.Now().UnixMilli())

	pos, err := guardActive(board, playerColor)
	if err != nil {
		return nil, err
	}

	clone := board.Clone()
	decayTick(clone, now)

	mover := playerColor
	if remaining := deductElapsed(clone, mover, now); remaining <= 0 {
		finishTerminal(clone, ReasonTimeout, mover.Opponent())
		return &Result{Valid: true, State: clone, GameEnded: true, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
	}

	movedKind, _, ok := pos.PieceAt(move.From)
	if !ok {
		return nil, coreerr.Warning(coreerr.CodeIllegalMove, "no piece on the origin square")
	}

	side := decaySidePtr(clone, mover)
	frozen := frozenListPtr(clone, mover)
	if movedKind == chessadapter.Queen && side.QueenFrozen {
		return nil, coreerr.Warning(coreerr.CodePieceFrozen, "this queen is frozen")
	}
	if isFrozenToken(*frozen, move.From) {
		return nil, coreerr.Warning(coreerr.CodePieceFrozen, "this piece is frozen")
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

	applyDecayPostlude(clone, mover, movedKind, move, now)

	repKey := RepetitionKey(pos.FEN(), nil, nil)
	recordMove(clone, am, pos.FEN(), repKey, now)
	applyIncrement(clone, mover)
	clone.DecayActive = clone.DecayActive || movedKind == chessadapter.Queen

	if ended, reason, winner := plainChessTerminal(pos, clone, repKey); ended {
		finishTerminal(clone, reason, winner)
	}

	return &Result{Valid: true, Move: am, State: clone, GameEnded: clone.GameEnded, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
}

func applyDecayPostlude(board *Board, mover Color, movedKind chessadapter.PieceKind, move Move, now int64) {
	side := decaySidePtr(board, mover)

	if movedKind == chessadapter.Queen {
		switch {
		case side.QueenFrozen:
			// unreachable - preflight already rejected this move.
		case side.QueenActive:
			side.QueenMoveCount++
			side.QueenTimeRemaining += 2000
		default:
			side.QueenActive = true
			side.QueenMoveCount = 1
			side.QueenTimeRemaining = 25000
			side.QueenLastUpdate = now
		}
		board.DecayActive = true
		return
	}

	if !isMajorPiece(movedKind) || !side.QueenFrozen {
		return
	}

	switch {
	case side.MajorActive && move.From == side.MajorPieceSquare:
		side.MajorMoveCount++
		side.MajorTimeRemaining += 2000
		side.MajorPieceSquare = move.To
	case !side.MajorActive && !side.MajorFrozen:
		side.MajorActive = true
		side.MajorMoveCount = 1
		side.MajorTimeRemaining = 20000
		side.MajorLastUpdate = now
		side.MajorPieceType = string(movedKind)
		side.MajorPieceSquare = move.To
	}
}

func isMajorPiece(k chessadapter.PieceKind) bool {
	return k == chessadapter.Rook || k == chessadapter.Knight || k == chessadapter.Bishop
}

func (e *DecayEngine) CheckTimeout(board *Board, now int64) (*Result, error) {
	if board.GameEnded {
		return nil, coreerr.Session(coreerr.CodeGameEnded, "game has already ended")
	}
	now = normalizeNow(now, time.Now().UnixMilli())
	clone := board.Clone()
	decayTick(clone, now)
	return checkTimeoutGeneric(clone, now), nil
}
