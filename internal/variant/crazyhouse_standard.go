package variant

import (
	"time"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
)

// CrazyhouseStandardEngine: captures go into an unordered pocket bag per
// color, no per-piece drop timers. FEN and pocket are kept strictly in
// sync on every call (resolved Open Question, see DESIGN.md) since
// notnil/chess has no native drop notation.
type CrazyhouseStandardEngine struct{}

func NewCrazyhouseStandardEngine() *CrazyhouseStandardEngine { return &CrazyhouseStandardEngine{} }

func (e *CrazyhouseStandardEngine) ValidateAndApply(board *Board, move Move, playerColor Color, now int64) (*Result, error) {
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

	var am AppliedMove
	var finalPos *chessadapter.Position

	if move.Drop {
		if !removeFromPocketBag(clone, mover, move.DropPiece) {
			return nil, coreerr.Warning(coreerr.CodePieceNotInPocket, "piece is not in your pocket")
		}
		if err := isValidDropSquare(pos, move.DropPiece, move.To); err != nil {
			addToPocketBag(clone, mover, move.DropPiece) // undo the speculative removal
			return nil, dropSquareError(err)
		}
		placed, err := pos.Place(move.DropPiece, mover, move.To)
		if err != nil {
			addToPocketBag(clone, mover, move.DropPiece)
			return nil, coreerr.Warning(coreerr.CodeSquareOccupied, "square is occupied")
		}
		if placed.InCheck() {
			addToPocketBag(clone, mover, move.DropPiece)
			return nil, coreerr.Warning(coreerr.CodeIllegalMove, "drop would leave your own king in check")
		}
		flippedFEN, err := chessadapter.FlipTurn(placed.FEN())
		if err != nil {
			addToPocketBag(clone, mover, move.DropPiece)
			return nil, coreerr.Infra(coreerr.CodeInternalError, err)
		}
		finalPos, err = chessadapter.FromFEN(flippedFEN)
		if err != nil {
			addToPocketBag(clone, mover, move.DropPiece)
			return nil, coreerr.Infra(coreerr.CodeInternalError, err)
		}
		am = AppliedMove{To: move.To, Drop: true, DropPiece: move.DropPiece, Color: mover, Timestamp: now, SAN: "@" + move.To}
	} else {
		applied, err := pos.Apply(chessadapter.Move{From: move.From, To: move.To, Promotion: move.Promotion})
		if err != nil {
			return nil, coreerr.Warning(coreerr.CodeIllegalMove, "move is not legal in the current position")
		}
		var pocketed PieceKind
		if applied.HasCapture {
			pocketed = resolveCapturedKind(clone, applied)
			addToPocketBag(clone, mover, pocketed)
		}
		updatePromotedSquares(clone, applied)
		finalPos = pos
		am = AppliedMove{From: applied.From, To: applied.To, Promotion: applied.Promotion, SAN: applied.SAN, Color: mover, Timestamp: now}
		if applied.HasCapture {
			am.Captured = pocketed
		}
	}

	repKey := RepetitionKey(finalPos.FEN(), clone.PocketPieces.White, clone.PocketPieces.Black)
	recordMove(clone, am, finalPos.FEN(), repKey, now)
	applyIncrement(clone, mover)

	if ended, reason, winner := crazyhouseTerminal(finalPos, clone, repKey, len(pocketBagOf(clone, clone.ActiveColor)) > 0); ended {
		finishTerminal(clone, reason, winner)
	}

	return &Result{Valid: true, Move: am, State: clone, GameEnded: clone.GameEnded, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
}

func (e *CrazyhouseStandardEngine) CheckTimeout(board *Board, now int64) (*Result, error) {
	if board.GameEnded {
		return nil, coreerr.Session(coreerr.CodeGameEnded, "game has already ended")
	}
	return checkTimeoutGeneric(board, normalizeNow(now, time.Now().UnixMilli())), nil
}

func dropSquareError(err error) error {
	switch err {
	case errSquareOccupied:
		return coreerr.Warning(coreerr.CodeSquareOccupied, "square is occupied")
	case errInvalidPawnDrop:
		return coreerr.Warning(coreerr.CodeInvalidPawnDrop, "pawns may not be dropped on the first or last rank")
	default:
		return coreerr.Infra(coreerr.CodeInternalError, err)
	}
}
