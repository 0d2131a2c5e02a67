package variant

import (
	"fmt"
	"time"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
)

const dropTimerDuration = 10 * 1000 // ms

// CrazyhouseTimerEngine: the pocket is a strict FIFO queue per color with
// exactly one active drop timer - the head's. A piece that isn't the head
// cannot be dropped at all ("sequential drop only"); a head whose timer
// expires is shifted out and the next entry's timer starts.
type CrazyhouseTimerEngine struct{}

func NewCrazyhouseTimerEngine() *CrazyhouseTimerEngine { return &CrazyhouseTimerEngine{} }

func queuePtr(board *Board, color Color) *[]PocketEntry {
	if color == White {
		return &board.PocketQueueWhite
	}
	return &board.PocketQueueBlack
}

// shiftExpiredHeads implements "on expiration (checked during any pre-move
// update), shift head and start next head's timer" - run for both colors
// regardless of whose turn it is.
func shiftExpiredHeads(board *Board, now int64) {
	for _, color := range [2]Color{White, Black} {
		queue := queuePtr(board, color)
		for len(*queue) > 0 {
			head := (*queue)[0]
			expiry, hasTimer := board.DropTimers[head.ID]
			if !hasTimer || now < expiry {
				break
			}
			delete(board.DropTimers, head.ID)
			*queue = (*queue)[1:]
			if len(*queue) > 0 {
				board.DropTimers[(*queue)[0].ID] = now + dropTimerDuration
			}
		}
	}
}

func pushPocketEntry(board *Board, color Color, piece PieceKind, now int64) {
	queue := queuePtr(board, color)
	wasEmpty := len(*queue) == 0
	entry := PocketEntry{Type: piece, ID: fmt.Sprintf("%s_%d", piece, now), CapturedAt: now}
	*queue = append(*queue, entry)
	if wasEmpty {
		board.DropTimers[entry.ID] = now + dropTimerDuration
	}
}

func (e *CrazyhouseTimerEngine) ValidateAndApply(board *Board, move Move, playerColor Color, now int64) (*Result, error) {
	now = normalizeNow(now, time.Now().UnixMilli())

	pos, err := guardActive(board, playerColor)
	if err != nil {
		return nil, err
	}

	clone := board.Clone()
	if clone.DropTimers == nil {
		clone.DropTimers = DropTimers{}
	}

	mover := playerColor

	// Capture whether the mover's own pocket head has already expired
	// before the preflight sweep below evicts it, so the Drop branch can
	// still tell "my drop just expired" apart from "pocket was already
	// empty" once the sweep has run.
	dropRequestExpired := false
	if move.Drop {
		if queue := queuePtr(clone, mover); len(*queue) > 0 {
			head := (*queue)[0]
			if expiry, ok := clone.DropTimers[head.ID]; ok && now >= expiry && head.Type == move.DropPiece {
				dropRequestExpired = true
			}
		}
	}

	shiftExpiredHeads(clone, now)

	if remaining := deductElapsed(clone, mover, now); remaining <= 0 {
		finishTerminal(clone, ReasonTimeout, mover.Opponent())
		return &Result{Valid: true, State: clone, GameEnded: true, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
	}

	var am AppliedMove
	var finalPos *chessadapter.Position

	if move.Drop {
		if dropRequestExpired {
			return nil, coreerr.Warning(coreerr.CodeDropExpired, "drop timer has expired")
		}
		queue := queuePtr(clone, mover)
		if len(*queue) == 0 {
			return nil, coreerr.Warning(coreerr.CodePieceNotInPocket, "pocket is empty")
		}
		head := (*queue)[0]
		if head.Type != move.DropPiece {
			return nil, coreerr.Warning(coreerr.CodeSequentialDropOnly, "only the head of the pocket queue may be dropped")
		}
		if expiry, ok := clone.DropTimers[head.ID]; !ok || now >= expiry {
			return nil, coreerr.Warning(coreerr.CodeDropExpired, "drop timer has expired")
		}
		if err := isValidDropSquare(pos, move.DropPiece, move.To); err != nil {
			return nil, dropSquareError(err)
		}
		placed, err := pos.Place(move.DropPiece, mover, move.To)
		if err != nil {
			return nil, coreerr.Warning(coreerr.CodeSquareOccupied, "square is occupied")
		}
		if placed.InCheck() {
			return nil, coreerr.Warning(coreerr.CodeIllegalMove, "drop would leave your own king in check")
		}
		flippedFEN, err := chessadapter.FlipTurn(placed.FEN())
		if err != nil {
			return nil, coreerr.Infra(coreerr.CodeInternalError, err)
		}
		finalPos, err = chessadapter.FromFEN(flippedFEN)
		if err != nil {
			return nil, coreerr.Infra(coreerr.CodeInternalError, err)
		}

		delete(clone.DropTimers, head.ID)
		*queue = (*queue)[1:]
		if len(*queue) > 0 {
			clone.DropTimers[(*queue)[0].ID] = now + dropTimerDuration
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
			pushPocketEntry(clone, mover, pocketed, now)
		}
		updatePromotedSquares(clone, applied)
		finalPos = pos
		am = AppliedMove{From: applied.From, To: applied.To, Promotion: applied.Promotion, SAN: applied.SAN, Color: mover, Timestamp: now}
		if applied.HasCapture {
			am.Captured = pocketed
		}
	}

	repKey := RepetitionKey(finalPos.FEN(), pocketQueueKinds(clone.PocketQueueWhite), pocketQueueKinds(clone.PocketQueueBlack))
	recordMove(clone, am, finalPos.FEN(), repKey, now)
	applyIncrement(clone, mover)

	moverHasPocket := len(*queuePtr(clone, clone.ActiveColor)) > 0
	if ended, reason, winner := crazyhouseTerminal(finalPos, clone, repKey, moverHasPocket); ended {
		finishTerminal(clone, reason, winner)
	}

	return &Result{Valid: true, Move: am, State: clone, GameEnded: clone.GameEnded, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
}

func (e *CrazyhouseTimerEngine) CheckTimeout(board *Board, now int64) (*Result, error) {
	if board.GameEnded {
		return nil, coreerr.Session(coreerr.CodeGameEnded, "game has already ended")
	}
	now = normalizeNow(now, time.Now().UnixMilli())
	clone := board.Clone()
	if clone.DropTimers == nil {
		clone.DropTimers = DropTimers{}
	}
	shiftExpiredHeads(clone, now)
	return checkTimeoutGeneric(clone, now), nil
}

// DerivedFrozenPocket is computed on emit, never stored: every non-head
// pocket entry is frozen, and the head itself is frozen if (for whatever
// reason) it has no active timer.
func DerivedFrozenPocket(queue []PocketEntry, timers DropTimers) []string {
	frozen := make([]string, 0, len(queue))
	for i, entry := range queue {
		if i == 0 {
			if _, ok := timers[entry.ID]; !ok {
				frozen = append(frozen, entry.ID)
			}
			continue
		}
		frozen = append(frozen, entry.ID)
	}
	return frozen
}

func pocketQueueKinds(queue []PocketEntry) []PieceKind {
	out := make([]PieceKind, len(queue))
	for i, e := range queue {
		out[i] = e.Type
	}
	return out
}
