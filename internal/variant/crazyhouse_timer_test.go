package variant

import (
	"testing"

	"corechess/internal/coreerr"
)

func freshCrazyhouseTimerBoard(t *testing.T) *Board {
	t.Helper()
	board, err := InitialBoard(VariantCrazyhouse, CrazyhouseWithTimer, InitialBoardOptions{})
	if err != nil {
		t.Fatalf("InitialBoard: %v", err)
	}
	board.GameStarted = true
	board.TurnStartTimestamp = 0
	return board
}

func TestCrazyhouseTimerOnlyHeadMayBeDropped(t *testing.T) {
	engine := NewCrazyhouseTimerEngine()
	board := freshCrazyhouseTimerBoard(t)
	pushPocketEntry(board, White, chessPawnKind(), 0)
	pushPocketEntry(board, White, chessKnightKind(), 0)

	_, err := engine.ValidateAndApply(board, Move{Drop: true, DropPiece: chessKnightKind(), To: "e4"}, White, 100)
	if err == nil || coreerr.CodeOf(err) != coreerr.CodeSequentialDropOnly {
		t.Fatalf("expected SEQUENTIAL_DROP_ONLY dropping a non-head piece, got %v", err)
	}
}

func TestCrazyhouseTimerExpiredDropTimerShiftsHeadAutomatically(t *testing.T) {
	engine := NewCrazyhouseTimerEngine()
	board := freshCrazyhouseTimerBoard(t)
	pushPocketEntry(board, White, chessPawnKind(), 0)
	pushPocketEntry(board, White, chessKnightKind(), 0)

	// The head's timer (started at t=0) expires at t=dropTimerDuration.
	result, err := engine.ValidateAndApply(board, Move{From: "g1", To: "f3"}, White, dropTimerDuration+1)
	if err != nil {
		t.Fatalf("ValidateAndApply: %v", err)
	}
	queue := result.State.PocketQueueWhite
	if len(queue) != 1 || queue[0].Type != chessKnightKind() {
		t.Fatalf("expected the pawn head to have been shifted out, queue = %+v", queue)
	}
	if _, ok := result.State.DropTimers[queue[0].ID]; !ok {
		t.Fatalf("expected the new head to have an active timer")
	}
}

func TestCrazyhouseTimerDropAfterExpiryIsRejected(t *testing.T) {
	engine := NewCrazyhouseTimerEngine()
	board := freshCrazyhouseTimerBoard(t)
	pushPocketEntry(board, White, chessPawnKind(), 0)

	_, err := engine.ValidateAndApply(board, Move{Drop: true, DropPiece: chessPawnKind(), To: "e4"}, White, dropTimerDuration+1)
	if err == nil || coreerr.CodeOf(err) != coreerr.CodeDropExpired {
		t.Fatalf("expected DROP_EXPIRED because the sole pocket piece's own timer already expired, got %v", err)
	}
}

func TestCrazyhouseTimerDropWithinWindowSucceeds(t *testing.T) {
	engine := NewCrazyhouseTimerEngine()
	board := freshCrazyhouseTimerBoard(t)
	pushPocketEntry(board, White, chessKnightKind(), 0)

	result, err := engine.ValidateAndApply(board, Move{Drop: true, DropPiece: chessKnightKind(), To: "e4"}, White, dropTimerDuration-1)
	if err != nil {
		t.Fatalf("ValidateAndApply: %v", err)
	}
	if len(result.State.PocketQueueWhite) != 0 {
		t.Fatalf("expected the dropped knight to leave the pocket")
	}
	if result.State.ActiveColor != Black {
		t.Fatalf("expected turn to pass to black after the drop")
	}
}

// chessPawnKind/chessKnightKind avoid importing chessadapter directly in
// this test file just for two constants.
func chessPawnKind() PieceKind   { return PieceKind("p") }
func chessKnightKind() PieceKind { return PieceKind("n") }
