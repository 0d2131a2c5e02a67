package variant

import (
	"testing"

	"corechess/internal/coreerr"
)

func freshSixPointerBoard(t *testing.T) *Board {
	t.Helper()
	board, err := InitialBoard(VariantSixPointer, "", InitialBoardOptions{})
	if err != nil {
		t.Fatalf("InitialBoard: %v", err)
	}
	board.GameStarted = true
	board.TurnStartTimestamp = 0
	return board
}

func TestSixPointerMoveTimeoutDeductsPointAndPasses(t *testing.T) {
	engine := NewSixPointerEngine()
	board := freshSixPointerBoard(t)
	board.SixPointer.PointsWhite = 2
	mover := board.ActiveColor

	result, err := engine.ValidateAndApply(board, Move{From: "a2", To: "a3"}, mover, sixPointerMoveTimeMS+100)
	if err != nil {
		t.Fatalf("ValidateAndApply: %v", err)
	}
	if result.Warning != "move_timeout" {
		t.Fatalf("expected a move_timeout warning, got %+v", result)
	}
	if result.GameEnded {
		t.Fatalf("a move timeout is not terminal")
	}
	if result.State.ActiveColor == mover {
		t.Fatalf("turn should pass to the opponent on a move timeout")
	}
	if len(result.State.MoveHistory) != 0 {
		t.Fatalf("a timed-out move must not be recorded")
	}
	wantPoints := result.State.SixPointer.PointsWhite
	if mover == White && wantPoints != 1 {
		t.Fatalf("expected one point deducted from white, got %d", wantPoints)
	}
}

func TestSixPointerMoveLimitExceeded(t *testing.T) {
	engine := NewSixPointerEngine()
	board := freshSixPointerBoard(t)
	mover := board.ActiveColor
	if mover == White {
		board.SixPointer.MovesPlayedWhite = sixPointerMaxMoves
	} else {
		board.SixPointer.MovesPlayedBlack = sixPointerMaxMoves
	}

	_, err := engine.ValidateAndApply(board, Move{From: "a2", To: "a3"}, mover, 1000)
	if err == nil || coreerr.CodeOf(err) != coreerr.CodeMoveLimitExceeded {
		t.Fatalf("expected MOVE_LIMIT_EXCEEDED, got %v", err)
	}
}

func TestSixPointerFoulPlayOnFinalCaptureAgainstExhaustedOpponent(t *testing.T) {
	engine := NewSixPointerEngine()
	board := freshSixPointerBoard(t)
	board.FEN = "4k3/8/8/8/3p4/4P3/8/4K3 w - - 0 1"
	board.ActiveColor = White
	board.SixPointer.MovesPlayedWhite = sixPointerMaxMoves - 1
	board.SixPointer.MovesPlayedBlack = sixPointerMaxMoves

	_, err := engine.ValidateAndApply(board, Move{From: "e3", To: "d4"}, White, 1000)
	if err == nil || coreerr.CodeOf(err) != coreerr.CodeFoulPlay {
		t.Fatalf("expected FOUL_PLAY, got %v", err)
	}
}

func TestSixPointerFoulPlayCoversEnPassantCaptures(t *testing.T) {
	engine := NewSixPointerEngine()
	board := freshSixPointerBoard(t)
	// White pawn e5, black pawn d5, en passant target d6: e5xd6 captures
	// the black pawn on d5, a square the target square itself never
	// occupies, so occupancy-based foul-play detection would miss it.
	board.FEN = "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1"
	board.ActiveColor = White
	board.SixPointer.MovesPlayedWhite = sixPointerMaxMoves - 1
	board.SixPointer.MovesPlayedBlack = sixPointerMaxMoves

	_, err := engine.ValidateAndApply(board, Move{From: "e5", To: "d6"}, White, 1000)
	if err == nil || coreerr.CodeOf(err) != coreerr.CodeFoulPlay {
		t.Fatalf("expected FOUL_PLAY on a final-move en passant capture, got %v", err)
	}
}

func TestSixPointerPointsDecideTheGameOnceBothSidesAreSpent(t *testing.T) {
	engine := NewSixPointerEngine()
	board := freshSixPointerBoard(t)
	board.FEN = "4k3/8/8/8/8/4P3/8/4K3 w - - 0 1"
	board.ActiveColor = White
	board.SixPointer.MovesPlayedWhite = sixPointerMaxMoves - 1
	board.SixPointer.MovesPlayedBlack = sixPointerMaxMoves
	board.SixPointer.PointsWhite = 4
	board.SixPointer.PointsBlack = 1

	result, err := engine.ValidateAndApply(board, Move{From: "e3", To: "e4"}, White, 1000)
	if err != nil {
		t.Fatalf("ValidateAndApply: %v", err)
	}
	if !result.GameEnded || result.EndReason != ReasonPoints || result.WinnerColor != White {
		t.Fatalf("expected white to win on points, got %+v", result)
	}
}
