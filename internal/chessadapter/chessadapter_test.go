package chessadapter

import "testing"

const startingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestLegalMovesFromStartingPositionHasTwentyMoves(t *testing.T) {
	pos, err := FromFEN(startingFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	moves := pos.LegalMoves()
	if len(moves) != 20 {
		t.Fatalf("expected 20 legal moves from the starting position, got %d", len(moves))
	}
}

func TestLegalMovesCacheReturnsConsistentResultsForTheSameFEN(t *testing.T) {
	posA, err := FromFEN(startingFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	posB, err := FromFEN(startingFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}

	first := posA.LegalMoves()
	second := posB.LegalMoves()
	if len(first) != len(second) {
		t.Fatalf("expected the cached and freshly computed move lists to agree in length, got %d vs %d", len(first), len(second))
	}
}

func TestApplyRejectsAnIllegalMove(t *testing.T) {
	pos, err := FromFEN(startingFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if _, err := pos.Apply(Move{From: "e2", To: "e5"}); err == nil {
		t.Fatalf("expected an illegal three-square pawn hop to be rejected")
	}
}

func TestApplyAppliesALegalMoveAndAdvancesTurn(t *testing.T) {
	pos, err := FromFEN(startingFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	applied, err := pos.Apply(Move{From: "e2", To: "e4"})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.SAN != "e4" {
		t.Fatalf("expected SAN e4, got %q", applied.SAN)
	}
	if pos.SideToMove() != Black {
		t.Fatalf("expected black to move after 1. e4, got %q", pos.SideToMove())
	}
}

func TestPieceAtReportsOccupancy(t *testing.T) {
	pos, err := FromFEN(startingFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	kind, color, ok := pos.PieceAt("e1")
	if !ok || kind != King || color != White {
		t.Fatalf("expected white king on e1, got kind=%q color=%q ok=%v", kind, color, ok)
	}
	if _, _, ok := pos.PieceAt("e4"); ok {
		t.Fatalf("expected e4 to be empty on the starting position")
	}
}

func TestPlaceLeavesSideToMoveUntouched(t *testing.T) {
	pos, err := FromFEN("8/8/8/8/8/8/8/4K2k w - - 0 1")
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	placed, err := pos.Place(Queen, White, "d4")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if placed.SideToMove() != White {
		t.Fatalf("expected Place to leave the side to move untouched, got %q", placed.SideToMove())
	}
	if kind, color, ok := placed.PieceAt("d4"); !ok || kind != Queen || color != White {
		t.Fatalf("expected a white queen on d4 after Place, got kind=%q color=%q ok=%v", kind, color, ok)
	}
}

func TestPlaceRejectsAnOccupiedSquare(t *testing.T) {
	pos, err := FromFEN(startingFEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	if _, err := pos.Place(Queen, White, "e2"); err == nil {
		t.Fatalf("expected placing onto an occupied square to fail")
	}
}
