package variant

import (
	"testing"

	"corechess/internal/chessadapter"
)

func TestActiveColorAgreesWithFENAfterEveryEngine(t *testing.T) {
	cases := []struct {
		name       string
		variant    string
		subvariant string
	}{
		{"classic", VariantClassic, string(Standard)},
		{"crazyhouse-standard", VariantCrazyhouse, CrazyhouseStandard},
		{"crazyhouse-timer", VariantCrazyhouse, CrazyhouseWithTimer},
		{"decay", VariantDecay, ""},
		{"sixpointer", VariantSixPointer, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			board, err := InitialBoard(tc.variant, tc.subvariant, InitialBoardOptions{})
			if err != nil {
				t.Fatalf("InitialBoard: %v", err)
			}
			engine, err := EngineFor(tc.variant, tc.subvariant)
			if err != nil {
				t.Fatalf("EngineFor: %v", err)
			}
			board.GameStarted = true
			board.TurnStartTimestamp = 0

			legalFirstMove := firstLegalMoveFor(t, board)
			result, err := engine.ValidateAndApply(board, legalFirstMove, board.ActiveColor, 1000)
			if err != nil {
				t.Fatalf("ValidateAndApply: %v", err)
			}
			if result.Warning != "" {
				t.Fatalf("did not expect a warning result on a fresh legal move: %+v", result)
			}

			pos, err := chessadapter.FromFEN(result.State.FEN)
			if err != nil {
				t.Fatalf("FromFEN on resulting state: %v", err)
			}
			if pos.SideToMove() != result.State.ActiveColor {
				t.Fatalf("activeColor %q disagrees with fen side to move %q", result.State.ActiveColor, pos.SideToMove())
			}

			total := 0
			for _, count := range result.State.RepetitionMap {
				total += count
			}
			if total < 1 {
				t.Fatalf("expected the repetition map to record the new position at least once")
			}
			if len(result.State.MoveHistory) != 1 {
				t.Fatalf("expected exactly one recorded move, got %d", len(result.State.MoveHistory))
			}
		})
	}
}

// firstLegalMoveFor picks any legal move from the position so the invariant
// test above works regardless of the starting FEN a variant happens to use.
func firstLegalMoveFor(t *testing.T, board *Board) Move {
	t.Helper()
	pos, err := chessadapter.FromFEN(board.FEN)
	if err != nil {
		t.Fatalf("FromFEN: %v", err)
	}
	legal := pos.LegalMoves()
	if len(legal) == 0 {
		t.Fatalf("no legal moves in starting position %q", board.FEN)
	}
	m := legal[0]
	return Move{From: m.From, To: m.To, Promotion: m.Promotion}
}
