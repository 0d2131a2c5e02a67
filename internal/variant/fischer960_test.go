package variant

import (
	"math/rand"
	"strings"
	"testing"
)

func TestGenerateRandomBackRankIsAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		rank := GenerateRandomBackRank(rng)
		if len(rank) != 8 {
			t.Fatalf("rank %q has length %d, want 8", rank, len(rank))
		}
		counts := map[byte]int{}
		for j := 0; j < 8; j++ {
			counts[rank[j]]++
		}
		if counts['K'] != 1 || counts['Q'] != 1 || counts['R'] != 2 || counts['N'] != 2 || counts['B'] != 2 {
			t.Fatalf("rank %q does not have the expected piece counts: %v", rank, counts)
		}

		var bishopSquares []int
		var rookSquares []int
		kingSquare := -1
		for j := 0; j < 8; j++ {
			switch rank[j] {
			case 'B':
				bishopSquares = append(bishopSquares, j)
			case 'R':
				rookSquares = append(rookSquares, j)
			case 'K':
				kingSquare = j
			}
		}
		if bishopSquares[0]%2 == bishopSquares[1]%2 {
			t.Fatalf("rank %q has both bishops on the same color square", rank)
		}
		if !(rookSquares[0] < kingSquare && kingSquare < rookSquares[1]) {
			t.Fatalf("rank %q does not have the king between both rooks", rank)
		}
	}
}

func TestFischer960StartingFENMirrorsBackRank(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	backRank := GenerateRandomBackRank(rng)
	fen := Fischer960StartingFEN(backRank)

	fields := strings.Fields(fen)
	if len(fields) != 6 {
		t.Fatalf("expected a 6-field fen, got %q", fen)
	}
	ranks := strings.Split(fields[0], "/")
	if ranks[7] != backRank {
		t.Fatalf("white back rank %q does not match generated rank %q", ranks[7], backRank)
	}
	if ranks[0] != strings.ToLower(backRank) {
		t.Fatalf("black back rank %q is not the lowercase mirror of %q", ranks[0], backRank)
	}
	if fields[1] != "w" {
		t.Fatalf("expected white to move, got %q", fields[1])
	}
}
