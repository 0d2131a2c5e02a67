package variant

import (
	"fmt"
	"math/rand"
	"sort"
)

// GenerateRandomBackRank produces one of the 960 legal Chess960 starting
// back ranks: bishops on opposite-color squares, queen and both knights on
// the remaining squares in any order, and the king sandwiched between the
// two rooks on whatever squares are left. This replaces a hardcoded small
// pool with the full combinatorial generator (see resolved Open Question in
// DESIGN.md).
func GenerateRandomBackRank(rng *rand.Rand) string {
	light := []int{0, 2, 4, 6}
	dark := []int{1, 3, 5, 7}
	b1 := light[rng.Intn(len(light))]
	b2 := dark[rng.Intn(len(dark))]

	occupied := make(map[int]byte, 8)
	occupied[b1] = 'B'
	occupied[b2] = 'B'

	remaining := remainingSquares(occupied)

	q := remaining[rng.Intn(len(remaining))]
	occupied[q] = 'Q'
	remaining = remainingSquares(occupied)

	n1 := remaining[rng.Intn(len(remaining))]
	occupied[n1] = 'N'
	remaining = remainingSquares(occupied)

	n2 := remaining[rng.Intn(len(remaining))]
	occupied[n2] = 'N'
	remaining = remainingSquares(occupied)

	sort.Ints(remaining)
	occupied[remaining[0]] = 'R'
	occupied[remaining[1]] = 'K'
	occupied[remaining[2]] = 'R'

	rank := make([]byte, 8)
	for i := 0; i < 8; i++ {
		rank[i] = occupied[i]
	}
	return string(rank)
}

func remainingSquares(occupied map[int]byte) []int {
	out := make([]int, 0, 8-len(occupied))
	for i := 0; i < 8; i++ {
		if _, ok := occupied[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// Fischer960StartingFEN builds a full starting FEN from an uppercase back
// rank string (as returned by GenerateRandomBackRank).
func Fischer960StartingFEN(backRankWhite string) string {
	blackRank := toLower(backRankWhite)
	return fmt.Sprintf("%s/pppppppp/8/8/8/8/PPPPPPPP/%s w KQkq - 0 1", blackRank, backRankWhite)
}

func toLower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
