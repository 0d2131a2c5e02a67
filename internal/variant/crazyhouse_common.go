package variant

import (
	"errors"

	"corechess/internal/chessadapter"
)

var (
	errSquareOccupied  = errors.New("square occupied")
	errInvalidPawnDrop = errors.New("invalid pawn drop")
)

// updatePromotedSquares keeps PromotedSquares in sync with a just-applied
// move: a promotion marks the destination square, any other move that
// originates from a tracked square carries the marker to its destination,
// and a capture removes the marker for the captured square.
func updatePromotedSquares(board *Board, applied chessadapter.Move) {
	filtered := make([]string, 0, len(board.PromotedSquares))
	wasTracked := false
	for _, sq := range board.PromotedSquares {
		if sq == applied.From {
			wasTracked = true
			continue
		}
		if sq == applied.To {
			// captured piece on the destination square was itself
			// promoted - its marker has already been read by
			// resolveCapturedKind before this runs, so just drop it here.
			continue
		}
		filtered = append(filtered, sq)
	}
	if applied.Promotion != "" {
		filtered = append(filtered, applied.To)
	} else if wasTracked {
		filtered = append(filtered, applied.To)
	}
	board.PromotedSquares = filtered
}

// resolveCapturedKind returns what actually lands in the capturer's pocket:
// a pawn, if the captured piece on the target square was itself a promoted
// pawn, otherwise the piece's true type.
func resolveCapturedKind(board *Board, applied chessadapter.Move) PieceKind {
	if !applied.HasCapture {
		return ""
	}
	for _, sq := range board.PromotedSquares {
		if sq == applied.To {
			return chessadapter.Pawn
		}
	}
	return applied.Captured
}

func addToPocketBag(board *Board, color Color, piece PieceKind) {
	if color == White {
		board.PocketPieces.White = append(board.PocketPieces.White, piece)
	} else {
		board.PocketPieces.Black = append(board.PocketPieces.Black, piece)
	}
}

func removeFromPocketBag(board *Board, color Color, piece PieceKind) bool {
	bag := &board.PocketPieces.White
	if color == Black {
		bag = &board.PocketPieces.Black
	}
	for i, p := range *bag {
		if p == piece {
			*bag = append((*bag)[:i], (*bag)[i+1:]...)
			return true
		}
	}
	return false
}

func pocketBagOf(board *Board, color Color) []PieceKind {
	if color == White {
		return board.PocketPieces.White
	}
	return board.PocketPieces.Black
}

// crazyhouseTerminal mirrors plainChessTerminal but accounts for pockets:
// a side that appears stalemated while holding pocket pieces is not
// actually drawn, since it may still have a legal drop (per spec, this
// override is unconditional on pocket non-emptiness, not on whether a
// drop square actually exists).
func crazyhouseTerminal(pos *chessadapter.Position, board *Board, repetitionKey string, moverHasPocket bool) (ended bool, reason string, winner Color) {
	mover := board.ActiveColor
	if pos.IsCheckmate() {
		return true, ReasonCheckmate, mover.Opponent()
	}
	if pos.IsStalemate() {
		if moverHasPocket {
			return false, "", ""
		}
		return true, ReasonStalemate, ""
	}
	if pos.IsInsufficientMaterial() {
		return true, ReasonInsufficientMaterial, ""
	}
	if halfmoveClock(pos.FEN()) >= 150 {
		return true, ReasonSeventyFiveMoveRule, ""
	}
	if halfmoveClock(pos.FEN()) >= 100 {
		return true, ReasonFiftyMoveRule, ""
	}
	if board.RepetitionMap[repetitionKey] >= 5 {
		return true, ReasonFivefoldRepetition, ""
	}
	if board.RepetitionMap[repetitionKey] >= 3 {
		return true, ReasonThreefoldRepetition, ""
	}
	return false, "", ""
}

// isValidDropSquare enforces the two square-level drop constraints common
// to both Crazyhouse variants: the target must be empty, and pawns may not
// be dropped on the first or last rank.
func isValidDropSquare(pos *chessadapter.Position, piece PieceKind, square string) error {
	if _, _, occupied := pos.PieceAt(square); occupied {
		return errSquareOccupied
	}
	if piece == chessadapter.Pawn && (square[1] == '1' || square[1] == '8') {
		return errInvalidPawnDrop
	}
	return nil
}
