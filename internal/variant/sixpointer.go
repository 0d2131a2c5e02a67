package variant

import (
	"time"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
)

const (
	sixPointerMaxMoves    = 6
	sixPointerMoveTimeMS  = 30 * 1000
)

// SixPointerStartingFENs is the fixed pool of balanced mid-game positions
// SixPointer games are dealt from.
var SixPointerStartingFENs = []string{
	"r1bqk2r/pppp1ppp/2n2n2/2b1p3/2B1P3/2N2N2/PPPP1PPP/R1BQK2R w KQkq - 4 5",
	"r2qkb1r/ppp2ppp/2np1n2/4p1B1/2B1P1b1/2NP1N2/PPP2PPP/R2QK2R w KQkq - 2 7",
	"r1bq1rk1/pp2bppp/2n1pn2/2pp4/3P1B2/2PBPN2/PP3PPP/RN1Q1RK1 w - - 2 9",
	"r1bqr1k1/1pp2pbp/p1np1np1/4p3/2P5/1PNP1NP1/P3PPBP/R1BQ1RK1 w - - 0 10",
	"r2q1rk1/pb1nbppp/1p2pn2/2ppN3/3P4/1P2PN2/PB3PPP/R2Q1RK1 w - - 4 11",
}

// pieceValue: P=1, N=3, B=3, R=5, Q=9, K=0.
func pieceValue(k PieceKind) int {
	switch k {
	case chessadapter.Pawn:
		return 1
	case chessadapter.Knight, chessadapter.Bishop:
		return 3
	case chessadapter.Rook:
		return 5
	case chessadapter.Queen:
		return 9
	default:
		return 0
	}
}

// SixPointerEngine: a capped six-moves-per-side variant with no baseline
// clock - only a 30s-per-move timer - and a points race instead of the
// usual checkmate-or-bust ending when both sides exhaust their moves.
type SixPointerEngine struct{}

func NewSixPointerEngine() *SixPointerEngine { return &SixPointerEngine{} }

func sixPointerMovesPlayed(board *Board, color Color) int {
	if color == White {
		return board.SixPointer.MovesPlayedWhite
	}
	return board.SixPointer.MovesPlayedBlack
}

func incSixPointerMoves(board *Board, color Color) {
	if color == White {
		board.SixPointer.MovesPlayedWhite++
	} else {
		board.SixPointer.MovesPlayedBlack++
	}
}

func addSixPointerPoints(board *Board, color Color, delta int) {
	if color == White {
		board.SixPointer.PointsWhite = clampFloor0(board.SixPointer.PointsWhite + delta)
	} else {
		board.SixPointer.PointsBlack = clampFloor0(board.SixPointer.PointsBlack + delta)
	}
}

func clampFloor0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func (e *SixPointerEngine) ValidateAndApply(board *Board, move Move, playerColor Color, now int64) (*Result, error) {
	now = normalizeNow(now, time.Now().UnixMilli())

	pos, err := guardActive(board, playerColor)
	if err != nil {
		return nil, err
	}

	clone := board.Clone()
	mover := playerColor

	if clone.GameStarted {
		elapsed := now - clone.TurnStartTimestamp
		if elapsed >= sixPointerMoveTimeMS {
			addSixPointerPoints(clone, mover, -1)
			clone.WhiteTime = sixPointerMoveTimeMS
			clone.BlackTime = sixPointerMoveTimeMS
			flippedFEN, err := chessadapter.FlipTurn(clone.FEN)
			if err != nil {
				return nil, coreerr.Infra(coreerr.CodeInternalError, err)
			}
			clone.FEN = flippedFEN
			clone.ActiveColor = mover.Opponent()
			clone.TurnStartTimestamp = now
			return &Result{Valid: true, State: clone, Warning: "move_timeout"}, nil
		}
	} else {
		clone.TurnStartTimestamp = now
		clone.GameStarted = true
	}

	if sixPointerMovesPlayed(clone, mover) >= sixPointerMaxMoves {
		return nil, coreerr.Warning(coreerr.CodeMoveLimitExceeded, "you have no moves remaining")
	}

	// Resolve the matching legal move first so foul-play detection can use
	// HasCapture (which also covers en passant, where the captured pawn
	// never occupies the target square) instead of target-square
	// occupancy.
	var candidate *chessadapter.Move
	for _, c := range pos.LegalMovesFrom(move.From) {
		if c.To != move.To {
			continue
		}
		if move.Promotion != "" && c.Promotion != move.Promotion {
			continue
		}
		m := c
		candidate = &m
		break
	}
	if candidate == nil {
		return nil, coreerr.Warning(coreerr.CodeIllegalMove, "move is not legal in the current position")
	}

	isSixthMove := sixPointerMovesPlayed(clone, mover) == sixPointerMaxMoves-1
	opponentExhausted := sixPointerMovesPlayed(clone, mover.Opponent()) >= sixPointerMaxMoves
	if isSixthMove && candidate.HasCapture && opponentExhausted {
		return nil, coreerr.Warning(coreerr.CodeFoulPlay, "may not make a capturing final move against an exhausted opponent")
	}

	applied, err := pos.Apply(chessadapter.Move{From: move.From, To: move.To, Promotion: move.Promotion})
	if err != nil {
		return nil, coreerr.Warning(coreerr.CodeIllegalMove, "move is not legal in the current position")
	}

	am := AppliedMove{From: applied.From, To: applied.To, Promotion: applied.Promotion, SAN: applied.SAN, Color: mover, Timestamp: now}
	if applied.HasCapture {
		am.Captured = applied.Captured
		addCapture(clone, mover, applied.Captured)
		addSixPointerPoints(clone, mover, pieceValue(applied.Captured))
	}

	incSixPointerMoves(clone, mover)

	repKey := RepetitionKey(pos.FEN(), nil, nil)
	recordMove(clone, am, pos.FEN(), repKey, now)
	clone.WhiteTime = sixPointerMoveTimeMS
	clone.BlackTime = sixPointerMoveTimeMS

	if ended, reason, winner := sixPointerTerminal(pos, clone, repKey); ended {
		finishTerminal(clone, reason, winner)
	}

	return &Result{Valid: true, Move: am, State: clone, GameEnded: clone.GameEnded, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}, nil
}

func sixPointerTerminal(pos *chessadapter.Position, board *Board, repetitionKey string) (ended bool, reason string, winner Color) {
	if pos.IsCheckmate() {
		return true, ReasonCheckmate, board.ActiveColor.Opponent()
	}
	if pos.IsStalemate() {
		return true, ReasonStalemate, ""
	}
	if pos.IsInsufficientMaterial() {
		return true, ReasonInsufficientMaterial, ""
	}
	if board.RepetitionMap[repetitionKey] >= 5 {
		return true, ReasonFivefoldRepetition, ""
	}
	if board.RepetitionMap[repetitionKey] >= 3 {
		return true, ReasonThreefoldRepetition, ""
	}
	if board.SixPointer.MovesPlayedWhite >= sixPointerMaxMoves && board.SixPointer.MovesPlayedBlack >= sixPointerMaxMoves {
		switch {
		case board.SixPointer.PointsWhite > board.SixPointer.PointsBlack:
			return true, ReasonPoints, White
		case board.SixPointer.PointsBlack > board.SixPointer.PointsWhite:
			return true, ReasonPoints, Black
		default:
			return true, ReasonPointsDraw, ""
		}
	}
	return false, "", ""
}

// CheckTimeout is a no-op for SixPointer outside of ValidateAndApply: there
// is no standalone clock to sweep between moves, only the per-move window
// evaluated when the next move actually arrives.
func (e *SixPointerEngine) CheckTimeout(board *Board, now int64) (*Result, error) {
	if board.GameEnded {
		return nil, coreerr.Session(coreerr.CodeGameEnded, "game has already ended")
	}
	clone := board.Clone()
	return &Result{Valid: true, State: clone}, nil
}
