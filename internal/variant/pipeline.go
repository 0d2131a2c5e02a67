package variant

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
)

// guardActive runs pipeline steps 2-5: reject an already-finished game,
// parse FEN, and verify it's playerColor's turn. It never mutates board.
func guardActive(board *Board, playerColor Color) (*chessadapter.Position, error) {
	if board.GameEnded {
		return nil, coreerr.Session(coreerr.CodeGameEnded, "game has already ended")
	}
	if board.FEN == "" {
		return nil, coreerr.Input(coreerr.CodeMissingFEN, "board has no fen")
	}
	pos, err := chessadapter.FromFEN(board.FEN)
	if err != nil {
		return nil, coreerr.Input(coreerr.CodeInvalidFEN, "board fen could not be parsed")
	}
	if pos.SideToMove() != board.ActiveColor {
		return nil, coreerr.Infra(coreerr.CodeInternalError, fmt.Errorf("fen side to move %q disagrees with activeColor %q", pos.SideToMove(), board.ActiveColor))
	}
	if playerColor != board.ActiveColor {
		return nil, coreerr.Warning(coreerr.CodeWrongTurn, "it is not your turn")
	}
	return pos, nil
}

// normalizeNow fills in now when the caller passed zero, mirroring step 1
// of the shared pipeline ("normalize now to current time if missing").
func normalizeNow(now, fallback int64) int64 {
	if now <= 0 {
		return fallback
	}
	return now
}

// finishTerminal stamps the terminal fields shared by every variant.
func finishTerminal(board *Board, reason string, winner Color) {
	board.GameEnded = true
	board.EndReason = reason
	board.WinnerColor = winner
}

// recordMove appends to MoveHistory/PositionHistory, refreshes the FEN,
// activeColor and turnStartTimestamp, and updates the repetition map. It is
// the common tail of step 10-11 for every variant.
func recordMove(board *Board, applied AppliedMove, newFEN string, repetitionKey string, now int64) {
	board.MoveHistory = append(board.MoveHistory, applied)
	board.FEN = newFEN
	board.ActiveColor = board.ActiveColor.Opponent()
	board.TurnStartTimestamp = now
	board.GameStarted = true
	board.PositionHistory = append(board.PositionHistory, repetitionKey)
	board.RepetitionMap[repetitionKey] += 1
}

// RepetitionKey is the canonical hashing key for the repetition map: plain
// FEN for Classic and Decay, FEN+sorted-pockets for the Crazyhouse variants
// (see external interface: "{fen}[{whitePocketSorted}][{blackPocketSorted}]").
func RepetitionKey(fen string, whitePocket, blackPocket []PieceKind) string {
	if len(whitePocket) == 0 && len(blackPocket) == 0 {
		return fen
	}
	return fmt.Sprintf("%s[%s][%s]", fen, sortedPocket(whitePocket), sortedPocket(blackPocket))
}

func sortedPocket(pocket []PieceKind) string {
	letters := make([]string, len(pocket))
	for i, p := range pocket {
		letters[i] = string(p)
	}
	sort.Strings(letters)
	return strings.Join(letters, "")
}

// plainChessTerminal checks the chess-rules-only terminal conditions shared
// by Classic and Decay (SixPointer uses its own sixPointerTerminal):
// checkmate, stalemate,
// insufficient material, fifty/seventy-five-move, and manual five/threefold
// repetition via the caller-maintained repetitionMap (never delegated to the
// chess adapter, since positions are rebuilt fresh from FEN every call and
// carry no cross-call history).
func plainChessTerminal(pos *chessadapter.Position, board *Board, repetitionKey string) (ended bool, reason string, winner Color) {
	mover := board.ActiveColor // side to move in the *new* position
	if pos.IsCheckmate() {
		return true, ReasonCheckmate, mover.Opponent()
	}
	if pos.IsStalemate() {
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

func halfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return 0
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return 0
	}
	return n
}
