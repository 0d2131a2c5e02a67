package variant

// Every engine's ValidateAndApply follows the same shape:
//
//  1. normalize now if the caller passed zero
//  2. reject with GAME_ENDED if the board is already finished
//  3. (rehydration is a no-op here - Board's maps are already typed Go
//     values, never plain JSON objects, by the time an engine sees them)
//  4. parse fen into a chessadapter.Position, INVALID_FEN on failure
//  5. verify playerColor == activeColor, WRONG_TURN otherwise
//  6. pre-move clock update (deductElapsed) - a flag fall here ends the
//     game before the submitted move is even looked at
//  7. variant preflight (decay-frozen check, sixpointer move cap/foul
//     play, drop feasibility)
//  8. apply the move through chessadapter
//  9. variant postlude (captures/pockets/decay timers/points/move counts)
// 10. update fen/activeColor/moveHistory/positionHistory, add increment,
//     set turnStartTimestamp = now
// 11. update repetitionMap
// 12. terminal check (variant-aware)
// 13. return state and outcome flags
//
// A rejected move (input error or warning) never gets past step 8, and every
// engine works on a cloned Board so the caller's board is left untouched on
// any non-nil error - see Board.Clone.

// Stable EndReason vocabulary, reusing the same uppercase tokens as the
// terminal error codes in internal/coreerr so a client never has to
// maintain two parallel string tables.
const (
	ReasonTimeout                = "TIMEOUT"
	ReasonCheckmate              = "CHECKMATE"
	ReasonStalemate              = "STALEMATE"
	ReasonInsufficientMaterial   = "INSUFFICIENT_MATERIAL"
	ReasonFiftyMoveRule          = "FIFTY_MOVE_RULE"
	ReasonSeventyFiveMoveRule    = "SEVENTY_FIVE_MOVE_RULE"
	ReasonThreefoldRepetition    = "THREEFOLD_REPETITION"
	ReasonFivefoldRepetition     = "FIVEFOLD_REPETITION"
	ReasonPoints                 = "POINTS"
	ReasonPointsDraw             = "POINTS_DRAW"
	ReasonResignation            = "RESIGNATION"
	ReasonMutualAgreement        = "MUTUAL_AGREEMENT"
)
