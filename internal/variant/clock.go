package variant

// clockField returns pointers to the active color's and opponent's clock
// fields so the shared pre/post move logic can be written once.
func clockField(board *Board, color Color) *int64 {
	if color == White {
		return &board.WhiteTime
	}
	return &board.BlackTime
}

// deductElapsed implements step 6, "pre-move time update": the side on
// move has been thinking since TurnStartTimestamp (or since the game
// started, if this is the first move); subtract the elapsed wall time from
// their clock. Returns the remaining time after deduction.
func deductElapsed(board *Board, mover Color, now int64) int64 {
	clock := clockField(board, mover)
	if !board.GameStarted {
		board.TurnStartTimestamp = now
		return *clock
	}
	elapsed := now - board.TurnStartTimestamp
	if elapsed < 0 {
		elapsed = 0
	}
	*clock -= elapsed
	return *clock
}

// applyIncrement implements the second half of step 10: after a move
// lands, the mover's clock gets their variant's increment added back.
func applyIncrement(board *Board, mover Color) {
	clock := clockField(board, mover)
	*clock += board.Increment
}

// checkTimeoutGeneric is the CheckTimeout body shared by every variant
// whose clock model is "one running clock per side, deducted on the mover's
// turn" (Classic, both Crazyhouse variants, Decay). SixPointer has its own
// per-move timer model and does not use this helper.
func checkTimeoutGeneric(board *Board, now int64) *Result {
	clone := board.Clone()
	mover := clone.ActiveColor
	remaining := deductElapsed(clone, mover, now)
	clone.TurnStartTimestamp = now
	if remaining <= 0 {
		finishTerminal(clone, ReasonTimeout, mover.Opponent())
		return &Result{Valid: true, State: clone, GameEnded: true, EndReason: clone.EndReason, WinnerColor: clone.WinnerColor}
	}
	return &Result{Valid: true, State: clone, GameEnded: false}
}
