package variant

import (
	"math/rand"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
)

const (
	VariantClassic    = "classic"
	VariantCrazyhouse = "crazyhouse"
	VariantDecay      = "decay"
	VariantSixPointer = "sixpointer"
)

const (
	CrazyhouseStandard  = "standard"
	CrazyhouseWithTimer = "withTimer"
)

const standardStartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// EngineFor resolves the authoritative validator for a variant/subvariant
// pair. Unrecognized combinations are an input error, not a panic - a
// malformed request from a client must not crash the process.
func EngineFor(variantName, subvariant string) (Engine, error) {
	switch variantName {
	case VariantClassic:
		return NewClassicEngine(), nil
	case VariantCrazyhouse:
		if subvariant == CrazyhouseWithTimer {
			return NewCrazyhouseTimerEngine(), nil
		}
		return NewCrazyhouseStandardEngine(), nil
	case VariantDecay:
		return NewDecayEngine(), nil
	case VariantSixPointer:
		return NewSixPointerEngine(), nil
	default:
		return nil, coreerr.Input(coreerr.CodeInvalidInput, "unrecognized variant")
	}
}

// InitialBoardOptions carries the handful of creation-time choices that
// aren't implied by variant/subvariant alone.
type InitialBoardOptions struct {
	Fischer960 bool
	RNG        *rand.Rand
}

// InitialBoard constructs the starting Board for a freshly created session,
// per the per-variant extensions in §3 of the specification.
func InitialBoard(variantName, subvariant string, opts InitialBoardOptions) (*Board, error) {
	if _, err := EngineFor(variantName, subvariant); err != nil {
		return nil, err
	}

	board := &Board{
		Variant:        variantName,
		Subvariant:     subvariant,
		RepetitionMap:  RepetitionMap{},
		CapturedPieces: CapturedPieces{White: []PieceKind{}, Black: []PieceKind{}},
	}

	switch variantName {
	case VariantClassic:
		base, inc := ClassicClock(ClassicSubvariant(subvariant))
		board.WhiteTime, board.BlackTime, board.Increment = base, base, inc
		board.FEN = standardStartingFEN
		if opts.Fischer960 {
			rng := opts.RNG
			if rng == nil {
				rng = rand.New(rand.NewSource(1))
			}
			backRank := GenerateRandomBackRank(rng)
			board.FEN = Fischer960StartingFEN(backRank)
		}

	case VariantCrazyhouse:
		board.WhiteTime, board.BlackTime, board.Increment = 3*60*1000, 3*60*1000, 2*1000
		board.FEN = standardStartingFEN
		board.PocketPieces = PocketPieces{White: []PieceKind{}, Black: []PieceKind{}}
		if subvariant == CrazyhouseWithTimer {
			board.DropTimers = DropTimers{}
		}

	case VariantDecay:
		board.WhiteTime, board.BlackTime, board.Increment = 3*60*1000, 3*60*1000, 2*1000
		board.FEN = standardStartingFEN

	case VariantSixPointer:
		rng := opts.RNG
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		board.FEN = SixPointerStartingFENs[rng.Intn(len(SixPointerStartingFENs))]
		board.WhiteTime, board.BlackTime, board.Increment = 30*1000, 30*1000, 0
		board.SixPointer.MaxMoves = 6
	}

	pos, err := chessadapter.FromFEN(board.FEN)
	if err != nil {
		return nil, coreerr.Infra(coreerr.CodeInternalError, err)
	}
	board.ActiveColor = pos.SideToMove()
	return board, nil
}
