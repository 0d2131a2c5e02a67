// Package chessadapter is the thin façade over github.com/notnil/chess that
// every variant engine is built on. It speaks FEN in, FEN out, and exposes
// verbose legal moves rather than the engine's own move type, so nothing
// above this package needs to import notnil/chess directly.
//
// Positions are rebuilt from FEN on every call rather than kept alive across
// engine invocations; there is no cross-call history here, on purpose -
// repetition tracking lives one layer up, in the variant engines'
// repetitionMap, so it survives a session being serialized and reloaded.
package chessadapter

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/notnil/chess"
)

// legalMovesCache memoizes LegalMoves by FEN: positions are rebuilt fresh
// from FEN on every engine call (see package doc), so the same FEN is
// frequently re-enumerated (by getPossibleMoves's per-square filter and
// SixPointer's move lookup, both via LegalMovesFrom) across a busy
// session's repeated polling. The terminal checks read the library's own
// game status and do not go through this cache. Bounded so a long-running
// process can't grow it unbounded across many distinct games.
var legalMovesCache, _ = lru.New[string, []Move](4096)

type Color string

const (
	White Color = "w"
	Black Color = "b"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

type PieceKind string

const (
	Pawn   PieceKind = "p"
	Knight PieceKind = "n"
	Bishop PieceKind = "b"
	Rook   PieceKind = "r"
	Queen  PieceKind = "q"
	King   PieceKind = "k"
)

// Move is the verbose move shape every caller above this package works with.
type Move struct {
	From      string
	To        string
	Promotion PieceKind
	Drop      bool
	DropPiece PieceKind
	SAN       string
	Captured  PieceKind
	HasCapture bool
}

// ErrIllegal is returned by Apply when the requested move is not among the
// legal moves of the loaded position.
var ErrIllegal = fmt.Errorf("illegal move")

// Position wraps a single notnil/chess.Game built from one FEN string.
type Position struct {
	game *chess.Game
}

// FromFEN parses fen into a Position, failing with a wrapped error the
// caller should map to INVALID_FEN.
func FromFEN(fen string) (*Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	g := chess.NewGame(opt)
	return &Position{game: g}, nil
}

// FEN returns the canonical serialization of the current position.
func (p *Position) FEN() string {
	return p.game.FEN()
}

func (p *Position) SideToMove() Color {
	if p.game.Position().Turn() == chess.White {
		return White
	}
	return Black
}

func (p *Position) InCheck() bool {
	return p.game.Position().InCheck()
}

func (p *Position) IsCheckmate() bool {
	return p.game.Method() == chess.Checkmate
}

func (p *Position) IsStalemate() bool {
	return p.game.Method() == chess.Stalemate
}

func (p *Position) IsInsufficientMaterial() bool {
	return p.game.Method() == chess.InsufficientMaterial
}

// IsDraw reports whether the library itself considers the loaded position an
// immediate draw (stalemate or insufficient material). Threefold repetition
// and the fifty-move rule are intentionally not delegated - see package doc.
func (p *Position) IsDraw() bool {
	return p.game.Outcome() == chess.Draw
}

// PieceAt returns the piece occupying square, if any.
func (p *Position) PieceAt(square string) (PieceKind, Color, bool) {
	sq, err := parseSquare(square)
	if err != nil {
		return "", "", false
	}
	piece := p.game.Position().Board().Piece(sq)
	if piece == chess.NoPiece {
		return "", "", false
	}
	return pieceKindOf(piece), colorOf(piece), true
}

// LegalMoves enumerates every legal move from the current position, verbose
// fields populated (including capture detection, needed by the Crazyhouse
// engines to decide what lands in a pocket).
func (p *Position) LegalMoves() []Move {
	fen := p.game.FEN()
	if cached, ok := legalMovesCache.Get(fen); ok {
		return cached
	}

	valid := p.game.ValidMoves()
	pos := p.game.Position()
	moves := make([]Move, 0, len(valid))
	for _, m := range valid {
		moves = append(moves, p.describeMove(pos, m))
	}

	legalMovesCache.Add(fen, moves)
	return moves
}

// LegalMovesFrom filters LegalMoves to those originating at square.
func (p *Position) LegalMovesFrom(square string) []Move {
	all := p.LegalMoves()
	out := make([]Move, 0)
	for _, m := range all {
		if m.From == square {
			out = append(out, m)
		}
	}
	return out
}

func (p *Position) describeMove(pos *chess.Position, m *chess.Move) Move {
	out := Move{
		From:      m.S1().String(),
		To:        m.S2().String(),
		Promotion: promoKind(m.Promo()),
		SAN:       chess.AlgebraicNotation{}.Encode(pos, m),
	}
	if m.HasTag(chess.EnPassant) {
		out.HasCapture = true
		out.Captured = Pawn
	} else if m.HasTag(chess.Capture) {
		if victim := pos.Board().Piece(m.S2()); victim != chess.NoPiece {
			out.HasCapture = true
			out.Captured = pieceKindOf(victim)
		}
	}
	return out
}

// Apply looks up move among the current position's legal moves (matching
// from/to/promotion) and applies it in place, returning the applied move
// with capture info filled in. ErrIllegal is returned (wrapped) if no legal
// move matches.
func (p *Position) Apply(move Move) (Move, error) {
	pos := p.game.Position()
	for _, m := range p.game.ValidMoves() {
		if m.S1().String() != move.From || m.S2().String() != move.To {
			continue
		}
		if move.Promotion != "" && promoKind(m.Promo()) != move.Promotion {
			continue
		}
		applied := p.describeMove(pos, m)
		if err := p.game.Move(m); err != nil {
			return Move{}, fmt.Errorf("apply move: %w", err)
		}
		return applied, nil
	}
	return Move{}, ErrIllegal
}

// Place performs the FEN board surgery notnil/chess has no native primitive
// for: it writes piece onto square and bumps the halfmove clock the way a
// non-capturing, non-pawn move would, but deliberately leaves the side to
// move untouched so the caller can test InCheck() against the piece's own
// color before committing to the move (a drop that leaves your own king in
// check is illegal, same as any other move). Call FlipTurn on the result
// once the drop is confirmed legal. Used only by the Crazyhouse engines.
func (p *Position) Place(piece PieceKind, color Color, square string) (*Position, error) {
	board, turn, castling, _, halfmove, fullmove, err := splitFEN(p.FEN())
	if err != nil {
		return nil, err
	}
	ranks, err := parseBoard(board)
	if err != nil {
		return nil, err
	}
	file, rank, err := squareIndices(square)
	if err != nil {
		return nil, err
	}
	if ranks[rank][file] != 0 {
		return nil, fmt.Errorf("square %s occupied", square)
	}
	ranks[rank][file] = pieceGlyph(piece, color)

	newFEN := fmt.Sprintf("%s %s %s - %d %d", renderBoard(ranks), turn, castling, halfmove+1, fullmove)
	return FromFEN(newFEN)
}

// FlipTurn advances the side to move (and fullmove counter, on black's
// turn) without touching the board, clearing any en-passant target.
func FlipTurn(fen string) (string, error) {
	board, turn, castling, _, halfmove, fullmove, err := splitFEN(fen)
	if err != nil {
		return "", err
	}
	nextTurn, nextFullmove := "b", fullmove
	if turn == "b" {
		nextTurn, nextFullmove = "w", fullmove+1
	}
	return fmt.Sprintf("%s %s %s - %d %d", board, nextTurn, castling, halfmove, nextFullmove), nil
}

func promoKind(pt chess.PieceType) PieceKind {
	switch pt {
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	default:
		return ""
	}
}

func pieceKindOf(p chess.Piece) PieceKind {
	switch p.Type() {
	case chess.Pawn:
		return Pawn
	case chess.Knight:
		return Knight
	case chess.Bishop:
		return Bishop
	case chess.Rook:
		return Rook
	case chess.Queen:
		return Queen
	case chess.King:
		return King
	}
	return ""
}

func colorOf(p chess.Piece) Color {
	if p.Color() == chess.White {
		return White
	}
	return Black
}

func parseSquare(square string) (chess.Square, error) {
	file, rank, err := squareIndices(square)
	if err != nil {
		return 0, err
	}
	return chess.NewSquare(chess.File(file), chess.Rank(rankToChessRank(rank))), nil
}

// rankToChessRank converts our 0=rank8..7=rank1 index into notnil/chess's
// Rank type, where Rank1 is the smallest value.
func rankToChessRank(arrayRank int) int {
	return 7 - arrayRank
}

func squareIndices(square string) (file, rank int, err error) {
	if len(square) != 2 {
		return 0, 0, fmt.Errorf("invalid square %q", square)
	}
	f := square[0]
	r := square[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return 0, 0, fmt.Errorf("invalid square %q", square)
	}
	file = int(f - 'a')
	rank = 8 - int(r-'0') // 0 => rank8, 7 => rank1
	return file, rank, nil
}
