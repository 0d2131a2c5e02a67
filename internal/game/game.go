// Package game orchestrates a single move: load the session, derive the
// caller's color, dispatch to the right variant engine, persist the
// result, and publish an event. It is the only package above
// internal/session and internal/variant that a transport layer calls
// into - there is no socket handling here, only the six operations below.
package game

import (
	"context"

	"corechess/internal/chessadapter"
	"corechess/internal/coreerr"
	"corechess/internal/eventbus"
	"corechess/internal/session"
	"corechess/internal/variant"
)

// Controller wires a session store to the variant engines and the event
// bus. It holds no game state of its own - session.Store remains the only
// source of truth for a live game.
type Controller struct {
	sessions *session.Store
	bus      *eventbus.Bus
}

func NewController(sessions *session.Store, bus *eventbus.Bus) *Controller {
	return &Controller{sessions: sessions, bus: bus}
}

// deriveColor implements color = white.userId == userId ? white :
// black.userId == userId ? black : error. Any operation by a non-player
// fails with NOT_A_PLAYER.
func deriveColor(sess *session.Session, userID string) (variant.Color, error) {
	switch userID {
	case sess.Players.White.UserID:
		return variant.White, nil
	case sess.Players.Black.UserID:
		return variant.Black, nil
	default:
		return "", coreerr.Session(coreerr.CodeNotAPlayer, "user is not a player in this session")
	}
}

func requireActive(sess *session.Session) error {
	if sess.Status != session.StatusActive {
		return coreerr.Session(coreerr.CodeGameEnded, "session has already ended")
	}
	return nil
}

// MakeMoveResult is what MakeMove reports back to its caller - the engine
// Result plus the refreshed session, since a terminal result also flips
// the session to finished.
type MakeMoveResult struct {
	*variant.Result
	Session *session.Session
}

// MakeMove loads sessionID, verifies userID is a seated player whose turn
// it is, dispatches move to the session's engine, persists the returned
// state, finalizes the session on a terminal result, and publishes a
// game.move.applied event (plus game.ended on a terminal result).
func (c *Controller) MakeMove(ctx context.Context, sessionID, userID string, move variant.Move, now int64) (*MakeMoveResult, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(sess); err != nil {
		return nil, err
	}
	color, err := deriveColor(sess, userID)
	if err != nil {
		return nil, err
	}

	engine, err := variant.EngineFor(sess.Variant, sess.Subvariant)
	if err != nil {
		return nil, err
	}

	result, err := engine.ValidateAndApply(sess.Board, move, color, now)
	if err != nil {
		if coreerr.IsWarning(err) {
			c.bus.Publish(eventbus.Event{Kind: "game.move.rejected", Payload: map[string]any{
				"sessionId": sessionID,
				"userId":    userID,
				"error":     err.Error(),
			}})
		}
		return nil, err
	}

	updated, err := c.sessions.UpdateSession(ctx, sessionID, func(s session.Session) (session.Session, error) {
		s.Board = result.State
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	if result.GameEnded {
		updated, err = c.sessions.EndSession(ctx, sessionID, result.EndReason, result.WinnerColor)
		if err != nil {
			return nil, err
		}
	}

	c.bus.Publish(eventbus.Event{Kind: "game.move.applied", Payload: map[string]any{
		"sessionId": sessionID,
		"move":      result.Move,
		"warning":   result.Warning,
	}})
	if result.GameEnded {
		c.bus.Publish(eventbus.Event{Kind: "game.ended", Payload: map[string]any{
			"sessionId":   sessionID,
			"reason":      result.EndReason,
			"winnerColor": result.WinnerColor,
		}})
	}

	return &MakeMoveResult{Result: result, Session: updated}, nil
}

// GetPossibleMoves returns the variant-filtered legal moves originating at
// square. For Crazyhouse, square == "pocket" asks for legal drop squares
// instead and dropPiece selects which pocketed piece kind to test.
func (c *Controller) GetPossibleMoves(ctx context.Context, sessionID, square string, dropPiece variant.PieceKind) ([]chessadapter.Move, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pos, err := chessadapter.FromFEN(sess.Board.FEN)
	if err != nil {
		return nil, coreerr.Infra(coreerr.CodeInternalError, err)
	}

	if square == "pocket" {
		return possibleDropSquares(pos, dropPiece, sess.Board.ActiveColor)
	}
	return pos.LegalMovesFrom(square), nil
}

// possibleDropSquares enumerates every empty, rank-legal square and filters
// to those that don't leave the dropping side's own king in check -
// mirroring the self-check test the drop engines run at move time.
func possibleDropSquares(pos *chessadapter.Position, piece variant.PieceKind, mover variant.Color) ([]chessadapter.Move, error) {
	var out []chessadapter.Move
	files := "abcdefgh"
	for _, f := range files {
		for r := 1; r <= 8; r++ {
			square := string(f) + string(rune('0'+r))
			if _, _, occupied := pos.PieceAt(square); occupied {
				continue
			}
			if piece == chessadapter.Pawn && (r == 1 || r == 8) {
				continue
			}

			placed, err := pos.Place(piece, mover, square)
			if err != nil {
				continue
			}
			if placed.InCheck() {
				continue
			}
			out = append(out, chessadapter.Move{Drop: true, DropPiece: piece, To: square})
		}
	}
	return out, nil
}

// Resign immediately ends the session; the opponent of the resigning
// player wins.
func (c *Controller) Resign(ctx context.Context, sessionID, userID string) (*session.Session, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(sess); err != nil {
		return nil, err
	}
	color, err := deriveColor(sess, userID)
	if err != nil {
		return nil, err
	}

	ended, err := c.sessions.EndSession(ctx, sessionID, variant.ReasonResignation, color.Opponent())
	if err != nil {
		return nil, err
	}
	c.bus.Publish(eventbus.Event{Kind: "game.ended", Payload: map[string]any{
		"sessionId":   sessionID,
		"reason":      variant.ReasonResignation,
		"winnerColor": color.Opponent(),
	}})
	return ended, nil
}

// OfferDraw records a draw offer from userID's color.
func (c *Controller) OfferDraw(ctx context.Context, sessionID, userID string) (*session.Session, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(sess); err != nil {
		return nil, err
	}
	color, err := deriveColor(sess, userID)
	if err != nil {
		return nil, err
	}

	updated, err := c.sessions.UpdateSession(ctx, sessionID, func(s session.Session) (session.Session, error) {
		if s.Metadata.DrawOffers == nil {
			s.Metadata.DrawOffers = map[variant.Color]bool{}
		}
		s.Metadata.DrawOffers[color] = true
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	c.bus.Publish(eventbus.Event{Kind: "game.draw.offered", Payload: map[string]any{"sessionId": sessionID, "color": color}})
	return updated, nil
}

// AcceptDraw requires the opponent have an outstanding offer; ends the
// session as a mutually agreed draw.
func (c *Controller) AcceptDraw(ctx context.Context, sessionID, userID string) (*session.Session, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(sess); err != nil {
		return nil, err
	}
	color, err := deriveColor(sess, userID)
	if err != nil {
		return nil, err
	}
	if !sess.Metadata.DrawOffers[color.Opponent()] {
		return nil, coreerr.Session(coreerr.CodeInvalidInput, "opponent has no outstanding draw offer")
	}

	ended, err := c.sessions.EndSession(ctx, sessionID, variant.ReasonMutualAgreement, "")
	if err != nil {
		return nil, err
	}
	c.bus.Publish(eventbus.Event{Kind: "game.ended", Payload: map[string]any{
		"sessionId": sessionID,
		"reason":    variant.ReasonMutualAgreement,
	}})
	return ended, nil
}

// DeclineDraw clears the opponent's outstanding offer, if any.
func (c *Controller) DeclineDraw(ctx context.Context, sessionID, userID string) (*session.Session, error) {
	sess, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(sess); err != nil {
		return nil, err
	}
	color, err := deriveColor(sess, userID)
	if err != nil {
		return nil, err
	}

	updated, err := c.sessions.UpdateSession(ctx, sessionID, func(s session.Session) (session.Session, error) {
		delete(s.Metadata.DrawOffers, color.Opponent())
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	c.bus.Publish(eventbus.Event{Kind: "game.draw.declined", Payload: map[string]any{"sessionId": sessionID, "color": color}})
	return updated, nil
}
