package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"corechess/internal/coreerr"
	"corechess/internal/eventbus"
	"corechess/internal/session"
	"corechess/internal/variant"
)

func newTestController(t *testing.T) (*Controller, *session.Store, *session.Session) {
	t.Helper()
	bus := eventbus.New()
	store := session.NewStore(30*time.Minute, bus, nil)
	sess, err := store.CreateSession(context.Background(), session.CreateParams{
		Variant:     variant.VariantClassic,
		Subvariant:  "blitz",
		White:       session.PlayerSummary{UserID: "alice"},
		Black:       session.PlayerSummary{UserID: "bob"},
		WhiteSource: session.SourceMatchmaking,
		BlackSource: session.SourceMatchmaking,
		RNG:         rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return NewController(store, bus), store, sess
}

func whiteAndBlack(sess *session.Session) (white, black string) {
	return sess.Players.White.UserID, sess.Players.Black.UserID
}

func TestMakeMoveAppliesAndPersistsAValidMove(t *testing.T) {
	controller, _, sess := newTestController(t)
	white, _ := whiteAndBlack(sess)

	result, err := controller.MakeMove(context.Background(), sess.ID, white, variant.Move{From: "e2", To: "e4"}, sess.Board.TurnStartTimestamp+100)
	if err != nil {
		t.Fatalf("MakeMove: %v", err)
	}
	if result.Session.Board.ActiveColor != variant.Black {
		t.Fatalf("expected turn to pass to black, got %q", result.Session.Board.ActiveColor)
	}
	if len(result.Session.Board.MoveHistory) != 1 {
		t.Fatalf("expected one recorded move, got %d", len(result.Session.Board.MoveHistory))
	}
}

func TestMakeMoveByNonPlayerFailsWithNotAPlayer(t *testing.T) {
	controller, _, sess := newTestController(t)

	_, err := controller.MakeMove(context.Background(), sess.ID, "mallory", variant.Move{From: "e2", To: "e4"}, sess.Board.TurnStartTimestamp+100)
	if err == nil || coreerr.CodeOf(err) != coreerr.CodeNotAPlayer {
		t.Fatalf("expected NOT_A_PLAYER, got %v", err)
	}
}

func TestMakeMoveOutOfTurnIsRejectedAndBoardUntouched(t *testing.T) {
	controller, store, sess := newTestController(t)
	_, black := whiteAndBlack(sess)

	_, err := controller.MakeMove(context.Background(), sess.ID, black, variant.Move{From: "e7", To: "e5"}, sess.Board.TurnStartTimestamp+100)
	if err == nil || !coreerr.IsWarning(err) {
		t.Fatalf("expected a warning-kind rejection for an out-of-turn move, got %v", err)
	}

	refreshed, err := store.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(refreshed.Board.MoveHistory) != 0 || refreshed.Board.ActiveColor != variant.White {
		t.Fatalf("expected the board to be untouched by a rejected move, got %+v", refreshed.Board)
	}
}

func TestMakeMoveOnEndedSessionFailsWithGameNotFound(t *testing.T) {
	controller, store, sess := newTestController(t)
	white, _ := whiteAndBlack(sess)

	if _, err := store.EndSession(context.Background(), sess.ID, variant.ReasonResignation, variant.Black); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	_, err := controller.MakeMove(context.Background(), sess.ID, white, variant.Move{From: "e2", To: "e4"}, 1000)
	if err == nil || coreerr.CodeOf(err) != coreerr.CodeGameNotFound {
		t.Fatalf("expected GAME_NOT_FOUND once the session has been evicted, got %v", err)
	}
}

func TestGetPossibleMovesFiltersToTheRequestedSquare(t *testing.T) {
	controller, _, sess := newTestController(t)

	moves, err := controller.GetPossibleMoves(context.Background(), sess.ID, "e2", "")
	if err != nil {
		t.Fatalf("GetPossibleMoves: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("expected 2 opening moves from e2 (e3, e4), got %d: %+v", len(moves), moves)
	}
	for _, m := range moves {
		if m.From != "e2" {
			t.Fatalf("expected every move to originate at e2, got %+v", m)
		}
	}
}

func TestResignEndsSessionWithOpponentAsWinner(t *testing.T) {
	controller, _, sess := newTestController(t)
	white, _ := whiteAndBlack(sess)

	ended, err := controller.Resign(context.Background(), sess.ID, white)
	if err != nil {
		t.Fatalf("Resign: %v", err)
	}
	if ended.Board.WinnerColor != variant.Black || ended.Board.EndReason != variant.ReasonResignation {
		t.Fatalf("expected black to win by resignation, got %+v", ended.Board)
	}
}

func TestOfferAcceptDrawEndsSessionAsMutualAgreement(t *testing.T) {
	controller, _, sess := newTestController(t)
	white, black := whiteAndBlack(sess)

	if _, err := controller.OfferDraw(context.Background(), sess.ID, white); err != nil {
		t.Fatalf("OfferDraw: %v", err)
	}
	ended, err := controller.AcceptDraw(context.Background(), sess.ID, black)
	if err != nil {
		t.Fatalf("AcceptDraw: %v", err)
	}
	if ended.Board.EndReason != variant.ReasonMutualAgreement {
		t.Fatalf("expected mutual agreement draw, got %+v", ended.Board)
	}
}

func TestAcceptDrawWithoutOutstandingOfferFails(t *testing.T) {
	controller, _, sess := newTestController(t)
	_, black := whiteAndBlack(sess)

	_, err := controller.AcceptDraw(context.Background(), sess.ID, black)
	if err == nil {
		t.Fatalf("expected accepting a nonexistent draw offer to fail")
	}
}

func TestDeclineDrawClearsTheOffer(t *testing.T) {
	controller, store, sess := newTestController(t)
	white, black := whiteAndBlack(sess)

	if _, err := controller.OfferDraw(context.Background(), sess.ID, white); err != nil {
		t.Fatalf("OfferDraw: %v", err)
	}
	if _, err := controller.DeclineDraw(context.Background(), sess.ID, black); err != nil {
		t.Fatalf("DeclineDraw: %v", err)
	}

	refreshed, err := store.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if refreshed.Metadata.DrawOffers[variant.White] {
		t.Fatalf("expected the draw offer to be cleared after decline")
	}
}
