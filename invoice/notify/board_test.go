package notify

import (
	"context"
	"errors"
	"testing"
)

func TestBoardReplacesByOperationID(t *testing.T) {
	board := NewBoard()
	ctx := context.Background()

	_ = board.Send(ctx, Event{OperationID: PDFOperationID, Stage: StageStart, Message: MessageGenerating})
	_ = board.Send(ctx, Event{OperationID: "invoice-delete", Stage: StageSuccess})
	_ = board.Send(ctx, Event{OperationID: PDFOperationID, Stage: StageSuccess, Message: MessageSucceeded})

	events := board.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].OperationID != PDFOperationID || events[0].Stage != StageSuccess {
		t.Fatalf("expected latest pdf event first, got %+v", events[0])
	}

	evt, ok := board.Get(PDFOperationID)
	if !ok || evt.Message != MessageSucceeded {
		t.Fatalf("expected replaced event, got %+v", evt)
	}

	board.Dismiss(PDFOperationID)
	if _, ok := board.Get(PDFOperationID); ok {
		t.Fatalf("expected event to be dismissed")
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	calls := 0
	ok := NotifierFunc(func(context.Context, Event) error {
		calls++
		return nil
	})
	fail := NotifierFunc(func(context.Context, Event) error {
		calls++
		return errors.New("down")
	})

	err := Multi{ok, nil, fail}.Send(context.Background(), Event{OperationID: PDFOperationID})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if calls != 2 {
		t.Fatalf("expected both notifiers called, got %d", calls)
	}
}
