package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/adl/internal/engine"
	"github.com/roach88/adl/internal/ir"
)

func TestWriteConversion_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	rt := newTestRuntime(t, widgetAPI())
	ctx := context.Background()

	input := ir.Obj(
		ir.O("colour", ir.IRString("red")),
		ir.O("extra", ir.IRInt(9007199254740993)),
	)
	rec := recordNormalize(t, rt, input)

	seq, inserted, err := s.WriteConversion(ctx, rec)
	if err != nil {
		t.Fatalf("WriteConversion() failed: %v", err)
	}
	if !inserted || seq != 1 {
		t.Errorf("WriteConversion() = (%d, %v), want (1, true)", seq, inserted)
	}

	got, err := s.ReadConversion(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ReadConversion() failed: %v", err)
	}
	if got.RunID != "run-1" || got.API != "widgets" || got.Version != "v1" || got.Type != "Widget" {
		t.Errorf("identity fields = %+v", got)
	}
	if got.Direction != engine.ToNormalized {
		t.Errorf("Direction = %v, want to_normalized", got.Direction)
	}
	if !ir.Equal(got.Input, input) {
		t.Errorf("Input = %v, want %v", got.Input, input)
	}
	if !ir.Equal(got.Output, ir.Obj(ir.O("color", ir.IRString("red")))) {
		t.Errorf("Output = %v", got.Output)
	}
	if got.OutputHash != ir.MustPayloadHash(got.Output) {
		t.Error("stored output hash does not match stored output")
	}
	if len(got.Errors) != 0 {
		t.Errorf("Errors = %v, want none", got.Errors)
	}
}

func TestWriteConversion_Idempotent(t *testing.T) {
	s := createTestStore(t)
	rt := newTestRuntime(t, widgetAPI())
	ctx := context.Background()

	rec := recordNormalize(t, rt, ir.Obj(ir.O("colour", ir.IRString("red"))))

	if _, _, err := s.WriteConversion(ctx, rec); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	seq, inserted, err := s.WriteConversion(ctx, rec)
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if inserted {
		t.Error("second write reported inserted=true")
	}
	if seq != 1 {
		t.Errorf("second write seq = %d, want existing seq 1", seq)
	}

	all, err := s.ReadConversions(ctx, ConversionFilter{})
	if err != nil {
		t.Fatalf("ReadConversions() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d records, want 1", len(all))
	}
}

func TestWriteConversion_StoresErrorsInOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res := &engine.Result{
		RunID:   "r",
		Payload: ir.Obj(),
		Errors: []engine.ConversionError{
			{Code: engine.ErrCodeConflict, Path: "color", Message: "first"},
			{Code: engine.ErrCodeUnresolvablePath, Path: "a.b", Message: "second"},
		},
	}
	rec, err := NewConversionRecord("widgets", "v1", "Widget", engine.ToVersioned, ir.Obj(), res)
	if err != nil {
		t.Fatalf("NewConversionRecord() failed: %v", err)
	}
	if _, _, err := s.WriteConversion(ctx, rec); err != nil {
		t.Fatalf("WriteConversion() failed: %v", err)
	}

	got, err := s.ReadConversion(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ReadConversion() failed: %v", err)
	}
	if got.Direction != engine.ToVersioned {
		t.Errorf("Direction = %v", got.Direction)
	}
	if len(got.Errors) != 2 || got.Errors[0].Message != "first" || got.Errors[1].Code != engine.ErrCodeUnresolvablePath {
		t.Errorf("Errors = %+v", got.Errors)
	}
}

func TestReadConversion_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadConversion(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestReadConversions_FilterAndOrder(t *testing.T) {
	s := createTestStore(t)
	rt := newTestRuntime(t, widgetAPI())
	ctx := context.Background()

	for _, colour := range []string{"red", "green", "blue"} {
		rec := recordNormalize(t, rt, ir.Obj(ir.O("colour", ir.IRString(colour))))
		if _, _, err := s.WriteConversion(ctx, rec); err != nil {
			t.Fatalf("WriteConversion(%s) failed: %v", colour, err)
		}
	}

	all, err := s.ReadConversions(ctx, ConversionFilter{API: "widgets", Type: "Widget"})
	if err != nil {
		t.Fatalf("ReadConversions() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}
	for i, want := range []string{"red", "green", "blue"} {
		if all[i].Seq != int64(i+1) {
			t.Errorf("record %d seq = %d", i, all[i].Seq)
		}
		if all[i].Input["colour"] != ir.IRString(want) {
			t.Errorf("record %d input = %v, want colour %s", i, all[i].Input, want)
		}
	}

	none, err := s.ReadConversions(ctx, ConversionFilter{Version: "v9"})
	if err != nil {
		t.Fatalf("ReadConversions() failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ReadConversions(v9) = %v, want empty non-nil slice", none)
	}
}
