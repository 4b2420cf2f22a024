package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/hallpass/id"
)

// failingSink always errors; the registry must log and keep going.
type failingSink struct{}

func (f *failingSink) Name() string { return "failing" }

func (f *failingSink) Record(_ context.Context, _ *Entry) error {
	return errors.New("sink down")
}

func TestRegistryDispatch(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	rec := NewRecorder()
	reg.Register(rec)

	if len(reg.Sinks()) != 1 {
		t.Fatalf("expected 1 sink, got %d", len(reg.Sinks()))
	}

	reg.Emit(ctx, &Entry{
		ID:         id.NewAuditID(),
		Action:     ActionGrantAdded,
		Permission: "scan",
	})

	entries := rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Action != ActionGrantAdded {
		t.Errorf("expected action %q, got %q", ActionGrantAdded, entries[0].Action)
	}
	if entries[0].Permission != "scan" {
		t.Errorf("expected permission scan, got %q", entries[0].Permission)
	}
}

func TestRegistryContinuesPastFailingSink(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(slog.Default())

	rec := NewRecorder()
	reg.Register(&failingSink{})
	reg.Register(rec)

	reg.Emit(ctx, &Entry{ID: id.NewAuditID(), Action: ActionGrantRemoved})

	if len(rec.Entries()) != 1 {
		t.Fatal("entry did not reach the sink after a failing one")
	}
}

func TestRecorderCopiesEntries(t *testing.T) {
	rec := NewRecorder()
	e := &Entry{ID: id.NewAuditID(), Action: ActionGrantAdded, Permission: "admin"}
	if err := rec.Record(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	e.Permission = "mutated"
	if rec.Entries()[0].Permission != "admin" {
		t.Error("recorder must copy entries, not alias them")
	}
}
