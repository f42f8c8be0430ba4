package reference

import (
	"reflect"
	"testing"
)

func TestTableLookup(t *testing.T) {
	table := NewTable("demo", []Entry{
		{Key: "b", Title: "B"},
		{Key: "a", Title: "A"},
	})

	if table.Name() != "demo" {
		t.Fatalf("expected name demo, got %q", table.Name())
	}
	entry, ok := table.Lookup("a")
	if !ok || entry.Title != "A" {
		t.Fatalf("unexpected lookup result: %+v (ok=%v)", entry, ok)
	}
	if _, ok := table.Lookup("missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}
	if keys := table.Keys(); !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Fatalf("expected sorted keys, got %v", keys)
	}
}

func TestLibraryNames(t *testing.T) {
	library := Builtin()

	names := library.Names()
	if !reflect.DeepEqual(names, []string{"differentials", "lab-values", "mnemonics"}) {
		t.Fatalf("unexpected builtin tables: %v", names)
	}
	table, ok := library.Table("lab-values")
	if !ok {
		t.Fatalf("expected lab-values table")
	}
	if _, ok := table.Lookup("sodium"); !ok {
		t.Fatalf("expected sodium entry")
	}
}
