package vm

import (
	"strings"
	"testing"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestOpenClose(t *testing.T) {
	m := Open()
	if m == nil {
		t.Fatal("Open returned nil")
	}
	if m.Closed() {
		t.Error("fresh VM should not be closed")
	}
	m.Close()
	if !m.Closed() {
		t.Error("VM should be closed after Close")
	}
	// Closing twice is a no-op.
	m.Close()
}

func TestUserDataSlot(t *testing.T) {
	m := Open()
	defer m.Close()
	if m.UserData() != nil {
		t.Error("fresh VM should have nil user data")
	}
	var payload int
	m.SetUserData(unsafe.Pointer(&payload))
	if m.UserData() == nil {
		t.Error("user data should round-trip")
	}
}

func TestCoreClassHierarchy(t *testing.T) {
	m := Open()
	defer m.Close()

	classes := []struct {
		name  string
		class Value
		super Value
	}{
		{"Exception", m.ExceptionClass, m.ObjectClass},
		{"StandardError", m.StandardErrorClass, m.ExceptionClass},
		{"RuntimeError", m.RuntimeErrorClass, m.StandardErrorClass},
		{"ArgumentError", m.ArgumentErrorClass, m.StandardErrorClass},
		{"TypeError", m.TypeErrorClass, m.StandardErrorClass},
		{"NameError", m.NameErrorClass, m.StandardErrorClass},
		{"NoMethodError", m.NoMethodErrorClass, m.NameErrorClass},
	}
	for _, tc := range classes {
		if !m.IsClass(tc.class) {
			t.Errorf("%s should be a class", tc.name)
			continue
		}
		got, ok := m.ConstGet(Nil, tc.name)
		if !ok || got != tc.class {
			t.Errorf("%s should be bound at top level", tc.name)
		}
		if !m.isSubclassOf(tc.class, tc.super) {
			t.Errorf("%s should descend from its superclass", tc.name)
		}
		if !m.isSubclassOf(tc.class, m.ExceptionClass) && tc.name != "Exception" {
			t.Errorf("%s should descend from Exception", tc.name)
		}
	}
}

// ---------------------------------------------------------------------------
// Arena protocol
// ---------------------------------------------------------------------------

func TestArenaSaveRestore(t *testing.T) {
	m := Open()
	defer m.Close()

	depth := m.ArenaSave()
	m.NewString([]byte("temporary"))
	m.NewString([]byte("another"))
	if m.ArenaSave() != depth+2 {
		t.Errorf("allocations should be protected: depth = %d, want %d", m.ArenaSave(), depth+2)
	}
	m.ArenaRestore(depth)
	if m.ArenaSave() != depth {
		t.Errorf("restore should pop to saved depth: depth = %d, want %d", m.ArenaSave(), depth)
	}
}

func TestArenaNestedLIFO(t *testing.T) {
	m := Open()
	defer m.Close()

	base := m.ArenaSave()
	outer := m.ArenaSave()
	m.NewString([]byte("a"))
	inner := m.ArenaSave()
	m.NewString([]byte("b"))
	m.NewString([]byte("c"))
	zero := m.ArenaSave() // zero-work scope
	m.ArenaRestore(zero)
	m.ArenaRestore(inner)
	m.ArenaRestore(outer)
	if m.ArenaSave() != base {
		t.Errorf("nested restores should rebalance: depth = %d, want %d", m.ArenaSave(), base)
	}
}

// ---------------------------------------------------------------------------
// Garbage collection
// ---------------------------------------------------------------------------

func TestFullGCCollectsUnprotected(t *testing.T) {
	m := Open()
	defer m.Close()
	before := m.LiveObjects()

	depth := m.ArenaSave()
	m.NewString([]byte("garbage"))
	m.NewArray([]Value{m.NewString([]byte("more"))})
	m.ArenaRestore(depth)
	m.FullGC()

	if got := m.LiveObjects(); got != before {
		t.Errorf("unrooted objects should be collected: live = %d, want %d", got, before)
	}
}

func TestFullGCKeepsProtected(t *testing.T) {
	m := Open()
	defer m.Close()

	v := m.NewString([]byte("protected"))
	m.FullGC()
	if b, ok := m.StringBytes(v); !ok || string(b) != "protected" {
		t.Error("arena-protected object should survive collection")
	}
}

func TestFullGCKeepsRooted(t *testing.T) {
	m := Open()
	defer m.Close()

	depth := m.ArenaSave()
	mod, err := m.DefineModule("Rooted", Nil)
	if err != nil {
		t.Fatalf("DefineModule: %v", err)
	}
	if err := m.ConstSet(mod, "VALUE", m.NewString([]byte("kept"))); err != nil {
		t.Fatalf("ConstSet: %v", err)
	}
	m.ArenaRestore(depth)
	m.FullGC()

	got, ok := m.ConstGet(mod, "VALUE")
	if !ok {
		t.Fatal("constant should survive collection")
	}
	if b, ok := m.StringBytes(got); !ok || string(b) != "kept" {
		t.Error("constant-rooted string should survive collection")
	}
}

// ---------------------------------------------------------------------------
// Exception slot
// ---------------------------------------------------------------------------

func TestRaiseSetsExceptionSlot(t *testing.T) {
	m := Open()
	defer m.Close()

	if m.Err() != Nil {
		t.Fatal("fresh VM should have no pending exception")
	}
	m.RaiseNamed("ArgumentError", "bad argument")
	exc := m.Err()
	if exc == Nil {
		t.Fatal("raise should set the exception slot")
	}
	if msg, ok := m.ExceptionMessage(exc); !ok || msg != "bad argument" {
		t.Errorf("exception message = %q, want %q", msg, "bad argument")
	}
	if name, ok := m.ExceptionClassName(exc); !ok || name != "ArgumentError" {
		t.Errorf("exception class = %q, want ArgumentError", name)
	}
}

func TestTakeErrClearsSlot(t *testing.T) {
	m := Open()
	defer m.Close()

	m.RaiseNamed("RuntimeError", "boom")
	exc := m.TakeErr()
	if exc == Nil {
		t.Fatal("TakeErr should return the pending exception")
	}
	if m.Err() != Nil {
		t.Error("TakeErr should clear the slot")
	}
}

func TestRaiseNamedUnknownClassFallsBack(t *testing.T) {
	m := Open()
	defer m.Close()

	m.RaiseNamed("NoSuchError", "oops")
	name, _ := m.ExceptionClassName(m.Err())
	if name != "RuntimeError" {
		t.Errorf("unknown class should fall back to RuntimeError, got %s", name)
	}
}

func TestExceptionFuncalls(t *testing.T) {
	m := Open()
	defer m.Close()

	m.Eval("raise ArgumentError.new('waffles')", "(eval)")
	exc := m.TakeErr()
	if exc == Nil {
		t.Fatal("eval should have raised")
	}
	m.Protect(exc)

	inspect, err := m.Funcall(exc, "inspect")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	b, _ := m.StringBytes(inspect)
	if string(b) != "(eval):1: waffles (ArgumentError)" {
		t.Errorf("inspect = %q", string(b))
	}

	backtrace, err := m.Funcall(exc, "backtrace")
	if err != nil {
		t.Fatalf("backtrace: %v", err)
	}
	elems, ok := m.ArrayElems(backtrace)
	if !ok || len(elems) != 1 {
		t.Fatalf("backtrace should have one frame, got %v", elems)
	}
	if b, _ := m.StringBytes(elems[0]); string(b) != "(eval):1" {
		t.Errorf("backtrace frame = %q", string(b))
	}

	joined, err := m.Funcall(backtrace, "join", m.NewString([]byte("\n")))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if b, _ := m.StringBytes(joined); !strings.Contains(string(b), "(eval):1") {
		t.Errorf("join = %q", string(b))
	}
}

func TestFuncallUnknownMethodRaises(t *testing.T) {
	m := Open()
	defer m.Close()

	_, err := m.Funcall(FromFixnum(1), "frobnicate")
	if err == nil {
		t.Fatal("unknown method should error")
	}
	name, _ := m.ExceptionClassName(m.Err())
	if name != "NoMethodError" {
		t.Errorf("exception class = %s, want NoMethodError", name)
	}
}
