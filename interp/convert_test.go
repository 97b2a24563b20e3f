package interp

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Round trips
// ---------------------------------------------------------------------------

func TestConvertBool(t *testing.T) {
	s := newState(t)

	for _, b := range []bool{true, false} {
		got, cerr := s.ToBool(s.BoolValue(b))
		if cerr != nil || got != b {
			t.Errorf("bool %v round trip = %v (%v)", b, got, cerr)
		}
	}
}

func TestConvertInt(t *testing.T) {
	s := newState(t)

	for _, n := range []int64{0, 1, -1, 255, 1 << 40} {
		got, cerr := s.ToInt(s.IntValue(n))
		if cerr != nil || got != n {
			t.Errorf("int %d round trip = %d (%v)", n, got, cerr)
		}
	}
}

func TestConvertIntOutOfRangePanics(t *testing.T) {
	s := newState(t)

	defer func() {
		if recover() == nil {
			t.Error("IntValue outside the fixnum range should panic")
		}
	}()
	s.IntValue(1 << 50)
}

func TestConvertFloat(t *testing.T) {
	s := newState(t)

	got, cerr := s.ToFloat(s.FloatValue(2.5))
	if cerr != nil || got != 2.5 {
		t.Errorf("float round trip = %v (%v)", got, cerr)
	}
}

func TestConvertString(t *testing.T) {
	s := newState(t)
	arena := s.ArenaSavepoint()
	defer arena.Restore()

	got, cerr := s.ToString(s.StringValue("petal"))
	if cerr != nil || got != "petal" {
		t.Errorf("string round trip = %q (%v)", got, cerr)
	}
}

func TestConvertBytes(t *testing.T) {
	s := newState(t)
	arena := s.ArenaSavepoint()
	defer arena.Restore()

	raw := []byte{0xff, 0x00, 0x7f}
	got, cerr := s.ToBytes(s.BytesValue(raw))
	if cerr != nil {
		t.Fatalf("ToBytes: %v", cerr)
	}
	if string(got) != string(raw) {
		t.Errorf("bytes round trip = %v, want %v", got, raw)
	}
}

func TestConvertList(t *testing.T) {
	s := newState(t)
	arena := s.ArenaSavepoint()
	defer arena.Restore()

	list := s.ListValue([]Value{s.IntValue(1), s.StringValue("two"), s.NilValue()})
	items, cerr := s.ToList(list)
	if cerr != nil {
		t.Fatalf("ToList: %v", cerr)
	}
	if len(items) != 3 {
		t.Fatalf("list length = %d, want 3", len(items))
	}
	if n, _ := s.ToInt(items[0]); n != 1 {
		t.Errorf("items[0] = %d", n)
	}
	if str, _ := s.ToString(items[1]); str != "two" {
		t.Errorf("items[1] = %q", str)
	}
	if !items[2].IsNil() {
		t.Error("items[2] should be nil")
	}
}

// ---------------------------------------------------------------------------
// Shape mismatches
// ---------------------------------------------------------------------------

func TestConversionErrors(t *testing.T) {
	s := newState(t)
	arena := s.ArenaSavepoint()
	defer arena.Restore()

	if _, cerr := s.ToBool(s.IntValue(1)); cerr == nil {
		t.Error("ToBool of an integer should fail")
	} else if cerr.Expected != ShapeBool || cerr.Actual != ShapeInt {
		t.Errorf("shapes = %v/%v, want bool/integer", cerr.Expected, cerr.Actual)
	}
	if _, cerr := s.ToInt(s.FloatValue(2.5)); cerr == nil {
		t.Error("ToInt of a float should fail")
	}
	if _, cerr := s.ToFloat(s.IntValue(1)); cerr == nil {
		t.Error("ToFloat of an integer should fail")
	}
	if _, cerr := s.ToString(s.NilValue()); cerr == nil {
		t.Error("ToString of nil should fail")
	} else if cerr.Actual != ShapeNil {
		t.Errorf("actual shape = %v, want nil", cerr.Actual)
	}
	if _, cerr := s.ToList(s.StringValue("not a list")); cerr == nil {
		t.Error("ToList of a string should fail")
	}
}

func TestConvertStringRejectsInvalidUTF8(t *testing.T) {
	s := newState(t)
	arena := s.ArenaSavepoint()
	defer arena.Restore()

	v := s.BytesValue([]byte{0xff, 0xfe})
	if _, cerr := s.ToString(v); cerr == nil {
		t.Error("ToString of invalid UTF-8 should fail")
	} else if cerr.Expected != ShapeString || cerr.Actual != ShapeBytes {
		t.Errorf("shapes = %v/%v, want string/bytes", cerr.Expected, cerr.Actual)
	}
	// The same content is reachable as raw bytes.
	if b, cerr := s.ToBytes(v); cerr != nil || len(b) != 2 {
		t.Error("ToBytes should accept invalid UTF-8 content")
	}
}

func TestConvertBytesDetached(t *testing.T) {
	s := newState(t)
	arena := s.ArenaSavepoint()
	defer arena.Restore()

	v := s.BytesValue([]byte("abc"))
	b, cerr := s.ToBytes(v)
	if cerr != nil {
		t.Fatalf("ToBytes: %v", cerr)
	}
	b[0] = 'z'
	again, _ := s.ToBytes(v)
	if string(again) != "abc" {
		t.Error("ToBytes should return a copy, not a view")
	}
}
