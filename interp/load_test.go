package interp

import (
	"errors"
	"testing"
)

// testLoader is a native loader that evaluates a fragment of code when its
// path is required.
type testLoader struct {
	code string
}

func (l *testLoader) Require(s *State) error {
	_, err := s.Eval(l.code)
	return err
}

func requireBool(t *testing.T, s *State, name string) bool {
	t.Helper()
	v, err := s.Eval("require '" + name + "'")
	if err != nil {
		t.Fatalf("require %q: %v", name, err)
	}
	b, cerr := s.ToBool(v)
	if cerr != nil {
		t.Fatalf("require %q returned a non-boolean: %v", name, cerr)
	}
	return b
}

// ---------------------------------------------------------------------------
// Script-level require
// ---------------------------------------------------------------------------

func TestRequireLoadOnce(t *testing.T) {
	s := newState(t)

	if err := s.RegisterSource("file.rb", []byte("@i = 255")); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}

	if !requireBool(t, s, "file") {
		t.Error("first require should return true")
	}
	v, err := s.Eval("@i")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if n, _ := s.ToInt(v); n != 255 {
		t.Errorf("@i = %d, want 255", n)
	}

	if requireBool(t, s, "file") {
		t.Error("second require should return false")
	}
	// The .rb candidate resolves to the same loaded file.
	if requireBool(t, s, "file.rb") {
		t.Error("require of the resolved candidate should return false")
	}
}

func TestRequireMissing(t *testing.T) {
	s := newState(t)

	_, err := s.Eval("require 'non-existent-source'")
	if err == nil {
		t.Fatal("require of a missing file should fail")
	}
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T, want *ExecError", err)
	}
	want := "(eval):1: cannot load such file -- non-existent-source (LoadError)\n(eval):1"
	if execErr.Output != want {
		t.Errorf("output = %q, want %q", execErr.Output, want)
	}
}

func TestRequireDirectoryIsNotAFile(t *testing.T) {
	s := newState(t)

	_, err := s.Eval("require '/src'")
	if err == nil {
		t.Fatal("require of a directory should fail")
	}
	want := "(eval):1: cannot load such file -- /src (LoadError)\n(eval):1"
	if err.Error() != want {
		t.Errorf("output = %q, want %q", err.Error(), want)
	}
}

func TestRequireAbsolutePath(t *testing.T) {
	s := newState(t)

	if err := s.RegisterSource("/foo/bar/source.rb", []byte("@abs = 1")); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}

	if !requireBool(t, s, "/foo/bar/source.rb") {
		t.Error("first require should return true")
	}
	if requireBool(t, s, "/foo/bar/source.rb") {
		t.Error("second require should return false")
	}
	// An absolute name has exactly one candidate; no .rb completion.
	_, err := s.Eval("require '/foo/bar/source'")
	if err == nil {
		t.Error("absolute require without extension should fail")
	}
}

func TestRequireNativeLoaderBeforeSource(t *testing.T) {
	// The source references a constant only the native loader defines; it
	// evaluates cleanly only if the loader ran first. Registration order
	// must not matter.
	loader := "module Petal\n  NATIVE = 7\nend"
	source := "module Petal\n  SUM = Petal::NATIVE + 3\nend"

	t.Run("loader registered first", func(t *testing.T) {
		s := newState(t)
		if err := s.RegisterNativeLoader("combined.rb", &testLoader{code: loader}); err != nil {
			t.Fatalf("RegisterNativeLoader: %v", err)
		}
		if err := s.RegisterSource("combined.rb", []byte(source)); err != nil {
			t.Fatalf("RegisterSource: %v", err)
		}
		if !requireBool(t, s, "combined") {
			t.Error("require should return true")
		}
		v, err := s.Eval("Petal::SUM")
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if n, _ := s.ToInt(v); n != 10 {
			t.Errorf("Petal::SUM = %d, want 10", n)
		}
	})

	t.Run("source registered first", func(t *testing.T) {
		s := newState(t)
		if err := s.RegisterSource("combined.rb", []byte(source)); err != nil {
			t.Fatalf("RegisterSource: %v", err)
		}
		if err := s.RegisterNativeLoader("combined.rb", &testLoader{code: loader}); err != nil {
			t.Fatalf("RegisterNativeLoader: %v", err)
		}
		if !requireBool(t, s, "combined") {
			t.Error("require should return true")
		}
		v, err := s.Eval("Petal::SUM")
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if n, _ := s.ToInt(v); n != 10 {
			t.Errorf("Petal::SUM = %d, want 10", n)
		}
	})
}

func TestRequireLoaderOnlyPath(t *testing.T) {
	s := newState(t)

	if err := s.RegisterNativeLoader("native-only.rb", &testLoader{code: "@native = true"}); err != nil {
		t.Fatalf("RegisterNativeLoader: %v", err)
	}
	if !requireBool(t, s, "native-only") {
		t.Error("require of a loader-only path should return true")
	}
	v, err := s.Eval("@native")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if b, _ := s.ToBool(v); !b {
		t.Error("native loader should have run")
	}
	if requireBool(t, s, "native-only") {
		t.Error("second require should return false")
	}
}

func TestRequireSourceErrorPropagates(t *testing.T) {
	s := newState(t)

	if err := s.RegisterSource("broken.rb", []byte("raise 'kaboom'")); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}
	_, err := s.Eval("require 'broken'")
	if err == nil {
		t.Fatal("require of a raising source should fail")
	}
	// The backtrace walks out of the required file into the requiring eval.
	want := "/src/lib/broken.rb:1: kaboom (RuntimeError)\n/src/lib/broken.rb:1\n(eval):1"
	if err.Error() != want {
		t.Errorf("output = %q, want %q", err.Error(), want)
	}

	// A failed load is not marked loaded; requiring again retries.
	_, err = s.Eval("require 'broken'")
	if err == nil {
		t.Error("requiring a broken source again should fail again")
	}
}

func TestRequireArgumentErrors(t *testing.T) {
	s := newState(t)

	if _, err := s.Eval("require 1"); err == nil {
		t.Error("require of a non-string should raise TypeError")
	}
	if _, err := s.Eval("require"); err == nil {
		t.Error("require with no arguments should raise ArgumentError")
	}
}

// ---------------------------------------------------------------------------
// Host-level require
// ---------------------------------------------------------------------------

func TestHostRequire(t *testing.T) {
	s := newState(t)

	if err := s.RegisterSource("hostfile.rb", []byte("@h = 3")); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}

	loaded, err := s.Require("hostfile")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if !loaded {
		t.Error("first require should report new work")
	}
	loaded, err = s.Require("hostfile")
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if loaded {
		t.Error("second require should report no new work")
	}
}

func TestHostRequireMissing(t *testing.T) {
	s := newState(t)

	_, err := s.Require("nope")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error type = %T, want *LoadError", err)
	}
	if loadErr.Name != "nope" {
		t.Errorf("Name = %q, want nope", loadErr.Name)
	}
	if loadErr.Error() != "cannot load such file -- nope" {
		t.Errorf("message = %q", loadErr.Error())
	}

	// A directory misses the same way a missing file does.
	_, err = s.Require("/src")
	if !errors.As(err, &loadErr) {
		t.Fatalf("directory require error type = %T, want *LoadError", err)
	}
}

func TestHostRequireSourceError(t *testing.T) {
	s := newState(t)

	if err := s.RegisterSource("bad.rb", []byte("raise ArgumentError")); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}
	_, err := s.Require("bad")
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("error type = %T, want *ExecError", err)
	}
}

func TestRequireLeavesContextBalanced(t *testing.T) {
	s := newState(t)

	if err := s.RegisterSource("ok.rb", []byte("@x = 1")); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}
	if err := s.RegisterSource("bad.rb", []byte("raise 'no'")); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}

	if _, err := s.Require("ok"); err != nil {
		t.Fatalf("Require: %v", err)
	}
	_, _ = s.Require("bad")

	if _, ok := s.TopContext(); ok {
		t.Error("context stack should be empty after require")
	}
}
