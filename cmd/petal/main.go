// Petal CLI - evaluate Petal code against an embedded interpreter.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/petal-lang/petal/bundle"
	"github.com/petal-lang/petal/interp"
	"github.com/petal-lang/petal/manifest"

	_ "github.com/tliron/commonlog/simple"
)

const historyFile = ".petal_history"

func main() {
	os.Exit(run())
}

func run() int {
	verbose := flag.Bool("v", false, "Verbose logging")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	evalCode := flag.String("e", "", "Evaluate a line of code and print the result")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: petal [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Evaluates Petal source files on an embedded interpreter. When a\n")
		fmt.Fprintf(os.Stderr, "petal.toml project is found, its sources are bundled and installed\n")
		fmt.Fprintf(os.Stderr, "on the interpreter's load path first.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	state, err := interp.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer state.Close()

	if err := installProject(state); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *evalCode != "" {
		result, err := state.Eval(*evalCode)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(result.Inspect())
		return 0
	}

	for _, file := range flag.Args() {
		content, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		abs, err := filepath.Abs(file)
		if err != nil {
			abs = file
		}
		if _, err := state.EvalWithContext(string(content), interp.EvalContext{Filename: abs}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if *interactive || (flag.NArg() == 0 && *evalCode == "") {
		return repl(state)
	}
	return 0
}

// installProject bundles and installs petal.toml sources when a project is
// found above the working directory.
func installProject(state *interp.State) error {
	m, err := manifest.FindAndLoad(".")
	if err != nil || m == nil {
		return err
	}
	b, err := bundle.Build(m)
	if err != nil {
		return err
	}
	if err := b.Install(state); err != nil {
		return err
	}
	if m.Source.Entry != "" {
		if _, err := state.Require(m.Source.Entry); err != nil {
			return err
		}
	}
	return nil
}

func repl(state *interp.State) int {
	fmt.Println("petal interactive - type :quit to exit")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("petal> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			return 0
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed == ":quit" {
			return 0
		}

		result, err := state.Eval(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println("=> " + result.Inspect())
		ln.AppendHistory(line)
	}
}
