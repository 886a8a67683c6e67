// Command rlox is the thin driver spec §6 calls "out of scope": it only
// forwards source text to a Session and translates the result into an
// exit code. Shape (REPL loop, file mode, recover-and-log panic guard)
// is grounded on the teacher's cmd/noxy/main.go.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"rlox"
	"rlox/internal/vm"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorln("rlox: panic:", r)
			logrus.Debugln(string(debug.Stack()))
			os.Exit(70)
		}
	}()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var trace, disassemble bool
	var positional []string

	for _, a := range args {
		switch a {
		case "--trace", "-t":
			trace = true
		case "--disassemble", "-d":
			disassemble = true
		case "--version":
			fmt.Fprintln(stdout, "rlox 0.1.0")
			return 0
		case "--help":
			fmt.Fprintln(stdout, "Usage: rlox [path]")
			return 0
		default:
			positional = append(positional, a)
		}
	}

	if trace {
		logrus.SetLevel(logrus.DebugLevel)
	}

	switch len(positional) {
	case 0:
		return repl(stdin, stdout, stderr, trace)
	case 1:
		return runFile(positional[0], stdout, stderr, trace, disassemble)
	default:
		fmt.Fprintln(stderr, "Usage: rlox [path]")
		return 64
	}
}

// repl mirrors original_source/src/main.rs's loop exactly: prompt "> ",
// an empty line ends the session, garbage_collect runs between lines.
func repl(stdin io.Reader, stdout, stderr io.Writer, trace bool) int {
	session := rlox.NewSession()
	session.SetStdout(stdout)
	session.SetTrace(trace)

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			return 0
		}
		line := scanner.Text()
		if line == "" {
			return 0
		}
		if err := session.Interpret(line); err != nil {
			fmt.Fprint(stderr, err.Error())
		}
		session.GarbageCollect()
	}
}

func runFile(path string, stdout, stderr io.Writer, trace, disassemble bool) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdout, "Could not read file %q.\n", path)
		return 74
	}

	if disassemble {
		if listing, cerr := rlox.DisassembleOnly(string(src)); cerr == nil {
			fmt.Fprint(stdout, listing)
		}
	}

	session := rlox.NewSession()
	session.SetStdout(stdout)
	session.SetTrace(trace)

	if runErr := session.Interpret(string(src)); runErr != nil {
		fmt.Fprint(stderr, runErr.Error())
		return exitCodeFor(runErr)
	}
	return 0
}

func exitCodeFor(err error) int {
	var runtimeErr *vm.RuntimeError
	if errors.As(err, &runtimeErr) {
		return 70
	}
	return 65
}
