package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	SignUp(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context) error
	Add(ctx context.Context) error
	Retry(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	Refetch(ctx context.Context) error
	History(ctx context.Context) error
	Sessions(ctx context.Context, args []string) error
	Export(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: signup, login, exit"
	helpSignedIn  = "Available commands: (l)ist, add, retry, delete <id>, refetch, whoami, history, sessions [history | revoke <id> | revoke-all], export, logout, exit"
)

// runREPL reads a line from reader, parses the first token as the command
// and dispatches to methods on a. Commands other than help, signup, login
// and exit require a signed-in user. Handler errors are printed and the
// loop continues. The loop exits on EOF or when the user types "exit" or
// "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("nk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}

		case "signup":
			cmdErr = a.SignUp(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "logout", "whoami", "l", "list", "add", "retry", "delete", "refetch", "history", "sessions", "export":
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			cmdErr = dispatchSignedIn(ctx, a, cmd, args)

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}

func dispatchSignedIn(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "l", "list":
		return a.List(ctx)
	case "add":
		return a.Add(ctx)
	case "retry":
		return a.Retry(ctx)
	case "delete":
		if len(args) == 0 {
			printlnFn("Usage: delete <id>")
			return nil
		}
		return a.Delete(ctx, args[0])
	case "refetch":
		return a.Refetch(ctx)
	case "history":
		return a.History(ctx)
	case "sessions":
		return a.Sessions(ctx, args)
	case "export":
		return a.Export(ctx)
	}
	return nil
}
