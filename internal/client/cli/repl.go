package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to. App
// satisfies it; tests provide a stub. All REPL output goes through println
// and printf so it shares one writer with the status watcher.
type execIface interface {
	isLoggedIn() bool
	println(args ...any)
	printf(format string, args ...any)
	Login(ctx context.Context, provider string) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Delete(ctx context.Context, id string) error
	Reload(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// It returns on EOF, on "exit"/"quit" or when ctx is done. With prompt set,
// "gm (status)> " is printed before each read.
//
// Handler errors are not reported here: the store turns them into the
// user-visible message, which the status watcher prints.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, prompt bool) {
	for ctx.Err() == nil {
		if prompt {
			a.printf("gm%s> ", statusFn())
		}

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) > 0 {
			if !dispatch(ctx, a, parts[0], parts[1:]) {
				return
			}
		}

		if err != nil {
			return
		}
	}
}

// dispatch runs one command and reports whether the loop should continue.
func dispatch(ctx context.Context, a execIface, cmd string, args []string) bool {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			a.println("Available commands: (l)ist, add [title] [url], delete <id>, reload, whoami, logout, exit")
		} else {
			a.println("Available commands: login [provider], whoami, exit")
		}

	case "login":
		provider := ""
		if len(args) > 0 {
			provider = args[0]
		}
		_ = a.Login(ctx, provider)

	case "logout":
		_ = a.Logout(ctx)

	case "whoami":
		_ = a.WhoAmI(ctx)

	case "l", "list":
		_ = a.List(ctx)

	case "add":
		_ = a.Add(ctx, args)

	case "delete", "rm":
		if len(args) == 0 {
			a.println("Usage: delete <id>")
			return true
		}
		_ = a.Delete(ctx, args[0])

	case "reload":
		_ = a.Reload(ctx)

	case "exit", "quit":
		a.println("Bye!")
		return false

	default:
		a.println("Unknown command:", cmd)
	}
	return true
}
