package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	statusLine() string
	Status(ctx context.Context) error
	Events(ctx context.Context) error
	Registrations(ctx context.Context, args []string) error
	Checkin(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Stats(ctx context.Context) error
	Login(ctx context.Context) error
}

// runREPL reads a line from the scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are
// reported back to the user. The loop exits on scanner EOF or when the
// user types "exit" or "quit".
//
// Commands:
//
//	help                     — show available commands
//	status                   — connection mode, pending queue, last sync
//	eventos                  — list events in the local cache
//	inscricoes <evento_id>   — list registrations for an event
//	checkin <inscricao_id>   — register attendance (queued when offline)
//	sync                     — push queued check-ins to the server
//	stats                    — cache counters
//	login                    — enter a bearer token
//	exit | quit              — leave the program
//
// Errors returned by command handlers are reported and swallowed here;
// a failed command never ends the session.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("presenca %s> ", a.statusLine()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn("Available commands: status, eventos, inscricoes <evento_id>, checkin <inscricao_id>, sync, stats, login, exit")

		case "status":
			err = a.Status(ctx)

		case "e", "eventos":
			err = a.Events(ctx)

		case "i", "inscricoes":
			err = a.Registrations(ctx, args)

		case "c", "checkin":
			err = a.Checkin(ctx, args)

		case "sync":
			err = a.Sync(ctx)

		case "stats":
			err = a.Stats(ctx)

		case "login":
			err = a.Login(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
