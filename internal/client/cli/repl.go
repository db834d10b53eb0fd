package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Tasks(ctx context.Context, args []string) error
	AddTask(ctx context.Context, args []string) error
	CompleteTask(ctx context.Context, args []string) error
	DeleteTask(ctx context.Context, args []string) error
	Payments(ctx context.Context) error
	ComplianceLogs(ctx context.Context) error
	Training(ctx context.Context) error
	Sync(ctx context.Context) error
	Pull(ctx context.Context, args []string) error
	Status(ctx context.Context) error
	Clear(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, status, sync, clear, exit"
	helpLoggedIn  = "Available commands: tasks [status], add <title>, done <id>, rm <id>, " +
		"payments, logs, training, sync, pull [table], status, whoami, logout, clear, exit"
)

// runREPL reads commands from reader until EOF, "exit" or "quit".
// Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("sw (%s) > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
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
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "tasks", "t":
			cmdErr = a.Tasks(ctx, args)
		case "add":
			cmdErr = a.AddTask(ctx, args)
		case "done":
			cmdErr = a.CompleteTask(ctx, args)
		case "rm":
			cmdErr = a.DeleteTask(ctx, args)
		case "payments":
			cmdErr = a.Payments(ctx)
		case "logs":
			cmdErr = a.ComplianceLogs(ctx)
		case "training":
			cmdErr = a.Training(ctx)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "pull":
			cmdErr = a.Pull(ctx, args)
		case "status":
			cmdErr = a.Status(ctx)
		case "clear":
			cmdErr = a.Clear(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
