// Package shell turns command lines into filesystem operations and prints
// their results.
package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Op int

const (
	CmdDf Op = iota
	CmdCreate
	CmdStat
	CmdCat
	CmdRead
	CmdRm
	CmdLn
	CmdLs
	CmdMkdir
	CmdRmdir
	CmdCd
	CmdQuit
)

// Command is a parsed command line. Which fields are meaningful depends on
// Op: Name for every op with an operand, Dest for ln, Size for create and
// read, Offset for read.
type Command struct {
	Op     Op
	Name   string
	Dest   string
	Offset int64
	Size   int64
}

var ErrEmpty = errors.New("empty command")

// UsageError reports a command given too few or malformed arguments.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return "error: " + e.Usage
}

type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return e.Name + ": command not found."
}

type cmdSpec struct {
	op    Op
	nargs int
	usage string
}

var commands = map[string]cmdSpec{
	"df":     {CmdDf, 0, "df"},
	"create": {CmdCreate, 2, "create <filename> <size>"},
	"stat":   {CmdStat, 1, "stat <filename>"},
	"cat":    {CmdCat, 1, "cat <filename>"},
	"read":   {CmdRead, 3, "read <filename> <offset> <size>"},
	"rm":     {CmdRm, 1, "rm <filename>"},
	"ln":     {CmdLn, 2, "ln <src> <dest>"},
	"ls":     {CmdLs, 0, "ls"},
	"mkdir":  {CmdMkdir, 1, "mkdir <dirname>"},
	"rmdir":  {CmdRmdir, 1, "rmdir <dirname>"},
	"cd":     {CmdCd, 1, "cd <dirname>"},
	"quit":   {CmdQuit, 0, "quit"},
	"exit":   {CmdQuit, 0, "exit"},
}

// Parse splits line into a command and checks its arity. Extra arguments
// are ignored.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmpty
	}
	cs, ok := commands[fields[0]]
	if !ok {
		return Command{}, &UnknownCommandError{Name: fields[0]}
	}
	args := fields[1:]
	if len(args) < cs.nargs {
		return Command{}, &UsageError{Usage: cs.usage}
	}

	cmd := Command{Op: cs.op}
	if cs.nargs > 0 {
		cmd.Name = args[0]
	}
	var err error
	switch cs.op {
	case CmdCreate:
		cmd.Size, err = parseInt(args[1])
	case CmdRead:
		cmd.Offset, err = parseInt(args[1])
		if err == nil {
			cmd.Size, err = parseInt(args[2])
		}
	case CmdLn:
		cmd.Dest = args[1]
	}
	if err != nil {
		return Command{}, &UsageError{Usage: fmt.Sprintf("%s (%v)", cs.usage, err)}
	}
	return cmd, nil
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}
