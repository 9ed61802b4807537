package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rodaine/table"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/fs"
)

const timeFormat = "2006-01-02 15:04:05.000000"

type Shell struct {
	fs     *fs.Filesystem
	out    io.Writer
	prompt string
}

func New(fsys *fs.Filesystem, out io.Writer) *Shell {
	return &Shell{fs: fsys, out: out}
}

// SetPrompt sets the string printed before each line Run reads; empty
// disables it.
func (sh *Shell) SetPrompt(p string) {
	sh.prompt = p
}

func (sh *Shell) printf(format string, a ...interface{}) {
	fmt.Fprintf(sh.out, format, a...)
}

func (sh *Shell) newTable(columns ...interface{}) table.Table {
	return table.New(columns...).WithWriter(sh.out)
}

// Exec runs one parsed command, printing its result. The returned error is
// the filesystem's; output for a failed command is left to the caller.
func (sh *Shell) Exec(cmd Command) error {
	switch cmd.Op {
	case CmdDf:
		st, err := sh.fs.Df()
		if err != nil {
			return err
		}
		tbl := sh.newTable("free blocks", "free bytes", "free inodes", "volume")
		tbl.AddRow(st.FreeBlocks, st.FreeBytes, st.FreeInodes, st.VolumeID)
		tbl.Print()
	case CmdCreate:
		inum, _, err := sh.fs.Create(cmd.Name, cmd.Size)
		if err != nil {
			return err
		}
		sh.printf("file created: %s, inode %d, size %d\n", cmd.Name, inum, cmd.Size)
	case CmdStat:
		attr, err := sh.fs.Stat(cmd.Name)
		if err != nil {
			return err
		}
		tbl := sh.newTable("field", "value")
		tbl.AddRow("inode", attr.Inum)
		tbl.AddRow("type", attr.Kind)
		tbl.AddRow("owner", attr.Owner)
		tbl.AddRow("group", attr.Group)
		tbl.AddRow("size", attr.Size)
		tbl.AddRow("links", attr.Nlink)
		tbl.AddRow("blocks", attr.BlockCount)
		tbl.AddRow("created", attr.Created.Format(timeFormat))
		tbl.AddRow("accessed", attr.LastAccess.Format(timeFormat))
		tbl.Print()
	case CmdCat:
		data, err := sh.fs.Cat(cmd.Name)
		if err != nil {
			return err
		}
		sh.printf("%s\n", data)
	case CmdRead:
		data, err := sh.fs.Read(cmd.Name, cmd.Offset, cmd.Size)
		if err != nil {
			return err
		}
		sh.printf("%s\n", data)
	case CmdRm:
		nlink, err := sh.fs.Remove(cmd.Name)
		if err != nil {
			return err
		}
		if nlink > 0 {
			sh.printf("%s: link count decremented to %d\n", cmd.Name, nlink)
		}
	case CmdLn:
		return sh.fs.Link(cmd.Name, cmd.Dest)
	case CmdLs:
		ents, err := sh.fs.Ls()
		if err != nil {
			return err
		}
		tbl := sh.newTable("type", "name", "inode", "size")
		for _, e := range ents {
			tbl.AddRow(e.Kind, e.Name, e.Inum, e.Size)
		}
		tbl.Print()
	case CmdMkdir:
		inum, err := sh.fs.Mkdir(cmd.Name)
		if err != nil {
			return err
		}
		sh.printf("directory created: %s, inode %d\n", cmd.Name, inum)
	case CmdRmdir:
		return sh.fs.Rmdir(cmd.Name)
	case CmdCd:
		return sh.fs.Cd(cmd.Name)
	case CmdQuit:
	default:
		panic(fmt.Sprintf("unknown op %d", cmd.Op))
	}
	return nil
}

// Run reads commands from r until quit, exit, end of input or ctx is done.
// Bad commands and failed operations get a one-line diagnostic and the loop
// continues; a read error or cancellation ends it early.
func (sh *Shell) Run(ctx context.Context, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if sh.prompt != "" {
			sh.printf("%s", sh.prompt)
		}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case line = <-lines:
		}
		line = strings.TrimSpace(line)
		util.DPrintf(3, "shell: %q\n", line)
		cmd, err := Parse(line)
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			sh.printf("%v\n", err)
			continue
		}
		if cmd.Op == CmdQuit {
			return nil
		}
		if err := sh.Exec(cmd); err != nil {
			sh.printf("%v\n", err)
		}
	}
}
