// Package dir implements directory blocks: a count followed by a fixed
// array of (name, inode) entries. Entry 0 is always "." and, except in the
// root, entry 1 is "..".
package dir

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/common"
)

// MAXNAMELEN is the longest name that fits an entry with its NUL.
const MAXNAMELEN = common.MaxNameLen - 1

type Entry struct {
	Name string
	Inum common.Inum
}

type Dir struct {
	Entries []Entry
}

func IllegalName(name string) bool {
	return name == "" || uint64(len(name)) > MAXNAMELEN ||
		bytes.IndexByte([]byte(name), 0) >= 0
}

// MkRootDir returns the root directory, which has only ".".
func MkRootDir(self common.Inum) *Dir {
	return &Dir{Entries: []Entry{{Name: ".", Inum: self}}}
}

func MkDir(self common.Inum, parent common.Inum) *Dir {
	return &Dir{Entries: []Entry{
		{Name: ".", Inum: self},
		{Name: "..", Inum: parent},
	}}
}

func (d *Dir) NumEntry() uint64 {
	return uint64(len(d.Entries))
}

// Self is the inode of the directory itself.
func (d *Dir) Self() common.Inum {
	return d.Entries[0].Inum
}

// Lookup scans for an exact name match.
func (d *Dir) Lookup(name string) (common.Inum, bool) {
	i := d.index(name)
	if i < 0 {
		return 0, false
	}
	return d.Entries[i].Inum, true
}

func (d *Dir) index(name string) int {
	for i, de := range d.Entries {
		if de.Name == name {
			return i
		}
	}
	return -1
}

// Add appends an entry. Callers check capacity and uniqueness first.
func (d *Dir) Add(name string, inum common.Inum) {
	if d.NumEntry() >= common.MaxDirEntry || IllegalName(name) {
		panic(fmt.Sprintf("dir: cannot add %q", name))
	}
	util.DPrintf(5, "dir add %q -> %d\n", name, inum)
	d.Entries = append(d.Entries, Entry{Name: name, Inum: inum})
}

// Remove deletes name by moving the last entry into its slot, so the order
// of the remaining entries is not preserved.
func (d *Dir) Remove(name string) bool {
	i := d.index(name)
	if i < 0 {
		return false
	}
	last := len(d.Entries) - 1
	util.DPrintf(5, "dir remove %q slot %d <- %d\n", name, i, last)
	d.Entries[i] = d.Entries[last]
	d.Entries = d.Entries[:last]
	return true
}

// IsEmpty reports whether only "." and ".." remain.
func (d *Dir) IsEmpty() bool {
	return d.NumEntry() <= 2
}

func (d *Dir) Encode() []byte {
	enc := marshal.NewEnc(common.BlockSize)
	enc.PutInt32(uint32(len(d.Entries)))
	for _, de := range d.Entries {
		name := make([]byte, common.MaxNameLen)
		copy(name, de.Name)
		enc.PutBytes(name)
		enc.PutInt32(uint32(de.Inum))
	}
	return enc.Finish()
}

var ErrCorrupt = errors.New("corrupt directory block")

// Decode parses a directory block. A block whose entry count does not fit
// yields ErrCorrupt.
func Decode(blk []byte) (*Dir, error) {
	dec := marshal.NewDec(blk)
	n := uint64(dec.GetInt32())
	if n == 0 || n > common.MaxDirEntry {
		return nil, fmt.Errorf("%d entries: %w", n, ErrCorrupt)
	}
	d := &Dir{Entries: make([]Entry, 0, n)}
	for i := uint64(0); i < n; i++ {
		name := dec.GetBytes(common.MaxNameLen)
		if j := bytes.IndexByte(name, 0); j >= 0 {
			name = name[:j]
		}
		inum := common.Inum(dec.GetInt32())
		d.Entries = append(d.Entries, Entry{Name: string(name), Inum: inum})
	}
	return d, nil
}
