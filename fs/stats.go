package fs

import (
	"io"
	"time"

	"github.com/mit-pdos/go-fssim/util/stats"
)

const (
	OP_MOUNT = iota
	OP_UNMOUNT
	OP_CREATE
	OP_READ
	OP_CAT
	OP_STAT
	OP_REMOVE
	OP_LINK
	OP_MKDIR
	OP_RMDIR
	OP_CD
	OP_LS
	OP_DF
	NUM_OPS
)

func (fs *Filesystem) recordOp(op int, start time.Time) {
	fs.stats[op].Record(start)
}

var opNames = []string{
	"MOUNT",
	"UNMOUNT",
	"CREATE",
	"READ",
	"CAT",
	"STAT",
	"REMOVE",
	"LINK",
	"MKDIR",
	"RMDIR",
	"CD",
	"LS",
	"DF",
}

func (fs *Filesystem) WriteOpStats(w io.Writer) {
	stats.WriteTable(opNames, fs.stats[:], w)
}

func (fs *Filesystem) ResetOpStats() {
	for i := range fs.stats {
		fs.stats[i].Reset()
	}
}
