// Package timed_disk wraps a device.Device and records latencies of every
// call it forwards.
package timed_disk

import (
	"io"
	"time"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-fssim/common"
	"github.com/mit-pdos/go-fssim/device"
	"github.com/mit-pdos/go-fssim/util/stats"
)

type Disk struct {
	d   device.Device
	ops [4]stats.Op
}

func New(d device.Device) *Disk {
	return &Disk{d: d}
}

const (
	readOp int = iota
	writeOp
	mountOp
	unmountOp
)

var ops = []string{"disk.Read", "disk.Write", "disk.Mount", "disk.Unmount"}

// assert that Disk implements device.Device
var _ device.Device = &Disk{}

func (d *Disk) Mount(name string) (bool, error) {
	defer d.ops[mountOp].Record(time.Now())
	return d.d.Mount(name)
}

func (d *Disk) Read(bn common.Bnum) disk.Block {
	defer d.ops[readOp].Record(time.Now())
	return d.d.Read(bn)
}

func (d *Disk) Write(bn common.Bnum, b disk.Block) {
	defer d.ops[writeOp].Record(time.Now())
	d.d.Write(bn, b)
}

func (d *Disk) Unmount(name string) error {
	defer d.ops[unmountOp].Record(time.Now())
	return d.d.Unmount(name)
}

func (d *Disk) Discard(name string) error {
	return d.d.Discard(name)
}

func (d *Disk) Size() uint64 {
	return d.d.Size()
}

func (d *Disk) Reads() uint32 {
	return d.ops[readOp].Count()
}

func (d *Disk) Writes() uint32 {
	return d.ops[writeOp].Count()
}

func (d *Disk) WriteStats(w io.Writer) {
	stats.WriteTable(ops, d.ops[:], w)
}

func (d *Disk) ResetStats() {
	for i := range d.ops {
		d.ops[i].Reset()
	}
}
