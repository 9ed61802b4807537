// Package device provides the block devices a simulated filesystem is
// mounted on. Logical blocks are common.BlockSize bytes; the backing store is
// a goose disk whose larger blocks each hold several logical blocks.
package device

import (
	"errors"
	"fmt"

	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/common"
)

// # logical blocks per backing disk block
const perDiskBlock = disk.BlockSize / common.BlockSize

var (
	ErrMounted    = errors.New("device already mounted")
	ErrNotMounted = errors.New("device not mounted")
	ErrImageBusy  = errors.New("image is in use by another process")
)

// Device is the block-granular store under a filesystem. Read and Write
// operate on whole logical blocks and panic on block numbers beyond Size.
type Device interface {
	// Mount opens or creates the image called name and reports whether it
	// existed before.
	Mount(name string) (bool, error)
	Read(bn common.Bnum) disk.Block
	Write(bn common.Bnum, b disk.Block)
	Unmount(name string) error
	// Discard deletes an unmounted image.
	Discard(name string) error
	// Size is the number of logical blocks.
	Size() uint64
}

// diskBlocks returns the # of backing blocks needed for nblock logical blocks.
func diskBlocks(nblock uint64) uint64 {
	return util.RoundUp(nblock, perDiskBlock)
}

// packed maps logical blocks onto a goose disk.
type packed struct {
	d      disk.Disk
	nblock uint64
}

func (p *packed) locate(bn common.Bnum) (uint64, uint64) {
	if p.d == nil {
		panic("device: not mounted")
	}
	if uint64(bn) >= p.nblock {
		panic(fmt.Sprintf("device: block %d out of range", bn))
	}
	return uint64(bn) / perDiskBlock, (uint64(bn) % perDiskBlock) * common.BlockSize
}

func (p *packed) Read(bn common.Bnum) disk.Block {
	a, off := p.locate(bn)
	util.DPrintf(10, "device read %d (disk %d off %d)\n", bn, a, off)
	blk := make(disk.Block, common.BlockSize)
	copy(blk, p.d.Read(a)[off:off+common.BlockSize])
	return blk
}

func (p *packed) Write(bn common.Bnum, b disk.Block) {
	if uint64(len(b)) != common.BlockSize {
		panic(fmt.Sprintf("device: write of %d bytes", len(b)))
	}
	a, off := p.locate(bn)
	util.DPrintf(10, "device write %d (disk %d off %d)\n", bn, a, off)
	db := p.d.Read(a)
	copy(db[off:off+common.BlockSize], b)
	p.d.Write(a, db)
}

func (p *packed) Size() uint64 {
	return p.nblock
}
