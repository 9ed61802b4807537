package inode

import (
	"github.com/mit-pdos/go-fssim/common"
)

// Table is the in-memory inode table. Inodes are addressed by index and
// serialized InodesPerBlock to a block, in index order.
type Table []Inode

func MkTable(ninode uint64) Table {
	t := make(Table, ninode)
	for i := range t {
		t[i].Inum = common.Inum(i)
	}
	return t
}

func (t Table) Get(inum common.Inum) *Inode {
	if uint64(inum) >= uint64(len(t)) {
		panic("inode: inum out of range")
	}
	return &t[inum]
}

func (t Table) NBlock() uint64 {
	return uint64(len(t)) / common.InodesPerBlock
}

// EncodeBlock serializes the i'th block of the table.
func (t Table) EncodeBlock(i uint64) []byte {
	blk := make([]byte, common.BlockSize)
	for j := uint64(0); j < common.InodesPerBlock; j++ {
		ip := &t[i*common.InodesPerBlock+j]
		copy(blk[j*common.InodeSize:], ip.Encode())
	}
	return blk
}

// DecodeBlock fills the i'th block of the table from blk.
func (t Table) DecodeBlock(i uint64, blk []byte) {
	for j := uint64(0); j < common.InodesPerBlock; j++ {
		inum := common.Inum(i*common.InodesPerBlock + j)
		off := j * common.InodeSize
		t[inum] = *Decode(blk[off:off+common.InodeSize], inum)
	}
}
