// Package bitmap implements the first-fit allocation bitmaps for inodes and
// blocks. Bit n lives in byte n/8 at position n%8; a set bit means in use.
package bitmap

import (
	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/common"
)

type Bitmap []byte

// Mk returns a cleared bitmap that occupies exactly one disk block.
func Mk() Bitmap {
	return make(Bitmap, common.BlockSize)
}

// FromBlock copies an on-disk bitmap block.
func FromBlock(blk []byte) Bitmap {
	bm := Mk()
	copy(bm, blk)
	return bm
}

func (bm Bitmap) check(n uint64) {
	if n >= uint64(len(bm))*8 {
		panic("bitmap: index out of range")
	}
}

func (bm Bitmap) IsSet(n uint64) bool {
	bm.check(n)
	return bm[n/8]&(1<<(n%8)) != 0
}

func (bm Bitmap) Set(n uint64) {
	bm.check(n)
	bm[n/8] = bm[n/8] | (1 << (n % 8))
}

// Free clears bit n.
func (bm Bitmap) Free(n uint64) {
	bm.check(n)
	bm[n/8] = bm[n/8] & ^(1 << (n % 8))
}

// Alloc sets and returns the lowest clear bit below max. ok is false when
// every bit in [0, max) is set; callers consult the superblock free counts
// before relying on Alloc.
func (bm Bitmap) Alloc(max uint64) (n uint64, ok bool) {
	bm.check(max - 1)
	for byt := uint64(0); byt*8 < max; byt++ {
		if bm[byt] == 0xff {
			continue
		}
		for bit := uint64(0); bit < 8; bit++ {
			n := byt*8 + bit
			if n >= max {
				break
			}
			if bm[byt]&(1<<bit) == 0 {
				bm[byt] = bm[byt] | (1 << bit)
				util.DPrintf(15, "bitmap alloc %d\n", n)
				return n, true
			}
		}
	}
	return 0, false
}

// Count returns the number of set bits in [0, max).
func (bm Bitmap) Count(max uint64) uint64 {
	var c uint64
	for n := uint64(0); n < max; n++ {
		if bm.IsSet(n) {
			c++
		}
	}
	return c
}
