// Package super holds the superblock: the format marker, free-space
// counters, and the image geometry. It is stored in block 0.
package super

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-fssim/common"
)

var ErrInvalidImage = errors.New("invalid disk image")

type Superblock struct {
	Magic          uint32
	FreeBlockCount uint64
	FreeInodeCount uint64
	NBlock         uint64
	NInode         uint64
	VolumeID       uuid.UUID
}

// Mk returns the superblock of a freshly formatted image: everything but
// the reserved prefix is free.
func Mk(nblock, ninode uint64) *Superblock {
	sb := &Superblock{
		Magic:    common.MagicNumber,
		NBlock:   nblock,
		NInode:   ninode,
		VolumeID: uuid.New(),
	}
	sb.FreeBlockCount = nblock - sb.DataStart()
	sb.FreeInodeCount = ninode
	return sb
}

// CheckGeometry reports whether an image with nblock blocks and ninode
// inodes can be laid out.
func CheckGeometry(nblock, ninode uint64) error {
	if ninode == 0 || ninode%8 != 0 || ninode%common.InodesPerBlock != 0 {
		return fmt.Errorf("inode count %d must be a positive multiple of 8 and %d", ninode, common.InodesPerBlock)
	}
	if ninode > common.NBITBLOCK {
		return fmt.Errorf("inode count %d exceeds bitmap capacity %d", ninode, common.NBITBLOCK)
	}
	if nblock == 0 || nblock%8 != 0 {
		return fmt.Errorf("block count %d must be a positive multiple of 8", nblock)
	}
	if nblock > common.NBITBLOCK {
		return fmt.Errorf("block count %d exceeds bitmap capacity %d", nblock, common.NBITBLOCK)
	}
	reserved := uint64(common.InodeStart) + ninode/common.InodesPerBlock
	if nblock <= reserved {
		return fmt.Errorf("block count %d leaves no data blocks (%d reserved)", nblock, reserved)
	}
	return nil
}

func (sb *Superblock) NInodeBlock() uint64 {
	return sb.NInode / common.InodesPerBlock
}

// DataStart is the first block the block allocator may hand out; every
// block below it is reserved.
func (sb *Superblock) DataStart() uint64 {
	return uint64(common.InodeStart) + sb.NInodeBlock()
}

func (sb *Superblock) String() string {
	return fmt.Sprintf("magic %#x free blocks %d/%d free inodes %d/%d vol %s",
		sb.Magic, sb.FreeBlockCount, sb.NBlock, sb.FreeInodeCount, sb.NInode, sb.VolumeID)
}

func (sb *Superblock) Encode() []byte {
	enc := marshal.NewEnc(common.BlockSize)
	enc.PutInt32(sb.Magic)
	enc.PutInt(sb.FreeBlockCount)
	enc.PutInt(sb.FreeInodeCount)
	enc.PutInt(sb.NBlock)
	enc.PutInt(sb.NInode)
	enc.PutBytes(sb.VolumeID[:])
	return enc.Finish()
}

// Decode parses block 0 and rejects images that were not formatted by
// this filesystem or whose geometry is unusable.
func Decode(blk []byte) (*Superblock, error) {
	sb := &Superblock{}
	dec := marshal.NewDec(blk)
	sb.Magic = dec.GetInt32()
	if sb.Magic != common.MagicNumber {
		return nil, fmt.Errorf("bad magic number %#x: %w", sb.Magic, ErrInvalidImage)
	}
	sb.FreeBlockCount = dec.GetInt()
	sb.FreeInodeCount = dec.GetInt()
	sb.NBlock = dec.GetInt()
	sb.NInode = dec.GetInt()
	copy(sb.VolumeID[:], dec.GetBytes(16))
	if err := CheckGeometry(sb.NBlock, sb.NInode); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidImage)
	}
	if sb.FreeBlockCount > sb.NBlock-sb.DataStart() || sb.FreeInodeCount > sb.NInode {
		return nil, fmt.Errorf("free counts out of range: %w", ErrInvalidImage)
	}
	return sb, nil
}
