package common

const (
	BlockSize uint64 = 512 // logical block of the simulated disk
	NBITBLOCK uint64 = BlockSize * 8

	MaxBlock uint64 = 4096 // default # blocks in an image
	MaxInode uint64 = 128  // default # inodes in an image

	InodeSize      uint64 = 128 // on-disk size
	InodesPerBlock uint64 = BlockSize / InodeSize
	NDirect        uint64 = 15
	SmallFile      uint64 = NDirect * BlockSize

	MaxNameLen  uint64 = 20 // including the terminating NUL
	DirEntSize  uint64 = MaxNameLen + 4
	MaxDirEntry uint64 = BlockSize / DirEntSize

	MagicNumber uint32 = 0x53465349

	SuperBlock  Bnum = 0
	InodeBitmap Bnum = 1
	BlockBitmap Bnum = 2
	InodeStart  Bnum = 3
)

type Inum uint64
type Bnum uint64

const ROOTINUM Inum = 0

type Kind uint32

const (
	KindFile Kind = iota + 1
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	}
	return "free"
}
