package fs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/common"
	"github.com/mit-pdos/go-fssim/dir"
)

// Mkdir creates an empty directory in the current one.
func (fs *Filesystem) Mkdir(name string) (common.Inum, error) {
	if err := fs.mounted(); err != nil {
		return 0, err
	}
	defer fs.recordOp(OP_MKDIR, time.Now())
	if err := checkName(name); err != nil {
		return 0, fmt.Errorf("mkdir %s: %w", name, err)
	}
	if _, ok := fs.cur.Lookup(name); ok {
		return 0, fmt.Errorf("mkdir %s: %w", name, ErrExists)
	}
	// one slot always stays in reserve
	if fs.cur.NumEntry()+1 >= common.MaxDirEntry {
		return 0, fmt.Errorf("mkdir %s: %w", name, ErrDirFull)
	}
	if fs.super.FreeInodeCount < 1 {
		return 0, fmt.Errorf("mkdir %s: %w", name, ErrNoInodes)
	}
	if fs.super.FreeBlockCount < 1 {
		return 0, fmt.Errorf("mkdir %s: %w", name, ErrNoBlocks)
	}

	inum := fs.allocInode()
	bn := fs.allocBlock()
	ip := fs.inodes.Get(inum)
	ip.Init(common.KindDir, defaultOwner, defaultGroup, fs.now())
	ip.Size = 1
	ip.BlockCount = 1
	ip.Blocks[0] = bn

	fs.cur.Add(name, inum)
	sub := dir.MkDir(inum, fs.cur.Self())
	fs.dev.Write(bn, sub.Encode())
	fs.writeCurDir()
	util.DPrintf(1, "mkdir %s: inode %d block %d\n", name, inum, bn)
	return inum, nil
}

// Rmdir removes an empty directory from the current one.
func (fs *Filesystem) Rmdir(name string) error {
	if err := fs.mounted(); err != nil {
		return err
	}
	defer fs.recordOp(OP_RMDIR, time.Now())
	if name == "." || name == ".." {
		return fmt.Errorf("rmdir %s: %w", name, ErrInvalidName)
	}
	ip, ok := fs.lookup(name)
	if !ok {
		return fmt.Errorf("rmdir %s: %w", name, ErrNotFound)
	}
	if ip.Kind != common.KindDir {
		return fmt.Errorf("rmdir %s: %w", name, ErrIsFile)
	}
	target, err := fs.readDir(ip.Blocks[0])
	if err != nil {
		return fmt.Errorf("rmdir %s: %w", name, err)
	}
	if !target.IsEmpty() {
		return fmt.Errorf("rmdir %s: %w", name, ErrNotEmpty)
	}

	fs.freeBlock(ip.Blocks[0])
	fs.freeInode(ip.Inum)
	fs.cur.Remove(name)
	fs.writeCurDir()
	util.DPrintf(1, "rmdir %s: inode %d\n", name, ip.Inum)
	return nil
}

// Cd makes name the current directory. The old current directory is
// written back before it is replaced.
func (fs *Filesystem) Cd(name string) error {
	if err := fs.mounted(); err != nil {
		return err
	}
	defer fs.recordOp(OP_CD, time.Now())
	ip, ok := fs.lookup(name)
	if !ok {
		return fmt.Errorf("cd %s: %w", name, ErrNotFound)
	}
	if ip.Kind != common.KindDir {
		return fmt.Errorf("cd %s: %w", name, ErrNotDir)
	}
	// written first: name may be "." or lead back to this block
	fs.writeCurDir()
	next, err := fs.readDir(ip.Blocks[0])
	if err != nil {
		return fmt.Errorf("cd %s: %w", name, err)
	}
	fs.curBlock = ip.Blocks[0]
	fs.cur = next
	ip.LastAccess = fs.now()
	util.DPrintf(1, "cd %s: inode %d block %d\n", name, ip.Inum, fs.curBlock)
	return nil
}

// DirEntry is one line of a directory listing.
type DirEntry struct {
	Name string
	Inum common.Inum
	Kind common.Kind
	Size uint64
}

// Ls lists the current directory in entry order.
func (fs *Filesystem) Ls() ([]DirEntry, error) {
	if err := fs.mounted(); err != nil {
		return nil, err
	}
	defer fs.recordOp(OP_LS, time.Now())
	ents := make([]DirEntry, 0, fs.cur.NumEntry())
	for _, de := range fs.cur.Entries {
		ip := fs.inodes.Get(de.Inum)
		ents = append(ents, DirEntry{
			Name: de.Name,
			Inum: de.Inum,
			Kind: ip.Kind,
			Size: ip.Size,
		})
	}
	return ents, nil
}

type FsStat struct {
	FreeBlocks  uint64
	FreeBytes   uint64
	FreeInodes  uint64
	TotalBlocks uint64
	TotalInodes uint64
	VolumeID    uuid.UUID
}

// Df reports free space.
func (fs *Filesystem) Df() (FsStat, error) {
	if err := fs.mounted(); err != nil {
		return FsStat{}, err
	}
	defer fs.recordOp(OP_DF, time.Now())
	sb := fs.super
	return FsStat{
		FreeBlocks:  sb.FreeBlockCount,
		FreeBytes:   sb.FreeBlockCount * common.BlockSize,
		FreeInodes:  sb.FreeInodeCount,
		TotalBlocks: sb.NBlock,
		TotalInodes: sb.NInode,
		VolumeID:    sb.VolumeID,
	}, nil
}
