package fs

import (
	"fmt"
	"time"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/common"
	"github.com/mit-pdos/go-fssim/inode"
)

// Attr describes an inode, as reported by Stat.
type Attr struct {
	Inum       common.Inum
	Kind       common.Kind
	Owner      uint32
	Group      uint32
	Size       uint64
	Nlink      uint32
	BlockCount uint64
	Created    time.Time
	LastAccess time.Time
}

// Create makes a file of size bytes in the current directory, filled with
// generated content, and returns its inode and that content. Nothing is
// allocated unless every precondition holds.
func (fs *Filesystem) Create(name string, size int64) (common.Inum, []byte, error) {
	if err := fs.mounted(); err != nil {
		return 0, nil, err
	}
	defer fs.recordOp(OP_CREATE, time.Now())
	fail := func(err error) (common.Inum, []byte, error) {
		return 0, nil, fmt.Errorf("create %s: %w", name, err)
	}

	if size > int64(common.SmallFile) {
		return fail(fmt.Errorf("%w: max %d bytes", ErrTooBig, common.SmallFile))
	}
	if size < 0 {
		return fail(ErrInvalidSize)
	}
	if err := checkName(name); err != nil {
		return fail(err)
	}
	if _, ok := fs.cur.Lookup(name); ok {
		return fail(ErrExists)
	}
	if fs.cur.NumEntry()+1 > common.MaxDirEntry {
		return fail(ErrDirFull)
	}
	numBlock := util.RoundUp(uint64(size), common.BlockSize)
	if numBlock > fs.super.FreeBlockCount {
		return fail(ErrNoBlocks)
	}
	if fs.super.FreeInodeCount < 1 {
		return fail(ErrNoInodes)
	}

	content := make([]byte, size)
	fs.fill(content)

	now := fs.now()
	inum := fs.allocInode()
	ip := fs.inodes.Get(inum)
	ip.Init(common.KindFile, defaultOwner, defaultGroup, now)
	ip.Size = uint64(size)
	ip.BlockCount = numBlock
	for i := uint64(0); i < numBlock; i++ {
		bn := fs.allocBlock()
		ip.Blocks[i] = bn
		blk := make([]byte, common.BlockSize)
		copy(blk, content[i*common.BlockSize:])
		fs.dev.Write(bn, blk)
	}
	fs.cur.Add(name, inum)
	fs.inodes.Get(fs.cur.Self()).LastAccess = now

	util.DPrintf(1, "file created: %s, inode %d, size %d\n", name, inum, size)
	return inum, content, nil
}

// openFile resolves name to a regular file in the current directory.
func (fs *Filesystem) openFile(op, name string) (*inode.Inode, error) {
	if err := fs.mounted(); err != nil {
		return nil, err
	}
	ip, ok := fs.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", op, name, ErrNotFound)
	}
	if ip.Kind == common.KindDir {
		return nil, fmt.Errorf("%s %s: %w", op, name, ErrIsDir)
	}
	return ip, nil
}

// Read returns size bytes of name starting at offset. A range running past
// the end of the file is truncated; an offset past the end is an error.
func (fs *Filesystem) Read(name string, offset int64, size int64) ([]byte, error) {
	ip, err := fs.openFile("read", name)
	if err != nil {
		return nil, err
	}
	defer fs.recordOp(OP_READ, time.Now())
	if offset < 0 || size < 0 {
		return nil, fmt.Errorf("read %s: %w", name, ErrInvalidSize)
	}
	off, count := uint64(offset), uint64(size)
	if off > ip.Size {
		return nil, fmt.Errorf("read %s: %w (%d > %d)", name, ErrOffsetBeyondEnd, off, ip.Size)
	}
	if count > ip.Size-off {
		count = ip.Size - off
	}
	data := ip.Read(fs.dev, off, count)
	ip.LastAccess = fs.now()
	return data, nil
}

// Cat returns the whole content of name.
func (fs *Filesystem) Cat(name string) ([]byte, error) {
	ip, err := fs.openFile("cat", name)
	if err != nil {
		return nil, err
	}
	defer fs.recordOp(OP_CAT, time.Now())
	data := ip.Read(fs.dev, 0, ip.Size)
	ip.LastAccess = fs.now()
	return data, nil
}

func (fs *Filesystem) Stat(name string) (Attr, error) {
	if err := fs.mounted(); err != nil {
		return Attr{}, err
	}
	defer fs.recordOp(OP_STAT, time.Now())
	ip, ok := fs.lookup(name)
	if !ok {
		return Attr{}, fmt.Errorf("stat %s: %w", name, ErrNotFound)
	}
	return Attr{
		Inum:       ip.Inum,
		Kind:       ip.Kind,
		Owner:      ip.Owner,
		Group:      ip.Group,
		Size:       ip.Size,
		Nlink:      ip.Nlink,
		BlockCount: ip.BlockCount,
		Created:    ip.Created,
		LastAccess: ip.LastAccess,
	}, nil
}

// Remove unlinks name from the current directory and reclaims the file
// once its last link is gone. It returns the remaining link count.
func (fs *Filesystem) Remove(name string) (uint32, error) {
	ip, err := fs.openFile("rm", name)
	if err != nil {
		return 0, err
	}
	defer fs.recordOp(OP_REMOVE, time.Now())
	ip.Nlink--
	if ip.Nlink == 0 {
		for _, bn := range ip.Blocks[:ip.BlockCount] {
			fs.freeBlock(bn)
		}
		fs.freeInode(ip.Inum)
	}
	util.DPrintf(1, "rm %s: inode %d nlink %d\n", name, ip.Inum, ip.Nlink)
	fs.cur.Remove(name)
	fs.writeCurDir()
	return ip.Nlink, nil
}

// Link adds dest as another name for src's inode.
func (fs *Filesystem) Link(src, dest string) error {
	if err := fs.mounted(); err != nil {
		return err
	}
	defer fs.recordOp(OP_LINK, time.Now())
	ip, ok := fs.lookup(src)
	if !ok {
		return fmt.Errorf("ln %s: %w", src, ErrNotFound)
	}
	if ip.Kind == common.KindDir {
		return fmt.Errorf("ln %s: %w", src, ErrIsDir)
	}
	if err := checkName(dest); err != nil {
		return fmt.Errorf("ln %s: %w", dest, err)
	}
	if _, ok := fs.cur.Lookup(dest); ok {
		return fmt.Errorf("ln %s: %w", dest, ErrExists)
	}
	if fs.cur.NumEntry() >= common.MaxDirEntry {
		return fmt.Errorf("ln %s: %w", dest, ErrDirFull)
	}
	fs.cur.Add(dest, ip.Inum)
	ip.Nlink++
	fs.writeCurDir()
	return nil
}
