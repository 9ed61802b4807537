// Package fs is the simulated single-client filesystem: a superblock, two
// allocation bitmaps, an inode table and the current directory, all kept in
// memory between Mount and Unmount and written back to a block device.
package fs

import (
	"fmt"
	"log"
	"time"

	"github.com/tchajed/goose/machine"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/bitmap"
	"github.com/mit-pdos/go-fssim/common"
	"github.com/mit-pdos/go-fssim/device"
	"github.com/mit-pdos/go-fssim/dir"
	"github.com/mit-pdos/go-fssim/inode"
	"github.com/mit-pdos/go-fssim/super"
	"github.com/mit-pdos/go-fssim/util/stats"
)

// Owner and group recorded for everything except the root directory.
const (
	defaultOwner uint32 = 1
	defaultGroup uint32 = 2
)

type Options struct {
	// Geometry of a freshly formatted image. Zero picks the defaults;
	// an existing image keeps the geometry in its superblock.
	NBlock uint64
	NInode uint64

	// Fill generates the content of newly created files.
	Fill  func([]byte)
	Clock func() time.Time
}

type Filesystem struct {
	dev  device.Device
	name string

	super  *super.Superblock
	imap   bitmap.Bitmap
	bmap   bitmap.Bitmap
	inodes inode.Table

	cur      *dir.Dir
	curBlock common.Bnum

	fill  func([]byte)
	clock func() time.Time

	stats [NUM_OPS]stats.Op
}

const fillChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomFill fills b with random alphanumeric characters.
func RandomFill(b []byte) {
	for i := range b {
		b[i] = fillChars[machine.RandomUint64()%uint64(len(fillChars))]
	}
}

// Mount opens the image called name on dev. An existing image is loaded
// and positioned at its root directory; a new one is formatted. An image
// whose superblock does not check out yields ErrInvalidImage.
func Mount(dev device.Device, name string, opts Options) (*Filesystem, error) {
	fs := &Filesystem{
		dev:   dev,
		name:  name,
		fill:  opts.Fill,
		clock: opts.Clock,
	}
	if fs.fill == nil {
		fs.fill = RandomFill
	}
	if fs.clock == nil {
		fs.clock = time.Now
	}
	defer fs.recordOp(OP_MOUNT, time.Now())

	existed, err := dev.Mount(name)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", name, err)
	}
	if existed {
		err = fs.load()
	} else {
		err = fs.format(opts.NBlock, opts.NInode)
	}
	if err != nil {
		if uerr := dev.Unmount(name); uerr != nil {
			log.Printf("Mount %s: release device: %v\n", name, uerr)
		}
		// a failed format must not leave behind an image that looks formatted
		if !existed {
			if derr := dev.Discard(name); derr != nil {
				log.Printf("Mount %s: discard image: %v\n", name, derr)
			}
		}
		return nil, fmt.Errorf("mount %s: %w", name, err)
	}
	log.Printf("Mount %s: %v\n", name, fs.super)
	return fs, nil
}

func (fs *Filesystem) load() error {
	sb, err := super.Decode(fs.dev.Read(common.SuperBlock))
	if err != nil {
		return err
	}
	if sb.NBlock > fs.dev.Size() {
		return fmt.Errorf("image has %d blocks, device %d: %w", sb.NBlock, fs.dev.Size(), ErrInvalidImage)
	}
	fs.super = sb
	fs.imap = bitmap.FromBlock(fs.dev.Read(common.InodeBitmap))
	fs.bmap = bitmap.FromBlock(fs.dev.Read(common.BlockBitmap))
	fs.inodes = inode.MkTable(sb.NInode)
	for i := uint64(0); i < sb.NInodeBlock(); i++ {
		fs.inodes.DecodeBlock(i, fs.dev.Read(common.InodeStart+common.Bnum(i)))
	}
	for i := uint64(0); i < sb.NInode; i++ {
		if !fs.imap.IsSet(i) {
			continue
		}
		if err := fs.inodes.Get(common.Inum(i)).Validate(sb.DataStart(), sb.NBlock); err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidImage)
		}
	}

	root := fs.inodes.Get(common.ROOTINUM)
	if !fs.imap.IsSet(uint64(common.ROOTINUM)) || root.Kind != common.KindDir ||
		uint64(root.Blocks[0]) < sb.DataStart() || uint64(root.Blocks[0]) >= sb.NBlock {
		return fmt.Errorf("bad root inode %v: %w", root, ErrInvalidImage)
	}
	cur, err := fs.readDir(root.Blocks[0])
	if err != nil {
		return err
	}
	fs.curBlock = root.Blocks[0]
	fs.cur = cur
	util.DPrintf(1, "load: root dir block %d, %d entries\n", fs.curBlock, fs.cur.NumEntry())
	return nil
}

func (fs *Filesystem) format(nblock, ninode uint64) error {
	if nblock == 0 {
		nblock = common.MaxBlock
	}
	if ninode == 0 {
		ninode = common.MaxInode
	}
	if err := super.CheckGeometry(nblock, ninode); err != nil {
		return err
	}
	if nblock > fs.dev.Size() {
		return fmt.Errorf("geometry needs %d blocks, device has %d", nblock, fs.dev.Size())
	}
	fs.super = super.Mk(nblock, ninode)
	fs.imap = bitmap.Mk()
	fs.bmap = bitmap.Mk()
	for bn := uint64(0); bn < fs.super.DataStart(); bn++ {
		fs.bmap.Set(bn)
	}
	fs.inodes = inode.MkTable(ninode)

	inum := fs.allocInode()
	if inum != common.ROOTINUM {
		panic("format: root inode")
	}
	fs.curBlock = fs.allocBlock()
	root := fs.inodes.Get(inum)
	root.Init(common.KindDir, 0, 0, fs.now())
	root.Size = 1
	root.BlockCount = 1
	root.Blocks[0] = fs.curBlock

	fs.cur = dir.MkRootDir(inum)
	fs.writeCurDir()
	fs.flushMeta()
	util.DPrintf(1, "format: %v\n", fs.super)
	return nil
}

// Unmount writes all metadata and the current directory back and releases
// the device. The filesystem cannot be used afterwards.
func (fs *Filesystem) Unmount() error {
	if fs.dev == nil {
		return ErrNotMounted
	}
	fs.recordOp(OP_UNMOUNT, time.Now())
	fs.flushMeta()
	fs.writeCurDir()
	err := fs.dev.Unmount(fs.name)
	log.Printf("Unmount %s\n", fs.name)
	fs.dev = nil
	return err
}

func (fs *Filesystem) flushMeta() {
	fs.dev.Write(common.SuperBlock, fs.super.Encode())
	fs.dev.Write(common.InodeBitmap, []byte(fs.imap))
	fs.dev.Write(common.BlockBitmap, []byte(fs.bmap))
	for i := uint64(0); i < fs.inodes.NBlock(); i++ {
		fs.dev.Write(common.InodeStart+common.Bnum(i), fs.inodes.EncodeBlock(i))
	}
}

func (fs *Filesystem) writeCurDir() {
	fs.dev.Write(fs.curBlock, fs.cur.Encode())
}

func (fs *Filesystem) now() time.Time {
	return fs.clock().Round(0)
}

func (fs *Filesystem) mounted() error {
	if fs.dev == nil {
		return ErrNotMounted
	}
	return nil
}

// allocInode and allocBlock update the free counts; callers have already
// checked them.
func (fs *Filesystem) allocInode() common.Inum {
	n, ok := fs.imap.Alloc(fs.super.NInode)
	if !ok {
		panic("allocInode: bitmap disagrees with free count")
	}
	fs.super.FreeInodeCount--
	util.DPrintf(5, "allocInode -> # %d\n", n)
	return common.Inum(n)
}

func (fs *Filesystem) freeInode(inum common.Inum) {
	util.DPrintf(5, "freeInode # %d\n", inum)
	fs.imap.Free(uint64(inum))
	fs.super.FreeInodeCount++
}

func (fs *Filesystem) allocBlock() common.Bnum {
	n, ok := fs.bmap.Alloc(fs.super.NBlock)
	if !ok {
		panic("allocBlock: bitmap disagrees with free count")
	}
	if n < fs.super.DataStart() {
		panic(fmt.Sprintf("allocBlock: reserved block %d", n))
	}
	fs.super.FreeBlockCount--
	util.DPrintf(5, "allocBlock -> %d\n", n)
	return common.Bnum(n)
}

func (fs *Filesystem) freeBlock(bn common.Bnum) {
	if uint64(bn) < fs.super.DataStart() {
		panic(fmt.Sprintf("freeBlock: reserved block %d", bn))
	}
	util.DPrintf(5, "freeBlock %d\n", bn)
	fs.bmap.Free(uint64(bn))
	fs.super.FreeBlockCount++
}

// lookup resolves name in the current directory.
func (fs *Filesystem) lookup(name string) (*inode.Inode, bool) {
	inum, ok := fs.cur.Lookup(name)
	if !ok {
		return nil, false
	}
	return fs.inodes.Get(inum), true
}

// readDir loads a directory block, checking that every entry names an
// allocated inode.
func (fs *Filesystem) readDir(bn common.Bnum) (*dir.Dir, error) {
	d, err := dir.Decode(fs.dev.Read(bn))
	if err != nil {
		return nil, fmt.Errorf("block %d: %v: %w", bn, err, ErrInvalidImage)
	}
	for _, de := range d.Entries {
		if uint64(de.Inum) >= fs.super.NInode || !fs.imap.IsSet(uint64(de.Inum)) {
			return nil, fmt.Errorf("block %d: entry %q -> free inode %d: %w", bn, de.Name, de.Inum, ErrInvalidImage)
		}
	}
	return d, nil
}

func checkName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if dir.IllegalName(name) {
		if uint64(len(name)) > dir.MAXNAMELEN {
			return ErrNameTooLong
		}
		return ErrInvalidName
	}
	return nil
}

// Check verifies that the free counts match the bitmaps and that every
// block referenced by an allocated inode is marked in use.
func (fs *Filesystem) Check() error {
	if err := fs.mounted(); err != nil {
		return err
	}
	sb := fs.super
	for bn := uint64(0); bn < sb.DataStart(); bn++ {
		if !fs.bmap.IsSet(bn) {
			return fmt.Errorf("reserved block %d is free", bn)
		}
	}
	if used := fs.bmap.Count(sb.NBlock); sb.NBlock-used != sb.FreeBlockCount {
		return fmt.Errorf("free blocks %d, bitmap says %d", sb.FreeBlockCount, sb.NBlock-used)
	}
	if used := fs.imap.Count(sb.NInode); sb.NInode-used != sb.FreeInodeCount {
		return fmt.Errorf("free inodes %d, bitmap says %d", sb.FreeInodeCount, sb.NInode-used)
	}
	for i := uint64(0); i < sb.NInode; i++ {
		if !fs.imap.IsSet(i) {
			continue
		}
		ip := fs.inodes.Get(common.Inum(i))
		for _, bn := range ip.Blocks[:ip.BlockCount] {
			if !fs.bmap.IsSet(uint64(bn)) {
				return fmt.Errorf("inode %d uses free block %d", i, bn)
			}
		}
	}
	return nil
}
