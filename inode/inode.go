package inode

import (
	"fmt"
	"time"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/common"
	"github.com/mit-pdos/go-fssim/device"
)

type Inode struct {
	// in-memory info:
	Inum common.Inum

	// the on-disk inode:
	Kind       common.Kind
	Owner      uint32
	Group      uint32
	Nlink      uint32
	Size       uint64
	BlockCount uint64
	Created    time.Time
	LastAccess time.Time
	Blocks     [common.NDirect]common.Bnum
}

func (ip *Inode) String() string {
	return fmt.Sprintf("# %d k %v n %d sz %d nblk %d %v", ip.Inum, ip.Kind, ip.Nlink, ip.Size, ip.BlockCount,
		ip.Blocks[:util.Min(ip.BlockCount, common.NDirect)])
}

// Validate checks an allocated inode read from disk: a known kind, a block
// list that fits, sized for the file, and pointing into the data region.
func (ip *Inode) Validate(dataStart, nblock uint64) error {
	if ip.Kind != common.KindFile && ip.Kind != common.KindDir {
		return fmt.Errorf("inode %d: kind %d", ip.Inum, ip.Kind)
	}
	if ip.Nlink == 0 {
		return fmt.Errorf("inode %d: no links", ip.Inum)
	}
	if ip.BlockCount > common.NDirect {
		return fmt.Errorf("inode %d: %d blocks", ip.Inum, ip.BlockCount)
	}
	if ip.Kind == common.KindDir && ip.BlockCount != 1 {
		return fmt.Errorf("directory inode %d: %d blocks", ip.Inum, ip.BlockCount)
	}
	if ip.Kind == common.KindFile && util.RoundUp(ip.Size, common.BlockSize) != ip.BlockCount {
		return fmt.Errorf("inode %d: size %d in %d blocks", ip.Inum, ip.Size, ip.BlockCount)
	}
	for _, bn := range ip.Blocks[:ip.BlockCount] {
		if uint64(bn) < dataStart || uint64(bn) >= nblock {
			return fmt.Errorf("inode %d: block %d outside data region", ip.Inum, bn)
		}
	}
	return nil
}

// Init resets ip to a newly allocated inode of the given kind.
func (ip *Inode) Init(kind common.Kind, owner, group uint32, now time.Time) {
	util.DPrintf(1, "initInode: inode # %d kind %v\n", ip.Inum, kind)
	inum := ip.Inum
	*ip = Inode{}
	ip.Inum = inum
	ip.Kind = kind
	ip.Owner = owner
	ip.Group = group
	ip.Nlink = 1
	ip.Created = now
	ip.LastAccess = now
}

func putTime(enc *marshal.Enc, t time.Time) {
	enc.PutInt(uint64(t.Unix()))
	enc.PutInt32(uint32(t.Nanosecond()))
}

func getTime(dec *marshal.Dec) time.Time {
	sec := dec.GetInt()
	nsec := dec.GetInt32()
	return time.Unix(int64(sec), int64(nsec))
}

func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.InodeSize)
	enc.PutInt32(uint32(ip.Kind))
	enc.PutInt32(ip.Owner)
	enc.PutInt32(ip.Group)
	enc.PutInt32(ip.Nlink)
	enc.PutInt(ip.Size)
	enc.PutInt32(uint32(ip.BlockCount))
	putTime(&enc, ip.Created)
	putTime(&enc, ip.LastAccess)
	for _, bn := range ip.Blocks {
		enc.PutInt32(uint32(bn))
	}
	return enc.Finish()
}

func Decode(d []byte, inum common.Inum) *Inode {
	ip := &Inode{Inum: inum}
	dec := marshal.NewDec(d)
	ip.Kind = common.Kind(dec.GetInt32())
	ip.Owner = dec.GetInt32()
	ip.Group = dec.GetInt32()
	ip.Nlink = dec.GetInt32()
	ip.Size = dec.GetInt()
	ip.BlockCount = uint64(dec.GetInt32())
	ip.Created = getTime(&dec)
	ip.LastAccess = getTime(&dec)
	for i := range ip.Blocks {
		ip.Blocks[i] = common.Bnum(dec.GetInt32())
	}
	return ip
}

// Read returns up to count bytes starting at offset, walking the direct
// block list. The caller has already clamped offset and count to the file.
func (ip *Inode) Read(d device.Device, offset uint64, count uint64) []byte {
	if offset >= ip.Size {
		return []byte{}
	}
	if count > ip.Size-offset {
		count = ip.Size - offset
	}
	util.DPrintf(5, "Read: # %d off %d cnt %d\n", ip.Inum, offset, count)
	data := make([]byte, 0, count)
	var n uint64
	off := offset
	for boff := off / common.BlockSize; n < count && boff < ip.BlockCount; boff++ {
		byteoff := off % common.BlockSize
		nbytes := util.Min(common.BlockSize-byteoff, count-n)
		blk := d.Read(ip.Blocks[boff])
		data = append(data, blk[byteoff:byteoff+nbytes]...)
		n += nbytes
		off += nbytes
	}
	util.DPrintf(10, "Read: off %d cnt %d -> %d bytes\n", offset, count, len(data))
	return data
}
