package device

import (
	"github.com/tchajed/goose/machine/disk"

	"github.com/mit-pdos/go-journal/util"
)

// MemDevice keeps named images in memory. An image outlives Unmount, so a
// later Mount of the same name sees its contents.
type MemDevice struct {
	packed
	images  map[string]disk.Disk
	mounted string
}

func NewMemDevice(nblock uint64) *MemDevice {
	return &MemDevice{
		packed: packed{nblock: nblock},
		images: make(map[string]disk.Disk),
	}
}

func (md *MemDevice) Mount(name string) (bool, error) {
	if md.d != nil {
		return false, ErrMounted
	}
	d, existed := md.images[name]
	if !existed {
		d = disk.NewMemDisk(diskBlocks(md.nblock))
		md.images[name] = d
	}
	md.d = d
	md.mounted = name
	util.DPrintf(1, "MemDevice: mount %s existed %v\n", name, existed)
	return existed, nil
}

func (md *MemDevice) Unmount(name string) error {
	if md.d == nil || name != md.mounted {
		return ErrNotMounted
	}
	md.d.Barrier()
	md.d = nil
	md.mounted = ""
	util.DPrintf(1, "MemDevice: unmount %s\n", name)
	return nil
}

func (md *MemDevice) Discard(name string) error {
	if md.d != nil && md.mounted == name {
		return ErrMounted
	}
	delete(md.images, name)
	util.DPrintf(1, "MemDevice: discard %s\n", name)
	return nil
}
