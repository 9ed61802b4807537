package device

import (
	"errors"
	"fmt"
	"os"

	"github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-journal/util"
)

// FileDevice stores an image in a host file. The file is held under an
// exclusive flock while mounted so two sessions cannot share an image.
//
// nblock is the size of a new image. An existing image larger than that is
// opened at its full size, since the backing disk would otherwise truncate
// it.
type FileDevice struct {
	packed
	want uint64
	lock *os.File
	name string
}

func NewFileDevice(nblock uint64) *FileDevice {
	return &FileDevice{packed: packed{nblock: nblock}, want: nblock}
}

func (fd *FileDevice) Mount(name string) (bool, error) {
	if fd.d != nil {
		return false, ErrMounted
	}
	existed := false
	nd := diskBlocks(fd.want)
	if st, err := os.Stat(name); err == nil {
		existed = st.Size() > 0
		if have := util.RoundUp(uint64(st.Size()), disk.BlockSize); have > nd {
			nd = have
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat image %s: %w", name, err)
	}

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return false, fmt.Errorf("open image %s: %w", name, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return false, fmt.Errorf("%s: %w", name, ErrImageBusy)
		}
		return false, fmt.Errorf("lock image %s: %w", name, err)
	}

	d, err := disk.NewFileDisk(name, nd)
	if err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return false, fmt.Errorf("could not open disk %s: %w", name, err)
	}
	fd.d = d
	if nd > diskBlocks(fd.want) {
		fd.nblock = nd * perDiskBlock
	}
	fd.lock = f
	fd.name = name
	util.DPrintf(1, "FileDevice: mount %s existed %v blocks %d\n", name, existed, fd.nblock)
	return existed, nil
}

func (fd *FileDevice) Unmount(name string) error {
	if fd.d == nil || name != fd.name {
		return ErrNotMounted
	}
	fd.d.Barrier()
	fd.d.Close()
	fd.d = nil
	fd.nblock = fd.want
	err := unix.Flock(int(fd.lock.Fd()), unix.LOCK_UN)
	if cerr := fd.lock.Close(); err == nil {
		err = cerr
	}
	fd.lock = nil
	util.DPrintf(1, "FileDevice: unmount %s\n", name)
	return err
}

func (fd *FileDevice) Discard(name string) error {
	if fd.d != nil && fd.name == name {
		return ErrMounted
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard image %s: %w", name, err)
	}
	util.DPrintf(1, "FileDevice: discard %s\n", name)
	return nil
}
