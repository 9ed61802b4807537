package fs

import (
	"errors"

	"github.com/mit-pdos/go-fssim/super"
)

// Every operation wraps one of these with the operation and name; test
// with errors.Is. A failed operation leaves the filesystem unchanged.
var (
	ErrNotFound        = errors.New("no such file or directory")
	ErrExists          = errors.New("file exists")
	ErrNotDir          = errors.New("not a directory")
	ErrIsDir           = errors.New("is a directory")
	ErrIsFile          = errors.New("is a file")
	ErrDirFull         = errors.New("directory is full")
	ErrNoInodes        = errors.New("out of inodes")
	ErrNoBlocks        = errors.New("out of data blocks")
	ErrInvalidSize     = errors.New("invalid size")
	ErrTooBig          = errors.New("size exceeds limit")
	ErrOffsetBeyondEnd = errors.New("offset beyond end of file")
	ErrNotEmpty        = errors.New("directory not empty")
	ErrNameTooLong     = errors.New("file name too long")
	ErrInvalidName     = errors.New("invalid file name")
	ErrNotMounted      = errors.New("filesystem not mounted")

	// ErrInvalidImage means the image cannot be trusted; callers end the
	// session rather than retry.
	ErrInvalidImage = super.ErrInvalidImage
)
