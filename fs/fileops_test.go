package fs

import (
	"fmt"
	"math"

	"github.com/mit-pdos/go-fssim/common"
)

func (suite *FsSuite) TestCreateCat() {
	sizes := []int64{0, 1, 100, 511, 512, 513, 1500, 2048, int64(common.SmallFile)}
	for i, sz := range sizes {
		name := fmt.Sprintf("f%d", i)
		data := suite.create(name, sz)
		got, err := suite.fs.Cat(name)
		suite.Require().NoError(err)
		suite.Equal(data, got, "size %d", sz)

		attr, err := suite.fs.Stat(name)
		suite.Require().NoError(err)
		suite.Equal(uint64(sz), attr.Size)
		suite.Equal(uint64((sz+511)/512), attr.BlockCount)
		suite.Equal(uint32(1), attr.Nlink)
		suite.Equal(common.KindFile, attr.Kind)
		suite.Equal(uint32(1), attr.Owner)
		suite.Equal(uint32(2), attr.Group)
	}
}

func (suite *FsSuite) TestCreateAccounting() {
	before := suite.df()
	inum, _, err := suite.fs.Create("a", 1025)
	suite.Require().NoError(err)
	suite.Equal(common.Inum(1), inum)
	after := suite.df()
	suite.Equal(before.FreeBlocks-3, after.FreeBlocks)
	suite.Equal(before.FreeInodes-1, after.FreeInodes)

	// the parent's access time moves with the create
	root, err := suite.fs.Stat(".")
	suite.Require().NoError(err)
	suite.True(root.LastAccess.After(root.Created))
}

func (suite *FsSuite) TestCreateErrors() {
	suite.create("a", 10)
	before := suite.df()

	_, _, err := suite.fs.Create("big", int64(common.SmallFile)+1)
	suite.ErrorIs(err, ErrTooBig)
	_, _, err = suite.fs.Create("neg", -1)
	suite.ErrorIs(err, ErrInvalidSize)
	_, _, err = suite.fs.Create("a", 10)
	suite.ErrorIs(err, ErrExists)
	_, _, err = suite.fs.Create(".", 10)
	suite.ErrorIs(err, ErrExists)
	_, _, err = suite.fs.Create("abcdefghijklmnopqrstuvwxyz", 10)
	suite.ErrorIs(err, ErrNameTooLong)
	_, _, err = suite.fs.Create("", 10)
	suite.ErrorIs(err, ErrInvalidName)

	suite.Equal(before, suite.df(), "failed creates leave no trace")
	suite.Equal([]string{".", "a"}, suite.names())
}

func (suite *FsSuite) TestCreateDirFull() {
	// testNInode is too small to fill a directory
	suite.reformat(128, 32)

	for i := uint64(1); i < common.MaxDirEntry; i++ {
		suite.create(fmt.Sprintf("f%d", i), 0)
	}
	_, _, err := suite.fs.Create("one-more", 0)
	suite.ErrorIs(err, ErrDirFull)
	err = suite.fs.Link("f1", "alias")
	suite.ErrorIs(err, ErrDirFull)
}

func (suite *FsSuite) TestCreateOutOfBlocks() {
	free := suite.df().FreeBlocks
	n := int64(common.SmallFile)
	perFile := uint64(common.NDirect)
	var i int
	for ; suite.df().FreeBlocks >= perFile; i++ {
		suite.create(fmt.Sprintf("f%d", i), n)
	}
	left := suite.df().FreeBlocks
	suite.Equal(free%perFile, left)

	before := suite.df()
	_, _, err := suite.fs.Create("toobig", int64(left+1)*int64(common.BlockSize))
	suite.ErrorIs(err, ErrNoBlocks)
	suite.Equal(before, suite.df())

	suite.create("fits", int64(left)*int64(common.BlockSize))
	suite.Equal(uint64(0), suite.df().FreeBlocks)
	_, _, err = suite.fs.Create("one", 1)
	suite.ErrorIs(err, ErrNoBlocks)
	// empty files need no blocks
	suite.create("empty", 0)
}

func (suite *FsSuite) TestInodeExhaustion() {
	for i := 1; i < testNInode; i++ {
		suite.create(fmt.Sprintf("f%d", i), 1)
	}
	_, _, err := suite.fs.Create("last", 1)
	suite.ErrorIs(err, ErrNoInodes)
	_, err = suite.fs.Mkdir("d")
	suite.ErrorIs(err, ErrNoInodes)

	_, err = suite.fs.Remove("f5")
	suite.Require().NoError(err)
	inum, _, err := suite.fs.Create("last", 1)
	suite.Require().NoError(err)
	suite.Equal(common.Inum(5), inum, "lowest freed inode is reused")
}

func (suite *FsSuite) TestRead() {
	data := suite.create("f", 1300)

	got, err := suite.fs.Read("f", 0, 1300)
	suite.Require().NoError(err)
	suite.Equal(data, got)

	got, err = suite.fs.Read("f", 500, 30)
	suite.Require().NoError(err)
	suite.Equal(data[500:530], got, "range straddling a block boundary")

	got, err = suite.fs.Read("f", 1024, 276)
	suite.Require().NoError(err)
	suite.Equal(data[1024:], got)

	got, err = suite.fs.Read("f", 1000, 1000)
	suite.Require().NoError(err)
	suite.Equal(data[1000:], got, "truncated to end of file")

	got, err = suite.fs.Read("f", 1300, 10)
	suite.Require().NoError(err)
	suite.Empty(got)

	got, err = suite.fs.Read("f", 10, 1<<62)
	suite.Require().NoError(err)
	suite.Equal(data[10:], got)

	// the largest size the shell can parse
	got, err = suite.fs.Read("f", 1299, math.MaxInt64)
	suite.Require().NoError(err)
	suite.Equal(data[1299:], got)
	got, err = suite.fs.Read("f", 1300, math.MaxInt64)
	suite.Require().NoError(err)
	suite.Empty(got)

	_, err = suite.fs.Read("f", 1301, 1)
	suite.ErrorIs(err, ErrOffsetBeyondEnd)
	_, err = suite.fs.Read("f", -1, 1)
	suite.ErrorIs(err, ErrInvalidSize)
	_, err = suite.fs.Read("nope", 0, 1)
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *FsSuite) TestReadTouchesAccessTime() {
	suite.create("f", 10)
	a1, _ := suite.fs.Stat("f")
	_, err := suite.fs.Read("f", 0, 1)
	suite.Require().NoError(err)
	a2, _ := suite.fs.Stat("f")
	suite.True(a2.LastAccess.After(a1.LastAccess))
	suite.Equal(a1.Created, a2.Created)

	_, err = suite.fs.Cat("f")
	suite.Require().NoError(err)
	a3, _ := suite.fs.Stat("f")
	suite.True(a3.LastAccess.After(a2.LastAccess))
}

func (suite *FsSuite) TestReadDirectory() {
	_, err := suite.fs.Mkdir("d")
	suite.Require().NoError(err)
	_, err = suite.fs.Cat("d")
	suite.ErrorIs(err, ErrIsDir)
	_, err = suite.fs.Read("d", 0, 1)
	suite.ErrorIs(err, ErrIsDir)
	_, err = suite.fs.Cat("missing")
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *FsSuite) TestRemove() {
	before := suite.df()
	suite.create("f", 1100)
	attr, _ := suite.fs.Stat("f")
	mid := suite.df()

	nlink, err := suite.fs.Remove("f")
	suite.Require().NoError(err)
	suite.Equal(uint32(0), nlink)
	_, err = suite.fs.Stat("f")
	suite.ErrorIs(err, ErrNotFound)
	after := suite.df()
	suite.Equal(mid.FreeBlocks+attr.BlockCount, after.FreeBlocks)
	suite.Equal(mid.FreeInodes+1, after.FreeInodes)
	suite.Equal(before, after)

	_, err = suite.fs.Remove("f")
	suite.ErrorIs(err, ErrNotFound)
	_, err = suite.fs.Mkdir("d")
	suite.Require().NoError(err)
	_, err = suite.fs.Remove("d")
	suite.ErrorIs(err, ErrIsDir)
}

func (suite *FsSuite) TestRemoveOrder() {
	suite.create("a", 1)
	suite.create("b", 1)
	suite.create("c", 1)
	suite.create("d", 1)
	_, err := suite.fs.Remove("b")
	suite.Require().NoError(err)
	suite.Equal([]string{".", "a", "d", "c"}, suite.names())
	_, err = suite.fs.Remove("c")
	suite.Require().NoError(err)
	suite.Equal([]string{".", "a", "d"}, suite.names())
}

func (suite *FsSuite) TestHardLink() {
	data := suite.create("a", 700)
	attr, _ := suite.fs.Stat("a")
	suite.Require().NoError(suite.fs.Link("a", "b"))
	free := suite.df()

	battr, err := suite.fs.Stat("b")
	suite.Require().NoError(err)
	suite.Equal(attr.Inum, battr.Inum)
	suite.Equal(uint32(2), battr.Nlink)

	nlink, err := suite.fs.Remove("a")
	suite.Require().NoError(err)
	suite.Equal(uint32(1), nlink)
	suite.Equal(free, suite.df(), "nothing is freed while a link remains")
	got, err := suite.fs.Cat("b")
	suite.Require().NoError(err)
	suite.Equal(data, got)

	nlink, err = suite.fs.Remove("b")
	suite.Require().NoError(err)
	suite.Equal(uint32(0), nlink)
	suite.Equal(free.FreeBlocks+2, suite.df().FreeBlocks)
	suite.Equal(free.FreeInodes+1, suite.df().FreeInodes)
}

func (suite *FsSuite) TestHardLinkErrors() {
	suite.create("a", 1)
	suite.create("b", 1)
	suite.ErrorIs(suite.fs.Link("x", "y"), ErrNotFound)
	suite.ErrorIs(suite.fs.Link("a", "b"), ErrExists)
	suite.ErrorIs(suite.fs.Link("a", "."), ErrExists)
	suite.ErrorIs(suite.fs.Link(".", "root"), ErrIsDir)
	suite.ErrorIs(suite.fs.Link("a", "this-name-is-far-too-long"), ErrNameTooLong)
	attr, _ := suite.fs.Stat("a")
	suite.Equal(uint32(1), attr.Nlink)
}

func (suite *FsSuite) TestStatNotFound() {
	_, err := suite.fs.Stat("nope")
	suite.ErrorIs(err, ErrNotFound)
}
