package fs

import (
	"fmt"

	"github.com/mit-pdos/go-fssim/common"
)

func (suite *FsSuite) TestMkdirRmdir() {
	before := suite.df()
	inum, err := suite.fs.Mkdir("d")
	suite.Require().NoError(err)
	suite.Equal(common.Inum(1), inum)
	suite.Equal(before.FreeBlocks-1, suite.df().FreeBlocks)
	suite.Equal(before.FreeInodes-1, suite.df().FreeInodes)

	attr, err := suite.fs.Stat("d")
	suite.Require().NoError(err)
	suite.Equal(common.KindDir, attr.Kind)
	suite.Equal(uint64(1), attr.BlockCount)
	suite.Equal(uint64(1), attr.Size)

	suite.Require().NoError(suite.fs.Rmdir("d"))
	suite.Equal(before, suite.df())
	_, err = suite.fs.Stat("d")
	suite.ErrorIs(err, ErrNotFound)

	// the freed inode is the next one handed out
	inum, err = suite.fs.Mkdir("e")
	suite.Require().NoError(err)
	suite.Equal(common.Inum(1), inum)
}

func (suite *FsSuite) TestMkdirErrors() {
	suite.create("f", 1)
	_, err := suite.fs.Mkdir("f")
	suite.ErrorIs(err, ErrExists)
	_, err = suite.fs.Mkdir(".")
	suite.ErrorIs(err, ErrExists)
	_, err = suite.fs.Mkdir("a-directory-name-too-long")
	suite.ErrorIs(err, ErrNameTooLong)
}

func (suite *FsSuite) TestMkdirKeepsASlot() {
	suite.reformat(128, 32)
	// "." plus 19 entries: a file still fits, a directory does not
	for i := 1; i < int(common.MaxDirEntry)-1; i++ {
		suite.create(fmt.Sprintf("f%d", i), 0)
	}
	_, err := suite.fs.Mkdir("d")
	suite.ErrorIs(err, ErrDirFull)
	suite.create("last", 0)
}

func (suite *FsSuite) TestMkdirOutOfBlocks() {
	for i := 0; suite.df().FreeBlocks >= common.NDirect; i++ {
		suite.create(fmt.Sprintf("f%d", i), int64(common.SmallFile))
	}
	left := suite.df().FreeBlocks
	suite.create("rest", int64(left*common.BlockSize))
	before := suite.df()
	_, err := suite.fs.Mkdir("d")
	suite.ErrorIs(err, ErrNoBlocks)
	suite.Equal(before, suite.df())
}

func (suite *FsSuite) TestRmdirErrors() {
	suite.create("f", 1)
	suite.ErrorIs(suite.fs.Rmdir("nope"), ErrNotFound)
	suite.ErrorIs(suite.fs.Rmdir("f"), ErrIsFile)
	suite.ErrorIs(suite.fs.Rmdir("."), ErrInvalidName)
	suite.ErrorIs(suite.fs.Rmdir(".."), ErrInvalidName)
}

func (suite *FsSuite) TestRmdirNotEmpty() {
	_, err := suite.fs.Mkdir("d")
	suite.Require().NoError(err)
	suite.Require().NoError(suite.fs.Cd("d"))
	data := suite.create("inner", 40)
	suite.Require().NoError(suite.fs.Cd(".."))

	before := suite.df()
	suite.ErrorIs(suite.fs.Rmdir("d"), ErrNotEmpty)
	suite.Equal(before, suite.df())

	suite.Require().NoError(suite.fs.Cd("d"))
	got, err := suite.fs.Cat("inner")
	suite.Require().NoError(err)
	suite.Equal(data, got)
	_, err = suite.fs.Remove("inner")
	suite.Require().NoError(err)
	suite.Require().NoError(suite.fs.Cd(".."))
	suite.Require().NoError(suite.fs.Rmdir("d"))
}

func (suite *FsSuite) TestCd() {
	_, err := suite.fs.Mkdir("d")
	suite.Require().NoError(err)
	suite.create("f", 1)
	suite.ErrorIs(suite.fs.Cd("f"), ErrNotDir)
	suite.ErrorIs(suite.fs.Cd("nope"), ErrNotFound)

	dattr, _ := suite.fs.Stat("d")
	suite.Require().NoError(suite.fs.Cd("d"))
	suite.Equal([]string{".", ".."}, suite.names())
	self, err := suite.fs.Stat(".")
	suite.Require().NoError(err)
	suite.Equal(dattr.Inum, self.Inum)
	suite.True(self.LastAccess.After(dattr.LastAccess))
	parent, err := suite.fs.Stat("..")
	suite.Require().NoError(err)
	suite.Equal(common.ROOTINUM, parent.Inum)

	// the root has no ".." of its own
	suite.Require().NoError(suite.fs.Cd(".."))
	suite.ErrorIs(suite.fs.Cd(".."), ErrNotFound)
	suite.Equal([]string{".", "d", "f"}, suite.names())
}

func (suite *FsSuite) TestNestedDirs() {
	_, err := suite.fs.Mkdir("a")
	suite.Require().NoError(err)
	suite.Require().NoError(suite.fs.Cd("a"))
	_, err = suite.fs.Mkdir("b")
	suite.Require().NoError(err)
	aattr, _ := suite.fs.Stat(".")
	suite.Require().NoError(suite.fs.Cd("b"))
	parent, _ := suite.fs.Stat("..")
	suite.Equal(aattr.Inum, parent.Inum)
	suite.create("deep", 3)
	suite.Require().NoError(suite.fs.Cd(".."))
	suite.Require().NoError(suite.fs.Cd(".."))
	suite.Require().NoError(suite.fs.Cd("a"))
	suite.Require().NoError(suite.fs.Cd("b"))
	suite.Equal([]string{".", "..", "deep"}, suite.names())
}

// A create is only in memory until the directory is written back; cd
// writes it before switching.
func (suite *FsSuite) TestCdWritesBackCreate() {
	_, err := suite.fs.Mkdir("d")
	suite.Require().NoError(err)
	suite.Require().NoError(suite.fs.Cd("d"))
	suite.create("x", 5)
	suite.Require().NoError(suite.fs.Cd(".."))
	suite.Require().NoError(suite.fs.Cd("d"))
	suite.Equal([]string{".", "..", "x"}, suite.names())
}

func (suite *FsSuite) TestLs() {
	suite.create("f", 600)
	_, err := suite.fs.Mkdir("d")
	suite.Require().NoError(err)
	suite.Require().NoError(suite.fs.Link("f", "g"))
	ents, err := suite.fs.Ls()
	suite.Require().NoError(err)
	suite.Equal([]DirEntry{
		{Name: ".", Inum: 0, Kind: common.KindDir, Size: 1},
		{Name: "f", Inum: 1, Kind: common.KindFile, Size: 600},
		{Name: "d", Inum: 2, Kind: common.KindDir, Size: 1},
		{Name: "g", Inum: 1, Kind: common.KindFile, Size: 600},
	}, ents)
}
