package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/goose-lang/std"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/common"
	"github.com/mit-pdos/go-fssim/device"
	"github.com/mit-pdos/go-fssim/fs"
	"github.com/mit-pdos/go-fssim/util/timed_disk"
)

// smallfile represents one iteration of this benchmark: it creates a file,
// reads it back, and deletes it.
func smallfile(fsys *fs.Filesystem, name string, size int64) {
	_, data, err := fsys.Create(name, size)
	if err != nil {
		panic(err)
	}
	got, err := fsys.Cat(name)
	if err != nil {
		panic(err)
	}
	if !std.BytesEqual(got, data) {
		panic(fmt.Errorf("%s: read back %d bytes that differ from the %d written", name, len(got), len(data)))
	}
	if _, err := fsys.Remove(name); err != nil {
		panic(err)
	}
}

func fill(b []byte) {
	for i := range b {
		b[i] = byte('a' + i%26)
	}
}

type config struct {
	duration time.Duration
	size     int64
	allTimes bool // whether to record individual iteration timings
}

func run(fsys *fs.Filesystem, c config) (elapsed time.Duration, iters int, times []time.Duration) {
	if c.allTimes {
		times = make([]time.Duration, 0, int(c.duration.Seconds()*1000))
	}
	start := time.Now()
	for {
		before := elapsed
		smallfile(fsys, "x"+strconv.Itoa(iters%100), c.size)
		iters++
		elapsed = time.Since(start)
		if c.allTimes {
			times = append(times, elapsed-before)
		}
		if elapsed >= c.duration {
			return
		}
	}
}

func main() {
	var c config
	var diskfile string
	var timingFile string
	var dumpStats bool
	flag.DurationVar(&c.duration, "benchtime", 10*time.Second, "time to run for")
	flag.Int64Var(&c.size, "size", 100, "bytes per file")
	flag.StringVar(&diskfile, "disk", "", "disk image (empty for an in-memory image)")
	flag.StringVar(&timingFile, "time-iters", "", "file for individual timings")
	flag.BoolVar(&dumpStats, "stats", false, "dump stats to stderr at end")
	flag.Uint64Var(&util.Debug, "debug", 0, "debug level (higher is more verbose)")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Parse()

	if c.size < 0 || uint64(c.size) > common.SmallFile {
		panic(fmt.Errorf("size must be in [0, %d]", common.SmallFile))
	}

	var d device.Device
	if diskfile == "" {
		d = device.NewMemDevice(common.MaxBlock)
	} else {
		d = device.NewFileDevice(common.MaxBlock)
	}
	if dumpStats {
		d = timed_disk.New(d)
	}
	name := diskfile
	if name == "" {
		name = "bench"
	}
	fsys, err := fs.Mount(d, name, fs.Options{Fill: fill})
	if err != nil {
		panic(err)
	}

	// warmup (skip if running for very little time, for example when using a
	// duration of 0s to run just one iteration)
	if c.duration > 500*time.Millisecond {
		run(fsys, config{duration: 500 * time.Millisecond, size: c.size})
		fsys.ResetOpStats()
		if dumpStats {
			d.(*timed_disk.Disk).ResetStats()
		}
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	c.allTimes = timingFile != ""
	elapsed, count, times := run(fsys, c)
	fmt.Printf("fssim-smallfile: %0.4f file/sec\n", float64(count)/elapsed.Seconds())
	if len(times) > 0 {
		f, err := os.Create(timingFile)
		if err != nil {
			panic(fmt.Errorf("could not create timing file: %v", err))
		}
		for _, t := range times {
			fmt.Fprintf(f, "%f\n", t.Seconds())
		}
		f.Close()
	}

	if dumpStats {
		fsys.WriteOpStats(os.Stderr)
		d.(*timed_disk.Disk).WriteStats(os.Stderr)
	}
	if err := fsys.Unmount(); err != nil {
		panic(err)
	}
}
