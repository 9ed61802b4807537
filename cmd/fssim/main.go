package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/mit-pdos/go-journal/util"

	"github.com/mit-pdos/go-fssim/config"
	"github.com/mit-pdos/go-fssim/device"
	"github.com/mit-pdos/go-fssim/fs"
	"github.com/mit-pdos/go-fssim/shell"
	"github.com/mit-pdos/go-fssim/util/timed_disk"
)

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("image") {
		cfg.Image = c.String("image")
	}
	if c.IsSet("mem") {
		cfg.Mem = c.Bool("mem")
	}
	if c.IsSet("max-block") {
		cfg.MaxBlock = c.Uint64("max-block")
	}
	if c.IsSet("max-inode") {
		cfg.MaxInode = c.Uint64("max-inode")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Uint64("debug")
	}
	if c.IsSet("stats") {
		cfg.Stats = c.Bool("stats")
	}
	if c.IsSet("prompt") {
		cfg.Prompt = c.String("prompt")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withShell mounts the configured image, hands a shell to run and unmounts
// once run returns or the process is interrupted.
func withShell(run func(ctx context.Context, sh *shell.Shell, cfg *config.Config) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		util.Debug = cfg.Debug

		if p := c.String("cpuprofile"); p != "" {
			f, err := os.Create(p)
			if err != nil {
				log.Fatal(err)
			}
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		var d device.Device
		if cfg.Mem {
			d = device.NewMemDevice(cfg.MaxBlock)
		} else {
			d = device.NewFileDevice(cfg.MaxBlock)
		}
		if cfg.Stats {
			d = timed_disk.New(d)
		}
		image := cfg.Image
		if cfg.Mem {
			image = "mem"
		}

		fsys, err := fs.Mount(d, image, fs.Options{NBlock: cfg.MaxBlock, NInode: cfg.MaxInode})
		if errors.Is(err, fs.ErrInvalidImage) {
			log.Fatalf("%v", err)
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		defer stop()

		if cfg.Stats {
			statSig := make(chan os.Signal, 1)
			signal.Notify(statSig, syscall.SIGUSR1)
			defer signal.Stop(statSig)
			go func() {
				for range statSig {
					fsys.WriteOpStats(os.Stderr)
					fsys.ResetOpStats()
					d := d.(*timed_disk.Disk)
					d.WriteStats(os.Stderr)
					d.ResetStats()
				}
			}()
		}

		sh := shell.New(fsys, os.Stdout)
		err = run(ctx, sh, cfg)
		if errors.Is(err, context.Canceled) {
			util.DPrintf(1, "interrupted\n")
			err = nil
		}
		if uerr := fsys.Unmount(); uerr != nil && err == nil {
			err = uerr
		}
		if cfg.Stats {
			fsys.WriteOpStats(os.Stderr)
			d.(*timed_disk.Disk).WriteStats(os.Stderr)
		}
		return err
	}
}

func interactive(ctx context.Context, sh *shell.Shell, cfg *config.Config) error {
	sh.SetPrompt(cfg.Prompt)
	return sh.Run(ctx, os.Stdin)
}

func execScript(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: fssim exec <script>", 2)
	}
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()
	return withShell(func(ctx context.Context, sh *shell.Shell, cfg *config.Config) error {
		return sh.Run(ctx, f)
	})(c)
}

func main() {
	app := cli.App{
		Name:  "fssim",
		Usage: "a simulated disk filesystem with a command shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "disk image file, created and formatted if missing",
			},
			&cli.BoolFlag{
				Name:  "mem",
				Usage: "use an in-memory image instead of a file",
			},
			&cli.Uint64Flag{
				Name:  "max-block",
				Usage: "blocks in a newly formatted image",
			},
			&cli.Uint64Flag{
				Name:  "max-inode",
				Usage: "inodes in a newly formatted image",
			},
			&cli.Uint64Flag{
				Name:  "debug",
				Usage: "debug level (higher is more verbose)",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "dump stats to stderr at end",
			},
			&cli.StringFlag{
				Name:  "prompt",
				Usage: "interactive prompt",
			},
			&cli.StringFlag{
				Name:  "cpuprofile",
				Usage: "write cpu profile to file",
			},
		},
		Action: withShell(interactive),
		Commands: []*cli.Command{{
			Name:   "run",
			Usage:  "read commands interactively from stdin",
			Action: withShell(interactive),
		}, {
			Name:      "exec",
			Usage:     "run the commands in a script file",
			ArgsUsage: "<script>",
			Action:    execScript,
		}},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fssim: %v\n", err)
		os.Exit(1)
	}
}
