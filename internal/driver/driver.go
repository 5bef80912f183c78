package driver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jacobsa/fuse"
	"golang.org/x/sync/errgroup"

	"github.com/crashfs/crashfs/internal/blockfs"
	"github.com/crashfs/crashfs/internal/changelog"
	"github.com/crashfs/crashfs/internal/filterexpr"
	"github.com/crashfs/crashfs/internal/gentest"
	"github.com/crashfs/crashfs/internal/logger"
	"github.com/crashfs/crashfs/internal/mountopts"
	"github.com/crashfs/crashfs/internal/mutate"
	"github.com/crashfs/crashfs/internal/replay"
)

// fileName is the single child file the mounted filesystem presents.
const fileName = "disk"

// Driver composes changelog, replay, mutate, gentest, and blockfs into the
// five CLI verbs. Dir is the working directory holding the "base" image and
// the "changes" log.
type Driver struct {
	Dir string
}

// New returns a Driver rooted at dir.
func New(dir string) *Driver {
	return &Driver{Dir: dir}
}

func (d *Driver) basePath() string {
	return filepath.Join(d.Dir, "base")
}

func (d *Driver) readBase() ([]byte, error) {
	data, err := os.ReadFile(d.basePath())
	if err != nil {
		return nil, fmt.Errorf("%w: read base image: %v", ErrSetup, err)
	}
	return data, nil
}

// MountOptions configures the mount verb.
type MountOptions struct {
	Record     bool
	Filter     string
	Sudo       bool
	AllowOther bool
	Mountpoint string
	Exec       string
}

// Mount creates a mount presenting the base image (or, in replay mode, the
// materialized image) as a single file, runs Exec against it, and on exit
// either stores the accumulated log (recording mode) or simply unmounts
// (replay mode).
func (d *Driver) Mount(ctx context.Context, opts MountOptions) error {
	base, err := d.readBase()
	if err != nil {
		return err
	}

	uid, gid, err := mountopts.MyUserAndGroup()
	if err != nil {
		return fmt.Errorf("%w: resolve invoking user: %v", ErrSetup, err)
	}

	if cur, ok := mountopts.CheckFileLimit(); !ok {
		logger.Warnf("crashfs: RLIMIT_NOFILE is low (%d); the mount session may fail to open enough descriptors", cur)
	}

	var fsys *blockfs.FS
	var log *changelog.Log

	if opts.Record {
		log = changelog.New(uint64(len(base)))
		fsys = blockfs.New(fileName, base, uid, gid, &blockfs.RecordingPolicy{Log: log})
	} else {
		loaded, err := changelog.Load(d.Dir, uint64(len(base)))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		filter := filterexpr.None
		if opts.Filter != "" {
			filter, err = filterexpr.Parse(opts.Filter)
			if err != nil {
				return fmt.Errorf("%w: parse filter: %v", ErrSetup, err)
			}
		}
		materialized, err := replay.Materialize(base, loaded, filter)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		fsys = blockfs.New(fileName, materialized, uid, gid, blockfs.ReplayPolicy{})
	}

	mountpoint := opts.Mountpoint
	if mountpoint == "" {
		mountpoint, err = os.MkdirTemp("", "crashfs-mnt-")
		if err != nil {
			return fmt.Errorf("%w: create mountpoint: %v", ErrSetup, err)
		}
		defer os.Remove(mountpoint)
	}

	parsedOptions := make(map[string]string)
	if opts.AllowOther {
		mountopts.ParseOptions(parsedOptions, "allow_other")
	}

	mountCfg := &fuse.MountConfig{
		FSName:     "crashfs",
		Subtype:    "crashfs",
		VolumeName: "crashfs",
		Options:    parsedOptions,
	}

	server := blockfs.Server(fsys)
	mfs, err := fuse.Mount(mountpoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("%w: mount: %v", ErrSetup, err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		return mfs.Join(context.Background())
	})

	guestDone := make(chan error, 1)
	go func() {
		guestDone <- d.runGuest(sigCtx, opts, filepath.Join(mountpoint, fileName))
	}()

	var guestErr error
	select {
	case <-sigCtx.Done():
		logger.Warnf("crashfs: received shutdown signal, unmounting")
		guestErr = <-guestDone
	case guestErr = <-guestDone:
	}

	if err := fuse.Unmount(mountpoint); err != nil {
		logger.Warnf("crashfs: unmount %s: %v", mountpoint, err)
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %v", ErrUpcall, err)
	}

	if opts.Record {
		if err := log.Store(d.Dir); err != nil {
			return fmt.Errorf("%w: store change log: %v", ErrIO, err)
		}
	}

	if guestErr != nil {
		return fmt.Errorf("%w: %v", ErrGuest, guestErr)
	}
	return nil
}

// runGuest runs opts.Exec as a shell command, substituting $1 with
// filePath, optionally prefixed with an elevation helper. It merely
// prepends the helper and otherwise does not interpret the command.
func (d *Driver) runGuest(ctx context.Context, opts MountOptions, filePath string) error {
	name := "sh"
	args := []string{"-c", opts.Exec, "crashfs", filePath}
	if opts.Sudo {
		args = append([]string{"-n", "--", "sh"}, args...)
		name = "sudo"
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (d *Driver) baseLen() (uint64, error) {
	info, err := os.Stat(d.basePath())
	if err != nil {
		return 0, fmt.Errorf("%w: stat base image: %v", ErrSetup, err)
	}
	return uint64(info.Size()), nil
}

// Show pretty-prints the change log with entry indices, offsets, and
// lengths.
func (d *Driver) Show(w io.Writer) error {
	baseLen, err := d.baseLen()
	if err != nil {
		return err
	}
	log, err := changelog.Load(d.Dir, baseLen)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()
	for i, e := range log.Entries() {
		fmt.Fprintf(bw, "%d: %s\n", i, e.String())
	}
	return nil
}

// Mutate rewrites changes per opts.
func (d *Driver) Mutate(opts mutate.Options) error {
	baseLen, err := d.baseLen()
	if err != nil {
		return err
	}
	log, err := changelog.Load(d.Dir, baseLen)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	mutated := mutate.Apply(log, opts)
	if err := mutated.Store(d.Dir); err != nil {
		return fmt.Errorf("%w: store mutated log: %v", ErrIO, err)
	}
	return nil
}

// GenTests prints generated filters, one per line.
func (d *Driver) GenTests(w io.Writer, cap int) error {
	baseLen, err := d.baseLen()
	if err != nil {
		return err
	}
	log, err := changelog.Load(d.Dir, baseLen)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	bw := bufio.NewWriter(w)
	defer bw.Flush()
	for _, f := range gentest.Generate(log, cap) {
		fmt.Fprintln(bw, f)
	}
	return nil
}
