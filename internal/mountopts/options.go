// Package mountopts parses the repeated "-o" mount option flag into a
// key/value map, and resolves the uid/gid of the invoking user for the
// synthetic file's ownership.
package mountopts

import (
	"strings"

	"golang.org/x/sys/unix"
)

// ParseOptions splits a comma-separated "-o" argument (e.g.
// "allow_other,ro,uid=1000") into into, accumulating across repeated calls
// for repeated "-o" flags. A bare option with no "=value" is recorded with
// an empty value (its presence is the signal, e.g. "allow_other").
func ParseOptions(into map[string]string, o string) {
	for _, part := range strings.Split(o, ",") {
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, '='); i >= 0 {
			into[part[:i]] = part[i+1:]
		} else {
			into[part] = ""
		}
	}
}

// MyUserAndGroup returns the uid/gid of the current process, used to own
// the mounted file so the invoking user (not necessarily root) can read and
// write it.
func MyUserAndGroup() (uid uint32, gid uint32, err error) {
	return uint32(unix.Getuid()), uint32(unix.Getgid()), nil
}

// defaultFileLimit is used when RLIMIT_NOFILE cannot be queried.
const defaultFileLimit = 512

// CheckFileLimit queries RLIMIT_NOFILE and reports whether it is large
// enough for one mount session (a handful of file descriptors: the FUSE
// session fd, base/changes, and a handful of guest-opened handles on the
// single exposed file). A low limit is not fatal by itself, so the caller
// decides whether to warn or proceed.
func CheckFileLimit() (cur uint64, ok bool) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return defaultFileLimit, defaultFileLimit >= minFileLimit
	}
	return rlimit.Cur, rlimit.Cur >= minFileLimit
}

// minFileLimit is a conservative floor: one session fd, one base-image fd,
// one changes-log fd, and room for a loop-mounted filesystem to hold a
// handful of handles open concurrently (journal, superblock rereads, ...).
const minFileLimit = 16
