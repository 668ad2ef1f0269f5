//go:build unix

package fdlimit

import "golang.org/x/sys/unix"

// openFileLimit returns the soft RLIMIT_NOFILE value.
func openFileLimit() (int, bool) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, false
	}
	cur := uint64(lim.Cur)
	if cur > 1<<31 {
		cur = 1 << 31
	}
	return int(cur), true
}
