//go:build !unix

package fdlimit

// openFileLimit returns a fallback for platforms without rlimits.
// Returns false to indicate the value is not reliable.
func openFileLimit() (int, bool) {
	return 0, false
}
