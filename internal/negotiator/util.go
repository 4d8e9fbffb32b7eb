package negotiator

import "io"

// readAllLimited reads at most max bytes from r, guarding against a misbehaving or malicious judge
// sending an unbounded body.
func readAllLimited(r io.Reader, max int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, max))
}
