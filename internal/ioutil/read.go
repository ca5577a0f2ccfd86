package ioutil

import (
	"fmt"
	"io"
)

// ReadLimited reads at most limit bytes from r. A read failure yields
// a short description rather than an error, so callers can embed
// provider response bodies in error messages unconditionally.
func ReadLimited(r io.Reader, limit int64) string {
	body, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return string(body)
}
