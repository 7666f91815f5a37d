package terminal

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// capture accumulates subscribed output and signals each arrival.
type capture struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	notify chan struct{}
}

func newCapture() *capture {
	return &capture{notify: make(chan struct{}, 1)}
}

func (c *capture) write(p []byte) {
	c.mu.Lock()
	c.buf.Write(p)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// marker detects the end of a command in a persistent shell. The shell is
// asked to echo a token after the command; the echoed input line spells the
// token with a quote break so only the shell's own output matches.
type marker struct {
	token   string
	pattern *regexp.Regexp
}

func newMarker() (*marker, error) {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate completion marker: %w", err)
	}
	token := hex.EncodeToString(raw)
	return &marker{
		token:   token,
		pattern: regexp.MustCompile(`__SHELL_DONE_` + token + `__(\d+)\r?\n`),
	}, nil
}

// command is the line written after the user's command
func (m *marker) command() string {
	return fmt.Sprintf(`echo "__SHELL_""DONE_%s__$?"`, m.token)
}

// find looks for the marker in out. It returns the output preceding it,
// with the echoed marker command removed, and the command's exit status.
func (m *marker) find(out string) (string, int, bool) {
	loc := m.pattern.FindStringSubmatchIndex(out)
	if loc == nil {
		return "", 0, false
	}

	status, _ := strconv.Atoi(out[loc[2]:loc[3]])

	lines := strings.SplitAfter(out[:loc[0]], "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, m.token) || strings.Contains(line, `__SHELL_""DONE_`) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, ""), status, true
}
