// Package sse splits a server-sent-events byte stream into lines and picks
// out the data-bearing ones. It knows nothing about transports or JSON.
package sse

import (
	"bytes"
	"strings"
)

const (
	DataPrefix = "data:"

	// Done is the payload the server sends as its last data line.
	Done = "[DONE]"
)

// Payload reports whether line is a data line and, if so, returns what follows
// the "data:" prefix with one optional leading space removed. The terminal
// sentinel is reported as not a payload.
func Payload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")

	value, ok := strings.CutPrefix(line, DataPrefix)
	if !ok {
		return "", false
	}
	value = strings.TrimPrefix(value, " ")

	if value == Done {
		return "", false
	}

	return value, true
}

// Payloads splits text on line feeds and returns the payload candidates in
// the order they appear.
func Payloads(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if p, ok := Payload(line); ok {
			out = append(out, p)
		}
	}
	return out
}

// Splitter turns arbitrary chunks into complete lines. Bytes after the last
// line feed of a chunk are carried over and prepended to the next one.
type Splitter struct {
	partial []byte
}

// Feed appends chunk to any carried-over bytes and returns every line that is
// now complete, without its line feed.
func (s *Splitter) Feed(chunk []byte) [][]byte {
	buf := chunk
	if len(s.partial) > 0 {
		buf = append(s.partial, chunk...)
		s.partial = nil
	}

	var lines [][]byte
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, buf[:i])
		buf = buf[i+1:]
	}

	if len(buf) > 0 {
		s.partial = append([]byte(nil), buf...)
	}

	return lines
}

// Flush returns the unterminated trailing line, if any, and resets the
// splitter.
func (s *Splitter) Flush() []byte {
	rest := s.partial
	s.partial = nil
	return rest
}

// Pending reports how many bytes are waiting for a line feed.
func (s *Splitter) Pending() int {
	return len(s.partial)
}
