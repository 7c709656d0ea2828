// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import (
	"bytes"
	"errors"
	"strconv"
)

// ErrIncompleteHeaders is returned when buf does not yet contain a
// blank-line terminator; the caller should keep reading.
var ErrIncompleteHeaders = errors.New("stream: response headers incomplete")

// ErrMalformedStatusLine is returned when buf does not begin with the
// exact "HTTP/1.0 " prefix followed by a three-digit status code.
var ErrMalformedStatusLine = errors.New("stream: malformed HTTP/1.0 status line")

// Response is the result of parsing a minimal HTTP/1.0 reply (spec.md
// §4.F). ContentLength is -1 if no Content-Length header was present.
type Response struct {
	Status        int
	Reason        string
	ContentLength int64
	// BodyStart is the offset into the buffer passed to ParseResponse
	// where the first body byte (if any) begins.
	BodyStart int
}

// Ok reports whether the response is usable for a payload fetch: status
// 200 and a present Content-Length (spec.md §4.F: "Only status 200 and
// a present Content-Length are acceptable; anything else triggers
// transport fallback").
func (r Response) Ok() bool {
	return r.Status == 200 && r.ContentLength >= 0
}

// headerTerminator finds the end of the header block: the first
// "\r\n\r\n" or "\n\n", whichever comes first in buf. It returns the
// index of the first body byte, or -1 if no terminator is present yet.
func headerTerminator(buf []byte) int {
	if i := bytes.Index(buf, []byte("\r\n\r\n")); i >= 0 {
		if j := bytes.Index(buf, []byte("\n\n")); j >= 0 && j < i {
			return j + 2
		}
		return i + 4
	}
	if i := bytes.Index(buf, []byte("\n\n")); i >= 0 {
		return i + 2
	}
	return -1
}

// ParseResponse parses a minimal HTTP/1.0 reply out of buf (spec.md
// §4.F/§6). buf must already contain a full header block; callers
// should accumulate bytes and retry until ErrIncompleteHeaders is no
// longer returned, or the per-slot read cap is hit.
//
// The parser tolerates nul bytes inside the header region (telnet-style
// peers) and scans header names case-insensitively, matching the
// reference's C-string-oriented behaviour without requiring callers to
// hand it a mutable buffer: Go's garbage-collected strings make the
// in-place nul-rewrite trick unnecessary.
func ParseResponse(buf []byte) (Response, error) {
	bodyStart := headerTerminator(buf)
	if bodyStart < 0 {
		return Response{}, ErrIncompleteHeaders
	}
	headers := buf[:bodyStart]

	const prefix = "HTTP/1.0 "
	if len(headers) < len(prefix)+4 || string(headers[:len(prefix)]) != prefix {
		return Response{}, ErrMalformedStatusLine
	}
	rest := headers[len(prefix):]
	if len(rest) < 4 || !isDigit(rest[0]) || !isDigit(rest[1]) || !isDigit(rest[2]) || rest[3] != ' ' {
		return Response{}, ErrMalformedStatusLine
	}
	status, _ := strconv.Atoi(string(rest[:3]))

	lineEnd := bytes.IndexAny(rest[4:], "\r\n")
	reason := ""
	if lineEnd >= 0 {
		reason = string(bytes.TrimRight(rest[4:4+lineEnd], "\x00"))
	}

	contentLength := int64(-1)
	for _, line := range splitHeaderLines(headers) {
		name, value, ok := splitHeaderLine(line)
		if !ok {
			continue
		}
		if equalFoldASCII(name, "Content-Length") {
			n, err := strconv.ParseInt(trimSpaceAndNul(value), 10, 64)
			if err == nil && n >= 0 {
				contentLength = n
			}
		}
	}

	return Response{
		Status:        status,
		Reason:        reason,
		ContentLength: contentLength,
		BodyStart:     bodyStart,
	}, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// splitHeaderLines splits the header block on CR and/or LF, skipping
// the status line and tolerating embedded nul bytes.
func splitHeaderLines(headers []byte) [][]byte {
	normalized := bytes.ReplaceAll(headers, []byte("\r\n"), []byte("\n"))
	normalized = bytes.ReplaceAll(normalized, []byte("\r"), []byte("\n"))
	lines := bytes.Split(normalized, []byte("\n"))
	if len(lines) > 0 {
		lines = lines[1:] // drop the status line
	}
	return lines
}

func splitHeaderLine(line []byte) (name, value []byte, ok bool) {
	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return nil, nil, false
	}
	return line[:i], line[i+1:], true
}

func trimSpaceAndNul(b []byte) string {
	return string(bytes.Trim(b, " \t\x00"))
}

func equalFoldASCII(a []byte, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ac, bc := a[i], b[i]
		if 'A' <= ac && ac <= 'Z' {
			ac += 'a' - 'A'
		}
		if 'A' <= bc && bc <= 'Z' {
			bc += 'a' - 'A'
		}
		if ac != bc {
			return false
		}
	}
	return true
}
