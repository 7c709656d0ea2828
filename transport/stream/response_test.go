// Copyright (C) 2019-2025, Serval Project Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResponseOk(t *testing.T) {
	buf := []byte("HTTP/1.0 200 OK\r\nContent-Length: 1234\r\nServer: serval\r\n\r\nbody-bytes-follow")
	resp, err := ParseResponse(buf)
	require.NoError(t, err)
	require.True(t, resp.Ok())
	require.Equal(t, 200, resp.Status)
	require.Equal(t, "OK", resp.Reason)
	require.EqualValues(t, 1234, resp.ContentLength)
	require.Equal(t, "body-bytes-follow", string(buf[resp.BodyStart:]))
}

func TestParseResponseCaseInsensitiveHeader(t *testing.T) {
	buf := []byte("HTTP/1.0 200 OK\r\ncontent-length: 7\r\n\r\n1234567")
	resp, err := ParseResponse(buf)
	require.NoError(t, err)
	require.True(t, resp.Ok())
	require.EqualValues(t, 7, resp.ContentLength)
}

func TestParseResponseToleratesEmbeddedNuls(t *testing.T) {
	buf := []byte("HTTP/1.0 200 OK\x00\r\nContent-Length: 3\x00\r\n\r\nabc")
	resp, err := ParseResponse(buf)
	require.NoError(t, err)
	require.True(t, resp.Ok())
	require.EqualValues(t, 3, resp.ContentLength)
}

func TestParseResponseLFOnlyTerminator(t *testing.T) {
	buf := []byte("HTTP/1.0 200 OK\nContent-Length: 3\n\nabc")
	resp, err := ParseResponse(buf)
	require.NoError(t, err)
	require.True(t, resp.Ok())
}

func TestParseResponseMissingContentLengthNotOk(t *testing.T) {
	buf := []byte("HTTP/1.0 200 OK\r\n\r\nabc")
	resp, err := ParseResponse(buf)
	require.NoError(t, err)
	require.False(t, resp.Ok())
	require.EqualValues(t, -1, resp.ContentLength)
}

func TestParseResponseNon200NotOk(t *testing.T) {
	buf := []byte("HTTP/1.0 404 Not Found\r\nContent-Length: 0\r\n\r\n")
	resp, err := ParseResponse(buf)
	require.NoError(t, err)
	require.False(t, resp.Ok())
	require.Equal(t, 404, resp.Status)
}

func TestParseResponseIncomplete(t *testing.T) {
	buf := []byte("HTTP/1.0 200 OK\r\nContent-Length: 3")
	_, err := ParseResponse(buf)
	require.ErrorIs(t, err, ErrIncompleteHeaders)
}

func TestParseResponseMalformedPrefix(t *testing.T) {
	buf := []byte("HTTP/1.1 200 OK\r\n\r\n")
	_, err := ParseResponse(buf)
	require.ErrorIs(t, err, ErrMalformedStatusLine)
}

func TestParseResponseMalformedStatusDigits(t *testing.T) {
	buf := []byte("HTTP/1.0 2xx OK\r\n\r\n")
	_, err := ParseResponse(buf)
	require.ErrorIs(t, err, ErrMalformedStatusLine)
}
