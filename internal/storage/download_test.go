package storage

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSink captures the download protocol for assertions: headers, status
// and body, plus whether any body byte arrived before the status flush.
type recordSink struct {
	headers         map[string]string
	status          int
	body            bytes.Buffer
	bodyBeforeFlush bool
}

func newRecordSink() *recordSink {
	return &recordSink{headers: make(map[string]string)}
}

func (s *recordSink) SetHeader(key, value string) { s.headers[key] = value }

func (s *recordSink) WriteStatus(status int) { s.status = status }

func (s *recordSink) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.bodyBeforeFlush = true
	}
	return s.body.Write(p)
}

// failingReader errors after yielding a prefix, simulating a backend stream
// dying mid-download.
type failingReader struct {
	prefix io.Reader
	err    error
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.prefix.Read(p)
	if err == io.EOF {
		return n, r.err
	}
	return n, err
}

func (r *failingReader) Close() error { return nil }

func TestStreamToWritesHeadersBeforeBody(t *testing.T) {
	sink := newRecordSink()
	meta := ObjectMetadata{
		ContentType: "text/plain",
		Size:        5,
		Custom:      map[string]string{MetadataKeyVisibility: "public"},
	}

	err := streamTo(sink, "/b/o", meta, time.Hour, io.NopCloser(strings.NewReader("hello")))

	require.NoError(t, err)
	assert.False(t, sink.bodyBeforeFlush)
	assert.Equal(t, 200, sink.status)
	assert.Equal(t, "text/plain", sink.headers["Content-Type"])
	assert.Equal(t, "5", sink.headers["Content-Length"])
	assert.Equal(t, "public, max-age=3600", sink.headers["Cache-Control"])
	assert.Equal(t, "hello", sink.body.String())
}

func TestStreamToDefaultsToPrivateCaching(t *testing.T) {
	sink := newRecordSink()

	err := streamTo(sink, "/b/o", ObjectMetadata{Size: 2}, 90*time.Second, io.NopCloser(strings.NewReader("ok")))

	require.NoError(t, err)
	assert.Equal(t, "private, max-age=90", sink.headers["Cache-Control"])
	assert.Equal(t, "application/octet-stream", sink.headers["Content-Type"])
}

func TestStreamToMidStreamFailureIsStreamError(t *testing.T) {
	sink := newRecordSink()
	backendErr := errors.New("connection reset")
	r := &failingReader{prefix: strings.NewReader("part"), err: backendErr}

	err := streamTo(sink, "/b/o", ObjectMetadata{Size: 100}, time.Minute, r)

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.ErrorIs(t, err, backendErr)
	// The status was already flushed; the error must not suggest re-sending.
	assert.Equal(t, 200, sink.status)
	assert.Equal(t, "part", sink.body.String())
}

func TestDownloadStreamRejectsBodyBeforeHeaders(t *testing.T) {
	d := &downloadStream{sink: newRecordSink(), path: "/b/o"}

	err := d.copyFrom(strings.NewReader("x"))

	assert.Error(t, err)
	var streamErr *StreamError
	assert.False(t, errors.As(err, &streamErr))
}
