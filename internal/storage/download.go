package storage

import (
	"fmt"
	"io"
	"strconv"
	"time"
)

// DownloadSink receives a streamed object download. It is the minimal surface
// the adapters need from an HTTP response (or a test double): header writes,
// a single status write, then body bytes.
type DownloadSink interface {
	// SetHeader records a response header. Must be called before WriteStatus.
	SetHeader(key, value string)
	// WriteStatus flushes the status line and headers. Exactly one call.
	WriteStatus(status int)
	// Write appends body bytes after WriteStatus.
	Write(p []byte) (int, error)
}

// StreamError reports a body read/write failure that happened after the
// status and headers were flushed. The response cannot be retracted at that
// point; callers must abort the stream instead of writing a second status.
type StreamError struct {
	Path string
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream aborted for %s: %v", e.Path, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// streamState tracks the download protocol. Transitions are linear:
// NotStarted -> HeadersSent -> Streaming -> Done, with Failed terminal on any
// body error.
type streamState int

const (
	streamNotStarted streamState = iota
	streamHeadersSent
	streamStreaming
	streamDone
	streamFailed
)

// downloadStream enforces the header-before-body protocol shared by every
// adapter: headers derived from object metadata are flushed with the status
// before the first body byte, and errors are classified by whether the flush
// already happened.
type downloadStream struct {
	sink  DownloadSink
	path  string
	state streamState
}

// writeHeaders emits Content-Type, Content-Length and the visibility-gated
// Cache-Control header, then flushes the 200 status.
func (d *downloadStream) writeHeaders(meta ObjectMetadata, cacheTTL time.Duration) {
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	d.sink.SetHeader("Content-Type", contentType)
	if meta.Size >= 0 {
		d.sink.SetHeader("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	d.sink.SetHeader("Cache-Control", fmt.Sprintf("%s, max-age=%d", meta.Visibility(), int(cacheTTL.Seconds())))

	d.sink.WriteStatus(200)
	d.state = streamHeadersSent
}

// copyFrom streams body bytes to the sink. Once the copy starts any failure is
// a *StreamError; the status cannot be retracted.
func (d *downloadStream) copyFrom(r io.Reader) error {
	if d.state != streamHeadersSent {
		return fmt.Errorf("download stream for %s: body copy before headers", d.path)
	}
	d.state = streamStreaming
	if _, err := io.Copy(d.sink, r); err != nil {
		d.state = streamFailed
		return &StreamError{Path: d.path, Err: err}
	}
	d.state = streamDone
	return nil
}

// streamTo runs the full download protocol: headers from meta, status flush,
// body copy from r. Errors returned by the adapter before calling streamTo
// (metadata reads, reader opens) happen strictly before the status flush, so
// the caller still owns the response for those. r is always closed.
func streamTo(sink DownloadSink, path string, meta ObjectMetadata, cacheTTL time.Duration, r io.ReadCloser) error {
	defer r.Close()

	d := &downloadStream{sink: sink, path: path}
	d.writeHeaders(meta, cacheTTL)
	return d.copyFrom(r)
}
