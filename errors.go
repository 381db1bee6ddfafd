package varframe

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedVarint indicates that no terminating byte was found within
	// MaxVarintLen bytes of a length prefix. The stream is corrupted.
	ErrMalformedVarint = errors.New("varframe: malformed varint length prefix")

	// ErrMessageTooLarge indicates a well-formed length prefix that declares more
	// bytes than the destination capacity. More input will not resolve it.
	ErrMessageTooLarge = errors.New("varframe: message exceeds destination capacity")

	// ErrBufferReleased is the panic value raised when a pooled buffer is used
	// after Release.
	ErrBufferReleased = errors.New("varframe: pooled buffer used after release")

	// ErrInvalidLength is the panic value raised by SetLen for a length outside [0, Cap()].
	ErrInvalidLength = errors.New("varframe: buffer length out of range")

	// ErrNilSource indicates that NewPipeline/NewReaderSource was called with a nil source.
	ErrNilSource = errors.New("varframe: nil chunk source")

	// ErrInvalidCapacity indicates a non-positive destination capacity.
	ErrInvalidCapacity = errors.New("varframe: capacity must be positive")

	// ErrInvalidChunkSize indicates a non-positive read chunk size.
	ErrInvalidChunkSize = errors.New("varframe: chunk size must be positive")

	// ErrPipelineClosed is returned by Next after Close.
	ErrPipelineClosed = errors.New("varframe: pipeline closed")

	// ErrNoFrames is returned by First when the stream ends before any frame.
	ErrNoFrames = errors.New("varframe: stream ended before the first frame")

	// ErrEmptyPayload indicates that WriteFrame was called with a nil payload.
	ErrEmptyPayload = errors.New("varframe: nil payload")
)

// HTTPStatusError is returned by OpenHTTP for a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPStatusError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("varframe: GET %s: unexpected status %d (%s)", e.URL, e.StatusCode, status)
}
