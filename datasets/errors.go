package datasets

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoSamplesFound is returned at construction time when the root
	// directory contains no file with an allow-listed image extension.
	ErrNoSamplesFound = errors.New("no image files found")

	// ErrTooManyBadImages is returned by Example when maxDecodeAttempts
	// consecutive indices all fail to decode. A single corrupt file is
	// bridged silently; this error means the data directory likely contains
	// widespread corruption.
	ErrTooManyBadImages = errors.New("too many unreadable images")
)

// DecodeError reports a file whose bytes could not be decoded as an image
// (corrupt file, truncated data, unsupported format). It is the only error
// condition Example retries on; everything else propagates unchanged.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode image %q: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
