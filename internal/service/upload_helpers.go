package service

import (
	"errors"
	"io"

	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/saga"
)

// limitedReader fails with ErrPayloadTooLarge once more than max bytes were read.
type limitedReader struct {
	r    io.Reader
	left int64
}

func newLimitedReader(r io.Reader, max int64) io.Reader {
	return &limitedReader{r: r, left: max}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.left < 0 {
		return 0, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds the allowed size")
	}
	if int64(len(p)) > l.left+1 {
		p = p[:l.left+1]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	if l.left < 0 {
		return n, appErrors.Clone(appErrors.ErrPayloadTooLarge, "file exceeds the allowed size")
	}
	return n, err
}

// uploadFailure maps a failed saga to the error returned to callers. Typed errors
// from a step pass through; anything else becomes an internal error prefixed with prefix.
func uploadFailure(err error, prefix string) error {
	var stepErr *saga.StepError
	cause := err
	if errors.As(err, &stepErr) {
		cause = stepErr.Err
	}
	var typed *appErrors.Error
	if errors.As(cause, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, prefix+": "+cause.Error())
}
