package circles

import "errors"

var (
	// ErrInvalidSize is returned when the image width or height is not
	// positive.
	ErrInvalidSize = errors.New("circles: invalid image size")

	// ErrResourceExhausted is returned when the image exceeds the pixel
	// budget or device memory cannot hold the frame. It is never retried.
	ErrResourceExhausted = errors.New("circles: resource exhausted")

	// ErrFrameOrder is returned when frame operations are called out of
	// the Advance, Clear, Render, Image order.
	ErrFrameOrder = errors.New("circles: frame operation out of order")

	// ErrClosed is returned by every operation on a closed Renderer.
	ErrClosed = errors.New("circles: renderer closed")
)
