package circles

import "fmt"

// FrameState is the position of a Renderer in the per-frame sequence.
type FrameState uint8

const (
	// StateIdle is the state before the first frame and after Advance.
	StateIdle FrameState = iota
	// StateCleared means the image holds only the background.
	StateCleared
	// StateRasterized means every circle has been blended.
	StateRasterized
	// StateReadBack means the frame has been read back and is readable.
	StateReadBack
)

// String returns the state name.
func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCleared:
		return "cleared"
	case StateRasterized:
		return "rasterized"
	case StateReadBack:
		return "readback"
	default:
		return "unknown"
	}
}

// frameOp names a frame operation for transition checks and errors.
type frameOp string

const (
	opAdvance frameOp = "Advance"
	opClear   frameOp = "Clear"
	opRender  frameOp = "Render"
	opImage   frameOp = "Image"
)

// allowed lists the states each operation may start from.
//
// Clear may repeat; Image may repeat after a read-back and returns the same
// frame. Advance and Clear are refused while a rasterized frame has not
// been read back.
var allowed = map[frameOp][]FrameState{
	opAdvance: {StateIdle, StateReadBack},
	opClear:   {StateIdle, StateCleared, StateReadBack},
	opRender:  {StateCleared},
	opImage:   {StateRasterized, StateReadBack},
}

// check returns ErrFrameOrder if op may not run in state s.
func (s FrameState) check(op frameOp) error {
	for _, st := range allowed[op] {
		if st == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrFrameOrder, op, s)
}
