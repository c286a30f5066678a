package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

// FrameRecord is one row of frames.csv.
type FrameRecord struct {
	Frame      int    `csv:"frame"`
	Scene      string `csv:"scene"`
	Strategy   string `csv:"strategy"`
	Particles  int    `csv:"particles"`
	Tiles      int    `csv:"tiles"`
	Covered    int    `csv:"covered_tiles"`
	Candidates int64  `csv:"candidates"`
	AdvanceUS  int64  `csv:"advance_us"`
	ClearUS    int64  `csv:"clear_us"`
	RenderUS   int64  `csv:"render_us"`
	ReadBackUS int64  `csv:"readback_us"`
	TotalUS    int64  `csv:"total_us"`
}

// Fill copies the phase timings of s into r.
func (r *FrameRecord) Fill(s FrameSample) {
	r.Frame = s.Frame
	r.AdvanceUS = s.Phases[PhaseAdvance].Microseconds()
	r.ClearUS = s.Phases[PhaseClear].Microseconds()
	r.RenderUS = s.Phases[PhaseRender].Microseconds()
	r.ReadBackUS = s.Phases[PhaseReadBack].Microseconds()
	r.TotalUS = s.Duration.Microseconds()
}

// Writer appends frame records to dir/frames.csv.
type Writer struct {
	dir           string
	file          *os.File
	headerWritten bool
}

// NewWriter creates dir and frames.csv inside it.
// Returns nil if dir is empty (output disabled).
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // output directory
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "frames.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating frames.csv: %w", err)
	}
	return &Writer{dir: dir, file: f}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// Write appends one record. The first call also writes the header.
func (w *Writer) Write(rec FrameRecord) error {
	if w == nil {
		return nil
	}

	records := []FrameRecord{rec}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.file); err != nil {
			return fmt.Errorf("writing frames: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.file); err != nil {
		return fmt.Errorf("writing frames: %w", err)
	}
	return nil
}

// Close closes frames.csv.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	return w.file.Close()
}
