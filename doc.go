// Package circles renders large sets of alpha-blended circles with a
// tile-parallel CPU rasterizer whose output does not depend on scheduling.
//
// # Overview
//
// A Renderer owns a particle store loaded from a scene, the float RGBA
// image and, optionally, a device session that mirrors both in device
// memory. Each frame runs four steps in order:
//
//	r.Advance()       // integrate the scene one fixed timestep
//	r.Clear()         // fill the background
//	r.Render()        // blend every circle in index order
//	img, _ := r.Image() // read back the finished frame
//
// Calling them out of order returns ErrFrameOrder.
//
// # Quick Start
//
//	r, err := circles.New(1024, 1024, "rand10k", circles.WithSeed(7))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer r.Close()
//
//	if err := r.Clear(); err != nil { ... }
//	if err := r.Render(); err != nil { ... }
//	img, err := r.Image()
//	...
//	img.SavePNG("frame.png", 1)
//
// # Blending
//
// Circles are blended in ascending particle index:
//
//	color' = a*src + (1-a)*color
//	alpha' = alpha + a
//
// Alpha is not clamped. The image is divided into 32x32 tiles; each tile
// gathers the circles that intersect it, chunk by chunk, and shades them
// in index order into private accumulators before writing each pixel once.
// Two renders of the same scene are bit-identical regardless of worker or
// lane count.
//
// # Coordinate System
//
// Particle positions are normalized to [0,1] with y pointing up. Image row
// 0 is the top of the picture, so the pixel (col, row) of a w x h image
// has its center at ((col+0.5)/w, 1-(row+0.5)/h).
package circles

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"
)
