// Package render writes and reads surfaces as binary STL files and draws
// PNG previews of pipeline results.
package render

import (
	"io"

	"github.com/soypat/orifice/internal/d3"
	"github.com/soypat/orifice/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// TriangleReader streams triangles. ReadTriangles returns io.EOF once
// every triangle has been read.
type TriangleReader interface {
	ReadTriangles(t []r3.Triangle) (int, error)
}

// surfaceReader streams the triangles of a surface skipping those with
// zero area, which STL readers reject.
type surfaceReader struct {
	s    *mesh.Surface
	next int
}

// NewSurfaceReader returns a TriangleReader over the triangles of s.
func NewSurfaceReader(s *mesh.Surface) TriangleReader {
	return &surfaceReader{s: s}
}

func (r *surfaceReader) ReadTriangles(t []r3.Triangle) (int, error) {
	n := 0
	for n < len(t) && r.next < len(r.s.Triangles) {
		tri := r.s.Triangles[r.next]
		r.next++
		a, b, c := r.s.Points[tri[0]], r.s.Points[tri[1]], r.s.Points[tri[2]]
		if d3.TriangleArea(a, b, c) == 0 {
			continue
		}
		t[n] = r3.Triangle{a, b, c}
		n++
	}
	if n == 0 && r.next >= len(r.s.Triangles) {
		return 0, io.EOF
	}
	return n, nil
}

// ReadAll reads the full contents of a TriangleReader. Unlike the reader
// it does not return io.EOF.
func ReadAll(r TriangleReader) ([]r3.Triangle, error) {
	var err error
	var nt int
	result := make([]r3.Triangle, 0, 1<<12)
	buf := make([]r3.Triangle, 1024)
	for {
		nt, err = r.ReadTriangles(buf)
		if err != nil {
			break
		}
		result = append(result, buf[:nt]...)
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}
