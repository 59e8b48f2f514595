package field

import (
	"github.com/chewxy/math32"
	"github.com/unixpickle/essentials"
)

// far stands in for infinity in squared voxel distances.
const far = 1e20

// edt returns the Euclidean distance, in voxels, from every voxel of a
// nx by ny by nz lattice to the nearest occupied voxel. It runs the
// separable lower envelope algorithm of Felzenszwalb and Huttenlocher
// along X, then Y, then Z. Lines along one axis are independent and
// transformed concurrently.
func edt(occ []bool, nx, ny, nz int) []float32 {
	d2 := make([]float32, len(occ))
	for i, o := range occ {
		if !o {
			d2[i] = far
		}
	}
	pass := func(lines, length, stride int, start func(line int) int) {
		essentials.ReduceConcurrentMap(0, lines, func() (func(int), func()) {
			var env envelope
			env.init(length)
			transform := func(line int) {
				base := start(line)
				for q := 0; q < length; q++ {
					env.f[q] = float64(d2[base+q*stride])
				}
				env.transform(length)
				for q := 0; q < length; q++ {
					d2[base+q*stride] = float32(env.d[q])
				}
			}
			return transform, func() {}
		})
	}
	pass(ny*nz, nx, 1, func(line int) int { return line * nx })
	pass(nx*nz, ny, nx, func(line int) int {
		i, k := line%nx, line/nx
		return k*nx*ny + i
	})
	pass(nx*ny, nz, nx*ny, func(line int) int { return line })

	dist := d2
	for i, v := range d2 {
		dist[i] = math32.Sqrt(v)
	}
	return dist
}

// envelope holds the working buffers of the one dimensional transform.
type envelope struct {
	f, d []float64
	v    []int
	z    []float64
}

func (e *envelope) init(n int) {
	e.f = make([]float64, n)
	e.d = make([]float64, n)
	e.v = make([]int, n)
	e.z = make([]float64, n+1)
}

// transform computes the squared distance transform of sampled function
// e.f into e.d.
func (e *envelope) transform(n int) {
	f, v, z := e.f, e.v, e.z
	intersect := func(q, p int) float64 {
		fq, fp := f[q]+float64(q*q), f[p]+float64(p*p)
		return (fq - fp) / float64(2*q-2*p)
	}
	k := 0
	v[0] = 0
	z[0] = -far
	z[1] = far
	for q := 1; q < n; q++ {
		s := intersect(q, v[k])
		for k > 0 && s <= z[k] {
			k--
			s = intersect(q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = far
	}
	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		e.d[q] = dq*dq + f[v[k]]
	}
}
