/*

Integer 3D vectors and boxes addressing the background grid.

*/

package splash

// V3i is a 3D integer vector. It addresses grid vertices and grid cells.
// A cell is addressed by its lowest corner vertex.
type V3i [3]int

// AddScalar adds a scalar to each component of the vector.
func (a V3i) AddScalar(b int) V3i {
	return V3i{a[0] + b, a[1] + b, a[2] + b}
}

// Add adds two vectors. Return v = a + b.
func (a V3i) Add(b V3i) V3i {
	return V3i{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Sub subtracts two vectors. Return v = a - b.
func (a V3i) Sub(b V3i) V3i {
	return V3i{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Less reports whether a sorts before b. Vectors are ordered by Z, then Y,
// then X so that sorted vertices follow the memory order of a dense grid.
func (a V3i) Less(b V3i) bool {
	if a[2] != b[2] {
		return a[2] < b[2]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[0] < b[0]
}

// MinElem returns the componentwise minimum of a and b.
func (a V3i) MinElem(b V3i) V3i {
	return V3i{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

// MaxElem returns the componentwise maximum of a and b.
func (a V3i) MaxElem(b V3i) V3i {
	return V3i{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

// Box3i is an integer box. Depending on use it is either a half-open
// cell range [Lo, Hi) or a closed vertex range [Lo, Hi].
type Box3i struct {
	Lo, Hi V3i
}

// Size returns Hi - Lo.
func (b Box3i) Size() V3i { return b.Hi.Sub(b.Lo) }

// Empty reports whether the half-open box contains no cells.
func (b Box3i) Empty() bool {
	return b.Hi[0] <= b.Lo[0] || b.Hi[1] <= b.Lo[1] || b.Hi[2] <= b.Lo[2]
}

// Count returns the number of cells in the half-open box.
func (b Box3i) Count() int {
	if b.Empty() {
		return 0
	}
	sz := b.Size()
	return sz[0] * sz[1] * sz[2]
}

// ContainsCell reports whether c lies in the half-open box [Lo, Hi).
func (b Box3i) ContainsCell(c V3i) bool {
	return b.Lo[0] <= c[0] && c[0] < b.Hi[0] &&
		b.Lo[1] <= c[1] && c[1] < b.Hi[1] &&
		b.Lo[2] <= c[2] && c[2] < b.Hi[2]
}

// ContainsVertex reports whether v lies in the closed box [Lo, Hi].
func (b Box3i) ContainsVertex(v V3i) bool {
	return b.Lo[0] <= v[0] && v[0] <= b.Hi[0] &&
		b.Lo[1] <= v[1] && v[1] <= b.Hi[1] &&
		b.Lo[2] <= v[2] && v[2] <= b.Hi[2]
}

// Intersect returns the intersection of two boxes. The result may be empty.
func (b Box3i) Intersect(c Box3i) Box3i {
	return Box3i{Lo: b.Lo.MaxElem(c.Lo), Hi: b.Hi.MinElem(c.Hi)}
}
