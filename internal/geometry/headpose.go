package geometry

import "math"

const gimbalLockEpsilon = 1e-3 // rad, distance from ±π/2 that triggers rejection

// vec3 is a minimal 3-vector used by the orthonormalisation and PnP solver.
type vec3 struct{ X, Y, Z float64 }

func (a vec3) sub(b vec3) vec3  { return vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a vec3) add(b vec3) vec3  { return vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a vec3) scale(s float64) vec3 { return vec3{a.X * s, a.Y * s, a.Z * s} }
func (a vec3) dot(b vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}
func (a vec3) norm() float64 { return math.Sqrt(a.dot(a)) }
func (a vec3) normalized() vec3 {
	n := a.norm()
	if n == 0 {
		return a
	}
	return a.scale(1 / n)
}

// mat3 is row-major: rows[i][j].
type mat3 [3][3]float64

// EulerAngles holds pitch/yaw/roll in degrees.
type EulerAngles struct {
	PitchDeg float64
	YawDeg   float64
	RollDeg  float64
}

// HeadPoseFromMatrix interprets m as a column-major 4x4 transform, extracts
// and orthonormalises the 3x3 rotation block (Gram-Schmidt on the first two
// columns, cross product for the third, flipped to enforce a right-handed
// determinant), then converts to intrinsic pitch/yaw/roll (spec.md §4.1).
//
// Returns ok=false on gimbal lock: yaw within 1e-3 rad of ±π/2.
func HeadPoseFromMatrix(m [16]float64) (EulerAngles, bool) {
	// Column-major 4x4: element (row, col) = m[col*4+row].
	col := func(c int) vec3 {
		return vec3{m[c*4+0], m[c*4+1], m[c*4+2]}
	}
	c0, c1 := col(0), col(1)

	// Gram-Schmidt orthonormalisation on the first two columns.
	r0 := c0.normalized()
	r1proj := c1.sub(r0.scale(r0.dot(c1)))
	r1 := r1proj.normalized()
	r2 := r0.cross(r1)

	rot := mat3{
		{r0.X, r1.X, r2.X},
		{r0.Y, r1.Y, r2.Y},
		{r0.Z, r1.Z, r2.Z},
	}

	if det3(rot) < 0 {
		rot[0][2], rot[1][2], rot[2][2] = -rot[0][2], -rot[1][2], -rot[2][2]
	}

	return eulerFromRotation(rot)
}

func det3(m mat3) float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// eulerFromRotation converts a row-major rotation matrix m (indexed m[row][col],
// i.e. m10 == m[1][0]) to intrinsic pitch/yaw/roll in degrees, per spec.md §4.1:
//
//	pitch = atan2(m21, m22)
//	yaw   = asin(-m20)
//	roll  = atan2(m10, m00)
//
// Rejects (ok=false) when yaw is within gimbalLockEpsilon of ±π/2.
func eulerFromRotation(m mat3) (EulerAngles, bool) {
	m20 := m[2][0]
	if m20 > 1 {
		m20 = 1
	}
	if m20 < -1 {
		m20 = -1
	}
	yaw := math.Asin(-m20)

	if math.Abs(math.Abs(yaw)-math.Pi/2) < gimbalLockEpsilon {
		return EulerAngles{}, false
	}

	pitch := math.Atan2(m[2][1], m[2][2])
	roll := math.Atan2(m[1][0], m[0][0])

	return EulerAngles{
		PitchDeg: radToDegRounded(pitch),
		YawDeg:   radToDegRounded(yaw),
		RollDeg:  radToDegRounded(roll),
	}, true
}

// radToDegRounded converts radians to degrees. Transport rounding (one
// decimal for score, three decimals for radian-derived angles per spec.md
// §9) is applied at the output builder, not here — kernels return full
// precision so downstream smoothing isn't quantised early.
func radToDegRounded(rad float64) float64 {
	return rad * 180 / math.Pi
}
