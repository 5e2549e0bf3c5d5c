package geometry

import (
	"errors"
	"math"

	"github.com/posture-coach/engine/internal/models"
)

const (
	minFOVDeg        = 35
	maxFOVDeg        = 110
	defaultFOVDeg    = 60
	powerIterSteps   = 32
)

// 6-point facial model, in millimetres, centered near the nose.
// Index order matches the faceLandmarkIdx table below.
var pnpModelPoints = [6]vec3{
	{0, 0, 0},          // nose tip
	{0, -330, -65},     // chin
	{-225, 170, -135},  // left eye, outer corner
	{225, 170, -135},   // right eye, outer corner
	{-150, -150, -125}, // mouth, left corner
	{150, -150, -125},  // mouth, right corner
}

// Landmark indices into a 468-point MediaPipe-style face mesh corresponding
// to pnpModelPoints, in the same order.
var faceLandmarkIdx = [6]int{1, 152, 33, 263, 61, 291}

var errInsufficientLandmarks = errors.New("geometry: insufficient face landmarks for pnp")

// SolvePnP estimates head pose from 6 facial landmarks using a virtual
// pinhole camera built from fovDeg (clamped 35-110°, default 60°) and Horn's
// method: cross-covariance of the centred 3D model points against centred,
// normalised 2D bearing vectors, whose dominant eigenvector (found by power
// iteration) yields the rotation quaternion (spec.md §4.1).
func SolvePnP(face models.FaceLandmarks, imgW, imgH int, fovDeg float64) (EulerAngles, error) {
	if len(face.Points) <= faceLandmarkIdx[1] {
		return EulerAngles{}, errInsufficientLandmarks
	}
	if fovDeg == 0 {
		fovDeg = defaultFOVDeg
	}
	if fovDeg < minFOVDeg {
		fovDeg = minFOVDeg
	}
	if fovDeg > maxFOVDeg {
		fovDeg = maxFOVDeg
	}

	fovRad := fovDeg * math.Pi / 180
	fx := float64(imgW) / (2 * math.Tan(fovRad/2))
	fy := fx
	cx := float64(imgW) / 2
	cy := float64(imgH) / 2

	var dirs [6]vec3
	for i, idx := range faceLandmarkIdx {
		lm := face.Points[idx]
		if !finite(lm.X) || !finite(lm.Y) {
			return EulerAngles{}, errInsufficientLandmarks
		}
		px := lm.X * float64(imgW)
		py := lm.Y * float64(imgH)
		dirs[i] = vec3{(px - cx) / fx, (py - cy) / fy, 1.0}.normalized()
	}

	// Centre both point sets.
	var modelMean, dirMean vec3
	for i := 0; i < 6; i++ {
		modelMean = modelMean.add(pnpModelPoints[i])
		dirMean = dirMean.add(dirs[i])
	}
	modelMean = modelMean.scale(1.0 / 6)
	dirMean = dirMean.scale(1.0 / 6)

	// Cross-covariance M[a][b] = sum_i model[i][a] * dir[i][b].
	var m mat3
	for i := 0; i < 6; i++ {
		p := pnpModelPoints[i].sub(modelMean)
		q := dirs[i].sub(dirMean)
		pa := [3]float64{p.X, p.Y, p.Z}
		qa := [3]float64{q.X, q.Y, q.Z}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				m[a][b] += pa[a] * qa[b]
			}
		}
	}

	quat := dominantQuaternion(m)
	rot := quatToMat3(quat)
	return eulerFromRotation(rot)
}

// dominantQuaternion builds Horn's 4x4 key matrix from the 3x3
// cross-covariance m and returns the eigenvector of its largest eigenvalue
// via shifted power iteration (spec.md §4.1: "32-step power iteration").
func dominantQuaternion(m mat3) [4]float64 {
	sxx, sxy, sxz := m[0][0], m[0][1], m[0][2]
	syx, syy, syz := m[1][0], m[1][1], m[1][2]
	szx, szy, szz := m[2][0], m[2][1], m[2][2]

	var n [4][4]float64
	n[0] = [4]float64{sxx + syy + szz, syz - szy, szx - sxz, sxy - syx}
	n[1] = [4]float64{syz - szy, sxx - syy - szz, sxy + syx, szx + sxz}
	n[2] = [4]float64{szx - sxz, sxy + syx, -sxx + syy - szz, syz + szy}
	n[3] = [4]float64{sxy - syx, szx + sxz, syz + szy, -sxx - syy + szz}

	// Shift by an upper bound on the spectral radius so power iteration
	// converges to the largest (not largest-magnitude) eigenvalue.
	shift := 0.0
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			shift += math.Abs(n[i][j])
		}
	}
	for i := 0; i < 4; i++ {
		n[i][i] += shift
	}

	v := [4]float64{1, 0, 0, 0}
	for iter := 0; iter < powerIterSteps; iter++ {
		var next [4]float64
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				next[i] += n[i][j] * v[j]
			}
		}
		norm := 0.0
		for i := 0; i < 4; i++ {
			norm += next[i] * next[i]
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			break
		}
		for i := 0; i < 4; i++ {
			v[i] = next[i] / norm
		}
	}
	return v
}

// quatToMat3 converts a unit quaternion (w, x, y, z) to a row-major rotation
// matrix.
func quatToMat3(q [4]float64) mat3 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	return mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}
