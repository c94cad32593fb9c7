package aperture

// LinearInterpolation1D interpolates f at x between (x1, f1) and (x2, f2).
func LinearInterpolation1D(x, x1, x2, f1, f2 float64) float64 {
	gradient := (f2 - f1) / (x2 - x1)
	return f1 + gradient*(x-x1)
}

// BilinearInterpolation2D interpolates f at (x, y) from its values at the
// corners of [x1,x2]x[y1,y2]. fij is the value at (xi, yj).
func BilinearInterpolation2D(x, y, x1, x2, y1, y2, f11, f12, f21, f22 float64) float64 {
	area := (x2 - x1) * (y2 - y1)
	sum := f11*(x2-x)*(y2-y) + f12*(x2-x)*(y-y1) +
		f21*(x-x1)*(y2-y) + f22*(x-x1)*(y-y1)
	return sum / area
}

// TrilinearInterpolation3D interpolates f at (x, y, z) from its values at the
// corners of a box. fijk is the value at (xi, yj, zk).
func TrilinearInterpolation3D(x, y, z,
	x1, x2, y1, y2, z1, z2,
	f111, f112, f121, f122, f211, f212, f221, f222 float64) float64 {
	volume := (x2 - x1) * (y2 - y1) * (z2 - z1)
	sum := f111*(x2-x)*(y2-y)*(z2-z) +
		f112*(x2-x)*(y2-y)*(z-z1) +
		f121*(x2-x)*(y-y1)*(z2-z) +
		f122*(x2-x)*(y-y1)*(z-z1) +
		f211*(x-x1)*(y2-y)*(z2-z) +
		f212*(x-x1)*(y2-y)*(z-z1) +
		f221*(x-x1)*(y-y1)*(z2-z) +
		f222*(x-x1)*(y-y1)*(z-z1)
	return sum / volume
}
