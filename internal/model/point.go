package model

// Point is one valid raster sample: its measured value, its position in the
// source grid and its position in world coordinates.
type Point struct {
	Value float64 `json:"value" yaml:"value"`
	Row   int     `json:"row" yaml:"row"`
	Col   int     `json:"col" yaml:"col"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
}

// Values returns the sample values of points in order.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
