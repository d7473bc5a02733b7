package model

// Statistic is the Moran's I result for one raster together with the counts
// needed to judge it.
type Statistic struct {
	I        float64 `json:"moran_i" yaml:"moran_i"`
	N        int     `json:"n" yaml:"n"`
	Edges    int     `json:"edges" yaml:"edges"`
	Mean     float64 `json:"mean" yaml:"mean"`
	Variance float64 `json:"variance" yaml:"variance"`
}
