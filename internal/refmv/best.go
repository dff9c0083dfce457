package refmv

import "github.com/deepteams/mvref/internal/mv"

// FindBestRefMVs lowers the predictor list to precision p and returns the
// nearest and near vectors.
func FindBestRefMVs(p mv.Precision, list [MaxMVRefCandidates]mv.MV) (nearest, near mv.MV) {
	for i := range list {
		list[i] = mv.LowerPrecision(list[i], p)
	}
	return list[0], list[1]
}
