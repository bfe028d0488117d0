package adam

// gradientAt estimates a surrogate gradient around the center point. Each
// dimension is treated as an independent univariate regression predictor of
// the score delta: with dx = vector[i] - center[i] and dy = score -
// centerScore per sample,
//
//	gradient[i] = sum(dx*dy) / sum(dx^2)
//
// the least-squares slope of score against displacement through the origin
// at the center. Cross-dimension terms are ignored by construction.
//
// When sum(dx^2) is zero for a dimension (the whole population collapsed
// onto the center along that axis) the samples carry no information about
// it, and the slope is reported as zero rather than dividing by zero.
func gradientAt[F Float](center []F, centerScore F, vectors [][]F, scores []F) []F {
	sumDxDy := make([]F, len(center))
	sumDxDx := make([]F, len(center))

	for k, vector := range vectors {
		dy := scores[k] - centerScore
		for i, c := range center {
			dx := vector[i] - c
			sumDxDy[i] += dx * dy
			sumDxDx[i] += dx * dx
		}
	}

	gradient := make([]F, len(center))
	for i := range gradient {
		if sumDxDx[i] == 0 {
			continue
		}
		gradient[i] = sumDxDy[i] / sumDxDx[i]
	}
	return gradient
}
