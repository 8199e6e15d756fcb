package dataset

import "math/rand/v2"

// Balance downsamples ds so both classes have exactly min(positives, negatives)
// rows, sampled without replacement, and returns them in a random order.
func Balance(ds *Dataset, rng *rand.Rand) *Dataset {
	var positives, negatives []Row
	for _, r := range ds.Rows {
		if r.Label == 1 {
			positives = append(positives, r)
		} else {
			negatives = append(negatives, r)
		}
	}
	lower := min(len(positives), len(negatives))

	rows := make([]Row, 0, 2*lower)
	rows = append(rows, sample(positives, lower, rng)...)
	rows = append(rows, sample(negatives, lower, rng)...)
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

	return &Dataset{Columns: append([]string(nil), ds.Columns...), Rows: rows}
}

func sample(rows []Row, n int, rng *rand.Rand) []Row {
	picked := make([]Row, 0, n)
	for _, i := range rng.Perm(len(rows))[:n] {
		picked = append(picked, rows[i])
	}
	return picked
}
