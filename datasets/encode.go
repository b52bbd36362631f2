package datasets

import (
	"fmt"
	"math/rand"
)

// OneHot encodes class indices into a [len(labels), numClasses] array with a
// single 1 per row.
func OneHot(labels []int, numClasses int) (*Array, error) {
	out := NewArray(len(labels), numClasses)
	for i, c := range labels {
		if c < 0 || c >= numClasses {
			return nil, fmt.Errorf("label %d at sample %d does not fit %d classes: %w", c, i, numClasses, ErrLabelOutOfRange)
		}
		out.Data[i*numClasses+c] = 1
	}
	return out, nil
}

// ClassIndex returns the position of the largest value in each label row,
// i.e. the class of a one-hot row.
func ClassIndex(y *Array) []int {
	n := y.SampleSize()
	out := make([]int, y.Len())
	for i := range out {
		row := y.Sample(i)
		best := 0
		for j := 1; j < n; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// ClassCounts returns the number of samples per class of a one-hot label array.
func ClassCounts(y *Array) []int {
	counts := make([]int, y.SampleSize())
	for _, c := range ClassIndex(y) {
		counts[c]++
	}
	return counts
}

// Scale divides every value in place by divisor.
func Scale(a *Array, divisor float32) {
	for i := range a.Data {
		a.Data[i] /= divisor
	}
}

// Permute returns a copy of the split with samples reordered by a random
// permutation. Features and labels move together.
func Permute(s Split, rng *rand.Rand) Split {
	perm := rng.Perm(s.Len())
	return Split{X: gather(s.X, perm), Y: gather(s.Y, perm)}
}

// gather builds out[i] = a[perm[i]].
func gather(a *Array, perm []int) *Array {
	out := NewArray(a.Shape...)
	n := a.SampleSize()
	for i, src := range perm {
		copy(out.Data[i*n:(i+1)*n], a.Data[src*n:(src+1)*n])
	}
	return out
}

// Finalize applies the common post-processing of the loaders: scales the
// features by PixelScale, one-hot encodes the labels and, if rng is not nil,
// shuffles the split.
func Finalize(x *Array, labels []int, numClasses int, rng *rand.Rand) (Split, error) {
	Scale(x, PixelScale)
	y, err := OneHot(labels, numClasses)
	if err != nil {
		return Split{}, err
	}
	s, err := NewSplit(x, y)
	if err != nil {
		return Split{}, err
	}
	if rng != nil {
		s = Permute(s, rng)
	}
	return s, nil
}
