package cvatyolo

import (
	"log"
	"math"

	"github.com/pkg/errors"
)

// Partition errors.
var (
	ErrEmptyCollection    = errors.New("nothing to partition")
	ErrNoPercentages      = errors.New("no partition percentages given")
	ErrNegativePercentage = errors.New("partition percentage must not be negative")
	ErrPercentageSum      = errors.New("partition percentages must add up to 100")
	ErrNotEnoughItems     = errors.New("fewer items than non-empty partitions")
	ErrPartitionOverflow  = errors.New("rounded partition sizes exceed the item count")
)

// percentageTolerance is the allowed deviation of the percentage sum from 100.
const percentageTolerance = 1e-4

// IsPartitionError reports whether err was caused by invalid Partition input.
func IsPartitionError(err error) bool {
	for _, target := range []error{ErrEmptyCollection, ErrNoPercentages, ErrNegativePercentage,
		ErrPercentageSum, ErrNotEnoughItems, ErrPartitionOverflow} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Partition splits items into len(percentages) contiguous parts, preserving order.
//
// Every part with a positive percentage receives one item first. The remaining items are
// distributed by the percentage share of each part with round-half-to-even, and any shortfall
// from rounding down is handed out one item at a time to the parts in index order, starting with
// the first part. The parts are copies of the input.
func Partition[T any](items []T, percentages []float64) ([][]T, error) {
	if len(items) == 0 {
		return nil, errors.WithStack(ErrEmptyCollection)
	}
	if len(percentages) == 0 {
		return nil, errors.WithStack(ErrNoPercentages)
	}

	var total float64
	var positive []int
	for i, p := range percentages {
		if !(p >= 0) {
			return nil, errors.Wrapf(ErrNegativePercentage, "part %d has %v%%", i, p)
		}
		if p > 0 {
			positive = append(positive, i)
		}
		total += p
	}
	if math.Abs(total-100) > percentageTolerance {
		return nil, errors.Wrapf(ErrPercentageSum, "got %v", total)
	}
	if len(items) < len(positive) {
		return nil, errors.Wrapf(ErrNotEnoughItems, "%d items for %d parts", len(items), len(positive))
	}

	sizes := make([]int, len(percentages))
	for _, i := range positive {
		sizes[i] = 1
	}
	remaining := len(items) - len(positive)
	assigned := len(positive)
	for i, p := range percentages {
		extra := int(math.RoundToEven(float64(remaining) * (p / total)))
		sizes[i] += extra
		assigned += extra
	}
	if assigned > len(items) {
		return nil, errors.Wrapf(ErrPartitionOverflow, "%d of %d items assigned", assigned, len(items))
	}
	for k := 0; assigned < len(items); k++ {
		sizes[k%len(sizes)]++
		assigned++
	}

	parts := make([][]T, len(sizes))
	start := 0
	for i, n := range sizes {
		parts[i] = make([]T, n)
		copy(parts[i], items[start:start+n])
		start += n
	}
	return parts, nil
}

// DatasetSplit is the partition of the labelled images into named subsets.
type DatasetSplit struct {
	Names []string
	Parts [][]LabeledImage
}

// Split names of the two dataset layouts.
var (
	DetectionSplitNames      = []string{"train", "valid", "test"}
	ClassificationSplitNames = []string{"train", "val", "test"}
)

// SplitDataset partitions images into the named subsets by percentage.
func SplitDataset(images []LabeledImage, names []string, percentages []float64) (DatasetSplit, error) {
	if len(names) != len(percentages) {
		return DatasetSplit{}, errors.Errorf("%d split names for %d percentages", len(names), len(percentages))
	}

	parts, err := Partition(images, percentages)
	if err != nil {
		return DatasetSplit{}, errors.Wrap(err, "cannot split dataset")
	}

	for i, name := range names {
		log.Printf("Split %s: %d images (%v%%)", name, len(parts[i]), percentages[i])
	}
	return DatasetSplit{Names: append([]string(nil), names...), Parts: parts}, nil
}
