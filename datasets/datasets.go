package datasets

import (
	"image"

	"github.com/gomlx/gomlx/pkg/ml/train"
)

// This package provides dataset implementations that discover image files on
// disk and present them as examples suitable for self-supervised model
// training.
//
// The datasets use lazy loading - they store file paths at construction time
// and only read and decode the actual image bytes when an example is
// requested, minimizing memory usage. Nothing is cached: repeated access to
// the same index re-reads and re-decodes from disk, which keeps concurrent
// access trivially safe (the path list is write-once).
//
// Training here is self-supervised: the learning signal comes from the images
// themselves, so every example carries the same placeholder label. The label
// exists only to satisfy the (inputs, labels) contract of the training loop.
type Dataset interface {
	Len() int

	// Example returns the decoded image and its label for the given index.
	// The label is always PlaceholderLabel (possibly mapped by a target
	// transform); it carries no class information.
	Example(index int) (img image.Image, label int32, err error)

	// Datasets also implement gomlx's train.Dataset interface, so they can
	// be consumed directly by its training loops and composed with its
	// dataset wrappers (batching, parallel prefetching, in-memory caching).
	train.Dataset
}
