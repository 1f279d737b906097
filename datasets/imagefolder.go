package datasets

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	timages "github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// PlaceholderLabel is the label attached to every example. Training is
// self-supervised, so labels carry no meaning beyond filling the
// (inputs, labels) pair expected downstream.
const PlaceholderLabel int32 = 0

// maxDecodeAttempts bounds how many indices Example tries before giving up.
// Web-scraped corpora routinely contain a small fraction of corrupt or
// truncated files; one bad file must not abort a long-running training job,
// but this many consecutive failures suggest widespread corruption and should
// surface loudly.
const maxDecodeAttempts = 5

// ImageFolderDataset provides a gomlx train.Dataset over all image files
// found (recursively) under a root directory.
//
// The path list is built once at construction, sorted lexicographically so
// the ordering is deterministic across runs and processes - upstream
// shuffling/sharding by index stays reproducible. Images are read and decoded
// lazily, one file read and one decode per Example call.
type ImageFolderDataset struct {
	// Root directory the dataset was built from.
	Root string

	// Split identifier ("TRAIN", "VAL", ...). Accepted for interface
	// compatibility with callers that distinguish splits; it does not filter
	// or alter behavior, it only shows up in Name().
	Split string

	// Sorted list of discovered image file paths. Write-once.
	paths []string

	// Optional transforms applied at access time.
	transform       func(image.Image) image.Image
	targetTransform func(int32) int32

	// Tensor conversion for Yield.
	dtype    dtypes.DType
	toTensor *timages.ToTensorConfig

	// mu protects next, the epoch cursor used by Yield.
	mu   sync.Mutex
	next int
}

var _ Dataset = (*ImageFolderDataset)(nil)

// NewImageFolderDataset creates a dataset from every image file found under
// root, including nested subdirectories. Files are kept when their extension
// (case-insensitive) is one of .jpg, .jpeg, .png, .bmp, .webp.
//
// It fails with ErrNoSamplesFound if no matching file exists: an empty data
// directory is a setup error the caller must fix, not something to discover
// on first access.
func NewImageFolderDataset(root, split string) (*ImageFolderDataset, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if hasImageExtension(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk image directory %q", root)
	}
	if len(paths) == 0 {
		return nil, errors.Wrapf(ErrNoSamplesFound, "under root %q", root)
	}
	sort.Strings(paths)

	d := &ImageFolderDataset{
		Root:  root,
		Split: split,
		paths: paths,
	}
	return d.WithDType(dtypes.Float32), nil
}

// WithTransform sets a transform applied to every image at access time, after
// decoding. The dataset stays agnostic to what the transform does (resizing,
// augmentation, ...); it is supplied and owned by the caller.
//
// Returns the dataset, so configuration calls can be chained.
func (d *ImageFolderDataset) WithTransform(fn func(image.Image) image.Image) *ImageFolderDataset {
	d.transform = fn
	return d
}

// WithTargetTransform sets a transform applied to the placeholder label at
// access time.
//
// Returns the dataset, so configuration calls can be chained.
func (d *ImageFolderDataset) WithTargetTransform(fn func(int32) int32) *ImageFolderDataset {
	d.targetTransform = fn
	return d
}

// WithDType sets the dtype of the image tensors produced by Yield. Defaults
// to Float32.
//
// Returns the dataset, so configuration calls can be chained.
func (d *ImageFolderDataset) WithDType(dtype dtypes.DType) *ImageFolderDataset {
	d.dtype = dtype
	d.toTensor = timages.ToTensor(dtype)
	return d
}

// Len returns the number of discovered image files.
func (d *ImageFolderDataset) Len() int {
	return len(d.paths)
}

// Path returns the file path backing the given index.
func (d *ImageFolderDataset) Path(index int) string {
	return d.paths[index]
}

// LoadImage reads and decodes the image at the given index, with no retries
// and no transform applied. A file whose bytes cannot be decoded is reported
// as a *DecodeError; any other failure (missing file, permissions, ...) is
// returned as-is, so callers can tell data-quality problems apart from
// environment problems.
//
// The decoded image is converted to a canonical color representation
// (*image.NRGBA): grayscale, paletted and RGBA sources all come out in the
// same pixel format. The alpha channel is dropped later, at tensor
// conversion, so yielded tensors always have 3 channels.
func (d *ImageFolderDataset) LoadImage(index int) (image.Image, error) {
	if index < 0 || index >= len(d.paths) {
		return nil, errors.Errorf("index %d out of range [0, %d)", index, len(d.paths))
	}
	path := d.paths[index]
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image file %q", path)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return imaging.Clone(img), nil
}

// Example returns the decoded image and placeholder label for the given
// index.
//
// If the file at index cannot be decoded, Example skips to the next index
// (wrapping around at the end) and retries, up to maxDecodeAttempts attempts
// total, so a few corrupt files in a large corpus are silently bridged. If
// every attempt fails it returns an error wrapping ErrTooManyBadImages naming
// the original index. Failures other than "bytes are not a decodable image"
// are never retried and propagate unchanged.
func (d *ImageFolderDataset) Example(index int) (image.Image, int32, error) {
	if index < 0 || index >= len(d.paths) {
		return nil, 0, errors.Errorf("index %d out of range [0, %d)", index, len(d.paths))
	}

	cur := index
	for attempt := 0; attempt < maxDecodeAttempts; attempt++ {
		img, err := d.LoadImage(cur)
		if err != nil {
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				return nil, 0, err
			}
			klog.V(1).Infof("skipping undecodable image %q: %v", decodeErr.Path, decodeErr.Err)
			cur = (cur + 1) % len(d.paths)
			continue
		}

		if d.transform != nil {
			img = d.transform(img)
		}
		label := PlaceholderLabel
		if d.targetTransform != nil {
			label = d.targetTransform(label)
		}
		return img, label, nil
	}
	return nil, 0, errors.Wrapf(ErrTooManyBadImages,
		"around index %d, check directory %q for corrupt files", index, d.Root)
}

// Name implements train.Dataset.
func (d *ImageFolderDataset) Name() string {
	if d.Split == "" {
		return "ImageFolder"
	}
	return fmt.Sprintf("ImageFolder(%s)", d.Split)
}

// nextIndex returns the next index of the epoch and increments the cursor.
// Concurrency safe. Returns -1 once the epoch is exhausted.
func (d *ImageFolderDataset) nextIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	index := d.next
	if index < 0 {
		return index
	}
	d.next++
	if d.next >= len(d.paths) {
		d.next = -1 // End of epoch.
	}
	return index
}

// Yield implements train.Dataset. It yields one example at a time; to batch
// or prefetch in parallel, compose with gomlx's dataset wrappers.
//
// Each example consists of:
//
//   - inputs: the image as a tensor shaped [height, width, 3], plus the
//     example index as an int32 scalar. The index can be used upstream, for
//     instance to shard the dataset.
//   - labels: a single int32 scalar, always the placeholder label.
//
// It returns io.EOF at the end of the epoch; call Reset to start over.
func (d *ImageFolderDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	index := d.nextIndex()
	if index < 0 {
		err = io.EOF
		return
	}
	spec = d
	img, label, err := d.Example(index)
	if err != nil {
		err = errors.WithMessagef(err, "failed to yield example #%d", index)
		return
	}
	inputs = []*tensors.Tensor{d.toTensor.Single(img), tensors.FromScalar(int32(index))}
	labels = []*tensors.Tensor{tensors.FromScalar(label)}
	return
}

// Reset implements train.Dataset. It restarts the dataset from the beginning;
// call it after io.EOF to run another epoch.
func (d *ImageFolderDataset) Reset() {
	d.mu.Lock()
	d.next = 0
	d.mu.Unlock()
}
