package main

// imgscan walks an image directory the same way ImageFolderDataset does and
// decodes every discovered file, reporting the ones that cannot be decoded.
// Run it on a freshly scraped corpus before starting a long training job:
// the dataset bridges a few corrupt files at training time, but a directory
// with many of them is better cleaned up front.
//
// Usage:
//   go run ./cmd/imgscan -root /data/images
//   go run ./cmd/imgscan -root /data/images -plot widths.png

import (
	"flag"
	"fmt"
	"os"

	"github.com/Noofbiz/imageBowl/datasets"

	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

var (
	flagRoot  = flag.String("root", "", "directory to scan for images (required)")
	flagSplit = flag.String("split", "TRAIN", "split identifier, used only in reporting")
	flagPlot  = flag.String("plot", "", "optional PNG path to write a histogram of image widths")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagRoot == "" {
		flag.Usage()
		os.Exit(2)
	}

	ds, err := datasets.NewImageFolderDataset(*flagRoot, *flagSplit)
	if err != nil {
		klog.Exitf("Failed to open image folder: %v", err)
	}
	fmt.Printf("%s: %d image files under %s\n", ds.Name(), ds.Len(), *flagRoot)

	bar := progressbar.NewOptions(ds.Len(),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
	)
	var corrupt []string
	widths := make(plotter.Values, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		img, err := ds.LoadImage(i)
		if err != nil {
			var decodeErr *datasets.DecodeError
			if !errors.As(err, &decodeErr) {
				// I/O or permission problem, not corruption: stop right away.
				klog.Exitf("Failed to read %s: %v", ds.Path(i), err)
			}
			corrupt = append(corrupt, ds.Path(i))
		} else {
			widths = append(widths, float64(img.Bounds().Dx()))
		}
		_ = bar.Add(1)
	}
	_ = bar.Close()
	fmt.Println()

	if *flagPlot != "" && len(widths) > 0 {
		writeWidthHistogram(widths, *flagPlot)
		fmt.Printf("Wrote width histogram to %s\n", *flagPlot)
	}

	if len(corrupt) == 0 {
		fmt.Println("No corrupt images found.")
		return
	}
	fmt.Printf("%d corrupt image file(s):\n", len(corrupt))
	for _, path := range corrupt {
		fmt.Printf("  %s\n", path)
	}
	os.Exit(1)
}

func writeWidthHistogram(widths plotter.Values, outPath string) {
	p := plot.New()
	p.Title.Text = "Image widths"
	p.X.Label.Text = "width (pixels)"
	p.Y.Label.Text = "count"
	p.Add(must.M1(plotter.NewHist(widths, 32)))
	must.M(p.Save(8*vg.Inch, 4*vg.Inch, outPath))
}
