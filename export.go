package cvatyolo

// Placing the source images into the dataset directories.

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ExportOptions select how images are placed into the dataset.
type ExportOptions struct {
	Symlink          bool   // Symlink to the absolute source path instead of copying.
	LongerSide       int    // Resize target of the longer side, 0 to derive it from ShorterSide.
	ShorterSide      int    // Resize target of the shorter side, 0 to derive it from LongerSide.
	DownsampleFilter string // nearest, box, linear, gaussian or lanczos.
	UpsampleFilter   string
	JPEGQuality      int
	Workers          int // Defaults to 2 * runtime.NumCPU().
}

// DefaultExportOptions copy images unchanged.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{DownsampleFilter: "box", UpsampleFilter: "linear", JPEGQuality: 95}
}

func (o ExportOptions) resize() bool {
	return o.LongerSide > 0 || o.ShorterSide > 0
}

type exportJob struct {
	src, dst string
}

// exportImages places all job sources at their destinations. Resizing takes precedence over
// symlinking. The first error is returned after all workers finished.
func exportImages(jobs []exportJob, opts ExportOptions) error {
	if len(jobs) == 0 {
		return nil
	}

	var downsample, upsample imaging.ResampleFilter
	if opts.resize() {
		var err error
		if downsample, err = resampleFilter(opts.DownsampleFilter); err != nil {
			return err
		}
		if upsample, err = resampleFilter(opts.UpsampleFilter); err != nil {
			return err
		}
	}

	// Limit the number of goroutines in flight, as resizing loads potentially large images into
	// memory.
	numTasks := opts.Workers
	if numTasks <= 0 {
		numTasks = 2 * runtime.NumCPU()
	}
	if len(jobs) < numTasks {
		numTasks = len(jobs)
	}
	workQueue := make(chan exportJob, 2*numTasks)
	errs := make(chan error, 1)
	trySendError := func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	var wg sync.WaitGroup
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		go func() {
			defer wg.Done()
			for job := range workQueue {
				if err := exportImage(job, opts, downsample, upsample); err != nil {
					trySendError(errors.Wrapf(err, "cannot export %q", job.src))
				}
			}
		}()
	}

	for _, job := range jobs {
		workQueue <- job
	}
	close(workQueue)
	wg.Wait()

	close(errs)
	if len(errs) > 0 {
		return <-errs
	}

	log.Printf("Exported %d images", len(jobs))
	return nil
}

func exportImage(job exportJob, opts ExportOptions, downsample, upsample imaging.ResampleFilter) error {
	switch {
	case opts.resize():
		img, err := loadImage(job.src)
		if err != nil {
			return err
		}
		img, _, _, err = resizeImage(img, opts.LongerSide, opts.ShorterSide, downsample, upsample)
		if err != nil {
			return err
		}
		return saveImage(job.dst, img, opts.JPEGQuality)

	case opts.Symlink:
		src, err := filepath.Abs(job.src)
		if err != nil {
			return err
		}
		return os.Symlink(src, job.dst)

	default:
		return copyFile(job.src, job.dst)
	}
}
