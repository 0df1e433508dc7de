package cvatyolo

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// resizeImage resamples the image to match the longer and shorter sides (one may be 0).
//
// Returns the resized image along with the width and height scale factors.
func resizeImage(img image.Image, longerSide, shorterSide int,
	downsamplingFilter, upsamplingFilter imaging.ResampleFilter) (
	resized image.Image, scaleWidth, scaleHeight float64, err error) {

	imgBounds := img.Bounds()
	imgWidth := imgBounds.Dx()
	imgHeight := imgBounds.Dy()
	if imgWidth == 0 || imgHeight == 0 {
		return nil, 0, 0, errors.New("cannot resize an empty image")
	}

	imgLonger := imgWidth
	imgShorter := imgHeight
	isLandscape := true
	if imgHeight > imgWidth {
		imgLonger = imgHeight
		imgShorter = imgWidth
		isLandscape = false
	}

	// Calculate the target dimensions.
	if longerSide <= 0 {
		longerSide = int(math.Round(float64(shorterSide) * (float64(imgLonger) / float64(imgShorter))))
	} else if shorterSide <= 0 {
		shorterSide = int(math.Round(float64(longerSide) * (float64(imgShorter) / float64(imgLonger))))
	}

	// Select the filter based on the direction of the rescaling operation.
	var filter imaging.ResampleFilter
	if longerSide*shorterSide < imgWidth*imgHeight {
		filter = downsamplingFilter
	} else {
		filter = upsamplingFilter
	}

	// Resize.
	if isLandscape {
		resized = imaging.Resize(img, longerSide, shorterSide, filter)
		scaleWidth = float64(longerSide) / float64(imgLonger)
		scaleHeight = float64(shorterSide) / float64(imgShorter)
	} else { // Portrait.
		resized = imaging.Resize(img, shorterSide, longerSide, filter)
		scaleWidth = float64(shorterSide) / float64(imgShorter)
		scaleHeight = float64(longerSide) / float64(imgLonger)
	}

	return resized, scaleWidth, scaleHeight, nil
}

// resampleFilter returns the imaging filter with the given name.
func resampleFilter(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "box":
		return imaging.Box, nil
	case "linear":
		return imaging.Linear, nil
	case "gaussian":
		return imaging.Gaussian, nil
	case "lanczos":
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, errors.Errorf("unknown resampling filter %q", name)
}

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer closeWithErrCheck(file, &err)

	return image.DecodeConfig(file)
}

// loadImage reads and decodes the image at path.
func loadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load image %q", path)
	}
	return img, nil
}

// saveImage writes img to path, with the encoding selected by the file extension of path.
func saveImage(path string, img image.Image, jpegQuality int) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return errors.Wrapf(err, "cannot save image %q", path)
	}
	return nil
}
