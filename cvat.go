package cvatyolo

// CVAT for images 1.1 (XML) specific functionality.

import (
	"encoding/xml"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
)

// Box is an axis-aligned rectangle annotation in image pixel coordinates.
//
// The corners are not validated; malformed boxes (right < left) pass through unchanged.
type Box struct {
	Label    string
	Source   string
	Occluded bool
	XTL      float64 // Left.
	YTL      float64 // Top.
	XBR      float64 // Right.
	YBR      float64 // Bottom.
	ZOrder   int
}

// Mask is a pixel mask annotation. The RLE data is relative to the sub-region given by Left, Top,
// Width and Height, not to the full image.
type Mask struct {
	Label    string
	Source   string
	Occluded bool
	RLE      string
	Left     int
	Top      int
	Width    int
	Height   int
	ZOrder   int
}

// NewMask returns a Mask for the given sub-region. Width and height must not be negative.
func NewMask(label, rle string, left, top, width, height int) (Mask, error) {
	if width < 0 || height < 0 {
		return Mask{}, errors.Errorf("invalid mask size %dx%d for label %q", width, height, label)
	}
	return Mask{Label: label, RLE: rle, Left: left, Top: top, Width: width, Height: height}, nil
}

// Tag is an image level class annotation without geometry.
type Tag struct {
	Label  string
	Source string
}

// Image is a single annotated image of an AnnotationFile.
type Image struct {
	ID     int
	Name   string // Unique per annotation file.
	Subset string // The CVAT subset, if any. Informational only.
	Width  int
	Height int
	Boxes  []Box
	Masks  []Mask
	Tags   []Tag
}

// NewImage returns an Image without annotations. Width and height must be positive, as all
// coordinates are later normalised by them.
func NewImage(id int, name string, width, height int) (Image, error) {
	if name == "" {
		return Image{}, errors.Errorf("image %d has no name", id)
	}
	if width <= 0 || height <= 0 {
		return Image{}, errors.Errorf("invalid size %dx%d for image %q", width, height, name)
	}
	return Image{ID: id, Name: name, Width: width, Height: height}, nil
}

// Annotated reports whether the image has at least one box, mask or tag.
func (img Image) Annotated() bool {
	return len(img.Boxes) > 0 || len(img.Masks) > 0 || len(img.Tags) > 0
}

// AnnotationFile is the parsed content of one annotations.xml file.
type AnnotationFile struct {
	Path   string // The file the annotations were read from.
	Images []Image
}

// The XML structure of a CVAT for images 1.1 export. Elements that are not needed (meta,
// polygons, polylines, points, attributes) are ignored.
type cvatAnnotations struct {
	XMLName xml.Name    `xml:"annotations"`
	Images  []cvatImage `xml:"image"`
}

type cvatImage struct {
	ID     int        `xml:"id,attr"`
	Name   string     `xml:"name,attr"`
	Subset string     `xml:"subset,attr"`
	Width  int        `xml:"width,attr"`
	Height int        `xml:"height,attr"`
	Boxes  []cvatBox  `xml:"box"`
	Masks  []cvatMask `xml:"mask"`
	Tags   []cvatTag  `xml:"tag"`
}

type cvatBox struct {
	Label    string  `xml:"label,attr"`
	Source   string  `xml:"source,attr"`
	Occluded int     `xml:"occluded,attr"`
	XTL      float64 `xml:"xtl,attr"`
	YTL      float64 `xml:"ytl,attr"`
	XBR      float64 `xml:"xbr,attr"`
	YBR      float64 `xml:"ybr,attr"`
	ZOrder   int     `xml:"z_order,attr"`
}

type cvatMask struct {
	Label    string `xml:"label,attr"`
	Source   string `xml:"source,attr"`
	Occluded int    `xml:"occluded,attr"`
	RLE      string `xml:"rle,attr"`
	Left     int    `xml:"left,attr"`
	Top      int    `xml:"top,attr"`
	Width    int    `xml:"width,attr"`
	Height   int    `xml:"height,attr"`
	ZOrder   int    `xml:"z_order,attr"`
}

type cvatTag struct {
	Label  string `xml:"label,attr"`
	Source string `xml:"source,attr"`
}

// LoadCVAT reads and parses the CVAT annotations file at path.
func LoadCVAT(path string) (af AnnotationFile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return AnnotationFile{}, errors.Wrapf(err, "cannot read annotations %q", path)
	}
	defer closeWithErrCheck(f, &err)

	return ParseCVAT(f, path)
}

// ParseCVAT parses CVAT annotations from r. The path is recorded in the result and used in error
// messages. Any structural or attribute error fails the whole file.
func ParseCVAT(r io.Reader, path string) (AnnotationFile, error) {
	var raw cvatAnnotations
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return AnnotationFile{}, errors.Wrapf(err, "failed to parse CVAT annotations from %q", path)
	}

	af := AnnotationFile{Path: path, Images: make([]Image, 0, len(raw.Images))}
	seen := make(map[string]bool, len(raw.Images))
	for _, ri := range raw.Images {
		img, err := NewImage(ri.ID, ri.Name, ri.Width, ri.Height)
		if err != nil {
			return AnnotationFile{}, errors.Wrapf(err, "invalid image in %q", path)
		}
		if seen[img.Name] {
			return AnnotationFile{}, errors.Errorf("duplicate image name %q in %q", img.Name, path)
		}
		seen[img.Name] = true
		img.Subset = ri.Subset

		img.Boxes = make([]Box, len(ri.Boxes))
		for i, b := range ri.Boxes {
			img.Boxes[i] = Box{
				Label:    b.Label,
				Source:   b.Source,
				Occluded: b.Occluded != 0,
				XTL:      b.XTL,
				YTL:      b.YTL,
				XBR:      b.XBR,
				YBR:      b.YBR,
				ZOrder:   b.ZOrder,
			}
		}

		img.Masks = make([]Mask, len(ri.Masks))
		for i, m := range ri.Masks {
			mask, err := NewMask(m.Label, m.RLE, m.Left, m.Top, m.Width, m.Height)
			if err != nil {
				return AnnotationFile{}, errors.Wrapf(err, "invalid mask %d of image %q in %q",
					i, img.Name, path)
			}
			mask.Source = m.Source
			mask.Occluded = m.Occluded != 0
			mask.ZOrder = m.ZOrder
			img.Masks[i] = mask
		}

		img.Tags = make([]Tag, len(ri.Tags))
		for i, t := range ri.Tags {
			img.Tags[i] = Tag{Label: t.Label, Source: t.Source}
		}

		af.Images = append(af.Images, img)
	}

	log.Printf("Parsed %d images from %s", len(af.Images), path)
	return af, nil
}
