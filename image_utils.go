package yololbl

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register decoders.
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DimensionsFromImage returns the size and channel count of the image at path.
//
// The size is taken after applying the EXIF orientation, i.e. as the image is displayed, since
// that is the frame the box coordinates refer to.
func DimensionsFromImage(path string) (ImageDimensions, error) {
	config, _, err := decodeImageConfig(path)
	if err != nil {
		return ImageDimensions{}, fmt.Errorf("failed to decode the image metadata of %q: %v", path,
			err)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return ImageDimensions{}, fmt.Errorf("failed to load the image %q: %v", path, err)
	}
	bounds := img.Bounds()

	channels := 3
	if isGrayModel(config.ColorModel) {
		channels = 1
	}

	return ImageDimensions{Height: bounds.Dy(), Width: bounds.Dx(), Channels: channels}, nil
}

func isGrayModel(m color.Model) bool {
	return m == color.GrayModel || m == color.Gray16Model
}

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// imageFormat returns the registered format name of the image at path, falling back to the file
// extension.
func imageFormat(path string) string {
	if _, format, err := decodeImageConfig(path); err == nil {
		return format
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}
