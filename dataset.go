package yololbl

import (
	"path/filepath"

	"github.com/sensorable/yololbl/internal/logger"
)

// FromYOLODir reads the YOLO annotation files in labelDir and matches them to the images in
// imageDir by base name. All files share one class list: opts.ClassListPath, or classes.txt in
// labelDir. Image sizes are read from the images.
//
// A missing or malformed class list fails the call; annotation files that cannot be read or
// matched are logged and skipped.
func FromYOLODir(labelDir, imageDir string, opts ReadOptions) ([]AnnotatedFile, *ClassRegistry,
	error) {

	classesPath := opts.ClassListPath
	if classesPath == "" {
		classesPath = filepath.Join(labelDir, ClassesFileName)
	}
	r, err := LoadClassList(classesPath, opts.Encoding)
	if err != nil {
		return nil, nil, err
	}

	files, err := filesByExtInDir(labelDir, TextExt)
	if err != nil {
		return nil, nil, &OpError{Op: "dataset.list", Kind: KindIO, Path: labelDir, Err: err}
	}
	labelFiles := files[:0]
	for _, f := range files {
		if filepath.Base(f) == ClassesFileName || absPath(f) == absPath(classesPath) {
			continue
		}
		labelFiles = append(labelFiles, f)
	}
	logger.L().Info("dataset.parsing", "dir", labelDir, "files", len(labelFiles))

	store := opts.Store
	if store == nil {
		store = DefaultVerificationStore()
	}

	parse := func(labelPath, imagePath string) (AnnotatedFile, error) {
		dims, err := DimensionsFromImage(imagePath)
		if err != nil {
			return AnnotatedFile{}, err
		}
		boxes, err := readAnnotationFile(labelPath, dims, r, opts.Encoding)
		if err != nil {
			return AnnotatedFile{}, err
		}
		return AnnotatedFile{
			Boxes:          boxes,
			Dims:           dims,
			FilePath:       imagePath,
			AnnotationPath: labelPath,
			Verified:       store.GetFor(labelPath),
		}, nil
	}

	data, err := parseLabelsWithOneToOneImages(labelFiles, imageDir, parse)
	if err != nil {
		return nil, nil, &OpError{Op: "dataset.images", Kind: KindIO, Path: imageDir, Err: err}
	}
	return data, r, nil
}
