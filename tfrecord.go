package yololbl

// TFRecord object detection export.

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow

	"github.com/sensorable/yololbl/internal/logger"
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// tfLabelID is the label map id of class index i. TensorFlow reserves id 0 for the background.
func tfLabelID(i int) int64 {
	return int64(i) + 1
}

// toTFFeatures builds the feature map of one annotated image. Labels missing from r are appended.
func toTFFeatures(f AnnotatedFile, r *ClassRegistry) (TFFeatureMap, error) {
	dims := f.Dims
	if !dims.Valid() {
		var err error
		if dims, err = DimensionsFromImage(f.FilePath); err != nil {
			return nil, err
		}
	}

	imgData, err := os.ReadFile(f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	m := make(TFFeatureMap, 16)
	m["image/height"] = dims.Height
	m["image/width"] = dims.Width
	m["image/filename"] = f.FilePath
	m["image/source_id"] = f.FilePath
	m["image/encoded"] = imgData
	m["image/format"] = imageFormat(f.FilePath)

	n := len(f.Boxes)
	xmins := make([]float32, n)
	ymins := make([]float32, n)
	xmaxs := make([]float32, n)
	ymaxs := make([]float32, n)
	classes := make([]string, n)
	classIDs := make([]int64, n)
	difficult := make([]int64, n)
	for i, b := range f.Boxes {
		xmins[i] = float32(b.XMin / float64(dims.Width))
		ymins[i] = float32(b.YMin / float64(dims.Height))
		xmaxs[i] = float32(b.XMax / float64(dims.Width))
		ymaxs[i] = float32(b.YMax / float64(dims.Height))
		classes[i] = b.Label
		classIDs[i] = tfLabelID(r.IndexOf(b.Label))
		if b.Difficult {
			difficult[i] = 1
		}
	}
	m["image/object/bbox/xmin"] = xmins
	m["image/object/bbox/ymin"] = ymins
	m["image/object/bbox/xmax"] = xmaxs
	m["image/object/bbox/ymax"] = ymaxs
	m["image/object/class/text"] = classes
	m["image/object/class/label"] = classIDs
	m["image/object/difficult"] = difficult

	return m, nil
}

// WriteTFRecord writes one tensorflow.Example per element of data to the TFRecord file at
// recordPath, then writes the label map of r to labelMapPath.
//
// Files that cannot be converted are logged and skipped.
func WriteTFRecord(recordPath, labelMapPath string, data []AnnotatedFile,
	r *ClassRegistry) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	file, err := os.Create(recordPath)
	if err != nil {
		return &OpError{Op: "tfrecord.create", Kind: KindIO, Path: recordPath, Err: err}
	}
	defer closeWithErrCheck(file, &err)
	w := bufio.NewWriter(file)

	written := 0
	for _, f := range data {
		features, err := toTFFeatures(f, r)
		if err != nil {
			logger.L().Warn("tfrecord.skipping", "path", f.FilePath, "err", err)
			continue
		}

		if err := writeTFRecordExample(w, example.New(features)); err != nil {
			return &OpError{Op: "tfrecord.write", Kind: KindIO, Path: recordPath, Err: err}
		}
		written++
	}
	if err := w.Flush(); err != nil {
		return &OpError{Op: "tfrecord.write", Kind: KindIO, Path: recordPath, Err: err}
	}
	logger.L().Info("tfrecord.written", "path", recordPath, "examples", written)

	return SaveLabelMap(labelMapPath, r)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// WriteLabelMap writes the classes of r in the prototxt form of the TensorFlow object detection
// StringIntLabelMap.
func WriteLabelMap(w io.Writer, r *ClassRegistry) error {
	bw := bufio.NewWriter(w)
	for i, l := range r.labels {
		fmt.Fprintf(bw, "item {\n  id: %d\n  name: %q\n}\n", tfLabelID(i), l)
	}
	return bw.Flush()
}

// SaveLabelMap writes the label map of r to path.
func SaveLabelMap(path string, r *ClassRegistry) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return &OpError{Op: "tfrecord.create_label_map", Kind: KindIO, Path: path, Err: err}
	}
	defer closeWithErrCheck(file, &err)

	if err := WriteLabelMap(file, r); err != nil {
		return &OpError{Op: "tfrecord.write_label_map", Kind: KindIO, Path: path, Err: err}
	}
	return nil
}
