package yololbl

// YOLO specific functionality.

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/sensorable/yololbl/internal/logger"
)

// TextExt is the file extension of YOLO annotation files.
const TextExt = ".txt"

// FormatRecord returns the annotation line for rec, including the trailing newline.
func FormatRecord(rec NormalizedRecord) string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f\n", rec.ClassIndex, rec.XCenter, rec.YCenter, rec.W,
		rec.H)
}

// ParseRecord parses one annotation line of the form "classIndex xCenter yCenter w h".
//
// The class index may be written as a float as long as it is integral.
func ParseRecord(line string) (NormalizedRecord, error) {
	malformed := func(format string, args ...interface{}) (NormalizedRecord, error) {
		return NormalizedRecord{}, &OpError{Op: "yolo.parse", Kind: KindMalformedRecord,
			Err: fmt.Errorf(format, args...)}
	}

	tokens := strings.Fields(line)
	if len(tokens) != 5 {
		return malformed("expected 5 fields, got %d in %q", len(tokens), strings.TrimSpace(line))
	}

	var values [5]float64
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return malformed("field %d is not a number in %q", i+1, strings.TrimSpace(line))
		}
		values[i] = v
	}

	cls := values[0]
	if cls != math.Trunc(cls) || math.Abs(cls) > math.MaxInt32 {
		return malformed("invalid class index %q", tokens[0])
	}

	return NormalizedRecord{
		ClassIndex: int(cls),
		XCenter:    values[1],
		YCenter:    values[2],
		W:          values[3],
		H:          values[4],
	}, nil
}

// WriteRecords writes one line per record to dst, in order.
func WriteRecords(dst io.Writer, records []NormalizedRecord) error {
	var buf bytes.Buffer
	for _, rec := range records {
		buf.WriteString(FormatRecord(rec))
	}
	_, err := dst.Write(buf.Bytes())
	return err
}

// ReadRecords parses all annotation lines from src. Blank lines are skipped. Any malformed line
// fails the whole read.
func ReadRecords(src io.Reader) ([]NormalizedRecord, error) {
	var records []NormalizedRecord
	err := scanRecords(src, func(rec NormalizedRecord, _ int) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// scanRecords calls fn for every record in src with its 1-based line number.
func scanRecords(src io.Reader, fn func(rec NormalizedRecord, line int) error) error {
	scanner := bufio.NewScanner(src)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := ParseRecord(line)
		if err == nil {
			err = fn(rec, lineNo)
		}
		if err != nil {
			if oe, ok := err.(*OpError); ok && oe.Line == 0 {
				oe.Line = lineNo
			}
			return err
		}
	}
	if err := scanner.Err(); err == bufio.ErrTooLong {
		return &OpError{Op: "yolo.parse", Kind: KindMalformedRecord, Line: lineNo + 1, Err: err}
	} else if err != nil {
		return &OpError{Op: "yolo.scan", Kind: KindIO, Line: lineNo + 1, Err: err}
	}
	return nil
}

// DecodeAnnotations reads annotation lines from src and decodes them to boxes for an image of
// size dims. Nothing is returned if any line is malformed or refers to an unknown class.
func DecodeAnnotations(src io.Reader, dims ImageDimensions, r *ClassRegistry) ([]BoundingBox,
	error) {

	var boxes []BoundingBox
	err := scanRecords(src, func(rec NormalizedRecord, _ int) error {
		box, err := Decode(rec, dims, r)
		if err != nil {
			return err
		}
		boxes = append(boxes, box)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return boxes, nil
}

// Write writes the annotation lines for records to dst and the class list of r to classDst.
func Write(dst, classDst io.Writer, records []NormalizedRecord, r *ClassRegistry) error {
	if err := WriteRecords(dst, records); err != nil {
		return &OpError{Op: "yolo.write", Kind: KindIO, Err: err}
	}
	if err := WriteClassList(classDst, r); err != nil {
		return &OpError{Op: "yolo.write_classes", Kind: KindIO, Err: err}
	}
	return nil
}

// Read loads the class list from classSrc, then decodes the annotations in src.
func Read(src, classSrc io.Reader, dims ImageDimensions) ([]BoundingBox, *ClassRegistry, error) {
	r, err := ReadClassList(classSrc)
	if err != nil {
		return nil, nil, err
	}
	boxes, err := DecodeAnnotations(src, dims, r)
	if err != nil {
		return nil, nil, err
	}
	return boxes, r, nil
}

// Writer collects the boxes of one image and saves them as a YOLO annotation file.
type Writer struct {
	FolderName     string
	FileName       string // Image path without extension. Save defaults to FileName+".txt".
	DatabaseSrc    string
	LocalImagePath string
	Dims           ImageDimensions
	Boxes          []BoundingBox
	Verified       bool

	Encoding encoding.Encoding  // Nil selects UTF-8.
	Store    *VerificationStore // Nil selects DefaultVerificationStore().
}

// NewWriter returns a writer for the image named fileName (without extension) of size dims.
func NewWriter(folderName, fileName string, dims ImageDimensions) *Writer {
	return &Writer{
		FolderName:  folderName,
		FileName:    fileName,
		DatabaseSrc: "Unknown",
		Dims:        dims,
	}
}

// AddBox appends a box.
func (w *Writer) AddBox(xMin, yMin, xMax, yMax float64, label string, difficult bool) {
	w.Boxes = append(w.Boxes, BoundingBox{
		XMin:      xMin,
		YMin:      yMin,
		XMax:      xMax,
		YMax:      yMax,
		Label:     label,
		Difficult: difficult,
	})
}

// Records encodes the boxes in order, extending r with new labels.
func (w *Writer) Records(r *ClassRegistry) []NormalizedRecord {
	records := make([]NormalizedRecord, len(w.Boxes))
	for i, b := range w.Boxes {
		records[i] = Encode(b, w.Dims, r)
	}
	return records
}

// Save writes the annotations to targetFile and the class list of r, then records w.Verified
// for targetFile in the directory's verified_status.json.
//
// An empty targetFile selects FileName+".txt". The class list goes to predefClassFile if that
// file exists, otherwise to classes.txt in the directory of targetFile.
func (w *Writer) Save(r *ClassRegistry, targetFile, predefClassFile string) error {
	if targetFile == "" {
		targetFile = w.FileName + TextExt
	}

	classesFile := predefClassFile
	if !isRegularFile(predefClassFile) {
		classesFile = filepath.Join(filepath.Dir(absPath(targetFile)), ClassesFileName)
	}

	records := w.Records(r)
	if err := writeAnnotationFiles(targetFile, classesFile, records, r, w.Encoding); err != nil {
		return err
	}
	logger.L().Debug("yolo.saved", "path", targetFile, "classes", classesFile,
		"boxes", len(records))

	store := w.Store
	if store == nil {
		store = DefaultVerificationStore()
	}
	return store.SetFor(targetFile, w.Verified)
}

// writeAnnotationFiles creates both files before writing either of them.
func writeAnnotationFiles(path, classesPath string, records []NormalizedRecord, r *ClassRegistry,
	enc encoding.Encoding) (err error) {

	out, err := os.Create(path)
	if err != nil {
		return &OpError{Op: "yolo.create", Kind: KindIO, Path: path, Err: err}
	}
	defer closeWithErrCheck(out, &err)

	classOut, err := os.Create(classesPath)
	if err != nil {
		return &OpError{Op: "yolo.create_classes", Kind: KindIO, Path: classesPath, Err: err}
	}
	defer closeWithErrCheck(classOut, &err)

	ow := encodingWriter(out, enc)
	cw := encodingWriter(classOut, enc)
	err = Write(ow, cw, records, r)
	if cerr := ow.Close(); err == nil && cerr != nil {
		err = &OpError{Op: "yolo.write", Kind: KindIO, Path: path, Err: cerr}
	}
	if cerr := cw.Close(); err == nil && cerr != nil {
		err = &OpError{Op: "yolo.write_classes", Kind: KindIO, Path: classesPath, Err: cerr}
	}
	if oe, ok := err.(*OpError); ok && oe.Path == "" {
		oe.Path = path
		if oe.Op == "yolo.write_classes" {
			oe.Path = classesPath
		}
	}
	return err
}

// ReadOptions configures ReadFile.
type ReadOptions struct {
	ClassListPath string             // Defaults to classes.txt next to the annotation file.
	Encoding      encoding.Encoding  // Nil selects UTF-8.
	Store         *VerificationStore // Nil selects DefaultVerificationStore().
}

// ReadFile reads the YOLO annotation file at path for an image of size dims. The class list is
// loaded first; the verified flag defaults to false when it cannot be determined.
func ReadFile(path string, dims ImageDimensions, opts ReadOptions) (AnnotatedFile, *ClassRegistry,
	error) {

	classesPath := opts.ClassListPath
	if classesPath == "" {
		dir, _ := verifiedStatusKey(path)
		classesPath = filepath.Join(dir, ClassesFileName)
	}
	r, err := LoadClassList(classesPath, opts.Encoding)
	if err != nil {
		return AnnotatedFile{}, nil, err
	}

	boxes, err := readAnnotationFile(path, dims, r, opts.Encoding)
	if err != nil {
		return AnnotatedFile{}, nil, err
	}

	store := opts.Store
	if store == nil {
		store = DefaultVerificationStore()
	}

	return AnnotatedFile{
		Boxes:          boxes,
		Dims:           dims,
		AnnotationPath: path,
		Verified:       store.GetFor(path),
	}, r, nil
}

// readAnnotationFile decodes the annotation file at path using the labels of r.
func readAnnotationFile(path string, dims ImageDimensions, r *ClassRegistry,
	enc encoding.Encoding) (boxes []BoundingBox, err error) {

	file, err := os.Open(path)
	if err != nil {
		return nil, &OpError{Op: "yolo.open", Kind: KindIO, Path: path, Err: err}
	}
	defer closeWithErrCheck(file, &err)

	boxes, err = DecodeAnnotations(decodingReader(file, enc), dims, r)
	if err != nil {
		if oe, ok := err.(*OpError); ok {
			oe.Path = path
		}
		return nil, err
	}
	return boxes, nil
}

// Prediction is a detector output: absolute corners, a confidence and a class index.
type Prediction struct {
	X1, Y1, X2, Y2 float64
	Confidence     float64 // Not used for conversion.
	ClassIndex     int
}

// UnmarshalJSON accepts the tuple form [x1, y1, x2, y2, confidence, classIndex].
func (p *Prediction) UnmarshalJSON(b []byte) error {
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("prediction must be an array of numbers: %v", err)
	}
	if len(v) != 6 {
		return fmt.Errorf("prediction must have 6 values, got %d", len(v))
	}
	if v[5] != math.Trunc(v[5]) {
		return fmt.Errorf("invalid class index %v", v[5])
	}

	*p = Prediction{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3], Confidence: v[4], ClassIndex: int(v[5])}
	return nil
}

// MarshalJSON writes the tuple form read by UnmarshalJSON.
func (p Prediction) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{p.X1, p.Y1, p.X2, p.Y2, p.Confidence, float64(p.ClassIndex)})
}

// FromPredictions converts detector outputs for an image of size dims to boxes. The predictions
// take the same normalize, clamp and round path as records read from a file.
func FromPredictions(preds []Prediction, dims ImageDimensions, r *ClassRegistry) ([]BoundingBox,
	error) {

	width := float64(dims.Width)
	height := float64(dims.Height)

	boxes := make([]BoundingBox, 0, len(preds))
	for i, p := range preds {
		rec := NormalizedRecord{
			ClassIndex: p.ClassIndex,
			XCenter:    (p.X1 + p.X2) / (2 * width),
			YCenter:    (p.Y1 + p.Y2) / (2 * height),
			W:          (p.X2 - p.X1) / width,
			H:          (p.Y2 - p.Y1) / height,
		}
		box, err := Decode(rec, dims, r)
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		boxes = append(boxes, box)
	}
	return boxes, nil
}
