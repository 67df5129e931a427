package yololbl

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestFormatRecord(t *testing.T) {
	rec := NormalizedRecord{ClassIndex: 0, XCenter: 0.2, YCenter: 0.3, W: 0.2, H: 0.4}
	if got, want := FormatRecord(rec), "0 0.200000 0.300000 0.200000 0.400000\n"; got != want {
		t.Fatalf("FormatRecord = %q, want %q", got, want)
	}

	rec = NormalizedRecord{ClassIndex: 12, XCenter: 1.0 / 3, YCenter: 0.6666666, W: 0.0000004, H: 1}
	if got, want := FormatRecord(rec), "12 0.333333 0.666667 0.000000 1.000000\n"; got != want {
		t.Fatalf("FormatRecord = %q, want %q", got, want)
	}
}

func TestParseRecord(t *testing.T) {
	rec, err := ParseRecord("  3 0.5\t0.25 0.1 0.2\n")
	if err != nil {
		t.Fatalf("ParseRecord error: %v", err)
	}
	want := NormalizedRecord{ClassIndex: 3, XCenter: 0.5, YCenter: 0.25, W: 0.1, H: 0.2}
	if rec != want {
		t.Fatalf("ParseRecord = %+v, want %+v", rec, want)
	}

	rec, err = ParseRecord("2.0 0.5 0.5 0.1 0.1")
	if err != nil || rec.ClassIndex != 2 {
		t.Fatalf("float class index: %+v, %v", rec, err)
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	for _, line := range []string{
		"0 0.1 0.2",
		"0 0.1 0.2 0.3 0.4 0.5",
		"car 0.1 0.2 0.3 0.4",
		"0 0.1 x 0.3 0.4",
		"1.5 0.1 0.2 0.3 0.4",
		"0 NaN 0.2 0.3 0.4",
		"0 0.1 0.2 Inf 0.4",
		"",
	} {
		_, err := ParseRecord(line)
		if !IsKind(err, KindMalformedRecord) {
			t.Errorf("ParseRecord(%q) error = %v, want malformed record", line, err)
		}
	}
}

func TestReadRecords_LineNumbers(t *testing.T) {
	src := "0 0.5 0.5 0.1 0.1\n\n1 0.5 0.5 0.1 0.1\n0 0.1 0.2\n"
	recs, err := ReadRecords(strings.NewReader(src))
	if recs != nil {
		t.Fatalf("partial result returned: %v", recs)
	}

	var oe *OpError
	if !errors.As(err, &oe) || oe.Kind != KindMalformedRecord {
		t.Fatalf("error = %v, want malformed record", err)
	}
	if oe.Line != 4 {
		t.Fatalf("line = %d, want 4", oe.Line)
	}
}

func TestReadRecords_OverlongLine(t *testing.T) {
	src := "0 0.5 0.5 0.1 0.1\n" + strings.Repeat("0", 70*1024) + "\n"
	_, err := ReadRecords(strings.NewReader(src))

	var oe *OpError
	if !errors.As(err, &oe) || oe.Kind != KindMalformedRecord {
		t.Fatalf("error = %v, want malformed record", err)
	}
	if oe.Line != 2 {
		t.Fatalf("line = %d, want 2", oe.Line)
	}
}

func TestWriteAndRead_EndToEnd(t *testing.T) {
	dims := ImageDimensions{Height: 100, Width: 200, Channels: 3}
	r := NewClassRegistry()
	box := BoundingBox{XMin: 20, YMin: 10, XMax: 60, YMax: 50, Label: "car"}

	var lines, classes bytes.Buffer
	if err := Write(&lines, &classes, []NormalizedRecord{Encode(box, dims, r)}, r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if lines.String() != "0 0.200000 0.300000 0.200000 0.400000\n" {
		t.Fatalf("annotation = %q", lines.String())
	}
	if classes.String() != "car\n" {
		t.Fatalf("class list = %q", classes.String())
	}

	boxes, reg, err := Read(&lines, &classes, dims)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if len(boxes) != 1 || boxes[0] != box {
		t.Fatalf("Read = %+v, want %+v", boxes, box)
	}
	if !reflect.DeepEqual(reg.Labels(), []string{"car"}) {
		t.Fatalf("registry = %v", reg.Labels())
	}
}

func TestRead_Errors(t *testing.T) {
	dims := ImageDimensions{Height: 10, Width: 10}

	_, _, err := Read(strings.NewReader("0 0.5 0.5 0.1 0.1\n"), strings.NewReader(""), dims)
	if !IsKind(err, KindMalformedClassList) {
		t.Errorf("empty class list: %v", err)
	}

	boxes, _, err := Read(strings.NewReader("0 0.5 0.5 0.1 0.1\n1 0.5 0.5 0.1 0.1\n"),
		strings.NewReader("car\n"), dims)
	if !IsKind(err, KindOutOfRange) || boxes != nil {
		t.Errorf("unknown class: %v, %v", boxes, err)
	}
	var oe *OpError
	if errors.As(err, &oe) && oe.Line != 2 {
		t.Errorf("line = %d, want 2", oe.Line)
	}
}

func TestWriter_Save(t *testing.T) {
	dir := t.TempDir()
	store := NewVerificationStore()

	w := NewWriter("images", filepath.Join(dir, "img_001"), ImageDimensions{Height: 100, Width: 200})
	w.Store = store
	w.AddBox(20, 10, 60, 50, "cat", false)
	w.AddBox(0, 0, 100, 100, "dog", true)
	w.AddBox(100, 50, 200, 100, "cat", false)

	r := NewClassRegistry()
	if err := w.Save(r, "", ""); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	annotation, err := os.ReadFile(filepath.Join(dir, "img_001.txt"))
	if err != nil {
		t.Fatal(err)
	}
	want := "0 0.200000 0.300000 0.200000 0.400000\n" +
		"1 0.250000 0.500000 0.500000 1.000000\n" +
		"0 0.750000 0.750000 0.500000 0.500000\n"
	if string(annotation) != want {
		t.Fatalf("annotation =\n%s\nwant\n%s", annotation, want)
	}

	classes, err := os.ReadFile(filepath.Join(dir, ClassesFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(classes) != "cat\ndog\n" {
		t.Fatalf("classes = %q", classes)
	}

	// The flag is written even though it is false.
	v, found, err := store.Lookup(dir, "img_001.txt")
	if err != nil || !found || v {
		t.Fatalf("verified entry = %v, %v, %v", v, found, err)
	}
}

func TestWriter_SavePredefinedClassFile(t *testing.T) {
	dir := t.TempDir()
	predef := filepath.Join(dir, "predefined_classes.txt")
	if err := os.WriteFile(predef, []byte("person\ncar\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "labels", "frame.txt")
	if err := os.Mkdir(filepath.Dir(target), 0o755); err != nil {
		t.Fatal(err)
	}

	r, err := LoadClassList(predef, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter("frames", "frame", ImageDimensions{Height: 10, Width: 10})
	w.Store = NewVerificationStore()
	w.Verified = true
	w.AddBox(0, 0, 5, 5, "bike", false)
	w.AddBox(5, 5, 10, 10, "car", false)

	if err := w.Save(r, target, predef); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	classes, _ := os.ReadFile(predef)
	if string(classes) != "person\ncar\nbike\n" {
		t.Fatalf("predefined class file = %q", classes)
	}
	if _, err := os.Stat(filepath.Join(dir, "labels", ClassesFileName)); !os.IsNotExist(err) {
		t.Fatalf("classes.txt must not be written when a predefined file exists")
	}
	annotation, _ := os.ReadFile(target)
	if !strings.HasPrefix(string(annotation), "2 ") || !strings.Contains(string(annotation), "\n1 ") {
		t.Fatalf("annotation = %q", annotation)
	}
	if !w.Store.GetFor(target) {
		t.Fatalf("verified flag not stored")
	}
}

func TestWriter_SaveUnwritable(t *testing.T) {
	w := NewWriter("x", "y", ImageDimensions{Height: 10, Width: 10})
	w.Store = NewVerificationStore()
	w.AddBox(0, 0, 1, 1, "a", false)

	target := filepath.Join(t.TempDir(), "missing", "y.txt")
	err := w.Save(NewClassRegistry(), target, "")
	if !IsKind(err, KindIO) {
		t.Fatalf("error = %v, want io", err)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	store := NewVerificationStore()
	dims := ImageDimensions{Height: 100, Width: 200}

	w := NewWriter("", filepath.Join(dir, "a"), dims)
	w.Store = store
	w.Verified = true
	w.AddBox(20, 10, 60, 50, "car", true)
	if err := w.Save(NewClassRegistry(), "", ""); err != nil {
		t.Fatal(err)
	}

	f, r, err := ReadFile(filepath.Join(dir, "a.txt"), dims, ReadOptions{Store: store})
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !f.Verified {
		t.Errorf("verified flag not read")
	}
	if r.Len() != 1 {
		t.Errorf("registry = %v", r.Labels())
	}
	want := BoundingBox{XMin: 20, YMin: 10, XMax: 60, YMax: 50, Label: "car"}
	if len(f.Boxes) != 1 || f.Boxes[0] != want {
		t.Fatalf("boxes = %+v", f.Boxes)
	}

	shapes := f.Shapes()
	wantPoints := [4]Point{{20, 10}, {60, 10}, {60, 50}, {20, 50}}
	if shapes[0].Points != wantPoints || shapes[0].Difficult {
		t.Fatalf("shape = %+v", shapes[0])
	}
}

func TestReadFile_CorruptVerifiedStatusIsIgnored(t *testing.T) {
	dir := t.TempDir()
	dims := ImageDimensions{Height: 10, Width: 10}
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(ClassesFileName, "car\n")
	write("a.txt", "0 0.5 0.5 0.2 0.2\n")
	write(VerifiedStatusFile, "[broken")

	f, _, err := ReadFile(filepath.Join(dir, "a.txt"), dims, ReadOptions{Store: NewVerificationStore()})
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if f.Verified || len(f.Boxes) != 1 {
		t.Fatalf("unexpected result %+v", f)
	}
}

func TestReadFile_PrimaryErrorsPropagate(t *testing.T) {
	dir := t.TempDir()
	dims := ImageDimensions{Height: 10, Width: 10}
	annotation := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(annotation, []byte("0 0.1 0.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := ReadFile(annotation, dims, ReadOptions{Store: NewVerificationStore()})
	if !IsKind(err, KindMalformedClassList) {
		t.Fatalf("missing class list: %v", err)
	}

	classes := filepath.Join(dir, "names.txt")
	if err := os.WriteFile(classes, []byte("car\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, _, err := ReadFile(annotation, dims, ReadOptions{ClassListPath: classes})
	if !IsKind(err, KindMalformedRecord) || f.Boxes != nil {
		t.Fatalf("malformed line: %+v, %v", f, err)
	}
	var oe *OpError
	if errors.As(err, &oe) && (oe.Path != annotation || oe.Line != 1) {
		t.Fatalf("error location = %s:%d", oe.Path, oe.Line)
	}

	_, _, err = ReadFile(filepath.Join(dir, "missing.txt"), dims, ReadOptions{ClassListPath: classes})
	if !IsKind(err, KindIO) {
		t.Fatalf("missing annotation file: %v", err)
	}
}

func TestReadFile_Encoding(t *testing.T) {
	dir := t.TempDir()
	enc, err := LookupEncoding("latin1")
	if err != nil {
		t.Fatal(err)
	}
	dims := ImageDimensions{Height: 10, Width: 10}

	w := NewWriter("", filepath.Join(dir, "b"), dims)
	w.Encoding = enc
	w.Store = NewVerificationStore()
	w.AddBox(0, 0, 10, 10, "café", false)
	if err := w.Save(NewClassRegistry(), "", ""); err != nil {
		t.Fatal(err)
	}

	raw, _ := os.ReadFile(filepath.Join(dir, ClassesFileName))
	if !bytes.Equal(raw, []byte{'c', 'a', 'f', 0xe9, '\n'}) {
		t.Fatalf("class list bytes = %v", raw)
	}

	f, _, err := ReadFile(filepath.Join(dir, "b.txt"), dims, ReadOptions{Encoding: enc, Store: w.Store})
	if err != nil {
		t.Fatal(err)
	}
	if f.Boxes[0].Label != "café" {
		t.Fatalf("label = %q", f.Boxes[0].Label)
	}
}

func TestFromPredictions(t *testing.T) {
	dims := ImageDimensions{Height: 100, Width: 200}
	r := NewClassRegistry("car", "person")

	var preds []Prediction
	if err := json.Unmarshal([]byte(`[[20,10,60,50,0.9,1],[-10,90,30,130,0.4,0]]`), &preds); err != nil {
		t.Fatalf("unmarshal predictions: %v", err)
	}

	boxes, err := FromPredictions(preds, dims, r)
	if err != nil {
		t.Fatalf("FromPredictions error: %v", err)
	}
	want := []BoundingBox{
		{XMin: 20, YMin: 10, XMax: 60, YMax: 50, Label: "person"},
		{XMin: 0, YMin: 90, XMax: 30, YMax: 100, Label: "car"},
	}
	if !reflect.DeepEqual(boxes, want) {
		t.Fatalf("boxes = %+v, want %+v", boxes, want)
	}

	_, err = FromPredictions([]Prediction{{X2: 1, Y2: 1, ClassIndex: 5}}, dims, r)
	if !IsKind(err, KindOutOfRange) {
		t.Fatalf("error = %v, want out_of_range", err)
	}
}

func TestPredictionJSON(t *testing.T) {
	var p Prediction
	if err := json.Unmarshal([]byte(`[1,2,3,4,0.5,2]`), &p); err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `[1,2,3,4,0.5,2]` {
		t.Fatalf("Marshal = %s", b)
	}

	for _, in := range []string{`[1,2,3]`, `{"x1":1}`, `[1,2,3,4,0.5,2.5]`} {
		if err := json.Unmarshal([]byte(in), &p); err == nil {
			t.Errorf("Unmarshal(%s) accepted", in)
		}
	}
}
