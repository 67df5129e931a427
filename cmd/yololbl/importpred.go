package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensorable/yololbl"
)

func importPredCmd(opts *options) *cobra.Command {
	var imagePath, classes, out string
	var width, height int

	c := &cobra.Command{
		Use:   "import-pred <predictions.json>",
		Short: "Write detector predictions [[x1,y1,x2,y2,conf,class],...] as a YOLO annotation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classesPath := opts.classesPath(classes)
			if classesPath == "" {
				return fmt.Errorf("a class list is required (--classes or classes_file)")
			}
			dims, err := resolveDims(imagePath, width, height)
			if err != nil {
				return err
			}

			enc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var preds []yololbl.Prediction
			if err := json.Unmarshal(enc, &preds); err != nil {
				return fmt.Errorf("failed to parse predictions from %q: %v", args[0], err)
			}

			r, err := yololbl.LoadClassList(classesPath, opts.enc)
			if err != nil {
				return err
			}
			boxes, err := yololbl.FromPredictions(preds, dims, r)
			if err != nil {
				return err
			}

			w := yololbl.NewWriter(filepath.Base(filepath.Dir(out)),
				strings.TrimSuffix(out, filepath.Ext(out)), dims)
			w.LocalImagePath = imagePath
			w.Boxes = boxes
			w.Encoding = opts.enc
			if err := w.Save(r, out, classesPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d boxes to %s\n", len(boxes), out)
			return nil
		},
	}

	addDimsFlags(c, &imagePath, &width, &height)
	c.Flags().StringVar(&classes, "classes", "", "Class list `path` the class indices refer to")
	c.Flags().StringVar(&out, "out", "", "Output annotation file `path`")
	_ = c.MarkFlagRequired("out")
	return c
}
