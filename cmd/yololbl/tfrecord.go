package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensorable/yololbl"
)

func tfrecordCmd(opts *options) *cobra.Command {
	var labelDir, imageDir, out, labelMap, classes string

	c := &cobra.Command{
		Use:   "tfrecord",
		Short: "Export a directory of YOLO annotations to a TFRecord file and label map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, r, err := yololbl.FromYOLODir(labelDir, imageDir, yololbl.ReadOptions{
				ClassListPath: opts.classesPath(classes),
				Encoding:      opts.enc,
			})
			if err != nil {
				return err
			}

			if err := yololbl.WriteTFRecord(out, labelMap, data, r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", len(data), out)
			return nil
		},
	}

	c.Flags().StringVar(&labelDir, "labels", "", "The annotation directory `path`")
	c.Flags().StringVar(&imageDir, "images", "", "The image directory `path`")
	c.Flags().StringVar(&out, "out", "", "The TFRecord output file `path`")
	c.Flags().StringVar(&labelMap, "label-map", "", "The label map output file `path`")
	c.Flags().StringVar(&classes, "classes", "",
		"Class list `path` (defaults to classes.txt in the annotation directory)")
	for _, f := range []string{"labels", "images", "out", "label-map"} {
		_ = c.MarkFlagRequired(f)
	}
	return c
}
