package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sensorable/yololbl"
)

type showOutput struct {
	Image      string          `json:"image,omitempty" yaml:"image,omitempty"`
	Annotation string          `json:"annotation" yaml:"annotation"`
	Verified   bool            `json:"verified" yaml:"verified"`
	Shapes     []yololbl.Shape `json:"shapes" yaml:"shapes"`
}

func showCmd(opts *options) *cobra.Command {
	var imagePath, classes, output string
	var width, height int

	c := &cobra.Command{
		Use:   "show <annotation.txt>",
		Short: "Decode an annotation file to pixel boxes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dims, err := resolveDims(imagePath, width, height)
			if err != nil {
				return err
			}

			f, _, err := yololbl.ReadFile(args[0], dims, yololbl.ReadOptions{
				ClassListPath: opts.classesPath(classes),
				Encoding:      opts.enc,
			})
			if err != nil {
				return err
			}
			f.FilePath = imagePath

			return printAnnotatedFile(cmd.OutOrStdout(), f, output)
		},
	}

	addDimsFlags(c, &imagePath, &width, &height)
	c.Flags().StringVar(&classes, "classes", "",
		"Class list `path` (defaults to classes.txt next to the annotation file)")
	c.Flags().StringVarP(&output, "output", "o", "text", "Output `format` {text, json, yaml}")
	return c
}

func printAnnotatedFile(w io.Writer, f yololbl.AnnotatedFile, format string) error {
	out := showOutput{
		Image:      f.FilePath,
		Annotation: f.AnnotationPath,
		Verified:   f.Verified,
		Shapes:     f.Shapes(),
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		if _, err := fmt.Fprintf(w, "verified: %v\n", f.Verified); err != nil {
			return err
		}
		for _, b := range f.Boxes {
			if _, err := fmt.Fprintf(w, "%s\t%g %g %g %g\n", b.Label, b.XMin, b.YMin, b.XMax,
				b.YMax); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported output format %q", format)
}
