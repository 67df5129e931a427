// Reads, writes and exports YOLO box annotations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"

	"github.com/sensorable/yololbl"
	"github.com/sensorable/yololbl/internal/config"
	"github.com/sensorable/yololbl/internal/logger"
)

// options holds the global flags and the resolved configuration shared by all commands.
type options struct {
	configPath string
	debug      bool
	encoding   string

	cfg config.Config
	enc encoding.Encoding
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "yololbl",
		Short:        "Read, write and export YOLO box annotations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("encoding") {
				cfg.Encoding = opts.encoding
			}
			if opts.debug {
				cfg.Debug = true
			}

			enc, err := yololbl.LookupEncoding(cfg.Encoding)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.enc = enc

			logger.Setup(logger.Config{Out: cmd.ErrOrStderr(), Debug: cfg.Debug})
			logger.L().Debug("config.loaded", "encoding", cfg.Encoding, "classes_file", cfg.ClassesFile)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file `path` (YAML)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to stderr")
	cmd.PersistentFlags().StringVar(&opts.encoding, "encoding", yololbl.DefaultEncoding,
		"Text `encoding` of annotation and class list files")

	cmd.AddCommand(
		showCmd(opts),
		classesCmd(opts),
		verifyCmd(),
		importPredCmd(opts),
		tfrecordCmd(opts),
	)
	return cmd
}

// classesPath returns the class list given on the command line, or the configured one.
func (o *options) classesPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return o.cfg.ClassesFile
}

// resolveDims reads the image size from imagePath, or uses width and height when no image is
// given.
func resolveDims(imagePath string, width, height int) (yololbl.ImageDimensions, error) {
	if imagePath != "" {
		return yololbl.DimensionsFromImage(imagePath)
	}
	dims := yololbl.ImageDimensions{Height: height, Width: width, Channels: 3}
	if !dims.Valid() {
		return dims, fmt.Errorf("either --image or a positive --width and --height are required")
	}
	return dims, nil
}

// addDimsFlags registers the flags read by resolveDims.
func addDimsFlags(c *cobra.Command, imagePath *string, width, height *int) {
	c.Flags().StringVar(imagePath, "image", "", "The annotated image `path`, used for its size")
	c.Flags().IntVar(width, "width", 0, "Image width in pixels (without --image)")
	c.Flags().IntVar(height, "height", 0, "Image height in pixels (without --image)")
}
