// Command raw2bvp converts a raw linear volumetric dataset into a Block
// Volume Package archive, per a JSON (or YAML) config file (spec section
// 6, "raw2bvp").
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/orcaman/writerseeker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/google/renameio"
	"github.com/grimpy101/bvp-tools/internal/archive"
	"github.com/grimpy101/bvp-tools/internal/block"
	"github.com/grimpy101/bvp-tools/internal/bvpfile"
	"github.com/grimpy101/bvp-tools/internal/config"
	"github.com/grimpy101/bvp-tools/internal/elog"
	"github.com/grimpy101/bvp-tools/internal/manifest"
	"github.com/grimpy101/bvp-tools/internal/pipeline"
)

var log *elog.CLI

var (
	flagVerbose    bool
	flagDebug      bool
	flagSequential bool
)

var rootCmd = &cobra.Command{
	Use:   "raw2bvp <config.json>",
	Short: "Convert a raw volume into a Block Volume Package",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")
	rootCmd.Flags().BoolVar(&flagSequential, "sequential", false, "use the single-threaded conversion path instead of the parallel pipeline")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		log = elog.New(flagDebug, flagVerbose || flagDebug, false, false)
		logrus.SetFormatter(log)
		logrus.SetLevel(logrus.TraceLevel)
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	configPath, err := homedir.Expand(args[0])
	if err != nil {
		return errors.Wrap(err, "expanding config path")
	}

	params, err := config.Load(configPath)
	if err != nil {
		return err
	}

	inputPath, err := homedir.Expand(params.InputFile)
	if err != nil {
		return errors.Wrap(err, "expanding input path")
	}
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return errors.Wrapf(err, "reading input file %s", inputPath)
	}
	expectedSize := int(params.Format.CountSpace(params.Dimensions))
	if len(raw) != expectedSize {
		return errors.Errorf("input file is %d bytes, expected %d for the declared dimensions and format", len(raw), expectedSize)
	}

	asset := manifest.NewAsset()
	bv := bvpfile.New(asset)
	formatIndex := bv.AddFormat(params.Format)
	rootIndex := bv.Blocks.Add(block.New(0, params.Dimensions, &formatIndex, raw))
	root := bv.Blocks.Get(rootIndex)

	log.Infof("enumerating %s into %s blocks", params.Dimensions, params.BlockDimensions)

	packetCount := countPackets(params)
	progress := log.NewProgress("raw2bvp", packetCount)

	var result *pipeline.Result
	if flagSequential {
		result, err = pipeline.ConvertSequential(root, params.Format, params.Dimensions, params.BlockDimensions, params.Compression, progress)
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		result, err = pipeline.ConvertParallel(ctx, root, params.Format, params.Dimensions, params.BlockDimensions, params.Compression, progress)
	}
	progress.Finish(err == nil)
	if err != nil {
		return err
	}

	for _, b := range result.Blocks {
		bv.Blocks.Add(b)
	}
	root.Placements = result.RootPlacements

	bv.Modalities = append(bv.Modalities, manifest.Modality{
		Name:         params.Name,
		Description:  params.Description,
		SemanticType: params.SemanticType,
		VolumeSize:   params.VolumeScale,
		VoxelSize:    params.VoxelScale,
		HasVoxelSize: params.HasVoxelScale,
		Block:        rootIndex,
	})

	bv.Asset.Name = params.Name
	bv.Asset.Description = params.Description
	bv.Asset.Author = params.Author
	bv.Asset.Copyright = params.Copyright
	bv.Asset.AcquisitionTime = params.AcquisitionTime
	bv.Asset.Generator = "raw2bvp"
	bv.Asset.CreationTime = strconv.FormatInt(time.Now().Unix(), 10)

	manifestBytes, err := bv.ToManifest()
	if err != nil {
		return err
	}

	files := make([]archive.File, 0, len(result.Files)+1)
	files = append(files, archive.File{Name: "manifest.json", Mime: "application/json", Data: manifestBytes})
	for _, f := range result.Files {
		files = append(files, archive.File{Name: f.Name, Mime: f.Mime, Data: f.Data})
	}

	outputPath, err := homedir.Expand(params.OutputFile)
	if err != nil {
		return errors.Wrap(err, "expanding output path")
	}

	archiveBytes, err := archive.WriteFiles(params.Archive, files, outputPath)
	if err != nil {
		return err
	}
	if archiveBytes != nil {
		if flagDebug {
			if err := writeArchiveWithDebugMirror(outputPath, archiveBytes); err != nil {
				return err
			}
		} else if err := renameio.WriteFile(outputPath, archiveBytes, 0o644); err != nil {
			return errors.Wrapf(err, "writing output archive %s", outputPath)
		}
	}

	log.Infof("wrote %s (%d unique blocks)", outputPath, len(result.Blocks))
	return nil
}

// writeArchiveWithDebugMirror streams archiveBytes to outputPath the same
// atomic way renameio.WriteFile does, but tees the write through
// elog.MultiWriteSeeker into an in-memory buffer so --debug can verify the
// bytes that hit disk match what the pipeline produced, without reading
// the file back.
func writeArchiveWithDebugMirror(outputPath string, archiveBytes []byte) error {
	pending, err := renameio.TempFile("", outputPath)
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", outputPath)
	}
	defer pending.Cleanup()

	mirror := &writerseeker.WriterSeeker{}
	mw := elog.MultiWriteSeeker(pending, mirror)
	if _, err := mw.Write(archiveBytes); err != nil {
		return errors.Wrapf(err, "writing output archive %s", outputPath)
	}

	mirrored, err := io.ReadAll(mirror.BytesReader())
	if err != nil {
		return errors.Wrap(err, "reading back debug mirror buffer")
	}
	if !bytes.Equal(mirrored, archiveBytes) {
		return errors.Errorf("debug mirror mismatch for %s: wrote %d bytes, mirrored %d", outputPath, len(archiveBytes), len(mirrored))
	}
	log.Debugf("debug mirror verified %d bytes for %s", len(mirrored), outputPath)

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errors.Wrapf(err, "finalizing output archive %s", outputPath)
	}
	return nil
}

func countPackets(params *config.Parameters) int64 {
	counts := params.Dimensions.Div(params.BlockDimensions).Ceil()
	return int64(counts.MultiplyElements())
}
