// Command bvp2raw extracts a Block Volume Package archive back into one
// raw volume per modality (spec section 6, "bvp2raw").
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/google/renameio"
	"github.com/grimpy101/bvp-tools/internal/archive"
	"github.com/grimpy101/bvp-tools/internal/bvpfile"
	"github.com/grimpy101/bvp-tools/internal/elog"
)

var log *elog.CLI

var (
	flagVerbose bool
	flagDebug   bool
	flagOutDir  string
)

var rootCmd = &cobra.Command{
	Use:   "bvp2raw <input> [archive_kind]",
	Short: "Extract a Block Volume Package into raw volumes",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runExtract,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug output")
	rootCmd.Flags().StringVarP(&flagOutDir, "output-dir", "o", ".", "directory to write extracted .raw volumes into")

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

func runExtract(cmd *cobra.Command, args []string) error {
	inputPath, err := homedir.Expand(args[0])
	if err != nil {
		return errors.Wrap(err, "expanding input path")
	}

	kind, err := resolveArchiveKind(inputPath, args)
	if err != nil {
		return err
	}

	log.Infof("reading %s archive %s", kind, inputPath)
	files, err := archive.ReadArchive(kind, inputPath)
	if err != nil {
		return err
	}

	fileData := make(map[string][]byte, len(files))
	var manifestBytes []byte
	for _, f := range files {
		if f.Name == "manifest.json" {
			manifestBytes = f.Data
			continue
		}
		fileData[f.Name] = f.Data
	}
	if manifestBytes == nil {
		return errors.New("archive does not contain a manifest.json")
	}

	bv, err := bvpfile.FromManifest(manifestBytes, fileData)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flagOutDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %s", flagOutDir)
	}

	for i, m := range bv.Modalities {
		raw, err := bvpfile.ReassembleRaw(bv, m)
		if err != nil {
			return errors.Wrapf(err, "reassembling modality %d", i)
		}

		stem := m.Name
		if stem == "" {
			stem = strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		}
		outPath := filepath.Join(flagOutDir, fmt.Sprintf("%s_volume_%d.raw", stem, i))

		if err := renameio.WriteFile(outPath, raw, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", outPath)
		}
		log.Infof("wrote %s (%d bytes)", outPath, len(raw))
	}

	return nil
}

func resolveArchiveKind(inputPath string, args []string) (archive.Kind, error) {
	if len(args) == 2 {
		return archive.ParseKind(args[1])
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", inputPath)
	}
	if info.IsDir() {
		return archive.None, nil
	}

	switch strings.ToLower(filepath.Ext(inputPath)) {
	case ".zip":
		return archive.ZIP, nil
	default:
		return archive.SAF, nil
	}
}
