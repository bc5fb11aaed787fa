// Package batchcopy implements a tool that rewrites files of encoded record
// batches down-converted to an older format version, for serving readers
// that cannot parse the newer encoding.
package batchcopy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ridge/parallel"
	"github.com/ridge/shale/record"
	"github.com/ridge/shale/run"
	"github.com/ridge/shale/tlog"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Config describes the copy tool configuration
type Config struct {
	Files  []string // input files, each holding a sequence of encoded batches
	OutDir string   // directory to write the converted files into
	Magic  byte     // target format version
}

// Main handles the command line and runs the copy tool
func Main(args []string) {
	var cfg Config
	var magic int
	pflag.StringArrayVar(&cfg.Files, "in", nil, "Input file of encoded batches (can be repeated)")
	pflag.StringVar(&cfg.OutDir, "out-dir", ".", "Directory for the converted files")
	pflag.IntVar(&magic, "magic", 1, "Target format version (0|1|2)")
	_ = pflag.CommandLine.Parse(args[1:])

	if len(cfg.Files) == 0 {
		panic(fmt.Errorf("--in is required"))
	}
	if magic < 0 || magic > int(record.MagicNewest) {
		panic(fmt.Errorf("--magic must be 0, 1 or 2"))
	}
	cfg.Magic = byte(magic)

	run.Tool(func(ctx context.Context) error {
		return Run(ctx, cfg)
	})
}

// Run converts the configured files concurrently
func Run(ctx context.Context, config Config) error {
	files := slices.Clone(config.Files)
	slices.Sort(files)

	tlog.Get(ctx).Info("Converting batch files",
		zap.Strings("files", files), zap.Uint8("magic", config.Magic))

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		for _, file := range files {
			file := file
			spawn(filepath.Base(file), parallel.Continue, func(ctx context.Context) error {
				return convertFile(ctx, config, file)
			})
		}
		return nil
	})
}

func convertFile(ctx context.Context, config Config, path string) error {
	ctx = tlog.With(ctx, zap.String("file", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	set := record.NewSet(data)
	converted, err := set.DownConvert(config.Magic)
	if err != nil {
		return fmt.Errorf("converting %s: %w", path, err)
	}

	batches := 0
	it := converted.Batches()
	for it.Next() {
		batches++
	}
	if batches == 0 {
		tlog.Get(ctx).Warn("No decodable batches, copying the file as is")
	}

	outPath := filepath.Join(config.OutDir, filepath.Base(path))
	if err := os.WriteFile(outPath, converted.Bytes(), 0o644); err != nil {
		return err
	}

	tlog.Get(ctx).Info("Converted batch file", zap.String("out", outPath),
		zap.Int("batches", batches), zap.Int("bytesIn", len(data)), zap.Int("bytesOut", converted.SizeInBytes()))
	return nil
}
