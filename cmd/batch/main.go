package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"leaf-backend/cmd"
	"leaf-backend/internal/config"
	"leaf-backend/internal/core"
	"leaf-backend/internal/core/utils"

	"github.com/schollz/progressbar/v3"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading image dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

type summary struct {
	counts  map[core.Label]int
	labels  []core.Label
	failed  []string
	quality core.Quality
}

func summarize(results []utils.CompletedTask[string, core.Prediction]) summary {
	s := summary{counts: make(map[core.Label]int)}
	for _, res := range results {
		if res.Error != nil {
			s.failed = append(s.failed, filepath.Base(res.Input))
			continue
		}
		s.counts[res.Result.Label]++
		s.labels = append(s.labels, res.Result.Label)
	}
	slices.Sort(s.failed)
	s.quality = core.QualityTrend(s.labels)
	return s
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "classified %d images, %d failed\n", len(s.labels), len(s.failed))
	for _, label := range core.ClassNames {
		if n := s.counts[label]; n > 0 {
			fmt.Fprintf(w, "  %-40s %d\n", label, n)
		}
	}
	for _, name := range s.failed {
		fmt.Fprintf(w, "  failed: %s\n", name)
	}
	fmt.Fprintf(w, "quality: %s\n", s.quality.Status)
}

func main() {
	dir := flag.String("dir", "", "directory of leaf images to classify")
	workers := flag.Int("workers", 4, "number of images classified concurrently")
	cmd.LoadEnvFile()

	if *dir == "" {
		log.Fatalf("-dir is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	destroyOnnx := cmd.InitOnnxRuntime(cfg.OnnxRuntimeDylib)
	defer destroyOnnx()

	classifier := cmd.LoadClassifier(cfg.ModelType, cfg.ModelPath)
	defer classifier.Release()

	paths, err := listImages(*dir)
	if err != nil {
		log.Fatal(err)
	}
	if len(paths) == 0 {
		log.Fatalf("no images found in %s", *dir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("classifying"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	results := make([]utils.CompletedTask[string, core.Prediction], 0, len(paths))
	for res := range utils.RunInPool(ctx, classifier.ClassifyFile, paths, *workers) {
		if res.Error != nil {
			slog.Debug("error classifying image", "path", res.Input, "error", res.Error)
		}
		results = append(results, res)
		_ = bar.Add(1)
	}

	summarize(results).print(os.Stdout)
}
