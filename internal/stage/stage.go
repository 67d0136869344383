// Package stage localizes remote pipeline inputs before a run starts.
// Inputs referenced by s3:// URIs are downloaded into the run's stage
// directory; file:// URIs and bare paths are used in place.
package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kmualim/atac-seq-pipeline/internal/config"
)

// Stager resolves one input location to a local path, downloading the
// content into destDir when it is remote.
type Stager interface {
	Stage(ctx context.Context, location string, destDir string) (string, error)
}

// FileStager handles file:// URIs and plain filesystem paths. Files are
// never copied: the resolved absolute path is returned in place.
type FileStager struct{}

// NewFileStager returns a stager for local inputs.
func NewFileStager() *FileStager {
	return &FileStager{}
}

// Stage resolves location to an absolute local path and verifies the
// file exists.
func (s *FileStager) Stage(_ context.Context, location string, _ string) (string, error) {
	path := strings.TrimPrefix(location, "file://")
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", location, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("stage %s: %w", location, err)
	}
	return abs, nil
}

// Resolver dispatches staging by URI scheme and rewrites run
// configurations so downstream code only ever sees local paths.
type Resolver struct {
	local  Stager
	remote Stager // s3://, nil when no remote stager is configured
	logger *slog.Logger
}

// NewResolver builds a Resolver. remote may be nil, in which case any
// s3:// input is an error.
func NewResolver(local, remote Stager, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{local: local, remote: remote, logger: logger}
}

// Stage resolves a single location.
func (r *Resolver) Stage(ctx context.Context, location string, destDir string) (string, error) {
	if strings.HasPrefix(location, "s3://") {
		if r.remote == nil {
			return "", fmt.Errorf("stage %s: no S3 stager configured", location)
		}
		r.logger.Info("staging remote input", "location", location, "dest", destDir)
		return r.remote.Stage(ctx, location, destDir)
	}
	return r.local.Stage(ctx, location, destDir)
}

// StageConfig localizes every input path in cfg in place: FASTQ pairs,
// BAMs, fragment files, and genome reference files. Remote inputs are
// downloaded under cfg.StageDir.
func (r *Resolver) StageConfig(ctx context.Context, cfg *config.RunConfig) error {
	if cfg.StageDir != "" {
		if err := os.MkdirAll(cfg.StageDir, 0o755); err != nil {
			return fmt.Errorf("create stage dir: %w", err)
		}
	}

	stage := func(loc *string, sub string) error {
		if *loc == "" {
			return nil
		}
		p, err := r.Stage(ctx, *loc, filepath.Join(cfg.StageDir, sub))
		if err != nil {
			return err
		}
		*loc = p
		return nil
	}

	for i := range cfg.Fastqs {
		sub := fmt.Sprintf("rep%d", i+1)
		for j := range cfg.Fastqs[i].R1 {
			if err := stage(&cfg.Fastqs[i].R1[j], sub); err != nil {
				return err
			}
		}
		for j := range cfg.Fastqs[i].R2 {
			if err := stage(&cfg.Fastqs[i].R2[j], sub); err != nil {
				return err
			}
		}
	}
	for i := range cfg.Bams {
		if err := stage(&cfg.Bams[i], fmt.Sprintf("rep%d", i+1)); err != nil {
			return err
		}
	}
	for i := range cfg.NodupBams {
		if err := stage(&cfg.NodupBams[i], fmt.Sprintf("rep%d", i+1)); err != nil {
			return err
		}
	}
	for i := range cfg.TAs {
		if err := stage(&cfg.TAs[i], fmt.Sprintf("rep%d", i+1)); err != nil {
			return err
		}
	}

	gen := &cfg.Genome
	for _, loc := range []*string{&gen.AlignerIndex, &gen.ChromSizes, &gen.Blacklist} {
		if err := stage(loc, "genome"); err != nil {
			return err
		}
	}
	return nil
}
