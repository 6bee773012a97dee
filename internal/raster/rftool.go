package raster

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ivgtz/idrone-platform/internal/models"
)

// rfToolTimeout bounds how long the external RF-coverage tool may run
// before this process gives up on it.
const rfToolTimeout = 2 * time.Minute

// Generate runs the external RF-coverage tool binary directly (no shell) to produce
// "<outputFile>.ppm" and "<outputFile>.dcf", then parses both into a
// CoverageMatrix and its geographic bounds. toolPath is the configured
// RF-tool binary (out of scope for this platform — treated as an opaque
// shell collaborator per spec §1).
func Generate(ctx context.Context, toolPath string, cfg models.SignalServerConfig) (models.CoverageMatrix, Bounds, error) {
	if err := cfg.Validate(); err != nil {
		return models.CoverageMatrix{}, Bounds{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, rfToolTimeout)
	defer cancel()

	args := buildToolArgs(cfg)
	cmd := exec.CommandContext(runCtx, toolPath, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return models.CoverageMatrix{}, Bounds{}, fmt.Errorf("running RF coverage tool: %w", err)
	}

	scanner := bufio.NewScanner(&stdout)
	if !scanner.Scan() {
		return models.CoverageMatrix{}, Bounds{}, fmt.Errorf("RF coverage tool produced no output")
	}
	bounds, err := ParseBoundsLine(scanner.Text())
	if err != nil {
		return models.CoverageMatrix{}, Bounds{}, err
	}

	ppmFile, err := os.Open(cfg.OutputFile + ".ppm")
	if err != nil {
		return models.CoverageMatrix{}, Bounds{}, fmt.Errorf("opening generated raster: %w", err)
	}
	defer ppmFile.Close()

	img, err := ParsePPM(ppmFile)
	if err != nil {
		return models.CoverageMatrix{}, Bounds{}, fmt.Errorf("parsing generated raster: %w", err)
	}

	dcfFile, err := os.Open(cfg.OutputFile + ".dcf")
	if err != nil {
		return models.CoverageMatrix{}, Bounds{}, fmt.Errorf("opening generated colour table: %w", err)
	}
	defer dcfFile.Close()

	dcf, err := ParseDCF(dcfFile)
	if err != nil {
		return models.CoverageMatrix{}, Bounds{}, fmt.Errorf("parsing generated colour table: %w", err)
	}

	return BuildCoverageMatrix(img, dcf), bounds, nil
}

func buildToolArgs(cfg models.SignalServerConfig) []string {
	args := []string{
		"-sdf", cfg.SDFDirectory,
		"-o", cfg.OutputFile,
		"-lat", fmt.Sprintf("%g", cfg.Latitude),
		"-lon", fmt.Sprintf("%g", cfg.Longitude),
		"-txh", fmt.Sprintf("%g", cfg.TxHeight),
		"-f", fmt.Sprintf("%g", cfg.FrequencyMHz),
		"-erp", fmt.Sprintf("%g", cfg.ERPWatts),
		"-pm", cfg.PropagationModel,
		"-R", fmt.Sprintf("%g", cfg.RadiusKM),
		"-res", fmt.Sprintf("%g", cfg.ResolutionM),
	}
	if cfg.MapColorFile != "" {
		args = append(args, "-dbm", cfg.MapColorFile)
	}
	if cfg.HighResolution {
		args = append(args, "-hd")
	}
	return args
}
