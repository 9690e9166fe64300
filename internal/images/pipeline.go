// Package images converts user-supplied image files into bounded,
// storage-friendly encoded strings.
//
// The pipeline validates each candidate file (declared media type and
// size ceiling), decodes it, downsamples it to fit within a bounding
// box while preserving aspect ratio, and re-encodes it as a
// self-contained data URI. Invalid files are skipped, not fatal: the
// rest of the batch is still processed.
//
// Files in a batch decode concurrently, but results are assembled by
// input index so the output order always matches selection order. The
// caller appends the whole ordered batch to a setup in one store write.
package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
	"sync"

	// Register the decoders the file boundary accepts.
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Default pipeline limits.
const (
	DefaultMaxBytes  = 5 << 20 // 5 MiB per file
	DefaultMaxBatch  = 16      // files per batch
	DefaultBoxWidth  = 1200
	DefaultBoxHeight = 800
	DefaultQuality   = 80
	defaultWorkers   = 4
)

// File is one candidate from the file boundary: an opaque blob with a
// declared media type.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// SkipReason explains why a candidate file was not processed.
type SkipReason string

const (
	SkipNotImage      SkipReason = "not an image"
	SkipTooLarge      SkipReason = "exceeds size ceiling"
	SkipBatchOverflow SkipReason = "exceeds batch bound"
	SkipUndecodable   SkipReason = "could not decode"
)

// Skip records one skipped file.
type Skip struct {
	Name   string
	Reason SkipReason
}

// Result is the outcome of one batch: encoded strings for the accepted
// files, in input order, plus a record of everything skipped.
type Result struct {
	Encoded []string
	Skipped []Skip
}

// Options configures a Pipeline.
type Options struct {
	// MaxBytes is the per-file size ceiling.
	MaxBytes int
	// MaxBatch bounds the number of files accepted per batch; files
	// past the bound are skipped like invalid ones.
	MaxBatch int
	// BoxWidth and BoxHeight define the bounding box neither output
	// dimension may exceed. Images already inside the box are not
	// upscaled.
	BoxWidth  int
	BoxHeight int
	// Quality is the JPEG quality factor for re-encoding (1-100).
	Quality int
	// Workers bounds concurrent decodes.
	Workers int
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{
		MaxBytes:  DefaultMaxBytes,
		MaxBatch:  DefaultMaxBatch,
		BoxWidth:  DefaultBoxWidth,
		BoxHeight: DefaultBoxHeight,
		Quality:   DefaultQuality,
		Workers:   defaultWorkers,
	}
}

// Pipeline is a stateless file-to-string transform. One instance can
// serve any number of batches.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline, filling zero option fields with defaults.
func New(opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = def.MaxBytes
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = def.MaxBatch
	}
	if opts.BoxWidth <= 0 {
		opts.BoxWidth = def.BoxWidth
	}
	if opts.BoxHeight <= 0 {
		opts.BoxHeight = def.BoxHeight
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	return &Pipeline{opts: opts}
}

// Options returns the effective pipeline limits.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Process runs one batch through the pipeline. Validation failures
// skip the file and continue; only context cancellation produces an
// error. Encoded results preserve the input order of accepted files.
func (p *Pipeline) Process(ctx context.Context, files []File) (Result, error) {
	type slot struct {
		encoded string
		skip    *Skip
	}

	slots := make([]slot, len(files))

	// Validate synchronously so skips are deterministic, then decode
	// the accepted files on a bounded worker pool.
	accepted := 0
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.opts.Workers)

	for i := range files {
		f := files[i]

		if reason, ok := p.validate(f, accepted); !ok {
			slots[i].skip = &Skip{Name: f.Name, Reason: reason}
			continue
		}
		accepted++

		wg.Add(1)
		go func(i int, f File) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			encoded, err := p.convert(f.Data)
			if err != nil {
				slots[i].skip = &Skip{Name: f.Name, Reason: SkipUndecodable}
				return
			}
			slots[i].encoded = encoded
		}(i, f)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	for i := range slots {
		switch {
		case slots[i].skip != nil:
			res.Skipped = append(res.Skipped, *slots[i].skip)
		case slots[i].encoded != "":
			res.Encoded = append(res.Encoded, slots[i].encoded)
		}
	}
	return res, nil
}

// validate applies the file-boundary checks: declared image media
// type, size ceiling, and the batch bound.
func (p *Pipeline) validate(f File, accepted int) (SkipReason, bool) {
	if !strings.HasPrefix(f.MediaType, "image/") {
		return SkipNotImage, false
	}
	if len(f.Data) > p.opts.MaxBytes {
		return SkipTooLarge, false
	}
	if accepted >= p.opts.MaxBatch {
		return SkipBatchOverflow, false
	}
	return "", true
}

// convert decodes, resizes, and re-encodes one accepted file.
func (p *Pipeline) convert(data []byte) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	bounds := src.Bounds()
	w, h := FitWithin(bounds.Dx(), bounds.Dy(), p.opts.BoxWidth, p.opts.BoxHeight)

	dst := src
	if w != bounds.Dx() || h != bounds.Dy() {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.opts.Quality}); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// FitWithin computes target dimensions that preserve aspect ratio and
// keep the image inside maxW x maxH. When width >= height the width is
// clamped (height scales proportionally); otherwise the height is
// clamped. Images already within the box keep their dimensions.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if w >= h {
		if w > maxW {
			return maxW, int(float64(h) * float64(maxW) / float64(w))
		}
		return w, h
	}
	if h > maxH {
		return int(float64(w) * float64(maxH) / float64(h)), maxH
	}
	return w, h
}
