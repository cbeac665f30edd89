// Command adjustdemo applies brightness, contrast, and saturation
// adjustments to an image file.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/adjust"
	_ "github.com/gogpu/adjust/gpu" // enable the wgpu executor
	"github.com/gogpu/adjust/internal/imageio"
)

func main() {
	var (
		input      = flag.String("input", "", "input image (PNG, JPEG, GIF, BMP, TIFF or WebP)")
		output     = flag.String("output", "adjusted.png", "output file")
		brightness = flag.Float64("brightness", 0, "brightness offset, -1 to 1")
		contrast   = flag.Float64("contrast", 1, "contrast factor, 0.5 to 2")
		saturation = flag.Float64("saturation", 1, "saturation factor, 0 to 2")
		executor   = flag.String("executor", "", "executor name (wgpu, software); empty selects automatically")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		adjust.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *input, err)
	}

	var opts []adjust.SessionOption
	if *executor != "" {
		opts = append(opts, adjust.WithExecutorName(*executor))
	}
	session, err := adjust.NewSession(data, opts...)
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	defer session.Close()

	params := adjust.Params{
		Brightness: float32(*brightness),
		Contrast:   float32(*contrast),
		Saturation: float32(*saturation),
	}.Clamp()

	img, err := session.Run(params).Result()
	if err != nil {
		log.Fatalf("Adjustment failed: %v", err)
	}

	if err := imageio.SaveFile(*output, img.ToImage()); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("Saved %s (%dx%d, executor %s)\n",
		*output, img.Width(), img.Height(), session.ExecutorName())
}
