package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"procmap/cmd/mockgen/engine"
)

func main() {
	processType := flag.String("process-type", "order", "Process type recorded in the fixtures")
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./.cache/fixtures", "Output directory for fixture files")
	count := flag.Int("count", 200, "Number of cases to generate")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		ProcessType:  *processType,
		Scenario:     *scenario,
		Distribution: *distribution,
		Count:        *count,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Count: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Count, *outDir)

	cases := engine.Generate(cfg)
	paths, err := engine.Save(*outDir, cfg.ProcessType, cases, cfg.Now)
	if err != nil {
		fmt.Printf("Failed to save fixtures: %v\n", err)
		os.Exit(1)
	}
	for _, p := range paths {
		fmt.Println("  " + p)
	}

	fmt.Println("Done. Render with: procmap render process --file <path>")
}
