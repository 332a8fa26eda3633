package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/skillmatch/internal/seed"
	"github.com/okian/skillmatch/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumUsers = 20
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 30 * time.Second
	defaultWait     = 2 * time.Minute
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numUsers  = flag.Int("users", defaultNumUsers, "Number of users to generate")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		wait      = flag.Duration("wait", defaultWait, "Maximum time to wait for tagging to finish")
		seedValue = flag.Uint64("seed", 0, "Random seed, 0 for a clock-based seed")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every failed request")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		seed.ShowHelp()
		return
	}

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	config := &seed.Config{
		BaseURL:     *baseURL,
		NumUsers:    *numUsers,
		Workers:     *workers,
		Timeout:     *timeout,
		WaitTimeout: *wait,
		Seed:        *seedValue,
		Verbose:     *verbose,
	}

	if _, err := seed.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "seed run failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
