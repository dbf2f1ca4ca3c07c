package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"prayer-times-ics/internal/apperr"
	"prayer-times-ics/internal/awqaf"
	"prayer-times-ics/internal/cache"
	"prayer-times-ics/internal/config"
	"prayer-times-ics/internal/emirates"
	"prayer-times-ics/internal/generator"
	"prayer-times-ics/internal/logger"
)

// usageError marks invalid command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

type options struct {
	year         int
	month        int
	day          int
	city         string
	emirate      string
	listEmirates bool
	listCities   bool
	outputDir    string
	noCache      bool
	clearCache   bool
	publish      bool
	debug        bool
}

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var ue *usageError
	if errors.As(err, &ue) {
		return 1
	}
	return apperr.KindOf(err).ExitCode()
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "prayer-ics",
		Short: "Generate prayer-time calendars for UAE cities from the AWQAF API",
		Example: `  prayer-ics --emirate Dubai --city Dubai --year 2025 --month 1
  prayer-ics --emirate Dubai --city Dubai --year 2025 --month 1 --day 15
  prayer-ics --list-cities --emirate Sharjah`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := os.Getenv("PRAYER_LOG_LEVEL")
			if opts.debug {
				level = "debug"
			}
			logger.Setup(level, true)
			log.Debug().Msg("debug logging enabled")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.year, "year", 0, "Year (e.g. 2025)")
	f.IntVar(&opts.month, "month", 0, "Month (1-12)")
	f.IntVar(&opts.day, "day", 0, "Day of month; generates a single-day calendar")
	f.StringVar(&opts.city, "city", "", "City name (e.g. Dubai)")
	f.StringVar(&opts.emirate, "emirate", "", "Emirate name (e.g. Dubai)")
	f.BoolVar(&opts.listEmirates, "list-emirates", false, "List available emirates")
	f.BoolVar(&opts.listCities, "list-cities", false, "List cities of --emirate")
	f.StringVar(&opts.outputDir, "output-dir", "", "Root directory for calendar files (default $PRAYER_OUTPUT_DIR or .)")
	f.BoolVar(&opts.noCache, "no-cache", false, "Drop the cached API response for this request and fetch it again")
	f.BoolVar(&opts.clearCache, "clear-cache", false, "Remove every cached API response and exit")
	f.BoolVar(&opts.publish, "publish", false, "Publish the calendar to the configured bucket or archive")
	cmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "Enable verbose debug output")

	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	out := cmd.OutOrStdout()

	if opts.listEmirates {
		for _, name := range emirates.Names() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	if opts.listCities {
		if opts.emirate == "" {
			return usagef("--list-cities requires --emirate")
		}
		cities, err := emirates.Cities(opts.emirate)
		if err != nil {
			return err
		}
		for _, c := range cities {
			fmt.Fprintf(out, "%s (%.4f, %.4f)\n", c.Name, c.Latitude, c.Longitude)
		}
		return nil
	}

	if opts.clearCache {
		cfg, err := config.Load()
		if err != nil {
			return apperr.Config("loading configuration", err)
		}
		c, err := cache.New(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			return apperr.Config("opening cache", err)
		}
		if err := c.InvalidateAll(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintf(out, "Cache cleared: %s\n", cfg.CacheDir)
		return nil
	}

	var missing []string
	for name, set := range map[string]bool{
		"--year":    cmd.Flags().Changed("year"),
		"--month":   cmd.Flags().Changed("month"),
		"--city":    opts.city != "",
		"--emirate": opts.emirate != "",
	} {
		if !set {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return usagef("missing required flags: %s", joinSorted(missing))
	}
	if cmd.Flags().Changed("day") && opts.day == 0 {
		return usagef("day must be between 1 and 31")
	}

	req := awqaf.Request{
		Emirate: opts.emirate,
		City:    opts.city,
		Year:    opts.year,
		Month:   opts.month,
		Day:     opts.day,
		NoCache: opts.noCache,
	}
	if err := req.Validate(); err != nil {
		return &usageError{err: err}
	}
	if _, _, err := emirates.Lookup(req.Emirate, req.City); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return apperr.Config("loading configuration", err)
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RunTimeout)
	defer cancel()

	g, closeFn, err := generator.FromConfig(ctx, cfg, generator.SetupOptions{})
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := g.Generate(ctx, generator.Request{Request: req, Publish: opts.publish})
	if err != nil {
		return err
	}

	for _, s := range result.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: skipped %s: %v\n", s.Date, s.Err)
	}
	fmt.Fprintf(out, "Calendar file generated: %s\n", result.Path)
	return nil
}

func joinSorted(names []string) string {
	sort.Strings(names)
	return strings.Join(names, ", ")
}
