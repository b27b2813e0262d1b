package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jsi/internal/services"
	"github.com/desertthunder/jsi/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryFactory builds the media library client for a resolved configuration.
type LibraryFactory func(cfg *shared.Config, logger *log.Logger) (services.Library, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	logger     *log.Logger
	output     io.Writer
	newLibrary LibraryFactory
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Logger  *log.Logger
	Output  io.Writer
	Library LibraryFactory
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Library == nil {
		opts.Library = newJellyfin
	}

	return &Runner{
		config:     opts.Config,
		logger:     opts.Logger,
		output:     opts.Output,
		newLibrary: opts.Library,
	}
}

// newJellyfin is the default [LibraryFactory].
func newJellyfin(cfg *shared.Config, logger *log.Logger) (services.Library, error) {
	svc, err := services.NewJellyfinService(services.JellyfinOpts{
		BaseURL:   cfg.Jellyfin.URL,
		Token:     cfg.Jellyfin.Token,
		SkipTLS:   cfg.Jellyfin.SkipTLS,
		Timeout:   cfg.Jellyfin.Timeout(),
		Retries:   cfg.Jellyfin.Retries,
		RetryWait: cfg.Jellyfin.RetryWait(),
		RateLimit: cfg.Jellyfin.RateLimit,
		PageSize:  cfg.Jellyfin.PageSize,
		Logger:    shared.WithLogger(logger, "service", "jellyfin"),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		importCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
