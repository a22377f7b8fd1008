package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/mcncl/keycase/internal/analyzer"
	"github.com/mcncl/keycase/internal/config"
	"github.com/mcncl/keycase/internal/errors"
	"github.com/mcncl/keycase/internal/fileinfo"
	"github.com/mcncl/keycase/internal/formatter"
	"github.com/mcncl/keycase/internal/models"
	"github.com/mcncl/keycase/internal/normalizer"
	"github.com/mcncl/keycase/internal/parser"
	"github.com/mcncl/keycase/internal/watch"
)

// CLI defines the command-line interface
var CLI struct {
	Config string `help:"Path to a config file. Defaults to the nearest .keycase.yml." type:"path"`
	Debug  bool   `help:"Enable debug logging." short:"d"`

	Normalize NormalizeCmd `cmd:"" default:"withargs" help:"Rewrite every mapping key of a JSON or YAML document into one case."`
	File      FileCmd      `cmd:"" help:"Inspect files and generate storage filenames."`
	Version   VersionCmd   `cmd:"" help:"Show version information."`
}

// Context holds the runtime context shared by all commands
type Context struct {
	Debug  bool
	Config *config.Config
	Logger *slog.Logger

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	app := kong.Must(&CLI,
		kong.Name("keycase"),
		kong.Description("Normalize the keys of JSON and YAML documents"),
		kong.UsageOnError(),
	)

	kctx, err := app.Parse(os.Args[1:])
	if err != nil {
		// Usage has already been shown by kong.UsageOnError()
		os.Exit(1)
	}

	cfg, err := config.LoadConfigWithCLI(CLI.Config, config.Overrides{Debug: CLI.Debug})
	if err != nil {
		exit(errors.NewConfigError(err.Error(), err))
	}

	ctx := &Context{
		Debug:  cfg.Dev.Debug,
		Config: cfg,
		Logger: newLogger(os.Stderr, cfg.Dev.Debug),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := kctx.Run(ctx); err != nil {
		exit(err)
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
	fmt.Fprintf(os.Stderr, "\nFor help, run: keycase --help\n")
	os.Exit(1)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NormalizeCmd is the default command
type NormalizeCmd struct {
	Input   string   `help:"Path to input JSON or YAML file. If not specified, reads from stdin." short:"i" type:"path"`
	Output  string   `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	Case    string   `help:"Key case: lower, upper, snake, camel, pascal, kebab or screaming." short:"c"`
	From    string   `help:"Input format: auto, json or yaml."`
	To      string   `help:"Output format: json or yaml. Defaults to the input format."`
	Indent  int      `help:"Spaces per indentation level."`
	Exclude []string `help:"Dotted key paths whose subtrees are copied unchanged." short:"x"`
	Stats   bool     `help:"Print document statistics and key collisions to stderr."`
	Watch   bool     `help:"Re-run whenever the input file changes." short:"w"`
}

// Run normalizes one document, or keeps doing so in watch mode
func (c *NormalizeCmd) Run(ctx *Context) error {
	cfg := *ctx.Config
	overrides := config.Overrides{
		Case:         c.Case,
		Exclude:      c.Exclude,
		InputFormat:  c.From,
		OutputFormat: c.To,
	}
	if c.Indent > 0 {
		overrides.Indent = &c.Indent
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return errors.NewConfigError(err.Error(), err)
	}

	if !c.Watch {
		return c.process(ctx, &cfg)
	}

	if c.Input == "" {
		return errors.NewInputError("watch mode needs an input file (-i)", errors.ErrNoInput)
	}
	if err := c.process(ctx, &cfg); err != nil {
		fmt.Fprintf(ctx.Stderr, "%s\n", errors.UserFriendlyError(err))
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(c.Input, cfg.Watch.Debounce, func(string) error {
		return c.process(ctx, &cfg)
	}, ctx.Logger)
	fmt.Fprintf(ctx.Stderr, "Watching %s (Ctrl+C to stop)\n", c.Input)
	return w.Run(sigCtx)
}

// process runs parse, normalize and write once
func (c *NormalizeCmd) process(ctx *Context, cfg *config.Config) error {
	inFormat, err := parser.ParseFormat(cfg.Input.Format)
	if err != nil {
		return errors.NewConfigError(err.Error(), err)
	}

	doc, err := c.readInput(ctx, inFormat)
	if err != nil {
		return err
	}

	n, err := normalizer.New(cfg.Case(), normalizer.WithExclude(cfg.Normalize.Exclude...))
	if err != nil {
		return errors.NewConfigError(err.Error(), err)
	}

	report := analyzer.NewAnalyzer(n.Key).Analyze(doc.Root)
	ctx.Logger.Debug("parsed document",
		"format", doc.Format,
		"keys", report.Keys,
		"max_depth", report.MaxDepth,
		"collisions", len(report.Collisions),
	)
	if c.Stats {
		writeStats(ctx.Stderr, report)
	}

	outFormat := cfg.Output.Format
	if outFormat == "" {
		outFormat = doc.Format
	}
	f, err := formatter.NewFormatter(outFormat, cfg.Output.Indent)
	if err != nil {
		return errors.NewFormatError(fmt.Sprintf("cannot write format '%s'", outFormat), err)
	}
	out, err := f.Format(n.Normalize(doc.Root))
	if err != nil {
		return errors.NewFormatError("failed to encode output", err)
	}

	return c.writeOutput(ctx, out)
}

// readInput reads a document from file, pipe or an interactive terminal
func (c *NormalizeCmd) readInput(ctx *Context, format parser.Format) (models.Document, error) {
	if c.Input != "" {
		return parser.ParseFile(c.Input, format)
	}

	if file, ok := ctx.Stdin.(*os.File); ok {
		stdinInfo, err := file.Stat()
		if err != nil {
			return models.Document{}, errors.NewInputError("failed to access stdin", err)
		}
		if (stdinInfo.Mode() & os.ModeCharDevice) != 0 {
			// Terminal is interactive (not piped)
			return readInteractiveInput(ctx, format)
		}
	}

	return parser.Parse(ctx.Stdin, format)
}

// writeOutput writes the document to file or stdout
func (c *NormalizeCmd) writeOutput(ctx *Context, out string) error {
	if c.Output != "" {
		if err := os.WriteFile(c.Output, []byte(out), 0644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", c.Output), err)
		}
		fmt.Fprintf(ctx.Stderr, "Normalized document written to %s\n", c.Output)
		return nil
	}

	if _, err := io.WriteString(ctx.Stdout, out); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

func writeStats(w io.Writer, r analyzer.Report) {
	fmt.Fprintf(w, "mappings: %d, sequences: %d, keys: %d, scalars: %d, max depth: %d\n",
		r.Mappings, r.Sequences, r.Keys, r.Scalars(), r.MaxDepth)
	if len(r.Collisions) == 0 {
		fmt.Fprintln(w, "no key collisions")
		return
	}
	fmt.Fprintf(w, "%d key collision(s), last key wins:\n", len(r.Collisions))
	for _, col := range r.Collisions {
		fmt.Fprintf(w, "  %s\n", col)
	}
}

// readInteractiveInput lets users paste a document and signal completion
// with Ctrl+D (EOF)
func readInteractiveInput(ctx *Context, format parser.Format) (models.Document, error) {
	fmt.Fprintln(ctx.Stderr, "keycase interactive mode")
	fmt.Fprintln(ctx.Stderr, "Paste your JSON or YAML below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(ctx.Stdin)
	var builder strings.Builder

	for {
		line, err := reader.ReadString('\n')
		builder.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.Document{}, errors.NewInputError("error reading input", err)
		}
	}

	data := builder.String()
	if strings.TrimSpace(data) == "" {
		return models.Document{}, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(ctx.Stderr, "\nProcessing...")
	return parser.ParseString(data, format)
}

// FileCmd groups the file helper commands
type FileCmd struct {
	Inspect FileInspectCmd `cmd:"" help:"Show size, type and policy status of files."`
	Name    FileNameCmd    `cmd:"" help:"Generate unique storage filenames that keep the original extension."`
}

// FileInspectCmd describes files on disk
type FileInspectCmd struct {
	Paths   []string `arg:"" help:"Files to inspect."`
	Allow   []string `help:"Allowed extensions. Overrides files.allowed_extensions." sep:","`
	MaxSize string   `help:"Maximum size, e.g. '10 MiB'. Overrides files.max_size."`
	Units   string   `help:"Size units: binary or decimal."`
	Strict  bool     `help:"Fail when any file violates the policy."`
}

// Run prints one row per file
func (c *FileInspectCmd) Run(ctx *Context) error {
	policy := ctx.Config.FilePolicy()
	if len(c.Allow) > 0 {
		policy.AllowedExtensions = c.Allow
	}
	if c.MaxSize != "" {
		n, err := fileinfo.ParseSize(c.MaxSize)
		if err != nil {
			return errors.NewConfigError(fmt.Sprintf("invalid --max-size '%s'", c.MaxSize), err)
		}
		policy.MaxSize = n
	}

	units := ctx.Config.SizeUnits()
	if c.Units != "" {
		u, err := fileinfo.ParseUnits(c.Units)
		if err != nil {
			return errors.NewConfigError(err.Error(), err)
		}
		units = u
	}

	tw := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tTYPE\tCATEGORY\tEXT\tSTATUS")

	violations := 0
	for _, path := range c.Paths {
		f, err := fileinfo.Stat(path)
		if err != nil {
			_ = tw.Flush()
			return err
		}

		status := "ok"
		if err := fileinfo.Validate(f, policy); err != nil {
			status = err.Error()
			violations++
		}
		ctx.Logger.Debug("inspected file", "path", path, "size", f.Size, "type", f.Type, "status", status)

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			f.Name,
			fileinfo.FormatSizeUnits(f.Size, units),
			orDash(f.Type),
			fileinfo.Classify(f),
			orDash(fileinfo.Extension(f.Name)),
			status,
		)
	}
	if err := tw.Flush(); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}

	if c.Strict && violations > 0 {
		return errors.NewFileError(fmt.Sprintf("%d of %d file(s) violate the file policy", violations, len(c.Paths)), nil)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// FileNameCmd prints generated filenames
type FileNameCmd struct {
	Originals []string `arg:"" help:"Original filenames."`
	Prefix    string   `help:"Prefix for generated names. Overrides files.filename_prefix."`
}

// Run prints one generated name per original
func (c *FileNameCmd) Run(ctx *Context) error {
	prefix := ctx.Config.Files.FilenamePrefix
	if c.Prefix != "" {
		prefix = c.Prefix
	}
	for _, original := range c.Originals {
		if _, err := fmt.Fprintln(ctx.Stdout, fileinfo.GenerateFilenameWithPrefix(prefix, original)); err != nil {
			return errors.NewOutputError("failed to write to stdout", err)
		}
	}
	return nil
}

// VersionCmd prints the version
type VersionCmd struct{}

// Run prints the version
func (c *VersionCmd) Run(ctx *Context) error {
	_, err := fmt.Fprintf(ctx.Stdout, "keycase version %s\n", Version)
	return err
}
