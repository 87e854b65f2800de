package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"htmlpatch/internal/config"
	"htmlpatch/internal/html"
	"htmlpatch/pkg/page"
)

// assignments collects repeated name=value flags.
type assignments []string

func (a *assignments) String() string {
	return strings.Join(*a, ",")
}

func (a *assignments) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("expected name=file, got %q", value)
	}
	*a = append(*a, value)
	return nil
}

var (
	// Input/Output flags
	inputFile  = flag.String("input", "", "Input HTML file path (default: stdin)")
	outputFile = flag.String("output", "", "Output HTML file path (default: stdout)")
	inputDir   = flag.String("input-dir", "", "Edit all pages in directory")
	outputDir  = flag.String("output-dir", "", "Output directory for batch editing")
	configFile = flag.String("config", "", "YAML configuration file")

	// Edit flags
	contents    assignments
	menus       assignments
	title       = flag.String("title", "", "Set the page title")
	description = flag.String("description", "", "Set the description meta tag")
	activeURL   = flag.String("active", "", "URL of the current page, marked active in saved menus")
	sanitize    = flag.Bool("sanitize", false, "Sanitize container content before saving")

	// Report flags
	query     = flag.String("query", "", "Print the elements matching a selector")
	list      = flag.Bool("list", false, "List content containers and menus")
	markdown  = flag.String("markdown", "", "Print a container as Markdown")
	resources = flag.Bool("resources", false, "List uploaded resources referenced by containers")
	tree      = flag.Bool("tree", false, "Print the element index")

	// Output control flags
	verbose = flag.Bool("verbose", false, "Verbose output with editing statistics")
	quiet   = flag.Bool("quiet", false, "Suppress all output except errors")
)

func init() {
	flag.Var(&contents, "set", "Set container content from a file, name=file (repeatable)")
	flag.Var(&menus, "menu", "Save menu items from a YAML file, name=file (repeatable)")
}

func main() {
	flag.Parse()

	// Validate command line arguments
	if err := validateArgs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := newLogger()
	cfg, err := buildConfig(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	startTime := time.Now()
	if *inputDir != "" {
		err = runBatch(cfg, logger)
	} else {
		err = runSingle(cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("done", "elapsed", time.Since(startTime))
}

// validateArgs validates command line arguments
func validateArgs() error {
	if *inputFile != "" && *inputDir != "" {
		return errors.New("cannot specify both -input and -input-dir")
	}
	if *inputDir != "" && *outputDir == "" {
		return errors.New("-output-dir required when using -input-dir")
	}
	if *quiet && *verbose {
		return errors.New("cannot specify both -quiet and -verbose")
	}
	if *inputDir != "" && reporting() {
		return errors.New("report flags cannot be used with -input-dir")
	}
	return nil
}

func reporting() bool {
	return *query != "" || *list || *markdown != "" || *resources || *tree
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case *verbose:
		level = slog.LevelDebug
	case *quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildConfig loads the configuration file, if any, and applies flags over it
func buildConfig(logger *slog.Logger) (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFile(*configFile); err != nil {
			return config.Config{}, err
		}
	}
	if *sanitize {
		cfg.SanitizeContent = true
	}
	cfg.Logger = logger
	return cfg, nil
}

// edits holds everything read from flags and files that is applied to a page
type edits struct {
	contents map[string]string
	menus    map[string][]html.MenuItem
}

func loadEdits() (*edits, error) {
	e := &edits{
		contents: make(map[string]string),
		menus:    make(map[string][]html.MenuItem),
	}
	for _, a := range contents {
		name, path, _ := strings.Cut(a, "=")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read content for %s: %w", name, err)
		}
		e.contents[name] = string(data)
	}
	for _, a := range menus {
		name, path, _ := strings.Cut(a, "=")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read menu %s: %w", name, err)
		}
		var items []html.MenuItem
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("failed to parse menu %s: %w", name, err)
		}
		e.menus[name] = items
	}
	return e, nil
}

// apply runs the edits against p
func (e *edits) apply(p *page.Page) error {
	if len(e.contents) > 0 {
		if err := p.SetContainersContent(e.contents); err != nil {
			return err
		}
	}
	var isActive func(string) bool
	if *activeURL != "" {
		isActive = func(url string) bool { return url == *activeURL }
	}
	for name, items := range e.menus {
		if err := p.SaveMenus(name, items, isActive); err != nil {
			return err
		}
	}
	if *title != "" {
		if err := p.SetTitle(*title); err != nil {
			return err
		}
	}
	if *description != "" {
		if err := p.SetDescription(*description); err != nil {
			return err
		}
	}
	return nil
}

// runSingle edits one page read from -input or stdin
func runSingle(cfg config.Config) error {
	var (
		input []byte
		err   error
	)
	if *inputFile != "" {
		input, err = os.ReadFile(*inputFile)
	} else {
		input, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	e, err := loadEdits()
	if err != nil {
		return err
	}
	p, err := page.New(string(input), cfg)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}
	if err := e.apply(p); err != nil {
		return fmt.Errorf("failed to edit page: %w", err)
	}

	if reporting() {
		if err := report(p, os.Stdout); err != nil {
			return err
		}
		if *outputFile == "" {
			return nil
		}
	}
	if err := writeOutput(p.String(), *outputFile); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	showStats(p, cfg.Logger)
	return nil
}

// runBatch applies the same edits to every page in -input-dir
func runBatch(cfg config.Config, logger *slog.Logger) error {
	files, err := findPages(*inputDir)
	if err != nil {
		return fmt.Errorf("failed to find pages: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no pages found in directory: %s", *inputDir)
	}
	e, err := loadEdits()
	if err != nil {
		return err
	}

	edited := 0
	for i, inputPath := range files {
		logger.Debug("editing page", "n", i+1, "of", len(files), "path", inputPath)

		input, err := os.ReadFile(inputPath)
		if err != nil {
			logger.Warn("failed to read page", "path", inputPath, "err", err)
			continue
		}
		output, err := editPage(string(input), cfg, e)
		if errors.Is(err, errNotEdited) {
			logger.Info("page copied unchanged", "path", inputPath, "err", err)
		} else if err != nil {
			logger.Warn("failed to load page", "path", inputPath, "err", err)
			continue
		}

		relPath, _ := filepath.Rel(*inputDir, inputPath)
		outputPath := filepath.Join(*outputDir, relPath)
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			logger.Warn("failed to create output directory", "path", outputPath, "err", err)
			continue
		}
		if err := writeOutput(output, outputPath); err != nil {
			logger.Warn("failed to write page", "path", outputPath, "err", err)
			continue
		}
		edited++
	}
	logger.Info("batch finished", "pages", len(files), "written", edited)
	return nil
}

var errNotEdited = errors.New("page not edited")

// editPage applies e to the page in input and returns the edited markup. A
// page the edits do not fully apply to is returned as input, unchanged, with
// an error wrapping errNotEdited.
func editPage(input string, cfg config.Config, e *edits) (string, error) {
	p, err := page.New(input, cfg)
	if err != nil {
		return "", err
	}
	if err := e.apply(p); err != nil {
		return input, fmt.Errorf("%w: %w", errNotEdited, err)
	}
	return p.String(), nil
}

// report prints the requested views of p to w
func report(p *page.Page, w io.Writer) error {
	if *query != "" {
		matches, err := p.Query(*query)
		if err != nil {
			return err
		}
		for _, el := range matches.All() {
			printMatch(w, el)
		}
	}
	if *list {
		containers, err := p.Containers()
		if err != nil {
			return err
		}
		for _, c := range containers {
			name := c.Name()
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Fprintf(w, "container\t%s\t<%s>\n", name, c.TagName())
		}
		menus, err := p.Menus()
		if err != nil {
			return err
		}
		for _, m := range menus {
			fmt.Fprintf(w, "menu\t%s\t%d items\n", m.Name(), len(m.Items()))
		}
	}
	if *markdown != "" {
		md, err := p.ContainerMarkdown(*markdown)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, md)
	}
	if *resources {
		urls, err := p.ResourceURLs()
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(w, u)
		}
	}
	if *tree {
		fmt.Fprint(w, p.Session().Tree())
	}
	return nil
}

// printMatch prints the markup of a matched element, led by a comment naming it
func printMatch(w io.Writer, n html.Node) {
	label := n.TagName()
	if id := n.ID(); id != "" {
		label += "#" + id
	}
	for _, c := range n.Classes() {
		label += "." + c
	}
	if n.IsModified() {
		label += " (modified)"
	}
	fmt.Fprintf(w, "<!-- %s -->\n%s\n", label, n.OuterHTML())
}

// writeOutput writes content to a file or stdout
func writeOutput(content, filename string) error {
	if filename == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}

// findPages finds all HTML and PHP pages in a directory
func findPages(dir string) ([]string, error) {
	var pages []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			switch strings.ToLower(filepath.Ext(path)) {
			case ".html", ".htm", ".php":
				pages = append(pages, path)
			}
		}
		return nil
	})
	return pages, err
}

// showStats logs editing statistics
func showStats(p *page.Page, logger *slog.Logger) {
	s := p.Session().Stats()
	logger.Debug("editing statistics",
		"queries", s.Queries,
		"cache_hits", s.CacheHits,
		"discovered", s.Discovered,
		"mutations", s.Mutations,
		"renders", s.Renders,
		"substitutions", s.Substitutions,
	)
}
