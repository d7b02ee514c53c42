// Command tagpdf converts an HTML or markdown file into a tagged PDF and
// optionally reports PDF/UA violations.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/wudi/pdftag/compliance/pdfua"
	"github.com/wudi/pdftag/engine"
	"github.com/wudi/pdftag/observability"
	"github.com/wudi/pdftag/semtree"
	"github.com/wudi/pdftag/writer"
)

type options struct {
	input    string
	output   string
	markdown bool
	validate bool
	verbose  bool
	fontSize float64
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "tagpdf: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "tagpdf: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("tagpdf", pflag.ContinueOnError)
	fs.StringVarP(&opts.output, "output", "o", "", "output PDF path (default: input with .pdf)")
	fs.BoolVar(&opts.markdown, "markdown", false, "treat the input as markdown")
	fs.BoolVar(&opts.validate, "validate", false, "report PDF/UA violations after writing")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log tagging decisions to stderr")
	fs.Float64Var(&opts.fontSize, "font-size", 12, "base font size in points")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tagpdf [flags] <input.html|input.md>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return opts, fmt.Errorf("exactly one input file required")
	}
	opts.input = rest[0]
	if opts.output == "" {
		ext := filepath.Ext(opts.input)
		opts.output = strings.TrimSuffix(opts.input, ext) + ".pdf"
	}
	if !opts.markdown {
		switch strings.ToLower(filepath.Ext(opts.input)) {
		case ".md", ".markdown":
			opts.markdown = true
		}
	}
	return opts, nil
}

func run(opts options) error {
	source, err := os.ReadFile(opts.input)
	if err != nil {
		return err
	}

	var tree *semtree.Tree
	if opts.markdown {
		tree, err = semtree.BuildFromMarkdown(source)
	} else {
		tree, err = semtree.BuildFromHTML(strings.NewReader(string(source)))
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", opts.input, err)
	}

	var log observability.Logger = observability.NopLogger{}
	if opts.verbose {
		log = observability.NewTextLogger(os.Stderr, observability.LevelDebug)
	}

	doc := writer.NewDocument(writer.WithLogger(log))
	e := engine.New(doc, engine.WithLogger(log), engine.WithFontSize(opts.fontSize))
	if err := e.Render(tree); err != nil {
		return err
	}

	out, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := e.Close(out); err != nil {
		return err
	}

	if opts.validate {
		report := pdfua.NewValidator().Validate(e.Builder())
		if report.Compliant() {
			fmt.Fprintf(os.Stderr, "tagpdf: %s: no %s violations\n", opts.output, report.Standard)
		}
		for _, v := range report.Violations {
			fmt.Fprintf(os.Stderr, "tagpdf: %s: %s %s (%s)\n", opts.output, v.Code, v.Description, v.Location)
		}
	}
	return nil
}
