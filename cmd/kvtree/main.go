// kvtree renders key/value documents as JSON-like trees.
//
// Usage:
//
//	kvtree render [--type T | --types FILE --name N] [--input json|jsonc|yaml]
//	              [--format json|json-indent|yaml|cbor] [--compress zstd]
//	              [--fingerprint] [--lang en|ja] [--verbose] [FILE]
//	kvtree schema (--type T | --types FILE --name N)
//	kvtree formats
//
// With a multimap type the input may be a list of [key, value] pairs or an
// object of groups; with any other type it is serialized as decoded.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	kvtree "github.com/reoring/kvtree"
	_ "github.com/reoring/kvtree/codec"
	"github.com/reoring/kvtree/i18n"
	js "github.com/reoring/kvtree/jsonschema"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "kvtree: %v\n", err)
		if iss, ok := kvtree.AsIssues(err); ok {
			for _, it := range iss {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", it.Path, it.Message)
			}
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "kvtree\n\nUsage:\n  kvtree render [flags] [FILE]\n  kvtree schema --type T\n  kvtree formats")
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errors.New("missing subcommand")
	}
	switch args[0] {
	case "render":
		return renderCmd(args[1:], stdin, stdout, stderr)
	case "schema":
		return schemaCmd(args[1:], stdout, stderr)
	case "formats":
		for _, name := range kvtree.Renderers() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case "-h", "--help", "help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

// typeFlags selects a descriptor either inline or from a YAML types file.
type typeFlags struct {
	typ   string
	types string
	name  string
}

func (f *typeFlags) add(fs *pflag.FlagSet) {
	fs.StringVarP(&f.typ, "type", "t", "", "declared type, e.g. multimap[string]string")
	fs.StringVar(&f.types, "types", "", "YAML file mapping names to type descriptors")
	fs.StringVar(&f.name, "name", "", "entry of --types to use")
}

func (f *typeFlags) resolve() (*kvtree.Type, error) {
	switch {
	case f.typ != "" && f.types != "":
		return nil, errors.New("--type and --types are mutually exclusive")
	case f.typ != "":
		return kvtree.ParseType(f.typ)
	case f.types != "":
		if f.name == "" {
			return nil, errors.New("--types requires --name")
		}
		data, err := os.ReadFile(f.types)
		if err != nil {
			return nil, err
		}
		all, err := kvtree.LoadTypesYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.types, err)
		}
		t, ok := all[f.name]
		if !ok {
			return nil, fmt.Errorf("%s: no type named %q", f.types, f.name)
		}
		return t, nil
	}
	return nil, nil
}

func renderCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("render", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		tf          typeFlags
		input       string
		format      string
		compress    string
		fingerprint bool
		nullOmit    bool
		maxDepth    int
		lang        string
		verbose     bool
	)
	tf.add(fs)
	fs.StringVarP(&input, "input", "i", "", "input syntax: json, jsonc or yaml (default: from file extension, else json)")
	fs.StringVarP(&format, "format", "f", "json", "output format, see 'kvtree formats'")
	fs.StringVar(&compress, "compress", "", "compress output: zstd")
	fs.BoolVar(&fingerprint, "fingerprint", false, "print the tree fingerprint instead of the tree")
	fs.BoolVar(&nullOmit, "omit-null", false, "drop null entries and elements")
	fs.IntVar(&maxDepth, "max-depth", kvtree.DefaultMaxDepth, "maximum nesting depth")
	fs.StringVar(&lang, "lang", "en", "language of issue messages (en, ja)")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log traversal decisions to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("render takes at most one FILE")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	i18n.SetLanguage(lang)

	typ, err := tf.resolve()
	if err != nil {
		return err
	}

	var (
		data []byte
		path = fs.Arg(0)
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if input == "" {
		input = syntaxFromPath(path)
	}
	doc, err := decodeInput(input, data)
	if err != nil {
		return err
	}
	if typ.CategoryOf() == kvtree.CategoryMultimapping {
		if doc, err = toMultimap(doc); err != nil {
			return err
		}
	}
	logger.Debug("input decoded", "syntax", input, "bytes", len(data), "type", typ.String())

	opt := kvtree.Options{MaxDepth: maxDepth, Logger: logger}
	if nullOmit {
		opt.NullPolicy = kvtree.NullOmit
	}
	tree, err := kvtree.New(opt).Serialize(doc, typ)
	if err != nil {
		return err
	}

	if fingerprint {
		fp, err := kvtree.Fingerprint(tree)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, fp)
		return err
	}

	out := stdout
	var closer io.Closer
	switch compress {
	case "":
	case "zstd":
		zw, err := zstd.NewWriter(stdout, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
		if err != nil {
			return err
		}
		out, closer = zw, zw
	default:
		return fmt.Errorf("unsupported --compress %q", compress)
	}
	err = kvtree.Render(out, format, tree)
	if closer != nil {
		// finish the frame even on failure so the encoder is released
		if cerr := closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func schemaCmd(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("schema", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var tf typeFlags
	tf.add(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	typ, err := tf.resolve()
	if err != nil {
		return err
	}
	if typ == nil {
		return errors.New("schema requires --type or --types")
	}
	doc, err := js.Document(typ.JSONSchema())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", doc)
	return err
}

func syntaxFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return "yaml"
	case strings.HasSuffix(path, ".jsonc"):
		return "jsonc"
	default:
		return "json"
	}
}
