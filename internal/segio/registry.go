// Package segio reads and writes segment lists, flags, and flag
// dictionaries in three on-disk formats: segwizard text, JSON documents,
// and a gob-encoded hierarchical container.
package segio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
)

// Format names.
const (
	FormatSegwizard = "segwizard"
	FormatJSON      = "json"
	FormatGob       = "gob"
)

var (
	// ErrExists is returned when the write target (file, or path within
	// a container) already exists and Overwrite was not requested.
	ErrExists = errors.New("target already exists")
	// ErrUnknownFormat is returned when no format was given and none
	// could be inferred from the target's extension.
	ErrUnknownFormat = errors.New("unknown serialization format")
	// ErrUnsupported is returned when a format cannot carry the
	// requested payload (e.g. a flag in segwizard text).
	ErrUnsupported = errors.New("format does not support this payload")
)

// Options control reading and writing.
type Options struct {
	// Format names the codec explicitly; empty means identify it from
	// the target's extension.
	Format string
	// Path addresses an entry inside container formats.
	Path string
	// Overwrite allows replacing an existing target.
	Overwrite bool
	// Coalesce normalizes lists after reading.
	Coalesce bool
}

// Option mutates Options.
type Option func(*Options)

// WithFormat selects a codec explicitly instead of inferring it from the
// target's extension.
func WithFormat(name string) Option {
	return func(o *Options) { o.Format = name }
}

// WithPath addresses an entry inside a container file.
func WithPath(path string) Option {
	return func(o *Options) { o.Path = path }
}

// WithOverwrite allows replacing an existing target.
func WithOverwrite() Option {
	return func(o *Options) { o.Overwrite = true }
}

// WithCoalesce coalesces segment lists after reading.
func WithCoalesce() Option {
	return func(o *Options) { o.Coalesce = true }
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var extensions = map[string]string{
	".txt":  FormatSegwizard,
	".dat":  FormatSegwizard,
	".json": FormatJSON,
	".seg":  FormatGob,
	".gob":  FormatGob,
}

// resolveFormat picks the codec from the explicit option or the target's
// extension.
func resolveFormat(target string, o Options) (string, error) {
	if o.Format != "" {
		switch o.Format {
		case FormatSegwizard, FormatJSON, FormatGob:
			return o.Format, nil
		}
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, o.Format)
	}

	ext := strings.ToLower(filepath.Ext(target))
	if format, ok := extensions[ext]; ok {
		return format, nil
	}
	return "", fmt.Errorf("%w: cannot identify format for %q", ErrUnknownFormat, target)
}

// WriteList writes a segment list to target.
func WriteList(l segments.List, target string, opts ...Option) error {
	o := buildOptions(opts)
	format, err := resolveFormat(target, o)
	if err != nil {
		return err
	}

	switch format {
	case FormatSegwizard:
		return writeFile(target, o, func(w io.Writer) error {
			return writeSegwizard(w, l)
		})
	case FormatJSON:
		return writeFile(target, o, func(w io.Writer) error {
			return writeJSONList(w, l)
		})
	default:
		return containerWriteList(target, o, l)
	}
}

// ReadList reads a segment list from source.
func ReadList(source string, opts ...Option) (segments.List, error) {
	o := buildOptions(opts)
	format, err := resolveFormat(source, o)
	if err != nil {
		return nil, err
	}

	var l segments.List
	switch format {
	case FormatSegwizard:
		err = readFile(source, func(r io.Reader) error {
			l, err = readSegwizard(r)
			return err
		})
	case FormatJSON:
		err = readFile(source, func(r io.Reader) error {
			l, err = readJSONList(r)
			return err
		})
	default:
		l, err = containerReadList(source, o)
	}
	if err != nil {
		return nil, err
	}

	if o.Coalesce {
		l.Coalesce()
	}
	return l, nil
}

// WriteFlag writes a flag to target. Segwizard text carries bare interval
// lists only and cannot hold a flag.
func WriteFlag(f *flags.Flag, target string, opts ...Option) error {
	o := buildOptions(opts)
	format, err := resolveFormat(target, o)
	if err != nil {
		return err
	}

	switch format {
	case FormatSegwizard:
		return fmt.Errorf("%w: flag in %s", ErrUnsupported, format)
	case FormatJSON:
		return writeFile(target, o, func(w io.Writer) error {
			return writeJSONFlag(w, f)
		})
	default:
		return containerWriteFlag(target, o, f)
	}
}

// ReadFlag reads a flag from source.
func ReadFlag(source string, opts ...Option) (*flags.Flag, error) {
	o := buildOptions(opts)
	format, err := resolveFormat(source, o)
	if err != nil {
		return nil, err
	}

	var f *flags.Flag
	switch format {
	case FormatSegwizard:
		return nil, fmt.Errorf("%w: flag in %s", ErrUnsupported, format)
	case FormatJSON:
		err = readFile(source, func(r io.Reader) error {
			f, err = readJSONFlag(r)
			return err
		})
	default:
		f, err = containerReadFlag(source, o)
	}
	if err != nil {
		return nil, err
	}

	if o.Coalesce {
		f.Known.Coalesce()
		f.Active.Coalesce()
	}
	return f, nil
}

// WriteDict writes a flag dictionary to target.
func WriteDict(d flags.Dict, target string, opts ...Option) error {
	o := buildOptions(opts)
	format, err := resolveFormat(target, o)
	if err != nil {
		return err
	}

	switch format {
	case FormatSegwizard:
		return fmt.Errorf("%w: dict in %s", ErrUnsupported, format)
	case FormatJSON:
		return writeFile(target, o, func(w io.Writer) error {
			return writeJSONDict(w, d)
		})
	default:
		return containerWriteDict(target, o, d)
	}
}

// ReadDict reads a flag dictionary from source.
func ReadDict(source string, opts ...Option) (flags.Dict, error) {
	o := buildOptions(opts)
	format, err := resolveFormat(source, o)
	if err != nil {
		return nil, err
	}

	var d flags.Dict
	switch format {
	case FormatSegwizard:
		return nil, fmt.Errorf("%w: dict in %s", ErrUnsupported, format)
	case FormatJSON:
		err = readFile(source, func(r io.Reader) error {
			d, err = readJSONDict(r)
			return err
		})
	default:
		d, err = containerReadDict(source, o)
	}
	if err != nil {
		return nil, err
	}

	if o.Coalesce {
		for _, f := range d {
			f.Known.Coalesce()
			f.Active.Coalesce()
		}
	}
	return d, nil
}

// writeFile creates target and streams the payload into it, honoring the
// overwrite option.
func writeFile(target string, o Options, write func(io.Writer) error) error {
	if !o.Overwrite {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, target)
		}
	}

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readFile(source string, read func(io.Reader) error) error {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", source, err)
	}
	defer f.Close()
	return read(f)
}
