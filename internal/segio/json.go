package segio

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
)

// flagDoc is the JSON shape of a flag. Times serialize as exact decimal
// seconds via segments.Time.
type flagDoc struct {
	Name        string         `json:"name,omitempty"`
	Known       segments.List  `json:"known"`
	Active      segments.List  `json:"active"`
	Padding     *flags.Padding `json:"padding,omitempty"`
	Category    int            `json:"category,omitempty"`
	IsGood      bool           `json:"isgood,omitempty"`
	Description string         `json:"description,omitempty"`
}

type dictDoc struct {
	Flags map[string]flagDoc `json:"flags"`
}

func flagToDoc(f *flags.Flag) flagDoc {
	doc := flagDoc{
		Name:        f.Name,
		Known:       f.Known,
		Active:      f.Active,
		Category:    f.Category,
		IsGood:      f.IsGood,
		Description: f.Description,
	}
	if !f.Padding.IsZero() {
		p := f.Padding
		doc.Padding = &p
	}
	return doc
}

func docToFlag(doc flagDoc) *flags.Flag {
	f := flags.New(doc.Name, doc.Known, doc.Active)
	if doc.Padding != nil {
		f.Padding = *doc.Padding
	}
	f.Category = doc.Category
	f.IsGood = doc.IsGood
	f.Description = doc.Description
	return f
}

func writeJSONList(w io.Writer, l segments.List) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("failed to encode segment list: %w", err)
	}
	return nil
}

func readJSONList(r io.Reader) (segments.List, error) {
	var l segments.List
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("failed to decode segment list: %w", err)
	}
	return l, nil
}

func writeJSONFlag(w io.Writer, f *flags.Flag) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(flagToDoc(f)); err != nil {
		return fmt.Errorf("failed to encode flag: %w", err)
	}
	return nil
}

func readJSONFlag(r io.Reader) (*flags.Flag, error) {
	var doc flagDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode flag: %w", err)
	}
	return docToFlag(doc), nil
}

func writeJSONDict(w io.Writer, d flags.Dict) error {
	doc := dictDoc{Flags: make(map[string]flagDoc, len(d))}
	for name, f := range d {
		doc.Flags[name] = flagToDoc(f)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode flag dict: %w", err)
	}
	return nil
}

func readJSONDict(r io.Reader) (flags.Dict, error) {
	var doc dictDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode flag dict: %w", err)
	}

	d := make(flags.Dict, len(doc.Flags))
	for name, fd := range doc.Flags {
		if fd.Name == "" {
			fd.Name = name
		}
		d[name] = docToFlag(fd)
	}
	return d, nil
}
