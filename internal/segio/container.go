package segio

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segments"
)

// DefaultPath is the entry name used when no path option is given.
const DefaultPath = "segments"

// Container wire types. Segments are flattened to endpoint pairs because
// gob cannot see unexported fields.

type gobSegment struct {
	Start segments.Time
	End   segments.Time
}

type gobFlag struct {
	Name        string
	Known       []gobSegment
	Active      []gobSegment
	PadPre      segments.Time
	PadPost     segments.Time
	Category    int
	IsGood      bool
	Description string
}

type gobEntry struct {
	Kind string // "list", "flag", "dict"
	List []gobSegment
	Flag gobFlag
	Dict map[string]gobFlag
}

type gobContainer struct {
	Entries map[string]gobEntry
}

func listToGob(l segments.List) []gobSegment {
	out := make([]gobSegment, 0, len(l))
	for _, s := range l {
		out = append(out, gobSegment{Start: s.Start(), End: s.End()})
	}
	return out
}

func gobToList(gs []gobSegment) segments.List {
	out := make(segments.List, 0, len(gs))
	for _, g := range gs {
		out = append(out, segments.NewSegment(g.Start, g.End))
	}
	return out
}

func flagToGob(f *flags.Flag) gobFlag {
	return gobFlag{
		Name:        f.Name,
		Known:       listToGob(f.Known),
		Active:      listToGob(f.Active),
		PadPre:      f.Padding.Pre,
		PadPost:     f.Padding.Post,
		Category:    f.Category,
		IsGood:      f.IsGood,
		Description: f.Description,
	}
}

func gobToFlag(g gobFlag) *flags.Flag {
	f := flags.New(g.Name, gobToList(g.Known), gobToList(g.Active))
	f.Padding = flags.Padding{Pre: g.PadPre, Post: g.PadPost}
	f.Category = g.Category
	f.IsGood = g.IsGood
	f.Description = g.Description
	return f
}

// loadContainer reads an existing container file, or returns an empty one
// when the file does not exist.
func loadContainer(target string) (*gobContainer, error) {
	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return &gobContainer{Entries: make(map[string]gobEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open container %s: %w", target, err)
	}
	defer f.Close()

	var c gobContainer
	if err := gob.NewDecoder(f).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode container %s: %w", target, err)
	}
	if c.Entries == nil {
		c.Entries = make(map[string]gobEntry)
	}
	return &c, nil
}

func saveContainer(target string, c *gobContainer) error {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create container %s: %w", target, err)
	}

	if err := gob.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode container %s: %w", target, err)
	}
	return f.Close()
}

// containerSet merges one entry into the container file. Existing entries
// at the same path are only replaced when overwrite is set; other entries
// in the file are preserved.
func containerSet(target string, o Options, entry gobEntry) error {
	c, err := loadContainer(target)
	if err != nil {
		return err
	}

	path := o.Path
	if path == "" {
		path = DefaultPath
	}

	if _, exists := c.Entries[path]; exists && !o.Overwrite {
		return fmt.Errorf("%w: %s:%s", ErrExists, target, path)
	}

	c.Entries[path] = entry
	return saveContainer(target, c)
}

func containerGet(source string, o Options) (gobEntry, error) {
	c, err := loadContainer(source)
	if err != nil {
		return gobEntry{}, err
	}

	path := o.Path
	if path == "" {
		path = DefaultPath
		// with exactly one entry, an unqualified read means that entry
		if len(c.Entries) == 1 {
			for p := range c.Entries {
				path = p
			}
		}
	}

	entry, ok := c.Entries[path]
	if !ok {
		return gobEntry{}, fmt.Errorf("no entry %q in container %s", path, source)
	}
	return entry, nil
}

func containerWriteList(target string, o Options, l segments.List) error {
	return containerSet(target, o, gobEntry{Kind: "list", List: listToGob(l)})
}

func containerReadList(source string, o Options) (segments.List, error) {
	entry, err := containerGet(source, o)
	if err != nil {
		return nil, err
	}
	if entry.Kind != "list" {
		return nil, fmt.Errorf("%w: entry holds a %s, not a list", ErrUnsupported, entry.Kind)
	}
	return gobToList(entry.List), nil
}

func containerWriteFlag(target string, o Options, f *flags.Flag) error {
	return containerSet(target, o, gobEntry{Kind: "flag", Flag: flagToGob(f)})
}

func containerReadFlag(source string, o Options) (*flags.Flag, error) {
	entry, err := containerGet(source, o)
	if err != nil {
		return nil, err
	}
	if entry.Kind != "flag" {
		return nil, fmt.Errorf("%w: entry holds a %s, not a flag", ErrUnsupported, entry.Kind)
	}
	return gobToFlag(entry.Flag), nil
}

func containerWriteDict(target string, o Options, d flags.Dict) error {
	entry := gobEntry{Kind: "dict", Dict: make(map[string]gobFlag, len(d))}
	for name, f := range d {
		entry.Dict[name] = flagToGob(f)
	}
	return containerSet(target, o, entry)
}

func containerReadDict(source string, o Options) (flags.Dict, error) {
	entry, err := containerGet(source, o)
	if err != nil {
		return nil, err
	}
	if entry.Kind != "dict" {
		return nil, fmt.Errorf("%w: entry holds a %s, not a dict", ErrUnsupported, entry.Kind)
	}

	d := make(flags.Dict, len(entry.Dict))
	for name, g := range entry.Dict {
		d[name] = gobToFlag(g)
	}
	return d, nil
}
