package flags

import (
	"regexp"
	"strconv"
	"strings"
)

// NoVersion marks a flag name without a version token. Version 0 is a
// legal version, so the sentinel must be out of band.
const NoVersion = -1

var (
	reIfoTagVersion = regexp.MustCompile(`^([A-Z][0-9]):([^:]+):([0-9]+)$`)
	reIfoTag        = regexp.MustCompile(`^([A-Z][0-9]):([^:]+)$`)
	reTagVersion    = regexp.MustCompile(`^([^:]+):([0-9]+)$`)
)

// ParsedName holds the components of a flag name of the form
// "ifo:tag:version". Unparsable names keep the raw string with every
// component unset.
type ParsedName struct {
	IFO     string
	Tag     string
	Version int
}

// ParseName splits a flag name into ifo, tag, and version components.
// Names that match none of the recognized shapes parse to the zero
// components without error; the raw name stays usable as an opaque key.
func ParseName(name string) ParsedName {
	p := ParsedName{Version: NoVersion}
	if name == "" {
		return p
	}

	if m := reIfoTagVersion.FindStringSubmatch(name); m != nil {
		p.IFO = m[1]
		p.Tag = m[2]
		p.Version, _ = strconv.Atoi(m[3])
		return p
	}
	if m := reIfoTag.FindStringSubmatch(name); m != nil {
		p.IFO = m[1]
		p.Tag = m[2]
		return p
	}
	if m := reTagVersion.FindStringSubmatch(name); m != nil {
		p.Tag = m[1]
		p.Version, _ = strconv.Atoi(m[2])
		return p
	}
	return p
}

// VersionlessName strips a trailing ":version" token, if present.
func VersionlessName(name string) string {
	p := ParseName(name)
	if p.Version == NoVersion {
		return name
	}
	return name[:strings.LastIndex(name, ":")]
}

// TexName escapes underscores in a name for TeX rendering.
func TexName(name string) string {
	return strings.ReplaceAll(name, "_", `\_`)
}
