package cli

import (
	"path"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/observingclouds/ecgofs/ecfs"
)

// A long listing line looks like ls -l output:
//
//	-rw-r-----   1 user group     1024 Jan 01 12:00 data.nc
//
// Recursive listings additionally contain directory headers ("/arch/sub:")
// and per-directory "total" summary lines, both of which carry no entry.
const longListingFields = 9

// entryType returns whether the mode string describes a directory.
// Besides the usual 'd', the archive emits the undocumented 'o' for
// offline (tape-only) files; those are plain files to us.
func entryType(perms string) bool {
	return strings.HasPrefix(perms, "d")
}

// parseLongListing turns els -l output into entries.
// `base` is the listed path; relative names are resolved against it,
// or against the most recent directory header in recursive output.
func parseLongListing(out, base string) []ecfs.Entry {
	entries := []ecfs.Entry{}
	currentDir := ""

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total") {
			continue
		}

		if strings.HasPrefix(line, "/") && strings.HasSuffix(line, ":") {
			currentDir = strings.TrimSuffix(line, ":")
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < longListingFields {
			log.Debugf("skipping unparseable listing line: %s", line)
			continue
		}

		size, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			// Directories sometimes report odd sizes; keep the entry.
			size = 0
		}

		name := strings.Join(fields[longListingFields-1:], " ")

		entryPath := name
		switch {
		case strings.HasPrefix(name, "/"):
			// Already absolute (els echoes absolute arguments).
		case currentDir != "":
			entryPath = path.Join(currentDir, name)
		default:
			entryPath = path.Join(base, name)
		}

		entries = append(entries, ecfs.Entry{
			Path:  entryPath,
			Size:  size,
			Owner: fields[2],
			Group: fields[3],
			Perms: fields[0],
			IsDir: entryType(fields[0]),
		})
	}

	return entries
}
