package models

import (
	"path"
	"strings"
)

// Extension is the canonical record kept for every ranked add-on.
//
// The importer creates it, the locale analyzer fills Locales in place and
// the exporter only reads it. Field order is the JSON key order on disk.
type Extension struct {
	Ranking           int      `json:"ranking"`             // 1-based position in the ranking source
	Slug              string   `json:"slug"`                // lookup key in the ranking source (the GUID)
	Version           string   `json:"version"`             // current published version
	XPIURL            string   `json:"xpi_url"`             // package URL for Version
	Name              string   `json:"name"`                // en-US display name, GUID when absent
	AverageDailyUsers int64    `json:"average_daily_users"` // refreshed from the registry at import
	LocalFolder       string   `json:"local_folder"`        // extraction directory under the cache
	Locales           []string `json:"locales,omitzero"`    // nil until analyzed
}

// PackageFileName is the last path segment of the package URL.
func (e Extension) PackageFileName() string {
	return PackageFileName(e.XPIURL)
}

// PackageFileName returns the last path segment of rawURL, ignoring any
// query string or fragment.
func PackageFileName(rawURL string) string {
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if u == "" {
		return ""
	}
	return path.Base(u)
}

// LocalFolderName derives the extraction folder from a package URL:
// the file name without its .xpi suffix, with '-' and '.' turned into '_'.
func LocalFolderName(rawURL string) string {
	name := strings.TrimSuffix(PackageFileName(rawURL), ".xpi")
	return strings.NewReplacer("-", "_", ".", "_").Replace(name)
}
