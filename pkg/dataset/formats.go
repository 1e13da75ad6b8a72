package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrUnknownFormat is returned for paths that no file store can read.
var ErrUnknownFormat = errors.New("unknown dataset format")

// FileFormat represents the on-disk dataset formats
type FileFormat int

const (
	FormatUnknown FileFormat = iota
	FormatCSV                // Semicolon separated gazetteer or columnar file
	FormatXLSX               // Excel workbook, first sheet
	FormatLevelDB            // leveldb directory of msgpack records
)

// FormatInfo contains metadata about a dataset format
type FormatInfo struct {
	Format      FileFormat
	Description string
	Extensions  []string
	Writable    bool
}

var supportedFormats = map[FileFormat]FormatInfo{
	FormatCSV: {
		Format:      FormatCSV,
		Description: "CSV Address Table",
		Extensions:  []string{".csv", ".txt"},
		Writable:    true,
	},
	FormatXLSX: {
		Format:      FormatXLSX,
		Description: "Excel Address Workbook",
		Extensions:  []string{".xlsx"},
	},
	FormatLevelDB: {
		Format:      FormatLevelDB,
		Description: "LevelDB Address Database",
		Extensions:  []string{".leveldb", ".ldb"},
		Writable:    true,
	},
}

func (f FileFormat) String() string {
	if info, ok := supportedFormats[f]; ok {
		return info.Description
	}
	return "unknown"
}

// DetectFormat works out the format of path from its shape. A directory
// holding a CURRENT file is a leveldb database; otherwise the extension
// decides, so a path that does not exist yet still has a format.
func DetectFormat(path string) (FileFormat, error) {
	if stat, err := os.Stat(path); err == nil && stat.IsDir() {
		if _, err := os.Stat(filepath.Join(path, "CURRENT")); err == nil {
			return FormatLevelDB, nil
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, info := range supportedFormats {
		for _, e := range info.Extensions {
			if ext == e {
				return info.Format, nil
			}
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// IsDataPath reports whether path exists and has a readable format.
// It is the validator handed to the path resolver.
func IsDataPath(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	format, err := DetectFormat(path)
	if err != nil {
		log.Debugf("Skipping %s: %v", path, err)
		return false
	}
	return format != FormatUnknown
}

// GetFormatInfo returns information about a specific format
func GetFormatInfo(format FileFormat) (FormatInfo, bool) {
	info, exists := supportedFormats[format]
	return info, exists
}

// ListSupportedFormats returns all supported formats in enum order
func ListSupportedFormats() []FormatInfo {
	formats := make([]FormatInfo, 0, len(supportedFormats))
	for _, info := range supportedFormats {
		formats = append(formats, info)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i].Format < formats[j].Format })
	return formats
}
