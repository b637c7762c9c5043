package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoFiles is returned by Latest when a directory holds no matching file.
var ErrNoFiles = errors.New("no matching files")

// DefaultExtensions are the sales export formats the loader reads.
var DefaultExtensions = []string{".csv", ".xlsx"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds sales exports in a directory. Relative directories are
// resolved against basePath.
type Discovery struct {
	basePath   string
	extensions []string
}

// NewDiscovery creates a discovery for the given extensions, matched
// case-insensitively. No extensions means DefaultExtensions.
func NewDiscovery(basePath string, extensions ...string) *Discovery {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}
	return &Discovery{basePath: basePath, extensions: exts}
}

// Find lists the matching files in dir, oldest first. Subdirectories, hidden
// files and Excel lock files (~$name.xlsx) are skipped.
func (d *Discovery) Find(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) && d.basePath != "" {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if !d.matches(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// Latest returns the most recently modified matching file in dir.
func (d *Discovery) Latest(dir string) (FileInfo, error) {
	found, err := d.Find(dir)
	if err != nil {
		return FileInfo{}, err
	}
	latest, ok := GetLatestFile(found)
	if !ok {
		return FileInfo{}, fmt.Errorf("%w in %s (want %s)", ErrNoFiles, dir, strings.Join(d.extensions, ", "))
	}
	return latest, nil
}

func (d *Discovery) matches(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range d.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// GetLatestFile returns the most recently modified file from a list. Ties go
// to the later entry.
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if !file.ModTime.Before(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
