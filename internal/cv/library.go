package cv

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Library manages the template image directory. Decoded luminance images
// are cached across polling cycles and invalidated when the file changes
// on disk.
type Library struct {
	dir   string
	mu    sync.Mutex
	cache map[string]*cachedTemplate
}

type cachedTemplate struct {
	gray    *image.Gray
	modTime int64
	size    int64
}

// NewLibrary creates a template library over a directory of image files
func NewLibrary(dir string) *Library {
	return &Library{
		dir:   dir,
		cache: make(map[string]*cachedTemplate),
	}
}

// Dir returns the template directory path
func (l *Library) Dir() string {
	return l.dir
}

// List returns the template image filenames in the directory, sorted for
// deterministic iteration order
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory %s: %w", l.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load returns the decoded luminance image for a template filename
func (l *Library) Load(name string) (*image.Gray, error) {
	path := filepath.Join(l.dir, name)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("template not found: %s: %w", name, err)
	}

	l.mu.Lock()
	cached, ok := l.cache[name]
	if ok && cached.modTime == info.ModTime().UnixNano() && cached.size == info.Size() {
		l.mu.Unlock()
		return cached.gray, nil
	}
	l.mu.Unlock()

	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	gray := ToGray(img)

	l.mu.Lock()
	l.cache[name] = &cachedTemplate{
		gray:    gray,
		modTime: info.ModTime().UnixNano(),
		size:    info.Size(),
	}
	l.mu.Unlock()

	return gray, nil
}

// MatchAll scores the frame against every template in the directory.
// Templates that fail to decode are skipped, not treated as batch errors.
// Results are deterministic for identical inputs.
func (l *Library) MatchAll(frame image.Image) ([]MatchResult, error) {
	names, err := l.List()
	if err != nil {
		return nil, err
	}

	grayFrame := ToGray(frame)

	results := make([]MatchResult, 0, len(names))
	for _, name := range names {
		tmpl, err := l.Load(name)
		if err != nil {
			continue // undecodable template is not an error for the batch
		}

		confidence, loc := MatchTemplate(grayFrame, tmpl)
		results = append(results, MatchResult{
			Template:   name,
			Confidence: confidence,
			Position:   loc,
		})
	}

	return results, nil
}

// Match scores the frame against a single named template
func (l *Library) Match(frame image.Image, name string) (MatchResult, error) {
	tmpl, err := l.Load(name)
	if err != nil {
		return MatchResult{}, err
	}

	confidence, loc := MatchTemplate(ToGray(frame), tmpl)
	return MatchResult{
		Template:   name,
		Confidence: confidence,
		Position:   loc,
	}, nil
}

// Invalidate drops all cached template images, forcing re-decode
func (l *Library) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*cachedTemplate)
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decode jpeg %s: %w", path, err)
		}
		return img, nil
	default:
		img, err := png.Decode(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decode png %s: %w", path, err)
		}
		return img, nil
	}
}
