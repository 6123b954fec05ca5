package crawler

import (
	"io/fs"
	"os"
	"path/filepath"

	"jitlens/internal/lang"
)

// Crawler scans source roots for files that have a registered language
// adapter.
type Crawler struct {
	registry *lang.Registry
	ignored  []string
}

// NewCrawler creates a new crawler instance.
func NewCrawler(registry *lang.Registry) *Crawler {
	return &Crawler{
		registry: registry,
		ignored:  []string{".git", ".idea", "build", "target", "out", "node_modules"},
	}
}

// ScanRoot walks the root directory and streams every parseable source file
// to the callback. Files without an adapter and files that fail to read or
// parse are skipped; only filesystem walk errors abort the scan.
func (c *Crawler) ScanRoot(root string, onFile func(*lang.SourceFile)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		adapter, ok := c.registry.ForFile(path)
		if !ok {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			// Skip unreadable files instead of failing the whole scan.
			return nil
		}

		file, err := adapter.ParseSource(path, src)
		if err != nil {
			return nil
		}

		onFile(file)
		return nil
	})
}
