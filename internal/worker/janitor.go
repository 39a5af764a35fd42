package worker

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"
)

// CleanScratch removes stale temp_scripts subtrees under root. Renders delete
// their own temp_scripts on exit, so this only catches residue from crashed
// processes. A subtree is stale when nothing anywhere inside it has been
// written for maxAge, so an in-flight render keeps its subtree alive. Final
// chapter videos live beside temp_scripts, never inside it, and are never
// removed here: a chapter whose upload failed keeps its local file as the
// published location. Best-effort: failures are logged, never raised.
func CleanScratch(root string, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	projects, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Janitor] Could not read scratch root: %v", err)
		}
		return
	}

	for _, project := range projects {
		if !project.IsDir() {
			continue
		}
		projectPath := filepath.Join(root, project.Name())

		chapters, err := os.ReadDir(projectPath)
		if err != nil {
			continue
		}

		for _, chapter := range chapters {
			if !chapter.IsDir() {
				continue
			}
			scripts := filepath.Join(projectPath, chapter.Name(), "temp_scripts")

			newest, err := newestModTime(scripts)
			if err != nil {
				continue
			}
			if newest.Before(cutoff) {
				if err := os.RemoveAll(scripts); err != nil {
					log.Printf("[Janitor] Could not remove %s: %v", scripts, err)
					continue
				}
				removed++
			}
		}
	}

	if removed > 0 {
		log.Printf("[Janitor] Removed %d stale scratch subtrees", removed)
	}
}

// newestModTime returns the most recent mtime of any file or directory under
// path, path itself included.
func newestModTime(path string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest, err
}

// ScratchJanitor sweeps the scratch root on a fixed interval until the
// context ends. Run it on its own goroutine from main.
func ScratchJanitor(ctx context.Context, root string, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			CleanScratch(root, maxAge)
		}
	}
}
