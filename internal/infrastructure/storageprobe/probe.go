// Package storageprobe measures local disk usage for the queue's data
// directory.
package storageprobe

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/jbctechsolutions/medsync/internal/application/ports"
)

const bytesPerMB = 1024 * 1024

// Compile-time check that Probe implements StorageProbePort.
var _ ports.StorageProbePort = (*Probe)(nil)

// Probe reports used and available storage for a directory.
type Probe struct {
	dir string
}

// New creates a probe rooted at the given directory.
func New(dir string) *Probe {
	return &Probe{dir: dir}
}

// UsedMB returns the total size of files under the probe directory in
// megabytes. Files that disappear mid-walk are skipped.
func (p *Probe) UsedMB() (float64, error) {
	var total int64
	err := filepath.WalkDir(p.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure directory %s: %w", p.dir, err)
	}
	return float64(total) / bytesPerMB, nil
}

// AvailableMB returns the free space on the filesystem holding the probe
// directory in megabytes.
func (p *Probe) AvailableMB() (float64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(p.dir, &stat); err != nil {
		return 0, fmt.Errorf("failed to statfs %s: %w", p.dir, err)
	}
	available := uint64(stat.Bavail) * uint64(stat.Bsize)
	return float64(available) / bytesPerMB, nil
}
