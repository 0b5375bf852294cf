package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const checkExecInterval = 5 * time.Second

// MonitorExecutable fires once the running binary is replaced on disk.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	exe, err := os.Executable()
	if err != nil {
		log.WithError(err).Warn("cant resolve executable path for monitor")
		return make(chan struct{})
	}
	return WatchFile(ctx, exe, checkExecInterval)
}

// WatchFile closes the returned channel when the file's modification time
// changes. It never fires if the file cannot be stat'ed at start.
func WatchFile(ctx context.Context, path string, interval time.Duration) <-chan struct{} {
	changed := make(chan struct{})
	entry := log.WithField("path", path)

	stat, err := os.Stat(path)
	if err != nil {
		entry.WithError(err).Warn("cant stat watched file")
		return changed
	}
	modTime := stat.ModTime()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(path)
				if err != nil {
					entry.WithError(err).Debug("cant stat watched file")
					continue
				}
				if !modTime.Equal(stat.ModTime()) {
					close(changed)
					return
				}
			}
		}
	}()
	return changed
}
