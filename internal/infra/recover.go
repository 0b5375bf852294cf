package infra

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const restartDelay = 200 * time.Millisecond

var ErrPanicLimit = errors.New("panics limit exceeded")

// Recoverable runs job and restarts it after a panic. A negative maxPanics
// restarts forever. The job's own return value ends the loop.
func Recoverable(ctx context.Context, maxPanics int, id string, job func(ctx context.Context) error) error {
	entry := log.WithField("job", id)
	for {
		panicked, err := runJob(ctx, entry, job)
		if !panicked {
			return err
		}
		if maxPanics == 0 {
			return errors.Wrap(ErrPanicLimit, id)
		}
		if maxPanics > 0 {
			maxPanics--
		}
		entry.WithField("panics_left", maxPanics).Debug("restarting job")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(restartDelay):
		}
	}
}

func runJob(ctx context.Context, entry *log.Entry, job func(ctx context.Context) error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("at", identifyPanic()).Errorf("job panics with message: %v", r)
			panicked, err = true, nil
		}
	}()
	return false, job(ctx)
}

func identifyPanic() string {
	var name, file string
	var line int
	var pc [16]uintptr

	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			break
		}
	}

	switch {
	case name != "":
		return fmt.Sprintf("%v:%v", name, line)
	case file != "":
		return fmt.Sprintf("%v:%v", file, line)
	}
	return fmt.Sprintf("pc:%x", pc)
}
