package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
)

const defaultRoot = "~/.wafflebot"

// GetWorkDir resolves and creates a directory under root, the data dir by default.
func GetWorkDir(root string, path ...string) string {
	if root == "" {
		root = defaultRoot
	}
	parts := append([]string{root}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		log.Fatalln(err)
	}
	if err = os.MkdirAll(workDir, 0o750); err != nil {
		log.Fatalln(err)
	}
	log.WithField("path", workDir).Debug("work dir ready")
	return workDir
}
