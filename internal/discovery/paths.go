package discovery

import (
	"context"
	"io/fs"
	"strings"

	"github.com/charlievieth/fastwalk"
	"github.com/ensigniasec/render-vtps/internal/validate"
	"github.com/sirupsen/logrus"
)

//nolint:gochecknoglobals // immutable lookup table used across the package.
var skipDirs = []string{
	".git",
	"__pycache__",
	"processor0",
}

func isSkippedDir(name string) bool {
	for _, s := range skipDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// streamMeshFiles walks a time directory and streams mesh file paths over a
// channel. The channel is closed when walking completes or the context is canceled.
const streamBufferSize = 64

func streamMeshFiles(ctx context.Context, root string) <-chan string {
	out := make(chan string, streamBufferSize)
	go func() {
		defer close(out)
		log := logrus.WithField("root", root)
		conf := fastwalk.DefaultConfig
		err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.WithField("path", path).Debugf("Skipping unreadable entry: %v", err)
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if d.IsDir() {
				if path != root && isSkippedDir(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if validate.IsMeshFile(d.Name()) {
				select {
				case out <- path:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			log.Debugf("Walk stopped early: %v", err)
		}
	}()
	return out
}
