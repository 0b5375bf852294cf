package filters

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/iamwavecut/wafflebot/internal/adapters"
	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/db"
)

type Downloader interface {
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

type NSFW struct {
	enforcer
	downloader Downloader
	scorer     adapters.ImageScorer
	settings   Settings[db.NSFW]
	tempDir    string
}

func NewNSFW(scorer adapters.ImageScorer, downloader Downloader, settings Settings[db.NSFW], deleter bot.Deleter, punisher Punisher) *NSFW {
	return &NSFW{
		enforcer:   enforcer{deleter: deleter, punisher: punisher},
		downloader: downloader,
		scorer:     scorer,
		settings:   settings,
		tempDir:    os.TempDir(),
	}
}

// WithTempDir places downloaded photos under dir instead of the system temp dir.
func (f *NSFW) WithTempDir(dir string) *NSFW {
	if dir != "" {
		f.tempDir = dir
	}
	return f
}

func (f *NSFW) Name() string { return "nsfw" }

func (f *NSFW) Check(ctx context.Context, msg *bot.Message) (bool, error) {
	if f.scorer == nil || len(msg.Photo) == 0 {
		return false, nil
	}
	cfg := f.settings.Get(ctx, msg.Chat.ID, db.CategoryNone)
	if !cfg.Enable {
		return false, nil
	}
	photo := bot.LargestPhoto(msg)

	score, err := f.score(ctx, photo.FileID)
	if err != nil {
		return false, err
	}
	if score*100 < float64(cfg.Percent) {
		return false, nil
	}
	f.enforce(ctx, msg, cfg.Punishment, cfg.Text)
	return true, nil
}

func (f *NSFW) score(ctx context.Context, fileID string) (float64, error) {
	path := filepath.Join(f.tempDir, "wafflebot-"+uuid.New()+".jpg")
	defer os.Remove(path)

	file, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create temp file")
	}
	err = f.downloader.DownloadFile(ctx, fileID, file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, errors.Wrap(err, "download photo")
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "read photo")
	}
	score, err := f.scorer.ScoreImage(ctx, image, "image/jpeg")
	if err != nil {
		return 0, errors.WithMessage(err, "score photo")
	}
	return score, nil
}
