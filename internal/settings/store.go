package settings

import (
	"context"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/wafflebot/internal/db"
)

type preloader interface {
	Feature() db.Feature
	Preload(ctx context.Context) (int, error)
}

// Store groups the typed repositories of every feature.
type Store struct {
	Antiflood     *Repository[db.Antiflood]
	TLinks        *Repository[db.TLinks]
	Forward       *Repository[db.OriginPolicy]
	Quotes        *Repository[db.OriginPolicy]
	Links         *Repository[db.Links]
	Blocks        *Repository[db.Blocks]
	NSFW          *Repository[db.NSFW]
	Warns         *Repository[db.Warns]
	Meeting       *Repository[db.Meeting]
	Captcha       *Repository[db.Captcha]
	Moderation    *Repository[db.Moderation]
	Reports       *Repository[db.Reports]
	Rules         *Repository[db.Rules]
	BlockChannels *Repository[db.BlockChannels]
}

func plain[T any](f func() T) func(db.Category) T {
	return func(db.Category) T { return f() }
}

func NewStore(storage Storage, cache Cache) *Store {
	return &Store{
		Antiflood:     NewRepository(db.FeatureAntiflood, plain(db.DefaultAntiflood), storage, cache),
		TLinks:        NewRepository(db.FeatureTLinks, plain(db.DefaultTLinks), storage, cache),
		Forward:       NewRepository(db.FeatureForward, plain(db.DefaultOriginPolicy), storage, cache),
		Quotes:        NewRepository(db.FeatureQuotes, plain(db.DefaultOriginPolicy), storage, cache),
		Links:         NewRepository(db.FeatureLinks, plain(db.DefaultLinks), storage, cache),
		Blocks:        NewRepository(db.FeatureBlocks, plain(db.DefaultBlocks), storage, cache),
		NSFW:          NewRepository(db.FeatureNSFW, plain(db.DefaultNSFW), storage, cache),
		Warns:         NewRepository(db.FeatureWarns, plain(db.DefaultWarns), storage, cache),
		Meeting:       NewRepository(db.FeatureMeeting, plain(db.DefaultMeeting), storage, cache),
		Captcha:       NewRepository(db.FeatureCaptcha, plain(db.DefaultCaptcha), storage, cache),
		Moderation:    NewRepository(db.FeatureModeration, db.DefaultModeration, storage, cache),
		Reports:       NewRepository(db.FeatureReports, plain(db.DefaultReports), storage, cache),
		Rules:         NewRepository(db.FeatureRules, plain(db.DefaultRules), storage, cache),
		BlockChannels: NewRepository(db.FeatureBlockChannels, plain(db.DefaultBlockChannels), storage, cache),
	}
}

func (s *Store) repositories() []preloader {
	return []preloader{
		s.Antiflood, s.TLinks, s.Forward, s.Quotes, s.Links, s.Blocks, s.NSFW,
		s.Warns, s.Meeting, s.Captcha, s.Moderation, s.Reports, s.Rules, s.BlockChannels,
	}
}

// Preload warms every repository concurrently.
func (s *Store) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, repo := range s.repositories() {
		g.Go(func() error {
			n, err := repo.Preload(ctx)
			if err != nil {
				return err
			}
			log.WithField("object", "settings").WithField("feature", string(repo.Feature())).Debugf("preloaded %d rows", n)
			return nil
		})
	}
	return g.Wait()
}
