package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/ohler55/ojg/oj"
	"golang.org/x/sync/errgroup"

	"github.com/mpapenbr/racesim-core-go/log"
	"github.com/mpapenbr/racesim-core-go/pkg/archive"
	"github.com/mpapenbr/racesim-core-go/pkg/config"
	"github.com/mpapenbr/racesim-core-go/pkg/model"
	"github.com/mpapenbr/racesim-core-go/pkg/processing/frames"
	"github.com/mpapenbr/racesim-core-go/pkg/utils"
	"github.com/mpapenbr/racesim-core-go/pkg/utils/broadcast"
	"github.com/mpapenbr/racesim-core-go/pkg/utils/cache"
	"github.com/mpapenbr/racesim-core-go/pkg/utils/cache/loadercache"
)

// frameKey makes a changed archive or a changed stride a different
// cache entry.
type frameKey struct {
	Fingerprint string
	SampleRate  int
}

// replayTask owns the session registry and the derived-data caches of
// one replay invocation. Frames and outlines are built once per key and
// reused across playback passes until the watcher invalidates them.
type replayTask struct {
	loader   *archive.Loader
	registry *utils.SessionLookup[*archive.Session]
	frames   cache.Cache[frameKey, []*model.Frame]
	outlines cache.Cache[string, model.TrackOutline]
	l        *log.Logger
}

func newReplayTask(staleDuration time.Duration) *replayTask {
	ret := &replayTask{
		loader: archive.NewLoader(),
		registry: utils.NewSessionLookup[*archive.Session](
			utils.WithStaleDuration[*archive.Session](staleDuration)),
		l: log.Default().Named("replay"),
	}
	ret.frames = loadercache.New(loadercache.WithLoader(ret.loadFrames))
	ret.outlines = loadercache.New(loadercache.WithLoader(ret.loadOutline))
	return ret
}

func (t *replayTask) session(ctx context.Context) (*archive.Session, error) {
	if ret, err := t.registry.Get(config.Archive); err == nil {
		return ret, nil
	}
	ret, err := t.loader.Load(ctx, config.Archive)
	if err != nil {
		return nil, err
	}
	t.registry.Add(config.Archive, ret)
	return ret, nil
}

// invalidate is the watch callback. The next playback pass reloads the
// archive and rebuilds frames and outline.
func (t *replayTask) invalidate(path string) {
	t.l.Info("invalidating cached data", log.String("path", path))
	t.registry.Clear()
	t.frames.InvalidateAll(context.Background())
	t.outlines.InvalidateAll(context.Background())
}

func (t *replayTask) loadFrames(ctx context.Context, key frameKey) (*[]*model.Frame, error) {
	session, err := t.session(ctx)
	if err != nil {
		return nil, err
	}
	ret, err := frames.NewPreprocessor(
		frames.WithSampleRate(key.SampleRate),
	).Process(session.Telemetry, session.Entities)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// loadOutline normalizes the raw outline with the session transform so
// it matches the frame coordinates.
func (t *replayTask) loadOutline(ctx context.Context, venueID string) (*model.TrackOutline, error) {
	session, err := t.session(ctx)
	if err != nil {
		return nil, err
	}
	if session.Outline == nil {
		return nil, fmt.Errorf("no outline for venue %s", venueID)
	}
	transform := frames.NewPreprocessor().Transform(session.Telemetry)
	return transform.ApplyOutline(session.Outline), nil
}

//nolint:funlen // by design
func (t *replayTask) playOnce(ctx context.Context) error {
	session, err := t.session(ctx)
	if err != nil {
		return err
	}
	framesPtr, err := t.frames.Get(ctx, frameKey{
		Fingerprint: session.Fingerprint,
		SampleRate:  config.SampleRate,
	})
	if err != nil {
		return err
	}
	frameSeq := *framesPtr

	if session.Outline != nil {
		outline, outlineErr := t.outlines.Get(ctx, session.VenueID)
		if outlineErr != nil {
			t.l.Warn("could not build track outline", log.ErrorField(outlineErr))
		} else {
			t.l.Info("track outline ready",
				log.String("venue", outline.VenueID),
				log.Int("points", len(outline.Points)))
		}
	}

	source := make(chan *model.Frame)
	server := broadcast.NewBroadcastServer(session.SessionID, "frames", source)
	defer server.Close()

	g := errgroup.Group{}
	statsCh := server.Subscribe()
	g.Go(func() error {
		t.consumeStats(statsCh, session.SessionID)
		return nil
	})
	if appConfig.PrintFrames {
		printCh := server.Subscribe()
		g.Go(func() error {
			t.printFrames(printCh)
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(config.FPS))
	defer ticker.Stop()
	t.l.Info("starting playback",
		log.String("session", session.SessionID),
		log.Int("frames", len(frameSeq)),
		log.Int("fps", config.FPS))
loop:
	for _, frame := range frameSeq {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			source <- frame
		}
	}
	close(source)
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	t.l.Info("playback finished", log.String("session", session.SessionID))
	return nil
}

func (t *replayTask) consumeStats(ch <-chan *model.Frame, sessionID string) {
	count := 0
	lastIdx := -1
	for frame := range ch {
		count++
		lastIdx = frame.Index
	}
	t.l.Info("playback stats",
		log.String("session", sessionID),
		log.Int("received", count),
		log.Int("lastIndex", lastIdx))
}

func (t *replayTask) printFrames(ch <-chan *model.Frame) {
	for frame := range ch {
		t.l.Debug("frame",
			log.Int("index", frame.Index),
			log.String("data", oj.JSON(frame)))
	}
}
