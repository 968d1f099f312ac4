// Package monitor coordinates one detection pass: discover live streams,
// capture a frame per stream, run the logo matcher, and persist the results.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"logowatch/internal/config"
	"logowatch/internal/detect"
	"logowatch/internal/logging"
	"logowatch/internal/services"
	"logowatch/internal/store"
	"logowatch/internal/twitch"
)

// Platform is the capability the monitor needs from the streaming service.
type Platform interface {
	GetLiveStreams(ctx context.Context, logins []string) ([]twitch.LiveStream, error)
	GetFrame(ctx context.Context, stream twitch.LiveStream) (image.Image, error)
}

// Summary reports the outcome of one pass.
type Summary struct {
	// Checked counts the configured streamer logins the pass inspected,
	// live or not.
	Checked int
	// Live counts streams the platform reported live.
	Live int
	// Analyzed counts live streams whose frame was fetched and matched.
	Analyzed int
	// Detected counts analyzed streams where the logo was found.
	Detected int
	// Skipped counts live streams dropped because of a per-stream failure.
	Skipped int
}

// Monitor runs detection passes against the configured roster.
type Monitor struct {
	platform Platform
	matcher  *detect.Matcher
	store    *store.Store
	cfg      *config.Config
	logger   *slog.Logger
}

// New assembles a monitor from its collaborators.
func New(platform Platform, matcher *detect.Matcher, st *store.Store, cfg *config.Config, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		platform: platform,
		matcher:  matcher,
		store:    st,
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "monitor"),
	}
}

// RunCheck performs one full pass over the given streamers. Every record of
// the pass carries CheckedAt equal to now. A live-stream lookup failure
// aborts the pass; per-stream failures only skip that stream. Maintenance
// (prune, screenshot sweep, flush) runs exactly once at the end of the pass
// and its failures are reported in the returned error without voiding the
// pass results.
func (m *Monitor) RunCheck(ctx context.Context, streamers []string, now time.Time) (Summary, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := m.logger.With(logging.String("run_id", runID))

	logger.Info("starting pass", logging.Int("streamers", len(streamers)))

	live, err := m.platform.GetLiveStreams(ctx, streamers)
	if err != nil {
		return Summary{}, services.Wrap(services.ErrTransient, "monitor", "run check", "list live streams", err)
	}

	summary := Summary{Checked: len(streamers), Live: len(live)}
	if len(live) == 0 {
		logger.Info("no streams live")
		return summary, m.maintain(ctx, logger, now)
	}

	// Workers write into their own slot so the appended batch keeps the
	// platform's ordering no matter how fetches interleave.
	results := make([]*store.Record, len(live))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(m.frameConcurrency())

	for i, stream := range live {
		group.Go(func() error {
			record, err := m.checkStream(groupCtx, logger, stream, now)
			if err != nil {
				logger.Warn("skipping stream", logging.String("streamer", stream.UserLogin), logging.Error(err))
				return nil
			}
			results[i] = record
			return nil
		})
	}
	// Workers never return errors; Wait only gates completion.
	_ = group.Wait()

	batch := make([]store.Record, 0, len(results))
	for _, record := range results {
		if record == nil {
			summary.Skipped++
			continue
		}
		summary.Analyzed++
		if record.Detected {
			summary.Detected++
		}
		batch = append(batch, *record)
	}

	var errs []error
	if err := m.store.Append(ctx, batch...); err != nil {
		errs = append(errs, err)
	}
	if err := m.maintain(ctx, logger, now); err != nil {
		errs = append(errs, err)
	}

	logger.Info("pass complete",
		logging.Int("checked", summary.Checked),
		logging.Int("live", summary.Live),
		logging.Int("analyzed", summary.Analyzed),
		logging.Int("detected", summary.Detected),
		logging.Int("skipped", summary.Skipped))
	return summary, errors.Join(errs...)
}

func (m *Monitor) checkStream(ctx context.Context, logger *slog.Logger, stream twitch.LiveStream, now time.Time) (*store.Record, error) {
	ctx = services.WithStreamer(ctx, stream.UserLogin)

	frameCtx, cancel := context.WithTimeout(ctx, m.frameTimeout())
	defer cancel()

	frame, err := m.platform.GetFrame(frameCtx, stream)
	if err != nil {
		return nil, err
	}

	result, err := m.matcher.Match(frame)
	if err != nil {
		return nil, err
	}

	record := &store.Record{
		Streamer:    stream.UserLogin,
		DisplayName: displayName(stream),
		Title:       stream.Title,
		Game:        stream.GameName,
		Viewers:     stream.ViewerCount,
		CheckedAt:   now,
		Confidence:  result.Confidence,
		Detected:    result.Matched,
	}
	if !stream.StartedAt.IsZero() {
		started := stream.StartedAt
		record.StartedAt = &started
	}

	if m.cfg.Detection.Screenshots {
		path := m.screenshotPath(stream.UserLogin, now)
		annotated := detect.Annotate(frame, result)
		if err := detect.SaveJPEG(path, annotated); err != nil {
			// The detection result stands even when the artifact is lost.
			logger.Warn("screenshot write failed", logging.String("streamer", stream.UserLogin), logging.Error(err))
		} else {
			record.Screenshot = path
		}
	}

	logger.Info("stream checked",
		logging.String("streamer", stream.UserLogin),
		logging.Int("viewers", stream.ViewerCount),
		logging.String("confidence", fmt.Sprintf("%.3f", result.Confidence)),
		logging.Bool("detected", result.Matched))
	return record, nil
}

// maintain prunes expired history, removes screenshots that only expired
// records referenced, and checkpoints the database.
func (m *Monitor) maintain(ctx context.Context, logger *slog.Logger, now time.Time) error {
	var errs []error

	pruned, err := m.store.Prune(ctx, m.cfg.Retention.Days, now)
	if err != nil {
		errs = append(errs, err)
	} else {
		if pruned.Removed > 0 {
			logger.Info("pruned history", logging.Int64("removed", pruned.Removed), logging.Int("screenshots", len(pruned.Screenshots)))
		}
		for _, path := range pruned.Screenshots {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warn("screenshot removal failed", logging.String("path", path), logging.Error(err))
			}
		}
	}

	if err := m.store.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Monitor) screenshotPath(login string, now time.Time) string {
	name := fmt.Sprintf("%s_%s_detected.jpg", login, now.UTC().Format("20060102_150405"))
	return filepath.Join(m.cfg.ScreenshotsDir(), name)
}

func (m *Monitor) frameConcurrency() int {
	if m.cfg.Monitor.FrameConcurrency > 0 {
		return m.cfg.Monitor.FrameConcurrency
	}
	return 1
}

func (m *Monitor) frameTimeout() time.Duration {
	if m.cfg.Monitor.FrameTimeout > 0 {
		return time.Duration(m.cfg.Monitor.FrameTimeout) * time.Second
	}
	return 10 * time.Second
}

// displayName falls back to a title-cased login when the platform omits the
// display name.
func displayName(stream twitch.LiveStream) string {
	if stream.UserName != "" {
		return stream.UserName
	}
	return cases.Title(language.Und).String(stream.UserLogin)
}
