package pipeline

import (
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"yoloprep/internal/logging"
)

// tracker reports per-unit progress either as a terminal progress bar or as
// sampled log lines.
type tracker struct {
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
	logger  *slog.Logger
	phase   string
	total   int
	done    int
}

func newTracker(w io.Writer, logger *slog.Logger, total int, phase string) *tracker {
	t := &tracker{logger: logger, phase: phase, total: total}
	if w != nil && total > 0 {
		t.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(phase),
			progressbar.OptionShowCount(),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		return t
	}
	t.sampler = logging.NewProgressSampler(10)
	return t
}

func (t *tracker) step() {
	t.done++
	if t.bar != nil {
		_ = t.bar.Add(1)
		return
	}
	if t.sampler.ShouldLog(t.done, t.total, t.phase) {
		t.logger.Info("progress",
			logging.String("phase", t.phase),
			logging.Int("done", t.done),
			logging.Int("total", t.total))
	}
}

func (t *tracker) finish() {
	if t.bar != nil {
		_ = t.bar.Finish()
	}
}
