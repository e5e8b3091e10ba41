package desktop

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/toasts-app/toasts/internal/notification"
)

const (
	// DefaultPace is the gap kept between two notifications so the user has
	// time to read each one.
	DefaultPace = 3 * time.Second

	// ErrorTitle is the title of standalone error notifications.
	ErrorTitle = "An error occurred in Toasts"

	errorIcon = "error"
)

// themeIcons maps logical icon names to freedesktop icon-theme names, used
// when no icon file is found.
var themeIcons = map[string]string{
	errorIcon: "dialog-error",
}

// Options configures a Notifier.
type Options struct {
	// Timeout is the on-screen duration passed to the backend.
	Timeout time.Duration

	// Pace is the minimum gap between two notifications. Zero means
	// DefaultPace; negative disables pacing.
	Pace time.Duration

	// IconsDir optionally holds <icon>.png files.
	IconsDir string

	Logger zerolog.Logger
}

// Notifier is the display sink. Show and ShowError block until the pacing
// gap since the previous notification has passed, then hand the message to
// the backend.
//
// Notifier is not safe for concurrent use; the poll loop is its only caller.
type Notifier struct {
	backend Backend
	opts    Options
	limiter *rate.Limiter
}

// New returns a Notifier delivering through backend.
func New(backend Backend, opts Options) *Notifier {
	limit := rate.Inf
	switch {
	case opts.Pace == 0:
		limit = rate.Every(DefaultPace)
	case opts.Pace > 0:
		limit = rate.Every(opts.Pace)
	}
	return &Notifier{
		backend: backend,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Show displays rec, using its source as the icon.
func (n *Notifier) Show(ctx context.Context, rec notification.Record) error {
	return n.show(ctx, rec.Title, rec.Body, rec.Source)
}

// ShowError displays a standalone error notification.
func (n *Notifier) ShowError(ctx context.Context, msg string) error {
	return n.show(ctx, ErrorTitle, msg, errorIcon)
}

func (n *Notifier) show(ctx context.Context, title, body, icon string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("desktop: wait for display slot: %w", err)
	}
	m := Message{
		Title:   title,
		Body:    body,
		Icon:    n.resolveIcon(icon),
		Timeout: n.opts.Timeout,
	}
	if err := n.backend.Notify(m); err != nil {
		return fmt.Errorf("desktop: notify %q: %w", title, err)
	}
	n.opts.Logger.Debug().Str("title", title).Str("icon", m.Icon).Msg("desktop: notification shown")
	return nil
}

// resolveIcon returns <IconsDir>/<name>.png when that file exists, otherwise
// a theme icon name.
func (n *Notifier) resolveIcon(name string) string {
	if n.opts.IconsDir != "" {
		p := filepath.Join(n.opts.IconsDir, name+".png")
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	if themed, ok := themeIcons[name]; ok {
		return themed
	}
	return name
}

// Close releases the backend if it holds resources.
func (n *Notifier) Close() error {
	if c, ok := n.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
