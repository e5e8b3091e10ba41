package desktop

import (
	"fmt"
	"runtime"
	"time"

	"github.com/esiqveland/notify"
	"github.com/gen2brain/beeep"
	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

// AppName is reported to the OS notification service.
const AppName = "toasts"

// Message is one notification as handed to a Backend.
type Message struct {
	Title string
	Body  string
	// Icon is a file path or an icon-theme name.
	Icon string
	// Timeout is how long the notification should stay on screen. Backends
	// that cannot control it leave the duration to the OS.
	Timeout time.Duration
}

// Backend delivers a Message to the OS.
type Backend interface {
	Notify(m Message) error
}

// NewBackend picks the best backend for this platform: the freedesktop D-Bus
// service on Linux when a session bus is reachable (it honours Timeout), and
// beeep everywhere else.
func NewBackend(log zerolog.Logger) Backend {
	if runtime.GOOS == "linux" {
		b, err := newDBusBackend()
		if err == nil {
			log.Debug().Msg("desktop: using d-bus notification backend")
			return b
		}
		log.Debug().Err(err).Msg("desktop: d-bus unavailable, falling back to beeep")
	}
	beeep.AppName = AppName
	return beeepBackend{}
}

// beeepBackend implements Backend with gen2brain/beeep.
type beeepBackend struct{}

func (beeepBackend) Notify(m Message) error {
	return beeep.Notify(m.Title, m.Body, m.Icon)
}

// dbusBackend implements Backend over org.freedesktop.Notifications.
type dbusBackend struct {
	conn *dbus.Conn
}

func newDBusBackend() (*dbusBackend, error) {
	conn, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	if err := conn.Auth(nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session bus auth: %w", err)
	}
	if err := conn.Hello(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session bus hello: %w", err)
	}
	return &dbusBackend{conn: conn}, nil
}

func (b *dbusBackend) Notify(m Message) error {
	n := notify.Notification{
		AppName:       AppName,
		AppIcon:       m.Icon,
		Summary:       m.Title,
		Body:          m.Body,
		Hints:         map[string]dbus.Variant{},
		ExpireTimeout: m.Timeout,
	}
	_, err := notify.SendNotification(b.conn, n)
	return err
}

// Close releases the bus connection.
func (b *dbusBackend) Close() error {
	return b.conn.Close()
}
