// context.go defines the Context interface for extension access to ipfa
// internals.
//
// Separated from extension.go to isolate dependency injection concerns.
// The Context provides a controlled surface area for extensions: they get
// the IP Fabric client, the session and config without reaching into the
// root command.
//
// Design: Context uses an interface to enable testing with mock
// implementations. Extensions receive Context during Init(), not at
// construction, to support the two-phase initialisation pattern where
// extensions register before the client is available.

package extension

import (
	"context"

	"github.com/jpl-au/ipfa/internal/config"
	"github.com/jpl-au/ipfa/internal/ipf"
	"github.com/jpl-au/ipfa/internal/session"
	"go.uber.org/zap"
)

// Context provides extensions controlled access to ipfa internals.
type Context interface {
	// Client returns the IP Fabric API client.
	Client() *ipf.Client

	// Session returns the process session holding the active snapshot.
	Session() *session.Session

	// Config returns the loaded configuration.
	Config() *config.Config

	// Logger returns the process logger. Never nil.
	Logger() *zap.Logger
}

// extContext implements Context.
type extContext struct {
	client *ipf.Client
	sess   *session.Session
	cfg    *config.Config
	log    *zap.Logger
}

// NewContext creates a new extension context.
func NewContext(client *ipf.Client, sess *session.Session, cfg *config.Config, logger *zap.Logger) Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &extContext{
		client: client,
		sess:   sess,
		cfg:    cfg,
		log:    logger,
	}
}

func (c *extContext) Client() *ipf.Client       { return c.client }
func (c *extContext) Session() *session.Session { return c.sess }
func (c *extContext) Config() *config.Config    { return c.cfg }
func (c *extContext) Logger() *zap.Logger       { return c.log }

// PinSession resolves an alias held by the session to a concrete snapshot
// id, so a long-running server or chat keeps reading the same capture when
// a new snapshot is loaded underneath it. Resolution failures leave the
// alias in place and are logged.
func PinSession(ctx context.Context, c Context) {
	snap := c.Session().Snapshot()
	if !ipf.IsAlias(snap) {
		return
	}
	s, err := c.Client().ResolveSnapshot(ctx, snap)
	if err != nil {
		c.Logger().Warn("cannot resolve snapshot, keeping alias",
			zap.String("snapshot", snap), zap.Error(err))
		return
	}
	c.Session().Set(s.ID)
	c.Logger().Debug("session snapshot pinned",
		zap.String("alias", snap), zap.String("id", s.ID))
}
