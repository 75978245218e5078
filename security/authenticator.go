package security

import (
	"context"
	"time"

	"github.com/goliatone/go-buildhook/core"
	glog "github.com/goliatone/go-logger/glog"
)

// TimestampAuthConfig is the shared secret material of the authenticator.
// It is copied at construction and never mutated afterwards.
type TimestampAuthConfig struct {
	Key    []byte
	IV     []byte
	Window time.Duration
	Now    func() time.Time
	Logger glog.Logger
}

// TimestampAuthenticator accepts requests whose encrypted timestamp is within
// the freshness window of the local clock. Replays inside the window are not
// detected.
type TimestampAuthenticator struct {
	key    []byte
	iv     []byte
	window time.Duration
	now    func() time.Time
	logger glog.Logger
}

func NewTimestampAuthenticator(cfg TimestampAuthConfig) (*TimestampAuthenticator, error) {
	if _, err := newBlock(cfg.Key, cfg.IV); err != nil {
		return nil, err
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Duration(core.DefaultFreshnessWindowMillis) * time.Millisecond
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TimestampAuthenticator{
		key:    append([]byte(nil), cfg.Key...),
		iv:     append([]byte(nil), cfg.IV...),
		window: window,
		now:    now,
		logger: glog.Ensure(cfg.Logger),
	}, nil
}

// NewTimestampAuthenticatorFromConfig builds the authenticator from the auth
// section of the service config.
func NewTimestampAuthenticatorFromConfig(cfg core.AuthConfig, logger glog.Logger) (*TimestampAuthenticator, error) {
	return NewTimestampAuthenticator(TimestampAuthConfig{
		Key:    []byte(cfg.SecretKey),
		IV:     []byte(cfg.IV),
		Window: cfg.FreshnessWindow(),
		Logger: logger,
	})
}

func (a *TimestampAuthenticator) Authenticate(ctx context.Context, req core.InboundRequest) error {
	if a == nil {
		return core.InternalError("security: authenticator is nil")
	}
	token := core.HeaderValue(req.Headers, core.HeaderEncryptedTimestamp)
	if token == "" {
		return core.MissingCredentialError(core.HeaderEncryptedTimestamp)
	}

	millis, err := DecryptTimestamp(a.key, a.iv, token)
	if err != nil {
		a.logger.WithContext(ctx).Warn("timestamp credential rejected", "cause", err.Error())
		return core.InvalidCredentialError()
	}

	skew := a.now().Sub(time.UnixMilli(millis))
	if skew < 0 {
		skew = -skew
	}
	if skew > a.window {
		return core.StaleOrFutureRequestError(skew, a.window)
	}
	return nil
}

func (a *TimestampAuthenticator) Window() time.Duration {
	if a == nil {
		return 0
	}
	return a.window
}

var _ core.Authenticator = (*TimestampAuthenticator)(nil)
