package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/adapters/file"
	"github.com/aretw0/arbor/internal/adapters/sqlite"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/metrics"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

// Store backends selectable with --store.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config gathers the persistent CLI flags.
type Config struct {
	Store      string
	Dir        string
	Format     string
	RedisAddr  string
	RedisPass  string
	RedisDB    int
	RedisTTL   time.Duration
	SQLitePath string
	WorkflowID string
	Debug      bool
	JSONLogs   bool

	// EncryptionKey is a hex-encoded AES-256 key. When set, documents are
	// sealed before they reach the store. FallbackKeys still open
	// documents sealed before a key rotation.
	EncryptionKey string
	FallbackKeys  []string
}

// Logger builds the application logger. Logs go to stderr so stdout stays
// clean for exports and the MCP stdio transport; without --debug only
// warnings and errors are shown.
func (c Config) Logger() *slog.Logger {
	return c.loggerTo(os.Stderr)
}

func (c Config) loggerTo(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.Debug {
		level = slog.LevelDebug
	}
	if c.JSONLogs {
		return logging.NewJSON(w, level)
	}
	return logging.NewTo(w, level)
}

// OpenStore creates the configured document store, sealed when an
// encryption key is set. The returned close func releases connections and
// is never nil.
func (c Config) OpenStore() (ports.DocumentStore, func() error, error) {
	store, closeFn, err := c.openBackend()
	if err != nil || c.EncryptionKey == "" {
		return store, closeFn, err
	}
	enc, err := c.encryption()
	if err != nil {
		_ = closeFn()
		return nil, func() error { return nil }, err
	}
	return middleware.Chain(store, middleware.NewEncryptionMiddleware(enc)), closeFn, nil
}

func (c Config) encryption() (middleware.EncryptionConfig, error) {
	var enc middleware.EncryptionConfig
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil {
		return enc, fmt.Errorf("invalid encryption key: %w", err)
	}
	enc.ActiveKey = key
	for _, k := range c.FallbackKeys {
		fallback, err := hex.DecodeString(k)
		if err != nil {
			return enc, fmt.Errorf("invalid fallback key: %w", err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, fallback)
	}
	if err := enc.Validate(); err != nil {
		return enc, err
	}
	return enc, nil
}

func (c Config) openBackend() (ports.DocumentStore, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(c.Store) {
	case StoreMemory, "":
		return memory.NewStore(), noop, nil
	case StoreFile:
		format, err := domain.ParseFormat(c.Format)
		if err != nil {
			return nil, noop, err
		}
		return file.NewWithFormat(c.Dir, format), noop, nil
	case StoreRedis:
		var opts []redis.Option
		if c.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(c.RedisTTL))
		}
		s := redis.New(c.RedisAddr, c.RedisPass, c.RedisDB, opts...)
		return s, s.Close, nil
	case StoreSQLite:
		s, err := sqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, s.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown store %q (want memory, file, redis or sqlite)", c.Store)
}

// NewManager wires a session manager over store. With a Redis store the
// workflow locks are shared across processes. A non-nil collector receives
// edit and layout metrics.
func (c Config) NewManager(store ports.DocumentStore, logger *slog.Logger, collector *metrics.Collector) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	editorOpts := []arbor.Option{arbor.WithLogger(logger)}

	if rs, ok := middleware.Unwrap(store).(*redis.Store); ok {
		opts = append(opts, session.WithLocker(redis.NewLocker(rs.Client(), redis.DefaultPrefix)))
	}
	var factories []session.HooksFactory
	if collector != nil {
		factories = append(factories, collector.Hooks)
		editorOpts = append(editorOpts, arbor.WithLayoutObserver(collector.ObserveLayout))
	}
	if c.Debug {
		factories = append(factories, debugHooks(logger))
	}
	if len(factories) > 0 {
		opts = append(opts, session.WithHooks(func(workflowID string) domain.EditHooks {
			hooks := make([]domain.EditHooks, len(factories))
			for i, f := range factories {
				hooks[i] = f(workflowID)
			}
			return domain.MergeHooks(hooks...)
		}))
	}
	opts = append(opts, session.WithEditorOptions(editorOpts...))
	return session.NewManager(store, opts...)
}

// debugHooks logs every edit event at debug level.
func debugHooks(logger *slog.Logger) session.HooksFactory {
	return func(workflowID string) domain.EditHooks {
		log := func(kind string) func(context.Context, *domain.EditEvent) {
			return func(ctx context.Context, e *domain.EditEvent) {
				logger.DebugContext(ctx, "edit event", "kind", kind, "workflow", workflowID, "op", e.Op, "version", e.Version)
			}
		}
		return domain.EditHooks{
			OnApply: log("apply"),
			OnNoop:  log("noop"),
			OnUndo:  log("undo"),
			OnRedo:  log("redo"),
			OnLoad:  log("load"),

			OnSelect: log("select"),
		}
	}
}
