package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kolah/routedoc/internal/cache"
	"github.com/kolah/routedoc/internal/config"
	"github.com/kolah/routedoc/internal/extract"
	"github.com/kolah/routedoc/internal/generator"
	"github.com/kolah/routedoc/internal/logging"
	"github.com/kolah/routedoc/internal/registry"
	"github.com/kolah/routedoc/internal/routes"
	"github.com/kolah/routedoc/internal/spec"
	"github.com/kolah/routedoc/internal/templates"
)

// app is what a command needs, built from the loaded configuration.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	gen   *generator.Generator
	cache cache.Cache
}

// newApp loads configuration and builds the generator. Commands that never assemble a
// document pass withRoutes false and skip the route manifest.
func newApp(cmd *cobra.Command, withRoutes bool) (*app, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})

	var rs []routes.Route
	if withRoutes {
		rs, err = routes.LoadManifest(cfg.Routes.Manifest)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("routes", len(rs)).Str("manifest", cfg.Routes.Manifest).Msg("routes loaded")
	}

	now, err := clock(cfg, withRoutes)
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.Options{
		ModulesPath: cfg.Modules.Path,
		Namespaces: registry.Namespaces{
			Modules: cfg.Modules.Namespace,
			Global:  cfg.GlobalNamespace,
		},
	})
	if cfg.Registry.Sidecar != "" {
		if err := reg.LoadSidecar(cfg.Registry.Sidecar); err != nil {
			return nil, err
		}
	}

	store, err := templates.NewStore(cfg.Templates.Dirs...)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	assembler, err := spec.NewAssembler(cfg, reg, store, extract.New(log), log, spec.WithClock(now))
	if err != nil {
		return nil, fmt.Errorf("creating assembler: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	opts := []generator.Option{generator.WithClock(now)}
	if cfg.Cache.Enabled {
		a.cache, err = cache.New(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		opts = append(opts, generator.WithCache(a.cache))
	}

	a.gen, err = generator.New(cfg, assembler, rs, log, opts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	return a, nil
}

// clock fixes the time stamped into documents so regenerating an unchanged route table
// gives identical output: output.timestamp when set, otherwise the manifest's
// modification time.
func clock(cfg *config.Config, withRoutes bool) (func() time.Time, error) {
	if cfg.Output.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, cfg.Output.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid output timestamp: %w", err)
		}
		return func() time.Time { return t.UTC() }, nil
	}
	info, err := os.Stat(cfg.Routes.Manifest)
	if err != nil {
		if !withRoutes {
			return time.Now, nil
		}
		return nil, fmt.Errorf("reading route manifest: %w", err)
	}
	mtime := info.ModTime().UTC().Truncate(time.Second)
	return func() time.Time { return mtime }, nil
}

func (a *app) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}
