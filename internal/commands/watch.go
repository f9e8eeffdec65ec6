package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/crossbind/crossbind/internal/bindgen"
	"github.com/crossbind/crossbind/internal/config"
	"github.com/crossbind/crossbind/internal/watch"
)

// Watch regenerates bindings whenever a watched schema file changes.
func (c *Controller) Watch(ctx context.Context) error {
	cfg, projectRoot, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load project config: %w", err)
	}

	fmt.Printf("👀 Watching %s for schema changes...\n", projectRoot)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Println("\n👋 Stopping watch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	regenerate := func() {
		pipeline := bindgen.NewPipeline(cfg, projectRoot, log.Logger)
		schemaPath := filepath.Join(projectRoot, cfg.Schema)
		if err := pipeline.LoadInterface(schemaPath); err != nil {
			log.Error().Err(err).Msg("schema rejected")
			return
		}
		if err := pipeline.Generate(); err != nil {
			log.Error().Err(err).Msg("generation failed")
			return
		}
		fmt.Println("✅ Bindings regenerated")
	}

	// Generate once up front so the output is never stale.
	regenerate()

	watcher, err := watch.NewFileWatcher(cfg.Watch.Include, cfg.Watch.Exclude, log.Logger, func(path string, op fsnotify.Op) {
		if op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
			return
		}
		log.Info().Str("path", path).Str("op", op.String()).Msg("schema changed")
		regenerate()
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.AddDirectory(projectRoot); err != nil {
		return err
	}

	if err := watcher.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
