// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"syscall"

	"github.com/LeeDigitalWorks/zapgate/pkg/iam"
	"github.com/LeeDigitalWorks/zapgate/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// Snapshot bundles a validated Config with the credential store derived from
// it. Request handling obtains one Snapshot at request start and uses it for
// the whole request; a concurrent reload never changes a snapshot a request
// already holds.
type Snapshot struct {
	Config *Config
	IAM    *iam.Store
}

// NewSnapshot builds the derived credential store for a validated config.
func NewSnapshot(cfg *Config) (*Snapshot, error) {
	store, err := iam.NewStore(cfg.Creds)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Config: cfg, IAM: store}, nil
}

// Provider hands out the active configuration snapshot. The snapshot is
// replaced atomically on reload; readers see either the old or the new one,
// never a mix.
type Provider struct {
	path string
	snap atomic.Pointer[Snapshot]
}

// NewProvider loads the config file at path and returns a provider serving it.
func NewProvider(path string) (*Provider, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	snap, err := NewSnapshot(cfg)
	if err != nil {
		return nil, err
	}
	p := &Provider{path: path}
	p.snap.Store(snap)
	return p, nil
}

// Snapshot returns the active configuration snapshot.
func (p *Provider) Snapshot() *Snapshot {
	return p.snap.Load()
}

// Reload re-reads the config file and swaps the snapshot if it parses,
// validates, and differs from the active one. Returns true when a new
// snapshot was installed.
func (p *Provider) Reload() (bool, error) {
	cfg, err := Load(p.path)
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(cfg, p.Snapshot().Config) {
		return false, nil
	}
	snap, err := NewSnapshot(cfg)
	if err != nil {
		return false, err
	}
	p.snap.Store(snap)
	return true, nil
}

// Watch reloads the configuration on file changes and SIGHUP until ctx is
// done. A failed reload keeps the previous snapshot active. The file watcher
// is closed on return, so a cancelled Watch leaves no goroutine behind.
func (p *Provider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and config tools often
	// replace the file via rename, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return err
	}
	target := filepath.Clean(p.path)

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Op.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Str("path", p.path).Msg("config watcher error")
			continue
		case <-sighup:
		}

		swapped, err := p.Reload()
		switch {
		case err != nil:
			logger.Error().Err(err).Str("path", p.path).Msg("config reload failed, keeping previous snapshot")
		case swapped:
			logger.Info().Str("path", p.path).Msg("config reloaded")
		default:
			logger.Debug().Str("path", p.path).Msg("config unchanged, not reloaded")
		}
	}
}
