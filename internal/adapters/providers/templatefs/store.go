// Package templatefs loads packet templates from YAML files: the built-in
// defaults compiled into the binary and an optional override directory that
// is reloaded when its files change.
package templatefs

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

//go:embed defaults/*.yaml
var defaultTemplates embed.FS

// reloadDebounce coalesces the burst of events editors produce on save
const reloadDebounce = 200 * time.Millisecond

type templateKey struct {
	docType        entities.DocumentType
	classification entities.Classification
}

// Store holds templates indexed by document type and classification
type Store struct {
	mu        sync.RWMutex
	templates map[templateKey]*entities.Template
	dir       string
}

var _ repositories.TemplateRepository = (*Store)(nil)

// Parse decodes and validates one YAML template
func Parse(data []byte, source string) (*entities.Template, error) {
	var tmpl entities.Template
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("template %s: failed to parse yaml: %w", source, err)
	}
	if tmpl.Name == "" {
		tmpl.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	if tmpl.ID == "" {
		tmpl.ID = "file:" + filepath.Base(source)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// NewBuiltinStore returns the compiled-in default templates
func NewBuiltinStore() (*Store, error) {
	s := &Store{}
	templates, err := loadFS(defaultTemplates, "defaults")
	if err != nil {
		return nil, err
	}
	s.templates = templates
	return s, nil
}

// NewDirStore loads override templates from dir
func NewDirStore(dir string) (*Store, error) {
	s := &Store{dir: dir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the directory. On error the previous set is kept.
func (s *Store) Reload() error {
	if s.dir == "" {
		return nil
	}
	templates, err := loadFS(os.DirFS(s.dir), ".")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()
	return nil
}

func loadFS(fsys fs.FS, root string) (map[templateKey]*entities.Template, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory: %w", err)
	}

	templates := make(map[templateKey]*entities.Template)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := fs.ReadFile(fsys, pathJoin(root, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", name, err)
		}
		tmpl, err := Parse(data, name)
		if err != nil {
			return nil, err
		}
		key := templateKey{docType: tmpl.DocumentType, classification: tmpl.Classification}
		if existing, ok := templates[key]; ok && existing.Version >= tmpl.Version {
			continue
		}
		templates[key] = tmpl
	}
	return templates, nil
}

func pathJoin(root, name string) string {
	if root == "." {
		return name
	}
	return root + "/" + name
}

// FindOverride implements repositories.TemplateRepository
func (s *Store) FindOverride(ctx context.Context, docType entities.DocumentType, classification entities.Classification) (*entities.Template, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[templateKey{docType: docType, classification: classification}]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no file template for %s/%s", docType, classification))
	}
	return tmpl, nil
}

// Len returns the number of loaded templates
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Watch reloads the directory whenever a file in it changes, until ctx is done
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if err := s.Reload(); err != nil {
					log.Error().Err(err).Str("dir", s.dir).Msg("Template reload failed, keeping previous templates")
					continue
				}
				log.Info().Str("dir", s.dir).Int("templates", s.Len()).Msg("Reloaded template overrides")
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("dir", s.dir).Msg("Template watcher error")
			}
		}
	}()
	return nil
}
