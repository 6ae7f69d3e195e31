package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"AlbumShelf/logger"
	"AlbumShelf/repository"

	"github.com/fsnotify/fsnotify"
)

const baseTemplate = "base.html"

var templateFuncs = template.FuncMap{
	"date":      formatDate,
	"sortLabel": sortLabel,
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func sortLabel(f repository.SortField) string {
	switch f {
	case repository.SortByReleaseDate:
		return "Release date"
	case repository.SortByArtist:
		return "Artist"
	case repository.SortByCreatedAt:
		return "Date added"
	case repository.SortByUpdatedAt:
		return "Last updated"
	default:
		return "Title"
	}
}

// Renderer 页面模板渲染器. Every page is parsed together with base.html and
// executed through the "base" template.
type Renderer struct {
	mu    sync.RWMutex
	pages map[string]*template.Template
}

// NewRenderer parses all pages of fsys.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	pages, err := parsePages(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages}, nil
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	names, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		if name == baseTemplate {
			continue
		}
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys, baseTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[strings.TrimSuffix(name, ".html")] = t
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return pages, nil
}

// Pages lists the loaded page names in order.
func (r *Renderer) Pages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.pages))
	for name := range r.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render executes the named page into w. Output is buffered so a failing
// template never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	r.mu.RLock()
	t, ok := r.pages[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Watch reloads the templates from dir whenever a file in it changes, until
// ctx is cancelled. A reload that fails to parse keeps the previous set.
func (r *Renderer) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if err := r.reload(dir); err != nil {
		logger.Warn("[Renderer] 初始模板加载失败", logger.String("dir", dir), logger.ErrorField(err))
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".html") || ev.Has(fsnotify.Chmod) {
					continue
				}
				if err := r.reload(dir); err != nil {
					logger.Warn("[Renderer] 模板重新加载失败", logger.String("file", ev.Name), logger.ErrorField(err))
					continue
				}
				logger.Info("[Renderer] 模板已重新加载",
					logger.String("file", ev.Name),
					logger.Strings("pages", r.Pages()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("[Renderer] 监听模板目录出错", logger.ErrorField(err))
			}
		}
	}()
	return nil
}

func (r *Renderer) reload(dir string) error {
	pages, err := parsePages(os.DirFS(dir))
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.pages = pages
	r.mu.Unlock()
	return nil
}
