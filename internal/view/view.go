// Package view renders the server-side templates and carries the two bits
// of page chrome every handler needs: the theme cookie and one-shot flash
// notices.
package view

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type themeKey struct{}

const (
	themeCookieName = "theme"
	defaultTheme    = "dark"
	flashCookieName = "flash"
)

// WithTheme stores the theme in the context.
func WithTheme(ctx context.Context, theme string) context.Context {
	return context.WithValue(ctx, themeKey{}, theme)
}

// ThemeFromContext returns the theme, defaulting to dark like the panel
// always has.
func ThemeFromContext(ctx context.Context) string {
	if theme, ok := ctx.Value(themeKey{}).(string); ok && theme != "" {
		return theme
	}
	return defaultTheme
}

// ThemeMiddleware reads the theme cookie into the request context.
func ThemeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		theme := defaultTheme
		if c, err := r.Cookie(themeCookieName); err == nil && c.Value != "" {
			theme = c.Value
		}
		next.ServeHTTP(w, r.WithContext(WithTheme(r.Context(), theme)))
	})
}

// Flash queues a one-shot notice shown on the next rendered page.
// Category is a Bootstrap-ish level: success, info, warning, danger.
func Flash(w http.ResponseWriter, message, category string) {
	http.SetCookie(w, &http.Cookie{
		Name:  flashCookieName,
		Value: url.QueryEscape(category + "|" + message),
		Path:  "/",
	})
}

// Notice is a flash message handed to templates.
type Notice struct {
	Message  string
	Category string
}

func popFlash(w http.ResponseWriter, r *http.Request) *Notice {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(raw, "|")
	if !ok {
		return &Notice{Message: raw, Category: "info"}
	}
	return &Notice{Message: message, Category: category}
}

var (
	baseDir  string
	baseOnce sync.Once
	tplCache = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
)

func detectBase() {
	for _, c := range []string{"templates", "../templates", "../../templates", "../../../templates"} {
		if fi, err := os.Stat(filepath.Clean(c)); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			return
		}
	}
	baseDir = "templates"
}

func load(name string) (*template.Template, error) {
	baseOnce.Do(detectBase)

	tplCache.RLock()
	t, ok := tplCache.m[name]
	tplCache.RUnlock()
	if ok && os.Getenv("DEV") != "1" {
		return t, nil
	}

	t, err := template.ParseFiles(
		filepath.Join(baseDir, "layout.html"),
		filepath.Join(baseDir, filepath.FromSlash(name)),
	)
	if err != nil {
		return nil, err
	}
	tplCache.Lock()
	tplCache.m[name] = t
	tplCache.Unlock()
	return t, nil
}

// Render executes the named page inside the shared layout. The theme and
// any pending flash notice are injected next to the handler's data.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	t, err := load(name)
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	data["Theme"] = ThemeFromContext(r.Context())
	data["Flash"] = popFlash(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return t.ExecuteTemplate(w, "layout", data)
}
