// Package web holds the server-rendered templates and the helpers every page
// handler shares: base page data and redirect-with-flash.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/makstark/studio-web/internal/apperr"
	"github.com/makstark/studio-web/internal/content"
	"github.com/makstark/studio-web/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return t, nil
}

// Static serves the stylesheet and other assets under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"markdown":  content.RenderDetails,
		"join":      strings.Join,
		"year":      func() int { return time.Now().Year() },
		"contains":  content.Contains,
		"add":       func(a, b int) int { return a + b },
		"hasPrefix": strings.HasPrefix,
	}
}

// Page returns the data every template expects: title, session, flash
// messages and current path.
func Page(c *gin.Context, title string) gin.H {
	return gin.H{
		"Title":   title,
		"Session": session.FromContext(c),
		"Error":   c.Query("error"),
		"Notice":  c.Query("notice"),
		"Path":    c.Request.URL.Path,
	}
}

// Redirect sends the browser to path with ?key=msg appended.
func Redirect(c *gin.Context, path, key, msg string) {
	if msg == "" {
		c.Redirect(http.StatusSeeOther, path)
		return
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	c.Redirect(http.StatusSeeOther, path+sep+url.Values{key: {msg}}.Encode())
}

func RedirectNotice(c *gin.Context, path, msg string) {
	Redirect(c, path, "notice", msg)
}

// RedirectError sends the browser back to path with the error's operator
// message, or fallback when it carries none.
func RedirectError(c *gin.Context, path string, err error, fallback string) {
	Redirect(c, path, "error", apperr.Message(err, fallback))
}
