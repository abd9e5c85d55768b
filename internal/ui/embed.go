package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/mapgame/mapgame/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages renders the server-side admin pages.
type Pages struct {
	login     *template.Template
	dashboard *template.Template
}

// LoginData is the view model of the login page.
type LoginData struct {
	Title    string
	Username string
	Error    string
}

// DashboardData is the view model of the dashboard page.
type DashboardData struct {
	Title        string
	Admin        *model.Admin
	ObjectCount  int
	SessionCount int
}

// NewPages parses the embedded templates.
func NewPages() (*Pages, error) {
	parse := func(page string) (*template.Template, error) {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		return t, nil
	}

	login, err := parse("login.html")
	if err != nil {
		return nil, err
	}
	dashboard, err := parse("dashboard.html")
	if err != nil {
		return nil, err
	}
	return &Pages{login: login, dashboard: dashboard}, nil
}

// MustPages is NewPages for callers that cannot proceed without templates.
func MustPages() *Pages {
	p, err := NewPages()
	if err != nil {
		panic(err)
	}
	return p
}

// Login renders the login form.
func (p *Pages) Login(w io.Writer, data LoginData) error {
	if data.Title == "" {
		data.Title = "Sign in"
	}
	return render(w, p.login, "login.html", data)
}

// Dashboard renders the admin landing page.
func (p *Pages) Dashboard(w io.Writer, data DashboardData) error {
	if data.Title == "" {
		data.Title = "Dashboard"
	}
	return render(w, p.dashboard, "dashboard.html", data)
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func render(w io.Writer, t *template.Template, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
