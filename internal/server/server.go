package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/TobiSchelling/FeedbackLens/internal/cache"
	"github.com/TobiSchelling/FeedbackLens/internal/database"
	"github.com/TobiSchelling/FeedbackLens/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Server browses cached annotation tables.
type Server struct {
	cache *cache.Cache
	db    *database.DB
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server. db may be nil.
func New(c *cache.Cache, db *database.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so "title" and "content" don't collide.
	pageNames := []string{"index.html", "table.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{cache: c, db: db, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/table/", s.handleTable)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	entries, err := s.cache.List()
	if err != nil {
		log.Printf("Error listing cache: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	runs := make(map[string]*database.Run)
	if s.db != nil {
		all, err := s.db.GetAllRuns(0)
		if err != nil {
			log.Printf("Error reading runs: %v", err)
		}
		// Newest first, so keep the first run seen per cache file.
		for i := range all {
			if _, ok := runs[all[i].CachePath]; !ok {
				runs[all[i].CachePath] = &all[i]
			}
		}
	}

	s.render(w, "index.html", map[string]any{
		"Entries": entries,
		"Runs":    runs,
	})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/table/")
	semester, teacher, ok := strings.Cut(path, "/")
	if !ok || semester == "" || teacher == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	table, err := s.cache.Load(semester, teacher)
	if err != nil {
		log.Printf("Error loading table %s/%s: %v", semester, teacher, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if table == nil {
		http.NotFound(w, r)
		return
	}
	if len(table.Records) > 0 && table.Records[0].FacultyName != "" {
		table.Teacher = table.Records[0].FacultyName
	}

	course := r.URL.Query().Get("course")
	class := r.URL.Query().Get("class")
	summary := report.Summarize(table, course, class, nil)

	var classes []string
	if summary.Course != report.All {
		classes = report.Classes(table.Records, summary.Course)
	}

	s.render(w, "table.html", map[string]any{
		"Semester": semester,
		"Teacher":  teacher,
		"Course":   summary.Course,
		"Class":    summary.Class,
		"Courses":  report.Courses(table.Records),
		"Classes":  classes,
		"Markdown": report.Markdown(summary),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(c *cache.Cache, db *database.DB, port int) error {
	srv, err := New(c, db)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
