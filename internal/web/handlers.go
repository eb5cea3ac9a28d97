package web

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/ops"
)

// Handlers contains HTTP route handlers for the viewer panel.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	renderer *Renderer
	logger   *slog.Logger
}

// HandleExhibits handles GET /exhibits, the project's directory with a link
// per exhibit into the viewer.
func (h *Handlers) HandleExhibits(w http.ResponseWriter, r *http.Request) {
	projects, err := ops.Projects(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := ExhibitsPageData{
		PageData: h.renderer.page("Exhibits", "exhibits", ""),
		Projects: projects.Items,
	}

	project := r.URL.Query().Get("project")
	if project == "" && h.cfg.DefaultProject == "" {
		if len(projects.Items) == 0 {
			h.renderer.renderPage(w, r, "exhibits", data)
			return
		}
		project = projects.Items[0].Project
	}

	result, err := ops.Exhibits(r.Context(), h.db, h.cfg, ops.ExhibitsInput{Project: project})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	data.Project = result.Project
	data.Exhibits = result.Exhibits
	data.Files = result.Files

	h.renderer.renderPage(w, r, "exhibits", data)
}

// HandleNavigate handles GET /navigate. It resolves the citation, records the
// visit and shows the target. An exhibit with no linked file renders a
// placeholder with status 200.
func (h *Handlers) HandleNavigate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ops.ResolveInput{
		Project:     q.Get("project"),
		Reference:   q.Get("ref"),
		FileID:      q.Get("file_id"),
		Description: q.Get("description"),
	}
	if q.Get("record") == "false" {
		record := false
		input.Record = &record
	}

	result, err := ops.Resolve(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if !result.Resolved {
		h.logger.Info("citation has no linked file", "project", result.Project, "ref", result.Citation.CitationReference)
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "viewer", ViewerPageData{
		PageData:        h.renderer.page(result.Intent.ExhibitReference, "viewer", result.Project),
		Citation:        result.Citation,
		Intent:          result.Intent,
		DescriptionHTML: renderMarkdown(result.Intent.SourceDescription),
	})
}

// HandleHistory handles GET /history, most recent first.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	result, err := ops.HistoryList(r.Context(), h.db, h.cfg, ops.HistoryListInput{
		Project: r.URL.Query().Get("project"),
		Limit:   parseIntParam(r, "limit", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData: h.renderer.page("History", "history", result.Project),
		Items:    result.Items,
		Total:    result.Total,
	})
}

// HandleHistoryClear handles POST /history/clear.
func (h *Handlers) HandleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	result, err := ops.HistoryClear(r.Context(), h.db, h.cfg, ops.HistoryClearInput{Project: r.FormValue("project")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", historyURL(result.Project))
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, historyURL(result.Project), http.StatusFound)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// navigateURL links a citation into the viewer.
func navigateURL(project, ref string) string {
	v := url.Values{}
	v.Set("project", project)
	v.Set("ref", ref)
	return "/navigate?" + v.Encode()
}

func historyURL(project string) string {
	return "/history?" + url.Values{"project": {project}}.Encode()
}
