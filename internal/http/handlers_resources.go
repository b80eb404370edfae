package http

import (
	"bytes"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/view"
)

type unmounter interface {
	Unmount()
}

// resourceHandlers serves one resource page and its HTMX endpoints. The same
// code runs for transactions and budgets; the schema decides which
// operations are routed.
type resourceHandlers[R any] struct {
	srv    *Server
	schema view.Schema[R]
	viewOf func(*Session) *view.View[R]
	others func(*Session) []unmounter
	row    func(R) row
}

type resourcePage struct {
	page
	Kind      string
	Name      string
	Fields    []formField
	Rows      []row
	Loaded    bool
	CanUpdate bool
	CanDelete bool
}

func (h *resourceHandlers[R]) register(mux *http.ServeMux) {
	schema := h.schema
	prefix := h.srv.base + "/" + schema.Kind

	mux.HandleFunc("GET "+prefix, h.handlePage)
	mux.HandleFunc("GET "+prefix+"/list", h.handleList)
	mux.HandleFunc("POST "+prefix, h.handleCreate)
	mux.HandleFunc("POST "+prefix+"/draft", h.handleDraft)
	if schema.CanUpdate {
		mux.HandleFunc("PUT "+prefix+"/{id}", h.handleUpdate)
	}
	if schema.CanDelete {
		mux.HandleFunc("DELETE "+prefix+"/{id}", h.handleDelete)
	}
}

// handlePage navigates to the resource: the other views are unmounted, this
// one is mounted fresh and loaded once.
func (h *resourceHandlers[R]) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.srv.session(w, r)
	if !ok {
		return
	}
	for _, other := range h.others(sess) {
		other.Unmount()
	}
	v := h.viewOf(sess)
	v.Mount()
	_ = v.Load(r.Context())

	h.srv.render(w, r, http.StatusOK, "resource", h.pageData(sess, v))
}

// handleList reloads the list and returns the partial.
func (h *resourceHandlers[R]) handleList(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.srv.session(w, r)
	if !ok {
		return
	}
	v := h.ensureMounted(r, sess)
	_ = v.Load(r.Context())
	h.srv.render(w, r, http.StatusOK, "resource_list", h.pageData(nil, v))
}

// handleDraft records form input. A "field" parameter names a single field
// to set; otherwise every submitted schema field is taken.
func (h *resourceHandlers[R]) handleDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.srv.session(w, r)
	if !ok {
		return
	}
	v := h.ensureMounted(r, sess)
	p, ok := h.parse(w, r)
	if !ok {
		return
	}

	if field := p.Get("field"); field != "" {
		if err := v.SetField(field, p.Get("value")); err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
	} else {
		v.SetDraft(p.Values(fieldNames(v.Schema().Fields)...))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *resourceHandlers[R]) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.srv.session(w, r)
	if !ok {
		return
	}
	v := h.ensureMounted(r, sess)
	p, ok := h.parse(w, r)
	if !ok {
		return
	}
	v.SetDraft(p.Values(fieldNames(v.Schema().Fields)...))

	_, err := v.Submit(r.Context())
	h.respond(w, r, sess, v, log.OpCreate, err)
}

func (h *resourceHandlers[R]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.srv.session(w, r)
	if !ok {
		return
	}
	v := h.ensureMounted(r, sess)
	p, ok := h.parse(w, r)
	if !ok {
		return
	}
	v.SetDraft(p.Values(fieldNames(v.Schema().Fields)...))

	_, err := v.Update(r.Context(), core.ID(r.PathValue("id")))
	h.respond(w, r, sess, v, log.OpUpdate, err)
}

func (h *resourceHandlers[R]) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.srv.session(w, r)
	if !ok {
		return
	}
	v := h.ensureMounted(r, sess)

	err := v.Delete(r.Context(), core.ID(r.PathValue("id")))
	h.respond(w, r, sess, v, log.OpDelete, err)
}

// respond answers a mutation. HTMX requests get the refreshed list with the
// outcome in HX-Trigger; plain form posts are redirected back to the page,
// which shows the pending notification.
func (h *resourceHandlers[R]) respond(w http.ResponseWriter, r *http.Request, sess *Session, v *view.View[R], op string, err error) {
	kind := v.Schema().Kind
	switch {
	case errors.Is(err, view.ErrStale):
		// The page was left while the request was in flight.
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, view.ErrUnsupported):
		MethodNotAllowedError("GET, POST").Write(w)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, h.srv.base+"/"+kind, http.StatusSeeOther)
		return
	}

	var buf bytes.Buffer
	if execErr := h.srv.templates.ExecuteTemplate(&buf, "resource_list", h.pageData(nil, v)); execErr != nil {
		h.srv.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, log.FieldError, execErr)
		InternalServerError("Internal error").Write(w)
		return
	}

	resp := NewHTMXResponse().TriggerViewNotification(sess.Notifier.Take())
	if err == nil {
		resp.TriggerResourceChanged(kind, op)
		if op == log.OpCreate {
			resp.TriggerFormReset()
		}
	}
	resp.BodyHTML(buf.String()).Write(w)
}

func (h *resourceHandlers[R]) ensureMounted(r *http.Request, sess *Session) *view.View[R] {
	v := h.viewOf(sess)
	if !v.Mounted() {
		for _, other := range h.others(sess) {
			other.Unmount()
		}
		v.Mount()
		_ = v.Load(r.Context())
	}
	return v
}

func (h *resourceHandlers[R]) parse(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		h.srv.logger.WarnContext(r.Context(), "Invalid request body",
			log.FieldOperation, log.OpParse,
			log.FieldError, err)
		BadRequestError("Invalid form data").Write(w)
		return nil, false
	}
	return p, true
}

func (h *resourceHandlers[R]) pageData(sess *Session, v *view.View[R]) resourcePage {
	schema := v.Schema()
	items := v.Items()
	rows := make([]row, 0, len(items))
	for _, item := range items {
		rows = append(rows, h.row(item))
	}
	p := page{Title: AppTitle, Active: schema.Kind}
	if sess != nil {
		p = h.srv.newPage(sess, schema.Kind)
	}
	return resourcePage{
		page:      p,
		Kind:      schema.Kind,
		Name:      schema.Name,
		Fields:    formFields(schema.Fields, v.Draft()),
		Rows:      rows,
		Loaded:    v.Loaded(),
		CanUpdate: schema.CanUpdate,
		CanDelete: schema.CanDelete,
	}
}
