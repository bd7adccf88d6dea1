package storefront

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/masad40/next-sc/internal/catalog"
	"github.com/masad40/next-sc/pkg/kit"
)

const (
	msgListFailed     = "Couldn't load items. Please try again later."
	msgItemFailed     = "Failed to load item details. It may not exist."
	msgBadLogin       = "Invalid email or password. Try the demo credentials below."
	msgLoginThrottled = "Too many login attempts. Please wait a minute and try again."
	msgBadForm        = "Could not read the form. Please try again."
	msgUploadFailed   = "Image upload failed. Please try again."
	msgCreateFailed   = "Failed to add item. Please try again."

	maxFormBytes = maxImageBytes + 1<<20

	featuredItems = 6
)

// CatalogReader is the read side of the catalog the pages need.
type CatalogReader interface {
	ListItems(ctx context.Context) (Catalog, error)
	GetItem(ctx context.Context, id string) (catalog.Item, error)
}

// ItemSubmitter runs the add-item flow.
type ItemSubmitter interface {
	Submit(ctx context.Context, form NewItemForm) (catalog.Item, error)
}

type Server struct {
	Catalog  CatalogReader
	Search   *Searcher
	Submit   ItemSubmitter
	Sessions *SessionManager
	Views    *Views
	Log      *zap.Logger

	// LoginLimiter throttles POST /login per client IP; nil disables it.
	LoginLimiter *kit.IPRateLimiter

	// Shown on the login page when set.
	DemoEmail    string
	DemoPassword string
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess Session)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.withSession(s.home))

	r.Get("/items", s.withSession(s.listItems))
	r.Get("/items/{id}", s.withSession(s.getItem))

	r.Get("/add-item", s.withSession(requireLogin(s.addItemForm)))
	r.Post("/add-item", s.withSession(requireLogin(s.addItem)))

	r.Get("/login", s.withSession(s.loginForm))
	r.Post("/login", s.withSession(s.login))
	r.Post("/logout", s.logout)

	return r
}

// withSession resolves the session once and hands it to h.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, s.Sessions.FromRequest(r))
	}
}

func requireLogin(h sessionHandler) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess Session) {
		if !sess.Authenticated {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		h(w, r, sess)
	}
}

// home shows the first few catalog items. A catalog outage only hides them.
func (s *Server) home(w http.ResponseWriter, r *http.Request, sess Session) {
	data := PageData{Session: sess}

	cat, err := s.Catalog.ListItems(r.Context())
	if err != nil {
		s.Log.Warn("featured items unavailable", zap.Error(err))
	} else {
		data.Items = cat.Items[:min(featuredItems, len(cat.Items))]
	}

	s.render(w, r, http.StatusOK, PageHome, data)
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request, sess Session) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	cat, err := s.Catalog.ListItems(r.Context())
	if err != nil {
		s.Log.Warn("list items failed", zap.Error(err))
		s.render(w, r, http.StatusServiceUnavailable, PageError, PageData{
			Session:  sess,
			Title:    "Items",
			Message:  msgListFailed,
			RetryURL: r.URL.RequestURI(),
		})
		return
	}

	s.render(w, r, http.StatusOK, PageItems, PageData{
		Session: sess,
		Title:   "Items",
		Query:   q,
		Items:   s.Search.Search(cat, q),
	})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request, sess Session) {
	it, err := s.Catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, ErrCatalogNotFound) {
			s.Log.Warn("get item failed", zap.String("id", chi.URLParam(r, "id")), zap.Error(err))
		}
		s.render(w, r, http.StatusNotFound, PageNotFound, PageData{
			Session: sess,
			Title:   "Not found",
			Message: msgItemFailed,
		})
		return
	}

	s.render(w, r, http.StatusOK, PageItem, PageData{Session: sess, Title: it.Name, Item: it})
}

func (s *Server) addItemForm(w http.ResponseWriter, r *http.Request, sess Session) {
	s.render(w, r, http.StatusOK, PageAddItem, PageData{Session: sess, Title: "Add Item"})
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request, sess Session) {
	data := PageData{Session: sess, Title: "Add Item"}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		data.Message = msgBadForm
		s.render(w, r, http.StatusBadRequest, PageAddItem, data)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := NewItemForm{
		Name:        r.PostFormValue("name"),
		Price:       r.PostFormValue("price"),
		Description: r.PostFormValue("description"),
	}
	data.Form = FormValues{Name: form.Name, Price: form.Price, Description: form.Description}

	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		img, err := ImageFromMultipart(files[0])
		if err != nil {
			status := http.StatusBadRequest
			data.Errors = FieldErrors{FieldImage: "Could not read the image"}
			if errors.Is(err, ErrImageTooLarge) {
				status = http.StatusRequestEntityTooLarge
				data.Errors[FieldImage] = "Image is too large"
			}
			s.render(w, r, status, PageAddItem, data)
			return
		}
		form.Image = img
	}

	if _, err := s.Submit.Submit(r.Context(), form); err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			data.Errors = verr.Fields
			s.render(w, r, http.StatusUnprocessableEntity, PageAddItem, data)
		case errors.Is(err, ErrUploadFailed):
			data.Message = msgUploadFailed
			s.render(w, r, http.StatusBadGateway, PageAddItem, data)
		default:
			data.Message = msgCreateFailed
			s.render(w, r, http.StatusBadGateway, PageAddItem, data)
		}
		return
	}

	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request, sess Session) {
	next := safeNext(r.URL.Query().Get("next"))
	if sess.Authenticated {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	s.render(w, r, http.StatusOK, PageLogin, s.loginData(sess, next, ""))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, sess Session) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, PageLogin, s.loginData(sess, "", msgBadForm))
		return
	}
	next := safeNext(r.PostFormValue("next"))

	if s.LoginLimiter != nil && !s.LoginLimiter.Allow(s.LoginLimiter.Key(r)) {
		w.Header().Set("Retry-After", "60")
		s.render(w, r, http.StatusTooManyRequests, PageLogin, s.loginData(sess, next, msgLoginThrottled))
		return
	}

	if _, err := s.Sessions.Login(w, r.PostFormValue("email"), r.PostFormValue("password")); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.render(w, r, http.StatusUnauthorized, PageLogin, s.loginData(sess, next, msgBadLogin))
			return
		}
		s.Log.Error("issue session failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Logout(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) loginData(sess Session, next, msg string) PageData {
	return PageData{
		Session:      sess,
		Title:        "Login",
		Message:      msg,
		Next:         next,
		DemoEmail:    s.DemoEmail,
		DemoPassword: s.DemoPassword,
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	if err := s.Views.Render(w, status, page, data); err != nil {
		s.Log.Error("render failed", zap.String("page", page), zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

// safeNext only accepts local paths so the login form cannot be used as an
// open redirect.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/items"
	}
	u, err := url.Parse(next)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return "/items"
	}
	return next
}
