package storefront

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/masad40/next-sc/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names accepted by Views.Render.
const (
	PageHome     = "home"
	PageItems    = "items"
	PageItem     = "item"
	PageNotFound = "not_found"
	PageError    = "error"
	PageAddItem  = "add_item"
	PageLogin    = "login"
)

// PageData is what every template receives. Fields a page does not use stay
// zero.
type PageData struct {
	Session Session
	Title   string

	Query string
	Items []catalog.Item
	Item  catalog.Item

	Message  string
	RetryURL string

	Form   FormValues
	Errors FieldErrors

	Next         string
	DemoEmail    string
	DemoPassword string
}

// FormValues echoes the submitted add-item text fields back into the form.
type FormValues struct {
	Name        string
	Price       string
	Description string
}

type Views struct {
	pages map[string]*template.Template
}

func NewViews() (*Views, error) {
	funcs := template.FuncMap{
		"price": FormatPrice,
	}

	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	v := &Views{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageHome, PageItems, PageItem, PageNotFound, PageError, PageAddItem, PageLogin} {
		t, err := template.Must(base.Clone()).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// Render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (v *Views) Render(w http.ResponseWriter, status int, page string, data PageData) error {
	t, ok := v.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// FormatPrice renders p with thousands separators, at most two decimals and
// the BDT suffix, e.g. 120000 -> "120,000 BDT".
func FormatPrice(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "- BDT"
	}

	s := strconv.FormatFloat(math.Abs(p), 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	var b strings.Builder
	if p < 0 {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	b.WriteString(" BDT")
	return b.String()
}
