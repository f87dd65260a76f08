// Package notifier picks a pending article and emails it to the reader.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"math/rand"
	"net/url"

	"github.com/readlater/readlater/internal/mailer"
	"github.com/readlater/readlater/internal/metadata"
	"github.com/readlater/readlater/internal/storage"
)

const (
	SuggestionSubject = "From your reading list"
	EmptySubject      = "Nothing more to read"
	EmptyBody         = "You've finished reading all of your articles. Add more to your list to get some suggestions!"
)

var suggestionTemplate = template.Must(template.New("suggestion").Parse(`<h3>Try this one out for today:</h3>
<p><a href="{{.URL}}">{{.Title}}</a></p>
{{- if .Description}}
<p>{{.Description}}</p>
{{- end}}
<p><a href="{{.FinishedLink}}">Click here if you've finished this one, so that it's not suggested again.</a></p>
`))

// Lister reads the current reading list.
type Lister interface {
	List(ctx context.Context) (*storage.ReadingList, error)
}

// Picker chooses an index in [0, n). A seeded *rand.Rand from math/rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// Config holds the fixed addressing of notifications.
type Config struct {
	From string
	To   []string

	// FinishedURL is the absolute URL of the mark-finished endpoint.
	FinishedURL string
}

// Kind says which message a firing sent.
type Kind string

const (
	KindSuggestion Kind = "suggestion"
	KindEmpty      Kind = "empty"
)

// Outcome describes one firing.
type Outcome struct {
	Kind     Kind
	URL      string
	Title    string
	Enriched bool
	Pending  int
}

// LogValue implements slog.LogValuer.
func (o Outcome) LogValue() slog.Value {
	if o.Kind == KindEmpty {
		return slog.GroupValue(slog.String("kind", string(o.Kind)))
	}
	return slog.GroupValue(
		slog.String("kind", string(o.Kind)),
		slog.String("url", o.URL),
		slog.String("title", o.Title),
		slog.Bool("enriched", o.Enriched),
		slog.Int("pending", o.Pending),
	)
}

// Notifier runs a single pick-and-send firing. It holds no state between
// firings; callers own logging of the returned outcome.
type Notifier struct {
	store   Lister
	fetcher metadata.Fetcher
	sender  mailer.Sender
	picker  Picker
	config  Config
}

// globalPicker uses the runtime-seeded top-level generator, which is safe
// for concurrent firings.
type globalPicker struct{}

func (globalPicker) Intn(n int) int {
	// #nosec G404 -- crypto/rand not needed for article selection
	return rand.Intn(n)
}

// New creates a notifier that picks with the global random source.
func New(store Lister, fetcher metadata.Fetcher, sender mailer.Sender, cfg Config) *Notifier {
	return NewWithPicker(store, fetcher, sender, cfg, globalPicker{})
}

// NewWithPicker creates a notifier with an explicit random source.
func NewWithPicker(store Lister, fetcher metadata.Fetcher, sender mailer.Sender, cfg Config, picker Picker) *Notifier {
	return &Notifier{
		store:   store,
		fetcher: fetcher,
		sender:  sender,
		picker:  picker,
		config:  cfg,
	}
}

// Notify reads the list, picks one pending article at random and sends it.
// With nothing pending it sends the fixed "nothing more to read" message.
// Storage failures are returned as *storage.StorageError, delivery failures
// as *mailer.DeliveryError.
func (n *Notifier) Notify(ctx context.Context) (Outcome, error) {
	list, err := n.store.List(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if len(list.Pending) == 0 {
		outcome := Outcome{Kind: KindEmpty}
		return outcome, n.sender.Send(ctx, mailer.Message{
			From:    n.config.From,
			To:      n.config.To,
			Subject: EmptySubject,
			Text:    EmptyBody,
		})
	}

	selected := list.Pending[n.picker.Intn(len(list.Pending))]
	picked := n.enrich(ctx, selected)

	html, err := n.render(picked)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to render suggestion: %w", err)
	}

	outcome := Outcome{
		Kind:     KindSuggestion,
		URL:      selected,
		Title:    picked.Title,
		Enriched: picked.Enriched,
		Pending:  len(list.Pending),
	}
	return outcome, n.sender.Send(ctx, mailer.Message{
		From:    n.config.From,
		To:      n.config.To,
		Subject: SuggestionSubject,
		HTML:    html,
	})
}

type suggestion struct {
	URL          string
	Title        string
	Description  string
	FinishedLink string
	Enriched     bool
}

// enrich falls back to the raw URL as title, with no description, when the
// page has no usable metadata.
func (n *Notifier) enrich(ctx context.Context, articleURL string) suggestion {
	s := suggestion{
		URL:          articleURL,
		Title:        articleURL,
		FinishedLink: n.finishedLink(articleURL),
	}

	meta, ok := n.fetcher.Lookup(ctx, articleURL)
	if !ok || meta.Title == "" {
		return s
	}

	s.Title = meta.Title
	s.Description = meta.Description
	s.Enriched = true
	return s
}

func (n *Notifier) finishedLink(articleURL string) string {
	return n.config.FinishedURL + "?" + url.Values{"url": {articleURL}}.Encode()
}

func (n *Notifier) render(s suggestion) (string, error) {
	var buf bytes.Buffer
	if err := suggestionTemplate.Execute(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}
