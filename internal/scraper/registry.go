package scraper

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jimezsa/jobagg/internal/adzuna"
	"github.com/jimezsa/jobagg/internal/network"
)

const (
	SiteAdzuna    = "adzuna"
	SiteLinkedIn  = "linkedin"
	SiteIndeed    = "indeed"
	SiteGlassdoor = "glassdoor"
)

// UnknownSourceError is returned when a name has no registered adapter.
type UnknownSourceError struct {
	Name string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source: %s", e.Name)
}

// Registry maps source names to adapters. It is built once at startup
// and read-only afterwards.
type Registry struct {
	scrapers map[string]Scraper
	order    []string
}

func NewRegistry(scrapers ...Scraper) (*Registry, error) {
	r := &Registry{scrapers: make(map[string]Scraper, len(scrapers))}
	for _, sc := range scrapers {
		name := NormalizeName(sc.Name())
		if name == "" {
			return nil, fmt.Errorf("scraper with empty name")
		}
		if _, exists := r.scrapers[name]; exists {
			return nil, fmt.Errorf("duplicate scraper: %s", name)
		}
		r.scrapers[name] = sc
		r.order = append(r.order, name)
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (Scraper, bool) {
	sc, ok := r.scrapers[NormalizeName(name)]
	return sc, ok
}

// Names lists registered sources in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Resolve maps names to adapters, keeping the given order.
func (r *Registry) Resolve(names []string) ([]Scraper, error) {
	out := make([]Scraper, 0, len(names))
	for _, name := range names {
		sc, ok := r.Lookup(name)
		if !ok {
			return nil, &UnknownSourceError{Name: name}
		}
		out = append(out, sc)
	}
	return out, nil
}

// BuildOptions carries what the built-in adapters need.
type BuildOptions struct {
	Proxies       []string
	Timeout       time.Duration
	RatePerSecond float64
	Adzuna        adzuna.Config
}

// Build registers every built-in adapter.
func Build(opts BuildOptions) (*Registry, error) {
	var rotator *network.Rotator
	if len(opts.Proxies) > 0 {
		var err error
		rotator, err = network.NewRotator(opts.Proxies, 10*time.Minute)
		if err != nil {
			return nil, err
		}
	}

	makeClient := func() (*network.Client, error) {
		return network.NewClient(rotator, network.Options{
			Timeout:       opts.Timeout,
			RatePerSecond: opts.RatePerSecond,
		})
	}

	linkedIn, err := makeClient()
	if err != nil {
		return nil, err
	}
	indeed, err := makeClient()
	if err != nil {
		return nil, err
	}
	glassdoor, err := makeClient()
	if err != nil {
		return nil, err
	}

	adzunaCfg := opts.Adzuna
	if adzunaCfg.HTTPClient == nil {
		adzunaCfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if adzunaCfg.Limiter == nil {
		adzunaCfg.Limiter = network.NewLimiter(opts.RatePerSecond)
	}
	var adzunaClient searchClient
	client, err := adzuna.NewClient(adzunaCfg)
	switch {
	case err == nil:
		adzunaClient = client
	case !errors.Is(err, adzuna.ErrMissingCredentials):
		return nil, err
	}

	return NewRegistry(
		NewAdzuna(adzunaClient),
		NewLinkedIn(linkedIn),
		NewIndeed(indeed),
		NewGlassdoor(glassdoor),
	)
}

func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "www.")
}

// NormalizeNames trims and lowercases names, dropping blanks and repeats.
func NormalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = NormalizeName(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
