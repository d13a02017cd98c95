package breeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultHintSample = 5
)

// ErrCatalogUnavailable is returned when the breed catalog cannot be reached
// or returns an unusable payload. It is never treated as a pass.
var ErrCatalogUnavailable = errors.New("breed catalog unavailable")

// InvalidBreedError reports a breed name that is not in the catalog, with a
// sample of valid names as a hint.
type InvalidBreedError struct {
	Breed  string
	Sample []string
}

func (e InvalidBreedError) Error() string {
	if len(e.Sample) == 0 {
		return fmt.Sprintf("invalid breed %q", e.Breed)
	}
	return fmt.Sprintf("invalid breed %q; valid breeds include: %s", e.Breed, strings.Join(e.Sample, ", "))
}

// Catalog lists valid breed names. Injected so it can be faked in tests and
// so its failure modes stay explicit.
type Catalog interface {
	ListBreedNames(ctx context.Context) ([]string, error)
}

// HTTPCatalog fetches breed names from a catalog service endpoint returning
// a JSON array of objects with a "name" field.
type HTTPCatalog struct {
	URL    string
	Client *http.Client
}

// NewHTTPCatalog builds a catalog client with a bounded request timeout.
func NewHTTPCatalog(url string, timeout time.Duration) *HTTPCatalog {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPCatalog{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCatalog) ListBreedNames(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrCatalogUnavailable, res.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrCatalogUnavailable, err)
	}
	var entries []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrCatalogUnavailable, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		names = append(names, e.Name)
	}
	return names, nil
}

// Validator checks candidate breed names against the catalog. Every call
// re-fetches; there is no caching.
type Validator struct {
	Catalog    Catalog
	SampleSize int
}

// Validate returns nil when breed is a case-insensitive member of the
// catalog, an InvalidBreedError when it is not, and ErrCatalogUnavailable
// when the catalog cannot answer.
func (v Validator) Validate(ctx context.Context, breed string) error {
	names, err := v.Catalog.ListBreedNames(ctx)
	if err != nil {
		return err
	}
	candidate := strings.ToLower(breed)
	for _, n := range names {
		if strings.ToLower(n) == candidate {
			return nil
		}
	}
	sample := v.SampleSize
	if sample <= 0 {
		sample = defaultHintSample
	}
	if sample > len(names) {
		sample = len(names)
	}
	return InvalidBreedError{Breed: breed, Sample: names[:sample]}
}
