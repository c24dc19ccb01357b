// Package session holds the operator's working state: the template pools, the
// fetched products, and the apply/clear operations that mutate image metadata.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/alttext/internal/catalog"
	"github.com/lehigh-university-libraries/alttext/internal/coverage"
	"github.com/lehigh-university-libraries/alttext/internal/filenames"
	"github.com/lehigh-university-libraries/alttext/internal/models"
	"github.com/lehigh-university-libraries/alttext/internal/storage"
	"github.com/lehigh-university-libraries/alttext/internal/templating"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrImageNotFound   = errors.New("image not found")
)

// ErrorPolicy decides what a bulk run does after a failed push
type ErrorPolicy int

const (
	// StopOnError leaves earlier images updated and skips the rest
	StopOnError ErrorPolicy = iota
	// ContinueOnError attempts every image and reports each outcome
	ContinueOnError
)

func (p ErrorPolicy) String() string {
	if p == ContinueOnError {
		return "continue"
	}
	return "stop"
}

func (p ErrorPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ErrorPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stop", "":
		*p = StopOnError
	case "continue":
		*p = ContinueOnError
	default:
		return fmt.Errorf("unknown error policy: %s (expected stop or continue)", text)
	}
	return nil
}

// Outcome is the result of applying (or clearing) one image field
type Outcome struct {
	ImageID    string       `json:"image_id" yaml:"image_id"`
	Field      models.Field `json:"field" yaml:"field"`
	TemplateID string       `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	Value      string       `json:"value" yaml:"value"`
	// Pushed is false when the remote catalog rejected or never received the update
	Pushed bool `json:"pushed" yaml:"pushed"`
	// Updated reports whether the local image was changed
	Updated bool `json:"updated" yaml:"updated"`
	// Skipped is set when the template no longer exists
	Skipped bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// Local is set when nothing was sent to the catalog: filename clears, and
	// sessions built without an updater
	Local bool `json:"local,omitempty" yaml:"local,omitempty"`
}

// Failed reports a push that was attempted and did not succeed
func (o Outcome) Failed() bool {
	return !o.Skipped && !o.Local && !o.Pushed
}

// Run is one bulk operation over a product's images
type Run struct {
	ID        string       `json:"id" yaml:"id"`
	ProductID string       `json:"product_id" yaml:"product_id"`
	Field     models.Field `json:"field" yaml:"field"`
	Policy    ErrorPolicy  `json:"policy" yaml:"policy"`
	Outcomes  []Outcome    `json:"outcomes" yaml:"outcomes"`
	// Stopped is set when StopOnError ended the run early
	Stopped bool `json:"stopped,omitempty" yaml:"stopped,omitempty"`
}

// Failed counts outcomes whose push did not succeed
func (r *Run) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Session is the application state for one operator
type Session struct {
	Templates *storage.TemplateStore
	Products  *storage.ProductSet

	// ConfirmedWrites only updates local state after the catalog accepts the push.
	// The default keeps the optimistic behaviour: local state is updated regardless.
	ConfirmedWrites bool

	resolver *templating.Resolver
	updater  catalog.Updater
}

// New creates a Session; a nil resolver uses the default random source. A nil
// updater keeps every change local and reports it with Outcome.Local.
func New(templates *storage.TemplateStore, resolver *templating.Resolver, updater catalog.Updater) *Session {
	if templates == nil {
		templates = storage.NewTemplateStore()
	}
	if resolver == nil {
		resolver = templating.NewResolver(nil)
	}
	return &Session{
		Templates: templates,
		Products:  storage.NewProductSet(),
		resolver:  resolver,
		updater:   updater,
	}
}

// Load replaces the working set with freshly fetched products
func (s *Session) Load(ctx context.Context, fetcher catalog.Fetcher, ids ...string) error {
	products, err := fetcher.FetchProducts(ctx, ids...)
	if err != nil {
		return fmt.Errorf("failed to fetch products: %w", err)
	}
	s.Products.Replace(products)
	slog.Info("Loaded products", "count", len(products))
	return nil
}

func (s *Session) product(productID string) (*models.Product, error) {
	p, ok := s.Products.Get(productID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", productID, ErrProductNotFound)
	}
	return p, nil
}

// Preview renders a template string for the image at index without changing anything
func (s *Session) Preview(productID, tmpl string, field models.Field, index int) (string, error) {
	p, err := s.product(productID)
	if err != nil {
		return "", err
	}
	rendered := templating.Render(tmpl, s.resolver.Resolve(p, index), templating.ModeFor(field))
	if field == models.FieldFilename && rendered != "" {
		rendered = filenames.NewGuard().Finalize(rendered, p.ID, "")
	}
	return rendered, nil
}

// Apply renders the template onto one image field and pushes it to the catalog
func (s *Session) Apply(ctx context.Context, productID, imageID, templateID string, field models.Field) (Outcome, error) {
	p, err := s.product(productID)
	if err != nil {
		return Outcome{}, err
	}
	idx := p.ImageIndex(imageID)
	if idx < 0 {
		return Outcome{}, fmt.Errorf("%s: %w", imageID, ErrImageNotFound)
	}

	var guard *filenames.Guard
	if field == models.FieldFilename {
		guard = siblingGuard(p)
	}

	tmpl, ok := s.Templates.Pool(field).Get(templateID)
	if !ok {
		return s.skip(p, idx, templateID, field), nil
	}
	return s.applyAt(ctx, p, idx, tmpl, field, guard), nil
}

// ApplyAll applies one template to every image of a product in order
func (s *Session) ApplyAll(ctx context.Context, productID, templateID string, field models.Field, policy ErrorPolicy) (*Run, error) {
	p, err := s.product(productID)
	if err != nil {
		return nil, err
	}

	run := newRun(p.ID, field, policy)
	tmpl, ok := s.Templates.Pool(field).Get(templateID)
	if !ok {
		slog.Warn("Template not found, nothing applied", "template_id", templateID, "field", field)
		for i := range p.Images {
			run.Outcomes = append(run.Outcomes, s.skip(p, i, templateID, field))
		}
		return run, nil
	}

	var guard *filenames.Guard
	if field == models.FieldFilename {
		guard = siblingGuard(p)
	}

	for i := range p.Images {
		outcome := s.applyAt(ctx, p, i, tmpl, field, guard)
		run.Outcomes = append(run.Outcomes, outcome)
		if outcome.Failed() && policy == StopOnError {
			run.Stopped = i < len(p.Images)-1
			slog.Warn("Stopping bulk apply after failed push",
				"run_id", run.ID, "product_id", productID, "image_id", outcome.ImageID,
				"remaining", len(p.Images)-i-1)
			break
		}
	}

	slog.Info("Bulk apply finished",
		"run_id", run.ID,
		"product_id", productID,
		"template_id", templateID,
		"field", field,
		"images", len(run.Outcomes),
		"failed", run.Failed())
	return run, nil
}

// Plan renders a stored template for every image the way ApplyAll would,
// including filename disambiguation, without pushing or changing anything
func (s *Session) Plan(productID, templateID string, field models.Field) ([]Outcome, error) {
	p, err := s.product(productID)
	if err != nil {
		return nil, err
	}
	tmpl, ok := s.Templates.Pool(field).Get(templateID)
	if !ok {
		return nil, fmt.Errorf("template %s: %w", templateID, storage.ErrNotFound)
	}

	var guard *filenames.Guard
	if field == models.FieldFilename {
		guard = siblingGuard(p)
	}
	outcomes := make([]Outcome, 0, len(p.Images))
	for i := range p.Images {
		img := &p.Images[i]
		value := templating.Render(tmpl.Template, s.resolver.Resolve(p, i), templating.ModeFor(field))
		if guard != nil {
			guard.Release(img.Filename)
			value = guard.Finalize(value, p.ID, img.ID)
		}
		outcomes = append(outcomes, Outcome{ImageID: img.ID, Field: field, TemplateID: tmpl.ID, Value: value})
	}
	return outcomes, nil
}

// Clear empties a field on every image of a product. Alt text is set to "" and
// pushed; for filenames only the applied-template reference is cleared because
// the catalog cannot hold an empty filename.
func (s *Session) Clear(ctx context.Context, productID string, field models.Field, policy ErrorPolicy) (*Run, error) {
	p, err := s.product(productID)
	if err != nil {
		return nil, err
	}

	run := newRun(p.ID, field, policy)
	for i := range p.Images {
		img := &p.Images[i]
		if field == models.FieldFilename {
			img.SetTemplateRef(field, nil)
			run.Outcomes = append(run.Outcomes, Outcome{ImageID: img.ID, Field: field, Value: img.Filename, Local: true, Updated: true})
			continue
		}

		outcome := s.set(ctx, p, img, field, "", nil)
		run.Outcomes = append(run.Outcomes, outcome)
		if outcome.Failed() && policy == StopOnError {
			run.Stopped = i < len(p.Images)-1
			break
		}
	}
	slog.Info("Cleared field", "run_id", run.ID, "product_id", productID, "field", field, "failed", run.Failed())
	return run, nil
}

// SetAlt stores free-form alt text (not from a template) on one image
func (s *Session) SetAlt(ctx context.Context, productID, imageID, value string) (Outcome, error) {
	p, err := s.product(productID)
	if err != nil {
		return Outcome{}, err
	}
	idx := p.ImageIndex(imageID)
	if idx < 0 {
		return Outcome{}, fmt.Errorf("%s: %w", imageID, ErrImageNotFound)
	}
	return s.set(ctx, p, &p.Images[idx], models.FieldAlt, value, nil), nil
}

// Coverage summarizes the whole working set
func (s *Session) Coverage() coverage.Summary {
	return coverage.Aggregate(s.Products.GetAll())
}

// ProductCoverage summarizes a single product
func (s *Session) ProductCoverage(productID string) (coverage.Summary, error) {
	p, err := s.product(productID)
	if err != nil {
		return coverage.Summary{}, err
	}
	return coverage.AggregateProduct(p), nil
}

// PerProduct returns the list-view summaries in fetch order
func (s *Session) PerProduct() []coverage.ProductSummary {
	return coverage.PerProduct(s.Products.GetAll())
}

func (s *Session) applyAt(ctx context.Context, p *models.Product, idx int, tmpl models.Template, field models.Field, guard *filenames.Guard) Outcome {
	img := &p.Images[idx]
	value := templating.Render(tmpl.Template, s.resolver.Resolve(p, idx), templating.ModeFor(field))

	if guard != nil {
		old := img.Filename
		guard.Release(old)
		value = guard.Finalize(value, p.ID, img.ID)
		outcome := s.set(ctx, p, img, field, value, &tmpl.ID)
		if !outcome.Updated {
			// the image keeps its old name, so hold that instead
			guard.Release(value)
			guard.Register(old)
		}
		return outcome
	}

	return s.set(ctx, p, img, field, value, &tmpl.ID)
}

// set pushes value and updates the local image according to ConfirmedWrites
func (s *Session) set(ctx context.Context, p *models.Product, img *models.Image, field models.Field, value string, templateID *string) Outcome {
	outcome := Outcome{ImageID: img.ID, Field: field, Value: value}
	if templateID != nil {
		outcome.TemplateID = *templateID
	}

	if s.updater == nil {
		outcome.Local = true
	} else {
		outcome.Pushed = s.updater.PushImageField(ctx, p.ID, img.ID, field, value)
	}
	if outcome.Failed() {
		slog.Warn("Catalog update failed", "product_id", p.ID, "image_id", img.ID, "field", field)
		if s.ConfirmedWrites {
			return outcome
		}
	}

	if field == models.FieldFilename {
		img.Filename = value
	} else {
		img.Alt = value
	}
	var ref *string
	if templateID != nil {
		id := *templateID
		ref = &id
	}
	img.SetTemplateRef(field, ref)
	outcome.Updated = true
	return outcome
}

// skip reports a dangling template reference as "no template selected"
func (s *Session) skip(p *models.Product, idx int, templateID string, field models.Field) Outcome {
	slog.Debug("Template not found, treating as no template", "template_id", templateID, "field", field, "product_id", p.ID)
	return Outcome{ImageID: p.Images[idx].ID, Field: field, TemplateID: templateID, Skipped: true}
}

func newRun(productID string, field models.Field, policy ErrorPolicy) *Run {
	return &Run{
		ID:        uuid.NewString(),
		ProductID: productID,
		Field:     field,
		Policy:    policy,
		Outcomes:  []Outcome{},
	}
}

// siblingGuard seeds a Guard with every image's current filename
func siblingGuard(p *models.Product) *filenames.Guard {
	existing := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		existing = append(existing, img.Filename)
	}
	return filenames.NewGuard(existing...)
}
