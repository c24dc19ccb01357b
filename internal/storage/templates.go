package storage

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// Pool is an ordered collection of templates for one image field
type Pool struct {
	prefix    string
	templates []models.Template
	next      int
	mu        sync.RWMutex
}

func newPool(prefix string) *Pool {
	return &Pool{prefix: prefix, templates: []models.Template{}, next: 1}
}

// Create validates and appends a new template with a fresh id
func (p *Pool) Create(name, template string) (models.Template, error) {
	if err := validate(name, template); err != nil {
		return models.Template{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	t := models.Template{
		ID:       p.prefix + "_" + strconv.Itoa(p.next),
		Name:     name,
		Template: template,
	}
	p.next++
	p.templates = append(p.templates, t)
	return t, nil
}

// Update replaces the name and pattern of an existing template in place
func (p *Pool) Update(id, name, template string) (models.Template, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(id)
	if i < 0 {
		return models.Template{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err := validate(name, template); err != nil {
		return models.Template{}, err
	}
	p.templates[i].Name = name
	p.templates[i].Template = template
	return p.templates[i], nil
}

// Delete removes a template. Images referencing it keep the stale id.
func (p *Pool) Delete(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOf(id)
	if i < 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	p.templates = append(p.templates[:i], p.templates[i+1:]...)
	return nil
}

// Get returns the live template with the given id
func (p *Pool) Get(id string) (models.Template, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	i := p.indexOf(id)
	if i < 0 {
		return models.Template{}, false
	}
	return p.templates[i], true
}

// List returns a copy of the pool in insertion order; never nil
func (p *Pool) List() []models.Template {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]models.Template, len(p.templates))
	copy(result, p.templates)
	return result
}

// Len returns the number of live templates
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.templates)
}

func (p *Pool) indexOf(id string) int {
	for i := range p.templates {
		if p.templates[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Pool) snapshot() PoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	templates := make([]models.Template, len(p.templates))
	copy(templates, p.templates)
	return PoolSnapshot{Next: p.next, Templates: templates}
}

func (p *Pool) restore(s PoolSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.templates = make([]models.Template, len(s.Templates))
	copy(p.templates, s.Templates)

	// never hand out an id that is already live, even if the stored counter lags
	p.next = max(s.Next, 1)
	for _, t := range p.templates {
		if n, ok := p.seq(t.ID); ok && n >= p.next {
			p.next = n + 1
		}
	}
}

func (p *Pool) seq(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, p.prefix+"_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

func validate(name, template string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("template name is required: %w", ErrValidation)
	}
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("template string is required: %w", ErrValidation)
	}
	return nil
}

// TemplateStore holds the alt text and filename template pools
type TemplateStore struct {
	alt      *Pool
	filename *Pool
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		alt:      newPool("alt"),
		filename: newPool("filename"),
	}
}

// Pool returns the pool for a field
func (s *TemplateStore) Pool(field models.Field) *Pool {
	if field == models.FieldFilename {
		return s.filename
	}
	return s.alt
}

// Snapshot copies both pools for persistence
func (s *TemplateStore) Snapshot() Snapshot {
	return Snapshot{Alt: s.alt.snapshot(), Filename: s.filename.snapshot()}
}

// Restore replaces both pools with the snapshot contents
func (s *TemplateStore) Restore(snap Snapshot) {
	s.alt.restore(snap.Alt)
	s.filename.restore(snap.Filename)
}

// PoolSnapshot is the persisted form of a Pool
type PoolSnapshot struct {
	Next      int               `yaml:"next"`
	Templates []models.Template `yaml:"templates"`
}

// Snapshot is the persisted form of a TemplateStore
type Snapshot struct {
	Alt      PoolSnapshot `yaml:"alt"`
	Filename PoolSnapshot `yaml:"filename"`
}
