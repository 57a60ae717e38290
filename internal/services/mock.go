package services

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"sync"

	"event-template-platform/internal/models"
)

// MockTemplateService is an in-memory TemplateServiceInterface for tests and
// demos. It stores documents by doctype and name and records every create.
type MockTemplateService struct {
	mu sync.Mutex

	docs   map[string]models.Document
	counts map[string]int
	nextID int

	// CreateErr and SaveErr, when set, are returned by the create calls.
	CreateErr error
	SaveErr   error
	// Block, when set for a doctype, holds CountLinked until it is closed.
	Block map[string]chan struct{}
	// BeforeCreate, when set, runs at the start of both create calls.
	BeforeCreate func()

	Creates []MockCreate
	Saves   []MockSave
}

// MockCreate records a CreateFromTemplate call.
type MockCreate struct {
	User     int
	Template string
	Options  []string
	Fields   map[string]string
}

// MockSave records a CreateTemplateFromEvent call.
type MockSave struct {
	User     int
	Event    string
	Template string
	Options  []string
}

// NewMockTemplateService returns an empty mock. Event names start at 101.
func NewMockTemplateService() *MockTemplateService {
	return &MockTemplateService{
		docs:   make(map[string]models.Document),
		counts: make(map[string]int),
		nextID: 101,
		Block:  make(map[string]chan struct{}),
	}
}

func docKey(doctype, name string) string {
	return doctype + "\x00" + name
}

// Put stores doc under its name.
func (m *MockTemplateService) Put(doctype string, doc models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docKey(doctype, doc.Name())] = maps.Clone(doc)
}

// SetCount sets the number of doctype records linked to event.
func (m *MockTemplateService) SetCount(doctype, event string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[docKey(doctype, event)] = n
}

func (m *MockTemplateService) FetchDocument(ctx context.Context, doctype, name string) (models.Document, error) {
	if err := requireUser(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docKey(doctype, name)]
	if !ok {
		return nil, fmt.Errorf("%s %s not found: %w", doctype, name, models.ErrNotFound)
	}
	return maps.Clone(doc), nil
}

func (m *MockTemplateService) CountLinked(ctx context.Context, doctype, event string) (int, error) {
	if err := requireUser(ctx); err != nil {
		return 0, err
	}
	m.mu.Lock()
	block := m.Block[doctype]
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[docKey(doctype, event)], nil
}

func (m *MockTemplateService) CreateFromTemplate(ctx context.Context, templateName string, options []string, additional map[string]string) (string, error) {
	if err := requireUser(ctx); err != nil {
		return "", err
	}
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Creates = append(m.Creates, MockCreate{
		User:     models.UserFromContext(ctx).ID,
		Template: templateName,
		Options:  options,
		Fields:   maps.Clone(additional),
	})
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if _, ok := m.docs[docKey(models.DoctypeTemplate, templateName)]; !ok {
		return "", fmt.Errorf("Event Template %s not found: %w", templateName, models.ErrNotFound)
	}
	name := strconv.Itoa(m.nextID)
	m.nextID++
	m.docs[docKey(models.DoctypeEvent, name)] = models.Document{"name": name}
	return name, nil
}

func (m *MockTemplateService) CreateTemplateFromEvent(ctx context.Context, eventName, templateName string, options []string) (string, error) {
	if err := requireUser(ctx); err != nil {
		return "", err
	}
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves = append(m.Saves, MockSave{
		User:     models.UserFromContext(ctx).ID,
		Event:    eventName,
		Template: templateName,
		Options:  options,
	})
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	if _, ok := m.docs[docKey(models.DoctypeTemplate, templateName)]; ok {
		return "", models.NewValidationError(fmt.Sprintf("Event Template %s already exists", templateName))
	}
	m.docs[docKey(models.DoctypeTemplate, templateName)] = models.Document{"name": templateName, "template_name": templateName}
	return templateName, nil
}

// CreateCalls returns a copy of the recorded CreateFromTemplate calls.
func (m *MockTemplateService) CreateCalls() []MockCreate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCreate(nil), m.Creates...)
}

// SaveCalls returns a copy of the recorded CreateTemplateFromEvent calls.
func (m *MockTemplateService) SaveCalls() []MockSave {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockSave(nil), m.Saves...)
}

func requireUser(ctx context.Context) error {
	if models.UserFromContext(ctx) == nil {
		return models.ErrUnauthorized
	}
	return nil
}

var _ TemplateServiceInterface = (*MockTemplateService)(nil)
