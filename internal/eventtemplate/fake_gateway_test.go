package eventtemplate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"event-template-platform/internal/models"
)

type createCall struct {
	Template  string
	Selected  []string
	Overrides map[string]string
}

type saveCall struct {
	Event        string
	TemplateName string
	Selected     []string
}

// fakeGateway is an in-memory Gateway. Count lookups can be held back per
// doctype with block so tests control the order they resolve in.
type fakeGateway struct {
	mu        sync.Mutex
	docs      map[string]models.Document
	counts    map[string]int
	countErrs map[string]error
	block     map[string]chan struct{}
	createErr error
	saveErr   error

	creates []createCall
	saves   []saveCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		docs:      make(map[string]models.Document),
		counts:    make(map[string]int),
		countErrs: make(map[string]error),
		block:     make(map[string]chan struct{}),
	}
}

func (f *fakeGateway) put(doctype string, doc models.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doctype+"/"+doc.Name()] = doc
}

func (f *fakeGateway) FetchDocument(ctx context.Context, doctype, name string) (models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[doctype+"/"+name]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", doctype, name, models.ErrNotFound)
	}
	return doc, nil
}

func (f *fakeGateway) CountLinked(ctx context.Context, doctype, event string) (int, error) {
	f.mu.Lock()
	ch := f.block[doctype]
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.countErrs[doctype]; err != nil {
		return 0, err
	}
	return f.counts[doctype], nil
}

func (f *fakeGateway) CreateFromTemplate(ctx context.Context, templateName string, selected []string, overrides map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{Template: templateName, Selected: selected, Overrides: overrides})
	if f.createErr != nil {
		return "", f.createErr
	}
	return fmt.Sprintf("%d", 100+len(f.creates)), nil
}

func (f *fakeGateway) CreateTemplateFromEvent(ctx context.Context, eventName, templateName string, selected []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, saveCall{Event: eventName, TemplateName: templateName, Selected: selected})
	if f.saveErr != nil {
		return "", f.saveErr
	}
	return templateName, nil
}

var errNetwork = errors.New("connection reset")
