package eventtemplate

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"event-template-platform/internal/models"
)

// Option is one checkable entry in a dialog.
type Option struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Selected   bool   `json:"selected"`
	Selectable bool   `json:"selectable"`
	Loading    bool   `json:"loading,omitempty"`
	Count      *int   `json:"count,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Section is a labelled list of options.
type Section struct {
	ID      GroupID  `json:"id"`
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// Selection maps option names to their checked state.
type Selection map[string]bool

// HasValue reports whether a document value is worth copying: nil, "",
// numeric zero, false and empty sequences are not.
func HasValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return HasValue(rv.Elem().Interface())
	}
	return true
}

// SelectedOptions decodes an options object, keeping the names whose value
// is set. Names are returned sorted.
func SelectedOptions(options map[string]any) []string {
	var names []string
	for name, v := range options {
		if HasValue(v) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// RenderGroup computes an option per field of g. Fields without a value are
// disabled and unselected since there is nothing to copy.
func RenderGroup(g Group, doc models.Document) Section {
	section := Section{ID: g.ID, Label: g.Label, Options: make([]Option, 0, len(g.Fields))}
	for _, f := range g.Fields {
		has := HasValue(doc[f.Name])
		opt := Option{
			Name:       f.Name,
			Label:      Label(f.Name),
			Selected:   has,
			Selectable: has,
		}
		if !has {
			opt.Note = "(Not set)"
		}
		section.Options = append(section.Options, opt)
	}
	return section
}

// CountOption renders a linked-record option from its row count.
func CountOption(name string, count int) Option {
	if count < 0 {
		count = 0
	}
	opt := Option{
		Name:       name,
		Label:      Label(name),
		Selected:   count > 0,
		Selectable: count > 0,
		Count:      &count,
	}
	if count > 0 {
		opt.Note = fmt.Sprintf("(%d)", count)
	} else {
		opt.Note = "(None)"
	}
	return opt
}

// LoadingOption is the placeholder shown until a count lookup resolves.
func LoadingOption(name string) Option {
	return Option{
		Name:    name,
		Label:   Label(name),
		Loading: true,
		Note:    "Loading...",
	}
}

// TemplateOptions renders every section for a template document. Linked
// record counts come from the template's own child tables.
func TemplateOptions(doc models.Document) OptionSet {
	var set OptionSet
	for _, g := range Groups() {
		set.Sections = append(set.Sections, RenderGroup(g, doc))
	}

	rel := Section{ID: GroupRelated, Label: relatedLabel}
	for _, r := range related {
		rel.Options = append(rel.Options, CountOption(r.Name, doc.Rows(r.TemplateField)))
	}
	set.Sections = append(set.Sections, rel)
	return set
}

// EventOptions renders every section for an event document. Payment gateways
// are counted from the event; the other linked records start as loading
// placeholders to be resolved with OptionSet.Resolve.
func EventOptions(doc models.Document) OptionSet {
	var set OptionSet
	for _, g := range Groups() {
		set.Sections = append(set.Sections, RenderGroup(g, doc))
	}

	rel := Section{ID: GroupRelated, Label: relatedLabel}
	for _, r := range related {
		if r.Doctype == "" {
			rel.Options = append(rel.Options, CountOption(r.Name, doc.Rows(r.TemplateField)))
			continue
		}
		rel.Options = append(rel.Options, LoadingOption(r.Name))
	}
	set.Sections = append(set.Sections, rel)
	return set
}

// OptionSet holds the rendered sections together with their selection state.
type OptionSet struct {
	Sections []Section `json:"sections"`
}

func (s *OptionSet) find(name string) *Option {
	for i := range s.Sections {
		for j := range s.Sections[i].Options {
			if s.Sections[i].Options[j].Name == name {
				return &s.Sections[i].Options[j]
			}
		}
	}
	return nil
}

// Option returns a copy of the named option.
func (s *OptionSet) Option(name string) (Option, bool) {
	if opt := s.find(name); opt != nil {
		return *opt, true
	}
	return Option{}, false
}

// Toggle sets the checked state of one option. Disabled options can be
// unchecked but never checked.
func (s *OptionSet) Toggle(name string, selected bool) error {
	opt := s.find(name)
	if opt == nil {
		return fmt.Errorf("%w: %s", ErrUnknownOption, name)
	}
	if selected && !opt.Selectable {
		return fmt.Errorf("%w: %s", ErrOptionDisabled, name)
	}
	opt.Selected = selected
	return nil
}

// SelectAll checks every enabled option.
func (s *OptionSet) SelectAll() {
	s.each(func(o *Option) {
		if o.Selectable {
			o.Selected = true
		}
	})
}

// UnselectAll clears every option.
func (s *OptionSet) UnselectAll() {
	s.each(func(o *Option) { o.Selected = false })
}

// Resolve replaces the loading placeholder called name with a count option.
// It reports false if there is no such pending placeholder.
func (s *OptionSet) Resolve(name string, count int) bool {
	opt := s.find(name)
	if opt == nil || !opt.Loading {
		return false
	}
	*opt = CountOption(name, count)
	return true
}

// Pending returns the names of options still waiting for a count.
func (s *OptionSet) Pending() []string {
	var out []string
	s.each(func(o *Option) {
		if o.Loading {
			out = append(out, o.Name)
		}
	})
	return out
}

// Selection returns the checked state of every option.
func (s *OptionSet) Selection() Selection {
	sel := make(Selection)
	s.each(func(o *Option) { sel[o.Name] = o.Selected })
	return sel
}

// Selected returns the names of checked options in display order.
func (s *OptionSet) Selected() []string {
	var out []string
	s.each(func(o *Option) {
		if o.Selected {
			out = append(out, o.Name)
		}
	})
	return out
}

// Clone returns a deep copy.
func (s *OptionSet) Clone() OptionSet {
	out := OptionSet{Sections: make([]Section, len(s.Sections))}
	for i, sec := range s.Sections {
		opts := make([]Option, len(sec.Options))
		for j, o := range sec.Options {
			if o.Count != nil {
				n := *o.Count
				o.Count = &n
			}
			opts[j] = o
		}
		out.Sections[i] = Section{ID: sec.ID, Label: sec.Label, Options: opts}
	}
	return out
}

func (s *OptionSet) each(fn func(*Option)) {
	for i := range s.Sections {
		for j := range s.Sections[i].Options {
			fn(&s.Sections[i].Options[j])
		}
	}
}
