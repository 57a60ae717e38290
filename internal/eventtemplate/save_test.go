package eventtemplate

import (
	"context"
	"sync"
	"testing"
	"time"

	"event-template-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summerFest() models.Document {
	return models.Document{
		"name":     "42",
		"title":    "Summer Fest",
		"category": "Music",
		"host":     "City Arts",
		"payment_gateways": []any{
			map[string]any{"payment_gateway": "Razorpay"},
		},
	}
}

func countingGateway() *fakeGateway {
	gw := newFakeGateway()
	gw.put(models.DoctypeEvent, summerFest())
	gw.counts[models.DoctypeTicketType] = 2
	gw.counts[models.DoctypeAddOn] = 0
	gw.counts[models.DoctypeCustomField] = 4
	return gw
}

func TestOpenSaveDialog(t *testing.T) {
	d, err := OpenSaveDialog(context.Background(), countingGateway(), "42")
	require.NoError(t, err)

	v := d.View()
	assert.Equal(t, StateLoaded, v.State)
	assert.Equal(t, "42", v.Event)
	assert.Equal(t, "Summer Fest Template", v.TemplateName)
	assert.Equal(t, "Save Template", v.SubmitLabel)
	assert.Equal(t, "Creating Template...", v.BusyMessage)

	tt, _ := d.Snapshot().Options.Option("ticket_types")
	assert.True(t, tt.Loading)
	assert.Equal(t, "Loading...", tt.Note)
}

func TestOpenSaveDialog_MissingEvent(t *testing.T) {
	_, err := OpenSaveDialog(context.Background(), newFakeGateway(), "7")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDefaultTemplateName(t *testing.T) {
	assert.Equal(t, "Summer Fest Template", DefaultTemplateName(models.Document{"title": " Summer Fest "}))
	assert.Empty(t, DefaultTemplateName(models.Document{}))
}

func TestSaveDialog_LoadCounts(t *testing.T) {
	d := NewSaveDialog(countingGateway(), summerFest())

	require.NoError(t, d.LoadCounts(context.Background()))

	opts := d.Snapshot().Options
	assert.Empty(t, opts.Pending())

	tt, _ := opts.Option("ticket_types")
	assert.True(t, tt.Selected)
	assert.True(t, tt.Selectable)
	assert.Equal(t, "(2)", tt.Note)

	addOns, _ := opts.Option("add_ons")
	assert.False(t, addOns.Loading)
	assert.False(t, addOns.Selected)
	assert.False(t, addOns.Selectable)
	assert.Equal(t, "(None)", addOns.Note)

	cf, _ := opts.Option("custom_fields")
	assert.Equal(t, 4, *cf.Count)
}

func TestSaveDialog_CountErrorCountsAsZero(t *testing.T) {
	gw := countingGateway()
	gw.countErrs[models.DoctypeCustomField] = errNetwork
	d := NewSaveDialog(gw, summerFest())

	err := d.LoadCounts(context.Background())

	assert.ErrorIs(t, err, errNetwork)
	cf, _ := d.Snapshot().Options.Option("custom_fields")
	assert.False(t, cf.Loading)
	assert.False(t, cf.Selectable)
	assert.Equal(t, 0, *cf.Count)
	tt, _ := d.Snapshot().Options.Option("ticket_types")
	assert.True(t, tt.Selected)
}

func TestSaveDialog_CountTimeoutCountsAsZero(t *testing.T) {
	gw := countingGateway()
	gw.block[models.DoctypeAddOn] = make(chan struct{})
	gw.counts[models.DoctypeAddOn] = 5
	d := NewSaveDialog(gw, summerFest())
	d.CountTimeout = 20 * time.Millisecond

	err := d.LoadCounts(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)

	addOns, _ := d.Snapshot().Options.Option("add_ons")
	assert.False(t, addOns.Loading)
	assert.Equal(t, 0, *addOns.Count)
}

func TestSaveDialog_OutOfOrderResolution(t *testing.T) {
	gw := countingGateway()
	for _, doctype := range []string{models.DoctypeTicketType, models.DoctypeAddOn, models.DoctypeCustomField} {
		gw.block[doctype] = make(chan struct{})
	}
	d := NewSaveDialog(gw, summerFest())

	var mu sync.Mutex
	var order []string
	resolved := make(chan struct{}, 3)
	d.OnResolve(func(o Option) {
		mu.Lock()
		order = append(order, o.Name)
		mu.Unlock()
		resolved <- struct{}{}
	})

	done := make(chan struct{})
	go func() {
		d.LoadCounts(context.Background())
		close(done)
	}()

	// release in reverse of display order
	for _, doctype := range []string{models.DoctypeCustomField, models.DoctypeAddOn, models.DoctypeTicketType} {
		close(gw.block[doctype])
		<-resolved
	}
	<-done

	assert.Equal(t, []string{"custom_fields", "add_ons", "ticket_types"}, order)

	opts := d.Snapshot().Options
	tt, _ := opts.Option("ticket_types")
	assert.Equal(t, 2, *tt.Count)
	addOns, _ := opts.Option("add_ons")
	assert.Equal(t, 0, *addOns.Count)
	cf, _ := opts.Option("custom_fields")
	assert.Equal(t, 4, *cf.Count)
}

func TestSaveDialog_SelectAllSkipsLoading(t *testing.T) {
	d := NewSaveDialog(countingGateway(), summerFest())

	require.NoError(t, d.UnselectAll())
	require.NoError(t, d.SelectAll())

	assert.NotContains(t, d.Snapshot().Options.Selected(), "ticket_types")
	assert.Contains(t, d.Snapshot().Options.Selected(), "payment_gateways")
}

func TestSaveDialog_Submit(t *testing.T) {
	gw := countingGateway()
	d := NewSaveDialog(gw, summerFest())
	require.NoError(t, d.LoadCounts(context.Background()))
	require.NoError(t, d.Toggle("host", false))
	require.NoError(t, d.SetTemplateName("Festival Base"))

	name, err := d.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Festival Base", name)
	require.Len(t, gw.saves, 1)
	assert.Equal(t, "42", gw.saves[0].Event)
	assert.Equal(t, []string{"category", "payment_gateways", "ticket_types", "custom_fields"}, gw.saves[0].Selected)

	v := d.View()
	assert.Equal(t, StateDone, v.State)
	assert.Equal(t, "Template Festival Base created successfully", v.SuccessMessage)
	assert.Equal(t, "/app/event-template/Festival%20Base", v.Route)
}

func TestSaveDialog_SubmitRequiresName(t *testing.T) {
	gw := countingGateway()
	d := NewSaveDialog(gw, summerFest())
	require.NoError(t, d.SetTemplateName("   "))

	_, err := d.Submit(context.Background())

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"template_name"}, ve.Fields)
	assert.Empty(t, gw.saves)
	assert.Equal(t, StateLoaded, d.State())
}

func TestSaveDialog_SubmitFailureThenRetry(t *testing.T) {
	gw := countingGateway()
	gw.saveErr = models.ErrDuplicateEntry
	d := NewSaveDialog(gw, summerFest())

	_, err := d.Submit(context.Background())
	require.ErrorIs(t, err, models.ErrDuplicateEntry)
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, "Summer Fest Template", d.View().TemplateName)

	gw.saveErr = nil
	require.NoError(t, d.SetTemplateName("Summer Fest 2"))
	name, err := d.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Summer Fest 2", name)
}

func TestSaveDialog_ClosedIgnoresCounts(t *testing.T) {
	gw := countingGateway()
	d := NewSaveDialog(gw, summerFest())
	called := false
	d.OnResolve(func(Option) { called = true })

	d.Close()
	d.LoadCounts(context.Background())

	assert.False(t, called)
	assert.ElementsMatch(t, []string{"ticket_types", "add_ons", "custom_fields"}, d.Snapshot().Options.Pending())
	assert.ErrorIs(t, d.Toggle("category", false), ErrDialogClosed)
}

func TestRestoreSaveDialog(t *testing.T) {
	d := NewSaveDialog(countingGateway(), summerFest())
	d.LoadCounts(context.Background())
	snap := d.Snapshot()
	snap.State = StateSubmitting

	restored := RestoreSaveDialog(countingGateway(), snap)

	assert.Equal(t, StateFailed, restored.State())
	assert.Equal(t, d.Snapshot().Options, restored.Snapshot().Options)
}

func TestSaveDialog_CountsResolveWhileSubmitting(t *testing.T) {
	gw := countingGateway()
	gw.block[models.DoctypeTicketType] = make(chan struct{})
	d := NewSaveDialog(gw, summerFest())

	done := make(chan error)
	go func() { done <- d.LoadCounts(context.Background()) }()

	sub, err := d.Prepare()
	require.NoError(t, err)
	close(gw.block[models.DoctypeTicketType])
	require.NoError(t, <-done)

	name, err := sub.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, d.Complete(sub, name, nil))

	assert.Equal(t, StateDone, d.State())
	tt, _ := d.Snapshot().Options.Option("ticket_types")
	assert.Equal(t, 2, *tt.Count)
	require.Len(t, gw.saves, 1)
	assert.NotContains(t, gw.saves[0].Selected, "ticket_types", "still loading when prepared")
}

func TestSaveDialog_SecondPrepareIsRejected(t *testing.T) {
	d := NewSaveDialog(countingGateway(), summerFest())
	_, err := d.Prepare()
	require.NoError(t, err)

	restored := RestoreSaveDialog(countingGateway(), d.Snapshot())
	_, err = restored.Prepare()
	assert.ErrorIs(t, err, ErrInvalidState)
}
