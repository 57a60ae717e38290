// Command seed loads a sample event with linked records and a template made
// from it, so both dialogs have something to work with.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"event-template-platform/internal/config"
	"event-template-platform/internal/database"
	"event-template-platform/internal/logging"
	"event-template-platform/internal/models"
	"event-template-platform/internal/repositories"
	"event-template-platform/internal/services"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	templateName := pflag.String("template", "Summer Fest Template", "Name of the template to create from the sample event")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	if err := run(context.Background(), cfg, logger, *templateName); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, templateName string) error {
	db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	events := repositories.NewEventRepository(db.DB)
	templates := repositories.NewTemplateRepository(db.DB)
	linked := repositories.NewLinkedRepository(db.DB)

	event, records := sampleEvent(time.Now())
	if err := events.Create(ctx, event, records); err != nil {
		return fmt.Errorf("failed to create sample event: %w", err)
	}
	fmt.Printf("Created event %s (%s) with %d ticket types, %d add-ons, %d custom fields\n",
		event.Name(), event.Title, len(records.TicketTypes), len(records.AddOns), len(records.CustomFields))

	svc := services.NewTemplateService(events, templates, linked, nil, logger)
	admin := models.WithUser(ctx, &models.User{ID: 1, Role: models.RoleAdmin})
	name, err := svc.CreateTemplateFromEvent(admin, event.Name(), templateName, []string{
		"category", "host", "short_description", "about", "medium", "venue",
		"apply_tax", "tax_label", "tax_percentage", "payment_gateways",
		"ticket_types", "add_ons", "custom_fields",
	})
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve) && errors.Is(err, models.ErrDuplicateEntry):
		fmt.Printf("Template %s already exists, left unchanged\n", templateName)
	case err != nil:
		return fmt.Errorf("failed to create template: %w", err)
	default:
		fmt.Printf("Created template %s\n", name)
	}
	return nil
}

func sampleEvent(now time.Time) (*models.Event, repositories.LinkedRecords) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	end := start.AddDate(0, 0, 2)

	event := &models.Event{
		Title:     "Summer Fest",
		StartDate: start,
		EndDate:   &end,
		EventSettings: models.EventSettings{
			Category:         "Music",
			Host:             "City Arts",
			ShortDescription: "Three days of live music in the park.",
			About:            "Local and touring acts across two stages.",
			Medium:           models.MediumInPerson,
			Venue:            "Central Park Grounds",
			TimeZone:         "Africa/Nairobi",
			ApplyTax:         true,
			TaxLabel:         "VAT",
			TaxPercentage:    16,
		},
		PaymentGateways: []models.PaymentGateway{{PaymentGateway: "Paystack"}},
	}

	records := repositories.LinkedRecords{
		TicketTypes: []models.TicketTypeSpec{
			{Title: "Early Bird", Price: 1500, Currency: "KES", IsPublished: true, MaxTicketsAvailable: 200},
			{Title: "Regular", Price: 2500, Currency: "KES", IsPublished: true, MaxTicketsAvailable: 1000},
			{Title: "VIP", Price: 8000, Currency: "KES", IsPublished: true, MaxTicketsAvailable: 50},
		},
		AddOns: []models.AddOnSpec{
			{Title: "Festival T-Shirt", Price: 1200, Currency: "KES", UserSelectsOption: true, Options: "S\nM\nL\nXL", Enabled: true},
		},
		CustomFields: []models.CustomFieldSpec{
			{Label: "Phone Number", Fieldname: "phone_number", Fieldtype: models.FieldTypePhone, AppliedTo: models.AppliedToBooking, Enabled: true, Mandatory: true},
			{Label: "Dietary Requirements", Fieldname: "dietary_requirements", Fieldtype: models.FieldTypeData, AppliedTo: models.AppliedToTicket, Enabled: true},
		},
	}
	return event, records
}
