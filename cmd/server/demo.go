package main

import (
	"event-template-platform/internal/models"
	"event-template-platform/internal/services"
)

// demoService serves a small fixed data set when no database is reachable
// in development.
func demoService() *services.MockTemplateService {
	svc := services.NewMockTemplateService()
	svc.Put(models.DoctypeTemplate, models.Document{
		"name":           "Gig Night",
		"template_name":  "Gig Night",
		"category":       "Music",
		"medium":         "In Person",
		"about":          "An evening of live music.",
		"apply_tax":      1,
		"tax_label":      "GST",
		"tax_percentage": 18,
		"template_ticket_types": []any{
			map[string]any{"title": "Early Bird", "price": 500, "currency": "INR"},
			map[string]any{"title": "Regular", "price": 800, "currency": "INR"},
		},
	})
	svc.Put(models.DoctypeEvent, models.Document{
		"name":     "1",
		"title":    "Summer Fest",
		"category": "Music",
		"host":     "City Arts",
		"payment_gateways": []any{
			map[string]any{"payment_gateway": "Razorpay"},
		},
	})
	svc.SetCount(models.DoctypeTicketType, "1", 3)
	svc.SetCount(models.DoctypeAddOn, "1", 0)
	svc.SetCount(models.DoctypeCustomField, "1", 2)
	return svc
}
