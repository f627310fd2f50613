package eventtypes

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

/* Catalog holds the event types the platform can dispatch. The built-in
 * set covers the gym domain; deployments extend it from a YAML file.
 * Backs GET /webhooks/event-types and create/update validation.
 */

// typePattern validates event types: hierarchical, full-stop delimited, [a-zA-Z0-9_.]
var typePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

// EventType describes one dispatchable event.
type EventType struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Config represents the structure of the event-types YAML file
type Config struct {
	EventTypes []EventType `yaml:"event_types"`
}

// Catalog is an in-memory lookup of known event types
type Catalog struct {
	types map[string]EventType
}

// Defaults returns the built-in catalog of the gym platform's events.
func Defaults() []EventType {
	return []EventType{
		{Name: "member.created", Description: "A member joined the club"},
		{Name: "member.updated", Description: "A member's profile changed"},
		{Name: "member.cancelled", Description: "A member cancelled their membership"},
		{Name: "membership.expiring", Description: "A membership is about to expire"},
		{Name: "invoice.issued", Description: "An invoice was issued"},
		{Name: "invoice.paid", Description: "An invoice was paid"},
		{Name: "invoice.overdue", Description: "An invoice passed its due date unpaid"},
		{Name: "booking.confirmed", Description: "A class or facility booking was confirmed"},
		{Name: "booking.cancelled", Description: "A booking was cancelled"},
		{Name: "lead.created", Description: "A sales lead was captured"},
		{Name: "lead.converted", Description: "A lead became a member"},
		{Name: "loyalty.points_awarded", Description: "Loyalty points were credited"},
		{Name: "kiosk.checkin", Description: "A member checked in at a kiosk"},
		{Name: "test.ping", Description: "Synthetic event sent by the test-delivery command"},
	}
}

// NewCatalog creates a catalog preloaded with the built-in event types
func NewCatalog() *Catalog {
	c := &Catalog{
		types: make(map[string]EventType),
	}
	for _, t := range Defaults() {
		c.types[t.Name] = t
	}
	return c
}

// Load reads and merges additional event types from a YAML file
func (c *Catalog) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading event types file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing event types YAML: %w", err)
	}

	for _, t := range config.EventTypes {
		if err := ValidateName(t.Name); err != nil {
			return fmt.Errorf("validating event type: %w", err)
		}
		c.types[t.Name] = t
	}

	return nil
}

// Known reports whether the event type is in the catalog.
// Satisfies webhook.EventTypeChecker.
func (c *Catalog) Known(name string) bool {
	_, exists := c.types[name]
	return exists
}

// List returns all known event types sorted by name
func (c *Catalog) List() []EventType {
	types := make([]EventType, 0, len(c.types))
	for _, t := range c.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types
}

// ValidateName checks an event type's format
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if !typePattern.MatchString(name) {
		return fmt.Errorf("event type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", name)
	}
	return nil
}
