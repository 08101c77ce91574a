package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Squad groups sites. Name is the public key used in URLs.
type Squad struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	WebhookURL string   `json:"webhook_url,omitempty"`
	Sites      []string `json:"sites"`
	SitesCount int      `json:"sites_count"`
}

// CreateSquadRequest is the body of POST /api/squads.
type CreateSquadRequest struct {
	Name       string `json:"name"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// Validate requires a name and a well formed webhook URL when one is given.
func (r *CreateSquadRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.WebhookURL = strings.TrimSpace(r.WebhookURL)
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	return validateWebhookURL(r.WebhookURL)
}

// UpdateSquadRequest renames a squad and/or replaces its webhook.
type UpdateSquadRequest struct {
	NewName    string  `json:"new_name"`
	WebhookURL *string `json:"webhook_url,omitempty"`
}

// Validate requires the new name.
func (r *UpdateSquadRequest) Validate() error {
	r.NewName = strings.TrimSpace(r.NewName)
	if r.NewName == "" {
		return fmt.Errorf("new_name is required")
	}
	if r.WebhookURL != nil {
		trimmed := strings.TrimSpace(*r.WebhookURL)
		r.WebhookURL = &trimmed
		return validateWebhookURL(trimmed)
	}
	return nil
}

func validateWebhookURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("webhook_url must be an http(s) URL")
	}
	return nil
}
