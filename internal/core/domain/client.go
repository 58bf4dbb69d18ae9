package domain

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
)

// ClientStatus is the lifecycle state of a Client.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientPending  ClientStatus = "pending"
	ClientInactive ClientStatus = "inactive"
)

func (s ClientStatus) Valid() bool {
	switch s {
	case ClientActive, ClientPending, ClientInactive:
		return true
	}
	return false
}

// Client is a customer of the agency. Its ID is the tenant boundary for
// keywords and backlinks.
type Client struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Website         string       `json:"website,omitempty"`
	ContactEmail    string       `json:"contact_email,omitempty"`
	ContactPhone    string       `json:"contact_phone,omitempty"`
	Status          ClientStatus `json:"status"`
	LinkedUserID    string       `json:"linked_user_id,omitempty"`
	LinkedUserEmail string       `json:"linked_user_email,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Normalize trims free-text fields and applies the default status.
func (c *Client) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Website = strings.TrimSpace(c.Website)
	c.ContactEmail = strings.TrimSpace(c.ContactEmail)
	c.ContactPhone = strings.TrimSpace(c.ContactPhone)
	if c.Status == "" {
		c.Status = ClientActive
	}
}

func (c *Client) Validate() error {
	ve := &ValidationError{}
	if c.Name == "" {
		ve.Add("name", "name is required")
	}
	if !c.Status.Valid() {
		ve.Add("status", "status must be one of: active pending inactive")
	}
	if c.Website != "" && !IsAbsoluteURL(c.Website) {
		ve.Add("website", "website must be an absolute URL")
	}
	if c.ContactEmail != "" {
		if _, err := mail.ParseAddress(c.ContactEmail); err != nil {
			ve.Add("contact_email", "contact_email must be a valid email")
		}
	}
	return ve.OrNil()
}

// IsAbsoluteURL reports whether raw is an http(s) URL with a host.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
