package models

import "time"

type Organization struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type OrganizationPatch struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// UserOrganization links a user to a tenant.
type UserOrganization struct {
	UserID         string
	OrganizationID string
	Role           string
	CreatedAt      time.Time
}

type Customer struct {
	ID             string
	OrganizationID string
	Name           string
	ContactEmail   string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CustomerPatch struct {
	Name         *string
	ContactEmail *string
	IsActive     *bool
}

type Process struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProcessPatch struct {
	Name        *string
	Description *string
}

type Activity struct {
	ID          string
	ProcessID   string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ActivityPatch struct {
	Name        *string
	Description *string
}
