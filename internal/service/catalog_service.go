package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/ids"
	"timetrack/api/internal/models"
)

// CatalogService manages the reference data time is booked against.
// Mutations are admin-only at the route level.
type CatalogService struct {
	orgs      OrganizationStore
	customers CustomerStore
	processes ProcessStore
	users     UserStore
	log       zerolog.Logger
}

func NewCatalogService(orgs OrganizationStore, customers CustomerStore, processes ProcessStore, users UserStore, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		orgs:      orgs,
		customers: customers,
		processes: processes,
		users:     users,
		log:       log,
	}
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("Validation failed", apperr.FieldError{Field: "name", Message: "is required"})
	}
	return name, nil
}

func optionalName(name *string) (*string, error) {
	if name == nil {
		return nil, nil
	}
	v, err := requireName(*name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *CatalogService) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

func (s *CatalogService) GetOrganization(ctx context.Context, id string) (models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return models.Organization{}, notFound(err, "load organization", "Organization not found")
	}
	return org, nil
}

func (s *CatalogService) CreateOrganization(ctx context.Context, name, description string) (models.Organization, error) {
	name, err := requireName(name)
	if err != nil {
		return models.Organization{}, err
	}
	org, err := s.orgs.Create(ctx, models.Organization{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
	})
	if err != nil {
		return models.Organization{}, storeError(err, "create organization", "Organization")
	}
	s.log.Info().Str("organization_id", org.ID).Msg("organization created")
	return org, nil
}

func (s *CatalogService) UpdateOrganization(ctx context.Context, id string, patch models.OrganizationPatch) (models.Organization, error) {
	name, err := optionalName(patch.Name)
	if err != nil {
		return models.Organization{}, err
	}
	patch.Name = name
	org, err := s.orgs.Update(ctx, id, patch)
	if err != nil {
		return models.Organization{}, storeError(err, "update organization", "Organization")
	}
	return org, nil
}

func (s *CatalogService) DeleteOrganization(ctx context.Context, id string) error {
	return storeError(s.orgs.Delete(ctx, id), "delete organization", "Organization")
}

func (s *CatalogService) AddMember(ctx context.Context, organizationID, userID, role string) (models.UserOrganization, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return models.UserOrganization{}, notFound(err, "load user", "User not found")
	}
	if _, err := s.orgs.GetByID(ctx, organizationID); err != nil {
		return models.UserOrganization{}, notFound(err, "load organization", "Organization not found")
	}
	role = strings.TrimSpace(role)
	if role == "" {
		role = "member"
	}
	member, err := s.orgs.AddMember(ctx, models.UserOrganization{
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           role,
	})
	if err != nil {
		return models.UserOrganization{}, storeError(err, "add member", "Membership")
	}
	return member, nil
}

func (s *CatalogService) RemoveMember(ctx context.Context, organizationID, userID string) error {
	return storeError(s.orgs.RemoveMember(ctx, organizationID, userID), "remove member", "Membership")
}

func (s *CatalogService) ListCustomers(ctx context.Context, organizationID string) ([]models.Customer, error) {
	customers, err := s.customers.List(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (s *CatalogService) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return models.Customer{}, notFound(err, "load customer", "Customer not found")
	}
	return customer, nil
}

func (s *CatalogService) CreateCustomer(ctx context.Context, in models.Customer) (models.Customer, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return models.Customer{}, err
	}
	if _, err := s.orgs.GetByID(ctx, in.OrganizationID); err != nil {
		return models.Customer{}, notFound(err, "load organization", "Organization not found")
	}
	customer, err := s.customers.Create(ctx, models.Customer{
		ID:             ids.New(),
		OrganizationID: in.OrganizationID,
		Name:           name,
		ContactEmail:   strings.TrimSpace(in.ContactEmail),
		IsActive:       true,
	})
	if err != nil {
		return models.Customer{}, storeError(err, "create customer", "Customer")
	}
	return customer, nil
}

func (s *CatalogService) UpdateCustomer(ctx context.Context, id string, patch models.CustomerPatch) (models.Customer, error) {
	name, err := optionalName(patch.Name)
	if err != nil {
		return models.Customer{}, err
	}
	patch.Name = name
	customer, err := s.customers.Update(ctx, id, patch)
	if err != nil {
		return models.Customer{}, storeError(err, "update customer", "Customer")
	}
	return customer, nil
}

func (s *CatalogService) DeleteCustomer(ctx context.Context, id string) error {
	return storeError(s.customers.Delete(ctx, id), "delete customer", "Customer")
}

func (s *CatalogService) ListProcesses(ctx context.Context) ([]models.Process, error) {
	processes, err := s.processes.ListProcesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return processes, nil
}

func (s *CatalogService) GetProcess(ctx context.Context, id string) (models.Process, error) {
	p, err := s.processes.GetProcess(ctx, id)
	if err != nil {
		return models.Process{}, notFound(err, "load process", "Process not found")
	}
	return p, nil
}

func (s *CatalogService) CreateProcess(ctx context.Context, name, description string) (models.Process, error) {
	name, err := requireName(name)
	if err != nil {
		return models.Process{}, err
	}
	p, err := s.processes.CreateProcess(ctx, models.Process{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return models.Process{}, storeError(err, "create process", "Process")
	}
	return p, nil
}

func (s *CatalogService) UpdateProcess(ctx context.Context, id string, patch models.ProcessPatch) (models.Process, error) {
	name, err := optionalName(patch.Name)
	if err != nil {
		return models.Process{}, err
	}
	patch.Name = name
	p, err := s.processes.UpdateProcess(ctx, id, patch)
	if err != nil {
		return models.Process{}, storeError(err, "update process", "Process")
	}
	return p, nil
}

func (s *CatalogService) DeleteProcess(ctx context.Context, id string) error {
	return storeError(s.processes.DeleteProcess(ctx, id), "delete process", "Process")
}

func (s *CatalogService) ListActivities(ctx context.Context, processID string) ([]models.Activity, error) {
	activities, err := s.processes.ListActivities(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

func (s *CatalogService) GetActivity(ctx context.Context, id string) (models.Activity, error) {
	a, err := s.processes.GetActivity(ctx, id)
	if err != nil {
		return models.Activity{}, notFound(err, "load activity", "Activity not found")
	}
	return a, nil
}

func (s *CatalogService) CreateActivity(ctx context.Context, in models.Activity) (models.Activity, error) {
	name, err := requireName(in.Name)
	if err != nil {
		return models.Activity{}, err
	}
	if _, err := s.processes.GetProcess(ctx, in.ProcessID); err != nil {
		return models.Activity{}, notFound(err, "load process", "Process not found")
	}
	a, err := s.processes.CreateActivity(ctx, models.Activity{
		ID:          ids.New(),
		ProcessID:   in.ProcessID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	})
	if err != nil {
		return models.Activity{}, storeError(err, "create activity", "Activity")
	}
	return a, nil
}

func (s *CatalogService) UpdateActivity(ctx context.Context, id string, patch models.ActivityPatch) (models.Activity, error) {
	name, err := optionalName(patch.Name)
	if err != nil {
		return models.Activity{}, err
	}
	patch.Name = name
	a, err := s.processes.UpdateActivity(ctx, id, patch)
	if err != nil {
		return models.Activity{}, storeError(err, "update activity", "Activity")
	}
	return a, nil
}

func (s *CatalogService) DeleteActivity(ctx context.Context, id string) error {
	return storeError(s.processes.DeleteActivity(ctx, id), "delete activity", "Activity")
}
