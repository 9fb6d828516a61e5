package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"timetrack/api/internal/models"
	"timetrack/api/internal/repository"
)

type Organizations struct {
	s *Store
}

func (r *Organizations) Create(_ context.Context, org models.Organization) (models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.orgs {
		if existing.ID == org.ID || existing.Name == org.Name {
			return models.Organization{}, repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	org.CreatedAt, org.UpdatedAt = now, now
	r.s.orgs[org.ID] = org
	return org, nil
}

func (r *Organizations) GetByID(_ context.Context, id string) (models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	org, ok := r.s.orgs[id]
	if !ok {
		return models.Organization{}, repository.ErrNotFound
	}
	return org, nil
}

func (r *Organizations) List(_ context.Context) ([]models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Organization, 0, len(r.s.orgs))
	for _, org := range r.s.orgs {
		out = append(out, org)
	}
	slices.SortFunc(out, func(a, b models.Organization) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *Organizations) Update(_ context.Context, id string, patch models.OrganizationPatch) (models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	org, ok := r.s.orgs[id]
	if !ok {
		return models.Organization{}, repository.ErrNotFound
	}
	if patch.Name != nil {
		for _, other := range r.s.orgs {
			if other.ID != id && other.Name == *patch.Name {
				return models.Organization{}, repository.ErrDuplicate
			}
		}
		org.Name = *patch.Name
	}
	if patch.Description != nil {
		org.Description = *patch.Description
	}
	if patch.IsActive != nil {
		org.IsActive = *patch.IsActive
	}
	org.UpdatedAt = time.Now().UTC()
	r.s.orgs[id] = org
	return org, nil
}

func (r *Organizations) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orgs[id]; !ok {
		return repository.ErrNotFound
	}
	for _, c := range r.s.customers {
		if c.OrganizationID == id {
			return repository.ErrInUse
		}
	}
	for _, e := range r.s.entries {
		if e.Target.OrganizationID == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.orgs, id)
	for key := range r.s.members {
		if key.orgID == id {
			delete(r.s.members, key)
		}
	}
	return nil
}

func (r *Organizations) AddMember(_ context.Context, member models.UserOrganization) (models.UserOrganization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[member.UserID]; !ok {
		return models.UserOrganization{}, repository.ErrNotFound
	}
	if _, ok := r.s.orgs[member.OrganizationID]; !ok {
		return models.UserOrganization{}, repository.ErrNotFound
	}
	key := memberKey{userID: member.UserID, orgID: member.OrganizationID}
	if existing, ok := r.s.members[key]; ok {
		existing.Role = member.Role
		r.s.members[key] = existing
		return existing, nil
	}
	member.CreatedAt = time.Now().UTC()
	r.s.members[key] = member
	return member, nil
}

func (r *Organizations) RemoveMember(_ context.Context, organizationID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := memberKey{userID: userID, orgID: organizationID}
	if _, ok := r.s.members[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.members, key)
	return nil
}

func (r *Organizations) IsMember(_ context.Context, organizationID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.members[memberKey{userID: userID, orgID: organizationID}]
	return ok, nil
}

func (r *Organizations) ListForUser(_ context.Context, userID string) ([]models.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Organization
	for key := range r.s.members {
		if key.userID == userID {
			if org, ok := r.s.orgs[key.orgID]; ok {
				out = append(out, org)
			}
		}
	}
	slices.SortFunc(out, func(a, b models.Organization) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

type Customers struct {
	s *Store
}

func (r *Customers) Create(_ context.Context, customer models.Customer) (models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orgs[customer.OrganizationID]; !ok {
		return models.Customer{}, repository.ErrInUse
	}
	for _, existing := range r.s.customers {
		if existing.ID == customer.ID ||
			(existing.OrganizationID == customer.OrganizationID && existing.Name == customer.Name) {
			return models.Customer{}, repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	customer.CreatedAt, customer.UpdatedAt = now, now
	r.s.customers[customer.ID] = customer
	return customer, nil
}

func (r *Customers) GetByID(_ context.Context, id string) (models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	customer, ok := r.s.customers[id]
	if !ok {
		return models.Customer{}, repository.ErrNotFound
	}
	return customer, nil
}

func (r *Customers) List(_ context.Context, organizationID string) ([]models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Customer
	for _, c := range r.s.customers {
		if organizationID == "" || c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b models.Customer) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *Customers) Update(_ context.Context, id string, patch models.CustomerPatch) (models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	customer, ok := r.s.customers[id]
	if !ok {
		return models.Customer{}, repository.ErrNotFound
	}
	if patch.Name != nil {
		for _, other := range r.s.customers {
			if other.ID != id && other.OrganizationID == customer.OrganizationID && other.Name == *patch.Name {
				return models.Customer{}, repository.ErrDuplicate
			}
		}
		customer.Name = *patch.Name
	}
	if patch.ContactEmail != nil {
		customer.ContactEmail = *patch.ContactEmail
	}
	if patch.IsActive != nil {
		customer.IsActive = *patch.IsActive
	}
	customer.UpdatedAt = time.Now().UTC()
	r.s.customers[id] = customer
	return customer, nil
}

func (r *Customers) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.customers[id]; !ok {
		return repository.ErrNotFound
	}
	for _, e := range r.s.entries {
		if e.Target.CustomerID == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.customers, id)
	return nil
}

type Processes struct {
	s *Store
}

func (r *Processes) CreateProcess(_ context.Context, p models.Process) (models.Process, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.processes {
		if existing.ID == p.ID || existing.Name == p.Name {
			return models.Process{}, repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.processes[p.ID] = p
	return p, nil
}

func (r *Processes) GetProcess(_ context.Context, id string) (models.Process, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.processes[id]
	if !ok {
		return models.Process{}, repository.ErrNotFound
	}
	return p, nil
}

func (r *Processes) ListProcesses(_ context.Context) ([]models.Process, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Process, 0, len(r.s.processes))
	for _, p := range r.s.processes {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Process) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *Processes) UpdateProcess(_ context.Context, id string, patch models.ProcessPatch) (models.Process, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.processes[id]
	if !ok {
		return models.Process{}, repository.ErrNotFound
	}
	if patch.Name != nil {
		for _, other := range r.s.processes {
			if other.ID != id && other.Name == *patch.Name {
				return models.Process{}, repository.ErrDuplicate
			}
		}
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	p.UpdatedAt = time.Now().UTC()
	r.s.processes[id] = p
	return p, nil
}

func (r *Processes) DeleteProcess(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.processes[id]; !ok {
		return repository.ErrNotFound
	}
	for _, a := range r.s.activities {
		if a.ProcessID == id {
			return repository.ErrInUse
		}
	}
	for _, e := range r.s.entries {
		if e.Target.ProcessID == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.processes, id)
	return nil
}

func (r *Processes) CreateActivity(_ context.Context, a models.Activity) (models.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.processes[a.ProcessID]; !ok {
		return models.Activity{}, repository.ErrInUse
	}
	for _, existing := range r.s.activities {
		if existing.ID == a.ID || (existing.ProcessID == a.ProcessID && existing.Name == a.Name) {
			return models.Activity{}, repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.activities[a.ID] = a
	return a, nil
}

func (r *Processes) GetActivity(_ context.Context, id string) (models.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.activities[id]
	if !ok {
		return models.Activity{}, repository.ErrNotFound
	}
	return a, nil
}

func (r *Processes) ListActivities(_ context.Context, processID string) ([]models.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Activity
	for _, a := range r.s.activities {
		if processID == "" || a.ProcessID == processID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Activity) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *Processes) UpdateActivity(_ context.Context, id string, patch models.ActivityPatch) (models.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.activities[id]
	if !ok {
		return models.Activity{}, repository.ErrNotFound
	}
	if patch.Name != nil {
		for _, other := range r.s.activities {
			if other.ID != id && other.ProcessID == a.ProcessID && other.Name == *patch.Name {
				return models.Activity{}, repository.ErrDuplicate
			}
		}
		a.Name = *patch.Name
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	a.UpdatedAt = time.Now().UTC()
	r.s.activities[id] = a
	return a, nil
}

func (r *Processes) DeleteActivity(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.activities[id]; !ok {
		return repository.ErrNotFound
	}
	for _, e := range r.s.entries {
		if e.Target.ActivityID == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.activities, id)
	return nil
}
