package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/repository"
)

// fakeStore is an in-memory repository.Store. RunInTx runs the callback
// against the same store with no rollback; it also tracks how many callbacks
// are in flight so concurrency caps can be asserted.
type fakeStore struct {
	mu  sync.Mutex
	seq int

	tickets     map[string]*domain.Ticket
	ticketOrder []string
	messages    []domain.TicketMessage
	events      []domain.TicketEvent
	teams       map[string]*domain.Team
	members     map[string][]domain.TeamMember
	rules       map[string]*domain.RoutingRule
	policies    []*domain.SlaPolicy
	staff       map[string]*domain.StaffMember
	users       map[string]*domain.User
	grants      []domain.AccessGrant
	resets      map[string]*repository.PasswordResetToken

	inFlight    int
	maxInFlight int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets: make(map[string]*domain.Ticket),
		teams:   make(map[string]*domain.Team),
		members: make(map[string][]domain.TeamMember),
		rules:   make(map[string]*domain.RoutingRule),
		staff:   make(map[string]*domain.StaffMember),
		users:   make(map[string]*domain.User),
		resets:  make(map[string]*repository.PasswordResetToken),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) Tickets() repository.TicketRepository          { return fakeTickets{f} }
func (f *fakeStore) Messages() repository.TicketMessageRepository  { return fakeMessages{f} }
func (f *fakeStore) Events() repository.TicketEventRepository      { return fakeEvents{f} }
func (f *fakeStore) Teams() repository.TeamRepository              { return fakeTeams{f} }
func (f *fakeStore) Rules() repository.RoutingRuleRepository       { return fakeRules{f} }
func (f *fakeStore) SlaPolicies() repository.SlaPolicyRepository   { return fakePolicies{f} }
func (f *fakeStore) Staff() repository.StaffRepository             { return fakeStaff{f} }
func (f *fakeStore) Users() repository.UserRepository              { return fakeUsers{f} }
func (f *fakeStore) Grants() repository.AccessGrantRepository      { return fakeGrants{f} }
func (f *fakeStore) PasswordResets() repository.PasswordResetRepository { return fakeResets{f} }

func (f *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	return fn(ctx, f)
}

// eventsOfType returns the recorded audit events of one type, oldest first.
func (f *fakeStore) eventsOfType(eventType domain.TicketEventType) []domain.TicketEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketEvent
	for _, event := range f.events {
		if event.EventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

type fakeTickets struct{ f *fakeStore }

func (r fakeTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	ticket.ID = r.f.nextID("tkt")
	ticket.Number = int64(len(r.f.tickets) + 1)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := *ticket
	r.f.tickets[ticket.ID] = &stored
	r.f.ticketOrder = append(r.f.ticketOrder, ticket.ID)
	return nil
}

func (r fakeTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	stored := *ticket
	r.f.tickets[ticket.ID] = &stored
	return nil
}

func (r fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	ticket, ok := r.f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r fakeTickets) GetByNumber(_ context.Context, number int64) (*domain.Ticket, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, ticket := range r.f.tickets {
		if ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.Ticket
	for _, id := range r.f.ticketOrder {
		ticket := r.f.tickets[id]
		if !scopeAdmits(filter, ticket) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func scopeAdmits(filter repository.TicketFilter, ticket *domain.Ticket) bool {
	scope := filter.Scope
	switch {
	case scope.Empty:
		return false
	case scope.All:
		return true
	case scope.RequesterID != nil:
		return ticket.RequesterID == *scope.RequesterID
	}
	inTeam := scope.TeamID != nil && ticket.TeamID != nil && *scope.TeamID == *ticket.TeamID
	if inTeam && scope.AssigneeID != nil {
		inTeam = ticket.AssigneeID == nil && scope.OrUnassigned ||
			ticket.AssigneeID != nil && *ticket.AssigneeID == *scope.AssigneeID
	}
	if inTeam {
		return true
	}
	if ticket.TeamID != nil {
		for _, teamID := range scope.ViewTeamIDs {
			if teamID == *ticket.TeamID {
				return true
			}
		}
	}
	return false
}

func containsStatus(values []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsPriority(values []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

type fakeMessages struct{ f *fakeStore }

func (r fakeMessages) Create(_ context.Context, message *domain.TicketMessage) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	message.ID = r.f.nextID("msg")
	message.CreatedAt = time.Now()
	r.f.messages = append(r.f.messages, *message)
	return nil
}

func (r fakeMessages) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.TicketMessage
	for _, message := range r.f.messages {
		if message.TicketID == ticketID {
			out = append(out, message)
		}
	}
	return out, nil
}

type fakeEvents struct{ f *fakeStore }

func (r fakeEvents) Create(_ context.Context, event *domain.TicketEvent) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	event.ID = r.f.nextID("evt")
	event.CreatedAt = time.Now()
	r.f.events = append(r.f.events, *event)
	return nil
}

func (r fakeEvents) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.TicketEvent, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var all []domain.TicketEvent
	for _, event := range r.f.events {
		if event.TicketID == ticketID {
			all = append(all, event)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type fakeTeams struct{ f *fakeStore }

func (r fakeTeams) Create(_ context.Context, team *domain.Team) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	team.ID = r.f.nextID("team")
	team.CreatedAt = time.Now()
	team.UpdatedAt = team.CreatedAt
	stored := *team
	r.f.teams[team.ID] = &stored
	return nil
}

func (r fakeTeams) Update(_ context.Context, team *domain.Team) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.teams[team.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *team
	r.f.teams[team.ID] = &stored
	return nil
}

func (r fakeTeams) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	team, ok := r.f.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *team
	return &copied, nil
}

func (r fakeTeams) GetByIDForUpdate(ctx context.Context, id string) (*domain.Team, error) {
	return r.GetByID(ctx, id)
}

func (r fakeTeams) List(_ context.Context, activeOnly bool) ([]domain.Team, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.Team
	for _, team := range r.f.teams {
		if activeOnly && !team.IsActive {
			continue
		}
		out = append(out, *team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeTeams) SetLastAssigned(_ context.Context, teamID, staffID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	team, ok := r.f.teams[teamID]
	if !ok {
		return pgx.ErrNoRows
	}
	id := staffID
	team.LastAssignedUserID = &id
	return nil
}

func (r fakeTeams) AddMember(_ context.Context, member *domain.TeamMember) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	member.ID = r.f.nextID("mem")
	member.CreatedAt = time.Now()
	r.f.members[member.TeamID] = append(r.f.members[member.TeamID], *member)
	return nil
}

func (r fakeTeams) RemoveMember(_ context.Context, teamID, staffID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	members := r.f.members[teamID]
	for i, member := range members {
		if member.StaffID == staffID {
			r.f.members[teamID] = append(members[:i:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r fakeTeams) ListMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return append([]domain.TeamMember(nil), r.f.members[teamID]...), nil
}

func (r fakeTeams) IsMember(_ context.Context, teamID, staffID string) (bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, member := range r.f.members[teamID] {
		if member.StaffID == staffID {
			return true, nil
		}
	}
	return false, nil
}

type fakeRules struct{ f *fakeStore }

func (r fakeRules) Create(_ context.Context, rule *domain.RoutingRule) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	rule.ID = r.f.nextID("rule")
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	stored := *rule
	r.f.rules[rule.ID] = &stored
	return nil
}

func (r fakeRules) Update(_ context.Context, rule *domain.RoutingRule) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.rules[rule.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *rule
	r.f.rules[rule.ID] = &stored
	return nil
}

func (r fakeRules) GetByID(_ context.Context, id string) (*domain.RoutingRule, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	rule, ok := r.f.rules[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *rule
	return &copied, nil
}

func (r fakeRules) ListActive(ctx context.Context) ([]domain.RoutingRule, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.RoutingRule
	for _, rule := range all {
		if rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r fakeRules) List(_ context.Context) ([]domain.RoutingRule, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.RoutingRule
	for _, rule := range r.f.rules {
		out = append(out, *rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

type fakePolicies struct{ f *fakeStore }

func (r fakePolicies) Create(_ context.Context, policy *domain.SlaPolicy) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	policy.ID = r.f.nextID("pol")
	stored := *policy
	r.f.policies = append(r.f.policies, &stored)
	return nil
}

func (r fakePolicies) Update(_ context.Context, policy *domain.SlaPolicy) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for i, existing := range r.f.policies {
		if existing.ID == policy.ID {
			stored := *policy
			r.f.policies[i] = &stored
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r fakePolicies) GetTeamPolicy(_ context.Context, teamID string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, policy := range r.f.policies {
		if policy.TeamID != nil && *policy.TeamID == teamID && policy.Priority == priority {
			copied := *policy
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakePolicies) GetDefaultPolicy(_ context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, policy := range r.f.policies {
		if policy.TeamID == nil && policy.Priority == priority {
			copied := *policy
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakePolicies) List(_ context.Context) ([]domain.SlaPolicy, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.SlaPolicy
	for _, policy := range r.f.policies {
		out = append(out, *policy)
	}
	return out, nil
}

type fakeStaff struct{ f *fakeStore }

func (r fakeStaff) Create(_ context.Context, staff *domain.StaffMember) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	staff.ID = r.f.nextID("stf")
	staff.CreatedAt = time.Now()
	staff.UpdatedAt = staff.CreatedAt
	stored := *staff
	r.f.staff[staff.ID] = &stored
	return nil
}

func (r fakeStaff) Update(_ context.Context, staff *domain.StaffMember) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.staff[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *staff
	r.f.staff[staff.ID] = &stored
	return nil
}

func (r fakeStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	staff, ok := r.f.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *staff
	return &copied, nil
}

func (r fakeStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, staff := range r.f.staff {
		if staff.Email == email {
			copied := *staff
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r fakeStaff) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []domain.StaffMember
	for _, staff := range r.f.staff {
		if filter.TeamID != nil && (staff.TeamID == nil || *staff.TeamID != *filter.TeamID) {
			continue
		}
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && staff.Active != *filter.Active {
			continue
		}
		out = append(out, *staff)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeUsers struct{ f *fakeStore }

func (r fakeUsers) Create(_ context.Context, user *domain.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user.ID = r.f.nextID("usr")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.f.users[user.ID] = &stored
	return nil
}

func (r fakeUsers) Update(_ context.Context, user *domain.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	stored := *user
	r.f.users[user.ID] = &stored
	return nil
}

func (r fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, user := range r.f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeGrants struct{ f *fakeStore }

func (r fakeGrants) Create(_ context.Context, grant *domain.AccessGrant) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	grant.ID = r.f.nextID("grt")
	grant.CreatedAt = time.Now()
	r.f.grants = append(r.f.grants, *grant)
	return nil
}

func (r fakeGrants) Delete(_ context.Context, staffID, teamID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for i, grant := range r.f.grants {
		if grant.StaffID == staffID && grant.TeamID == teamID {
			r.f.grants = append(r.f.grants[:i:i], r.f.grants[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r fakeGrants) ListTeamIDsForStaff(_ context.Context, staffID string) ([]string, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []string
	for _, grant := range r.f.grants {
		if grant.StaffID == staffID {
			out = append(out, grant.TeamID)
		}
	}
	return out, nil
}

type fakeResets struct{ f *fakeStore }

func (r fakeResets) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	token.ID = r.f.nextID("rst")
	token.CreatedAt = time.Now()
	stored := *token
	r.f.resets[token.Token] = &stored
	return nil
}

func (r fakeResets) GetByToken(_ context.Context, token string) (*repository.PasswordResetToken, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	reset, ok := r.f.resets[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *reset
	return &copied, nil
}

func (r fakeResets) MarkUsed(_ context.Context, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, reset := range r.f.resets {
		if reset.ID == id {
			now := time.Now()
			reset.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}
