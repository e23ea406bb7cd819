package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"screentime/internal/credentials"
	"screentime/internal/docstore"
	"screentime/internal/metrics"
	"screentime/internal/models"
	"screentime/internal/repository"
	"screentime/internal/validation"
)

// ApprovalNotifier tells approved parents that a pending parent asked to be
// let in
type ApprovalNotifier interface {
	NotifyPermissionRequest(ctx context.Context, family *models.Family, requester *models.FamilyMember, recipients []*models.FamilyMember) error
}

// JoinOutcome names the branch JoinFamily took
type JoinOutcome string

const (
	// JoinMatchedPreAdded means a pre-added member looks like the caller. No
	// member was written; the client should confirm or decline the match.
	JoinMatchedPreAdded JoinOutcome = "matched-pre-added"
	// JoinReactivated means the caller's pending or rejected record was reset
	JoinReactivated JoinOutcome = "reactivated"
	// JoinCreated means a new member and ledger record were created
	JoinCreated JoinOutcome = "created"
)

// JoinResult reports what JoinFamily did. Member is the matched pre-added
// member or the caller's own record.
type JoinResult struct {
	FamilyID string               `json:"familyId"`
	Outcome  JoinOutcome          `json:"outcome"`
	Member   *models.FamilyMember `json:"member,omitempty"`
}

// FamilyService handles family membership and identity linking
type FamilyService struct {
	familyRepo   *repository.FamilyRepository
	settingsRepo *repository.SettingsRepository
	userRepo     *repository.UserRepository
	codes        *CodeGenerator
	migrations   *MigrationService
	session      *Session
	notifier     ApprovalNotifier
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewFamilyService creates a new family service. notifier and m may be nil.
func NewFamilyService(
	familyRepo *repository.FamilyRepository,
	settingsRepo *repository.SettingsRepository,
	userRepo *repository.UserRepository,
	migrations *MigrationService,
	session *Session,
	notifier ApprovalNotifier,
	m *metrics.Metrics,
) *FamilyService {
	return &FamilyService{
		familyRepo:   familyRepo,
		settingsRepo: settingsRepo,
		userRepo:     userRepo,
		codes:        NewCodeGenerator(familyRepo.Exists),
		migrations:   migrations,
		session:      session,
		notifier:     notifier,
		metrics:      m,
		now:          time.Now,
	}
}

func (s *FamilyService) observe(operation string, err *error) {
	s.metrics.ObserveOperation(operation, *err)
}

// requireAuth also refuses ids that would collide with pre-added member keys
// or break the users/<id> document path
func requireAuth(caller models.Identity) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if credentials.IsPreAddedKey(caller.UserID) || strings.Contains(caller.UserID, "/") {
		return fmt.Errorf("%w: user id %q is reserved", ErrUnauthenticated, caller.UserID)
	}
	return nil
}

func validRole(role models.MemberRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	return nil
}

func identityEmails(caller models.Identity) []string {
	if caller.Email == "" {
		return []string{}
	}
	return []string{caller.Email}
}

// currentFamily resolves the caller's family through their profile pointer
func (s *FamilyService) currentFamily(ctx context.Context, caller models.Identity) (*models.Family, error) {
	profile, err := s.userRepo.GetProfile(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.FamilyID == "" {
		return nil, ErrNoFamily
	}

	family, err := s.familyRepo.GetFamily(ctx, profile.FamilyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, fmt.Errorf("%w: family %s no longer exists", ErrNoFamily, profile.FamilyID)
	}
	return family, nil
}

// newMember creates a ledger record for caller and returns the member that
// joins with role
func (s *FamilyService) newMember(ctx context.Context, familyID string, caller models.Identity, role models.MemberRole) (*models.FamilyMember, error) {
	name := caller.Name()
	childID, err := s.settingsRepo.CreateChildRecord(ctx, familyID, name)
	if err != nil {
		return nil, err
	}
	return &models.FamilyMember{
		ID:             caller.UserID,
		DisplayName:    name,
		Emails:         identityEmails(caller),
		AlternateNames: []string{},
		Role:           role,
		Status:         models.DefaultStatusFor(role),
		JoinedAt:       s.now(),
		ChildID:        childID,
		AuthUserID:     caller.UserID,
	}, nil
}

// LoadFamily returns the caller's family, or nil when the caller has none.
// The first load of a family in this session runs the backfill migrations.
func (s *FamilyService) LoadFamily(ctx context.Context, caller models.Identity) (*models.Family, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}

	family, err := s.currentFamily(ctx, caller)
	if errors.Is(err, ErrNoFamily) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.session.Migrated(family.ID) {
		return family, nil
	}
	s.migrations.RunOnce(ctx, s.session, family)

	reloaded, err := s.familyRepo.GetFamily(ctx, family.ID)
	if err != nil || reloaded == nil {
		slog.Warn("Failed to reload family after migrations", "family", family.ID, "error", err)
		return family, nil
	}
	return reloaded, nil
}

// State returns the caller's family state including the derived route
func (s *FamilyService) State(ctx context.Context, caller models.Identity) (FamilyState, error) {
	family, err := s.LoadFamily(ctx, caller)
	if err != nil {
		return FamilyState{}, err
	}
	return NewFamilyState(family, caller), nil
}

// WatchFamily streams the caller's family state until ctx is done or stop is
// called. Every snapshot replaces the previous state. A caller without a
// family receives a single setup state.
func (s *FamilyService) WatchFamily(ctx context.Context, caller models.Identity, onState func(FamilyState), onError func(error)) (func(), error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}

	profile, err := s.userRepo.GetProfile(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil || profile.FamilyID == "" {
		onState(NewFamilyState(nil, caller))
		return func() {}, nil
	}

	stop := s.familyRepo.SubscribeFamily(ctx, profile.FamilyID, func(family *models.Family) {
		onState(NewFamilyState(family, caller))
		if family != nil {
			s.migrations.RunOnce(ctx, s.session, family)
		}
	}, onError)
	return stop, nil
}

// CreateFamily creates a family with the caller as its first, approved member
// and returns the join code
func (s *FamilyService) CreateFamily(ctx context.Context, caller models.Identity, name string, role models.MemberRole) (code string, err error) {
	defer s.observe("createFamily", &err)

	if err := requireAuth(caller); err != nil {
		return "", err
	}
	name, err = validation.ValidateName("name", name)
	if err != nil {
		return "", invalidArgument(err)
	}
	if err := validRole(role); err != nil {
		return "", err
	}

	code, err = s.codes.GenerateUniqueCode(ctx)
	if err != nil {
		return "", err
	}

	member, err := s.newMember(ctx, code, caller, role)
	if err != nil {
		return "", err
	}
	member.Status = models.StatusApproved

	now := s.now()
	family := &models.Family{
		ID:        code,
		Name:      name,
		CreatedAt: now,
		CreatedBy: caller.UserID,
		Members:   map[string]*models.FamilyMember{caller.UserID: member},
	}
	if err := s.familyRepo.CreateFamily(ctx, family); err != nil {
		return "", err
	}
	if err := s.userRepo.SetFamily(ctx, caller.UserID, code); err != nil {
		return "", err
	}

	slog.Info("Family created", "family", code, "user", caller.UserID, "role", role)
	return code, nil
}

// JoinFamily attaches the caller to the family with the given code
func (s *FamilyService) JoinFamily(ctx context.Context, caller models.Identity, code string, role models.MemberRole) (result JoinResult, err error) {
	defer s.observe("joinFamily", &err)

	if err := requireAuth(caller); err != nil {
		return JoinResult{}, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return JoinResult{}, fmt.Errorf("%w: family code is required", ErrInvalidArgument)
	}
	if err := validRole(role); err != nil {
		return JoinResult{}, err
	}

	family, err := s.familyRepo.GetFamily(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	if family == nil {
		return JoinResult{}, fmt.Errorf("%w: %s", ErrFamilyNotFound, code)
	}

	existing := family.Member(caller.UserID)
	linked := existing != nil && !existing.IsPreAdded
	if linked && existing.Status == models.StatusApproved {
		return JoinResult{}, ErrAlreadyMember
	}

	if match := MatchMember(family, caller.Name(), caller.Email); match != nil {
		// Drop the caller's abandoned earlier join so the match can take its key
		if linked {
			err := s.familyRepo.UpdateFamily(ctx, code, []docstore.Update{
				{FieldPath: repository.MemberPath(caller.UserID), Value: docstore.Delete},
			})
			if err != nil {
				return JoinResult{}, err
			}
		}
		if err := s.userRepo.SetFamily(ctx, caller.UserID, code); err != nil {
			return JoinResult{}, err
		}
		slog.Info("Join matched pre-added member", "family", code, "user", caller.UserID, "member", match.ID)
		return JoinResult{FamilyID: code, Outcome: JoinMatchedPreAdded, Member: match}, nil
	}

	if linked {
		now := s.now()
		updates := []docstore.Update{
			{FieldPath: repository.MemberFieldPath(caller.UserID, "role"), Value: string(role)},
			{FieldPath: repository.MemberFieldPath(caller.UserID, "status"), Value: string(models.DefaultStatusFor(role))},
			{FieldPath: repository.MemberFieldPath(caller.UserID, "joinedAt"), Value: now},
		}
		reactivated := *existing
		reactivated.Role = role
		reactivated.Status = models.DefaultStatusFor(role)
		reactivated.JoinedAt = now
		if existing.Status == models.StatusRejected {
			updates = append(updates,
				docstore.Update{FieldPath: repository.MemberFieldPath(caller.UserID, "approvedBy"), Value: docstore.Delete},
				docstore.Update{FieldPath: repository.MemberFieldPath(caller.UserID, "approvedAt"), Value: docstore.Delete},
			)
			reactivated.ApprovedBy = ""
			reactivated.ApprovedAt = nil
		}
		if err := s.familyRepo.UpdateFamily(ctx, code, updates); err != nil {
			return JoinResult{}, err
		}
		if err := s.userRepo.SetFamily(ctx, caller.UserID, code); err != nil {
			return JoinResult{}, err
		}
		slog.Info("Member rejoined family", "family", code, "user", caller.UserID, "status", reactivated.Status)
		return JoinResult{FamilyID: code, Outcome: JoinReactivated, Member: &reactivated}, nil
	}

	member, err := s.newMember(ctx, code, caller, role)
	if err != nil {
		return JoinResult{}, err
	}
	err = s.familyRepo.UpdateFamily(ctx, code, []docstore.Update{
		{FieldPath: repository.MemberPath(caller.UserID), Value: repository.EncodeMember(member)},
	})
	if err != nil {
		return JoinResult{}, err
	}
	if err := s.userRepo.SetFamily(ctx, caller.UserID, code); err != nil {
		return JoinResult{}, err
	}

	slog.Info("Member joined family", "family", code, "user", caller.UserID, "status", member.Status)
	return JoinResult{FamilyID: code, Outcome: JoinCreated, Member: member}, nil
}

// LinkAuthToMember binds the caller to a pre-added member. The record moves
// from its synthetic key to the caller's id in a single update. It returns
// the member's childId, which is empty if the member never had one.
func (s *FamilyService) LinkAuthToMember(ctx context.Context, caller models.Identity, memberID, name, email string) (childID string, err error) {
	defer s.observe("linkAuthToMember", &err)

	if err := requireAuth(caller); err != nil {
		return "", err
	}
	family, err := s.currentFamily(ctx, caller)
	if err != nil {
		return "", err
	}

	member := family.Member(memberID)
	if member == nil || !member.IsPreAdded {
		return "", fmt.Errorf("%w: %s", ErrInvalidMember, memberID)
	}

	emails := append([]string{}, member.Emails...)
	if normalize(email) != "" && !containsNormalized(emails, email) {
		emails = append(emails, email)
	}

	alternateNames := append([]string{}, member.AlternateNames...)
	trimmed := strings.TrimSpace(name)
	if trimmed != "" && normalize(trimmed) != normalize(member.DisplayName) && !containsNormalized(alternateNames, trimmed) {
		alternateNames = append(alternateNames, trimmed)
	}

	linked := &models.FamilyMember{
		ID:             caller.UserID,
		DisplayName:    member.DisplayName,
		Emails:         emails,
		AlternateNames: alternateNames,
		Role:           member.Role,
		Status:         member.Status,
		JoinedAt:       member.JoinedAt,
		ApprovedBy:     member.ApprovedBy,
		ApprovedAt:     member.ApprovedAt,
		RequestedAt:    member.RequestedAt,
		ChildID:        member.ChildID,
		IsPreAdded:     false,
		AuthUserID:     caller.UserID,
		Color:          member.Color,
	}

	var updates []docstore.Update
	if memberID != caller.UserID {
		updates = append(updates, docstore.Update{FieldPath: repository.MemberPath(memberID), Value: docstore.Delete})
	}
	updates = append(updates, docstore.Update{FieldPath: repository.MemberPath(caller.UserID), Value: repository.EncodeMember(linked)})

	if err := s.familyRepo.UpdateFamily(ctx, family.ID, updates); err != nil {
		return "", err
	}
	if err := s.userRepo.SetFamily(ctx, caller.UserID, family.ID); err != nil {
		return "", err
	}

	slog.Info("Linked user to pre-added member", "family", family.ID, "user", caller.UserID, "member", memberID)
	return member.ChildID, nil
}

// CreateMemberInCurrentFamily creates the caller's own record after they
// declined a suggested match
func (s *FamilyService) CreateMemberInCurrentFamily(ctx context.Context, caller models.Identity, role models.MemberRole) (err error) {
	defer s.observe("createMemberInCurrentFamily", &err)

	if err := requireAuth(caller); err != nil {
		return err
	}
	if err := validRole(role); err != nil {
		return err
	}
	family, err := s.currentFamily(ctx, caller)
	if err != nil {
		return err
	}
	if family.Member(caller.UserID) != nil {
		return ErrAlreadyMember
	}

	member, err := s.newMember(ctx, family.ID, caller, role)
	if err != nil {
		return err
	}
	return s.familyRepo.UpdateFamily(ctx, family.ID, []docstore.Update{
		{FieldPath: repository.MemberPath(caller.UserID), Value: repository.EncodeMember(member)},
	})
}

// UpdateMemberStatus approves, rejects or suspends a member. Only approved
// parents may call it.
func (s *FamilyService) UpdateMemberStatus(ctx context.Context, caller models.Identity, memberID string, status models.MemberStatus) (err error) {
	defer s.observe("updateMemberStatus", &err)

	if err := requireAuth(caller); err != nil {
		return err
	}
	family, err := s.currentFamily(ctx, caller)
	if err != nil {
		return err
	}
	if !s.IsApprovedParent(family, caller) {
		return fmt.Errorf("%w: only approved parents can update member status", ErrPermissionDenied)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}
	if family.Member(memberID) == nil {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}

	return s.familyRepo.UpdateFamily(ctx, family.ID, []docstore.Update{
		{FieldPath: repository.MemberFieldPath(memberID, "status"), Value: string(status)},
		{FieldPath: repository.MemberFieldPath(memberID, "approvedBy"), Value: caller.UserID},
		{FieldPath: repository.MemberFieldPath(memberID, "approvedAt"), Value: s.now()},
	})
}

// AddManualMember pre-adds a member who has not signed in yet and returns
// the synthetic member key
func (s *FamilyService) AddManualMember(ctx context.Context, caller models.Identity, name, email string, role models.MemberRole) (memberID string, err error) {
	defer s.observe("addManualMember", &err)

	if err := requireAuth(caller); err != nil {
		return "", err
	}
	name, err = validation.ValidateName("name", name)
	if err != nil {
		return "", invalidArgument(err)
	}
	if email = strings.TrimSpace(email); email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return "", invalidArgument(err)
		}
	}
	if err := validRole(role); err != nil {
		return "", err
	}
	family, err := s.currentFamily(ctx, caller)
	if err != nil {
		return "", err
	}
	if !s.IsApprovedParent(family, caller) {
		return "", fmt.Errorf("%w: only approved parents can add family members", ErrPermissionDenied)
	}

	memberID, err = credentials.GeneratePreAddedKey(s.now())
	if err != nil {
		return "", fmt.Errorf("failed to generate member key: %w", err)
	}
	childID, err := s.settingsRepo.CreateChildRecord(ctx, family.ID, name)
	if err != nil {
		return "", err
	}

	emails := []string{}
	if email != "" {
		emails = append(emails, email)
	}
	member := &models.FamilyMember{
		ID:             memberID,
		DisplayName:    name,
		Emails:         emails,
		AlternateNames: []string{},
		Role:           role,
		Status:         models.StatusApproved,
		JoinedAt:       s.now(),
		ChildID:        childID,
		IsPreAdded:     true,
	}
	err = s.familyRepo.UpdateFamily(ctx, family.ID, []docstore.Update{
		{FieldPath: repository.MemberPath(memberID), Value: repository.EncodeMember(member)},
	})
	if err != nil {
		return "", err
	}

	slog.Info("Pre-added family member", "family", family.ID, "member", memberID, "by", caller.UserID)
	return memberID, nil
}

// RequestPermission records that a pending parent asked for approval and
// notifies the approved parents. It may be called again as a reminder.
func (s *FamilyService) RequestPermission(ctx context.Context, caller models.Identity) (err error) {
	defer s.observe("requestPermission", &err)

	if err := requireAuth(caller); err != nil {
		return err
	}
	family, err := s.currentFamily(ctx, caller)
	if err != nil {
		return err
	}

	member := s.CurrentMember(family, caller)
	if member == nil {
		return ErrMemberNotFound
	}
	if member.Role != models.RoleParent {
		return fmt.Errorf("%w: only pending parents can request permission", ErrPermissionDenied)
	}
	if member.Status == models.StatusApproved {
		return ErrAlreadyApproved
	}

	now := s.now()
	err = s.familyRepo.UpdateFamily(ctx, family.ID, []docstore.Update{
		{FieldPath: repository.MemberFieldPath(caller.UserID, "requestedAt"), Value: now},
	})
	if err != nil {
		return err
	}

	requester := *member
	requester.RequestedAt = &now
	s.notifyApprovers(ctx, family, &requester)
	return nil
}

func (s *FamilyService) notifyApprovers(ctx context.Context, family *models.Family, requester *models.FamilyMember) {
	if s.notifier == nil {
		return
	}
	var recipients []*models.FamilyMember
	for _, p := range family.ApprovedParents() {
		if len(p.Emails) > 0 {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return
	}

	err := s.notifier.NotifyPermissionRequest(ctx, family, requester, recipients)
	s.metrics.ObserveNotification(err)
	if err != nil {
		slog.Warn("Failed to notify approvers", "family", family.ID, "requester", requester.ID, "error", err)
	}
}

// UpdateDisplayName renames a member. Callers may rename themselves; approved
// parents may rename anyone.
func (s *FamilyService) UpdateDisplayName(ctx context.Context, caller models.Identity, memberID, name string) (err error) {
	defer s.observe("updateDisplayName", &err)

	if err := requireAuth(caller); err != nil {
		return err
	}
	name, err = validation.ValidateName("displayName", name)
	if err != nil {
		return invalidArgument(err)
	}
	family, err := s.currentFamily(ctx, caller)
	if err != nil {
		return err
	}
	if memberID != caller.UserID && !s.IsApprovedParent(family, caller) {
		return fmt.Errorf("%w: you can only update your own display name", ErrPermissionDenied)
	}
	if family.Member(memberID) == nil {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}

	return s.familyRepo.UpdateFamily(ctx, family.ID, []docstore.Update{
		{FieldPath: repository.MemberFieldPath(memberID, "displayName"), Value: name},
	})
}

// UpdateMemberColor sets a member's display colour. Any member of the family
// may recolour any other member.
func (s *FamilyService) UpdateMemberColor(ctx context.Context, caller models.Identity, memberID, color string) (err error) {
	defer s.observe("updateMemberColor", &err)

	if err := requireAuth(caller); err != nil {
		return err
	}
	color = strings.TrimSpace(color)
	if err := validation.ValidateColor(color); err != nil {
		return invalidArgument(err)
	}
	family, err := s.currentFamily(ctx, caller)
	if err != nil {
		return err
	}
	if s.CurrentMember(family, caller) == nil {
		return fmt.Errorf("%w: not a member of this family", ErrPermissionDenied)
	}
	if family.Member(memberID) == nil {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}

	return s.familyRepo.UpdateFamily(ctx, family.ID, []docstore.Update{
		{FieldPath: repository.MemberFieldPath(memberID, "color"), Value: color},
	})
}

// CurrentMember returns the caller's member record in family, or nil
func (s *FamilyService) CurrentMember(family *models.Family, caller models.Identity) *models.FamilyMember {
	return family.Member(caller.UserID)
}

// IsApprovedParent reports whether the caller is an approved parent of family
func (s *FamilyService) IsApprovedParent(family *models.Family, caller models.Identity) bool {
	return s.CurrentMember(family, caller).IsApprovedParent()
}

// PendingParentRequests lists parents waiting for approval
func (s *FamilyService) PendingParentRequests(family *models.Family) []*models.FamilyMember {
	if family == nil {
		return nil
	}
	return family.PendingParents()
}

// FindMatchingMember suggests a pre-added member the caller might be
func (s *FamilyService) FindMatchingMember(family *models.Family, caller models.Identity) *models.FamilyMember {
	return MatchMember(family, caller.MatchName(), caller.Email)
}

// InviteLink builds the shareable join link for family
func InviteLink(family *models.Family, baseURL string) string {
	if family == nil {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "?familyCode=" + family.ID
}
