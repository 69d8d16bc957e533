package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-payroll/internal/service/file"
)

type ApprovalServiceImpl struct {
	tx                  database.TxManager
	itemRepo            approval.ItemRepository
	employeeRepo        employee.EmployeeRepository
	userRepo            user.UserRepository
	fileService         file.FileService
	notificationService notification.Service
	policies            map[approval.Kind]approval.KindPolicy
	now                 func() time.Time
}

// NewApprovalService wires one policy per kind. Kinds without a policy cannot be submitted.
func NewApprovalService(
	tx database.TxManager,
	itemRepo approval.ItemRepository,
	employeeRepo employee.EmployeeRepository,
	userRepo user.UserRepository,
	fileService file.FileService,
	notificationService notification.Service,
	policies map[approval.Kind]approval.KindPolicy,
) approval.ApprovalService {
	return &ApprovalServiceImpl{
		tx:                  tx,
		itemRepo:            itemRepo,
		employeeRepo:        employeeRepo,
		userRepo:            userRepo,
		fileService:         fileService,
		notificationService: notificationService,
		policies:            policies,
		now:                 time.Now,
	}
}

func (s *ApprovalServiceImpl) policy(kind approval.Kind) (approval.KindPolicy, error) {
	p, ok := s.policies[kind]
	if !ok {
		return nil, approval.ErrUnknownKind
	}
	return p, nil
}

func submitterIdentity(ctx context.Context) (jwt.Identity, string, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return jwt.Identity{}, "", err
	}
	if !user.HasPermission(identity.Role, user.PermissionApprovalSubmit) {
		return jwt.Identity{}, "", user.ErrInsufficientPermissions
	}
	if identity.EmployeeID == nil || *identity.EmployeeID == "" {
		return jwt.Identity{}, "", employee.ErrEmployeeRequired
	}
	return identity, *identity.EmployeeID, nil
}

func mapItemToResponse(it approval.Item) approval.ItemResponse {
	var subjectDate *string
	if it.SubjectDate != nil {
		d := it.SubjectDate.Format("2006-01-02")
		subjectDate = &d
	}
	return approval.ItemResponse{
		ID:               it.ID,
		Kind:             string(it.Kind),
		SubjectID:        it.SubjectID,
		EmployeeID:       it.EmployeeID,
		EmployeeName:     it.EmployeeName,
		Title:            it.Title,
		Reason:           it.Reason,
		ProofURL:         it.ProofURL,
		DistanceDetected: it.DistanceDetected,
		SubjectDate:      subjectDate,
		Status:           string(it.Status),
		DecisionNote:     it.DecisionNote,
		DecidedBy:        it.DecidedBy,
		DecidedAt:        it.DecidedAt,
		CreatedAt:        it.CreatedAt,
	}
}

// SubmitDispute implements approval.ApprovalService.
func (s *ApprovalServiceImpl) SubmitDispute(ctx context.Context, req approval.SubmitDisputeRequest) (approval.ItemResponse, error) {
	identity, employeeID, err := submitterIdentity(ctx)
	if err != nil {
		return approval.ItemResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return approval.ItemResponse{}, err
	}
	policy, err := s.policy(approval.KindAttendanceDispute)
	if err != nil {
		return approval.ItemResponse{}, err
	}

	item := approval.Item{
		CompanyID:  identity.CompanyID,
		Kind:       approval.KindAttendanceDispute,
		SubjectID:  req.AttemptID,
		EmployeeID: employeeID,
		Reason:     req.Reason,
		ProofURL:   req.ProofURL,
		Status:     approval.StatusPending,
	}

	var uploadedPath string
	if req.File != nil && req.FileHeader != nil {
		uploadedPath, err = s.fileService.UploadDisputeProof(ctx, identity.CompanyID, employeeID, req.AttemptID, req.File, req.FileHeader.Filename)
		if err != nil {
			return approval.ItemResponse{}, err
		}
		proofURL, err := s.fileService.ProofURL(uploadedPath)
		if err != nil {
			s.removeUpload(ctx, uploadedPath)
			return approval.ItemResponse{}, fmt.Errorf("failed to resolve proof url: %w", err)
		}
		item.ProofURL = &proofURL
	}

	created, err := s.create(ctx, policy, item)
	if err != nil {
		if uploadedPath != "" {
			s.removeUpload(ctx, uploadedPath)
		}
		return approval.ItemResponse{}, err
	}

	s.notifyDeciders(ctx, created)
	return mapItemToResponse(created), nil
}

// Submit queues a generic item. Only kinds with a registered policy other than disputes are accepted.
func (s *ApprovalServiceImpl) Submit(ctx context.Context, req approval.SubmitItemRequest) (approval.ItemResponse, error) {
	identity, employeeID, err := submitterIdentity(ctx)
	if err != nil {
		return approval.ItemResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return approval.ItemResponse{}, err
	}
	kind := approval.Kind(req.Kind)
	policy, err := s.policy(kind)
	if err != nil {
		return approval.ItemResponse{}, err
	}

	created, err := s.create(ctx, policy, approval.Item{
		CompanyID:  identity.CompanyID,
		Kind:       kind,
		SubjectID:  req.SubjectID,
		EmployeeID: employeeID,
		Title:      req.Title,
		Reason:     req.Reason,
		ProofURL:   req.ProofURL,
		Status:     approval.StatusPending,
	})
	if err != nil {
		return approval.ItemResponse{}, err
	}

	s.notifyDeciders(ctx, created)
	return mapItemToResponse(created), nil
}

func (s *ApprovalServiceImpl) create(ctx context.Context, policy approval.KindPolicy, item approval.Item) (approval.Item, error) {
	var created approval.Item
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := policy.Prepare(ctx, &item); err != nil {
			return err
		}
		var err error
		created, err = s.itemRepo.Create(ctx, item)
		return err
	})
	return created, err
}

func (s *ApprovalServiceImpl) removeUpload(ctx context.Context, path string) {
	if err := s.fileService.DeleteProof(ctx, path); err != nil {
		logging.L(ctx).Warn("failed to remove orphaned proof", "path", path, "error", err)
	}
}

// Approve implements approval.ApprovalService.
func (s *ApprovalServiceImpl) Approve(ctx context.Context, req approval.DecisionRequest) (approval.ItemResponse, error) {
	return s.decide(ctx, req, approval.DecisionApprove)
}

// Reject implements approval.ApprovalService.
func (s *ApprovalServiceImpl) Reject(ctx context.Context, req approval.DecisionRequest) (approval.ItemResponse, error) {
	return s.decide(ctx, req, approval.DecisionReject)
}

// decide locks the item, applies the transition and runs the kind's side effect in one
// transaction. A concurrent decision sees the committed terminal state and fails.
func (s *ApprovalServiceImpl) decide(ctx context.Context, req approval.DecisionRequest, decision approval.Decision) (approval.ItemResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return approval.ItemResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionApprovalDecide) {
		return approval.ItemResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return approval.ItemResponse{}, err
	}

	decidedBy := identity.UserID
	if identity.EmployeeID != nil {
		decidedBy = *identity.EmployeeID
	}

	var decided approval.Item
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		item, err := s.itemRepo.GetByIDForUpdate(ctx, req.ID, identity.CompanyID)
		if err != nil {
			return err
		}

		decided, err = approval.Transition(item, decision, decidedBy, req.Note, s.now().UTC())
		if err != nil {
			return err
		}
		if err := s.itemRepo.SaveDecision(ctx, decided); err != nil {
			return err
		}

		if decided.Status != approval.StatusApproved {
			return nil
		}
		policy, err := s.policy(decided.Kind)
		if err != nil {
			return err
		}
		return policy.OnApproved(ctx, decided)
	})
	if err != nil {
		return approval.ItemResponse{}, err
	}

	metrics.ApprovalDecisionsTotal.WithLabelValues(string(decided.Kind), string(decided.Status)).Inc()
	s.notifySubmitter(ctx, decided)
	return mapItemToResponse(decided), nil
}

// Get hides other staff members' items from callers without company-wide visibility.
func (s *ApprovalServiceImpl) Get(ctx context.Context, id string) (approval.ItemResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return approval.ItemResponse{}, err
	}

	item, err := s.itemRepo.GetByID(ctx, id, identity.CompanyID)
	if err != nil {
		return approval.ItemResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionApprovalViewAll) {
		if identity.EmployeeID == nil || *identity.EmployeeID != item.EmployeeID {
			return approval.ItemResponse{}, approval.ErrItemNotFound
		}
	}
	return mapItemToResponse(item), nil
}

// List implements approval.ApprovalService.
func (s *ApprovalServiceImpl) List(ctx context.Context, filter approval.ItemFilter) (approval.ListItemResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return approval.ListItemResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return approval.ListItemResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionApprovalViewAll) {
		if identity.EmployeeID == nil {
			return approval.ListItemResponse{}, employee.ErrEmployeeRequired
		}
		own := *identity.EmployeeID
		filter.EmployeeID = &own
	}

	items, total, err := s.itemRepo.List(ctx, filter, identity.CompanyID)
	if err != nil {
		return approval.ListItemResponse{}, fmt.Errorf("failed to list approval items: %w", err)
	}

	responses := make([]approval.ItemResponse, 0, len(items))
	for _, it := range items {
		responses = append(responses, mapItemToResponse(it))
	}
	return approval.ListItemResponse{
		Items:      responses,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// ========== NOTIFICATIONS ==========
// Sent after commit. A failure here never affects the operation that triggered it.

func (s *ApprovalServiceImpl) notifyDeciders(ctx context.Context, item approval.Item) {
	deciders, err := s.userRepo.ListByRoles(ctx, item.CompanyID, []user.Role{user.RolePrincipal, user.RoleAdmin})
	if err != nil {
		logging.L(ctx).Warn("failed to resolve approval deciders", "item_id", item.ID, "error", err)
		return
	}

	name := item.EmployeeID
	if item.EmployeeName != nil {
		name = *item.EmployeeName
	}
	title := "New attendance dispute"
	if item.Kind != approval.KindAttendanceDispute {
		title = "New submission awaiting approval"
	}

	reqs := make([]notification.CreateNotificationRequest, 0, len(deciders))
	for _, d := range deciders {
		if d.EmployeeID != nil && *d.EmployeeID == item.EmployeeID {
			continue
		}
		reqs = append(reqs, notification.CreateNotificationRequest{
			CompanyID:   item.CompanyID,
			RecipientID: d.ID,
			Type:        notification.TypeDisputeSubmitted,
			Title:       title,
			Message:     fmt.Sprintf("%s submitted an item for review: %s", name, item.Reason),
			Data: map[string]interface{}{
				"item_id": item.ID,
				"kind":    string(item.Kind),
			},
		})
	}
	_ = s.notificationService.QueueBulkNotification(ctx, reqs)
}

func (s *ApprovalServiceImpl) notifySubmitter(ctx context.Context, item approval.Item) {
	emp, err := s.employeeRepo.GetByID(ctx, item.EmployeeID, item.CompanyID)
	if err != nil {
		if !errors.Is(err, employee.ErrEmployeeNotFound) {
			logging.L(ctx).Warn("failed to resolve submitter", "item_id", item.ID, "error", err)
		}
		return
	}
	if emp.UserID == nil {
		return
	}

	notifType := notification.TypeApprovalApproved
	title := "Your submission was approved"
	if item.Status == approval.StatusRejected {
		notifType = notification.TypeApprovalRejected
		title = "Your submission was rejected"
	}
	message := title
	if item.DecisionNote != nil && *item.DecisionNote != "" {
		message = fmt.Sprintf("%s: %s", title, *item.DecisionNote)
	}

	err = s.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
		CompanyID:   item.CompanyID,
		RecipientID: *emp.UserID,
		SenderID:    item.DecidedBy,
		Type:        notifType,
		Title:       title,
		Message:     message,
		Data: map[string]interface{}{
			"item_id": item.ID,
			"kind":    string(item.Kind),
			"status":  string(item.Status),
		},
	})
	if err != nil {
		logging.L(ctx).Warn("failed to queue decision notification", "item_id", item.ID, "error", err)
	}
}
