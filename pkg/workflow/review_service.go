package workflow

import (
	"errors"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/lock"
	"gorm.io/gorm"
)

var (
	ErrDuplicateRequest = errors.New("an active request already exists for this dataset")
	ErrInvalidRequest   = errors.New("invalid request")
)

// Notifier sends the workflow emails. Implementations are best-effort:
// the review service logs returned errors and never rolls back a
// transition because a send failed.
type Notifier interface {
	RequestSubmitted(req *model.DataRequest) error
	StaffReviewRequested(req *model.DataRequest, staff *model.User, role string) error
	RequestApproved(req *model.DataRequest) error
	RequestRejected(req *model.DataRequest, decidedBy *model.User, role, reason string) error
	StatusUpdate(req *model.DataRequest, previousStatus string, updatedBy *model.User) error
	NoStaffAvailable(req *model.DataRequest, neededRole string, admins []model.User) error
}

// ReviewService owns the request lifecycle: submission, the two review
// tiers, admin overrides, and notification resends. The acting user is
// passed explicitly into every operation.
type ReviewService struct {
	stors    *stor.Stors
	notifier Notifier
	locker   *lock.RequestLocker
	now      func() time.Time
}

func NewReviewService(stors *stor.Stors, notifier Notifier) *ReviewService {
	return &ReviewService{
		stors:    stors,
		notifier: notifier,
		locker:   lock.NewRequestLocker(),
		now:      time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (s *ReviewService) SetNowFunc(now func() time.Time) {
	s.now = now
}

type Submission struct {
	Institution        string
	ProjectTitle       string
	ProjectDescription string
}

func (sub Submission) validate() error {
	switch {
	case strings.TrimSpace(sub.Institution) == "":
		return errors.New("institution is required")
	case strings.TrimSpace(sub.ProjectTitle) == "":
		return errors.New("project title is required")
	case strings.TrimSpace(sub.ProjectDescription) == "":
		return errors.New("project description is required")
	default:
		return nil
	}
}

// Submit creates a pending request for (user, dataset), assigns a data
// manager when one is available, and sends the acknowledgment. A second
// active request for the same pair is refused.
func (s *ReviewService) Submit(user *model.User, dataset *model.Dataset, sub Submission) (*model.DataRequest, error) {
	if err := sub.validate(); err != nil {
		return nil, errors.Join(ErrInvalidRequest, err)
	}

	existing, err := s.stors.DataRequestStor.GetActiveRequestForUserAndDataset(user.ID, dataset.ID)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicateRequest
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	req := &model.DataRequest{
		UserID:             user.ID,
		DatasetID:          dataset.ID,
		Status:             model.StatusPending,
		Institution:        strings.TrimSpace(sub.Institution),
		ProjectTitle:       strings.TrimSpace(sub.ProjectTitle),
		ProjectDescription: strings.TrimSpace(sub.ProjectDescription),
		MaxDownloads:       model.DefaultMaxDownloads,
	}

	if req, err = s.stors.DataRequestStor.CreateDataRequest(req); err != nil {
		return nil, err
	}

	req.User = user
	req.Dataset = dataset

	s.notify(req, func() error { return s.notifier.RequestSubmitted(req) })

	// Hand the request to a data manager right away. If none is active the
	// request stays pending and the admins are told instead.
	if manager := s.pickStaff(model.RoleDataManager); manager != nil {
		s.notify(req, func() error {
			return s.notifier.StaffReviewRequested(req, manager, model.RoleDataManager)
		})
	} else {
		s.notifyNoStaff(req, model.RoleDataManager)
	}

	return req, nil
}

// Outcome is what a review operation returns to its caller: the updated
// request plus any warning the transition raised.
type Outcome struct {
	Request *model.DataRequest
	Result  *TransitionResult
}

// ManagerReview applies a data manager action: recommend, reject, or
// request_changes.
func (s *ReviewService) ManagerReview(requestID int, actor *model.User, action Action, comment string) (*Outcome, error) {
	switch action {
	case ActionRecommend, ActionReject, ActionRequestChanges:
		return s.applyTransition(requestID, actor, action, comment)
	default:
		return nil, errors.Join(ErrInvalidRequest, errors.New("unsupported manager action"))
	}
}

// DirectorDecision applies a director action: approve, reject, or
// return_to_manager.
func (s *ReviewService) DirectorDecision(requestID int, actor *model.User, action Action, comment string) (*Outcome, error) {
	switch action {
	case ActionApprove, ActionReject, ActionReturnToManager:
		return s.applyTransition(requestID, actor, action, comment)
	default:
		return nil, errors.Join(ErrInvalidRequest, errors.New("unsupported director action"))
	}
}

// AdminOverride lets an admin force approve, forward, or reject from any
// non-terminal state, bypassing the manager/director prerequisites.
func (s *ReviewService) AdminOverride(requestID int, actor *model.User, action Action, comment string) (*Outcome, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	switch action {
	case ActionApprove, ActionForward, ActionReject:
		return s.applyTransition(requestID, actor, action, comment)
	default:
		return nil, errors.Join(ErrInvalidRequest, errors.New("unsupported override action"))
	}
}

func (s *ReviewService) applyTransition(requestID int, actor *model.User, action Action, comment string) (*Outcome, error) {
	var outcome *Outcome

	err := s.locker.WithLock(requestID, func() error {
		req, err := s.stors.DataRequestStor.GetDataRequestByID(requestID)
		if err != nil {
			return err
		}

		in := TransitionInput{
			Actor:   actor,
			Action:  action,
			Comment: comment,
			Now:     s.now(),
		}

		if action == ActionRecommend || action == ActionForward {
			in.Director = s.pickStaff(model.RoleDirector)
		}

		result, err := Transition(req, in)
		if err != nil {
			return err
		}

		if req, err = s.stors.DataRequestStor.SaveTransition(req); err != nil {
			return err
		}

		s.dispatchNotice(req, result, actor)

		outcome = &Outcome{Request: req, Result: result}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// dispatchNotice sends the single notification the transition calls for.
func (s *ReviewService) dispatchNotice(req *model.DataRequest, result *TransitionResult, actor *model.User) {
	switch result.Notice {
	case NoticeStaffReview:
		// A recommend/forward notifies the new director; a return notifies
		// the manager the request went back to.
		staff, role := req.Director, model.RoleDirector
		if req.Status == model.StatusManagerReview {
			staff, role = req.Manager, model.RoleDataManager
		}
		if staff == nil {
			log.Errorf("request %d moved to %s with no %s to notify", req.ID, req.Status, role)
			return
		}
		s.notify(req, func() error { return s.notifier.StaffReviewRequested(req, staff, role) })
	case NoticeApproval:
		s.notify(req, func() error { return s.notifier.RequestApproved(req) })
	case NoticeRejection:
		role := model.RoleDataManager
		reason := req.ManagerComment
		if req.DirectorAction == model.DirectorActionRejected {
			role = model.RoleDirector
			reason = req.DirectorComment
		}
		s.notify(req, func() error { return s.notifier.RequestRejected(req, actor, role, reason) })
	case NoticeStatusUpdate:
		s.notify(req, func() error { return s.notifier.StatusUpdate(req, result.From, actor) })
	case NoticeStaffFallback:
		s.notifyNoStaff(req, model.RoleDirector)
	}
}

// ResendStaffNotification re-sends the review notification for wherever
// the request currently sits. Manual recovery for a lost email.
func (s *ReviewService) ResendStaffNotification(requestID int, actor *model.User) error {
	if !actor.IsStaff() {
		return ErrNotAuthorized
	}

	req, err := s.stors.DataRequestStor.GetDataRequestByID(requestID)
	if err != nil {
		return err
	}

	var staff *model.User
	role := model.RoleDataManager

	switch req.Status {
	case model.StatusDirectorReview:
		staff, role = req.Director, model.RoleDirector
	case model.StatusPending, model.StatusManagerReview:
		staff = req.Manager
		if staff == nil {
			staff = s.pickStaff(model.RoleDataManager)
		}
	default:
		return errors.Join(ErrInvalidRequest, errors.New("request is not awaiting review"))
	}

	if staff == nil {
		s.notifyNoStaff(req, role)
		return nil
	}

	return s.notifier.StaffReviewRequested(req, staff, role)
}

// pickStaff returns the first active user with the given role, or nil.
func (s *ReviewService) pickStaff(role string) *model.User {
	staff, err := s.stors.UserStor.GetActiveUsersByRole(role)
	if err != nil || len(staff) == 0 {
		return nil
	}
	return &staff[0]
}

func (s *ReviewService) notifyNoStaff(req *model.DataRequest, neededRole string) {
	admins, err := s.stors.UserStor.GetActiveUsersByRole(model.RoleAdmin)
	if err != nil {
		log.Errorf("request %d: unable to load admins for fallback notification: %s", req.ID, err)
		return
	}

	s.notify(req, func() error { return s.notifier.NoStaffAvailable(req, neededRole, admins) })
}

// notify runs a send and logs a failure without propagating it. The state
// transition that triggered the send has already been persisted.
func (s *ReviewService) notify(req *model.DataRequest, send func() error) {
	if err := send(); err != nil {
		log.Errorf("notification failed for request %d: %s", req.ID, err)
	}
}
