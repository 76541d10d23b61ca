package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/datican/datarepo/pkg/drdb/model"
)

// Action is a review action requested by a manager, director, or admin.
type Action string

const (
	ActionRecommend       Action = "recommend"
	ActionReject          Action = "reject"
	ActionRequestChanges  Action = "request_changes"
	ActionApprove         Action = "approve"
	ActionReturnToManager Action = "return_to_manager"

	// ActionForward is the admin override form of recommend: it pushes a
	// request into director review regardless of the manager prerequisites.
	ActionForward Action = "forward"
)

var (
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrNotAuthorized     = errors.New("actor is not authorized for this action")
)

// Notice identifies the single outbound notification a transition emits.
type Notice string

const (
	NoticeNone          Notice = ""
	NoticeStaffReview   Notice = model.NotificationStaffReview
	NoticeApproval      Notice = model.NotificationApproval
	NoticeRejection     Notice = model.NotificationRejection
	NoticeStatusUpdate  Notice = model.NotificationStatusUpdate
	NoticeStaffFallback Notice = model.NotificationStaffFallback
)

// TransitionResult describes an applied transition. The request passed to
// Transition has already been mutated; the result carries what a caller
// needs to persist it and emit the one follow-up notification.
type TransitionResult struct {
	From    string
	To      string
	Notice  Notice
	Warning string
}

// TransitionInput carries everything a transition may consume beyond the
// request itself. Director is the director to assign on recommend/forward
// and may be nil when none is available.
type TransitionInput struct {
	Actor    *model.User
	Action   Action
	Comment  string
	Director *model.User
	Now      time.Time
}

// Transition validates and applies a single review action against req.
// It is the only place request status is allowed to change. Illegal
// (state, role, action) combinations return an error with req untouched.
func Transition(req *model.DataRequest, in TransitionInput) (*TransitionResult, error) {
	if in.Actor == nil {
		return nil, ErrNotAuthorized
	}

	if req.IsTerminal() {
		return nil, errapply(req, in, "request is in terminal state %q", req.Status)
	}

	switch in.Action {
	case ActionRecommend:
		return managerRecommend(req, in)
	case ActionRequestChanges:
		return managerRequestChanges(req, in)
	case ActionReject:
		return rejectRequest(req, in)
	case ActionApprove:
		return approveRequest(req, in)
	case ActionReturnToManager:
		return returnToManager(req, in)
	case ActionForward:
		return adminForward(req, in)
	default:
		return nil, errapply(req, in, "unknown action %q", in.Action)
	}
}

func managerStateOK(status string) bool {
	return status == model.StatusPending || status == model.StatusManagerReview
}

func managerRecommend(req *model.DataRequest, in TransitionInput) (*TransitionResult, error) {
	if !in.Actor.IsDataManager() {
		return nil, ErrNotAuthorized
	}

	if !managerStateOK(req.Status) {
		return nil, errapply(req, in, "recommend is not legal from %q", req.Status)
	}

	from := req.Status
	setManagerFields(req, in, model.ManagerActionRecommended)

	if in.Director == nil {
		// No director available: record the recommendation but hold the
		// request where it is and fall back to notifying the admins.
		return &TransitionResult{
			From:    from,
			To:      req.Status,
			Notice:  NoticeStaffFallback,
			Warning: "no active director available; request held for assignment",
		}, nil
	}

	req.Status = model.StatusDirectorReview
	req.DirectorID = &in.Director.ID
	req.Director = in.Director

	return &TransitionResult{From: from, To: req.Status, Notice: NoticeStaffReview}, nil
}

func managerRequestChanges(req *model.DataRequest, in TransitionInput) (*TransitionResult, error) {
	if !in.Actor.IsDataManager() {
		return nil, ErrNotAuthorized
	}

	if !managerStateOK(req.Status) {
		return nil, errapply(req, in, "request_changes is not legal from %q", req.Status)
	}

	from := req.Status
	setManagerFields(req, in, model.ManagerActionChangesRequested)
	req.Status = model.StatusPending

	return &TransitionResult{From: from, To: req.Status, Notice: NoticeStatusUpdate}, nil
}

func rejectRequest(req *model.DataRequest, in TransitionInput) (*TransitionResult, error) {
	from := req.Status

	switch {
	case in.Actor.IsAdmin():
		// Admin override may reject from any non-terminal state. Backfill
		// whichever review slot is empty so the decision is attributable.
		if req.ManagerID == nil {
			setManagerFields(req, in, model.ManagerActionRejected)
		} else {
			setDirectorFields(req, in, model.DirectorActionRejected)
		}
	case in.Actor.IsDataManager() && managerStateOK(req.Status):
		setManagerFields(req, in, model.ManagerActionRejected)
	case in.Actor.IsDirector() && req.Status == model.StatusDirectorReview:
		setDirectorFields(req, in, model.DirectorActionRejected)
	case in.Actor.IsDataManager() || in.Actor.IsDirector():
		return nil, errapply(req, in, "reject is not legal from %q", req.Status)
	default:
		return nil, ErrNotAuthorized
	}

	req.Status = model.StatusRejected

	return &TransitionResult{From: from, To: req.Status, Notice: NoticeRejection}, nil
}

func approveRequest(req *model.DataRequest, in TransitionInput) (*TransitionResult, error) {
	from := req.Status

	switch {
	case in.Actor.IsAdmin():
		// Backfill so an approved request always names its reviewers.
		if req.ManagerID == nil {
			setManagerFields(req, in, model.ManagerActionRecommended)
		}
	case in.Actor.Role == model.RoleDirector:
		if req.Status != model.StatusDirectorReview {
			return nil, errapply(req, in, "approve is not legal from %q", req.Status)
		}
	default:
		return nil, ErrNotAuthorized
	}

	setDirectorFields(req, in, model.DirectorActionApproved)
	req.Status = model.StatusApproved
	now := in.Now
	req.ApprovedDate = &now

	return &TransitionResult{From: from, To: req.Status, Notice: NoticeApproval}, nil
}

func returnToManager(req *model.DataRequest, in TransitionInput) (*TransitionResult, error) {
	if !in.Actor.IsDirector() {
		return nil, ErrNotAuthorized
	}

	if req.Status != model.StatusDirectorReview {
		return nil, errapply(req, in, "return_to_manager is not legal from %q", req.Status)
	}

	from := req.Status
	setDirectorFields(req, in, model.DirectorActionReturned)
	req.Status = model.StatusManagerReview

	return &TransitionResult{From: from, To: req.Status, Notice: NoticeStaffReview}, nil
}

func adminForward(req *model.DataRequest, in TransitionInput) (*TransitionResult, error) {
	if !in.Actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	if req.Status == model.StatusDirectorReview {
		return nil, errapply(req, in, "forward is not legal from %q", req.Status)
	}

	from := req.Status

	if req.ManagerID == nil {
		setManagerFields(req, in, model.ManagerActionRecommended)
	}

	if in.Director == nil {
		return &TransitionResult{
			From:    from,
			To:      req.Status,
			Notice:  NoticeStaffFallback,
			Warning: "no active director available; request held for assignment",
		}, nil
	}

	req.Status = model.StatusDirectorReview
	req.DirectorID = &in.Director.ID
	req.Director = in.Director

	return &TransitionResult{From: from, To: req.Status, Notice: NoticeStaffReview}, nil
}

func setManagerFields(req *model.DataRequest, in TransitionInput, managerAction string) {
	now := in.Now
	req.ManagerID = &in.Actor.ID
	req.Manager = in.Actor
	req.ManagerAction = managerAction
	req.ManagerComment = in.Comment
	req.ManagerReviewDate = &now
}

func setDirectorFields(req *model.DataRequest, in TransitionInput, directorAction string) {
	req.DirectorID = &in.Actor.ID
	req.Director = in.Actor
	req.DirectorAction = directorAction
	req.DirectorComment = in.Comment
}

func errapply(req *model.DataRequest, in TransitionInput, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s (request %d, action %s)",
		ErrIllegalTransition, fmt.Sprintf(format, args...), req.ID, in.Action)
}
