package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/tutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedEvent is one notifier call as seen by the tests.
type recordedEvent struct {
	Kind      string
	RequestID int
	Recipient string
	Role      string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (n *recordingNotifier) record(ev recordedEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) RequestSubmitted(req *model.DataRequest) error {
	n.record(recordedEvent{Kind: model.NotificationAcknowledgment, RequestID: req.ID})
	return nil
}

func (n *recordingNotifier) StaffReviewRequested(req *model.DataRequest, staff *model.User, role string) error {
	n.record(recordedEvent{Kind: model.NotificationStaffReview, RequestID: req.ID, Recipient: staff.Email, Role: role})
	return nil
}

func (n *recordingNotifier) RequestApproved(req *model.DataRequest) error {
	n.record(recordedEvent{Kind: model.NotificationApproval, RequestID: req.ID})
	return nil
}

func (n *recordingNotifier) RequestRejected(req *model.DataRequest, decidedBy *model.User, role, reason string) error {
	n.record(recordedEvent{Kind: model.NotificationRejection, RequestID: req.ID, Role: role})
	return nil
}

func (n *recordingNotifier) StatusUpdate(req *model.DataRequest, previousStatus string, updatedBy *model.User) error {
	n.record(recordedEvent{Kind: model.NotificationStatusUpdate, RequestID: req.ID})
	return nil
}

func (n *recordingNotifier) NoStaffAvailable(req *model.DataRequest, neededRole string, admins []model.User) error {
	n.record(recordedEvent{Kind: model.NotificationStaffFallback, RequestID: req.ID, Role: neededRole})
	return nil
}

func (n *recordingNotifier) ofKind(kind string) []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	var matched []recordedEvent
	for _, ev := range n.events {
		if ev.Kind == kind {
			matched = append(matched, ev)
		}
	}
	return matched
}

type reviewTestCase struct {
	stors    *stor.Stors
	notifier *recordingNotifier
	service  *ReviewService

	user     *model.User
	manager  *model.User
	director *model.User
	admin    *model.User
	dataset  *model.Dataset
}

type reviewTestOptions struct {
	noManager  bool
	noDirector bool
}

func newReviewTestCase(t *testing.T, opts reviewTestOptions) *reviewTestCase {
	db := tutil.NewTestDB(t)
	stors := stor.NewGormStors(db)
	notifier := &recordingNotifier{}

	service := NewReviewService(stors, notifier)
	service.SetNowFunc(func() time.Time {
		return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	})

	tc := &reviewTestCase{stors: stors, notifier: notifier, service: service}

	var err error
	tc.user, err = stors.UserStor.CreateUser(&model.User{
		Name: "R. Requester", Email: "requester@example.org", Role: model.RoleUser, IsActive: true,
	})
	require.NoError(t, err)

	tc.admin, err = stors.UserStor.CreateUser(&model.User{
		Name: "A. Admin", Email: "admin@example.org", Role: model.RoleAdmin, IsActive: true,
	})
	require.NoError(t, err)

	if !opts.noManager {
		tc.manager, err = stors.UserStor.CreateUser(&model.User{
			Name: "M. Manager", Email: "manager@example.org", Role: model.RoleDataManager, IsActive: true,
		})
		require.NoError(t, err)
	}

	if !opts.noDirector {
		tc.director, err = stors.UserStor.CreateUser(&model.User{
			Name: "D. Director", Email: "director@example.org", Role: model.RoleDirector, IsActive: true,
		})
		require.NoError(t, err)
	}

	tc.dataset, err = stors.DatasetStor.CreateDataset(&model.Dataset{
		Title: "Chest X-Ray Collection", Category: "radiology", Task: model.TaskClassification,
		Format: "png", OwnerID: tc.admin.ID,
	})
	require.NoError(t, err)

	return tc
}

func validSubmission() Submission {
	return Submission{
		Institution:        "University Hospital",
		ProjectTitle:       "Pneumonia detection study",
		ProjectDescription: "Training a classifier on anonymized chest films.",
	}
}

func TestSubmitCreatesPendingRequestAndNotifies(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, req.Status)
	assert.Equal(t, model.DefaultMaxDownloads, req.MaxDownloads)

	require.Len(t, tc.notifier.ofKind(model.NotificationAcknowledgment), 1)

	reviews := tc.notifier.ofKind(model.NotificationStaffReview)
	require.Len(t, reviews, 1)
	assert.Equal(t, tc.manager.Email, reviews[0].Recipient)
	assert.Equal(t, model.RoleDataManager, reviews[0].Role)
}

func TestSubmitRefusesDuplicateActiveRequest(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	_, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	_, err = tc.service.Submit(tc.user, tc.dataset, validSubmission())
	assert.ErrorIs(t, err, ErrDuplicateRequest)
}

func TestSubmitValidatesFields(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	sub := validSubmission()
	sub.ProjectTitle = "   "
	_, err := tc.service.Submit(tc.user, tc.dataset, sub)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSubmitWithNoManagerFallsBackToAdmins(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{noManager: true})

	_, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	assert.Empty(t, tc.notifier.ofKind(model.NotificationStaffReview))

	fallbacks := tc.notifier.ofKind(model.NotificationStaffFallback)
	require.Len(t, fallbacks, 1)
	assert.Equal(t, model.RoleDataManager, fallbacks[0].Role)
}

func TestManagerRecommendAssignsDirector(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	outcome, err := tc.service.ManagerReview(req.ID, tc.manager, ActionRecommend, "checks out")
	require.NoError(t, err)

	assert.Equal(t, model.StatusDirectorReview, outcome.Request.Status)
	require.NotNil(t, outcome.Request.DirectorID)
	assert.Equal(t, tc.director.ID, *outcome.Request.DirectorID)

	// One notification to the manager at submit, one to the director now.
	reviews := tc.notifier.ofKind(model.NotificationStaffReview)
	require.Len(t, reviews, 2)
	assert.Equal(t, tc.director.Email, reviews[1].Recipient)
	assert.Equal(t, model.RoleDirector, reviews[1].Role)

	// Status survived the round trip through the database.
	stored, err := tc.stors.DataRequestStor.GetDataRequestByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDirectorReview, stored.Status)
	assert.Equal(t, model.ManagerActionRecommended, stored.ManagerAction)
}

func TestManagerRecommendWithNoDirectorNotifiesAdmins(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{noDirector: true})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	outcome, err := tc.service.ManagerReview(req.ID, tc.manager, ActionRecommend, "checks out")
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, outcome.Request.Status)
	assert.NotEmpty(t, outcome.Result.Warning)

	fallbacks := tc.notifier.ofKind(model.NotificationStaffFallback)
	require.Len(t, fallbacks, 1)
	assert.Equal(t, model.RoleDirector, fallbacks[0].Role)
}

func TestFullApprovalFlow(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	_, err = tc.service.ManagerReview(req.ID, tc.manager, ActionRecommend, "checks out")
	require.NoError(t, err)

	outcome, err := tc.service.DirectorDecision(req.ID, tc.director, ActionApprove, "approved for research use")
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, outcome.Request.Status)
	require.NotNil(t, outcome.Request.ApprovedDate)
	assert.True(t, outcome.Request.CanDownload())

	require.Len(t, tc.notifier.ofKind(model.NotificationApproval), 1)

	stored, err := tc.stors.DataRequestStor.GetDataRequestByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovedDate)
}

func TestDirectorRejectSendsRejection(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	_, err = tc.service.ManagerReview(req.ID, tc.manager, ActionRecommend, "checks out")
	require.NoError(t, err)

	outcome, err := tc.service.DirectorDecision(req.ID, tc.director, ActionReject, "data use agreement missing")
	require.NoError(t, err)

	assert.Equal(t, model.StatusRejected, outcome.Request.Status)

	rejections := tc.notifier.ofKind(model.NotificationRejection)
	require.Len(t, rejections, 1)
	assert.Equal(t, model.RoleDirector, rejections[0].Role)
}

func TestDirectorCannotActBeforeRecommendation(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	_, err = tc.service.DirectorDecision(req.ID, tc.director, ActionApprove, "")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	stored, err := tc.stors.DataRequestStor.GetDataRequestByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Empty(t, tc.notifier.ofKind(model.NotificationApproval))
}

func TestAdminOverrideApprove(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	outcome, err := tc.service.AdminOverride(req.ID, tc.admin, ActionApprove, "board mandated")
	require.NoError(t, err)

	assert.Equal(t, model.StatusApproved, outcome.Request.Status)
	require.NotNil(t, outcome.Request.ManagerID)
	assert.Equal(t, tc.admin.ID, *outcome.Request.ManagerID)
	require.NotNil(t, outcome.Request.DirectorID)
	assert.Equal(t, tc.admin.ID, *outcome.Request.DirectorID)
}

func TestAdminOverrideRequiresAdmin(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	_, err = tc.service.AdminOverride(req.ID, tc.manager, ActionApprove, "")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResendStaffNotification(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	_, err = tc.service.ManagerReview(req.ID, tc.manager, ActionRecommend, "checks out")
	require.NoError(t, err)

	err = tc.service.ResendStaffNotification(req.ID, tc.admin)
	require.NoError(t, err)

	reviews := tc.notifier.ofKind(model.NotificationStaffReview)
	require.Len(t, reviews, 3)
	assert.Equal(t, tc.director.Email, reviews[2].Recipient)
}

func TestResendRefusedForNonStaff(t *testing.T) {
	tc := newReviewTestCase(t, reviewTestOptions{})

	req, err := tc.service.Submit(tc.user, tc.dataset, validSubmission())
	require.NoError(t, err)

	err = tc.service.ResendStaffNotification(req.ID, tc.user)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
