package mailer

import (
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/pkg/errors"
)

// EmailNotifier turns workflow events into templated emails and records
// every attempt in the notification log. It implements workflow.Notifier.
type EmailNotifier struct {
	mailer   Mailer
	stor     stor.NotificationStor
	siteName string
}

func NewEmailNotifier(mailer Mailer, notificationStor stor.NotificationStor, siteName string) *EmailNotifier {
	return &EmailNotifier{mailer: mailer, stor: notificationStor, siteName: siteName}
}

func (n *EmailNotifier) RequestSubmitted(req *model.DataRequest) error {
	data := n.baseData(req)
	data.Date = time.Now().Format("2006-01-02 15:04")

	body, err := renderTemplate(model.NotificationAcknowledgment, data)
	if err != nil {
		return err
	}

	return n.deliver(req, model.NotificationAcknowledgment, Message{
		To:      []string{req.User.Email},
		Subject: fmt.Sprintf("Data Request Received - #%d", req.ID),
		Body:    body,
	})
}

func (n *EmailNotifier) StaffReviewRequested(req *model.DataRequest, staff *model.User, role string) error {
	data := n.baseData(req)
	data.StaffName = staff.Name
	data.ManagerComment = req.ManagerComment

	body, err := renderTemplate(model.NotificationStaffReview, data)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("New Data Request for Review - #%d", req.ID)
	if role == model.RoleDirector {
		subject = fmt.Sprintf("Data Request Ready for Final Approval - #%d", req.ID)
	}

	return n.deliver(req, model.NotificationStaffReview, Message{
		To:      []string{staff.Email},
		Subject: subject,
		Body:    body,
	})
}

func (n *EmailNotifier) RequestApproved(req *model.DataRequest) error {
	data := n.baseData(req)
	data.DirectorComment = req.DirectorComment
	data.MaxDownloads = req.MaxDownloads
	data.Date = time.Now().Format("2006-01-02 15:04")
	if req.ApprovedDate != nil {
		data.Date = req.ApprovedDate.Format("2006-01-02 15:04")
	}

	body, err := renderTemplate(model.NotificationApproval, data)
	if err != nil {
		return err
	}

	return n.deliver(req, model.NotificationApproval, Message{
		To:      []string{req.User.Email},
		Subject: fmt.Sprintf("Your Data Request Approved - #%d", req.ID),
		Body:    body,
	})
}

func (n *EmailNotifier) RequestRejected(req *model.DataRequest, decidedBy *model.User, role, reason string) error {
	data := n.baseData(req)
	data.Reason = reason
	data.Date = time.Now().Format("2006-01-02 15:04")

	body, err := renderTemplate(model.NotificationRejection, data)
	if err != nil {
		return err
	}

	return n.deliver(req, model.NotificationRejection, Message{
		To:      []string{req.User.Email},
		Subject: fmt.Sprintf("Your Data Request Status - #%d", req.ID),
		Body:    body,
	})
}

func (n *EmailNotifier) StatusUpdate(req *model.DataRequest, previousStatus string, updatedBy *model.User) error {
	data := n.baseData(req)
	data.PreviousStatus = previousStatus
	data.CurrentStatus = req.Status
	data.ManagerComment = req.ManagerComment

	body, err := renderTemplate(model.NotificationStatusUpdate, data)
	if err != nil {
		return err
	}

	return n.deliver(req, model.NotificationStatusUpdate, Message{
		To:      []string{req.User.Email},
		Subject: fmt.Sprintf("Data Request Status Update - #%d", req.ID),
		Body:    body,
	})
}

func (n *EmailNotifier) NoStaffAvailable(req *model.DataRequest, neededRole string, admins []model.User) error {
	if len(admins) == 0 {
		return errors.Errorf("request %d needs a %s and there are no admins to tell", req.ID, neededRole)
	}

	data := n.baseData(req)
	data.NeededRole = neededRole

	body, err := renderTemplate(model.NotificationStaffFallback, data)
	if err != nil {
		return err
	}

	var recipients []string
	for _, admin := range admins {
		recipients = append(recipients, admin.Email)
	}

	return n.deliver(req, model.NotificationStaffFallback, Message{
		To:      recipients,
		Subject: fmt.Sprintf("Data Request Needs Staff Assignment - #%d", req.ID),
		Body:    body,
	})
}

func (n *EmailNotifier) baseData(req *model.DataRequest) templateData {
	data := templateData{
		RequestID:    req.ID,
		ProjectTitle: req.ProjectTitle,
		Institution:  req.Institution,
		SiteName:     n.siteName,
	}

	if req.User != nil {
		data.UserName = req.User.Name
		data.UserEmail = req.User.Email
	}

	if req.Dataset != nil {
		data.DatasetTitle = req.Dataset.Title
	}

	return data
}

// deliver sends the message and records the attempt. A failure to record
// is logged and otherwise ignored so it can never mask a send result.
func (n *EmailNotifier) deliver(req *model.DataRequest, kind string, msg Message) error {
	sendErr := n.mailer.Send(msg)

	record := &model.Notification{
		DataRequestID: req.ID,
		Kind:          kind,
		Recipient:     msg.To[0],
		Sent:          sendErr == nil,
	}
	if sendErr != nil {
		record.SendError = sendErr.Error()
	}

	if _, err := n.stor.RecordNotification(record); err != nil {
		log.Errorf("unable to record %s notification for request %d: %s", kind, req.ID, err)
	}

	return sendErr
}
