package downloads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/objstore"
	"gorm.io/gorm"
)

var (
	// ErrNoEntitlement means the caller holds no approved request for the
	// dataset, or the quota is gone.
	ErrNoEntitlement = errors.New("no approved request with downloads remaining")
	ErrNoSuchPart    = errors.New("no such dataset part")
)

// Part is one downloadable unit of a dataset as reported to clients.
// Legacy datasets with no part rows surface their single file as part 1.
type Part struct {
	PartNumber int    `json:"part_number"`
	Name       string `json:"name"`
	SizeBytes  int64  `json:"size_bytes"`
	storageKey string
}

// DownloadService issues signed links against entitlements and does the
// download accounting. Link issuance never mutates the ledger; only
// RecordDownload (and the endpoints built on it) consume quota.
type DownloadService struct {
	stors  *stor.Stors
	issuer objstore.LinkIssuer
	now    func() time.Time
}

func NewDownloadService(stors *stor.Stors, issuer objstore.LinkIssuer) *DownloadService {
	return &DownloadService{stors: stors, issuer: issuer, now: time.Now}
}

// SetNowFunc overrides the clock, for tests.
func (s *DownloadService) SetNowFunc(now func() time.Time) {
	s.now = now
}

// entitledRequest returns the caller's approved request for the dataset.
// Staff and admins may inspect parts without one.
func (s *DownloadService) entitledRequest(actor *model.User, datasetID int) (*model.DataRequest, error) {
	req, err := s.stors.DataRequestStor.GetApprovedRequestForUserAndDataset(actor.ID, datasetID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNoEntitlement
	case err != nil:
		return nil, err
	}

	return req, nil
}

// ListParts lists the downloadable parts of a dataset. The caller must be
// staff or hold an approved request; listing consumes no quota.
func (s *DownloadService) ListParts(actor *model.User, datasetID int) ([]Part, error) {
	if !actor.IsStaff() {
		if _, err := s.entitledRequest(actor, datasetID); err != nil {
			return nil, err
		}
	}

	dataset, err := s.stors.DatasetStor.GetDatasetByID(datasetID)
	if err != nil {
		return nil, err
	}

	return datasetParts(dataset), nil
}

func datasetParts(dataset *model.Dataset) []Part {
	if len(dataset.Files) == 0 {
		if dataset.DatasetPath == "" {
			return nil
		}

		// Legacy single-file dataset.
		name := dataset.DatasetPath
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}

		return []Part{{
			PartNumber: 1,
			Name:       name,
			SizeBytes:  dataset.B2FileSize,
			storageKey: dataset.DatasetPath,
		}}
	}

	parts := make([]Part, 0, len(dataset.Files))
	for _, f := range dataset.Files {
		parts = append(parts, Part{
			PartNumber: f.PartNumber,
			Name:       f.Name,
			SizeBytes:  f.SizeBytes,
			storageKey: f.StorageKey,
		})
	}

	return parts
}

// PartURL returns a presigned URL for one part without consuming quota,
// so clients can inspect parts before committing to a download.
func (s *DownloadService) PartURL(ctx context.Context, actor *model.User, datasetID, partNumber int, expiry time.Duration) (string, error) {
	parts, err := s.ListParts(actor, datasetID)
	if err != nil {
		return "", err
	}

	for _, p := range parts {
		if p.PartNumber == partNumber {
			return s.issuer.PresignedGetURL(ctx, p.storageKey, expiry)
		}
	}

	return "", ErrNoSuchPart
}

// RecordDownload consumes one quota unit for the caller's request and
// bumps the dataset's download counter. Refused attempts have no side
// effects.
func (s *DownloadService) RecordDownload(actor *model.User, requestID int) (*model.DataRequest, error) {
	req, err := s.stors.DataRequestStor.GetDataRequestByID(requestID)
	if err != nil {
		return nil, err
	}

	if req.UserID != actor.ID {
		return nil, ErrNoEntitlement
	}

	req, err = s.stors.DataRequestStor.RecordDownload(requestID, s.now())
	switch {
	case errors.Is(err, stor.ErrQuotaExhausted):
		return nil, ErrNoEntitlement
	case err != nil:
		return nil, err
	}

	if err := s.stors.DatasetStor.IncrementDownloadCount(req.DatasetID); err != nil {
		// The entitlement ledger is authoritative; the dataset counter is
		// display-only, so a failed bump is logged and not surfaced.
		log.Errorf("unable to bump download count for dataset %d: %s", req.DatasetID, err)
	}

	return req, nil
}

// DownloadPart signs the part's URL and then records one download, for
// the redirect endpoint where fetching follows immediately. Signing
// comes first so a storage failure leaves the ledger untouched.
func (s *DownloadService) DownloadPart(ctx context.Context, actor *model.User, datasetID, partNumber int, expiry time.Duration) (string, error) {
	req, err := s.entitledRequest(actor, datasetID)
	if err != nil {
		return "", err
	}

	if !req.CanDownload() {
		return "", ErrNoEntitlement
	}

	parts, err := s.ListParts(actor, datasetID)
	if err != nil {
		return "", err
	}

	var key string
	for _, p := range parts {
		if p.PartNumber == partNumber {
			key = p.storageKey
			break
		}
	}

	if key == "" {
		return "", ErrNoSuchPart
	}

	u, err := s.issuer.PresignedGetURL(ctx, key, expiry)
	if err != nil {
		return "", err
	}

	if _, err := s.RecordDownload(actor, req.ID); err != nil {
		return "", err
	}

	return u, nil
}

// BulkScript returns a shell script that fetches every part with curl.
// Generating it consumes a single quota unit regardless of part count.
func (s *DownloadService) BulkScript(ctx context.Context, actor *model.User, datasetID int, expiry time.Duration) (string, error) {
	req, err := s.entitledRequest(actor, datasetID)
	if err != nil {
		return "", err
	}

	if !req.CanDownload() {
		return "", ErrNoEntitlement
	}

	dataset, err := s.stors.DatasetStor.GetDatasetByID(datasetID)
	if err != nil {
		return "", err
	}

	parts := datasetParts(dataset)
	if len(parts) == 0 {
		return "", ErrNoSuchPart
	}

	// Sign everything before consuming quota so a storage failure leaves
	// the ledger untouched.
	type signedPart struct {
		name string
		url  string
	}

	signed := make([]signedPart, 0, len(parts))
	for _, p := range parts {
		u, err := s.issuer.PresignedGetURL(ctx, p.storageKey, expiry)
		if err != nil {
			return "", err
		}
		signed = append(signed, signedPart{name: p.name(), url: u})
	}

	if _, err := s.RecordDownload(actor, req.ID); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString(fmt.Sprintf("# Download script for %s (%d parts)\n", dataset.Title, len(signed)))
	b.WriteString(fmt.Sprintf("# Links expire after %d seconds.\n\n", int(objstore.ClampExpiry(expiry).Seconds())))
	for _, sp := range signed {
		b.WriteString(fmt.Sprintf("curl -L -o %q %q\n", sp.name, sp.url))
	}

	return b.String(), nil
}

func (p Part) name() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("part-%d", p.PartNumber)
}
