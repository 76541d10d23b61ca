package downloads

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/objstore"
	"github.com/datican/datarepo/pkg/tutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downloadTestCase struct {
	stors   *stor.Stors
	issuer  *objstore.FakeLinkIssuer
	service *DownloadService

	user    *model.User
	other   *model.User
	manager *model.User
	dataset *model.Dataset
	request *model.DataRequest
}

type downloadTestOptions struct {
	legacyDataset bool
	requestStatus string
}

func newDownloadTestCase(t *testing.T, opts downloadTestOptions) *downloadTestCase {
	db := tutil.NewTestDB(t)
	stors := stor.NewGormStors(db)
	issuer := objstore.NewFakeLinkIssuer()

	service := NewDownloadService(stors, issuer)
	service.SetNowFunc(func() time.Time {
		return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	})

	tc := &downloadTestCase{stors: stors, issuer: issuer, service: service}

	var err error
	tc.user, err = stors.UserStor.CreateUser(&model.User{
		Name: "R. Requester", Email: "requester@example.org", Role: model.RoleUser, IsActive: true,
	})
	require.NoError(t, err)

	tc.other, err = stors.UserStor.CreateUser(&model.User{
		Name: "S. Stranger", Email: "stranger@example.org", Role: model.RoleUser, IsActive: true,
	})
	require.NoError(t, err)

	tc.manager, err = stors.UserStor.CreateUser(&model.User{
		Name: "M. Manager", Email: "manager@example.org", Role: model.RoleDataManager, IsActive: true,
	})
	require.NoError(t, err)

	dataset := &model.Dataset{
		Title: "Chest X-Ray Collection", Category: "radiology", OwnerID: tc.manager.ID,
	}
	if opts.legacyDataset {
		dataset.DatasetPath = "legacy/chest-xray.zip"
		dataset.B2FileSize = 500
	}

	tc.dataset, err = stors.DatasetStor.CreateDataset(dataset)
	require.NoError(t, err)

	if !opts.legacyDataset {
		for part := 1; part <= 2; part++ {
			_, err = stors.DatasetStor.AddDatasetFile(&model.DatasetFile{
				DatasetID:  tc.dataset.ID,
				PartNumber: part,
				Name:       "part.zip",
				StorageKey: "datasets/chest-xray/part.zip",
				SizeBytes:  1 << 20,
			})
			require.NoError(t, err)
		}
	}

	status := opts.requestStatus
	if status == "" {
		status = model.StatusApproved
	}

	tc.request, err = stors.DataRequestStor.CreateDataRequest(&model.DataRequest{
		UserID:             tc.user.ID,
		DatasetID:          tc.dataset.ID,
		Status:             status,
		Institution:        "University Hospital",
		ProjectTitle:       "Pneumonia detection study",
		ProjectDescription: "Training a classifier.",
	})
	require.NoError(t, err)

	return tc
}

func (tc *downloadTestCase) downloadCount(t *testing.T) int {
	req, err := tc.stors.DataRequestStor.GetDataRequestByID(tc.request.ID)
	require.NoError(t, err)
	return req.DownloadCount
}

func TestListPartsRequiresEntitlement(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})

	parts, err := tc.service.ListParts(tc.user, tc.dataset.ID)
	require.NoError(t, err)
	assert.Len(t, parts, 2)

	_, err = tc.service.ListParts(tc.other, tc.dataset.ID)
	assert.ErrorIs(t, err, ErrNoEntitlement)

	// Staff can inspect parts without a request.
	parts, err = tc.service.ListParts(tc.manager, tc.dataset.ID)
	require.NoError(t, err)
	assert.Len(t, parts, 2)

	// Listing never touches the ledger.
	assert.Equal(t, 0, tc.downloadCount(t))
}

func TestListPartsLegacySingleFile(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{legacyDataset: true})

	parts, err := tc.service.ListParts(tc.user, tc.dataset.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, 1, parts[0].PartNumber)
	assert.Equal(t, "chest-xray.zip", parts[0].Name)
	assert.Equal(t, int64(500), parts[0].SizeBytes)
}

func TestPartURLDoesNotConsumeQuota(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})

	url, err := tc.service.PartURL(context.Background(), tc.user, tc.dataset.ID, 1, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	assert.Equal(t, 1, tc.issuer.IssuedCount())
	assert.Equal(t, 0, tc.downloadCount(t))

	_, err = tc.service.PartURL(context.Background(), tc.user, tc.dataset.ID, 9, 0)
	assert.ErrorIs(t, err, ErrNoSuchPart)
}

func TestRecordDownloadOwnerOnly(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})

	_, err := tc.service.RecordDownload(tc.other, tc.request.ID)
	assert.ErrorIs(t, err, ErrNoEntitlement)
	assert.Equal(t, 0, tc.downloadCount(t))

	req, err := tc.service.RecordDownload(tc.user, tc.request.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, req.DownloadCount)

	dataset, err := tc.stors.DatasetStor.GetDatasetByID(tc.dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dataset.DownloadCount)
}

func TestDownloadPartConsumesOneUnit(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})

	url, err := tc.service.DownloadPart(context.Background(), tc.user, tc.dataset.ID, 2, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, url)
	assert.Equal(t, 1, tc.downloadCount(t))
}

func TestDownloadPartRefusedWhenQuotaExhausted(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})

	for i := 0; i < model.DefaultMaxDownloads; i++ {
		_, err := tc.service.RecordDownload(tc.user, tc.request.ID)
		require.NoError(t, err)
	}

	issuedBefore := tc.issuer.IssuedCount()

	_, err := tc.service.DownloadPart(context.Background(), tc.user, tc.dataset.ID, 1, 0)
	assert.ErrorIs(t, err, ErrNoEntitlement)

	// The refused download neither signed a URL nor touched the ledger.
	assert.Equal(t, issuedBefore, tc.issuer.IssuedCount())
	assert.Equal(t, model.DefaultMaxDownloads, tc.downloadCount(t))
}

func TestDownloadRefusedWithoutApproval(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{requestStatus: model.StatusDirectorReview})

	_, err := tc.service.DownloadPart(context.Background(), tc.user, tc.dataset.ID, 1, 0)
	assert.ErrorIs(t, err, ErrNoEntitlement)
	assert.Equal(t, 0, tc.issuer.IssuedCount())
}

func TestBulkScriptCountsOnce(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})

	script, err := tc.service.BulkScript(context.Background(), tc.user, tc.dataset.ID, 0)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(script, "#!/bin/sh\n"))
	assert.Equal(t, 2, strings.Count(script, "curl -L -o"))

	// Two signed parts, one quota unit.
	assert.Equal(t, 2, tc.issuer.IssuedCount())
	assert.Equal(t, 1, tc.downloadCount(t))
}

func TestDownloadPartStorageFailureLeavesLedgerUntouched(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})
	tc.issuer.Fail = true

	_, err := tc.service.DownloadPart(context.Background(), tc.user, tc.dataset.ID, 1, 0)
	assert.ErrorIs(t, err, objstore.ErrFileUnavailable)
	assert.Equal(t, 0, tc.downloadCount(t))
}

func TestBulkScriptRefusedWhenQuotaExhaustedSignsNothing(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})

	for i := 0; i < model.DefaultMaxDownloads; i++ {
		_, err := tc.service.RecordDownload(tc.user, tc.request.ID)
		require.NoError(t, err)
	}

	_, err := tc.service.BulkScript(context.Background(), tc.user, tc.dataset.ID, 0)
	assert.ErrorIs(t, err, ErrNoEntitlement)
	assert.Equal(t, 0, tc.issuer.IssuedCount())
}

func TestBulkScriptStorageFailureLeavesLedgerUntouched(t *testing.T) {
	tc := newDownloadTestCase(t, downloadTestOptions{})
	tc.issuer.Fail = true

	_, err := tc.service.BulkScript(context.Background(), tc.user, tc.dataset.ID, 0)
	assert.ErrorIs(t, err, objstore.ErrFileUnavailable)
	assert.Equal(t, 0, tc.downloadCount(t))
}
