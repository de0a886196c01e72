package claims

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDocument(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.create(t)

	doc, err := f.svc.AddDocument(ctx, analyst, c.ClaimID, DocumentInput{
		Kind: domain.DocTechnicalReport, Description: "Technician report", Filename: "report.PDF", Data: []byte("%PDF-1.7"),
	})
	require.NoError(t, err)
	assert.True(t, f.blobs.Has(doc.BlobRef))
	assert.Contains(t, doc.BlobRef, "claims/ID_"+c.ClaimID.String())
	require.NotNil(t, doc.Description)

	docs, err := f.svc.ListDocuments(ctx, c.ClaimID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestAddDocument_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.create(t)

	_, err := f.svc.AddDocument(ctx, analyst, c.ClaimID, DocumentInput{Kind: domain.DocPhotos, Filename: "macro.docm", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	big := bytes.Repeat([]byte("a"), validation.MaxDocumentSize+1)
	_, err = f.svc.AddDocument(ctx, analyst, c.ClaimID, DocumentInput{Kind: domain.DocPhotos, Filename: "huge.png", Data: big})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.AddDocument(ctx, analyst, c.ClaimID, DocumentInput{Kind: "SELFIE", Filename: "a.png", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, f.db.Model(&domain.Claim{}).Where("claim_id = ?", c.ClaimID).Update("state", domain.ClaimSettled).Error)
	_, err = f.svc.AddDocument(ctx, analyst, c.ClaimID, DocumentInput{Kind: domain.DocPhotos, Filename: "late.png", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrStateViolation)
	assert.Zero(t, f.blobs.Len())
}

func TestAddDocument_StoreFailureWritesNothing(t *testing.T) {
	f := setup(t)
	c := f.create(t)
	f.blobs.FailStore = errors.New("bucket unavailable")

	_, err := f.svc.AddDocument(context.Background(), analyst, c.ClaimID, DocumentInput{Kind: domain.DocPhotos, Filename: "a.png", Data: []byte("x")})
	require.Error(t, err)

	var n int64
	require.NoError(t, f.db.Model(&domain.ClaimDocument{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRemoveDocument(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.create(t)
	doc, err := f.svc.AddDocument(ctx, analyst, c.ClaimID, DocumentInput{Kind: domain.DocPoliceReport, Filename: "police.pdf", Data: []byte("pdf")})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveDocument(ctx, analyst, doc.DocumentID))
	assert.False(t, f.blobs.Has(doc.BlobRef))

	assert.ErrorIs(t, f.svc.RemoveDocument(ctx, analyst, doc.DocumentID), domain.ErrNotFound)
}
