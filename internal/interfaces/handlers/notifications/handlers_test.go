package notifications

import (
	"testing"

	notifsvc "insurledger-backend/internal/application/notifications"
	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupNotificationsTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db := testutil.NewDB(t)
	h := &Handlers{Service: &notifsvc.Service{DB: db}}
	app := testutil.NewApp()
	app.Get("/notifications", h.List)
	app.Post("/notifications/:notification_id/read", h.MarkRead)
	return app, db
}

func seed(t *testing.T, db *gorm.DB, target domain.Actor, msg string) *domain.Notification {
	n := &domain.Notification{Target: target, Category: domain.NotifyClaimCreated, Message: msg, Status: domain.NotificationPending}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestInbox(t *testing.T) {
	app, db := setupNotificationsTest(t)
	mine := seed(t, db, testutil.Actor, "Claim reported")
	seed(t, db, testutil.Actor, "Claim settled")
	theirs := seed(t, db, "someone-else", "Not yours")

	status, out := testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/notifications", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 2)

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/notifications/"+mine.NotificationID.String()+"/read", nil))
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, "READ", testutil.Data(t, out)["status"])

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "GET", "/notifications?unread=true", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["data"], 1)

	status, out = testutil.Do(t, app, testutil.JSONRequest(t, "POST", "/notifications/"+theirs.NotificationID.String()+"/read", nil))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NotFound", testutil.ErrorKind(t, out))
}
