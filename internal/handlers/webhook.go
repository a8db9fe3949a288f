package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
	"github.com/coalharbourgroup/PM-email-vcs/internal/naming"
	"github.com/coalharbourgroup/PM-email-vcs/internal/reconcile"
)

const (
	headerSignature = "X-Hub-Signature"
	headerEvent     = "X-GitHub-Event"
	headerDelivery  = "X-GitHub-Delivery"
	headerProcessed = "processed"

	signaturePrefix = "sha1="
	maxBodyBytes    = 5 << 20
)

// GitHubWebhook syncs the templates touched by a push to the configured branch
func (h *Handler) GitHubWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeAppError(w, errors.InvalidRequest("Only POST method is allowed"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeAppError(w, errors.InvalidRequest("Failed to read request body: "+err.Error()))
		return
	}

	if appErr := h.verify(r.Header, body); appErr != nil {
		h.log.Warnf("Webhook rejected: %s", appErr.Message)
		h.writeAppError(w, appErr)
		return
	}

	delivery := models.Delivery{
		ID:         r.Header.Get(headerDelivery),
		RunID:      uuid.NewString(),
		Event:      r.Header.Get(headerEvent),
		StatusCode: http.StatusOK,
		ReceivedAt: time.Now().UTC(),
	}
	log := h.log.WithStr("delivery_id", delivery.ID).WithStr("run_id", delivery.RunID)

	// Sync work continues after the caller disconnects.
	ctx := context.WithoutCancel(r.Context())
	defer h.record(ctx, log, &delivery)

	var event models.PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		delivery.StatusCode = http.StatusBadRequest
		h.writeAppError(w, errors.InvalidRequest("Invalid webhook payload: "+err.Error()))
		return
	}
	delivery.Ref = event.Ref

	if event.Ref != models.BranchRef(h.cfg.Branch) {
		log.Infof("Skipping push to branch %q, syncing %q only", event.GetBranch(), h.cfg.Branch)
		delivery.StatusCode = http.StatusNonAuthoritativeInfo
		w.Header().Set(headerProcessed, "0")
		h.writeText(w, fmt.Sprintf("Skipped: %s is not the sync branch", event.Ref), http.StatusNonAuthoritativeInfo)
		return
	}

	if appErr := h.validator.ValidatePushEvent(&event); appErr != nil {
		delivery.StatusCode = appErr.StatusCode
		h.writeAppError(w, appErr)
		return
	}

	out := reconcile.NewOutcome()
	files := h.collect(ctx, log, event, out)

	log.Infof("Syncing %d file(s)", len(files))
	if err := h.syncer.Sync(ctx, files, out); err != nil {
		log.Error("Sync batch faulted", err)
		out.Fail(err.Error())
	}

	sum := out.Summary()
	delivery.Processed = sum.Processed()
	delivery.Errors = len(sum.Errors)

	if _, err := h.notifier.Notify(ctx, sum); err != nil {
		appErr := errors.NotifyFailed(err)
		delivery.StatusCode = appErr.StatusCode
		h.writeAppError(w, appErr)
		return
	}

	log.Infof("Sync finished: %d of %d file(s) applied, %d error(s)", delivery.Processed, len(files), delivery.Errors)
	w.Header().Set(headerProcessed, strconv.Itoa(len(files)))
	h.writeJSON(w, &models.SyncResponse{Input: body, Files: files}, http.StatusOK)
}

// verify runs the header and signature checks in order, returning the first failure
func (h *Handler) verify(header http.Header, body []byte) *errors.AppError {
	if h.cfg.WebhookSecret == "" {
		return errors.MissingSecret()
	}

	signature := header.Get(headerSignature)
	if signature == "" {
		return errors.MissingSignature()
	}
	if header.Get(headerEvent) == "" {
		return errors.MissingEvent()
	}
	if header.Get(headerDelivery) == "" {
		return errors.MissingDelivery()
	}

	if !hmac.Equal([]byte(signature), []byte(Sign(h.cfg.WebhookSecret, body))) {
		return errors.SignatureMismatch()
	}
	return nil
}

// Sign returns the X-Hub-Signature value of body for secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// collect flattens the pushed paths and drops those whose remote name is
// already taken. Collisions and a failed tree listing are recorded in out.
func (h *Handler) collect(ctx context.Context, log *logger.Logger, event models.PushEvent, out *reconcile.Outcome) []string {
	cs := event.ChangeSet()
	log.Infof("Push carries %d change(s): %d added, %d modified, %d removed", cs.Len(), len(cs.Added), len(cs.Modified), len(cs.Removed))

	tree, err := h.lister.ListFiles(ctx, "")
	if err != nil {
		log.Error("Unable to list repository tree", err)
		out.Fail(fmt.Sprintf("Unable to list repository files (%v)", err))
		tree = nil
	}

	files, collisions := naming.Deduplicate(event.TouchedFiles(), tree)
	for _, c := range collisions {
		log.Warn(c.Error())
		out.Fail(c.Error())
	}
	return files
}

func (h *Handler) record(ctx context.Context, log *logger.Logger, d *models.Delivery) {
	if h.deliveries == nil {
		return
	}
	if err := h.deliveries.Record(ctx, *d); err != nil {
		log.Error("Failed to record delivery", err)
	}
}
