package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/beaconalert/beacon/internal/api/respond"
	"github.com/beaconalert/beacon/internal/notify"
)

const maxBodyBytes = 64 << 10

// NotifyContacts alerts the reporter's personal emergency contacts.
// @Summary Notify personal contacts
// @Description Emails and texts every saved contact of user_id. Per-recipient failures are listed in failures and never fail the request.
// @Tags notify
// @Accept json
// @Produce json
// @Param request body notify.Request true "Emergency"
// @Success 200 {object} notify.ContactsResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /functions/v1/notify-contacts [post]
func (h *Handler) NotifyContacts(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.notify(w, r, notify.StrategyContacts)
	if !ok {
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, rep.ContactsResponse())
}

// NotifyResponders alerts every responder and admin account.
// @Summary Notify responders
// @Description Emails every account holding the responder or admin role.
// @Tags notify
// @Accept json
// @Produce json
// @Param request body notify.Request true "Emergency"
// @Success 200 {object} notify.RespondersResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /functions/v1/notify-responders [post]
func (h *Handler) NotifyResponders(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.notify(w, r, notify.StrategyResponders)
	if !ok {
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, rep.RespondersResponse())
}

// notify decodes the body and runs the pipeline. On failure it has already
// written the error response.
func (h *Handler) notify(w http.ResponseWriter, r *http.Request, strategy notify.Strategy) (notify.Report, bool) {
	req, err := decodeRequest(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, err.Error())
		return notify.Report{}, false
	}

	rep, err := h.svc.Notify(r.Context(), strategy, req)
	switch {
	case err == nil:
		return rep, true
	case errors.Is(err, notify.ErrInvalidRequest):
		respond.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		respond.WriteError(w, http.StatusInternalServerError, err.Error())
	}
	return notify.Report{}, false
}

func decodeRequest(r *http.Request) (notify.Request, error) {
	var req notify.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, fmt.Errorf("%w: empty body", notify.ErrInvalidRequest)
		}
		return req, fmt.Errorf("%w: malformed JSON: %v", notify.ErrInvalidRequest, err)
	}
	return req, nil
}
