package httptransport

import (
	"errors"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	appAgency "github.com/stagelink/immersion/internal/application/agency"
	appConvention "github.com/stagelink/immersion/internal/application/convention"
	appEstablishment "github.com/stagelink/immersion/internal/application/establishment"
	domainAgency "github.com/stagelink/immersion/internal/domain/agency"
	domainConvention "github.com/stagelink/immersion/internal/domain/convention"
	"github.com/stagelink/immersion/internal/domain/domainerr"
	"github.com/stagelink/immersion/internal/domain/outbox"
)

// UseCases groups everything the HTTP surface can trigger.
type UseCases struct {
	Submit              *appConvention.SubmitUseCase
	Sign                *appConvention.SignUseCase
	AcceptByCounsellor  *appConvention.AcceptByCounsellorUseCase
	AcceptByValidator   *appConvention.AcceptByValidatorUseCase
	Reject              *appConvention.RejectUseCase
	Cancel              *appConvention.CancelUseCase
	Deprecate           *appConvention.DeprecateUseCase
	RegisterUser        *appAgency.RegisterUserUseCase
	CreateEstablishment *appEstablishment.CreateUseCase
}

type Handler struct {
	uc          UseCases
	conventions domainConvention.Repository
	events      outbox.Repository
}

func NewHandler(uc UseCases, conventions domainConvention.Repository, events outbox.Repository) *Handler {
	return &Handler{uc: uc, conventions: conventions, events: events}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /conventions", h.handleSubmit)
	mux.HandleFunc("GET /conventions/{id}", h.handleGetConvention)
	mux.HandleFunc("POST /conventions/{id}/sign", h.handleSign)
	mux.HandleFunc("POST /conventions/{id}/accept-by-counsellor", h.handleAcceptByCounsellor)
	mux.HandleFunc("POST /conventions/{id}/accept-by-validator", h.handleAcceptByValidator)
	mux.HandleFunc("POST /conventions/{id}/reject", h.handleReject)
	mux.HandleFunc("POST /conventions/{id}/cancel", h.handleCancel)
	mux.HandleFunc("POST /conventions/{id}/deprecate", h.handleDeprecate)
	mux.HandleFunc("POST /agency-users", h.handleRegisterUser)
	mux.HandleFunc("POST /establishments", h.handleCreateEstablishment)
	mux.HandleFunc("GET /outbox/events/{id}", h.handleGetEvent)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type signatoryRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type submitRequest struct {
	ConventionID                string            `json:"convention_id,omitempty"`
	AgencyID                    string            `json:"agency_id"`
	EstablishmentSiret          string            `json:"establishment_siret"`
	Objective                   string            `json:"objective"`
	Beneficiary                 signatoryRequest  `json:"beneficiary"`
	EstablishmentRepresentative signatoryRequest  `json:"establishment_representative"`
	LegalRepresentative         *signatoryRequest `json:"legal_representative,omitempty"`
	CurrentEmployer             *signatoryRequest `json:"current_employer,omitempty"`
}

type conventionResponse struct {
	ConventionID string                  `json:"convention_id"`
	Status       domainConvention.Status `json:"status"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	input := appConvention.SubmitInput{
		ConventionID:                req.ConventionID,
		AgencyID:                    req.AgencyID,
		EstablishmentSiret:          req.EstablishmentSiret,
		Objective:                   req.Objective,
		Beneficiary:                 appConvention.SignatoryInput(req.Beneficiary),
		EstablishmentRepresentative: appConvention.SignatoryInput(req.EstablishmentRepresentative),
	}
	if req.LegalRepresentative != nil {
		in := appConvention.SignatoryInput(*req.LegalRepresentative)
		input.LegalRepresentative = &in
	}
	if req.CurrentEmployer != nil {
		in := appConvention.SignatoryInput(*req.CurrentEmployer)
		input.CurrentEmployer = &in
	}

	result, err := h.uc.Submit.Execute(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, conventionResponse{ConventionID: result.ConventionID, Status: result.Status})
}

type signRequest struct {
	Role domainConvention.SignatoryRole `json:"role"`
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.uc.Sign.Execute(r.Context(), appConvention.SignInput{
		ConventionID: r.PathValue("id"),
		Role:         req.Role,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conventionResponse{ConventionID: result.ConventionID, Status: result.Status})
}

type reviewRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) handleAcceptByCounsellor(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.uc.AcceptByCounsellor.Execute(r.Context(), appConvention.ReviewInput{
		ConventionID: r.PathValue("id"),
		UserID:       req.UserID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conventionResponse{ConventionID: result.ConventionID, Status: result.Status})
}

func (h *Handler) handleAcceptByValidator(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.uc.AcceptByValidator.Execute(r.Context(), appConvention.ReviewInput{
		ConventionID: r.PathValue("id"),
		UserID:       req.UserID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conventionResponse{ConventionID: result.ConventionID, Status: result.Status})
}

type rejectRequest struct {
	UserID        string `json:"user_id"`
	Justification string `json:"justification"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.uc.Reject.Execute(r.Context(), appConvention.RejectInput{
		ConventionID:  r.PathValue("id"),
		UserID:        req.UserID,
		Justification: req.Justification,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conventionResponse{ConventionID: result.ConventionID, Status: result.Status})
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleTerminate(w, r, func(input appConvention.TerminateInput) (*appConvention.TerminateResult, error) {
		return h.uc.Cancel.Execute(r.Context(), input)
	})
}

func (h *Handler) handleDeprecate(w http.ResponseWriter, r *http.Request) {
	h.handleTerminate(w, r, func(input appConvention.TerminateInput) (*appConvention.TerminateResult, error) {
		return h.uc.Deprecate.Execute(r.Context(), input)
	})
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request, run func(appConvention.TerminateInput) (*appConvention.TerminateResult, error)) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := run(appConvention.TerminateInput{
		ConventionID: r.PathValue("id"),
		UserID:       req.UserID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conventionResponse{ConventionID: result.ConventionID, Status: result.Status})
}

type signatoryResponse struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	SignedAt *time.Time `json:"signed_at,omitempty"`
}

type conventionDetailResponse struct {
	ConventionID        string                       `json:"convention_id"`
	AgencyID            string                       `json:"agency_id"`
	EstablishmentSiret  string                       `json:"establishment_siret"`
	Objective           string                       `json:"objective"`
	Status              domainConvention.Status      `json:"status"`
	StatusJustification string                       `json:"status_justification,omitempty"`
	Signatories         map[string]signatoryResponse `json:"signatories"`
	CreatedAt           time.Time                    `json:"created_at"`
	UpdatedAt           time.Time                    `json:"updated_at"`
}

func (h *Handler) handleGetConvention(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conventions.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domainConvention.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	signatories := map[string]signatoryResponse{
		string(domainConvention.RoleBeneficiary):                 toSignatoryResponse(conv.Signatories.Beneficiary),
		string(domainConvention.RoleEstablishmentRepresentative): toSignatoryResponse(conv.Signatories.EstablishmentRepresentative),
	}
	if conv.Signatories.LegalRepresentative != nil {
		signatories[string(domainConvention.RoleLegalRepresentative)] = toSignatoryResponse(*conv.Signatories.LegalRepresentative)
	}
	if conv.Signatories.CurrentEmployer != nil {
		signatories[string(domainConvention.RoleCurrentEmployer)] = toSignatoryResponse(*conv.Signatories.CurrentEmployer)
	}

	writeJSON(w, http.StatusOK, conventionDetailResponse{
		ConventionID:        conv.ID,
		AgencyID:            conv.AgencyID,
		EstablishmentSiret:  conv.EstablishmentSiret,
		Objective:           conv.Objective,
		Status:              conv.Status,
		StatusJustification: conv.StatusJustification,
		Signatories:         signatories,
		CreatedAt:           conv.CreatedAt,
		UpdatedAt:           conv.UpdatedAt,
	})
}

func toSignatoryResponse(s domainConvention.Signatory) signatoryResponse {
	return signatoryResponse{Name: s.Name, Email: s.Email, SignedAt: s.SignedAt}
}

type registerUserRequest struct {
	UserID   string            `json:"user_id"`
	AgencyID string            `json:"agency_id"`
	Role     domainAgency.Role `json:"role"`
}

type registerUserResponse struct {
	UserID   string              `json:"user_id"`
	AgencyID string              `json:"agency_id"`
	Roles    []domainAgency.Role `json:"roles"`
	Granted  bool                `json:"granted"`
}

func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.uc.RegisterUser.Execute(r.Context(), appAgency.RegisterUserInput{
		UserID:   req.UserID,
		AgencyID: req.AgencyID,
		Role:     req.Role,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, registerUserResponse{
		UserID:   result.UserID,
		AgencyID: result.AgencyID,
		Roles:    result.Roles,
		Granted:  result.Granted,
	})
}

type createEstablishmentRequest struct {
	Siret        string `json:"siret"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email,omitempty"`
}

func (h *Handler) handleCreateEstablishment(w http.ResponseWriter, r *http.Request) {
	var req createEstablishmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := h.uc.CreateEstablishment.Execute(r.Context(), appEstablishment.CreateInput{
		Siret:        req.Siret,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"siret": result.Siret})
}

type eventResponse struct {
	ID             string         `json:"id"`
	OccurredAt     time.Time      `json:"occurred_at"`
	Topic          outbox.Topic   `json:"topic"`
	Payload        outbox.Payload `json:"payload"`
	Publications   int            `json:"publications"`
	Terminal       bool           `json:"terminal"`
	Settled        bool           `json:"settled"`
	WasQuarantined bool           `json:"was_quarantined"`
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, outbox.ErrEventNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{
		ID:             e.ID,
		OccurredAt:     e.OccurredAt,
		Topic:          e.Topic,
		Payload:        e.Payload,
		Publications:   len(e.Publications),
		Terminal:       e.Terminal(),
		Settled:        e.Settled(),
		WasQuarantined: e.WasQuarantined,
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch domainerr.KindOf(err) {
	case domainerr.KindValidationFailed:
		writeError(w, http.StatusBadRequest, err)
	case domainerr.KindNotFound:
		writeError(w, http.StatusNotFound, err)
	case domainerr.KindUnauthorized:
		writeError(w, http.StatusForbidden, err)
	case domainerr.KindIllegalTransition, domainerr.KindConflict:
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
