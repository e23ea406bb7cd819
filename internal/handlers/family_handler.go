package handlers

import (
	"encoding/json"
	"net/http"

	"screentime/internal/models"
	"screentime/internal/service"
)

// FamilyHandler serves the family membership JSON API
type FamilyHandler struct {
	familyService *service.FamilyService
	appBaseURL    string
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService, appBaseURL string) *FamilyHandler {
	return &FamilyHandler{
		familyService: familyService,
		appBaseURL:    appBaseURL,
	}
}

// RegisterRoutes mounts the family API on mux behind the auth middleware
func (h *FamilyHandler) RegisterRoutes(mux *http.ServeMux, mw *Middleware) {
	mux.HandleFunc("GET /api/family", mw.RequireAuth(h.GetState))
	mux.HandleFunc("POST /api/families", mw.RequireAuth(h.CreateFamily))
	mux.HandleFunc("POST /api/families/join", mw.RequireAuth(mw.RateLimit(h.JoinFamily)))
	mux.HandleFunc("GET /api/family/match", mw.RequireAuth(h.SuggestMatch))
	mux.HandleFunc("GET /api/family/invite", mw.RequireAuth(h.Invite))
	mux.HandleFunc("POST /api/family/permission-request", mw.RequireAuth(h.RequestPermission))
	mux.HandleFunc("POST /api/family/members", mw.RequireAuth(h.CreateOwnMember))
	mux.HandleFunc("POST /api/family/members/manual", mw.RequireAuth(h.AddManualMember))
	mux.HandleFunc("POST /api/family/members/{id}/link", mw.RequireAuth(h.LinkMember))
	mux.HandleFunc("PUT /api/family/members/{id}/status", mw.RequireAuth(h.UpdateStatus))
	mux.HandleFunc("PUT /api/family/members/{id}/display-name", mw.RequireAuth(h.UpdateDisplayName))
	mux.HandleFunc("PUT /api/family/members/{id}/color", mw.RequireAuth(h.UpdateColor))
}

type stateResponse struct {
	service.FamilyState
	PendingRequests []*models.FamilyMember `json:"pendingRequests"`
}

type createFamilyRequest struct {
	Name string            `json:"name"`
	Role models.MemberRole `json:"role"`
}

type joinFamilyRequest struct {
	Code string            `json:"code"`
	Role models.MemberRole `json:"role"`
}

type roleRequest struct {
	Role models.MemberRole `json:"role"`
}

type linkRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type manualMemberRequest struct {
	Name  string            `json:"name"`
	Email string            `json:"email"`
	Role  models.MemberRole `json:"role"`
}

type statusRequest struct {
	Status models.MemberStatus `json:"status"`
}

type displayNameRequest struct {
	DisplayName string `json:"displayName"`
}

type colorRequest struct {
	Color string `json:"color"`
}

type matchResponse struct {
	Member        *models.FamilyMember `json:"member"`
	SuggestedName string               `json:"suggestedName"`
}

type inviteResponse struct {
	FamilyCode string `json:"familyCode"`
	Name       string `json:"name"`
	URL        string `json:"url"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return false
	}
	return true
}

// GetState returns the caller's family, their own member record, the screen
// they belong on and any parents waiting for approval
func (h *FamilyHandler) GetState(w http.ResponseWriter, r *http.Request) {
	caller := GetIdentityFromContext(r.Context())

	state, err := h.familyService.State(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	pending := []*models.FamilyMember{}
	if h.familyService.IsApprovedParent(state.Family, caller) {
		pending = append(pending, h.familyService.PendingParentRequests(state.Family)...)
	}

	respondJSON(w, http.StatusOK, stateResponse{FamilyState: state, PendingRequests: pending})
}

func (h *FamilyHandler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	code, err := h.familyService.CreateFamily(r.Context(), GetIdentityFromContext(r.Context()), req.Name, req.Role)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"familyCode": code})
}

func (h *FamilyHandler) JoinFamily(w http.ResponseWriter, r *http.Request) {
	var req joinFamilyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.familyService.JoinFamily(r.Context(), GetIdentityFromContext(r.Context()), req.Code, req.Role)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// SuggestMatch returns the pre-added member that looks like the caller, or
// 204 when nobody does
func (h *FamilyHandler) SuggestMatch(w http.ResponseWriter, r *http.Request) {
	caller := GetIdentityFromContext(r.Context())

	family, err := h.familyService.LoadFamily(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if family == nil {
		respondWithServiceError(w, r, service.ErrNoFamily)
		return
	}

	member := h.familyService.FindMatchingMember(family, caller)
	if member == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondJSON(w, http.StatusOK, matchResponse{Member: member, SuggestedName: caller.MatchName()})
}

// LinkMember binds the caller to a pre-added member. An empty body links
// with the caller's own name and email.
func (h *FamilyHandler) LinkMember(w http.ResponseWriter, r *http.Request) {
	caller := GetIdentityFromContext(r.Context())

	req := linkRequest{Name: caller.MatchName(), Email: caller.Email}
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	childID, err := h.familyService.LinkAuthToMember(r.Context(), caller, r.PathValue("id"), req.Name, req.Email)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"childId": childID})
}

func (h *FamilyHandler) CreateOwnMember(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.familyService.CreateMemberInCurrentFamily(r.Context(), GetIdentityFromContext(r.Context()), req.Role); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *FamilyHandler) AddManualMember(w http.ResponseWriter, r *http.Request) {
	var req manualMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	memberID, err := h.familyService.AddManualMember(r.Context(), GetIdentityFromContext(r.Context()), req.Name, req.Email, req.Role)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"memberId": memberID})
}

func (h *FamilyHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.familyService.UpdateMemberStatus(r.Context(), GetIdentityFromContext(r.Context()), r.PathValue("id"), req.Status); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyHandler) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	var req displayNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.familyService.UpdateDisplayName(r.Context(), GetIdentityFromContext(r.Context()), r.PathValue("id"), req.DisplayName); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyHandler) UpdateColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.familyService.UpdateMemberColor(r.Context(), GetIdentityFromContext(r.Context()), r.PathValue("id"), req.Color); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyHandler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	if err := h.familyService.RequestPermission(r.Context(), GetIdentityFromContext(r.Context())); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Invite returns the family code and a shareable join link
func (h *FamilyHandler) Invite(w http.ResponseWriter, r *http.Request) {
	family, err := h.familyService.LoadFamily(r.Context(), GetIdentityFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if family == nil {
		respondWithServiceError(w, r, service.ErrNoFamily)
		return
	}

	respondJSON(w, http.StatusOK, inviteResponse{
		FamilyCode: family.ID,
		Name:       family.Name,
		URL:        service.InviteLink(family, h.appBaseURL),
	})
}

// Health reports that the process is serving
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
