package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tourneyhub/tourneyhub/client-core/internal/activity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/identity"
	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
	"github.com/tourneyhub/tourneyhub/client-core/internal/prefs"
	"github.com/tourneyhub/tourneyhub/client-core/internal/roles"
	"github.com/tourneyhub/tourneyhub/client-core/pkg/logger"
)

// Authenticator is the sign-in surface of the identity provider.
type Authenticator interface {
	SignIn(ctx context.Context, rawIDToken string) (*models.Identity, error)
	SignOut(ctx context.Context) error
	Current() *models.Identity
}

// RoleSelector is implemented by the session controller.
type RoleSelector interface {
	SelectRole(role string) bool
	Phase() roles.Phase
}

// SignInRequest carries a raw id token obtained by the host from its identity provider.
type SignInRequest struct {
	IDToken  string `json:"id_token" binding:"required"`
	Remember bool   `json:"remember"`
}

type SelectRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SessionView is the JSON form of the current session.
type SessionView struct {
	Phase           string           `json:"phase"`
	Identity        *models.Identity `json:"identity,omitempty"`
	DisplayName     string           `json:"displayName,omitempty"`
	Roles           []string         `json:"roles"`
	SelectedRole    string           `json:"selectedRole,omitempty"`
	RememberedEmail string           `json:"rememberedEmail,omitempty"`
}

// SessionHandler exposes the session state and the sign-in/out and role
// selection actions.
type SessionHandler struct {
	store    *roles.Store
	ctrl     RoleSelector
	auth     Authenticator
	prefs    prefs.Store
	recorder *activity.Recorder
}

// NewSessionHandler wires the handler. p and rec may be nil.
func NewSessionHandler(store *roles.Store, ctrl RoleSelector, auth Authenticator, p prefs.Store, rec *activity.Recorder) *SessionHandler {
	return &SessionHandler{store: store, ctrl: ctrl, auth: auth, prefs: p, recorder: rec}
}

// Register routes under /session
func (h *SessionHandler) Register(rg gin.IRoutes, signInLimiter gin.HandlerFunc) {
	rg.GET("/session", h.Get)
	if signInLimiter != nil {
		rg.POST("/session/signin", signInLimiter, h.SignIn)
	} else {
		rg.POST("/session/signin", h.SignIn)
	}
	rg.POST("/session/signout", h.SignOut)
	rg.POST("/session/role", h.SelectRole)
}

func (h *SessionHandler) view(ctx context.Context) SessionView {
	s := h.store.Snapshot()
	v := SessionView{
		Phase:        h.ctrl.Phase().String(),
		Identity:     s.Identity,
		Roles:        s.Roles,
		SelectedRole: s.SelectedRole,
	}
	if v.Roles == nil {
		v.Roles = []string{}
	}
	if s.Profile != nil {
		v.DisplayName = s.Profile.DisplayName
	}
	if h.prefs != nil {
		if email, err := prefs.RememberedEmail(ctx, h.prefs); err == nil {
			v.RememberedEmail = email
		} else {
			logger.Warnf("read remembered email: %v", err)
		}
	}
	return v
}

func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.view(c.Request.Context()))
}

// SignIn verifies the id token and hands the identity to the session controller.
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	id, err := h.auth.SignIn(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token", "details": err.Error()})
			return
		}
		logger.Errorf("sign-in failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed", "details": err.Error()})
		return
	}
	if h.prefs != nil {
		email := ""
		if req.Remember {
			email = id.Email
		}
		if err := prefs.RememberEmail(ctx, h.prefs, email); err != nil {
			logger.Warnf("remember email: %v", err)
		}
	}
	h.record(ctx, id, activity.TypeLogin, nil)
	c.JSON(http.StatusOK, gin.H{"identity": id})
}

func (h *SessionHandler) SignOut(c *gin.Context) {
	ctx := c.Request.Context()
	prev := h.auth.Current()
	// The identity is dropped even when the persisted token outlives it.
	if err := h.auth.SignOut(ctx); err != nil {
		logger.Warnf("sign-out: persisted token not removed: %v", err)
	}
	if prev != nil {
		h.record(ctx, prev, activity.TypeLogout, nil)
	}
	c.Status(http.StatusNoContent)
}

// SelectRole confirms one of the granted roles.
func (h *SessionHandler) SelectRole(c *gin.Context) {
	var req SelectRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prev := h.store.Snapshot().SelectedRole
	if !h.ctrl.SelectRole(req.Role) {
		c.JSON(http.StatusConflict, gin.H{"error": "role not granted", "role": req.Role})
		return
	}
	ctx := c.Request.Context()
	if id := h.store.Snapshot().Identity; id != nil && prev != req.Role {
		h.record(ctx, id, activity.TypeRoleChange, map[string]interface{}{"from": prev, "to": req.Role})
	}
	c.JSON(http.StatusOK, h.view(ctx))
}

// record is best effort; activity logging never fails the request.
func (h *SessionHandler) record(ctx context.Context, id *models.Identity, t activity.Type, meta map[string]interface{}) {
	if h.recorder == nil || id == nil {
		return
	}
	if _, err := h.recorder.Record(ctx, id.ID, id.Email, t, meta); err != nil {
		logger.Warnf("record %s activity for %s: %v", t, id.ID, err)
	}
}
