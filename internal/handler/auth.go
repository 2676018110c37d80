package handler

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-circulation/internal/config"
    "github.com/iliyamo/library-circulation/internal/model"
    "github.com/iliyamo/library-circulation/internal/store"
    "github.com/iliyamo/library-circulation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts store.Accounts
}

func NewAuthHandler(cfg config.Config, accounts store.Accounts) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: accounts}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"` // STUDENT | LIBRARIAN; anything else registers a STUDENT
}
type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// selfRegistrable lists roles a client may ask for. ADMIN accounts only
// come from the ADMIN_EMAIL bootstrap.
var selfRegistrable = map[string]bool{model.RoleStudent: true, model.RoleLibrarian: true}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if !selfRegistrable[role] {
		role = model.RoleStudent
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash password failed"})
	}
	u := model.User{Email: req.Email, PasswordHash: hash, Role: role, IsActive: true}
	if err := h.Accounts.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists", "code": "ALREADY_EXISTS"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return h.issuePair(c, u, http.StatusCreated)
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Accounts.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.issuePair(c, u, http.StatusOK)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	hash, ok := h.refreshHash(c)
	if !ok {
		return badRequest(c, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, status, msg := h.refreshOwner(c, hash)
	if status != 0 {
		return c.JSON(status, echo.Map{"error": msg})
	}
	if err := h.Accounts.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke refresh failed"})
	}
	return h.issuePair(c, u, http.StatusOK)
}

// RefreshAccess returns a new access token without rotating the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    hash, ok := h.refreshHash(c)
    if !ok {
        return badRequest(c, "refresh_token required")
    }
    u, status, msg := h.refreshOwner(c, hash)
    if status != 0 {
        return c.JSON(status, echo.Map{"error": msg})
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access": tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer when only an Authorization header is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := reqCtx(c)
    defer cancel()

    if refreshToken != "" {
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Accounts.ValidateRefresh(ctx, hash); err != nil {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
        }
        if err := h.Accounts.RevokeByHash(ctx, hash); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }

    // This route is public, so the bearer is checked here rather than by JWTAuth.
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return badRequest(c, "provide Authorization header or refresh_token")
    }
    claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    uid, _ := claims.UserID()
    if err := h.Accounts.RevokeAllForUser(ctx, uid); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, role := caller(c)
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": uid,
		"role":    role,
	})
}

func (h *AuthHandler) refreshHash(c echo.Context) (string, bool) {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return "", false
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return "", false
	}
	return utils.HashRefreshRaw(raw), true
}

// refreshOwner loads the live owner of a refresh token. A non-zero status
// is the response to send instead.
func (h *AuthHandler) refreshOwner(c echo.Context, hash string) (model.User, int, string) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Accounts.ValidateRefresh(ctx, hash)
	if err != nil {
		return model.User{}, http.StatusUnauthorized, "invalid refresh"
	}
	u, err := h.Accounts.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !u.IsActive) {
		return model.User{}, http.StatusUnauthorized, "invalid refresh"
	}
	if err != nil {
		return model.User{}, http.StatusInternalServerError, "load user failed"
	}
	return u, 0, ""
}

func (h *AuthHandler) issuePair(c echo.Context, u model.User, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Accounts.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}
