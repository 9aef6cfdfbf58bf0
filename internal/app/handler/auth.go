package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"ezrank_service/internal/app/service"
)

// ErrorResponse is the envelope the original API clients expect for
// failures on the auth surface.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type SuccessResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type ValidateIDRequest struct {
	UserID string `json:"user_id"`
}

type ValidateEmailRequest struct {
	UserEmail string `json:"user_email"`
}

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	g := e.Group("/api/auth")
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/change-password", h.ChangePassword)
	g.GET("/verify", h.Verify)
	g.POST("/logout", h.Logout)
	g.POST("/find-userid", h.FindUserID)
	g.POST("/find-userpw", h.FindUserPW)
	g.POST("/update-userinfo", h.UpdateUserInfo)
	g.POST("/validate-ID", h.ValidateID)
	g.POST("/validate-email", h.ValidateEmail)
	g.POST("/leave-user", h.LeaveUser)
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req service.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Status: 401, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req service.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	if err := h.auth.ChangePassword(req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusOK, SuccessResponse{
		Status:  200,
		Message: "success",
		Data:    echo.Map{"message": "password changed"},
	})
}

// Verify checks the bearer token and resolves it back to the account.
func (h *AuthHandler) Verify(c echo.Context) error {
	token := c.Request().Header.Get("Authorization")
	userID, ok := h.auth.CurrentUserID(token)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Status: 401, Message: "fail", Data: "invalid token"})
	}

	user, err := h.auth.VerifyUser(userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Status: 404, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "token is valid", "user": user})
}

// Logout is stateless: the token simply expires. Kept for client symmetry.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) FindUserID(c echo.Context) error {
	var req service.IDSearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	user, err := h.auth.FindUserID(req)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Status: 404, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusOK, SuccessResponse{
		Status:  200,
		Message: "success",
		Data:    echo.Map{"user_id": user.UserID, "user_idx": user.UserIdx},
	})
}

func (h *AuthHandler) FindUserPW(c echo.Context) error {
	var req service.PWSearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	user, err := h.auth.FindPassword(req)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Status: 404, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusOK, SuccessResponse{
		Status:  200,
		Message: "success",
		Data:    echo.Map{"user_id": user.UserID, "user_idx": user.UserIdx},
	})
}

func (h *AuthHandler) UpdateUserInfo(c echo.Context) error {
	var req service.UpdateUserInfoRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	if err := h.auth.UpdateUserInfo(req); err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Status: 404, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusOK, SuccessResponse{
		Status:  200,
		Message: "success",
		Data:    echo.Map{"message": "user info updated"},
	})
}

func (h *AuthHandler) ValidateID(c echo.Context) error {
	var req ValidateIDRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	available, err := h.auth.ValidateID(req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Status: 500, Message: "fail", Data: err.Error()})
	}
	msg := "id already in use"
	if available {
		msg = "id is available"
	}
	return c.JSON(http.StatusOK, SuccessResponse{Status: 200, Message: "success", Data: msg})
}

func (h *AuthHandler) ValidateEmail(c echo.Context) error {
	var req ValidateEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	available, err := h.auth.ValidateEmail(req.UserEmail)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Status: 500, Message: "fail", Data: err.Error()})
	}
	msg := "email already in use"
	if available {
		msg = "email is available"
	}
	return c.JSON(http.StatusOK, SuccessResponse{Status: 200, Message: "success", Data: msg})
}

func (h *AuthHandler) LeaveUser(c echo.Context) error {
	var req service.LeaveUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Status: 400, Message: "fail", Data: "invalid request body"})
	}

	if err := h.auth.LeaveUser(req); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Status: 404, Message: "fail", Data: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Status: 500, Message: "fail", Data: err.Error()})
	}
	return c.JSON(http.StatusOK, SuccessResponse{Status: 200, Message: "success", Data: "account removed"})
}
