package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/duckluckie/rifa-api/internal/utils"
)

// AuthHandler issues admin access tokens.  There is a single admin
// account, configured through the environment as a login name and a
// bcrypt hash; buyers never authenticate.
type AuthHandler struct {
	JWTSecret     string
	AdminUser     string
	AdminPassHash string
	AccessTTLMin  int
}

// NewAuthHandler constructs an AuthHandler from the configured admin
// credentials.
func NewAuthHandler(jwtSecret, adminUser, adminPassHash string, accessTTLMin int) *AuthHandler {
	return &AuthHandler{
		JWTSecret:     jwtSecret,
		AdminUser:     adminUser,
		AdminPassHash: adminPassHash,
		AccessTTLMin:  accessTTLMin,
	}
}

// Login handles POST /v1/auth/login.  On valid credentials it returns
// a bearer token for the admin product-management endpoints.
func (h *AuthHandler) Login(c echo.Context) error {
	var body struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Requisição inválida"})
	}
	if body.User != h.AdminUser || !utils.VerifyPassword(h.AdminPassHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Credenciais inválidas"})
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, h.AdminUser, h.AccessTTLMin)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Erro interno"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"accessToken": tok.Token,
		"expiresAt":   tok.Exp.Format(time.RFC3339),
	})
}
