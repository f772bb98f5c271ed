package handlers

import (
	"net/http"
	"time"

	"driftwood/internal/models"
	"driftwood/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService *services.UserService
}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		userService: services.NewUserService(),
	}
}

type userJSON struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// serializeUser includes the email only when the viewer is the user itself.
func serializeUser(u *models.User, viewer *models.User) userJSON {
	out := userJSON{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
	if viewer != nil && viewer.ID == u.ID {
		out.Email = u.Email
	}
	return out
}

func (h *AuthHandler) logIn(c *gin.Context, user *models.User) {
	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()
}

func (h *AuthHandler) Register(c *gin.Context) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, "invalid payload")
		return
	}

	user, fieldErrs, err := h.userService.Register(input.Username, input.Email, input.Password)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "registration failed")
		return
	}
	if fieldErrs != nil {
		FieldErrors(c, fieldErrs)
		return
	}

	h.logIn(c, user)
	c.JSON(http.StatusCreated, gin.H{"user": serializeUser(user, user)})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var input struct {
		UsernameOrEmail string `json:"username_or_email"`
		Password        string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, "invalid payload")
		return
	}

	user, fieldErrs, err := h.userService.Login(input.UsernameOrEmail, input.Password)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "login failed")
		return
	}
	if fieldErrs != nil {
		FieldErrors(c, fieldErrs)
		return
	}

	h.logIn(c, user)
	c.JSON(http.StatusOK, gin.H{"user": serializeUser(user, user)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": serializeUser(user, user)})
}

// ForgotPassword always reports success so the endpoint can't be used to
// enumerate registered emails.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := h.userService.ForgotPassword(input.Email); err != nil {
		Fail(c, http.StatusInternalServerError, "failed to process request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var input struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		Fail(c, http.StatusBadRequest, "invalid payload")
		return
	}

	user, fieldErrs, err := h.userService.ChangePassword(input.Token, input.NewPassword)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "failed to change password")
		return
	}
	if fieldErrs != nil {
		FieldErrors(c, fieldErrs)
		return
	}

	h.logIn(c, user)
	c.JSON(http.StatusOK, gin.H{"user": serializeUser(user, user)})
}
