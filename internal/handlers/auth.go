package handlers

import (
	"net/http"
	"net/mail"

	"commentbox/internal/db"
	"commentbox/internal/models"
	"commentbox/internal/services"
	"commentbox/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	captchaService *services.CaptchaService
}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		captchaService: services.NewCaptchaService(),
	}
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()
	Render(c, http.StatusOK, "auth_register.html", gin.H{"Captcha": question})
}

// registerFailed re-renders the register form with a fresh captcha.
func (h *AuthHandler) registerFailed(c *gin.Context, code int, msg, email string) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set("captcha_answer", answer)
	session.Save()
	Render(c, code, "auth_register.html", gin.H{"Error": msg, "Captcha": question, "Email": email})
}

func (h *AuthHandler) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	captchaInput := c.PostForm("captcha")

	session := sessions.Default(c)
	expectedAnswer, ok := session.Get("captcha_answer").(int)
	if !ok || utils.StringToInt(captchaInput) != expectedAnswer {
		h.registerFailed(c, http.StatusBadRequest, "Wrong captcha answer", email)
		return
	}
	session.Delete("captcha_answer")
	session.Save()

	if _, err := mail.ParseAddress(email); err != nil {
		h.registerFailed(c, http.StatusBadRequest, "Enter a valid email address", email)
		return
	}
	if username == "" {
		h.registerFailed(c, http.StatusBadRequest, "Username is required", email)
		return
	}
	if len(password) < 6 {
		h.registerFailed(c, http.StatusBadRequest, "Password must be at least 6 characters", email)
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		h.registerFailed(c, http.StatusInternalServerError, "Could not create account", email)
		return
	}
	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		h.registerFailed(c, http.StatusConflict, "Email already registered", email)
		return
	}

	session.Set("user_id", user.ID)
	session.Save()
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth_login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	var user models.User
	if err := db.DB.Where("email = ?", email).First(&user).Error; err != nil {
		Render(c, http.StatusUnauthorized, "auth_login.html", gin.H{"Error": "Wrong email or password"})
		return
	}
	if !utils.CheckPassword(user.Password, password) {
		Render(c, http.StatusUnauthorized, "auth_login.html", gin.H{"Error": "Wrong email or password"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}
