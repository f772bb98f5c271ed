package services

import (
	"errors"
	"strings"
	"time"

	"driftwood/internal/db"
	"driftwood/internal/models"
	"driftwood/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	resetTokenPrefix = "reset_password:"
	resetTokenTTL    = 72 * time.Hour
)

type UserService struct {
	mailService *MailService
}

func NewUserService() *UserService {
	return &UserService{
		mailService: NewMailService(),
	}
}

func validateRegister(username, email, password string) []FieldError {
	if !strings.Contains(email, "@") {
		return fieldError("email", "invalid email")
	}
	if len(username) <= 2 {
		return fieldError("username", "length must be greater than 2")
	}
	if strings.Contains(username, "@") {
		return fieldError("username", "cannot include an @")
	}
	if len(password) <= 3 {
		return fieldError("password", "length must be greater than 3")
	}
	return nil
}

// takenField reports which unique field an existing account already holds,
// checking username before email like the pre-flight order of Register.
func takenField(username, email string) ([]FieldError, error) {
	var count int64
	if err := db.DB.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return fieldError("username", "username already taken"), nil
	}
	if err := db.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return fieldError("email", "email already taken"), nil
	}
	return nil, nil
}

// Register creates an account. Validation problems and duplicate
// username/email come back as field errors, never as raw constraint failures.
func (s *UserService) Register(username, email, password string) (*models.User, []FieldError, error) {
	if errs := validateRegister(username, email, password); errs != nil {
		return nil, errs, nil
	}

	if errs, err := takenField(username, email); err != nil {
		return nil, nil, err
	} else if errs != nil {
		return nil, errs, nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		// Lost a race with a concurrent registration; re-check to name the
		// index that actually fired instead of guessing username.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			errs, lookupErr := takenField(username, email)
			if lookupErr != nil {
				return nil, nil, lookupErr
			}
			if errs != nil {
				return nil, errs, nil
			}
			return nil, nil, err
		}
		return nil, nil, err
	}

	return &user, nil, nil
}

// Login resolves the identifier as an email when it contains an @, otherwise
// as a username.
func (s *UserService) Login(usernameOrEmail, password string) (*models.User, []FieldError, error) {
	field := "username"
	if strings.Contains(usernameOrEmail, "@") {
		field = "email"
	}

	var user models.User
	err := db.DB.Where(field+" = ?", usernameOrEmail).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError("usernameOrEmail", "that username or email doesn't exist"), nil
		}
		return nil, nil, err
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, fieldError("password", "incorrect password"), nil
	}

	return &user, nil, nil
}

func (s *UserService) Get(id uint) (*models.User, error) {
	var user models.User
	if err := db.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ForgotPassword issues a reset token and emails a reset link. An unknown
// email is a quiet no-op so the endpoint doesn't leak which addresses exist.
func (s *UserService) ForgotPassword(email string) error {
	var user models.User
	err := db.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	utils.GetCache().Set(resetTokenPrefix+token, user.ID, resetTokenTTL)

	s.mailService.SendPasswordResetEmail(user.Email, token)
	return nil
}

// ChangePassword redeems a reset token. The token is single-use: it is
// dropped from the store once the new hash is written.
func (s *UserService) ChangePassword(token, newPassword string) (*models.User, []FieldError, error) {
	if len(newPassword) <= 3 {
		return nil, fieldError("newPassword", "length must be greater than 3"), nil
	}

	cached := utils.GetCache().Get(resetTokenPrefix + token)
	userID, ok := cached.(uint)
	if !ok {
		return nil, fieldError("token", "token expired"), nil
	}

	var user models.User
	if err := db.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fieldError("token", "user no longer exists"), nil
		}
		return nil, nil, err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, nil, err
	}
	if err := db.DB.Model(&user).Update("password", hash).Error; err != nil {
		return nil, nil, err
	}

	utils.GetCache().Delete(resetTokenPrefix + token)
	return &user, nil, nil
}
