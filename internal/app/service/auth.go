package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"ezrank_service/internal/app/model"
	"ezrank_service/internal/app/repository"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("wrong id or password")
	ErrDuplicateUserID    = errors.New("id already in use")
	ErrDuplicateEmail     = errors.New("email already in use")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const tokenLifetime = 24 * time.Hour

type SignupRequest struct {
	ID             string `json:"id"`
	Password       string `json:"password"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	IsAgree        bool   `json:"is_agree"`
	MarketingAgree bool   `json:"marketing_agree"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	UserID   string `json:"user_id"`
	UserIdx  int64  `json:"user_idx"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type AuthSuccessResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

type ChangePasswordRequest struct {
	UserID   string `json:"user_id"`
	UserIdx  int64  `json:"user_idx"`
	Password string `json:"password"`
}

type IDSearchRequest struct {
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

type PWSearchRequest struct {
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
}

type UpdateUserInfoRequest struct {
	UserID    string  `json:"user_id"`
	UserIdx   int64   `json:"user_idx"`
	UserName  *string `json:"user_name"`
	UserEmail *string `json:"user_email"`
}

type LeaveUserRequest struct {
	UserID  string `json:"user_id"`
	UserIdx int64  `json:"user_idx"`
}

// AuthService issues and verifies the bearer tokens the rank endpoints
// require, and owns the account lifecycle around them. The signing key is
// injected at construction; there is no process-global secret.
type AuthService struct {
	users  *repository.UserRepository
	secret []byte
}

func NewAuthService(users *repository.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{users: users, secret: []byte(jwtSecret)}
}

func (s *AuthService) Register(req SignupRequest) (*AuthSuccessResponse, error) {
	if problems := validateSignup(req); len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	if exists, err := s.users.ExistsByUserID(req.ID); err != nil {
		return nil, fmt.Errorf("check user id: %w", err)
	} else if exists {
		return nil, ErrDuplicateUserID
	}
	if exists, err := s.users.ExistsByEmail(req.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if exists {
		return nil, ErrDuplicateEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		UserID:         req.ID,
		UserPassword:   string(hashed),
		UserEmail:      req.Email,
		UserName:       req.Name,
		IsAgree:        req.IsAgree,
		MarketingAgree: req.MarketingAgree,
		UserWriteDate:  time.Now(),
	}
	if err := s.users.Insert(user); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	token, err := s.generateToken(user.UserID, user.UserIdx)
	if err != nil {
		return nil, err
	}
	return &AuthSuccessResponse{
		Message: "signup complete",
		Token:   token,
		User:    userResponse(user),
	}, nil
}

func (s *AuthService) Login(req LoginRequest) (*AuthSuccessResponse, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Password) == "" {
		return nil, &ValidationError{Problems: []string{"username and password are required"}}
	}

	user, err := s.users.FindByUserID(req.Username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	// Same message for unknown id and wrong password.
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.UserPassword), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user.UserID, user.UserIdx)
	if err != nil {
		return nil, err
	}
	return &AuthSuccessResponse{
		Message: "login successful",
		Token:   token,
		User:    userResponse(user),
	}, nil
}

// VerifyUser resolves a user id (taken from a verified token) back to the
// stored account.
func (s *AuthService) VerifyUser(userID string) (*UserResponse, error) {
	user, err := s.users.FindByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := userResponse(user)
	return &resp, nil
}

func (s *AuthService) ChangePassword(req ChangePasswordRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return &ValidationError{Problems: []string{"user_id is required"}}
	}
	if strings.TrimSpace(req.Password) == "" {
		return &ValidationError{Problems: []string{"new password is required"}}
	}
	if len(req.Password) < 6 {
		return &ValidationError{Problems: []string{"password must be at least 6 characters"}}
	}

	user, err := s.users.FindByUserIDAndIdx(req.UserID, req.UserIdx)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.UserPassword = string(hashed)
	if err := s.users.Save(user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *AuthService) FindUserID(req IDSearchRequest) (*UserResponse, error) {
	if strings.TrimSpace(req.UserName) == "" {
		return nil, &ValidationError{Problems: []string{"user_name is required"}}
	}
	if strings.TrimSpace(req.UserEmail) == "" {
		return nil, &ValidationError{Problems: []string{"user_email is required"}}
	}
	user, err := s.users.FindByNameAndEmail(req.UserName, req.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := userResponse(user)
	return &resp, nil
}

func (s *AuthService) FindPassword(req PWSearchRequest) (*UserResponse, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, &ValidationError{Problems: []string{"user_id is required"}}
	}
	if strings.TrimSpace(req.UserEmail) == "" {
		return nil, &ValidationError{Problems: []string{"user_email is required"}}
	}
	user, err := s.users.FindByUserIDAndEmail(req.UserID, req.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := userResponse(user)
	return &resp, nil
}

func (s *AuthService) UpdateUserInfo(req UpdateUserInfoRequest) error {
	user, err := s.users.FindByUserIDAndIdx(req.UserID, req.UserIdx)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if req.UserName != nil && strings.TrimSpace(*req.UserName) != "" {
		user.UserName = *req.UserName
	}
	if req.UserEmail != nil && strings.TrimSpace(*req.UserEmail) != "" {
		user.UserEmail = *req.UserEmail
	}
	if err := s.users.Save(user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// ValidateID reports whether a user id is still available.
func (s *AuthService) ValidateID(userID string) (bool, error) {
	exists, err := s.users.ExistsByUserID(userID)
	if err != nil {
		return false, fmt.Errorf("check user id: %w", err)
	}
	return !exists, nil
}

// ValidateEmail reports whether an email is still available.
func (s *AuthService) ValidateEmail(userEmail string) (bool, error) {
	exists, err := s.users.ExistsByEmail(userEmail)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return !exists, nil
}

func (s *AuthService) LeaveUser(req LeaveUserRequest) error {
	user, err := s.users.FindByUserIDAndIdx(req.UserID, req.UserIdx)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.users.Delete(user); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// CurrentUserIdx extracts the verified numeric user identifier from a
// bearer token. ok is false for any malformed, forged or expired token.
func (s *AuthService) CurrentUserIdx(token string) (int64, bool) {
	claims, ok := s.parseClaims(token)
	if !ok {
		return 0, false
	}
	idx, ok := claims["user_idx"].(float64)
	if !ok {
		return 0, false
	}
	return int64(idx), true
}

// CurrentUserID extracts the user id claim from a bearer token.
func (s *AuthService) CurrentUserID(token string) (string, bool) {
	claims, ok := s.parseClaims(token)
	if !ok {
		return "", false
	}
	id, ok := claims["user_id"].(string)
	return id, ok
}

func (s *AuthService) generateToken(userID string, userIdx int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"user_id":  userID,
		"user_idx": userIdx,
		"iat":      now.Unix(),
		"exp":      now.Add(tokenLifetime).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) parseClaims(token string) (jwt.MapClaims, bool) {
	raw := strings.TrimPrefix(token, "Bearer ")
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	return claims, ok
}

func userResponse(user *model.User) UserResponse {
	return UserResponse{
		UserID:   user.UserID,
		UserIdx:  user.UserIdx,
		Username: user.UserID,
		Email:    user.UserEmail,
		Name:     user.UserName,
	}
}

func validateSignup(req SignupRequest) []string {
	var problems []string

	switch {
	case strings.TrimSpace(req.ID) == "":
		problems = append(problems, "id is required")
	case len(req.ID) < 4:
		problems = append(problems, "id must be at least 4 characters")
	}

	switch {
	case strings.TrimSpace(req.Password) == "":
		problems = append(problems, "password is required")
	case len(req.Password) < 6:
		problems = append(problems, "password must be at least 6 characters")
	}

	switch {
	case strings.TrimSpace(req.Email) == "":
		problems = append(problems, "email is required")
	case !emailPattern.MatchString(req.Email):
		problems = append(problems, "email format is invalid")
	}

	switch {
	case strings.TrimSpace(req.Name) == "":
		problems = append(problems, "name is required")
	case len([]rune(req.Name)) < 2:
		problems = append(problems, "name must be at least 2 characters")
	}

	return problems
}
