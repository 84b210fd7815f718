package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhub/api/internal/config"
	"github.com/taskhub/api/internal/domain/user"
	"github.com/taskhub/api/internal/http/middlewares"
)

// Small interfaces so tests can fake the store, the hasher and the signer.

type UserStore interface {
	Create(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error)
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Check(hash, plain string) error
	DummyCheck(plain string)
}

type AuthHandler struct {
	users  UserStore
	jwt    TokenIssuer
	hasher PasswordHasher
}

func NewAuthHandler(users UserStore, jwt TokenIssuer, hasher PasswordHasher) *AuthHandler {
	return &AuthHandler{
		users:  users,
		jwt:    jwt,
		hasher: hasher,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	exists, err := h.users.EmailExists(cctx, req.Email)

	if err != nil {
		RespondInternal(ctx, "Could not create user account")
		return
	}

	if exists {
		RespondConflict(ctx, "USER_EXISTS", "User with this email already exists")
		return
	}

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user account")
		return
	}

	u, err := h.users.Create(cctx, req.Email, hash, req.FirstName, req.LastName)

	if err != nil {
		// the pre-check races with concurrent registrations; a unique
		// violation from the store is the same outcome
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "USER_EXISTS", "User with this email already exists")
			return
		}

		RespondInternal(ctx, "Could not create user account")
		return
	}

	token, err := h.jwt.Issue(u.ID, u.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	RespondCreated(ctx, "User registered successfully", gin.H{
		"user":  u,
		"token": token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn a comparison anyway so unknown email and wrong password
			// are indistinguishable in both message and timing
			h.hasher.DummyCheck(req.Password)
			RespondUnauthorized(ctx, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}

		RespondInternal(ctx, "Could not authenticate user")
		return
	}

	err = h.hasher.Check(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnauthorized(ctx, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	token, err := h.jwt.Issue(foundUser.ID, foundUser.Email)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	RespondOK(ctx, "Login successful", gin.H{
		"user":  foundUser,
		"token": token,
	})
}

func (h *AuthHandler) GetProfile(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnauthorized(ctx, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "USER_NOT_FOUND", "User not found")
			return
		}

		RespondInternal(ctx, "Could not retrieve user profile")
		return
	}

	RespondOK(ctx, "Profile retrieved successfully", gin.H{"user": u})
}

func (h *AuthHandler) UpdateProfile(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnauthorized(ctx, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	var req user.UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.UpdateProfile(cctx, userID, req)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "USER_NOT_FOUND", "User not found")
			return
		}

		RespondInternal(ctx, "Could not update user profile")
		return
	}

	RespondOK(ctx, "Profile updated successfully", gin.H{"user": u})
}

// Logout is client-side token removal; the endpoint exists for symmetry and
// audit logging only.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	RespondOK(ctx, "Logout successful", nil)
}

// Verify returns the fresh profile for a valid token; reaching the handler
// at all means the auth gate accepted the token.
func (h *AuthHandler) Verify(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnauthorized(ctx, "AUTHENTICATION_REQUIRED", "Authentication required")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "USER_NOT_FOUND", "User not found")
			return
		}

		RespondInternal(ctx, "Could not verify token")
		return
	}

	RespondOK(ctx, "Token is valid", gin.H{"user": u})
}
