package handlers

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/AnshRaj112/todo-backend/internal/middleware"
	"github.com/AnshRaj112/todo-backend/internal/models"
	"github.com/AnshRaj112/todo-backend/internal/store"
	"github.com/AnshRaj112/todo-backend/pkg/utils"
)

// TokenIssuer signs a bearer token for an account.
type TokenIssuer interface {
	Issue(accountID int64) (string, error)
}

// CredentialsRequest is the register/login body. The alternate keys
// (name, contact, secret) are accepted for older clients.
type CredentialsRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Password string `json:"password"`
	Secret   string `json:"secret"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c CredentialsRequest) username() string { return firstNonEmpty(c.Username, c.Name) }
func (c CredentialsRequest) email() string    { return firstNonEmpty(c.Email, c.Contact) }
func (c CredentialsRequest) password() string { return firstNonEmpty(c.Password, c.Secret) }

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *models.Account `json:"user"`
	Token string          `json:"token"`
}

type AuthHandler struct {
	accounts store.AccountStore
	tokens   TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthHandler(accounts store.AccountStore, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username, email, password := req.username(), req.email(), req.password()
	if err := utils.ValidateRegistration(username, email, password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	account, err := h.accounts.Create(r.Context(), username, email, hash)
	if err != nil {
		if errors.Is(err, utils.ErrConflict) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(account.ID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: account, Token: token})
}

// Login handles POST /api/auth/login. An unknown email and a wrong password
// produce the same 401 so callers cannot tell which one was wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email, password := req.email(), req.password()
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	account, err := h.accounts.FindByEmail(r.Context(), email)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	if account == nil {
		// Spend the same hashing work as a real check.
		utils.VerifyPassword(password, h.dummy())
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	ok, err := utils.VerifyPassword(password, account.Password)
	if err != nil {
		log.Printf("stored hash for account %d is unreadable: %v", account.ID, err)
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.tokens.Issue(account.ID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: account, Token: token})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	account, err := h.accounts.FindByID(r.Context(), accountID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, account)
}

func (h *AuthHandler) dummy() string {
	h.dummyOnce.Do(func() {
		hash, err := utils.HashPassword("not-a-real-password")
		if err != nil {
			log.Printf("failed to build dummy password hash: %v", err)
		}
		h.dummyHash = hash
	})
	return h.dummyHash
}
