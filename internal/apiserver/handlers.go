package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// fail maps a service error to a response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, resource, op string, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrMissingFields):
		writeError(w, http.StatusBadRequest, services.ErrMissingFields.Error())
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusBadRequest, "Username or email already in use")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, services.ErrInvalidCredentials.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, strings.ToUpper(resource[:1])+resource[1:]+" not found")
	default:
		s.sl.LogError(r.Context(), "Request failed", err, log.ComponentAPIServer, op,
			log.NewFields().WithResource(resource, mux.Vars(r)["id"]))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// credentials accepts JSON or form-encoded account payloads.
func credentials(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	out := map[string]string{}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for k := range r.PostForm {
			out[k] = r.PostForm.Get(k)
		}
		return out, nil
	}
	if err := decode(r, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) requireLogin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.RequireLogin {
			next(w, r)
			return
		}
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Login required")
			return
		}
		u, err := s.ledger.Authenticate(r.Context(), c.Value)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthorized) {
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Session lookup failed", log.FieldError, err)
			}
			writeError(w, http.StatusUnauthorized, "Login required")
			return
		}
		ctx := log.WithContext(r.Context(), log.FromContext(r.Context()).With("user_id", u.ID))
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, "transaction", log.OpList, err)
		return
	}
	if list == nil {
		list = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decode(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		s.fail(w, r, "transaction", log.OpCreate, err)
		return
	}
	s.sl.LogMutation(r.Context(), "transaction", log.OpCreate, created.TransactionID.String())
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := core.ID(mux.Vars(r)["id"])
	var t core.Transaction
	if err := decode(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	updated, err := s.ledger.UpdateTransaction(r.Context(), id, t)
	if err != nil {
		s.fail(w, r, "transaction", log.OpUpdate, err)
		return
	}
	s.sl.LogMutation(r.Context(), "transaction", log.OpUpdate, id.String())
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := core.ID(mux.Vars(r)["id"])
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		s.fail(w, r, "transaction", log.OpDelete, err)
		return
	}
	s.sl.LogMutation(r.Context(), "transaction", log.OpDelete, id.String())
	writeMessage(w, http.StatusOK, "Transaction deleted successfully")
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	list, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		s.fail(w, r, "budget", log.OpList, err)
		return
	}
	if list == nil {
		list = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := decode(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := s.ledger.CreateBudget(r.Context(), b)
	if err != nil {
		s.fail(w, r, "budget", log.OpCreate, err)
		return
	}
	s.sl.LogMutation(r.Context(), "budget", log.OpCreate, created.BudgetID.String())
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	in, err := credentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := s.ledger.Register(r.Context(), in["username"], in["email"], in["password"]); err != nil {
		s.fail(w, r, "user", log.OpRegister, err)
		return
	}
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	in, err := credentials(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	token, expires, err := s.ledger.Login(r.Context(), in["username"], in["password"])
	if err != nil {
		s.fail(w, r, "user", log.OpLogin, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeMessage(w, http.StatusOK, "Login successful")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if err := s.ledger.Logout(r.Context(), c.Value); err != nil {
			s.fail(w, r, "user", "logout", err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeMessage(w, http.StatusOK, "Logged out")
}
