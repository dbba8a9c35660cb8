package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type loginPage struct {
	Notice *Notice
}

// requireSession redirects to /login unless the request carries an active
// session. Without a session service every request passes.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			next(w, r)
			return
		}
		ctx, cancel := s.storageContext(r)
		active, err := s.sessions.Authenticate(ctx, sessionTokenFromRequest(r), time.Now().UTC())
		cancel()
		if err != nil {
			s.renderError(w, r, "authenticate session", err)
			return
		}
		if !active {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{Notice: s.popNotice(w, r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	now := time.Now().UTC()
	limiterKey := requestClientIP(r)
	if ok, retryAfter := s.loginLimiter.Allow(limiterKey, now); !ok {
		s.log().Warn("login rate limited", "remote_addr", r.RemoteAddr, "retry_after", retryAfter)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Round(time.Second)/time.Second)))
		s.render(w, r, http.StatusTooManyRequests, "login.html", loginPage{Notice: &Notice{
			Kind:    noticeDanger,
			Message: fmt.Sprintf("Too many attempts. Try again %s.", humanize.RelTime(now.Add(retryAfter), now, "from now", "from now")),
		}})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	password := r.PostFormValue("password")

	ctx, cancel := s.storageContext(r)
	defer cancel()
	token, expiresAt, err := s.sessions.Login(ctx, password, now)
	if err != nil {
		if errors.Is(err, errInvalidCredentials) {
			s.loginLimiter.RegisterFailure(limiterKey, now)
			s.log().Warn("login rejected", "remote_addr", r.RemoteAddr)
			s.render(w, r, http.StatusUnauthorized, "login.html", loginPage{Notice: &Notice{Kind: noticeDanger, Message: "Invalid password."}})
			return
		}
		s.renderError(w, r, "login", err)
		return
	}
	s.loginLimiter.Reset(limiterKey)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessions.TTL() / time.Second),
		Expires:  expiresAt,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.sessions != nil {
		ctx, cancel := s.storageContext(r)
		defer cancel()
		if err := s.sessions.Revoke(ctx, sessionTokenFromRequest(r), time.Now().UTC()); err != nil {
			s.renderError(w, r, "logout", err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
	target := "/login"
	if s.sessions == nil {
		target = "/"
	}
	s.redirectWithNotice(w, r, target, Notice{Kind: noticeSuccess, Message: "Logged out."})
}

func sessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func requestClientIP(r *http.Request) string {
	remote := strings.TrimSpace(r.RemoteAddr)
	if remote == "" {
		return "<unknown>"
	}
	host, _, err := net.SplitHostPort(remote)
	if err == nil {
		return strings.TrimSpace(host)
	}
	return remote
}
