package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	noticeCookieName = "docvault_notice"
	noticeMaxAge     = time.Minute

	noticeSuccess = "success"
	noticeDanger  = "danger"
)

// Notice is a one-shot message shown on the next page render.
type Notice struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

// noticeCodec signs notices so a forged cookie cannot put arbitrary text on
// the page.
type noticeCodec struct {
	key []byte
}

func (c noticeCodec) encode(n Notice) (string, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + base64.RawURLEncoding.EncodeToString(c.sign(body)), nil
}

func (c noticeCodec) decode(value string) (Notice, bool) {
	body, sig, ok := strings.Cut(value, ".")
	if !ok {
		return Notice{}, false
	}
	gotSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(gotSig, c.sign(body)) {
		return Notice{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Notice{}, false
	}
	var n Notice
	if err := json.Unmarshal(payload, &n); err != nil {
		return Notice{}, false
	}
	if n.Kind != noticeSuccess {
		n.Kind = noticeDanger
	}
	return n, n.Message != ""
}

func (c noticeCodec) sign(body string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(body))
	return mac.Sum(nil)
}

// redirectWithNotice stores n for the next page and redirects to target.
func (s *Server) redirectWithNotice(w http.ResponseWriter, r *http.Request, target string, n Notice) {
	if value, err := s.notices.encode(n); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     noticeCookieName,
			Value:    value,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(noticeMaxAge / time.Second),
		})
	} else {
		s.log().Warn("encode notice", "error", err)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// popNotice returns the pending notice, if any, and clears it.
func (s *Server) popNotice(w http.ResponseWriter, r *http.Request) *Notice {
	cookie, err := r.Cookie(noticeCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     noticeCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	n, ok := s.notices.decode(cookie.Value)
	if !ok {
		return nil
	}
	return &n
}
