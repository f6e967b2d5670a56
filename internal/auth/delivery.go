package auth

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"sso-broker/internal/auth/providers"
	"sso-broker/internal/shared/errors"
	"sso-broker/internal/shared/response"
)

// DeliveryMode selects how a callback result reaches the front end.
type DeliveryMode string

const (
	DeliveryJSON     DeliveryMode = "json"
	DeliveryPopup    DeliveryMode = "popup"
	DeliveryRedirect DeliveryMode = "redirect"
)

func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch mode := DeliveryMode(s); mode {
	case DeliveryJSON, DeliveryPopup, DeliveryRedirect:
		return mode, nil
	}
	return "", fmt.Errorf("unknown delivery mode %q", s)
}

// Delivery writes the outcome of a callback to the response.
type Delivery interface {
	Success(w http.ResponseWriter, r *http.Request, result *Result)
	Failure(w http.ResponseWriter, r *http.Request, err error)
}

//go:embed templates/popup.html
var popupHTML string

var popupTemplate = template.Must(template.New("popup").Parse(popupHTML))

// Deliveries holds one strategy per mode and the configured default.
type Deliveries struct {
	strategies  map[DeliveryMode]Delivery
	defaultMode DeliveryMode
}

func NewDeliveries(frontendURL string, defaultMode DeliveryMode) (*Deliveries, error) {
	front, err := newFrontend(frontendURL)
	if err != nil {
		return nil, err
	}
	if _, err := ParseDeliveryMode(string(defaultMode)); err != nil {
		return nil, err
	}

	return &Deliveries{
		strategies: map[DeliveryMode]Delivery{
			DeliveryJSON:     &JSONDelivery{logger: deliveryLogger(DeliveryJSON)},
			DeliveryPopup:    &PopupDelivery{frontend: front, logger: deliveryLogger(DeliveryPopup)},
			DeliveryRedirect: &RedirectDelivery{frontend: front, logger: deliveryLogger(DeliveryRedirect)},
		},
		defaultMode: defaultMode,
	}, nil
}

// Select returns the strategy for a requested format. An empty or unknown
// format falls back to the default mode.
func (d *Deliveries) Select(format string) (Delivery, DeliveryMode) {
	mode, err := ParseDeliveryMode(format)
	if err != nil {
		mode = d.defaultMode
	}
	return d.strategies[mode], mode
}

func deliveryLogger(mode DeliveryMode) *slog.Logger {
	return slog.With("component", "delivery", "mode", mode)
}

// frontend builds the URLs handed back to the front end.
type frontend struct {
	base   *url.URL
	origin string
}

func newFrontend(rawURL string) (*frontend, error) {
	base, err := url.Parse(rawURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid frontend URL %q", rawURL)
	}
	return &frontend{
		base:   base,
		origin: base.Scheme + "://" + base.Host,
	}, nil
}

// successURL carries the token as jwt and the profile as JSON.
func (f *frontend) successURL(result *Result) (string, error) {
	profile, err := json.Marshal(result.Profile)
	if err != nil {
		return "", errors.WrapInternal("failed to encode profile", err)
	}
	return f.with(url.Values{
		"jwt":     {result.Token},
		"profile": {string(profile)},
	}), nil
}

func (f *frontend) failureURL(err error) string {
	return f.with(url.Values{
		"error":             {string(errors.GetType(err))},
		"error_description": {response.ClientMessage(err)},
	})
}

func (f *frontend) with(params url.Values) string {
	u := *f.base
	query := u.Query()
	for key, values := range params {
		query[key] = values
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// JSONDelivery answers the callback request directly.
type JSONDelivery struct {
	logger *slog.Logger
}

func (d *JSONDelivery) Success(w http.ResponseWriter, r *http.Request, result *Result) {
	response.Success(w, http.StatusOK, result)
}

func (d *JSONDelivery) Failure(w http.ResponseWriter, r *http.Request, err error) {
	response.Error(w, r, d.logger, err)
}

// PopupDelivery renders a page that hands the result to the window that
// opened the sign-in popup.
type PopupDelivery struct {
	frontend *frontend
	logger   *slog.Logger
}

type popupMessage struct {
	Type    string             `json:"type"`
	Token   string             `json:"token,omitempty"`
	Profile *providers.Profile `json:"profile,omitempty"`
	Error   string             `json:"error,omitempty"`
}

type popupPage struct {
	Title        string
	Message      popupMessage
	TargetOrigin string
	FallbackURL  string
}

func (d *PopupDelivery) Success(w http.ResponseWriter, r *http.Request, result *Result) {
	fallback, err := d.frontend.successURL(result)
	if err != nil {
		d.Failure(w, r, err)
		return
	}

	profile := result.Profile
	d.render(w, r, http.StatusOK, popupPage{
		Title: "Sign-in complete",
		Message: popupMessage{
			Type:    "oauth-success",
			Token:   result.Token,
			Profile: &profile,
		},
		TargetOrigin: d.frontend.origin,
		FallbackURL:  fallback,
	})
}

func (d *PopupDelivery) Failure(w http.ResponseWriter, r *http.Request, err error) {
	response.Log(d.logger, r, err)

	d.render(w, r, response.StatusCode(err), popupPage{
		Title: "Sign-in failed",
		Message: popupMessage{
			Type:  "oauth-error",
			Error: response.ClientMessage(err),
		},
		TargetOrigin: d.frontend.origin,
		FallbackURL:  d.frontend.failureURL(err),
	})
}

func (d *PopupDelivery) render(w http.ResponseWriter, r *http.Request, status int, page popupPage) {
	var buf bytes.Buffer
	if err := popupTemplate.Execute(&buf, page); err != nil {
		response.Error(w, r, d.logger, errors.WrapInternal("failed to render popup page", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// RedirectDelivery sends the browser back to the front end.
type RedirectDelivery struct {
	frontend *frontend
	logger   *slog.Logger
}

func (d *RedirectDelivery) Success(w http.ResponseWriter, r *http.Request, result *Result) {
	target, err := d.frontend.successURL(result)
	if err != nil {
		d.Failure(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (d *RedirectDelivery) Failure(w http.ResponseWriter, r *http.Request, err error) {
	response.Log(d.logger, r, err)
	http.Redirect(w, r, d.frontend.failureURL(err), http.StatusFound)
}
