package api

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Installation Complete</title>
	<style>
		body { font-family: -apple-system, sans-serif; background: #f5f7fa; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
		.card { background: #fff; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,.1); padding: 40px; max-width: 440px; text-align: center; }
		h1 { color: #16a34a; font-size: 22px; }
		p { color: #475569; }
		code { background: #f1f5f9; padding: 2px 6px; border-radius: 4px; }
	</style>
</head>
<body>
	<div class="card">
		<h1>✓ Delyva Shipping connected</h1>
		<p>Your HighLevel location is now linked.</p>
		{{if .LocationID}}<p>Location: <code>{{.LocationID}}</code></p>{{end}}
		<p>Next, add your Delyva API key in the integration settings to start quoting shipping rates at checkout.</p>
	</div>
</body>
</html>`))

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Installation Failed</title>
	<style>
		body { font-family: -apple-system, sans-serif; background: #f5f7fa; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; }
		.card { background: #fff; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,.1); padding: 40px; max-width: 440px; text-align: center; }
		h1 { color: #dc2626; font-size: 22px; }
		p { color: #475569; }
	</style>
</head>
<body>
	<div class="card">
		<h1>✗ Installation failed</h1>
		<p>{{if .Message}}{{.Message}}{{else}}Something went wrong while connecting your location.{{end}}</p>
		<p>Please try installing the app again. If the problem persists, contact support with the reference above.</p>
	</div>
</body>
</html>`))

// PagesHandler renders the browser-facing install result pages the OAuth
// callback redirects to.
type PagesHandler struct {
	logger zerolog.Logger
}

func NewPagesHandler(logger zerolog.Logger) *PagesHandler {
	return &PagesHandler{logger: logger}
}

// InstallSuccess handles GET /install/success.
func (h *PagesHandler) InstallSuccess(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ LocationID string }{LocationID: r.URL.Query().Get("location_id")}
	if err := successPage.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render success page")
	}
}

// InstallError handles GET /install/error.
func (h *PagesHandler) InstallError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ Message string }{Message: r.URL.Query().Get("message")}
	if err := errorPage.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render error page")
	}
}
