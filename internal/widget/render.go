// Package widget renders the embeddable widget page and the embed snippets
// users paste into their own sites.
package widget

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/dhiksjf/serverstat-hub/assets"
	"github.com/dhiksjf/serverstat-hub/internal/models"
)

// Renderer holds the parsed widget page template.
type Renderer struct {
	page *template.Template
}

// NewRenderer parses the embedded widget template.
func NewRenderer() (*Renderer, error) {
	content, err := assets.ReadFile("templates/widget.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read widget template: %w", err)
	}

	page, err := template.New("widget").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse widget template: %w", err)
	}

	return &Renderer{page: page}, nil
}

// pageData feeds the widget template. Style values are typed template.CSS
// because the contextual escaper would otherwise reject quoted font stacks.
type pageData struct {
	ConfigID        string
	APIBase         string
	Theme           string
	RefreshInterval int
	BorderRadius    int
	ShadowIntensity int
	FontFamily      template.CSS
	AccentColor     template.CSS
	BackgroundColor template.CSS
	TextColor       template.CSS
	BorderStyle     template.CSS
}

// RenderPage writes the self-refreshing widget HTML for a stored config.
// baseURL is the public origin of this service, without a trailing slash.
func (r *Renderer) RenderPage(w io.Writer, baseURL string, cfg *models.WidgetConfig) error {
	return r.page.Execute(w, pageData{
		ConfigID:        cfg.ConfigID,
		APIBase:         strings.TrimSuffix(baseURL, "/"),
		Theme:           cfg.Theme,
		RefreshInterval: cfg.RefreshInterval,
		BorderRadius:    cfg.BorderRadius,
		ShadowIntensity: cfg.ShadowIntensity,
		FontFamily:      template.CSS(cfg.FontFamily),
		AccentColor:     template.CSS(cfg.AccentColor),
		BackgroundColor: template.CSS(cfg.BackgroundColor),
		TextColor:       template.CSS(cfg.TextColor),
		BorderStyle:     template.CSS(cfg.BorderStyle),
	})
}

// EmbedSnippets holds the two ways to place a widget on a page: an iframe
// pointing at the widget route, and a standalone script that injects one.
type EmbedSnippets struct {
	Iframe string `json:"iframe"`
	Script string `json:"script"`
}

// Snippets builds the copy-paste embed code for a config.
func Snippets(baseURL string, cfg *models.WidgetConfig) EmbedSnippets {
	base := strings.TrimSuffix(baseURL, "/")
	widgetURL := fmt.Sprintf("%s/widget/%s", base, cfg.ConfigID)

	iframe := fmt.Sprintf(
		`<iframe src="%s" width="640" height="480" frameborder="0" style="border-radius:%dpx;overflow:hidden;" title="CS 1.6 Server Status"></iframe>`,
		widgetURL, cfg.BorderRadius)

	script := fmt.Sprintf(`<div id="cs-widget-%s"></div>
<script>
(function () {
  var frame = document.createElement('iframe');
  frame.src = %q;
  frame.width = '640';
  frame.height = '480';
  frame.frameBorder = '0';
  frame.title = 'CS 1.6 Server Status';
  document.getElementById('cs-widget-%s').appendChild(frame);
})();
</script>`, cfg.ConfigID, widgetURL, cfg.ConfigID)

	return EmbedSnippets{Iframe: iframe, Script: script}
}
