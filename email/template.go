package email

import (
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const announcementHTMLTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Georgia, serif; max-width: 600px; margin: 0 auto; padding: 24px; color: #1a1a1a;">
  <h1 style="font-size: 24px; margin-bottom: 8px;">{{.Title}}</h1>
  {{if .Date}}<p style="color: #6b6b6b; font-size: 14px; margin-top: 0;">{{.Date}}</p>{{end}}
  {{if .Excerpt}}<p style="font-size: 16px; line-height: 1.6;">{{.Excerpt}}</p>{{end}}
  <p style="margin: 24px 0;">
    <a href="{{.URL}}" style="background: #1a1a1a; color: #ffffff; padding: 10px 20px; text-decoration: none;">Read the full post</a>
  </p>
  <hr style="border: none; border-top: 1px solid #e0e0e0; margin: 32px 0 16px;">
  <p style="color: #6b6b6b; font-size: 12px;">
    You are receiving this email because you subscribed to our newsletter.
    To unsubscribe, visit <a href="{{.Website}}" style="color: #6b6b6b;">{{.Website}}</a>.
  </p>
</body>
</html>
`

const announcementTextTemplate = `{{.Title}}
{{if .Date}} {{- .Date}}
{{end}}
{{- if .Excerpt}}
{{.Excerpt}}
{{end}}
Read the full post: {{.URL}}

--
You are receiving this email because you subscribed to our newsletter.
To unsubscribe, visit {{.Website}}.
`

var (
	announcementHTML = htmltemplate.Must(htmltemplate.New("announcement").Parse(announcementHTMLTemplate))
	announcementText = texttemplate.Must(texttemplate.New("announcement").Parse(announcementTextTemplate))
)

type announcementData struct {
	Title   string
	Date    string
	Excerpt string
	URL     string
	Website string
}

// renderAnnouncement renders the HTML and plain-text bodies for a
// single announcement.
func renderAnnouncement(a Announcement, website string) (html, text string, err error) {
	data := announcementData{
		Title:   a.Title,
		Date:    a.Date,
		Excerpt: a.Excerpt,
		URL:     a.URL,
		Website: website,
	}
	var htmlBuf, textBuf strings.Builder
	if err := announcementHTML.Execute(&htmlBuf, data); err != nil {
		return "", "", err
	}
	if err := announcementText.Execute(&textBuf, data); err != nil {
		return "", "", err
	}
	return htmlBuf.String(), textBuf.String(), nil
}
