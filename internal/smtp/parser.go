package smtp

import (
	"io"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
)

// ParsedMessage is the intake-relevant content of an inbound email
type ParsedMessage struct {
	SenderEmail string
	SenderName  string
	Subject     string
	Body        string
	Attachments []ParsedAttachment
}

// ParsedAttachment is a decoded attachment from an inbound email
type ParsedAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ParseMessage parses an inbound email from an io.Reader. The plain-text
// part wins; an HTML-only message is stripped down to its text.
func ParseMessage(r io.Reader) (*ParsedMessage, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedMessage{
		Subject: env.GetHeader("Subject"),
		Body:    selectBody(env.Text, env.HTML),
	}

	parsed.SenderName, parsed.SenderEmail = parseFromHeader(env.GetHeader("From"))

	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
			Filename:    att.FileName,
			ContentType: att.ContentType,
			Data:        att.Content,
		})
	}

	// Inline parts with a filename are documents too
	for _, att := range env.Inlines {
		if att.FileName != "" {
			parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
				Filename:    att.FileName,
				ContentType: att.ContentType,
				Data:        att.Content,
			})
		}
	}

	return parsed, nil
}

// parseFromHeader extracts name and email from a From header
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	// Pattern: "Name" <email@example.com> or Name <email@example.com>
	re := regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)
	matches := re.FindStringSubmatch(from)

	if len(matches) >= 3 {
		name = strings.TrimSpace(matches[1])
		email = strings.TrimSpace(matches[2])
		name = strings.Trim(name, `"`)
	} else {
		// Fallback: treat entire string as email
		email = from
	}

	return name, email
}

// selectBody prefers the plain-text part of the message
func selectBody(bodyText, bodyHTML string) string {
	if strings.TrimSpace(bodyText) != "" {
		return strings.TrimSpace(bodyText)
	}
	text := stripHTMLTags(bodyHTML)
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimSpace(text)
}

// stripHTMLTags removes HTML tags from a string
func stripHTMLTags(html string) string {
	// Remove script and style elements
	re := regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</\1>`)
	html = re.ReplaceAllString(html, "")

	// Remove HTML tags
	re = regexp.MustCompile(`<[^>]*>`)
	html = re.ReplaceAllString(html, " ")

	// Decode common HTML entities
	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&amp;", "&")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&quot;", `"`)
	html = strings.ReplaceAll(html, "&#39;", "'")

	return html
}
