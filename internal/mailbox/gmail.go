// Package mailbox fetches brokerage statements and confirmation emails
// from Gmail: message search, PDF attachment download, and body
// extraction from nested MIME trees.
package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Service wraps an authenticated Gmail client.
type Service struct {
	gmail *gmail.Service
}

// NewService authenticates from an OAuth client credentials file and a
// cached token file. The token must already exist; provisioning it is an
// interactive one-time step outside this tool.
func NewService(ctx context.Context, credentialsFile, tokenFile string) (*Service, error) {
	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(credBytes, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokBytes, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token (run the OAuth flow first): %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokBytes, &tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("build gmail service: %w", err)
	}
	return &Service{gmail: svc}, nil
}

// SearchMessages returns up to max message IDs matching a Gmail search
// query, following pagination.
func (s *Service) SearchMessages(user, query string, max int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for int64(len(ids)) < max {
		call := s.gmail.Users.Messages.List(user).Q(query).MaxResults(min64(100, max-int64(len(ids))))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if int64(len(ids)) > max {
		ids = ids[:max]
	}
	return ids, nil
}

// DownloadAttachments saves the message's PDF attachments under saveDir
// and returns the written paths. S/MIME signature parts are skipped, and
// name collisions get a numeric suffix.
func (s *Service) DownloadAttachments(user, msgID, saveDir, filenameContains string) ([]string, error) {
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}

	msg, err := s.gmail.Users.Messages.Get(user, msgID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", msgID, err)
	}
	if msg.Payload == nil {
		return nil, nil
	}

	var saved []string
	for _, part := range walkParts(msg.Payload) {
		if !wantAttachment(part, filenameContains) {
			continue
		}

		data, err := s.partData(user, msgID, part)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}

		filename := part.Filename
		if filename == "" {
			filename = "attachment.pdf"
		}
		path := uniquePath(filepath.Join(saveDir, filename))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write attachment: %w", err)
		}
		saved = append(saved, path)
	}
	return saved, nil
}

// MessageBodies returns the HTML and plain-text bodies of a message, if
// present. Multipart trees can nest arbitrarily and split a body across
// sibling parts, so matching parts are concatenated.
func (s *Service) MessageBodies(user, msgID string) (html, text string, err error) {
	msg, err := s.gmail.Users.Messages.Get(user, msgID).Format("full").Do()
	if err != nil {
		return "", "", fmt.Errorf("get message %s: %w", msgID, err)
	}
	if msg.Payload == nil {
		return "", "", nil
	}

	for _, part := range walkParts(msg.Payload) {
		mime := strings.ToLower(part.MimeType)
		if mime != "text/html" && mime != "text/plain" {
			continue
		}
		data, err := s.partData(user, msgID, part)
		if err != nil || data == nil {
			continue
		}
		if mime == "text/html" {
			html += string(data)
		} else {
			text += string(data)
		}
	}

	// Single-part messages carry the body on the payload itself.
	if html == "" && text == "" && msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		data, err := decodeBase64URL(msg.Payload.Body.Data)
		if err == nil {
			decoded := string(data)
			if looksLikeHTML(decoded) {
				html = decoded
			} else {
				text = decoded
			}
		}
	}
	return html, text, nil
}

// DumpRawMessage writes a message's raw RFC 822 bytes as an .eml file
// under saveDir, for inspecting messages whose bodies could not be
// extracted. Returns the written path.
func (s *Service) DumpRawMessage(user, msgID, saveDir string) (string, error) {
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return "", fmt.Errorf("create save dir: %w", err)
	}

	msg, err := s.gmail.Users.Messages.Get(user, msgID).Format("raw").Do()
	if err != nil {
		return "", fmt.Errorf("get raw message %s: %w", msgID, err)
	}
	data, err := decodeBase64URL(msg.Raw)
	if err != nil {
		return "", fmt.Errorf("decode raw message %s: %w", msgID, err)
	}

	path := uniquePath(filepath.Join(saveDir, msgID+".eml"))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write raw message: %w", err)
	}
	return path, nil
}

// partData resolves a part's bytes from inline data or a separate
// attachment fetch. A nil result without error means the part carries no
// body.
func (s *Service) partData(user, msgID string, part *gmail.MessagePart) ([]byte, error) {
	if part.Body == nil {
		return nil, nil
	}
	if part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}
	if part.Body.AttachmentId != "" {
		att, err := s.gmail.Users.Messages.Attachments.Get(user, msgID, part.Body.AttachmentId).Do()
		if err != nil {
			return nil, fmt.Errorf("get attachment: %w", err)
		}
		return decodeBase64URL(att.Data)
	}
	return nil, nil
}

// walkParts flattens a MIME part tree in document order.
func walkParts(part *gmail.MessagePart) []*gmail.MessagePart {
	parts := []*gmail.MessagePart{part}
	for _, child := range part.Parts {
		parts = append(parts, walkParts(child)...)
	}
	return parts
}

// wantAttachment keeps PDF attachments, dropping multipart containers
// and S/MIME signatures like smime.p7s.
func wantAttachment(part *gmail.MessagePart, filenameContains string) bool {
	mime := strings.ToLower(part.MimeType)
	filename := strings.ToLower(part.Filename)

	if strings.HasPrefix(mime, "multipart/") {
		return false
	}
	if strings.HasSuffix(filename, ".p7s") || strings.Contains(mime, "pkcs7-signature") {
		return false
	}
	if mime != "application/pdf" && !strings.HasSuffix(filename, ".pdf") {
		return false
	}
	if filenameContains != "" && !strings.Contains(filename, strings.ToLower(filenameContains)) {
		return false
	}
	return true
}

// uniquePath suffixes _1, _2, ... until the path does not exist.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".pdf"
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, k, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// decodeBase64URL accepts Gmail body data with or without padding.
func decodeBase64URL(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "</p>")
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
