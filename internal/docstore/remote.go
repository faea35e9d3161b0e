package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dgallion1/protoreview/internal/tree"
)

// Remote talks to the document service over HTTP.
type Remote struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// documentResponse is the body of GET /studies/{id}.
type documentResponse struct {
	ID        string          `json:"study_id"`
	Title     string          `json:"study_title"`
	Revision  int             `json:"revision"`
	UpdatedAt time.Time       `json:"updated_at"`
	Document  json.RawMessage `json:"document"`
}

type auditResponse struct {
	ID        string          `json:"id"`
	StudyID   string          `json:"study_id"`
	Path      string          `json:"path"`
	UpdatedBy string          `json:"updated_by"`
	At        time.Time       `json:"at"`
	Delta     struct {
		Old json.RawMessage `json:"old"`
		New json.RawMessage `json:"new"`
	} `json:"delta"`
	Before json.RawMessage `json:"before"`
	After  json.RawMessage `json:"after"`
}

// Get fetches the current revision of a study.
func (c *Remote) Get(ctx context.Context, studyID string) (*Document, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.studyURL(studyID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, studyID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var body documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	doc, err := tree.Parse(body.Document)
	if err != nil {
		return nil, fmt.Errorf("decode document tree: %w", err)
	}
	title := body.Title
	if title == "" {
		title = TitleOf(studyID, doc)
	}
	return &Document{ID: studyID, Title: title, Revision: body.Revision, UpdatedAt: body.UpdatedAt, Tree: doc}, nil
}

// UpdateField posts one field update.
func (c *Remote) UpdateField(ctx context.Context, req FieldUpdate) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal field update: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.studyURL(req.StudyID)+"/fields", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("update field: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, req.StudyID)
	case http.StatusUnprocessableEntity:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s", tree.ErrPathMismatch, bytes.TrimSpace(b))
	}
	return statusError(resp)
}

// Audit lists applied updates for a study, oldest first.
func (c *Remote) Audit(ctx context.Context, studyID string) ([]AuditEntry, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.studyURL(studyID)+"/audit", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get audit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, studyID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var result struct {
		Entries []auditResponse `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode audit: %w", err)
	}
	out := make([]AuditEntry, 0, len(result.Entries))
	for _, e := range result.Entries {
		out = append(out, AuditEntry{
			ID:        e.ID,
			StudyID:   e.StudyID,
			Path:      e.Path,
			UpdatedBy: e.UpdatedBy,
			At:        e.At,
			Delta:     Delta{Old: rawValue(e.Delta.Old), New: rawValue(e.Delta.New)},
			Before:    rawValue(e.Before),
			After:     rawValue(e.After),
		})
	}
	return out, nil
}

// Close releases idle connections.
func (c *Remote) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Remote) studyURL(studyID string) string {
	return c.baseURL + "/studies/" + url.PathEscape(studyID)
}

func statusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(b))}
}

// rawValue decodes an optional snapshot; absent or malformed snapshots
// become null.
func rawValue(raw json.RawMessage) tree.Value {
	if len(raw) == 0 {
		return tree.Null{}
	}
	v, err := tree.Parse(raw)
	if err != nil {
		return tree.Null{}
	}
	return v
}
