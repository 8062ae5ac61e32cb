// Package engine talks to the inference sidecar that hosts the face
// detection and embedding models. The sidecar exposes a small HTTP API;
// this client posts image bytes and parses the flattened face records
// it returns.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/kozaktomas/face-attend/internal/face"
)

const defaultBaseURL = "http://localhost:8000"

// Client calls the inference engine over HTTP.
type Client struct {
	baseURL            string
	detectionThreshold float32
	client             *http.Client
}

// NewClient creates an engine client. The detection threshold is sent
// with every detect call so the engine filters low-confidence faces
// before they reach the pipeline.
func NewClient(baseURL string, detectionThreshold float32) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:            strings.TrimSuffix(baseURL, "/"),
		detectionThreshold: detectionThreshold,
		client:             &http.Client{},
	}
}

type detectResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      [][]float32 `json:"faces"`
	Model      string      `json:"model"`
}

type embedResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// Detect finds faces in the frame. Each returned detection carries the
// bounding box, the five landmarks and the confidence score parsed from
// the engine's flattened 15-value records.
func (c *Client) Detect(ctx context.Context, frame []byte) ([]face.Detection, error) {
	fields := map[string]string{
		"threshold": strconv.FormatFloat(float64(c.detectionThreshold), 'f', -1, 32),
	}

	body, err := c.postMultipartImage(ctx, "/detect", frame, fields)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse detect response: %w", err)
	}

	detections, err := face.ParseDetections(resp.Faces)
	if err != nil {
		return nil, err
	}
	return detections, nil
}

// Embed computes the identity embedding for an aligned face crop.
func (c *Client) Embed(ctx context.Context, crop []byte) ([]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", crop, nil)
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if resp.Dim > 0 && resp.Dim != len(resp.Embedding) {
		return nil, fmt.Errorf("embedding has %d values, engine declared %d", len(resp.Embedding), resp.Dim)
	}

	return resp.Embedding, nil
}

// Ping checks that the engine answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine health check returned status %d", resp.StatusCode)
	}
	return nil
}

// postMultipartImage posts the image as a multipart form with an explicit
// Content-Type derived from magic bytes, plus any extra form fields.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="frame.img"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("engine error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType sniffs the image format from magic bytes.
func detectMIMEType(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg"
	case bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png"
	case bytes.HasPrefix(data, []byte("GIF8")):
		return "image/gif"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
