package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/smartcondominio/gatekeeper/internal/gatekeeper/types"
)

// DefaultPlateAPIURL is the Plate Recognizer snapshot endpoint.
const DefaultPlateAPIURL = "https://api.platerecognizer.com/v1/plate-reader/"

// maxPlateResponse caps how much of the upstream body we read. Snapshot
// responses are a few KB; 1 MiB is far beyond anything legitimate.
const maxPlateResponse = 1 << 20

// plateReaderResponse is the slice of the snapshot API response the engine
// consumes. The full body is preserved separately in Candidate.Payload.
type plateReaderResponse struct {
	Results []plateResult `json:"results"`
}

type plateResult struct {
	Plate string   `json:"plate"`
	Score *float64 `json:"score"`
}

// PlateClient reads vehicle plates through the Plate Recognizer snapshot
// API. One POST per Recognize; the top-ranked result is the candidate.
type PlateClient struct {
	url     string
	token   string
	regions []string
	timeout time.Duration
	client  *http.Client
	log     *zap.SugaredLogger
}

// PlateClientConfig holds the construction parameters for NewPlateClient.
type PlateClientConfig struct {
	URL     string        // defaults to DefaultPlateAPIURL
	Token   string        // API token, sent as "Authorization: Token <t>"
	Regions []string      // default region hints, e.g. ["bo"]
	Timeout time.Duration // per-call deadline; defaults to 12s
}

func NewPlateClient(cfg PlateClientConfig, log *zap.SugaredLogger) *PlateClient {
	url := cfg.URL
	if url == "" {
		url = DefaultPlateAPIURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &PlateClient{
		url:     url,
		token:   cfg.Token,
		regions: cfg.Regions,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *PlateClient) Recognize(ctx context.Context, image []byte, hints Hints) (Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := c.buildForm(image, hints)
	if err != nil {
		return Candidate{}, &TransportError{Service: "plate-reader", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return Candidate{}, &TransportError{Service: "plate-reader", Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Candidate{}, &TransportError{Service: "plate-reader", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPlateResponse))
	if err != nil {
		return Candidate{}, &TransportError{Service: "plate-reader", Err: err}
	}

	// Plate Recognizer returns 200 or 201 on success.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Candidate{}, &TransportError{
			Service: "plate-reader",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, truncate(payload, 200)),
		}
	}

	var parsed plateReaderResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Candidate{}, &TransportError{Service: "plate-reader", Err: fmt.Errorf("decode response: %w", err)}
	}

	cand := Candidate{
		Modality: types.ModalityPlate,
		Payload:  json.RawMessage(payload),
	}

	if len(parsed.Results) == 0 {
		return cand, ErrNoCandidate
	}

	best := parsed.Results[0]
	cand.RawID = best.Plate
	cand.NormalizedID = NormalizePlate(best.Plate)
	if best.Score != nil {
		cand.Confidence = *best.Score
	}

	if cand.NormalizedID == "" {
		return cand, ErrNoCandidate
	}

	c.log.Debugw("plate recognized",
		"plate", cand.NormalizedID, "score", cand.Confidence, "camera_id", hints.CameraID)
	return cand, nil
}

// buildForm assembles the multipart body: the snapshot under "upload",
// one "regions" field per hint, and the camera id when known.
func (c *PlateClient) buildForm(image []byte, hints Hints) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fw, err := w.CreateFormFile("upload", "snapshot.jpg")
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(image); err != nil {
		return nil, "", err
	}

	regions := c.regions
	if hints.Region != "" {
		regions = []string{hints.Region}
	}
	for _, r := range regions {
		if err := w.WriteField("regions", r); err != nil {
			return nil, "", err
		}
	}
	if hints.CameraID != "" {
		if err := w.WriteField("camera_id", hints.CameraID); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
