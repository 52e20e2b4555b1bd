// Package fal calls the fal.ai fast-lightning-sdxl image model.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/http"
	"github.com/shashiranjanraj/kachra/pkg/metrics"
)

// Messages returned to callers of the image proxy.
const (
	MsgNoImages = "No images returned from Fal-AI API."
	MsgFailed   = "Failed to generate images."
)

// ErrNoImages is returned when fal answered without any image.
var ErrNoImages = errors.New("fal: " + MsgNoImages)

// Request is the proxy body. Omitted fields take the defaults applied by
// Input.
type Request struct {
	Prompt              string  `json:"prompt"`
	ImageSize           *string `json:"image_size,omitempty"`
	SyncMode            *bool   `json:"sync_mode,omitempty"`
	NumImages           *int    `json:"num_images,omitempty"`
	NumInferenceSteps   *int    `json:"num_inference_steps,omitempty"`
	EnableSafetyChecker *bool   `json:"enable_safety_checker,omitempty"`
	ExpandPrompt        *bool   `json:"expand_prompt,omitempty"`
	Seed                Seed    `json:"seed"`
}

// Input is the body sent to fal.
type Input struct {
	Prompt              string `json:"prompt"`
	ImageSize           string `json:"image_size"`
	SyncMode            bool   `json:"sync_mode"`
	NumImages           int    `json:"num_images"`
	NumInferenceSteps   int    `json:"num_inference_steps"`
	EnableSafetyChecker bool   `json:"enable_safety_checker"`
	ExpandPrompt        bool   `json:"expand_prompt"`
	Seed                *int64 `json:"seed,omitempty"`
}

// Input applies the defaults: square_hd, sync, one image, two steps,
// safety checker on, no prompt expansion.
func (r Request) Input() Input {
	in := Input{
		Prompt:              r.Prompt,
		ImageSize:           "square_hd",
		SyncMode:            true,
		NumImages:           1,
		NumInferenceSteps:   2,
		EnableSafetyChecker: true,
		Seed:                r.Seed.Value,
	}
	if r.ImageSize != nil && *r.ImageSize != "" {
		in.ImageSize = *r.ImageSize
	}
	if r.SyncMode != nil {
		in.SyncMode = *r.SyncMode
	}
	if r.NumImages != nil {
		in.NumImages = *r.NumImages
	}
	if r.NumInferenceSteps != nil {
		in.NumInferenceSteps = *r.NumInferenceSteps
	}
	if r.EnableSafetyChecker != nil {
		in.EnableSafetyChecker = *r.EnableSafetyChecker
	}
	if r.ExpandPrompt != nil {
		in.ExpandPrompt = *r.ExpandPrompt
	}
	return in
}

// Seed accepts a JSON number or a numeric string. Zero, empty and
// non-numeric values leave the seed unset.
type Seed struct {
	Value *int64
}

func (s *Seed) UnmarshalJSON(b []byte) error {
	s.Value = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f == 0 {
		return nil
	}
	n := int64(f)
	s.Value = &n
	return nil
}

type Image struct {
	URL         string `json:"url"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Result is the subset of the fal response returned to clients.
type Result struct {
	Images          []Image            `json:"images"`
	Prompt          string             `json:"prompt"`
	Timings         map[string]float64 `json:"timings"`
	Seed            int64              `json:"seed"`
	HasNSFWConcepts []bool             `json:"has_nsfw_concepts"`
}

type Client struct {
	url     string
	key     string
	timeout time.Duration
}

func New(url, key string) *Client {
	return &Client{url: url, key: key, timeout: 90 * time.Second}
}

// Generate runs the model synchronously. A response without images yields
// ErrNoImages. Transport and non-2xx failures are Upstream errors.
func (c *Client) Generate(ctx context.Context, in Input) (res *Result, err error) {
	defer func() { metrics.RecordAssist("image", err) }()

	resp, err := http.Post(c.url).
		Authorization("Key", c.key).
		Body(in).
		Timeout(c.timeout).
		Retry(2, time.Second).
		WithContext(ctx).
		Send()
	if err != nil {
		return nil, errs.Upstream("fal.generate", MsgFailed, err)
	}
	if err := resp.Throw(); err != nil {
		return nil, errs.Upstream("fal.generate", MsgFailed, err)
	}

	var out Result
	if err := resp.JSON(&out); err != nil {
		return nil, errs.Upstream("fal.generate", MsgFailed, err)
	}
	if len(out.Images) == 0 {
		return nil, errs.Upstream("fal.generate", MsgNoImages, ErrNoImages)
	}
	return &out, nil
}
