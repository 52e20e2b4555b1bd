package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/fal"
	"github.com/shashiranjanraj/kachra/pkg/metrics"
)

// TextGenerator answers a single prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator renders images for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, in fal.Input) (*fal.Result, error)
}

// ErrNoJSON is returned when a model answer holds no JSON value.
var ErrNoJSON = errors.New("no JSON value in model response")

var firstInteger = regexp.MustCompile(`\d+`)

type Buyer struct {
	Name    string `json:"name"`
	Website string `json:"website"`
}

type RawMaterials struct {
	RawMaterials            []string `json:"rawMaterials"`
	EcoFriendlyRawMaterials []string `json:"ecoFriendlyRawMaterials"`
}

// AssistService wraps the generative models behind the seller tools. It
// keeps no state between calls.
type AssistService struct {
	text   TextGenerator
	images ImageGenerator
}

// NewAssistService accepts nil generators; calls that need a missing one
// fail with an upstream error.
func NewAssistService(text TextGenerator, images ImageGenerator) *AssistService {
	return &AssistService{text: text, images: images}
}

// Describe writes a one-paragraph product description.
func (s *AssistService) Describe(ctx context.Context, name, category string) (string, error) {
	prompt := fmt.Sprintf("Give a short description for a %s in the %s category of 1 paragraph. "+
		"Do not use any special symbols or markdown.", name, category)
	out, err := s.generate(ctx, "description", prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// PotentialBuyers suggests companies that could buy the material.
func (s *AssistService) PotentialBuyers(ctx context.Context, name, category string) ([]Buyer, error) {
	prompt := fmt.Sprintf("Generate a list of potential buyers for %s in the %s category. "+
		`Respond only with a JSON array of objects with the keys "name" and "website".`, name, category)
	out, err := s.generate(ctx, "buyers", prompt)
	if err != nil {
		return nil, err
	}
	var buyers []Buyer
	if err := DecodeModelJSON(out, &buyers); err != nil {
		return nil, errs.Upstream("assist.buyers", "could not read buyers from the model response", err)
	}
	return buyers, nil
}

// Demand scores market demand for the material in India, clamped to 0..100.
func (s *AssistService) Demand(ctx context.Context, name string) (int, error) {
	prompt := fmt.Sprintf("Demand for %s as a raw material in India on a scale of 1 to 100. "+
		"Answer with the number only.", name)
	out, err := s.generate(ctx, "demand", prompt)
	if err != nil {
		return 0, err
	}
	m := firstInteger.FindString(out)
	if m == "" {
		return 0, errs.Upstream("assist.demand", "could not read a score from the model response", ErrNoJSON)
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		// out of int range
		return 100, nil
	}
	return clampDemand(n), nil
}

// RawMaterials lists conventional and eco-friendly inputs for a product.
func (s *AssistService) RawMaterials(ctx context.Context, description string) (RawMaterials, error) {
	prompt := fmt.Sprintf(`Given the product description below, list the raw materials required to produce the product
and the eco-friendly raw materials that could replace them.

Product Description: %q

Respond only with a JSON object of this shape:
{"rawMaterials": ["Material A", "Material B"], "ecoFriendlyRawMaterials": ["Material X", "Material Y"]}`, description)
	out, err := s.generate(ctx, "raw_materials", prompt)
	if err != nil {
		return RawMaterials{}, err
	}
	var rm RawMaterials
	if err := DecodeModelJSON(out, &rm); err != nil {
		return RawMaterials{}, errs.Upstream("assist.raw_materials", "could not read raw materials from the model response", err)
	}
	if rm.RawMaterials == nil {
		rm.RawMaterials = []string{}
	}
	if rm.EcoFriendlyRawMaterials == nil {
		rm.EcoFriendlyRawMaterials = []string{}
	}
	return rm, nil
}

// GenerateImage renders a design concept image.
func (s *AssistService) GenerateImage(ctx context.Context, req fal.Request) (*fal.Result, error) {
	if s.images == nil {
		return nil, errs.Upstream("assist.image", fal.MsgFailed, errors.New("image generation is not configured"))
	}
	return s.images.Generate(ctx, req.Input())
}

func (s *AssistService) generate(ctx context.Context, capability, prompt string) (out string, err error) {
	defer func() { metrics.RecordAssist(capability, err) }()

	op := "assist." + capability
	if s.text == nil {
		return "", errs.Upstream(op, "text generation is not configured", nil)
	}
	out, err = s.text.Generate(ctx, prompt)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, context.DeadlineExceeded):
		return "", errs.Timeout(op, "text generation timed out", err)
	default:
		return "", errs.Upstream(op, "text generation failed", err)
	}
}

// ExtractJSON pulls the JSON value delimited by open and close out of a
// model answer: code fences are stripped, then the text from the first open
// to the last close bracket is taken.
func ExtractJSON(text string, open, close byte) (string, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")

	i := strings.IndexByte(s, open)
	j := strings.LastIndexByte(s, close)
	if i < 0 || j <= i {
		return "", ErrNoJSON
	}
	return s[i : j+1], nil
}

// DecodeModelJSON extracts and decodes an array into a slice destination or
// an object into anything else.
func DecodeModelJSON(text string, dest any) error {
	open, close := byte('{'), byte('}')
	if isSlicePtr(dest) {
		open, close = '[', ']'
	}
	raw, err := ExtractJSON(text, open, close)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

func isSlicePtr(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Slice
}
