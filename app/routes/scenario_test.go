package routes_test

import (
	"net/http"
	"testing"

	"github.com/shashiranjanraj/kachra/pkg/fal"
	"github.com/shashiranjanraj/kachra/pkg/testkit"
)

const falTestURL = "https://fal.run/fal-ai/fast-lightning-sdxl"

func TestScenarios(t *testing.T) {
	testkit.RunDir(t, "testdata", func(t *testing.T) http.Handler {
		return newAPI(t, testkit.Text(), fal.New(falTestURL, "test-key")).h
	})
}
