package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kachra/pkg/errs"
)

func TestKindOfWrapped(t *testing.T) {
	base := errs.NotFound("catalog.Get", "product %s not found", "AB12C")
	wrapped := fmt.Errorf("controller: %w", base)

	assert.Equal(t, errs.KindNotFound, errs.KindOf(wrapped))
	assert.True(t, errs.IsKind(wrapped, errs.KindNotFound))
	assert.Equal(t, "product AB12C not found", errs.MessageOf(wrapped))
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, errs.KindUnknown, errs.KindOf(err))
	assert.False(t, errs.IsKind(nil, errs.KindUnknown))
	assert.Equal(t, "Internal Server Error", errs.MessageOf(err))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := errs.Upstream("docstore.Insert", "store unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "docstore.Insert")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIntegrityCarriesIDs(t *testing.T) {
	err := errs.Integrity("negotiation.Resolve", "partial", map[string]string{
		"request_id": "r1",
		"history_id": "h1",
	}, nil)

	fields := errs.FieldsOf(fmt.Errorf("wrap: %w", err))
	assert.Equal(t, "r1", fields["request_id"])
	assert.Equal(t, "h1", fields["history_id"])
}
