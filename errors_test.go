package pdfvec

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7"))
	assert.Equal(t, 7*time.Second, ParseRetryAfter(" 7 "))
	assert.Zero(t, ParseRetryAfter(""))
	assert.Zero(t, ParseRetryAfter("-3"))
	assert.Zero(t, ParseRetryAfter("soon"))

	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Zero(t, ParseRetryAfter(past))

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	d := ParseRetryAfter(future)
	assert.Greater(t, d, 58*time.Minute)
	assert.LessOrEqual(t, d, time.Hour)
}

func TestInsertResult(t *testing.T) {
	r := InsertResult{Inserted: 3, Replaced: 2}
	assert.Equal(t, 5, r.Stored())
	assert.NoError(t, r.Err())

	r.Rejected = []RecordError{
		{ID: "a", Err: ErrDuplicateID},
		{ID: "b", Err: errors.New("too large")},
	}
	err := r.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Contains(t, err.Error(), "record a:")
	assert.Contains(t, err.Error(), "record b: too large")

	var re RecordError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "a", re.ID)
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "config: astra.token: missing", (&ConfigError{Field: "astra.token", Reason: "missing"}).Error())
	assert.Equal(t, "http 429: slow down", (&ErrHTTP{Status: 429, Body: "slow down"}).Error())
	assert.Equal(t, "astra: bad json", (&ErrProvider{Provider: "astra", Message: "bad json"}).Error())

	ee := &ExtractionError{Source: "a.pdf", Err: ErrNoText}
	assert.ErrorIs(t, ee, ErrNoText)
	assert.Equal(t, "extract a.pdf: no extractable text", ee.Error())

	qe := &QueryError{Collection: "docs", Err: ErrUnsupportedMode}
	assert.ErrorIs(t, qe, ErrUnsupportedMode)

	cause := errors.New("dial tcp")
	assert.ErrorIs(t, &QueryError{Collection: "docs", Err: cause}, cause)
}
