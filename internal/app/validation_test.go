package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamUnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want param
	}{
		{`"user1"`, "user1"},
		{`42`, "42"},
		{`1655900000000`, "1655900000000"},
		{`true`, "true"},
		{`null`, ""},
		{`["a", "b", 3]`, "a,b,3"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p param
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.want, p)
		})
	}

	var p param
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &p))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList("   "))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b"))
	assert.Equal(t, []string{"a", ""}, splitList("a,"))
}

func TestValidateUsername(t *testing.T) {
	RegisterValidators()

	assert.NoError(t, validateUsername("username", "user_1"))
	assert.NoError(t, validateUsername("username", "_x"))

	tests := []struct {
		name string
		want string
	}{
		{"", "field required"},
		{"a", "ensure this value has at least 2 characters"},
		{"a123456789012345678901234567890", "ensure this value has at most 30 characters"},
		{"1user", `string does not match regex "^[a-zA-Z_]\w*$"`},
		{"us er", `string does not match regex "^[a-zA-Z_]\w*$"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUsername("username", tt.name)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{tt.want}, verr.Fields["username"])
		})
	}
}

func TestValidUsername(t *testing.T) {
	assert.True(t, validUsername("ab"))
	assert.True(t, validUsername("a123456789012345678901234567_9"))
	assert.False(t, validUsername("a"))
	assert.False(t, validUsername("_1234567890123456789012345678901"))
	assert.False(t, validUsername("a-b"))
}

func TestParseDateTime(t *testing.T) {
	want := time.Date(2022, 6, 22, 15, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2022-06-22T15:00:00Z",
		"2022-06-22T15:00:00+00:00",
		"2022-06-22T17:00:00+02:00",
		"2022-06-22T17:00+02:00",
		"2022-06-22 15:00:00Z",
		"2022-06-22 17:00+02:00",
		"2022-06-22T15:00:00",
		"2022-06-22T15:00",
		"2022-06-22 15:00:00",
		"2022-06-22 15:00",
	} {
		got, err := parseDateTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s parsed as %s", in, got)
		assert.Equal(t, time.UTC, got.Location(), in)
	}

	got, err := parseDateTime("2022-06-22")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 6, 22, 0, 0, 0, 0, time.UTC), got)

	for _, in := range []string{"", "tomorrow", "22.06.2022", "2022-13-01T00:00"} {
		_, err := parseDateTime(in)
		assert.ErrorIs(t, err, errDateTime, in)
	}
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:00:00+00:00", formatTimestamp(0))
	assert.Equal(t, "2022-06-22T15:00:00+00:00", formatTimestamp(1655910000))
}

func TestParseRange(t *testing.T) {
	verr := &ValidationError{}
	s, e := parseRange(verr, "2022-06-22T15:00", "2022-06-22T16:00")
	assert.NoError(t, verr.OrNil())
	assert.Equal(t, int64(3600), e-s)

	verr = &ValidationError{}
	parseRange(verr, "2022-06-22T15:00", "2022-06-22T15:00")
	assert.NoError(t, verr.OrNil())

	verr = &ValidationError{}
	parseRange(verr, "2022-06-22T16:00", "2022-06-22T15:00")
	assert.Equal(t, map[string][]string{rootField: {"end should not be earlier than start"}}, verr.Fields)

	verr = &ValidationError{}
	parseRange(verr, "bad", "")
	assert.Equal(t, map[string][]string{
		"start": {"invalid datetime format"},
		"end":   {"invalid datetime format"},
	}, verr.Fields)
}
