package validation_test

import (
	"testing"
	"time"

	"github.com/Aidin1998/taskmanager/pkg/validation"
	"github.com/stretchr/testify/assert"
)

func TestIsEmail(t *testing.T) {
	v := validation.New()

	for _, email := range []string{"a@b.co", "first.last@example.com", "x+tag@sub.domain.org"} {
		assert.True(t, v.IsEmail(email), email)
	}
	for _, email := range []string{"", "plain", "a@b", "a b@c.com", "@example.com", "a@@b.com"} {
		assert.False(t, v.IsEmail(email), email)
	}
}

func TestIsPassword(t *testing.T) {
	v := validation.New()

	assert.False(t, v.IsPassword(""))
	assert.False(t, v.IsPassword("12345"))
	assert.True(t, v.IsPassword("123456"))
}

func TestRequired(t *testing.T) {
	v := validation.New()

	assert.True(t, v.Required("a", "b"))
	assert.False(t, v.Required("a", ""))
}

func TestParseDate(t *testing.T) {
	cases := map[string]time.Time{
		"2026-03-01":                time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		"2026-03-01T10:30:00Z":      time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		"2026-03-01T10:30:00.000Z":  time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		"2026-03-01T12:30:00+02:00": time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		"2026-03-01T10:30":          time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := validation.ParseDate(in)
		if assert.True(t, ok, in) {
			assert.True(t, want.Equal(got), "%s: got %s", in, got)
		}
	}

	for _, in := range []string{"", "tomorrow", "2026-13-01", "31/12/2026", "not-a-date"} {
		_, ok := validation.ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestIsPlainText(t *testing.T) {
	v := validation.New()

	for _, in := range []string{"", "Write report", "Tom & Jerry", "R&amp;D", "x < y", "<3 this", "line one\r\nline two", "\"quoted\" 'text'"} {
		assert.True(t, v.IsPlainText(in), in)
	}
	for _, in := range []string{"<b>Write</b> report", "Fix <title> tag rendering", "a<b and c>d", "<script>alert(1)</script>", "<todo>"} {
		assert.False(t, v.IsPlainText(in), in)
	}
}
