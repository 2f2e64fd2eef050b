package output

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Success(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatus(&buf, false)

	s.Success("css", 2, 1234*time.Microsecond)
	s.Success("js", 1, time.Second)

	assert.Equal(t, "✔ css 2 files (1ms)\n✔ js 1 file (1s)\n", buf.String())
}

func TestStatus_Failure(t *testing.T) {
	var buf bytes.Buffer
	NewStatus(&buf, false).Failure("html", errors.New("index.kit:3: undefined variable $title"))

	assert.Equal(t, "✘ html index.kit:3: undefined variable $title\n", buf.String())
}
