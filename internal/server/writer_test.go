package server

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	th "github.com/desertthunder/ytbridge/internal/testing"
)

func TestWriter(t *testing.T) {
	t.Run("concurrent writes stay on separate lines", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)

		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				req, err := NewRequest("ping", fmt.Sprintf("w%d", i), nil)
				if err != nil {
					t.Error(err)
					return
				}
				payload := Payload{"data": strings.Repeat("x", 4096)}
				if err := w.Write(OK(req, payload)); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
		require.Len(t, lines, 50)
		for _, line := range lines {
			assert.True(t, gjson.Valid(line))
		}
	})

	t.Run("write failure", func(t *testing.T) {
		w := NewWriter(&th.FWriter{})
		err := w.Write(OK(&Request{Command: "ping"}, nil))
		assert.ErrorContains(t, err, "failed to write response")
	})

	t.Run("unencodable payload", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		err := w.Write(OK(&Request{Command: "ping"}, Payload{"bad": make(chan int)}))
		assert.ErrorContains(t, err, "failed to encode response")
		assert.Zero(t, buf.Len())
	})
}
