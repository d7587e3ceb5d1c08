package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequest(t *testing.T) {
	t.Run("FlattensPayload", func(t *testing.T) {
		data, err := EncodeRequest("", CmdGetFile, "abc123", map[string]any{
			"path": "a.md",
		})
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))

		assert.Equal(t, "GET_FILE", m["cmd"])
		assert.Equal(t, "abc123", m["authHash"])
		assert.Equal(t, "a.md", m["path"])
		assert.NotContains(t, m, "id")
		assert.NotContains(t, m, "payload")
	})

	t.Run("CorrelationID", func(t *testing.T) {
		data, err := EncodeRequest("req-7", CmdPing, "abc123", nil)
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		assert.Equal(t, "req-7", m["id"])
	})

	t.Run("EmptyCommand", func(t *testing.T) {
		_, err := EncodeRequest("", "", "abc123", nil)
		assert.ErrorIs(t, err, ErrEmptyCommand)
	})

	t.Run("ReservedKeys", func(t *testing.T) {
		for _, key := range []string{"cmd", "authHash", "id"} {
			_, err := EncodeRequest("", CmdWrite, "abc123", map[string]any{key: "x"})
			assert.ErrorIs(t, err, ErrReservedKey, "key %q", key)
		}
	})
}

func TestDecodeRequest(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		data, err := EncodeRequest("req-1", CmdSaveFile, "deadbeef", map[string]any{
			"path":    "notes/today.md",
			"content": "# hello",
		})
		require.NoError(t, err)

		req, err := DecodeRequest(data)
		require.NoError(t, err)

		assert.Equal(t, "req-1", req.ID)
		assert.Equal(t, CmdSaveFile, req.Cmd)
		assert.Equal(t, "deadbeef", req.AuthHash)
		assert.Equal(t, "notes/today.md", req.Payload["path"])
		assert.Equal(t, "# hello", req.Payload["content"])
	})

	t.Run("NoPayload", func(t *testing.T) {
		req, err := DecodeRequest([]byte(`{"cmd":"PING","authHash":"aa"}`))
		require.NoError(t, err)

		assert.Equal(t, CmdPing, req.Cmd)
		assert.Nil(t, req.Payload)
	})

	t.Run("MissingCommand", func(t *testing.T) {
		_, err := DecodeRequest([]byte(`{"authHash":"aa"}`))
		assert.ErrorIs(t, err, ErrEmptyCommand)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := DecodeRequest([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("Reply", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{"id":"req-1","type":"FILE","data":{"content":"x"},"meta":{"path":"a.md"}}`))
		require.NoError(t, err)

		assert.Equal(t, "req-1", resp.ID)
		assert.Equal(t, TypeFile, resp.Type)
		assert.Equal(t, "x", resp.Data["content"])
		assert.Equal(t, "a.md", resp.Meta["path"])
		assert.False(t, resp.IsPush())
	})

	t.Run("Push", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{"type":"TREE","data":{}}`))
		require.NoError(t, err)
		assert.True(t, resp.IsPush())
	})

	t.Run("PassThroughType", func(t *testing.T) {
		// Types outside the core vocabulary are delivered untouched.
		resp, err := DecodeResponse([]byte(`{"type":"TAGS","data":{"tags":["a"]}}`))
		require.NoError(t, err)
		assert.Equal(t, "TAGS", resp.Type)
	})

	t.Run("MissingType", func(t *testing.T) {
		_, err := DecodeResponse([]byte(`{"data":{}}`))
		assert.ErrorIs(t, err, ErrMissingType)
	})
}

func TestEncodeResponse(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		data, err := EncodeResponse(&Response{
			ID:   "req-2",
			Type: TypeRenderedFile,
			Data: map[string]any{"html": "<p>hi</p>"},
		})
		require.NoError(t, err)

		resp, err := DecodeResponse(data)
		require.NoError(t, err)
		assert.Equal(t, TypeRenderedFile, resp.Type)
		assert.Equal(t, "req-2", resp.ID)
	})

	t.Run("MissingType", func(t *testing.T) {
		_, err := EncodeResponse(&Response{})
		assert.ErrorIs(t, err, ErrMissingType)
	})
}

func TestCommandName(t *testing.T) {
	assert.True(t, CmdOpenDailyNote.IsKnown())
	assert.True(t, CmdGetTree.IsKnown())
	assert.False(t, CommandName("FORMAT_DISK").IsKnown())
}
