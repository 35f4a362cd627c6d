package taxlot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonObjectWriter(t *testing.T) {
	t.Run("empty object", func(t *testing.T) {
		var w jsonObjectWriter
		got, err := w.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, "{}", string(got))
	})

	t.Run("field order is kept", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("z", 1)
		w.Append("a", "hello")
		got, err := w.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `{"z":1,"a":"hello"}`, string(got))
	})

	t.Run("embed object", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", 1)
		w.Embed(json.RawMessage(`{"c":3,"d":4}`))
		w.Embed(json.RawMessage(`{}`))
		w.Append("b", 2)
		got, err := w.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `{"a":1,"c":3,"d":4,"b":2}`, string(got))
	})

	t.Run("optional fields", func(t *testing.T) {
		var w jsonObjectWriter
		w.Optional("empty", "")
		w.Optional("zero", 0)
		w.Optional("set", "x")
		got, err := w.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `{"set":"x"}`, string(got))
	})

	t.Run("marshal error is sticky", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("bad", make(chan int))
		w.Append("good", 1)
		_, err := w.MarshalJSON()
		assert.Error(t, err)
	})
}
