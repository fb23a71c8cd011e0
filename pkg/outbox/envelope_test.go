package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e1","data": {"order_id":"x"} }`))
	require.NoError(t, err)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, "e1", env.EventID)
	assert.JSONEq(t, `{"order_id":"x"}`, string(env.Data))

	for name, raw := range map[string]string{
		"missing data": `{"version":1}`,
		"null data":    `{"version":1,"data":null}`,
	} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.ErrorIs(t, err, ErrEmptyData, name)
	}

	_, err = DecodeEnvelope([]byte(`[1,2]`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyData)
}
