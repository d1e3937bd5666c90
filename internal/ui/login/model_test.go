package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Receiver ID")
	assert.EqualError(t, v("  "), "Receiver ID is required")
	assert.NoError(t, v("u1"))
}

func TestNewPrefillsReceiverAndShowsError(t *testing.T) {
	m := New("u1", "token expired", 80, 24)
	assert.Equal(t, "u1", m.vals.receiverID)
	assert.Equal(t, "token expired", m.errMsg)
}
